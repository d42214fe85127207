package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elevate-portal/backend/config"
	"github.com/elevate-portal/backend/internal/models"
)

// usageSampleLimit bounds the referencing-ID samples returned for display.
const usageSampleLimit = 10

// ErrScanBudgetExceeded means a table traversal hit the configured page
// ceiling before finishing. Raise SCAN_MAX_PAGES or shrink the table.
var ErrScanBudgetExceeded = errors.New("scan page ceiling reached")

// OptionStore is the option persistence surface the service needs.
type OptionStore interface {
	GetByID(ctx context.Context, optionID string) (*models.MetadataOption, error)
	FindBySlug(ctx context.Context, group models.GroupKey, slug string) (*models.MetadataOption, error)
	Put(ctx context.Context, o *models.MetadataOption) error
	Apply(ctx context.Context, optionID string, set map[string]any, clear []string) (*models.MetadataOption, error)
	Page(ctx context.Context, p ListParams) ([]models.MetadataOption, string, error)
}

// CourseStore is the slice of the course repository the taxonomy needs.
type CourseStore interface {
	PageCourses(ctx context.Context, cursor string, limit int32) ([]models.Course, string, error)
	UpdateCourseFields(ctx context.Context, courseID string, set map[string]any) error
	AssignCourseField(ctx context.Context, courseID, field, optionID string) (bool, error)
	AppendCourseTagID(ctx context.Context, courseID, optionID string) (bool, error)
}

// ContentStore is the slice of the content repository the taxonomy needs.
type ContentStore interface {
	PageContent(ctx context.Context, cursor string, limit int32) ([]models.ContentItem, string, error)
	UpdateContentFields(ctx context.Context, contentID string, set map[string]any) error
	AssignContentField(ctx context.Context, contentID, field, optionID string) (bool, error)
	AppendContentTagID(ctx context.Context, contentID, optionID string) (bool, error)
}

// Service implements the taxonomy operations over the option and catalog
// stores. Merge and migration walk the catalog tables page by page; neither
// is atomic, but both are safe to re-run (first-write-wins).
type Service struct {
	options  OptionStore
	courses  CourseStore
	content  ContentStore
	pageSize int32
	maxPages int
	logger   *zap.Logger
}

// NewService creates the taxonomy service.
func NewService(options OptionStore, courses CourseStore, content ContentStore, scan config.MigrationConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := scan.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Service{
		options:  options,
		courses:  courses,
		content:  content,
		pageSize: pageSize,
		maxPages: scan.MaxPages,
		logger:   logger,
	}
}

// List returns one page of options for a group.
func (s *Service) List(ctx context.Context, p ListParams) ([]models.MetadataOption, string, error) {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}
	return s.options.Page(ctx, p)
}

// Get returns an option by id.
func (s *Service) Get(ctx context.Context, optionID string) (*models.MetadataOption, error) {
	return s.options.GetByID(ctx, optionID)
}

// CreateParams holds the fields for a new option.
type CreateParams struct {
	GroupKey         models.GroupKey
	Label            string
	Slug             string
	SortOrder        int
	ParentID         string
	Color            string
	ShortDescription string
	Actor            string
}

// Create validates and inserts a new option. The slug is derived from the
// label when not given; a slug collision within the group is a conflict.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.MetadataOption, error) {
	if p.Label == "" {
		return nil, Validationf("label is required")
	}
	if len(p.ShortDescription) > models.MaxShortDescriptionLen {
		return nil, Validationf("short_description exceeds %d characters", models.MaxShortDescriptionLen)
	}
	slug := p.Slug
	if slug == "" {
		slug = Slugify(p.Label)
	} else {
		slug = Slugify(slug)
	}
	if slug == "" {
		return nil, Validationf("label does not yield a usable slug")
	}

	if _, err := s.options.FindBySlug(ctx, p.GroupKey, slug); err == nil {
		return nil, ErrSlugConflict
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if p.ParentID != "" {
		parent, err := s.options.GetByID(ctx, p.ParentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, Validationf("parent option %s not found", p.ParentID)
			}
			return nil, err
		}
		if parent.GroupKey != p.GroupKey {
			return nil, Validationf("parent option belongs to group %s", parent.GroupKey)
		}
	}

	now := time.Now().UTC()
	o := &models.MetadataOption{
		OptionID:         uuid.New().String(),
		GroupKey:         p.GroupKey,
		Label:            p.Label,
		Slug:             slug,
		SortOrder:        p.SortOrder,
		ParentID:         p.ParentID,
		Color:            p.Color,
		ShortDescription: p.ShortDescription,
		Status:           models.OptionStatusActive,
		CreatedAt:        now,
		CreatedBy:        p.Actor,
		UpdatedAt:        now,
		UpdatedBy:        p.Actor,
	}
	if err := s.options.Put(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// clearable attributes may be set to explicit null in a patch.
var clearableFields = map[string]bool{
	"parent_id":         true,
	"color":             true,
	"short_description": true,
	"archived_at":       true,
	"deleted_at":        true,
}

var patchableFields = map[string]bool{
	"label":             true,
	"slug":              true,
	"sort_order":        true,
	"parent_id":         true,
	"color":             true,
	"short_description": true,
	"status":            true,
	"archived_at":       true,
	"deleted_at":        true,
}

// Update applies a PATCH to an option. The raw-message patch preserves the
// distinction between a field that is absent and a field explicitly set to
// null: null clears the attribute, absent leaves it untouched.
func (s *Service) Update(ctx context.Context, optionID string, patch map[string]json.RawMessage, actor string) (*models.MetadataOption, error) {
	existing, err := s.options.GetByID(ctx, optionID)
	if err != nil {
		return nil, err
	}

	set := map[string]any{}
	var clear []string

	for field, raw := range patch {
		if !patchableFields[field] {
			return nil, Validationf("unknown field %q", field)
		}
		if isJSONNull(raw) {
			if !clearableFields[field] {
				return nil, Validationf("field %q cannot be null", field)
			}
			clear = append(clear, field)
			continue
		}
		switch field {
		case "label":
			var v string
			if err := json.Unmarshal(raw, &v); err != nil || v == "" {
				return nil, Validationf("label must be a non-empty string")
			}
			set["label"] = v
		case "slug":
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, Validationf("slug must be a string")
			}
			slug := Slugify(v)
			if slug == "" {
				return nil, Validationf("slug must not be empty")
			}
			other, err := s.options.FindBySlug(ctx, existing.GroupKey, slug)
			if err == nil && other.OptionID != optionID {
				return nil, ErrSlugConflict
			} else if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			set["slug"] = slug
		case "sort_order":
			var v int
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, Validationf("sort_order must be an integer")
			}
			set["sort_order"] = v
		case "parent_id":
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, Validationf("parent_id must be a string")
			}
			if v == optionID {
				return nil, Validationf("option cannot be its own parent")
			}
			if v != "" {
				parent, err := s.options.GetByID(ctx, v)
				if err != nil {
					if errors.Is(err, ErrNotFound) {
						return nil, Validationf("parent option %s not found", v)
					}
					return nil, err
				}
				if parent.GroupKey != existing.GroupKey {
					return nil, Validationf("parent option belongs to group %s", parent.GroupKey)
				}
			}
			set["parent_id"] = v
		case "color":
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, Validationf("color must be a string")
			}
			set["color"] = v
		case "short_description":
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, Validationf("short_description must be a string")
			}
			if len(v) > models.MaxShortDescriptionLen {
				return nil, Validationf("short_description exceeds %d characters", models.MaxShortDescriptionLen)
			}
			set["short_description"] = v
		case "status":
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, Validationf("status must be a string")
			}
			if v != models.OptionStatusActive && v != models.OptionStatusArchived {
				return nil, Validationf("status must be %q or %q", models.OptionStatusActive, models.OptionStatusArchived)
			}
			set["status"] = v
		case "archived_at", "deleted_at":
			var v time.Time
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, Validationf("%s must be an RFC3339 timestamp or null", field)
			}
			set[field] = v
		}
	}

	// Keep status and the legacy archived_at marker coherent when only one
	// of them is patched.
	if v, ok := set["status"]; ok {
		if _, touched := patch["archived_at"]; !touched {
			if v == models.OptionStatusArchived {
				set["archived_at"] = time.Now().UTC()
			} else {
				clear = append(clear, "archived_at")
			}
		}
	}

	set["updated_at"] = time.Now().UTC()
	if actor != "" {
		set["updated_by"] = actor
	}
	return s.options.Apply(ctx, optionID, set, clear)
}

func isJSONNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

// canonicalField maps a group onto the catalog field that references it.
// Badge and audience options are not referenced by canonical ID fields, so
// their usage is always zero.
func canonicalField(group models.GroupKey) (field string, isList bool) {
	switch group {
	case models.GroupProduct:
		return "product_id", false
	case models.GroupProductSuite:
		return "product_suite_id", false
	case models.GroupTopicTag:
		return "topic_tag_ids", true
	default:
		return "", false
	}
}

func courseReferences(c *models.Course, group models.GroupKey, optionID string) bool {
	switch group {
	case models.GroupProduct:
		return c.ProductID == optionID
	case models.GroupProductSuite:
		return c.ProductSuiteID == optionID
	case models.GroupTopicTag:
		for _, id := range c.TopicTagIDs {
			if id == optionID {
				return true
			}
		}
	}
	return false
}

func contentReferences(ci *models.ContentItem, group models.GroupKey, optionID string) bool {
	switch group {
	case models.GroupProduct:
		return ci.ProductID == optionID
	case models.GroupProductSuite:
		return ci.ProductSuiteID == optionID
	case models.GroupTopicTag:
		for _, id := range ci.TopicTagIDs {
			if id == optionID {
				return true
			}
		}
	}
	return false
}

// Usage counts catalog references to an option. Both tables are walked in
// full through the store's continuation keys; there is no reverse index at
// these data volumes.
func (s *Service) Usage(ctx context.Context, option *models.MetadataOption) (models.OptionUsage, error) {
	usage := models.OptionUsage{
		SampleCourseIDs:   []string{},
		SampleResourceIDs: []string{},
	}
	if field, _ := canonicalField(option.GroupKey); field == "" {
		return usage, nil
	}

	err := s.eachCoursePage(ctx, func(courses []models.Course) error {
		for i := range courses {
			if courseReferences(&courses[i], option.GroupKey, option.OptionID) {
				usage.UsedByCourses++
				if len(usage.SampleCourseIDs) < usageSampleLimit {
					usage.SampleCourseIDs = append(usage.SampleCourseIDs, courses[i].CourseID)
				}
			}
		}
		return nil
	})
	if err != nil {
		return usage, err
	}

	err = s.eachContentPage(ctx, func(items []models.ContentItem) error {
		for i := range items {
			if contentReferences(&items[i], option.GroupKey, option.OptionID) {
				usage.UsedByResources++
				if len(usage.SampleResourceIDs) < usageSampleLimit {
					usage.SampleResourceIDs = append(usage.SampleResourceIDs, items[i].ContentID)
				}
			}
		}
		return nil
	})
	return usage, err
}

// Delete soft-deletes an option. Without force it first counts catalog
// references and refuses with the usage detail when any remain.
func (s *Service) Delete(ctx context.Context, group models.GroupKey, optionID string, force bool, actor string) (*models.MetadataOption, error) {
	o, err := s.options.GetByID(ctx, optionID)
	if err != nil {
		return nil, err
	}
	if o.GroupKey != group {
		return nil, ErrNotFound
	}
	if !force {
		usage, err := s.Usage(ctx, o)
		if err != nil {
			return nil, err
		}
		if usage.Total() > 0 {
			return nil, &InUseError{Usage: usage}
		}
	}
	set := map[string]any{
		"deleted_at": time.Now().UTC(),
		"updated_at": time.Now().UTC(),
	}
	if actor != "" {
		set["updated_by"] = actor
	}
	return s.options.Apply(ctx, optionID, set, nil)
}

// MergeResult reports how many catalog entities were re-pointed.
type MergeResult struct {
	MigratedCourses   int `json:"migrated_courses"`
	MigratedResources int `json:"migrated_resources"`
}

// Merge re-points every catalog reference from source to target, then
// archives the source (or soft-deletes it when deleteSource). The rewrite
// is a paginated scan with per-item updates; a failure partway leaves a
// mixed state with no rollback, and re-running is safe.
func (s *Service) Merge(ctx context.Context, group models.GroupKey, sourceID, targetID string, deleteSource bool, actor string) (MergeResult, error) {
	var result MergeResult
	if targetID == "" {
		return result, fmt.Errorf("%w: target_option_id is required", ErrInvalidMerge)
	}
	if sourceID == targetID {
		return result, fmt.Errorf("%w: source and target are the same option", ErrInvalidMerge)
	}

	source, err := s.options.GetByID(ctx, sourceID)
	if err != nil {
		return result, err
	}
	if source.GroupKey != group {
		return result, ErrNotFound
	}
	target, err := s.options.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return result, fmt.Errorf("%w: target option not found", ErrInvalidMerge)
		}
		return result, err
	}
	if target.GroupKey != source.GroupKey {
		return result, fmt.Errorf("%w: cannot merge across groups (%s -> %s)", ErrInvalidMerge, source.GroupKey, target.GroupKey)
	}

	field, isList := canonicalField(group)
	if field != "" {
		err = s.eachCoursePage(ctx, func(courses []models.Course) error {
			for i := range courses {
				c := &courses[i]
				if !courseReferences(c, group, sourceID) {
					continue
				}
				var set map[string]any
				if isList {
					set = map[string]any{field: replaceID(c.TopicTagIDs, sourceID, targetID)}
				} else {
					set = map[string]any{field: targetID}
				}
				if err := s.courses.UpdateCourseFields(ctx, c.CourseID, set); err != nil {
					return err
				}
				result.MigratedCourses++
			}
			return nil
		})
		if err != nil {
			return result, err
		}

		err = s.eachContentPage(ctx, func(items []models.ContentItem) error {
			for i := range items {
				ci := &items[i]
				if !contentReferences(ci, group, sourceID) {
					continue
				}
				var set map[string]any
				if isList {
					set = map[string]any{field: replaceID(ci.TopicTagIDs, sourceID, targetID)}
				} else {
					set = map[string]any{field: targetID}
				}
				if err := s.content.UpdateContentFields(ctx, ci.ContentID, set); err != nil {
					return err
				}
				result.MigratedResources++
			}
			return nil
		})
		if err != nil {
			return result, err
		}
	}

	now := time.Now().UTC()
	set := map[string]any{"updated_at": now}
	if actor != "" {
		set["updated_by"] = actor
	}
	if deleteSource {
		set["deleted_at"] = now
	} else {
		set["status"] = models.OptionStatusArchived
		set["archived_at"] = now
	}
	if _, err := s.options.Apply(ctx, sourceID, set, nil); err != nil {
		return result, err
	}
	s.logger.Info("option merged",
		zap.String("group", string(group)),
		zap.String("source", sourceID),
		zap.String("target", targetID),
		zap.Int("courses", result.MigratedCourses),
		zap.Int("resources", result.MigratedResources),
	)
	return result, nil
}

// replaceID swaps source for target in a reference list, deduplicating when
// the target was already present.
func replaceID(ids []string, source, target string) []string {
	out := make([]string, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		if id == source {
			id = target
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// eachCoursePage walks the courses table to exhaustion within the page
// budget, invoking fn per page.
func (s *Service) eachCoursePage(ctx context.Context, fn func([]models.Course) error) error {
	cursor := ""
	for pages := 0; ; pages++ {
		if s.maxPages > 0 && pages >= s.maxPages {
			return ErrScanBudgetExceeded
		}
		courses, next, err := s.courses.PageCourses(ctx, cursor, s.pageSize)
		if err != nil {
			return err
		}
		if err := fn(courses); err != nil {
			return err
		}
		if next == "" {
			return nil
		}
		cursor = next
	}
}

// eachContentPage mirrors eachCoursePage for the content table.
func (s *Service) eachContentPage(ctx context.Context, fn func([]models.ContentItem) error) error {
	cursor := ""
	for pages := 0; ; pages++ {
		if s.maxPages > 0 && pages >= s.maxPages {
			return ErrScanBudgetExceeded
		}
		items, next, err := s.content.PageContent(ctx, cursor, s.pageSize)
		if err != nil {
			return err
		}
		if err := fn(items); err != nil {
			return err
		}
		if next == "" {
			return nil
		}
		cursor = next
	}
}
