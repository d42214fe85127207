package metadata

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/elevate-portal/backend/internal/models"
)

// LegacyKey names a legacy free-text field family on catalog entities.
type LegacyKey string

const (
	LegacyProduct      LegacyKey = "product"
	LegacyProductSuite LegacyKey = "product_suite"
	LegacyTopicTags    LegacyKey = "topic_tags"
)

// ParseLegacyKey validates a raw legacy key.
func ParseLegacyKey(s string) (LegacyKey, bool) {
	switch LegacyKey(s) {
	case LegacyProduct, LegacyProductSuite, LegacyTopicTags:
		return LegacyKey(s), true
	}
	return "", false
}

// legacyCourseValues extracts the legacy values a course carries for a key.
// The product-suite family prefers legacy_product_suite and falls back to
// the older legacy_product_concept field.
func legacyCourseValues(c *models.Course, key LegacyKey) []string {
	switch key {
	case LegacyProduct:
		return nonEmpty(c.Product)
	case LegacyProductSuite:
		if c.LegacyProductSuite != "" {
			return []string{c.LegacyProductSuite}
		}
		return nonEmpty(c.LegacyProductConcept)
	case LegacyTopicTags:
		return trimmed(c.TopicTags)
	}
	return nil
}

func legacyContentValues(ci *models.ContentItem, key LegacyKey) []string {
	switch key {
	case LegacyProduct:
		return nonEmpty(ci.Product)
	case LegacyProductSuite:
		return nonEmpty(ci.LegacyProductSuite)
	case LegacyTopicTags:
		return trimmed(ci.LegacyTags())
	}
	return nil
}

func nonEmpty(s string) []string {
	if v := strings.TrimSpace(s); v != "" {
		return []string{v}
	}
	return nil
}

func trimmed(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := strings.TrimSpace(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LegacyValueCount buckets one distinct legacy value with per-entity-type
// counts, so an operator can build a value-to-option mapping.
type LegacyValueCount struct {
	Value     string `json:"value"`
	Courses   int    `json:"courses"`
	Resources int    `json:"resources"`
}

// ScanLegacy walks both catalog tables once and buckets the distinct legacy
// values for the key. O(table size); run as a batch job, not on a latency
// budget.
func (s *Service) ScanLegacy(ctx context.Context, key LegacyKey) ([]LegacyValueCount, error) {
	buckets := map[string]*LegacyValueCount{}
	bump := func(value string, isCourse bool) {
		b, ok := buckets[value]
		if !ok {
			b = &LegacyValueCount{Value: value}
			buckets[value] = b
		}
		if isCourse {
			b.Courses++
		} else {
			b.Resources++
		}
	}

	err := s.eachCoursePage(ctx, func(courses []models.Course) error {
		for i := range courses {
			for _, v := range legacyCourseValues(&courses[i], key) {
				bump(v, true)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = s.eachContentPage(ctx, func(items []models.ContentItem) error {
		for i := range items {
			for _, v := range legacyContentValues(&items[i], key) {
				bump(v, false)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]LegacyValueCount, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}

// ApplyResult reports a migration pass. Matched counts entities whose
// canonical field would be written; Updated counts actual writes (zero on
// dry runs and on entities another writer beat us to).
type ApplyResult struct {
	DryRun           bool `json:"dry_run"`
	CoursesMatched   int  `json:"courses_matched"`
	CoursesUpdated   int  `json:"courses_updated"`
	ResourcesMatched int  `json:"resources_matched"`
	ResourcesUpdated int  `json:"resources_updated"`
}

// ApplyLegacy walks both catalog tables and writes canonical option
// references for mapped legacy values. First-write-wins: an entity whose
// canonical field is already populated is never touched, which also makes
// re-running the same mapping a no-op. dryRun performs the identical
// read/filter pass and only counts.
func (s *Service) ApplyLegacy(ctx context.Context, key LegacyKey, mapping map[string]string, dryRun bool) (ApplyResult, error) {
	result := ApplyResult{DryRun: dryRun}
	field, isList := canonicalField(groupForLegacyKey(key))
	if field == "" {
		return result, Validationf("legacy key %q has no canonical field", key)
	}

	err := s.eachCoursePage(ctx, func(courses []models.Course) error {
		for i := range courses {
			c := &courses[i]
			if isList {
				missing := mappedMissing(legacyCourseValues(c, key), c.TopicTagIDs, mapping)
				if len(missing) == 0 {
					continue
				}
				result.CoursesMatched++
				if dryRun {
					continue
				}
				wrote := false
				for _, id := range missing {
					appended, err := s.courses.AppendCourseTagID(ctx, c.CourseID, id)
					if err != nil {
						return err
					}
					wrote = wrote || appended
				}
				if wrote {
					result.CoursesUpdated++
				}
				continue
			}

			optionID, ok := mappedScalar(legacyCourseValues(c, key), mapping)
			if !ok || courseCanonical(c, key) != "" {
				continue
			}
			result.CoursesMatched++
			if dryRun {
				continue
			}
			wrote, err := s.courses.AssignCourseField(ctx, c.CourseID, field, optionID)
			if err != nil {
				return err
			}
			if wrote {
				result.CoursesUpdated++
			}
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	err = s.eachContentPage(ctx, func(items []models.ContentItem) error {
		for i := range items {
			ci := &items[i]
			if isList {
				missing := mappedMissing(legacyContentValues(ci, key), ci.TopicTagIDs, mapping)
				if len(missing) == 0 {
					continue
				}
				result.ResourcesMatched++
				if dryRun {
					continue
				}
				wrote := false
				for _, id := range missing {
					appended, err := s.content.AppendContentTagID(ctx, ci.ContentID, id)
					if err != nil {
						return err
					}
					wrote = wrote || appended
				}
				if wrote {
					result.ResourcesUpdated++
				}
				continue
			}

			optionID, ok := mappedScalar(legacyContentValues(ci, key), mapping)
			if !ok || contentCanonical(ci, key) != "" {
				continue
			}
			result.ResourcesMatched++
			if dryRun {
				continue
			}
			wrote, err := s.content.AssignContentField(ctx, ci.ContentID, field, optionID)
			if err != nil {
				return err
			}
			if wrote {
				result.ResourcesUpdated++
			}
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	s.logger.Info("legacy migration pass finished",
		zap.String("key", string(key)),
		zap.Bool("dry_run", dryRun),
		zap.Int("courses_matched", result.CoursesMatched),
		zap.Int("courses_updated", result.CoursesUpdated),
		zap.Int("resources_matched", result.ResourcesMatched),
		zap.Int("resources_updated", result.ResourcesUpdated),
	)
	return result, nil
}

func groupForLegacyKey(key LegacyKey) models.GroupKey {
	switch key {
	case LegacyProduct:
		return models.GroupProduct
	case LegacyProductSuite:
		return models.GroupProductSuite
	case LegacyTopicTags:
		return models.GroupTopicTag
	}
	return ""
}

func courseCanonical(c *models.Course, key LegacyKey) string {
	switch key {
	case LegacyProduct:
		return c.ProductID
	case LegacyProductSuite:
		return c.ProductSuiteID
	}
	return ""
}

func contentCanonical(ci *models.ContentItem, key LegacyKey) string {
	switch key {
	case LegacyProduct:
		return ci.ProductID
	case LegacyProductSuite:
		return ci.ProductSuiteID
	}
	return ""
}

// mappedScalar resolves the first legacy value that has a mapping entry.
func mappedScalar(values []string, mapping map[string]string) (string, bool) {
	for _, v := range values {
		if id, ok := mapping[v]; ok && id != "" {
			return id, true
		}
	}
	return "", false
}

// mappedMissing returns mapped option ids for legacy values that are not
// yet present in the canonical list, deduplicated.
func mappedMissing(values, existing []string, mapping map[string]string) []string {
	have := map[string]bool{}
	for _, id := range existing {
		have[id] = true
	}
	var out []string
	for _, v := range values {
		id, ok := mapping[v]
		if !ok || id == "" || have[id] {
			continue
		}
		have[id] = true
		out = append(out, id)
	}
	return out
}
