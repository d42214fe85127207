package metadata

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/elevate-portal/backend/internal/middleware"
	"github.com/elevate-portal/backend/internal/models"
	"github.com/elevate-portal/backend/pkg/queue"
	"github.com/elevate-portal/backend/pkg/response"
)

// CreateRequest is the body for POST /v1/metadata/:groupKey/options.
type CreateRequest struct {
	Label            string `json:"label" binding:"required"`
	Slug             string `json:"slug"`
	SortOrder        int    `json:"sort_order"`
	ParentID         string `json:"parent_id"`
	Color            string `json:"color"`
	ShortDescription string `json:"short_description"`
}

// MergeRequest is the body for POST /v1/metadata/:groupKey/options/:optionId/merge.
type MergeRequest struct {
	TargetOptionID string `json:"target_option_id" binding:"required"`
	DeleteSource   bool   `json:"delete_source"`
}

// ApplyRequest is the body for POST /v1/metadata/migration/apply.
type ApplyRequest struct {
	Key     string            `json:"key" binding:"required"`
	Mapping map[string]string `json:"mapping" binding:"required"`
	DryRun  bool              `json:"dry_run"`
}

// Handler handles taxonomy HTTP endpoints.
type Handler struct {
	svc    *Service
	queue  *queue.Queue
	logger *zap.Logger
}

// NewHandler creates a taxonomy handler. The queue may be nil; audit events
// are best effort.
func NewHandler(svc *Service, q *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, queue: q, logger: logger}
}

// List handles GET /v1/metadata/:groupKey/options.
func (h *Handler) List(c *gin.Context) {
	group, ok := models.ParseGroupKey(c.Param("groupKey"))
	if !ok {
		response.BadRequest(c, response.CodeInvalidGroupKey, "unrecognized group key")
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	options, next, err := h.svc.List(c.Request.Context(), ListParams{
		Group:           group,
		Query:           c.Query("query"),
		IncludeArchived: c.Query("include_archived") == "true",
		ParentID:        c.Query("parent_id"),
		Limit:           int32(limit),
		Cursor:          c.Query("cursor"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if options == nil {
		options = []models.MetadataOption{}
	}
	payload := gin.H{"options": options}
	if next != "" {
		payload["next_cursor"] = next
	}
	response.OK(c, payload)
}

// Create handles POST /v1/metadata/:groupKey/options (admin only).
func (h *Handler) Create(c *gin.Context) {
	group, ok := models.ParseGroupKey(c.Param("groupKey"))
	if !ok {
		response.BadRequest(c, response.CodeInvalidGroupKey, "unrecognized group key")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "invalid request: "+err.Error())
		return
	}
	option, err := h.svc.Create(c.Request.Context(), CreateParams{
		GroupKey:         group,
		Label:            req.Label,
		Slug:             req.Slug,
		SortOrder:        req.SortOrder,
		ParentID:         req.ParentID,
		Color:            req.Color,
		ShortDescription: req.ShortDescription,
		Actor:            h.actor(c),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.audit(c, "option.create", "metadata_option", option.OptionID, gin.H{"group_key": group, "label": option.Label})
	response.Created(c, gin.H{"option": option})
}

// Update handles PATCH /v1/metadata/options/:optionId (admin only). The
// body is decoded to raw messages so explicit nulls clear fields while
// absent fields stay untouched.
func (h *Handler) Update(c *gin.Context) {
	var patch map[string]json.RawMessage
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, response.CodeValidation, "invalid request: "+err.Error())
		return
	}
	option, err := h.svc.Update(c.Request.Context(), c.Param("optionId"), patch, h.actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.audit(c, "option.update", "metadata_option", option.OptionID, gin.H{"fields": patchKeys(patch)})
	response.OK(c, gin.H{"option": option})
}

// Usage handles GET /v1/metadata/:groupKey/options/:optionId/usage (admin only).
func (h *Handler) Usage(c *gin.Context) {
	group, ok := models.ParseGroupKey(c.Param("groupKey"))
	if !ok {
		response.BadRequest(c, response.CodeInvalidGroupKey, "unrecognized group key")
		return
	}
	option, err := h.svc.Get(c.Request.Context(), c.Param("optionId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if option.GroupKey != group {
		response.NotFound(c, "option not found")
		return
	}
	usage, err := h.svc.Usage(c.Request.Context(), option)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{
		"used_by_courses":     usage.UsedByCourses,
		"used_by_resources":   usage.UsedByResources,
		"sample_course_ids":   usage.SampleCourseIDs,
		"sample_resource_ids": usage.SampleResourceIDs,
	})
}

// Delete handles DELETE /v1/metadata/:groupKey/options/:optionId (admin only).
func (h *Handler) Delete(c *gin.Context) {
	group, ok := models.ParseGroupKey(c.Param("groupKey"))
	if !ok {
		response.BadRequest(c, response.CodeInvalidGroupKey, "unrecognized group key")
		return
	}
	force := c.Query("force") == "true"
	option, err := h.svc.Delete(c.Request.Context(), group, c.Param("optionId"), force, h.actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.audit(c, "option.delete", "metadata_option", option.OptionID, gin.H{"group_key": group, "force": force})
	response.OK(c, gin.H{"option": option})
}

// Merge handles POST /v1/metadata/:groupKey/options/:optionId/merge (admin only).
func (h *Handler) Merge(c *gin.Context) {
	group, ok := models.ParseGroupKey(c.Param("groupKey"))
	if !ok {
		response.BadRequest(c, response.CodeInvalidGroupKey, "unrecognized group key")
		return
	}
	var req MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "invalid request: "+err.Error())
		return
	}
	sourceID := c.Param("optionId")
	result, err := h.svc.Merge(c.Request.Context(), group, sourceID, req.TargetOptionID, req.DeleteSource, h.actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.audit(c, "option.merge", "metadata_option", sourceID, gin.H{
		"group_key":        group,
		"target_option_id": req.TargetOptionID,
		"delete_source":    req.DeleteSource,
	})
	response.OK(c, gin.H{
		"migrated_courses":   result.MigratedCourses,
		"migrated_resources": result.MigratedResources,
	})
}

// MigrationScan handles GET /v1/metadata/migration/scan?key= (admin only).
// O(table size); treat as a batch job, not a latency-sensitive call.
func (h *Handler) MigrationScan(c *gin.Context) {
	key, ok := ParseLegacyKey(c.Query("key"))
	if !ok {
		response.BadRequest(c, response.CodeValidation, "key must be one of product, product_suite, topic_tags")
		return
	}
	values, err := h.svc.ScanLegacy(c.Request.Context(), key)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"key": key, "values": values})
}

// MigrationApply handles POST /v1/metadata/migration/apply (admin only).
func (h *Handler) MigrationApply(c *gin.Context) {
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "invalid request: "+err.Error())
		return
	}
	key, ok := ParseLegacyKey(req.Key)
	if !ok {
		response.BadRequest(c, response.CodeValidation, "key must be one of product, product_suite, topic_tags")
		return
	}
	result, err := h.svc.ApplyLegacy(c.Request.Context(), key, req.Mapping, req.DryRun)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !req.DryRun {
		h.audit(c, "migration.apply", "legacy_migration", string(key), gin.H{
			"mapped_values":     len(req.Mapping),
			"courses_updated":   result.CoursesUpdated,
			"resources_updated": result.ResourcesUpdated,
		})
	}
	response.OK(c, result.asPayload())
}

func (r ApplyResult) asPayload() gin.H {
	return gin.H{
		"dry_run":           r.DryRun,
		"courses_matched":   r.CoursesMatched,
		"courses_updated":   r.CoursesUpdated,
		"resources_matched": r.ResourcesMatched,
		"resources_updated": r.ResourcesUpdated,
	}
}

// fail translates service errors into the response taxonomy. Store error
// text never reaches the caller.
func (h *Handler) fail(c *gin.Context, err error) {
	var ve *ValidationError
	var iue *InUseError
	switch {
	case errors.As(err, &ve):
		response.BadRequest(c, response.CodeValidation, ve.Message)
	case errors.Is(err, ErrSlugConflict):
		response.Conflict(c, response.CodeSlugConflict, "slug already exists in this group", nil)
	case errors.Is(err, ErrInvalidMerge):
		response.BadRequest(c, response.CodeInvalidMerge, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "option not found")
	case errors.As(err, &iue):
		response.Conflict(c, response.CodeOptionInUse, "option is still referenced; re-point or pass force=true", gin.H{
			"used_by_courses":     iue.Usage.UsedByCourses,
			"used_by_resources":   iue.Usage.UsedByResources,
			"sample_course_ids":   iue.Usage.SampleCourseIDs,
			"sample_resource_ids": iue.Usage.SampleResourceIDs,
		})
	default:
		h.logger.Error("taxonomy operation failed", zap.Error(err), zap.String("request_id", response.RequestID(c)))
		response.Internal(c)
	}
}

func (h *Handler) actor(c *gin.Context) string {
	if user, ok := middleware.UserFrom(c); ok {
		return user.UserID
	}
	return ""
}

// audit enqueues an audit event; failures are logged, never surfaced.
func (h *Handler) audit(c *gin.Context, action, entityType, entityID string, detail gin.H) {
	if h.queue == nil {
		return
	}
	user, _ := middleware.UserFrom(c)
	payload := queue.AuditEventPayload{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
	}
	if user != nil {
		payload.Actor = user.UserID
		payload.ActorRole = user.Role
	}
	if err := h.queue.EnqueueAuditEvent(c.Request.Context(), payload); err != nil {
		h.logger.Warn("audit enqueue failed", zap.Error(err), zap.String("action", action))
	}
}

func patchKeys(patch map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	return keys
}
