package catalog

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/elevate-portal/backend/internal/models"
	"github.com/elevate-portal/backend/pkg/response"
	"github.com/elevate-portal/backend/pkg/storage"
)

// UploadURLRequest is the body for POST /v1/content/:id/asset-upload-url.
type UploadURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
}

// Handler serves the read-only catalog surface and asset URL endpoints.
type Handler struct {
	courses *CourseRepository
	content *ContentRepository
	s3      *storage.S3
	logger  *zap.Logger
}

// NewHandler creates a catalog handler. s3 may be nil; asset URL endpoints
// then report the storage as unavailable.
func NewHandler(courses *CourseRepository, content *ContentRepository, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{courses: courses, content: content, s3: s3, logger: logger}
}

// ListCourses handles GET /v1/courses.
func (h *Handler) ListCourses(c *gin.Context) {
	courses, next, err := h.courses.PageCourses(c.Request.Context(), c.Query("cursor"), pageLimit(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if courses == nil {
		courses = []models.Course{}
	}
	payload := gin.H{"courses": courses}
	if next != "" {
		payload["next_cursor"] = next
	}
	response.OK(c, payload)
}

// GetCourse handles GET /v1/courses/:id.
func (h *Handler) GetCourse(c *gin.Context) {
	course, err := h.courses.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"course": course})
}

// ListContent handles GET /v1/content.
func (h *Handler) ListContent(c *gin.Context) {
	items, next, err := h.content.PageContent(c.Request.Context(), c.Query("cursor"), pageLimit(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if items == nil {
		items = []models.ContentItem{}
	}
	payload := gin.H{"content": items}
	if next != "" {
		payload["next_cursor"] = next
	}
	response.OK(c, payload)
}

// GetContent handles GET /v1/content/:id.
func (h *Handler) GetContent(c *gin.Context) {
	item, err := h.content.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"content": item})
}

// DownloadURL handles GET /v1/content/:id/download-url, returning a
// presigned GET for the item's stored asset.
func (h *Handler) DownloadURL(c *gin.Context) {
	if h.s3 == nil {
		response.Error(c, 503, "STORAGE_UNAVAILABLE", "asset storage is not configured", nil)
		return
	}
	item, err := h.content.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if item.AssetKey == "" {
		response.NotFound(c, "content item has no stored asset")
		return
	}
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), item.AssetKey)
	if err != nil {
		h.logger.Error("presign download failed", zap.Error(err), zap.String("content_id", item.ContentID))
		response.Internal(c)
		return
	}
	response.OK(c, gin.H{"download_url": url, "expires_in_seconds": int(h.s3.PresignExpire().Seconds())})
}

// AssetUploadURL handles POST /v1/content/:id/asset-upload-url
// (contributor or above), returning a presigned PUT and recording the
// asset key on the item.
func (h *Handler) AssetUploadURL(c *gin.Context) {
	if h.s3 == nil {
		response.Error(c, 503, "STORAGE_UNAVAILABLE", "asset storage is not configured", nil)
		return
	}
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "invalid request: "+err.Error())
		return
	}
	if !storage.ValidateAssetFileType(req.ContentType, req.Filename) {
		response.BadRequest(c, response.CodeValidation, "unsupported asset file type")
		return
	}
	item, err := h.content.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(req.Filename)
	}
	key := storage.AssetKey(item.ContentID, req.Filename)
	url, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), key, contentType)
	if err != nil {
		h.logger.Error("presign upload failed", zap.Error(err), zap.String("content_id", item.ContentID))
		response.Internal(c)
		return
	}
	if err := h.content.UpdateContentFields(c.Request.Context(), item.ContentID, map[string]any{"asset_key": key}); err != nil {
		h.fail(c, err)
		return
	}
	h.cleanupReplacedAsset(c, item, key)
	response.OK(c, gin.H{"upload_url": url, "asset_key": key, "expires_in_seconds": int(h.s3.PresignExpire().Seconds())})
}

// UploadAsset handles POST /v1/content/:id/asset (contributor or above),
// streaming the file through the server for clients that cannot drive the
// presigned PUT flow themselves.
func (h *Handler) UploadAsset(c *gin.Context) {
	if h.s3 == nil {
		response.Error(c, 503, "STORAGE_UNAVAILABLE", "asset storage is not configured", nil)
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, response.CodeValidation, "file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !storage.ValidateAssetFileType(contentType, header.Filename) {
		response.BadRequest(c, response.CodeValidation, "unsupported asset file type")
		return
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = storage.ContentTypeForFilename(header.Filename)
	}

	item, err := h.content.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	key := storage.AssetKey(item.ContentID, header.Filename)
	url, err := h.s3.Upload(c.Request.Context(), key, contentType, file, header.Size)
	if err != nil {
		h.logger.Error("asset upload failed", zap.Error(err), zap.String("content_id", item.ContentID))
		response.Internal(c)
		return
	}
	if err := h.content.UpdateContentFields(c.Request.Context(), item.ContentID, map[string]any{"asset_key": key}); err != nil {
		h.fail(c, err)
		return
	}
	h.cleanupReplacedAsset(c, item, key)
	response.Created(c, gin.H{"asset_key": key, "url": url})
}

// cleanupReplacedAsset removes the previous object once the item points at a
// new key. Best effort; a leftover object only costs storage.
func (h *Handler) cleanupReplacedAsset(c *gin.Context, item *models.ContentItem, newKey string) {
	if item.AssetKey == "" || item.AssetKey == newKey {
		return
	}
	if err := h.s3.DeleteObject(c.Request.Context(), item.AssetKey); err != nil {
		h.logger.Warn("replaced asset cleanup failed",
			zap.Error(err),
			zap.String("content_id", item.ContentID),
			zap.String("asset_key", item.AssetKey),
		)
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "not found")
		return
	}
	h.logger.Error("catalog operation failed", zap.Error(err), zap.String("request_id", response.RequestID(c)))
	response.Internal(c)
}

func pageLimit(c *gin.Context) int32 {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 200 {
		limit = 200
	}
	return int32(limit)
}
