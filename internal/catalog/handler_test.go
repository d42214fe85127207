package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevate-portal/backend/internal/models"
	"github.com/elevate-portal/backend/pkg/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(courses *CourseRepository, content *ContentRepository, s3 *storage.S3) *gin.Engine {
	h := NewHandler(courses, content, s3, nil)
	r := gin.New()
	r.GET("/v1/courses", h.ListCourses)
	r.GET("/v1/courses/:id", h.GetCourse)
	r.GET("/v1/content/:id", h.GetContent)
	r.GET("/v1/content/:id/download-url", h.DownloadURL)
	r.POST("/v1/content/:id/asset-upload-url", h.AssetUploadURL)
	r.POST("/v1/content/:id/asset", h.UploadAsset)
	return r
}

// newTestS3 builds a real S3 client with static test credentials. Presigning
// is pure request signing, so these tests never touch the network.
func newTestS3(t *testing.T) *storage.S3 {
	t.Helper()
	s3, err := storage.NewS3(context.Background(), storage.S3Config{
		Region:          "us-east-1",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
		AssetsBucket:    "test-assets",
	}, nil)
	require.NoError(t, err)
	return s3
}

func TestGetCourseEndpoint(t *testing.T) {
	db := newFakeDB("course_id")
	db.put(t, models.Course{CourseID: "c-1", Title: "Intro"})
	r := newTestRouter(NewCourseRepository(db, "courses"), NewContentRepository(newFakeDB("content_id"), "content"), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/courses/c-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Intro")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/courses/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListCoursesLimitCap(t *testing.T) {
	db := newFakeDB("course_id")
	for _, id := range []string{"c-1", "c-2", "c-3"} {
		db.put(t, models.Course{CourseID: id, Title: id})
	}
	r := newTestRouter(NewCourseRepository(db, "courses"), NewContentRepository(newFakeDB("content_id"), "content"), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/courses?limit=2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "next_cursor")
}

func TestAssetEndpointsWithoutStorage(t *testing.T) {
	contentDB := newFakeDB("content_id")
	contentDB.put(t, models.ContentItem{ContentID: "r-1", Title: "Deck"})
	r := newTestRouter(NewCourseRepository(newFakeDB("course_id"), "courses"), NewContentRepository(contentDB, "content"), nil)

	// With no S3 client wired, every asset endpoint reports storage
	// unavailable.
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/v1/content/r-1/download-url", nil),
		httptest.NewRequest(http.MethodPost, "/v1/content/r-1/asset-upload-url", nil),
		httptest.NewRequest(http.MethodPost, "/v1/content/r-1/asset", nil),
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, req.URL.Path)
		assert.Contains(t, w.Body.String(), "STORAGE_UNAVAILABLE")
	}
}

func TestDownloadURLPresigned(t *testing.T) {
	contentDB := newFakeDB("content_id")
	contentDB.put(t, models.ContentItem{ContentID: "r-1", Title: "Deck", AssetKey: "assets/r-1/deck.pdf"})
	contentDB.put(t, models.ContentItem{ContentID: "r-2", Title: "No Asset"})
	r := newTestRouter(NewCourseRepository(newFakeDB("course_id"), "courses"), NewContentRepository(contentDB, "content"), newTestS3(t))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/content/r-1/download-url", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	url, _ := body["download_url"].(string)
	assert.Contains(t, url, "test-assets")
	assert.Contains(t, url, "assets/r-1/deck.pdf")
	assert.NotZero(t, body["expires_in_seconds"])

	// An item without a stored asset has nothing to download.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/content/r-2/download-url", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssetUploadURLPresigned(t *testing.T) {
	contentDB := newFakeDB("content_id")
	contentDB.put(t, models.ContentItem{ContentID: "r-1", Title: "Deck"})
	r := newTestRouter(NewCourseRepository(newFakeDB("course_id"), "courses"), NewContentRepository(contentDB, "content"), newTestS3(t))

	payload, _ := json.Marshal(gin.H{"filename": "deck.pdf"})
	req := httptest.NewRequest(http.MethodPost, "/v1/content/r-1/asset-upload-url", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "assets/r-1/deck.pdf", body["asset_key"])
	url, _ := body["upload_url"].(string)
	assert.Contains(t, url, "assets/r-1/deck.pdf")

	// Disallowed file types are rejected before any presigning.
	payload, _ = json.Marshal(gin.H{"filename": "script.sh"})
	req = httptest.NewRequest(http.MethodPost, "/v1/content/r-1/asset-upload-url", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadAssetRequiresFile(t *testing.T) {
	contentDB := newFakeDB("content_id")
	contentDB.put(t, models.ContentItem{ContentID: "r-1", Title: "Deck"})
	r := newTestRouter(NewCourseRepository(newFakeDB("course_id"), "courses"), NewContentRepository(contentDB, "content"), newTestS3(t))

	// A multipart body with no file part fails validation before any
	// storage call.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/content/r-1/asset", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file is required")
}
