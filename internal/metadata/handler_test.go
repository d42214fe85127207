package metadata

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevate-portal/backend/internal/middleware"
	"github.com/elevate-portal/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(env *testEnv) *gin.Engine {
	h := NewHandler(env.svc, nil, nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUser, &models.AuthenticatedUser{UserID: "admin-1", Role: models.RoleAdmin})
	})
	v1 := r.Group("/v1")
	v1.GET("/metadata/migration/scan", h.MigrationScan)
	v1.POST("/metadata/migration/apply", h.MigrationApply)
	v1.GET("/metadata/:groupKey/options", h.List)
	v1.POST("/metadata/:groupKey/options", h.Create)
	v1.PATCH("/metadata/options/:optionId", h.Update)
	v1.GET("/metadata/:groupKey/options/:optionId/usage", h.Usage)
	v1.DELETE("/metadata/:groupKey/options/:optionId", h.Delete)
	v1.POST("/metadata/:groupKey/options/:optionId/merge", h.Merge)
	return r
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, w)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected an error envelope, got %s", w.Body.String())
	code, _ := errObj["code"].(string)
	return code
}

func TestOptionLifecycle(t *testing.T) {
	env := newTestEnv()
	r := newTestRouter(env)

	// Create: slug derived from the label.
	w := do(r, http.MethodPost, "/v1/metadata/topic_tag/options", gin.H{"label": "Onboarding"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)["option"].(map[string]any)
	assert.Equal(t, "onboarding", created["slug"])
	optionID := created["option_id"].(string)
	require.NotEmpty(t, optionID)

	// Substring search finds it.
	w = do(r, http.MethodGet, "/v1/metadata/topic_tag/options?query=onboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	options := decode(t, w)["options"].([]any)
	require.Len(t, options, 1)

	// Archive via PATCH.
	w = do(r, http.MethodPatch, "/v1/metadata/options/"+optionID, gin.H{"status": "archived"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Archived options drop out of the default listing.
	w = do(r, http.MethodGet, "/v1/metadata/topic_tag/options", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["options"])

	// But stay visible with include_archived.
	w = do(r, http.MethodGet, "/v1/metadata/topic_tag/options?include_archived=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["options"], 1)
}

func TestListUnknownGroupKey(t *testing.T) {
	env := newTestEnv()
	r := newTestRouter(env)
	w := do(r, http.MethodGet, "/v1/metadata/nope/options", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_GROUP_KEY", errorCode(t, w))
}

func TestCreateSlugConflictResponse(t *testing.T) {
	env := newTestEnv()
	r := newTestRouter(env)

	w := do(r, http.MethodPost, "/v1/metadata/product/options", gin.H{"label": "Atlas"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodPost, "/v1/metadata/product/options", gin.H{"label": "atlas"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SLUG_CONFLICT", errorCode(t, w))
}

func TestDeleteInUseConflict(t *testing.T) {
	env := newTestEnv()
	env.seedOption(models.GroupProduct, "prod-1", "Atlas")
	env.courses.courses = []models.Course{
		{CourseID: "c-1", ProductID: "prod-1"},
		{CourseID: "c-2", ProductID: "prod-1"},
	}
	r := newTestRouter(env)

	w := do(r, http.MethodDelete, "/v1/metadata/product/options/prod-1", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "OPTION_IN_USE", errorCode(t, w))

	details := decode(t, w)["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, float64(2), details["used_by_courses"])
	assert.Equal(t, float64(0), details["used_by_resources"])

	// force bypasses the gate.
	w = do(r, http.MethodDelete, "/v1/metadata/product/options/prod-1?force=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	option := decode(t, w)["option"].(map[string]any)
	assert.NotEmpty(t, option["deleted_at"])
}

func TestUsageEndpoint(t *testing.T) {
	env := newTestEnv()
	env.seedOption(models.GroupTopicTag, "tag-1", "AI")
	env.courses.courses = []models.Course{
		{CourseID: "c-1", TopicTagIDs: []string{"tag-1"}},
	}
	env.content.items = []models.ContentItem{
		{ContentID: "r-1", TopicTagIDs: []string{"tag-1", "other"}},
	}
	r := newTestRouter(env)

	w := do(r, http.MethodGet, "/v1/metadata/topic_tag/options/tag-1/usage", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["used_by_courses"])
	assert.Equal(t, float64(1), body["used_by_resources"])

	// The group in the path must match the option's group.
	w = do(r, http.MethodGet, "/v1/metadata/product/options/tag-1/usage", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMergeEndpoint(t *testing.T) {
	env := newTestEnv()
	env.seedOption(models.GroupTopicTag, "src", "Old")
	env.seedOption(models.GroupTopicTag, "tgt", "New")
	env.seedOption(models.GroupProduct, "prod", "Atlas")
	env.courses.courses = []models.Course{
		{CourseID: "c-1", TopicTagIDs: []string{"src"}},
	}
	r := newTestRouter(env)

	// Cross-group merge is rejected.
	w := do(r, http.MethodPost, "/v1/metadata/topic_tag/options/src/merge", gin.H{"target_option_id": "prod"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_MERGE", errorCode(t, w))

	w = do(r, http.MethodPost, "/v1/metadata/topic_tag/options/src/merge", gin.H{"target_option_id": "tgt"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(1), body["migrated_courses"])
	assert.Equal(t, float64(0), body["migrated_resources"])
}

func TestMigrationEndpoints(t *testing.T) {
	env := newTestEnv()
	env.courses.courses = []models.Course{
		{CourseID: "c-1", Product: "Atlas"},
	}
	r := newTestRouter(env)

	w := do(r, http.MethodGet, "/v1/metadata/migration/scan?key=product", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	values := decode(t, w)["values"].([]any)
	require.Len(t, values, 1)

	w = do(r, http.MethodGet, "/v1/metadata/migration/scan?key=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/v1/metadata/migration/apply", gin.H{
		"key":     "product",
		"mapping": gin.H{"Atlas": "prod-1"},
		"dry_run": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["dry_run"])
	assert.Equal(t, float64(1), body["courses_matched"])
	assert.Equal(t, float64(0), body["courses_updated"])
	assert.Empty(t, env.courses.courses[0].ProductID)
}

func TestUpdateNullBodyClearsField(t *testing.T) {
	env := newTestEnv()
	o := env.seedOption(models.GroupTopicTag, "tag-1", "AI")
	o.Color = "#00ff00"
	r := newTestRouter(env)

	req := httptest.NewRequest(http.MethodPatch, "/v1/metadata/options/tag-1", bytes.NewReader([]byte(`{"color": null}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	option := decode(t, w)["option"].(map[string]any)
	_, present := option["color"]
	assert.False(t, present, "cleared field is omitted from the response")
}
