package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevate-portal/backend/internal/models"
)

func TestParseLegacyKey(t *testing.T) {
	for _, s := range []string{"product", "product_suite", "topic_tags"} {
		key, ok := ParseLegacyKey(s)
		assert.True(t, ok, s)
		assert.Equal(t, LegacyKey(s), key)
	}
	_, ok := ParseLegacyKey("badge")
	assert.False(t, ok)
}

func TestScanLegacyBucketsValues(t *testing.T) {
	env := newTestEnv()
	env.courses.courses = []models.Course{
		{CourseID: "c-1", Product: "Atlas"},
		{CourseID: "c-2", Product: "Atlas"},
		{CourseID: "c-3", Product: "  Beacon  "},
		{CourseID: "c-4"},
	}
	env.content.items = []models.ContentItem{
		{ContentID: "r-1", Product: "Atlas"},
	}

	values, err := env.svc.ScanLegacy(context.Background(), LegacyProduct)
	require.NoError(t, err)
	require.Len(t, values, 2)
	// Sorted by value, whitespace trimmed.
	assert.Equal(t, LegacyValueCount{Value: "Atlas", Courses: 2, Resources: 1}, values[0])
	assert.Equal(t, LegacyValueCount{Value: "Beacon", Courses: 1, Resources: 0}, values[1])
}

func TestScanLegacySuiteFallsBackToConcept(t *testing.T) {
	env := newTestEnv()
	env.courses.courses = []models.Course{
		{CourseID: "c-1", LegacyProductSuite: "Observability"},
		{CourseID: "c-2", LegacyProductConcept: "Observability"},
		{CourseID: "c-3", LegacyProductSuite: "Security", LegacyProductConcept: "ignored"},
	}

	values, err := env.svc.ScanLegacy(context.Background(), LegacyProductSuite)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, LegacyValueCount{Value: "Observability", Courses: 2}, values[0])
	assert.Equal(t, LegacyValueCount{Value: "Security", Courses: 1}, values[1])
}

func TestScanLegacyTagsPreferTopicTags(t *testing.T) {
	env := newTestEnv()
	env.content.items = []models.ContentItem{
		{ContentID: "r-1", TopicTags: []string{"ai"}, Tags: []string{"shadowed"}},
		{ContentID: "r-2", Tags: []string{"ml"}},
	}

	values, err := env.svc.ScanLegacy(context.Background(), LegacyTopicTags)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "ai", values[0].Value)
	assert.Equal(t, "ml", values[1].Value)
}

func TestApplyLegacyScalarFirstWriteWins(t *testing.T) {
	env := newTestEnv()
	env.courses.courses = []models.Course{
		{CourseID: "c-1", Product: "Atlas"},
		{CourseID: "c-2", Product: "Atlas", ProductID: "already-set"},
		{CourseID: "c-3", Product: "Unmapped"},
	}
	env.content.items = []models.ContentItem{
		{ContentID: "r-1", Product: "Atlas"},
	}
	mapping := map[string]string{"Atlas": "prod-1"}

	result, err := env.svc.ApplyLegacy(context.Background(), LegacyProduct, mapping, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CoursesMatched)
	assert.Equal(t, 1, result.CoursesUpdated)
	assert.Equal(t, 1, result.ResourcesMatched)
	assert.Equal(t, 1, result.ResourcesUpdated)

	assert.Equal(t, "prod-1", env.courses.courses[0].ProductID)
	assert.Equal(t, "already-set", env.courses.courses[1].ProductID, "populated canonical field never overwritten")
	assert.Empty(t, env.courses.courses[2].ProductID)
	assert.Equal(t, "prod-1", env.content.items[0].ProductID)

	// Re-running the same mapping is a no-op.
	again, err := env.svc.ApplyLegacy(context.Background(), LegacyProduct, mapping, false)
	require.NoError(t, err)
	assert.Zero(t, again.CoursesMatched)
	assert.Zero(t, again.CoursesUpdated)
	assert.Zero(t, again.ResourcesMatched)
	assert.Zero(t, again.ResourcesUpdated)
}

func TestApplyLegacyDryRunCountsOnly(t *testing.T) {
	env := newTestEnv()
	env.courses.courses = []models.Course{
		{CourseID: "c-1", Product: "Atlas"},
	}
	mapping := map[string]string{"Atlas": "prod-1"}

	result, err := env.svc.ApplyLegacy(context.Background(), LegacyProduct, mapping, true)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.CoursesMatched)
	assert.Zero(t, result.CoursesUpdated)
	assert.Empty(t, env.courses.courses[0].ProductID, "dry run writes nothing")
}

func TestApplyLegacyTagList(t *testing.T) {
	env := newTestEnv()
	env.courses.courses = []models.Course{
		{CourseID: "c-1", TopicTags: []string{"ai", "ml"}, TopicTagIDs: []string{"t-ai"}},
	}
	env.content.items = []models.ContentItem{
		{ContentID: "r-1", Tags: []string{"ai"}},
	}
	mapping := map[string]string{"ai": "t-ai", "ml": "t-ml"}

	result, err := env.svc.ApplyLegacy(context.Background(), LegacyTopicTags, mapping, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CoursesUpdated)
	assert.Equal(t, 1, result.ResourcesUpdated)

	// Only the missing mapped id is appended; t-ai was already present.
	assert.Equal(t, []string{"t-ai", "t-ml"}, env.courses.courses[0].TopicTagIDs)
	assert.Equal(t, []string{"t-ai"}, env.content.items[0].TopicTagIDs)

	again, err := env.svc.ApplyLegacy(context.Background(), LegacyTopicTags, mapping, false)
	require.NoError(t, err)
	assert.Zero(t, again.CoursesMatched)
	assert.Zero(t, again.ResourcesMatched)
}
