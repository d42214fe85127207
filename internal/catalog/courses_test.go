package catalog

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevate-portal/backend/internal/models"
)

// fakeDB backs the repositories with an in-memory table ordered by key, so
// scan pagination behaves like DynamoDB's continuation keys.
type fakeDB struct {
	keyAttr string
	items   map[string]map[string]types.AttributeValue
}

func newFakeDB(keyAttr string) *fakeDB {
	return &fakeDB{keyAttr: keyAttr, items: map[string]map[string]types.AttributeValue{}}
}

func (f *fakeDB) put(t *testing.T, v any) {
	t.Helper()
	item, err := attributevalue.MarshalMap(v)
	require.NoError(t, err)
	key, ok := item[f.keyAttr].(*types.AttributeValueMemberS)
	require.True(t, ok)
	f.items[key.Value] = item
}

func (f *fakeDB) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	key, ok := in.Key[f.keyAttr].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("missing key attribute")
	}
	item, ok := f.items[key.Value]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (f *fakeDB) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	key := in.Item[f.keyAttr].(*types.AttributeValueMemberS)
	f.items[key.Value] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

// UpdateItem reports success without modeling expression effects; tests that
// care about written state assert through the store fakes instead.
func (f *fakeDB) UpdateItem(_ context.Context, _ *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDB) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	keys := make([]string, 0, len(f.items))
	for k := range f.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		last := in.ExclusiveStartKey[f.keyAttr].(*types.AttributeValueMemberS).Value
		for i, k := range keys {
			if k == last {
				start = i + 1
				break
			}
		}
	}
	end := len(keys)
	if in.Limit != nil && start+int(*in.Limit) < end {
		end = start + int(*in.Limit)
	}

	out := &dynamodb.ScanOutput{}
	for _, k := range keys[start:end] {
		out.Items = append(out.Items, f.items[k])
	}
	if end < len(keys) && end > start {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			f.keyAttr: &types.AttributeValueMemberS{Value: keys[end-1]},
		}
	}
	return out, nil
}

func TestCourseGetByID(t *testing.T) {
	db := newFakeDB("course_id")
	db.put(t, models.Course{CourseID: "c-1", Title: "Intro to Atlas"})
	repo := NewCourseRepository(db, "courses")

	course, err := repo.GetByID(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Intro to Atlas", course.Title)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPageCoursesPagination(t *testing.T) {
	db := newFakeDB("course_id")
	db.put(t, models.Course{CourseID: "c-1", Title: "One"})
	db.put(t, models.Course{CourseID: "c-2", Title: "Two"})
	db.put(t, models.Course{CourseID: "c-3", Title: "Three"})
	repo := NewCourseRepository(db, "courses")

	first, cursor, err := repo.PageCourses(context.Background(), "", 2)
	require.NoError(t, err)
	assert.Len(t, first, 2)
	require.NotEmpty(t, cursor)

	second, next, err := repo.PageCourses(context.Background(), cursor, 2)
	require.NoError(t, err)
	assert.Len(t, second, 1)
	assert.Empty(t, next)

	// No overlap across pages.
	seen := map[string]bool{}
	for _, c := range append(first, second...) {
		assert.False(t, seen[c.CourseID])
		seen[c.CourseID] = true
	}
	assert.Len(t, seen, 3)
}

func TestPageCoursesBadCursor(t *testing.T) {
	repo := NewCourseRepository(newFakeDB("course_id"), "courses")
	_, _, err := repo.PageCourses(context.Background(), "%%%garbage", 10)
	assert.Error(t, err)
}

func TestAppendCourseTagID(t *testing.T) {
	db := newFakeDB("course_id")
	db.put(t, models.Course{CourseID: "c-1", TopicTagIDs: []string{"t-1"}})
	repo := NewCourseRepository(db, "courses")

	// An already-present id is a no-op.
	wrote, err := repo.AppendCourseTagID(context.Background(), "c-1", "t-1")
	require.NoError(t, err)
	assert.False(t, wrote)

	wrote, err = repo.AppendCourseTagID(context.Background(), "c-1", "t-2")
	require.NoError(t, err)
	assert.True(t, wrote)

	_, err = repo.AppendCourseTagID(context.Background(), "missing", "t-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContentGetByID(t *testing.T) {
	db := newFakeDB("content_id")
	db.put(t, models.ContentItem{ContentID: "r-1", Title: "Pitch Deck", AssetKey: "assets/r-1/deck.pdf"})
	repo := NewContentRepository(db, "content_items")

	item, err := repo.GetByID(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, "assets/r-1/deck.pdf", item.AssetKey)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
