// Package catalog holds the course and content item stores the taxonomy
// service scans for usage accounting, merges and legacy migration, plus the
// read-only catalog endpoints.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/elevate-portal/backend/internal/models"
	"github.com/elevate-portal/backend/pkg/dynamo"
)

// ErrNotFound means the catalog entity does not exist.
var ErrNotFound = errors.New("catalog entity not found")

// CourseRepository persists courses in a DynamoDB table keyed by course_id.
type CourseRepository struct {
	db    dynamo.API
	table string
}

// NewCourseRepository creates a course repository.
func NewCourseRepository(db dynamo.API, table string) *CourseRepository {
	return &CourseRepository{db: db, table: table}
}

// GetByID returns a course by id.
func (r *CourseRepository) GetByID(ctx context.Context, courseID string) (*models.Course, error) {
	out, err := r.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"course_id": &types.AttributeValueMemberS{Value: courseID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var c models.Course
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal course: %w", err)
	}
	return &c, nil
}

// PageCourses returns one scan page of the courses table. The taxonomy
// service drives this through the table's native continuation key until
// exhausted.
func (r *CourseRepository) PageCourses(ctx context.Context, cursor string, limit int32) ([]models.Course, string, error) {
	startKey, err := dynamo.DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	input := &dynamodb.ScanInput{
		TableName:         aws.String(r.table),
		ExclusiveStartKey: startKey,
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}
	out, err := r.db.Scan(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("scan courses: %w", err)
	}
	var courses []models.Course
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &courses); err != nil {
		return nil, "", fmt.Errorf("unmarshal courses: %w", err)
	}
	return courses, dynamo.EncodeCursor(out.LastEvaluatedKey), nil
}

// UpdateCourseFields writes the given fields on a course unconditionally.
// Used by merge to re-point taxonomy references.
func (r *CourseRepository) UpdateCourseFields(ctx context.Context, courseID string, set map[string]any) error {
	expr, names, values, err := dynamo.BuildUpdate(set, nil)
	if err != nil {
		return err
	}
	if expr == "" {
		return nil
	}
	_, err = r.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"course_id": &types.AttributeValueMemberS{Value: courseID},
		},
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String("attribute_exists(course_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrNotFound
		}
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// AssignCourseField writes a canonical taxonomy field only when it is still
// empty (first-write-wins). Returns false without error when the field was
// already populated.
func (r *CourseRepository) AssignCourseField(ctx context.Context, courseID, field, optionID string) (bool, error) {
	_, err := r.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"course_id": &types.AttributeValueMemberS{Value: courseID},
		},
		UpdateExpression: aws.String("SET #f = :v"),
		ExpressionAttributeNames: map[string]string{
			"#f": field,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v":     &types.AttributeValueMemberS{Value: optionID},
			":empty": &types.AttributeValueMemberS{Value: ""},
		},
		ConditionExpression: aws.String("attribute_exists(course_id) AND (attribute_not_exists(#f) OR #f = :empty)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("assign course field: %w", err)
	}
	return true, nil
}

// AppendCourseTagID adds an option id to topic_tag_ids if not already
// present. List fields use read-modify-write because DynamoDB cannot
// conditionally insert into a list in one expression.
func (r *CourseRepository) AppendCourseTagID(ctx context.Context, courseID, optionID string) (bool, error) {
	c, err := r.GetByID(ctx, courseID)
	if err != nil {
		return false, err
	}
	for _, id := range c.TopicTagIDs {
		if id == optionID {
			return false, nil
		}
	}
	tags := append(append([]string{}, c.TopicTagIDs...), optionID)
	if err := r.UpdateCourseFields(ctx, courseID, map[string]any{"topic_tag_ids": tags}); err != nil {
		return false, err
	}
	return true, nil
}
