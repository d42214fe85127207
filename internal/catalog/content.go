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

// ContentRepository persists content items in a DynamoDB table keyed by content_id.
type ContentRepository struct {
	db    dynamo.API
	table string
}

// NewContentRepository creates a content repository.
func NewContentRepository(db dynamo.API, table string) *ContentRepository {
	return &ContentRepository{db: db, table: table}
}

// GetByID returns a content item by id.
func (r *ContentRepository) GetByID(ctx context.Context, contentID string) (*models.ContentItem, error) {
	out, err := r.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"content_id": &types.AttributeValueMemberS{Value: contentID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get content item: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var ci models.ContentItem
	if err := attributevalue.UnmarshalMap(out.Item, &ci); err != nil {
		return nil, fmt.Errorf("unmarshal content item: %w", err)
	}
	return &ci, nil
}

// PageContent returns one scan page of the content table.
func (r *ContentRepository) PageContent(ctx context.Context, cursor string, limit int32) ([]models.ContentItem, string, error) {
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
		return nil, "", fmt.Errorf("scan content: %w", err)
	}
	var items []models.ContentItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, "", fmt.Errorf("unmarshal content: %w", err)
	}
	return items, dynamo.EncodeCursor(out.LastEvaluatedKey), nil
}

// UpdateContentFields writes the given fields on a content item unconditionally.
func (r *ContentRepository) UpdateContentFields(ctx context.Context, contentID string, set map[string]any) error {
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
			"content_id": &types.AttributeValueMemberS{Value: contentID},
		},
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String("attribute_exists(content_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrNotFound
		}
		return fmt.Errorf("update content item: %w", err)
	}
	return nil
}

// AssignContentField writes a canonical taxonomy field only when it is
// still empty (first-write-wins). Returns false without error when the
// field was already populated.
func (r *ContentRepository) AssignContentField(ctx context.Context, contentID, field, optionID string) (bool, error) {
	_, err := r.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"content_id": &types.AttributeValueMemberS{Value: contentID},
		},
		UpdateExpression: aws.String("SET #f = :v"),
		ExpressionAttributeNames: map[string]string{
			"#f": field,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v":     &types.AttributeValueMemberS{Value: optionID},
			":empty": &types.AttributeValueMemberS{Value: ""},
		},
		ConditionExpression: aws.String("attribute_exists(content_id) AND (attribute_not_exists(#f) OR #f = :empty)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("assign content field: %w", err)
	}
	return true, nil
}

// AppendContentTagID adds an option id to topic_tag_ids if not already present.
func (r *ContentRepository) AppendContentTagID(ctx context.Context, contentID, optionID string) (bool, error) {
	ci, err := r.GetByID(ctx, contentID)
	if err != nil {
		return false, err
	}
	for _, id := range ci.TopicTagIDs {
		if id == optionID {
			return false, nil
		}
	}
	tags := append(append([]string{}, ci.TopicTagIDs...), optionID)
	if err := r.UpdateContentFields(ctx, contentID, map[string]any{"topic_tag_ids": tags}); err != nil {
		return false, err
	}
	return true, nil
}
