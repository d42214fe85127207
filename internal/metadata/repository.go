package metadata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/elevate-portal/backend/internal/models"
	"github.com/elevate-portal/backend/pkg/dynamo"
)

// ListParams filters a taxonomy listing.
type ListParams struct {
	Group           models.GroupKey
	Query           string // case-insensitive substring on label/slug
	IncludeArchived bool
	ParentID        string
	Limit           int32
	Cursor          string
}

// Repository persists metadata options in a DynamoDB table keyed by option_id.
type Repository struct {
	db    dynamo.API
	table string
}

// NewRepository creates an option repository.
func NewRepository(db dynamo.API, table string) *Repository {
	return &Repository{db: db, table: table}
}

// GetByID returns an option by id, including archived and soft-deleted rows.
func (r *Repository) GetByID(ctx context.Context, optionID string) (*models.MetadataOption, error) {
	out, err := r.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"option_id": &types.AttributeValueMemberS{Value: optionID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get option: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var o models.MetadataOption
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal option: %w", err)
	}
	return &o, nil
}

// FindBySlug returns the option carrying the slug within the group, or
// ErrNotFound. Soft-deleted rows still occupy their slug so a restore
// cannot collide.
func (r *Repository) FindBySlug(ctx context.Context, group models.GroupKey, slug string) (*models.MetadataOption, error) {
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.db.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(r.table),
			FilterExpression: aws.String("group_key = :gk AND slug = :slug"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":gk":   &types.AttributeValueMemberS{Value: string(group)},
				":slug": &types.AttributeValueMemberS{Value: slug},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan slug: %w", err)
		}
		if len(out.Items) > 0 {
			var o models.MetadataOption
			if err := attributevalue.UnmarshalMap(out.Items[0], &o); err != nil {
				return nil, fmt.Errorf("unmarshal option: %w", err)
			}
			return &o, nil
		}
		if out.LastEvaluatedKey == nil {
			return nil, ErrNotFound
		}
		startKey = out.LastEvaluatedKey
	}
}

// Put inserts a new option. Fails if the option_id already exists.
func (r *Repository) Put(ctx context.Context, o *models.MetadataOption) error {
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return fmt.Errorf("marshal option: %w", err)
	}
	_, err = r.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(option_id)"),
	})
	if err != nil {
		return fmt.Errorf("put option: %w", err)
	}
	return nil
}

// Apply updates an option: set writes the given fields, clear removes the
// named attributes. Returns the full updated row; ErrNotFound when the row
// does not exist.
func (r *Repository) Apply(ctx context.Context, optionID string, set map[string]any, clear []string) (*models.MetadataOption, error) {
	expr, names, values, err := dynamo.BuildUpdate(set, clear)
	if err != nil {
		return nil, err
	}
	if expr == "" {
		return r.GetByID(ctx, optionID)
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"option_id": &types.AttributeValueMemberS{Value: optionID},
		},
		UpdateExpression:         aws.String(expr),
		ExpressionAttributeNames: names,
		ConditionExpression:      aws.String("attribute_exists(option_id)"),
		ReturnValues:             types.ReturnValueAllNew,
	}
	if len(values) > 0 {
		input.ExpressionAttributeValues = values
	}
	out, err := r.db.UpdateItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update option: %w", err)
	}
	var o models.MetadataOption
	if err := attributevalue.UnmarshalMap(out.Attributes, &o); err != nil {
		return nil, fmt.Errorf("unmarshal option: %w", err)
	}
	return &o, nil
}

// Page returns one page of options for a group. The label/slug substring
// filter runs client-side after unmarshaling because DynamoDB contains() is
// case-sensitive; the page limit applies pre-filter, so a filtered page may
// hold fewer than Limit items while more pages remain.
func (r *Repository) Page(ctx context.Context, p ListParams) ([]models.MetadataOption, string, error) {
	startKey, err := dynamo.DecodeCursor(p.Cursor)
	if err != nil {
		return nil, "", err
	}

	filter := "group_key = :gk"
	values := map[string]types.AttributeValue{
		":gk": &types.AttributeValueMemberS{Value: string(p.Group)},
	}
	names := map[string]string{}
	if !p.IncludeArchived {
		filter += " AND attribute_not_exists(deleted_at) AND attribute_not_exists(archived_at) AND (attribute_not_exists(#st) OR #st <> :archived)"
		names["#st"] = "status"
		values[":archived"] = &types.AttributeValueMemberS{Value: models.OptionStatusArchived}
	}
	if p.ParentID != "" {
		filter += " AND parent_id = :pid"
		values[":pid"] = &types.AttributeValueMemberS{Value: p.ParentID}
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(r.table),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeValues: values,
		ExclusiveStartKey:         startKey,
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}
	if p.Limit > 0 {
		input.Limit = aws.Int32(p.Limit)
	}

	out, err := r.db.Scan(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("scan options: %w", err)
	}

	var options []models.MetadataOption
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &options); err != nil {
		return nil, "", fmt.Errorf("unmarshal options: %w", err)
	}
	if q := strings.ToLower(strings.TrimSpace(p.Query)); q != "" {
		filtered := options[:0]
		for _, o := range options {
			if strings.Contains(strings.ToLower(o.Label), q) || strings.Contains(strings.ToLower(o.Slug), q) {
				filtered = append(filtered, o)
			}
		}
		options = filtered
	}
	sort.SliceStable(options, func(i, j int) bool {
		if options[i].SortOrder != options[j].SortOrder {
			return options[i].SortOrder < options[j].SortOrder
		}
		return options[i].Label < options[j].Label
	})
	return options, dynamo.EncodeCursor(out.LastEvaluatedKey), nil
}
