// Package audit persists the portal audit trail written by the worker.
package audit

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/elevate-portal/backend/internal/models"
	dyn "github.com/elevate-portal/backend/pkg/dynamo"
)

// Repository persists audit events in a DynamoDB table keyed by event_id.
type Repository struct {
	db    dyn.API
	table string
}

// NewRepository creates an audit repository.
func NewRepository(db dyn.API, table string) *Repository {
	return &Repository{db: db, table: table}
}

// PutEvent writes one audit event. Idempotent per event id, so a retried
// job never duplicates a row.
func (r *Repository) PutEvent(ctx context.Context, e *models.AuditEvent) error {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	_, err = r.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put audit event: %w", err)
	}
	return nil
}
