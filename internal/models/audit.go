package models

import "time"

// AuditEvent records an admin mutation for the portal audit trail.
type AuditEvent struct {
	EventID    string         `json:"event_id" dynamodbav:"event_id"`
	Actor      string         `json:"actor" dynamodbav:"actor"`
	ActorRole  Role           `json:"actor_role" dynamodbav:"actor_role"`
	Action     string         `json:"action" dynamodbav:"action"`
	EntityType string         `json:"entity_type" dynamodbav:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty" dynamodbav:"entity_id,omitempty"`
	Detail     map[string]any `json:"detail,omitempty" dynamodbav:"detail,omitempty"`
	OccurredAt time.Time      `json:"occurred_at" dynamodbav:"occurred_at"`
}
