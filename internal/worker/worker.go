package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/elevate-portal/backend/internal/audit"
	"github.com/elevate-portal/backend/internal/models"
	"github.com/elevate-portal/backend/pkg/queue"
)

// AuditProcessor drains audit-event jobs and persists them to the audit table.
type AuditProcessor struct {
	repo   *audit.Repository
	queue  *queue.Queue
	logger *zap.Logger
}

// NewAuditProcessor creates an audit-event processor.
func NewAuditProcessor(repo *audit.Repository, q *queue.Queue, logger *zap.Logger) *AuditProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditProcessor{repo: repo, queue: q, logger: logger}
}

// Process executes one audit-event job.
func (p *AuditProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeAuditEvent {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.AuditEventPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	event := &models.AuditEvent{
		EventID:    job.ID,
		Actor:      payload.Actor,
		ActorRole:  payload.ActorRole,
		Action:     payload.Action,
		EntityType: payload.EntityType,
		EntityID:   payload.EntityID,
		Detail:     payload.Detail,
		OccurredAt: payload.OccurredAt,
	}
	if err := p.repo.PutEvent(ctx, event); err != nil {
		return fmt.Errorf("persist audit event: %w", err)
	}
	p.logger.Debug("audit event persisted", zap.String("event_id", event.EventID), zap.String("action", event.Action))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *AuditProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("audit worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
