// Package persistence provides the storage abstraction for workflow
// instances and their audit trail.
package persistence

import (
	"context"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
)

// InstanceRepository stores workflow instances. Save enforces optimistic
// concurrency: the caller passes the revision it loaded, and a mismatch
// fails with ErrRevisionConflict instead of silently dropping the other
// writer's history entries.
type InstanceRepository interface {
	GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error)
	Save(ctx context.Context, instance *models.WorkflowInstance, expectedRevision int64) error
	ListByType(ctx context.Context, workflowType string) ([]*models.WorkflowInstance, error)
	Delete(ctx context.Context, id string) error
}

// AuditRepository receives every committed transition for durable storage.
// The trail is append-only: entries are never edited or removed.
type AuditRepository interface {
	Append(ctx context.Context, instanceID string, result models.TransitionResult) error
	ListByInstance(ctx context.Context, instanceID string) ([]models.TransitionResult, error)
}

type Persistence interface {
	InstanceRepository() InstanceRepository
	AuditRepository() AuditRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
