// Package protocol defines the contracts between the workflow engine and the
// surrounding layers that feed it.
package protocol

import (
	"context"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
)

// ContextProvider supplies the current, freshly computed business facts for
// one workflow instance. The engine never derives facts itself: document
// completeness, blocker flags and elapsed-time figures all come from here,
// one snapshot per evaluation.
type ContextProvider interface {
	Load(ctx context.Context, instance *models.WorkflowInstance) (models.Context, error)
}

// PermissionChecker resolves the permission set held by an actor.
type PermissionChecker interface {
	PermissionsOf(ctx context.Context, actor string) ([]string, error)
}
