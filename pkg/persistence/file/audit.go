package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/persistence"
)

// AuditRepository keeps one append-only JSON trail per instance.
type AuditRepository struct {
	root string
}

func NewAuditRepository(root string) *AuditRepository {
	return &AuditRepository{root: root}
}

func (r *AuditRepository) auditPath(instanceID string) string {
	return filepath.Join(r.root, "audit", instanceID+".json")
}

// Append adds one committed transition to the instance's trail.
func (r *AuditRepository) Append(ctx context.Context, instanceID string, result models.TransitionResult) error {
	if err := os.MkdirAll(filepath.Join(r.root, "audit"), dirPerm); err != nil {
		return persistence.NewInstanceError("AuditAppend", instanceID, err)
	}

	trail, err := r.ListByInstance(ctx, instanceID)
	if err != nil {
		return err
	}

	trail = append(trail, result)

	data, err := json.MarshalIndent(trail, "", "  ")
	if err != nil {
		return persistence.NewInstanceError("AuditAppend", instanceID, err)
	}

	tmp := r.auditPath(instanceID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return persistence.NewInstanceError("AuditAppend", instanceID, err)
	}

	if err := os.Rename(tmp, r.auditPath(instanceID)); err != nil {
		return persistence.NewInstanceError("AuditAppend", instanceID, err)
	}

	return nil
}

// ListByInstance returns the trail in append order. An instance with no
// recorded transitions yields an empty trail.
func (r *AuditRepository) ListByInstance(_ context.Context, instanceID string) ([]models.TransitionResult, error) {
	data, err := os.ReadFile(r.auditPath(instanceID))
	if err != nil {
		if os.IsNotExist(err) {
			return make([]models.TransitionResult, 0), nil
		}

		return nil, persistence.NewInstanceError("AuditList", instanceID, err)
	}

	trail := make([]models.TransitionResult, 0)
	if err := json.Unmarshal(data, &trail); err != nil {
		return nil, persistence.NewInstanceError("AuditList", instanceID, err)
	}

	return trail, nil
}
