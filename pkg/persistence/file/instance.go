package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/persistence"
)

const dirPerm = 0o755

// InstanceRepository stores one JSON file per workflow instance.
type InstanceRepository struct {
	root string
}

func NewInstanceRepository(root string) *InstanceRepository {
	return &InstanceRepository{root: root}
}

func (r *InstanceRepository) instancesDir() string {
	return filepath.Join(r.root, "instances")
}

func (r *InstanceRepository) instancePath(id string) string {
	return filepath.Join(r.instancesDir(), id+".json")
}

// GetByID loads one instance, decoding its context by workflow type.
func (r *InstanceRepository) GetByID(_ context.Context, id string) (*models.WorkflowInstance, error) {
	data, err := os.ReadFile(r.instancePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewInstanceError("GetByID", id, persistence.ErrInstanceNotFound)
		}

		return nil, persistence.NewInstanceError("GetByID", id, err)
	}

	instance := &models.WorkflowInstance{}
	if err := json.Unmarshal(data, instance); err != nil {
		return nil, persistence.NewInstanceError("GetByID", id, err)
	}

	return instance, nil
}

// Save writes the instance after checking the expected revision against the
// stored one; new instances must be saved with revision 0. The stored
// revision is bumped on every successful save.
func (r *InstanceRepository) Save(ctx context.Context, instance *models.WorkflowInstance, expectedRevision int64) error {
	if err := os.MkdirAll(r.instancesDir(), dirPerm); err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	stored, err := r.GetByID(ctx, instance.ID)

	switch {
	case err == nil:
		if expectedRevision == 0 {
			return persistence.NewInstanceError("Save", instance.ID, persistence.ErrInstanceAlreadyExists)
		}

		if stored.Revision != expectedRevision {
			return persistence.NewInstanceError("Save", instance.ID,
				fmt.Errorf("expected revision %d, stored %d: %w",
					expectedRevision, stored.Revision, persistence.ErrRevisionConflict))
		}
	case persistence.IsInstanceNotFound(err):
		if expectedRevision != 0 {
			return persistence.NewInstanceError("Save", instance.ID,
				fmt.Errorf("expected revision %d for new instance: %w",
					expectedRevision, persistence.ErrRevisionConflict))
		}
	default:
		return err
	}

	instance.Revision = expectedRevision + 1

	data, err := json.MarshalIndent(instance, "", "  ")
	if err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	// Write through a temp file so a crashed save never leaves a truncated
	// instance behind.
	tmp := r.instancePath(instance.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	if err := os.Rename(tmp, r.instancePath(instance.ID)); err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	return nil
}

// ListByType returns every stored instance of one workflow type.
func (r *InstanceRepository) ListByType(ctx context.Context, workflowType string) ([]*models.WorkflowInstance, error) {
	root := os.DirFS(r.instancesDir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list instance files: %w", err)
	}

	instances := make([]*models.WorkflowInstance, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := file[:len(file)-len(".json")]

		instance, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if instance.WorkflowType == workflowType {
			instances = append(instances, instance)
		}
	}

	return instances, nil
}

// Delete removes the stored instance. Missing instances are not an error.
func (r *InstanceRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(r.instancePath(id))
	if err != nil && !os.IsNotExist(err) {
		return persistence.NewInstanceError("Delete", id, err)
	}

	return nil
}
