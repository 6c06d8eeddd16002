package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/persistence"
)

// InstanceRepository handles workflow instance database operations.
type InstanceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewInstanceRepository(db *sql.DB, logger *slog.Logger) *InstanceRepository {
	return &InstanceRepository{db: db, logger: logger}
}

const instanceColumns = `
	id
  , workflow_type
  , version
  , current_state
  , context
  , history
  , created_at
  , updated_at
  , revision
`

// GetByID returns one instance, decoding its typed context by workflow type.
func (r *InstanceRepository) GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM workflow_instances WHERE id = $1`

	instance, err := r.scanInstance(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewInstanceError("GetByID", id, persistence.ErrInstanceNotFound)
		}

		return nil, persistence.NewInstanceError("GetByID", id, err)
	}

	return instance, nil
}

// Save upserts the instance, enforcing the expected revision. New instances
// are saved with expected revision 0; a revision mismatch means another
// writer committed first and the caller must re-read.
func (r *InstanceRepository) Save(ctx context.Context, instance *models.WorkflowInstance, expectedRevision int64) error {
	contextJSON, err := json.Marshal(instance.Context)
	if err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	historyJSON, err := json.Marshal(instance.History)
	if err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	newRevision := expectedRevision + 1

	if expectedRevision == 0 {
		insert := `
			INSERT INTO workflow_instances
				(id, workflow_type, version, current_state, context, history, created_at, updated_at, revision)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING
		`

		result, err := r.db.ExecContext(ctx, insert,
			instance.ID, instance.WorkflowType, instance.Version, instance.CurrentState,
			contextJSON, historyJSON, instance.CreatedAt, instance.UpdatedAt, newRevision)
		if err != nil {
			return persistence.NewInstanceError("Save", instance.ID, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return persistence.NewInstanceError("Save", instance.ID, err)
		}

		if affected == 0 {
			return persistence.NewInstanceError("Save", instance.ID, persistence.ErrInstanceAlreadyExists)
		}

		instance.Revision = newRevision

		return nil
	}

	update := `
		UPDATE workflow_instances
		SET current_state = $1
		  , context = $2
		  , history = $3
		  , updated_at = $4
		  , revision = $5
		WHERE id = $6 AND revision = $7
	`

	result, err := r.db.ExecContext(ctx, update,
		instance.CurrentState, contextJSON, historyJSON, instance.UpdatedAt,
		newRevision, instance.ID, expectedRevision)
	if err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	if affected == 0 {
		return persistence.NewInstanceError("Save", instance.ID,
			fmt.Errorf("expected revision %d: %w", expectedRevision, persistence.ErrRevisionConflict))
	}

	instance.Revision = newRevision

	return nil
}

// ListByType returns every instance of one workflow type, oldest first.
func (r *InstanceRepository) ListByType(ctx context.Context, workflowType string) ([]*models.WorkflowInstance, error) {
	query := `SELECT ` + instanceColumns + `
		FROM workflow_instances
		WHERE workflow_type = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, workflowType)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	instances := make([]*models.WorkflowInstance, 0)

	for rows.Next() {
		instance, err := r.scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}

		instances = append(instances, instance)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating instances: %w", err)
	}

	return instances, nil
}

// Delete removes an instance. Missing instances are not an error.
func (r *InstanceRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM workflow_instances WHERE id = $1", id)
	if err != nil {
		return persistence.NewInstanceError("Delete", id, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *InstanceRepository) scanInstance(row rowScanner) (*models.WorkflowInstance, error) {
	var (
		instance    models.WorkflowInstance
		contextJSON []byte
		historyJSON []byte
	)

	err := row.Scan(
		&instance.ID,
		&instance.WorkflowType,
		&instance.Version,
		&instance.CurrentState,
		&contextJSON,
		&historyJSON,
		&instance.CreatedAt,
		&instance.UpdatedAt,
		&instance.Revision,
	)
	if err != nil {
		return nil, err
	}

	wctx, err := models.DecodeContext(instance.WorkflowType, contextJSON)
	if err != nil {
		return nil, err
	}

	instance.Context = wctx

	if err := json.Unmarshal(historyJSON, &instance.History); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}

	return &instance, nil
}
