package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/persistence"
)

// AuditRepository stores the append-only trail of committed transitions.
type AuditRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewAuditRepository(db *sql.DB, logger *slog.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

// Append records one transition. Rows are never updated or deleted.
func (r *AuditRepository) Append(ctx context.Context, instanceID string, result models.TransitionResult) error {
	insert := `
		INSERT INTO transition_audit
			(instance_id, success, previous_state, current_state, transition_event, error, occurred_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
	`

	_, err := r.db.ExecContext(ctx, insert,
		instanceID, result.Success, result.PreviousState, result.CurrentState,
		result.TransitionEvent, result.Error, result.Timestamp)
	if err != nil {
		return persistence.NewInstanceError("AuditAppend", instanceID, err)
	}

	return nil
}

// ListByInstance returns the trail for one instance in append order.
func (r *AuditRepository) ListByInstance(ctx context.Context, instanceID string) ([]models.TransitionResult, error) {
	query := `
		SELECT
			success
		  , previous_state
		  , current_state
		  , transition_event
		  , COALESCE(error, '')
		  , occurred_at
		FROM transition_audit
		WHERE instance_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	trail := make([]models.TransitionResult, 0)

	for rows.Next() {
		var result models.TransitionResult

		err := rows.Scan(
			&result.Success,
			&result.PreviousState,
			&result.CurrentState,
			&result.TransitionEvent,
			&result.Error,
			&result.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}

		trail = append(trail, result)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating audit trail: %w", err)
	}

	return trail, nil
}
