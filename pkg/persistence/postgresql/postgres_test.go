package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/persistence"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"transition_audit", "workflow_instances", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("caelex_test"),
			postgres.WithUsername("caelex"),
			postgres.WithPassword("caelex"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	for _, table := range []string{"workflow_instances", "transition_audit", "schema_migrations"} {
		var exists bool

		err = db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)",
			table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "table %s should exist", table)
	}
}

func TestInstanceRepository_Lifecycle(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.InstanceRepository()

	reportedAt := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	now := time.Now().UTC().Truncate(time.Microsecond)
	instance := &models.WorkflowInstance{
		ID:           "inc-pg-1",
		WorkflowType: models.WorkflowTypeIncident,
		Version:      1,
		CurrentState: "reported",
		Context: &models.IncidentContext{
			Category:   "loss_of_contact",
			Severity:   "high",
			ReportedAt: reportedAt,
		},
		History:   make([]models.TransitionResult, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}

	require.NoError(t, repo.Save(ctx, instance, 0))
	assert.Equal(t, int64(1), instance.Revision)

	loaded, err := repo.GetByID(ctx, "inc-pg-1")
	require.NoError(t, err)
	assert.Equal(t, "reported", loaded.CurrentState)
	assert.Equal(t, int64(1), loaded.Revision)

	typed, ok := loaded.Context.(*models.IncidentContext)
	require.True(t, ok)
	assert.Equal(t, "loss_of_contact", typed.Category)
	assert.True(t, typed.ReportedAt.Equal(reportedAt))

	// Update with the loaded revision.
	loaded.CurrentState = "triaged"
	require.NoError(t, repo.Save(ctx, loaded, 1))

	// A stale writer loses.
	err = repo.Save(ctx, instance, 1)
	require.Error(t, err)
	assert.True(t, persistence.IsRevisionConflict(err))

	// A second create with the same id is a duplicate, not a conflict.
	err = repo.Save(ctx, instance, 0)
	require.Error(t, err)
	assert.True(t, persistence.IsInstanceAlreadyExists(err))

	require.NoError(t, repo.Delete(ctx, "inc-pg-1"))

	_, err = repo.GetByID(ctx, "inc-pg-1")
	assert.True(t, persistence.IsInstanceNotFound(err))
}

func TestInstanceRepository_ListByType(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.InstanceRepository()

	now := time.Now().UTC()

	for _, tc := range []struct {
		id           string
		workflowType string
		wctx         models.Context
	}{
		{"auth-pg-1", models.WorkflowTypeAuthorization, &models.AuthorizationContext{Pathway: "standard"}},
		{"inc-pg-2", models.WorkflowTypeIncident, &models.IncidentContext{Category: "cyber_incident"}},
		{"inc-pg-3", models.WorkflowTypeIncident, &models.IncidentContext{Category: "debris_generation"}},
	} {
		instance := &models.WorkflowInstance{
			ID:           tc.id,
			WorkflowType: tc.workflowType,
			Version:      1,
			CurrentState: "reported",
			Context:      tc.wctx,
			History:      make([]models.TransitionResult, 0),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		require.NoError(t, repo.Save(ctx, instance, 0))
	}

	incidents, err := repo.ListByType(ctx, models.WorkflowTypeIncident)
	require.NoError(t, err)
	assert.Len(t, incidents, 2)

	authorizations, err := repo.ListByType(ctx, models.WorkflowTypeAuthorization)
	require.NoError(t, err)
	require.Len(t, authorizations, 1)
	assert.Equal(t, "auth-pg-1", authorizations[0].ID)
}

func TestAuditRepository_AppendAndList(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.AuditRepository()

	first := models.TransitionResult{
		Success:         true,
		PreviousState:   "reported",
		CurrentState:    "triaged",
		TransitionEvent: "severity_assigned",
		Timestamp:       time.Now().UTC(),
	}
	second := models.TransitionResult{
		Success:         false,
		PreviousState:   "triaged",
		CurrentState:    "triaged",
		TransitionEvent: "close",
		Error:           "guard rejected transition",
		Timestamp:       time.Now().UTC(),
	}

	require.NoError(t, repo.Append(ctx, "inc-pg-4", first))
	require.NoError(t, repo.Append(ctx, "inc-pg-4", second))

	trail, err := repo.ListByInstance(ctx, "inc-pg-4")
	require.NoError(t, err)

	require.Len(t, trail, 2)
	assert.Equal(t, "severity_assigned", trail[0].TransitionEvent)
	assert.True(t, trail[0].Success)
	assert.Equal(t, "guard rejected transition", trail[1].Error)

	other, err := repo.ListByInstance(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	require.NoError(t, p.HealthCheck(ctx))
}
