package document

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testProvider(t *testing.T) (*Provider, string) {
	t.Helper()

	root := t.TempDir()

	provider, err := NewProvider(root, testLogger())
	require.NoError(t, err)

	return provider, root
}

func writeFacts(t *testing.T, root, workflowType, instanceID, facts string) {
	t.Helper()

	dir := filepath.Join(root, workflowType)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, instanceID+".json"), []byte(facts), 0o644))
}

func authInstance(wctx models.Context) *models.WorkflowInstance {
	return &models.WorkflowInstance{
		ID:           "auth-1",
		WorkflowType: models.WorkflowTypeAuthorization,
		Context:      wctx,
	}
}

func TestLoad_MissingDocumentKeepsPersistedFacts(t *testing.T) {
	provider, _ := testProvider(t)

	wctx, err := provider.Load(context.Background(), authInstance(&models.AuthorizationContext{
		Pathway:        "standard",
		ReadyDocuments: 3,
	}))
	require.NoError(t, err)

	typed, ok := wctx.(*models.AuthorizationContext)
	require.True(t, ok)
	assert.Equal(t, "standard", typed.Pathway)
	assert.Equal(t, 3, typed.ReadyDocuments)
}

func TestLoad_NilPersistedContext(t *testing.T) {
	provider, _ := testProvider(t)

	wctx, err := provider.Load(context.Background(), authInstance(nil))
	require.NoError(t, err)

	typed, ok := wctx.(*models.AuthorizationContext)
	require.True(t, ok)
	assert.Zero(t, typed.TotalDocuments)
}

func TestLoad_OverlaysDocumentAndDerives(t *testing.T) {
	provider, root := testProvider(t)

	writeFacts(t, root, models.WorkflowTypeAuthorization, "auth-1", `{
		"total_documents": 8,
		"ready_documents": 6,
		"mandatory_documents": 4,
		"mandatory_ready": 4
	}`)

	wctx, err := provider.Load(context.Background(), authInstance(&models.AuthorizationContext{
		Pathway: "standard",
	}))
	require.NoError(t, err)

	typed := wctx.(*models.AuthorizationContext)

	// Overlaid facts win, untouched persisted fields survive.
	assert.Equal(t, "standard", typed.Pathway)
	assert.Equal(t, 8, typed.TotalDocuments)
	assert.InDelta(t, 75.0, typed.CompletenessPercentage, 0.001)
	assert.True(t, typed.AllMandatoryComplete)
}

func TestLoad_DerivedFactsNotAcceptedFromDocument(t *testing.T) {
	provider, root := testProvider(t)

	writeFacts(t, root, models.WorkflowTypeAuthorization, "auth-1", `{
		"all_mandatory_complete": true
	}`)

	_, err := provider.Load(context.Background(), authInstance(&models.AuthorizationContext{}))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestLoad_StampedFieldsSurviveOverlay(t *testing.T) {
	provider, root := testProvider(t)

	notifiedAt := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	reportedAt := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	writeFacts(t, root, models.WorkflowTypeIncident, "inc-1", `{
		"category": "cyber_incident",
		"severity": "critical",
		"reported_at": "2026-03-10T08:00:00Z"
	}`)

	instance := &models.WorkflowInstance{
		ID:           "inc-1",
		WorkflowType: models.WorkflowTypeIncident,
		Context: &models.IncidentContext{
			Category:      "cyber_incident",
			ReportedAt:    reportedAt,
			NCANotifiedAt: &notifiedAt,
		},
	}

	wctx, err := provider.Load(context.Background(), instance)
	require.NoError(t, err)

	typed := wctx.(*models.IncidentContext)
	require.NotNil(t, typed.NCANotifiedAt)
	assert.True(t, typed.NCANotifiedAt.Equal(notifiedAt))
	assert.Equal(t, "critical", typed.Severity)
}

func TestLoad_SnapshotDoesNotAliasPersistedContext(t *testing.T) {
	provider, _ := testProvider(t)

	persisted := &models.AuthorizationContext{ReadyDocuments: 1}

	wctx, err := provider.Load(context.Background(), authInstance(persisted))
	require.NoError(t, err)

	typed := wctx.(*models.AuthorizationContext)
	typed.ReadyDocuments = 99

	assert.Equal(t, 1, persisted.ReadyDocuments)
}

func TestLoad_RejectsInvalidSeverity(t *testing.T) {
	provider, root := testProvider(t)

	writeFacts(t, root, models.WorkflowTypeIncident, "inc-1", `{
		"category": "cyber_incident",
		"severity": "catastrophic",
		"reported_at": "2026-03-10T08:00:00Z"
	}`)

	instance := &models.WorkflowInstance{
		ID:           "inc-1",
		WorkflowType: models.WorkflowTypeIncident,
		Context:      &models.IncidentContext{},
	}

	_, err := provider.Load(context.Background(), instance)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestLoad_RejectsMalformedJSON(t *testing.T) {
	provider, root := testProvider(t)

	writeFacts(t, root, models.WorkflowTypeAuthorization, "auth-1", `{not json`)

	_, err := provider.Load(context.Background(), authInstance(&models.AuthorizationContext{}))
	assert.Error(t, err)
}

func TestLoad_UnknownWorkflowType(t *testing.T) {
	provider, root := testProvider(t)

	writeFacts(t, root, "launch_license", "x-1", `{}`)

	instance := &models.WorkflowInstance{ID: "x-1", WorkflowType: "launch_license"}

	_, err := provider.Load(context.Background(), instance)
	assert.Error(t, err)
}
