package incident

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
)

func TestClassify_KnownCategories(t *testing.T) {
	tests := []struct {
		category      string
		deadlineHours int
		euspa         bool
	}{
		{CategoryLossOfContact, 24, true},
		{CategoryCollisionWarning, 24, true},
		{CategoryCyberIncident, 24, true},
		{CategoryDebrisGeneration, 48, true},
		{CategoryUnplannedManeuver, 48, false},
		{CategoryGroundSegmentOutage, 72, false},
		{CategoryHarmfulInterference, 72, false},
		{CategoryServiceDegradation, 72, false},
	}

	for _, tc := range tests {
		t.Run(tc.category, func(t *testing.T) {
			entry, err := Classify(tc.category)
			require.NoError(t, err)
			assert.Equal(t, tc.deadlineHours, entry.DeadlineHours)
			assert.Equal(t, tc.euspa, entry.RequiresEUSPANotification)
			assert.NotEmpty(t, entry.ArticleRef)
		})
	}
}

func TestClassify_UnknownCategory(t *testing.T) {
	_, err := Classify("spontaneous_combustion")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestClassifications_SortedAndComplete(t *testing.T) {
	entries := Classifications()

	require.Len(t, entries, 8)

	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].Category, entries[i].Category)
	}
}

func TestDeadlineStatus_HourGranularity(t *testing.T) {
	reportedAt := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	incident := &models.IncidentContext{
		Category:   CategoryLossOfContact,
		ReportedAt: reportedAt,
	}

	// 20 hours in: 4 hours left on a 24 hour deadline.
	status, err := DeadlineStatus(incident, reportedAt.Add(20*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, reportedAt.Add(24*time.Hour), status.NCADeadline)
	assert.InDelta(t, 4.0, status.HoursRemaining, 0.001)
	assert.False(t, status.IsOverdue)
	assert.True(t, status.RequiresNotification)
}

func TestDeadlineStatus_Overdue(t *testing.T) {
	reportedAt := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	incident := &models.IncidentContext{
		Category:   CategoryCyberIncident,
		ReportedAt: reportedAt,
	}

	status, err := DeadlineStatus(incident, reportedAt.Add(30*time.Hour))
	require.NoError(t, err)

	assert.True(t, status.IsOverdue)
	assert.InDelta(t, -6.0, status.HoursRemaining, 0.001)
	assert.True(t, status.RequiresNotification)
}

func TestDeadlineStatus_ClearsAfterNotification(t *testing.T) {
	reportedAt := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	notifiedAt := reportedAt.Add(10 * time.Hour)
	incident := &models.IncidentContext{
		Category:      CategoryDebrisGeneration,
		ReportedAt:    reportedAt,
		NCANotifiedAt: &notifiedAt,
	}

	status, err := DeadlineStatus(incident, reportedAt.Add(100*time.Hour))
	require.NoError(t, err)

	// The deadline passed, but the duty was discharged in time.
	assert.False(t, status.RequiresNotification)
}

func TestDeadlineStatus_ZeroReportTime(t *testing.T) {
	incident := &models.IncidentContext{Category: CategoryCyberIncident}

	status, err := DeadlineStatus(incident, time.Now().UTC())
	require.NoError(t, err)

	// The clock has not started, so nothing is due and nothing is overdue.
	assert.True(t, status.NCADeadline.IsZero())
	assert.False(t, status.IsOverdue)
	assert.False(t, status.RequiresNotification)
}

func TestDeadlineStatus_UnknownCategory(t *testing.T) {
	incident := &models.IncidentContext{Category: "not_a_category"}

	_, err := DeadlineStatus(incident, time.Now().UTC())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}
