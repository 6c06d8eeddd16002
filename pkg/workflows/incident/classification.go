package incident

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
)

// ErrUnknownCategory indicates a category with no classification entry.
var ErrUnknownCategory = errors.New("unknown incident category")

// Incident categories with a legally mandated NCA notification deadline.
const (
	CategoryLossOfContact       = "loss_of_contact"
	CategoryCollisionWarning    = "collision_warning"
	CategoryCyberIncident       = "cyber_incident"
	CategoryDebrisGeneration    = "debris_generation"
	CategoryUnplannedManeuver   = "unplanned_maneuver"
	CategoryGroundSegmentOutage = "ground_segment_outage"
	CategoryHarmfulInterference = "harmful_interference"
	CategoryServiceDegradation  = "service_degradation"
)

// classificationTable maps each incident category to its notification rule.
// Loaded once, immutable at runtime. Deadline hours count from the moment the
// incident was reported, not from triage.
var classificationTable = map[string]models.ClassificationEntry{
	CategoryLossOfContact: {
		Category:                  CategoryLossOfContact,
		DeadlineHours:             24,
		ArticleRef:                "Art. 54(2) EU Space Act",
		Description:               "Complete loss of telemetry or command link to a spacecraft",
		RequiresEUSPANotification: true,
	},
	CategoryCollisionWarning: {
		Category:                  CategoryCollisionWarning,
		DeadlineHours:             24,
		ArticleRef:                "Art. 54(2) EU Space Act",
		Description:               "Conjunction event exceeding the collision probability threshold",
		RequiresEUSPANotification: true,
	},
	CategoryCyberIncident: {
		Category:                  CategoryCyberIncident,
		DeadlineHours:             24,
		ArticleRef:                "Art. 54(3) EU Space Act",
		Description:               "Confirmed or suspected compromise of space or ground assets",
		RequiresEUSPANotification: true,
	},
	CategoryDebrisGeneration: {
		Category:                  CategoryDebrisGeneration,
		DeadlineHours:             48,
		ArticleRef:                "Art. 54(4) EU Space Act",
		Description:               "Fragmentation or release of trackable debris",
		RequiresEUSPANotification: true,
	},
	CategoryUnplannedManeuver: {
		Category:      CategoryUnplannedManeuver,
		DeadlineHours: 48,
		ArticleRef:    "Art. 55(1) EU Space Act",
		Description:   "Orbit change outside the authorized maneuver envelope",
	},
	CategoryGroundSegmentOutage: {
		Category:      CategoryGroundSegmentOutage,
		DeadlineHours: 72,
		ArticleRef:    "Art. 55(2) EU Space Act",
		Description:   "Loss of a primary ground station or control center",
	},
	CategoryHarmfulInterference: {
		Category:      CategoryHarmfulInterference,
		DeadlineHours: 72,
		ArticleRef:    "Art. 55(2) EU Space Act",
		Description:   "Sustained harmful radio-frequency interference",
	},
	CategoryServiceDegradation: {
		Category:      CategoryServiceDegradation,
		DeadlineHours: 72,
		ArticleRef:    "Art. 55(3) EU Space Act",
		Description:   "Degradation of a declared service below committed levels",
	},
}

// Classify returns the classification entry for a category.
func Classify(category string) (models.ClassificationEntry, error) {
	entry, ok := classificationTable[category]
	if !ok {
		return models.ClassificationEntry{}, fmt.Errorf("category %q: %w", category, ErrUnknownCategory)
	}

	return entry, nil
}

// Classifications returns every entry, ordered by category name.
func Classifications() []models.ClassificationEntry {
	entries := make([]models.ClassificationEntry, 0, len(classificationTable))
	for _, entry := range classificationTable {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Category < entries[j].Category
	})

	return entries
}

// DeadlineStatus computes the notification position of an incident at a given
// point in time. It is a pure function over the incident context: HoursRemaining
// goes negative once the deadline passed, and RequiresNotification clears as
// soon as a notification has been recorded.
func DeadlineStatus(incident *models.IncidentContext, now time.Time) (*models.DeadlineStatus, error) {
	entry, err := Classify(incident.Category)
	if err != nil {
		return nil, err
	}

	// The notification clock starts at the report time. Until the facts
	// document carries one there is no deadline to track.
	if incident.ReportedAt.IsZero() {
		return &models.DeadlineStatus{}, nil
	}

	deadline := incident.ReportedAt.Add(time.Duration(entry.DeadlineHours) * time.Hour)
	hoursRemaining := deadline.Sub(now).Hours()

	return &models.DeadlineStatus{
		NCADeadline:          deadline,
		HoursRemaining:       hoursRemaining,
		IsOverdue:            hoursRemaining < 0,
		RequiresNotification: entry.DeadlineHours > 0 && incident.NCANotifiedAt == nil,
	}, nil
}
