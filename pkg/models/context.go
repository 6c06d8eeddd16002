// Package models defines the core domain models for regulatory compliance workflows.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Workflow type identifiers. One WorkflowDefinition is registered per type.
const (
	WorkflowTypeAuthorization = "authorization"
	WorkflowTypeIncident      = "incident"
)

// Context carries the current business facts for one workflow instance.
// Facts are computed by an external context provider and handed to the engine
// as a snapshot; the engine never derives them itself. Each workflow type has
// its own concrete context so guard and condition code works on real fields
// instead of a loosely typed map.
type Context interface {
	WorkflowType() string
}

// AuthorizationContext holds document-completeness facts for an authorization
// application moving towards submission to its national competent authority.
type AuthorizationContext struct {
	Pathway    string `json:"pathway"`
	PrimaryNCA string `json:"primary_nca"`

	TotalDocuments         int     `json:"total_documents"`
	ReadyDocuments         int     `json:"ready_documents"`
	MandatoryDocuments     int     `json:"mandatory_documents"`
	MandatoryReady         int     `json:"mandatory_ready"`
	CompletenessPercentage float64 `json:"completeness_percentage"`
	AllMandatoryComplete   bool    `json:"all_mandatory_complete"`
	HasBlockers            bool    `json:"has_blockers"`
}

func (c *AuthorizationContext) WorkflowType() string {
	return WorkflowTypeAuthorization
}

// IncidentContext holds classification and notification facts for a reported
// incident. NCANotifiedAt and EUSPANotifiedAt are stamped by the
// record_nca_notification transition action, never assigned directly.
type IncidentContext struct {
	Category   string    `json:"category"`
	Severity   string    `json:"severity"`
	ReportedAt time.Time `json:"reported_at"`

	RequiresNCANotification bool       `json:"requires_nca_notification"`
	NCADeadlineHours        int        `json:"nca_deadline_hours"`
	NCANotifiedAt           *time.Time `json:"nca_notified_at,omitempty"`
	NCAReference            string     `json:"nca_reference,omitempty"`
	EUSPANotifiedAt         *time.Time `json:"euspa_notified_at,omitempty"`

	HasActiveDeadline bool       `json:"has_active_deadline"`
	DeadlineAt        *time.Time `json:"deadline_at,omitempty"`
}

func (c *IncidentContext) WorkflowType() string {
	return WorkflowTypeIncident
}

// DecodeContext unmarshals a stored context payload into the concrete type for
// the given workflow type. Persistence layers use this when loading instances.
func DecodeContext(workflowType string, payload []byte) (Context, error) {
	switch workflowType {
	case WorkflowTypeAuthorization:
		wctx := &AuthorizationContext{}
		if err := json.Unmarshal(payload, wctx); err != nil {
			return nil, fmt.Errorf("failed to decode authorization context: %w", err)
		}

		return wctx, nil
	case WorkflowTypeIncident:
		wctx := &IncidentContext{}
		if err := json.Unmarshal(payload, wctx); err != nil {
			return nil, fmt.Errorf("failed to decode incident context: %w", err)
		}

		return wctx, nil
	default:
		return nil, fmt.Errorf("unknown workflow type %q", workflowType)
	}
}
