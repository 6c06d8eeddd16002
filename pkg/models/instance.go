package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TransitionResult records one committed (or attempted) transition. It is
// immutable once created; history entries are never edited or removed.
type TransitionResult struct {
	Success         bool      `json:"success"`
	PreviousState   string    `json:"previous_state"`
	CurrentState    string    `json:"current_state"`
	TransitionEvent string    `json:"transition_event"`
	Error           string    `json:"error,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// EvaluationResult is returned by a single automatic-evaluation pass.
// Transitions committed before a loop-safety error stay committed; the error
// is reported here rather than rolled back.
type EvaluationResult struct {
	Transitioned bool               `json:"transitioned"`
	Transitions  []TransitionResult `json:"transitions"`
	FinalState   string             `json:"final_state"`
	Errors       []string           `json:"errors,omitempty"`
}

// AvailableTransition describes one transition reachable from the current
// state, with its condition (auto) or guard (manual) evaluated against the
// current context snapshot.
type AvailableTransition struct {
	Event        string `json:"event"`
	To           string `json:"to"`
	Auto         bool   `json:"auto"`
	ConditionMet bool   `json:"condition_met"`
}

// WorkflowInstance is one running workflow. It is mutated exclusively through
// the engine's Evaluate and Transition operations; the surrounding layers
// only load, persist and inspect it.
type WorkflowInstance struct {
	ID           string             `json:"id"`
	WorkflowType string             `json:"workflow_type"`
	Version      int                `json:"version"`
	CurrentState string             `json:"current_state"`
	Context      Context            `json:"context"`
	History      []TransitionResult `json:"history"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`

	// Revision is the optimistic-concurrency token checked on save. The
	// engine never touches it.
	Revision int64 `json:"revision"`
}

// NewWorkflowInstance creates an instance positioned at the definition's
// initial state with empty history.
func NewWorkflowInstance(id string, def *WorkflowDefinition, wctx Context) *WorkflowInstance {
	now := time.Now().UTC()

	return &WorkflowInstance{
		ID:           id,
		WorkflowType: def.ID,
		Version:      def.Version,
		CurrentState: def.InitialState,
		Context:      wctx,
		History:      make([]TransitionResult, 0),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// LastTransition returns the most recent history entry, or nil when the
// instance has never transitioned.
func (i *WorkflowInstance) LastTransition() *TransitionResult {
	if len(i.History) == 0 {
		return nil
	}

	return &i.History[len(i.History)-1]
}

// instanceJSON mirrors WorkflowInstance with the context held as raw JSON so
// the typed context can be decoded by workflow type.
type instanceJSON struct {
	ID           string             `json:"id"`
	WorkflowType string             `json:"workflow_type"`
	Version      int                `json:"version"`
	CurrentState string             `json:"current_state"`
	Context      json.RawMessage    `json:"context"`
	History      []TransitionResult `json:"history"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	Revision     int64              `json:"revision"`
}

func (i *WorkflowInstance) UnmarshalJSON(data []byte) error {
	var raw instanceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode workflow instance: %w", err)
	}

	var wctx Context

	if len(raw.Context) > 0 {
		decoded, err := DecodeContext(raw.WorkflowType, raw.Context)
		if err != nil {
			return err
		}

		wctx = decoded
	}

	i.ID = raw.ID
	i.WorkflowType = raw.WorkflowType
	i.Version = raw.Version
	i.CurrentState = raw.CurrentState
	i.Context = wctx
	i.History = raw.History
	i.CreatedAt = raw.CreatedAt
	i.UpdatedAt = raw.UpdatedAt
	i.Revision = raw.Revision

	return nil
}
