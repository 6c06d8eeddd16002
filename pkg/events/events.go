// Package events defines event types and structures for workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Kafka topics.
const Topic = "caelex.workflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow lifecycle events.
	InstanceCreatedEvent     EventType = "workflow.instance.created"
	TransitionCommittedEvent EventType = "workflow.transition.committed"
	EvaluationCompletedEvent EventType = "workflow.evaluation.completed"

	// Incident deadline events.
	DeadlineApproachingEvent EventType = "incident.deadline.approaching"
	DeadlineBreachedEvent    EventType = "incident.deadline.breached"
)

type BaseEvent struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	Timestamp    time.Time      `json:"timestamp"`
	InstanceID   string         `json:"instance_id"`
	WorkflowType string         `json:"workflow_type"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type InstanceCreated struct {
	BaseEvent

	InitialState string `json:"initial_state"`
	Version      int    `json:"version"`
}

func (e InstanceCreated) GetType() EventType {
	return InstanceCreatedEvent
}

type TransitionCommitted struct {
	BaseEvent

	Event         string `json:"event"`
	PreviousState string `json:"previous_state"`
	CurrentState  string `json:"current_state"`
	Actor         string `json:"actor,omitempty"`
	Terminal      bool   `json:"terminal"`
}

func (e TransitionCommitted) GetType() EventType {
	return TransitionCommittedEvent
}

type EvaluationCompleted struct {
	BaseEvent

	Transitioned bool     `json:"transitioned"`
	FinalState   string   `json:"final_state"`
	Transitions  int      `json:"transitions"`
	Errors       []string `json:"errors,omitempty"`
}

func (e EvaluationCompleted) GetType() EventType {
	return EvaluationCompletedEvent
}

type DeadlineApproaching struct {
	BaseEvent

	Category       string    `json:"category"`
	DeadlineAt     time.Time `json:"deadline_at"`
	HoursRemaining float64   `json:"hours_remaining"`
}

func (e DeadlineApproaching) GetType() EventType {
	return DeadlineApproachingEvent
}

type DeadlineBreached struct {
	BaseEvent

	Category     string    `json:"category"`
	DeadlineAt   time.Time `json:"deadline_at"`
	HoursOverdue float64   `json:"hours_overdue"`
}

func (e DeadlineBreached) GetType() EventType {
	return DeadlineBreachedEvent
}

func NewBaseEvent(eventType EventType, instanceID, workflowType string) BaseEvent {
	return BaseEvent{
		ID:           uuid.New().String(),
		Type:         eventType,
		Timestamp:    time.Now().UTC(),
		InstanceID:   instanceID,
		WorkflowType: workflowType,
		Metadata:     make(map[string]any),
	}
}
