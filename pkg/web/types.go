// Package web provides HTTP request and response types for the compliance API.
package web

// CreateInstanceRequest represents the request body for creating a workflow
// instance. Version 0 selects the latest registered definition.
type CreateInstanceRequest struct {
	ID           string `json:"id,omitempty"  validate:"omitempty,min=1"`
	WorkflowType string `json:"workflow_type" validate:"required,oneof=authorization incident"`
	Version      int    `json:"version"       validate:"min=0"`
}

// TransitionRequest represents the request body for firing a manual transition.
type TransitionRequest struct {
	Event string `json:"event" validate:"required,min=1"`
	Actor string `json:"actor" validate:"required,min=1"`
}
