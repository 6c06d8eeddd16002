package registry

import (
	"errors"
	"fmt"
)

// Definition problems are deploy-blocking: every one of these is raised while
// the process is wiring itself up, never while serving a request.
var (
	ErrDefinitionNotFound   = errors.New("workflow definition not found")
	ErrDuplicateDefinition  = errors.New("workflow definition already registered")
	ErrUnknownInitialState  = errors.New("initial state is not part of the definition")
	ErrUnknownTargetState   = errors.New("transition target is not part of the definition")
	ErrDuplicateEvent       = errors.New("duplicate event name on state")
	ErrMissingCondition     = errors.New("automatic transition has no condition")
	ErrTerminalTransitions  = errors.New("terminal state declares outgoing transitions")
	ErrUnknownCallback      = errors.New("callback identifier is not registered")
	ErrCallbackRedefinition = errors.New("callback identifier already registered")
)

// DefinitionError wraps a definition validation failure with enough context
// to point at the offending state or transition.
type DefinitionError struct {
	WorkflowType string
	Detail       string
	Err          error
}

func (e *DefinitionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid definition %q: %s: %v", e.WorkflowType, e.Detail, e.Err)
	}

	return fmt.Sprintf("invalid definition %q: %v", e.WorkflowType, e.Err)
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}

func (e *DefinitionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsDefinitionError reports whether err originated from definition
// registration or lookup.
func IsDefinitionError(err error) bool {
	var defErr *DefinitionError

	return errors.As(err, &defErr)
}

func newDefinitionError(workflowType, detail string, err error) *DefinitionError {
	return &DefinitionError{
		WorkflowType: workflowType,
		Detail:       detail,
		Err:          err,
	}
}
