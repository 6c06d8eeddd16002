// Package engine provides standardized error types for workflow evaluation.
package engine

import (
	"errors"
	"fmt"
)

// Expected, recoverable conditions reported to callers (4xx class in the API
// layer). Neither mutates the instance.
var (
	// ErrUnknownTransition indicates the event is not a manual transition
	// defined on the instance's current state.
	ErrUnknownTransition = errors.New("transition not defined on current state")

	// ErrGuardRejected covers both permission denial and logical guard
	// denial. Callers see them identically: not permitted right now.
	ErrGuardRejected = errors.New("transition not permitted")
)

// Loop-safety conditions raised during automatic evaluation. They indicate a
// buggy definition and surface through EvaluationResult.Errors; transitions
// committed earlier in the same pass are kept.
var (
	ErrCycleDetected              = errors.New("cycle detected during automatic evaluation")
	ErrMaxAutoTransitionsExceeded = errors.New("automatic transition limit exceeded")
)

// HookError reports a callback failure during transition execution. The
// triggering transition is fully aborted: the current state is restored and
// no history entry is appended. Side effects already performed by earlier
// callbacks in the same call are the callbacks' own responsibility.
type HookError struct {
	Stage string // on_exit, before_transition, on_transition, on_enter, after_transition
	Event string
	State string
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s callback failed for event %q in state %q: %v", e.Stage, e.Event, e.State, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// IsUnknownTransition reports whether err means the event is not valid from
// the current state.
func IsUnknownTransition(err error) bool {
	return errors.Is(err, ErrUnknownTransition)
}

// IsGuardRejected reports whether err means the caller is not permitted to
// fire the transition right now.
func IsGuardRejected(err error) bool {
	return errors.Is(err, ErrGuardRejected)
}

// IsHookError reports whether err was raised by a failing callback.
func IsHookError(err error) bool {
	var hookErr *HookError

	return errors.As(err, &hookErr)
}
