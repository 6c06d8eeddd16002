package registry

import (
	"context"
	"fmt"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
)

// Condition decides whether an automatic transition fires for the given
// context snapshot.
type Condition func(ctx context.Context, wctx models.Context) (bool, error)

// Guard gates a manual transition in addition to the permission check. Guards
// may perform I/O; the engine awaits them sequentially.
type Guard func(ctx context.Context, wctx models.Context) (bool, error)

// Action is a side-effecting callback run on state entry, exit or during a
// transition. A failing action aborts the whole transition, so actions are
// expected to keep their own side effects idempotent or compensating.
type Action func(ctx context.Context, wctx models.Context) error

// HookEvent is handed to definition-wide hooks around every transition.
type HookEvent struct {
	InstanceID   string
	WorkflowType string
	Event        string
	From         string
	To           string
	Context      models.Context
}

// Hook wraps every transition of a definition (before/after), or receives the
// failure when any callback in a transition errors (on-error).
type Hook func(ctx context.Context, event HookEvent) error

// ErrorHook receives the error that aborted a transition.
type ErrorHook func(ctx context.Context, err error, event HookEvent)

// CallbackRegistry resolves the string callback identifiers referenced by
// workflow definitions to host-language functions, per workflow type. It
// keeps definitions themselves serializable and inspectable while still
// allowing rich guard and action logic.
type CallbackRegistry struct {
	conditions map[string]map[string]Condition
	guards     map[string]map[string]Guard
	actions    map[string]map[string]Action
	hooks      map[string]map[string]Hook
	errorHooks map[string]map[string]ErrorHook
}

func NewCallbackRegistry() *CallbackRegistry {
	return &CallbackRegistry{
		conditions: make(map[string]map[string]Condition),
		guards:     make(map[string]map[string]Guard),
		actions:    make(map[string]map[string]Action),
		hooks:      make(map[string]map[string]Hook),
		errorHooks: make(map[string]map[string]ErrorHook),
	}
}

func (r *CallbackRegistry) RegisterCondition(workflowType, id string, fn Condition) error {
	if _, ok := r.conditions[workflowType]; !ok {
		r.conditions[workflowType] = make(map[string]Condition)
	}

	if _, exists := r.conditions[workflowType][id]; exists {
		return fmt.Errorf("condition %q for %q: %w", id, workflowType, ErrCallbackRedefinition)
	}

	r.conditions[workflowType][id] = fn

	return nil
}

func (r *CallbackRegistry) RegisterGuard(workflowType, id string, fn Guard) error {
	if _, ok := r.guards[workflowType]; !ok {
		r.guards[workflowType] = make(map[string]Guard)
	}

	if _, exists := r.guards[workflowType][id]; exists {
		return fmt.Errorf("guard %q for %q: %w", id, workflowType, ErrCallbackRedefinition)
	}

	r.guards[workflowType][id] = fn

	return nil
}

func (r *CallbackRegistry) RegisterAction(workflowType, id string, fn Action) error {
	if _, ok := r.actions[workflowType]; !ok {
		r.actions[workflowType] = make(map[string]Action)
	}

	if _, exists := r.actions[workflowType][id]; exists {
		return fmt.Errorf("action %q for %q: %w", id, workflowType, ErrCallbackRedefinition)
	}

	r.actions[workflowType][id] = fn

	return nil
}

func (r *CallbackRegistry) RegisterHook(workflowType, id string, fn Hook) error {
	if _, ok := r.hooks[workflowType]; !ok {
		r.hooks[workflowType] = make(map[string]Hook)
	}

	if _, exists := r.hooks[workflowType][id]; exists {
		return fmt.Errorf("hook %q for %q: %w", id, workflowType, ErrCallbackRedefinition)
	}

	r.hooks[workflowType][id] = fn

	return nil
}

func (r *CallbackRegistry) RegisterErrorHook(workflowType, id string, fn ErrorHook) error {
	if _, ok := r.errorHooks[workflowType]; !ok {
		r.errorHooks[workflowType] = make(map[string]ErrorHook)
	}

	if _, exists := r.errorHooks[workflowType][id]; exists {
		return fmt.Errorf("error hook %q for %q: %w", id, workflowType, ErrCallbackRedefinition)
	}

	r.errorHooks[workflowType][id] = fn

	return nil
}

// Condition resolves a condition callback. An empty id resolves to nil.
func (r *CallbackRegistry) Condition(workflowType, id string) (Condition, error) {
	if id == "" {
		return nil, nil
	}

	fn, ok := r.conditions[workflowType][id]
	if !ok {
		return nil, fmt.Errorf("condition %q for %q: %w", id, workflowType, ErrUnknownCallback)
	}

	return fn, nil
}

// Guard resolves a guard callback. An empty id resolves to nil.
func (r *CallbackRegistry) Guard(workflowType, id string) (Guard, error) {
	if id == "" {
		return nil, nil
	}

	fn, ok := r.guards[workflowType][id]
	if !ok {
		return nil, fmt.Errorf("guard %q for %q: %w", id, workflowType, ErrUnknownCallback)
	}

	return fn, nil
}

// Action resolves an action callback. An empty id resolves to nil.
func (r *CallbackRegistry) Action(workflowType, id string) (Action, error) {
	if id == "" {
		return nil, nil
	}

	fn, ok := r.actions[workflowType][id]
	if !ok {
		return nil, fmt.Errorf("action %q for %q: %w", id, workflowType, ErrUnknownCallback)
	}

	return fn, nil
}

// Hook resolves a before/after hook callback. An empty id resolves to nil.
func (r *CallbackRegistry) Hook(workflowType, id string) (Hook, error) {
	if id == "" {
		return nil, nil
	}

	fn, ok := r.hooks[workflowType][id]
	if !ok {
		return nil, fmt.Errorf("hook %q for %q: %w", id, workflowType, ErrUnknownCallback)
	}

	return fn, nil
}

// ErrorHook resolves an on-error hook callback. An empty id resolves to nil.
func (r *CallbackRegistry) ErrorHook(workflowType, id string) (ErrorHook, error) {
	if id == "" {
		return nil, nil
	}

	fn, ok := r.errorHooks[workflowType][id]
	if !ok {
		return nil, fmt.Errorf("error hook %q for %q: %w", id, workflowType, ErrUnknownCallback)
	}

	return fn, nil
}
