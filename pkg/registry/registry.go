// Package registry holds the immutable workflow definitions and the callback
// registry resolving their string-referenced behavior. The registry is built
// once at process start, injected into the engine and handlers, and read-only
// afterwards; a malformed graph fails here, never at request time.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
)

type Registry struct {
	logger      *slog.Logger
	callbacks   *CallbackRegistry
	definitions map[string]map[int]*models.WorkflowDefinition
	latest      map[string]int
}

func NewRegistry(logger *slog.Logger, callbacks *CallbackRegistry) *Registry {
	return &Registry{
		logger:      logger,
		callbacks:   callbacks,
		definitions: make(map[string]map[int]*models.WorkflowDefinition),
		latest:      make(map[string]int),
	}
}

// Callbacks exposes the callback registry the definitions were validated
// against.
func (r *Registry) Callbacks() *CallbackRegistry {
	return r.callbacks
}

// Register validates the definition invariants and stores the definition.
// Violations return a DefinitionError; callers treat that as fatal.
func (r *Registry) Register(def *models.WorkflowDefinition) error {
	if err := r.validate(def); err != nil {
		return err
	}

	if _, exists := r.definitions[def.ID][def.Version]; exists {
		return newDefinitionError(def.ID, fmt.Sprintf("version %d", def.Version), ErrDuplicateDefinition)
	}

	if _, ok := r.definitions[def.ID]; !ok {
		r.definitions[def.ID] = make(map[int]*models.WorkflowDefinition)
	}

	r.definitions[def.ID][def.Version] = def

	if def.Version > r.latest[def.ID] {
		r.latest[def.ID] = def.Version
	}

	r.logger.Info("Registered workflow definition",
		"workflow_type", def.ID,
		"version", def.Version,
		"states", len(def.States),
	)

	return nil
}

// Definition returns the immutable definition for a workflow type and
// version.
func (r *Registry) Definition(workflowType string, version int) (*models.WorkflowDefinition, error) {
	versions, ok := r.definitions[workflowType]
	if !ok {
		return nil, newDefinitionError(workflowType, "", ErrDefinitionNotFound)
	}

	def, ok := versions[version]
	if !ok {
		return nil, newDefinitionError(workflowType, fmt.Sprintf("version %d", version), ErrDefinitionNotFound)
	}

	return def, nil
}

// Latest returns the highest registered version for a workflow type.
func (r *Registry) Latest(workflowType string) (*models.WorkflowDefinition, error) {
	version, ok := r.latest[workflowType]
	if !ok {
		return nil, newDefinitionError(workflowType, "", ErrDefinitionNotFound)
	}

	return r.definitions[workflowType][version], nil
}

// WorkflowTypes lists every registered workflow type.
func (r *Registry) WorkflowTypes() []string {
	types := make([]string, 0, len(r.definitions))
	for workflowType := range r.definitions {
		types = append(types, workflowType)
	}

	return types
}

func (r *Registry) validate(def *models.WorkflowDefinition) error {
	if len(def.States) == 0 {
		return newDefinitionError(def.ID, "", ErrUnknownInitialState)
	}

	if def.State(def.InitialState) == nil {
		return newDefinitionError(def.ID, fmt.Sprintf("initial state %q", def.InitialState), ErrUnknownInitialState)
	}

	for name, state := range def.States {
		if state.Terminal && len(state.Transitions) > 0 {
			return newDefinitionError(def.ID, fmt.Sprintf("state %q", name), ErrTerminalTransitions)
		}

		if err := r.validateStateCallbacks(def.ID, state); err != nil {
			return err
		}

		seen := make(map[string]bool, len(state.Transitions))

		for i := range state.Transitions {
			tr := &state.Transitions[i]

			if seen[tr.Event] {
				return newDefinitionError(def.ID,
					fmt.Sprintf("state %q event %q", name, tr.Event), ErrDuplicateEvent)
			}

			seen[tr.Event] = true

			if def.State(tr.Target) == nil {
				return newDefinitionError(def.ID,
					fmt.Sprintf("state %q event %q target %q", name, tr.Event, tr.Target), ErrUnknownTargetState)
			}

			if tr.Auto && tr.Condition == "" {
				return newDefinitionError(def.ID,
					fmt.Sprintf("state %q event %q", name, tr.Event), ErrMissingCondition)
			}

			if err := r.validateTransitionCallbacks(def.ID, tr); err != nil {
				return err
			}
		}
	}

	return r.validateHooks(def)
}

func (r *Registry) validateStateCallbacks(workflowType string, state *models.State) error {
	if _, err := r.callbacks.Action(workflowType, state.OnEnter); err != nil {
		return newDefinitionError(workflowType, fmt.Sprintf("state %q on_enter", state.Name), err)
	}

	if _, err := r.callbacks.Action(workflowType, state.OnExit); err != nil {
		return newDefinitionError(workflowType, fmt.Sprintf("state %q on_exit", state.Name), err)
	}

	return nil
}

func (r *Registry) validateTransitionCallbacks(workflowType string, tr *models.Transition) error {
	if _, err := r.callbacks.Condition(workflowType, tr.Condition); err != nil {
		return newDefinitionError(workflowType, fmt.Sprintf("event %q condition", tr.Event), err)
	}

	if _, err := r.callbacks.Guard(workflowType, tr.Guard); err != nil {
		return newDefinitionError(workflowType, fmt.Sprintf("event %q guard", tr.Event), err)
	}

	if _, err := r.callbacks.Action(workflowType, tr.OnTransition); err != nil {
		return newDefinitionError(workflowType, fmt.Sprintf("event %q on_transition", tr.Event), err)
	}

	return nil
}

func (r *Registry) validateHooks(def *models.WorkflowDefinition) error {
	if _, err := r.callbacks.Hook(def.ID, def.Hooks.BeforeTransition); err != nil {
		return newDefinitionError(def.ID, "before_transition hook", err)
	}

	if _, err := r.callbacks.Hook(def.ID, def.Hooks.AfterTransition); err != nil {
		return newDefinitionError(def.ID, "after_transition hook", err)
	}

	if _, err := r.callbacks.ErrorHook(def.ID, def.Hooks.OnError); err != nil {
		return newDefinitionError(def.ID, "on_error hook", err)
	}

	return nil
}
