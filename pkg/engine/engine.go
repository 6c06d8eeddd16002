// Package engine evaluates workflow instances against their registered
// definitions. The engine is stateless: every call works on a caller-provided
// instance plus a fresh context snapshot, holds no internal lock and starts
// no background goroutine. Mutual exclusion per instance is the caller's
// responsibility.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/otelhelper"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/registry"
)

// DefaultMaxAutoTransitions bounds a single automatic-evaluation pass.
// Legitimate definitions stabilize in a handful of steps; hitting the cap
// means the definition oscillates and is reported, not retried.
const DefaultMaxAutoTransitions = 10

type Engine struct {
	registry           *registry.Registry
	logger             *slog.Logger
	tracer             trace.Tracer
	maxAutoTransitions int
}

type Option func(*Engine)

// WithMaxAutoTransitions overrides the automatic-evaluation cap.
func WithMaxAutoTransitions(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.maxAutoTransitions = limit
		}
	}
}

// WithTracer enables tracing of evaluate and transition calls.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

func NewEngine(reg *registry.Registry, logger *slog.Logger, opts ...Option) *Engine {
	engine := &Engine{
		registry:           reg,
		logger:             logger,
		maxAutoTransitions: DefaultMaxAutoTransitions,
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Evaluate advances the instance through automatic transitions until no more
// apply, bounded by the configured cap. The visited set is scoped to this
// single call: an instance may legitimately move backward across separate
// evaluations as its underlying facts change, and only an intra-call revisit
// counts as a structural cycle. Transitions committed before a loop-safety
// error remain committed; the error is reported in the result.
func (e *Engine) Evaluate(ctx context.Context, instance *models.WorkflowInstance, wctx models.Context) (*models.EvaluationResult, error) {
	def, err := e.registry.Definition(instance.WorkflowType, instance.Version)
	if err != nil {
		return nil, err
	}

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "engine.evaluate",
			attribute.String(otelhelper.InstanceIDKey, instance.ID),
			attribute.String(otelhelper.WorkflowTypeKey, instance.WorkflowType),
			attribute.String(otelhelper.StateKey, instance.CurrentState),
		)
		defer span.End()
	}

	logger := e.logger.With(
		"instance_id", instance.ID,
		"workflow_type", instance.WorkflowType,
	)

	result := &models.EvaluationResult{
		Transitions: make([]models.TransitionResult, 0),
	}

	visited := map[string]bool{instance.CurrentState: true}

	for {
		state := def.State(instance.CurrentState)
		if state == nil || state.Terminal {
			break
		}

		transition, err := e.selectAutoTransition(ctx, def, state, wctx)
		if err != nil {
			logger.ErrorContext(ctx, "Automatic condition evaluation failed", "error", err)
			result.Errors = append(result.Errors, err.Error())

			break
		}

		if transition == nil {
			break
		}

		if len(result.Transitions) >= e.maxAutoTransitions {
			logger.ErrorContext(ctx, "Automatic transition limit exceeded",
				"limit", e.maxAutoTransitions, "state", instance.CurrentState)
			result.Errors = append(result.Errors, ErrMaxAutoTransitionsExceeded.Error())

			break
		}

		if visited[transition.Target] {
			logger.ErrorContext(ctx, "Cycle detected during automatic evaluation",
				"state", instance.CurrentState, "target", transition.Target)
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: state %q revisited", ErrCycleDetected, transition.Target))

			break
		}

		committed, err := e.execute(ctx, def, instance, state, transition, wctx)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())

			break
		}

		result.Transitions = append(result.Transitions, *committed)
		visited[transition.Target] = true
	}

	result.Transitioned = len(result.Transitions) > 0
	result.FinalState = instance.CurrentState

	if result.Transitioned {
		logger.InfoContext(ctx, "Automatic evaluation advanced instance",
			"transitions", len(result.Transitions),
			"final_state", result.FinalState,
		)
	}

	return result, nil
}

// Transition executes one named manual transition. Permission denial and
// guard denial are both reported as ErrGuardRejected; neither mutates the
// instance. Automatic transitions are system-driven and cannot be fired by
// name.
func (e *Engine) Transition(ctx context.Context, instance *models.WorkflowInstance, event string, wctx models.Context, permissions []string) (*models.TransitionResult, error) {
	def, err := e.registry.Definition(instance.WorkflowType, instance.Version)
	if err != nil {
		return nil, err
	}

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "engine.transition",
			attribute.String(otelhelper.InstanceIDKey, instance.ID),
			attribute.String(otelhelper.WorkflowTypeKey, instance.WorkflowType),
			attribute.String(otelhelper.StateKey, instance.CurrentState),
			attribute.String(otelhelper.EventKey, event),
		)
		defer span.End()
	}

	state := def.State(instance.CurrentState)
	if state == nil {
		return nil, fmt.Errorf("state %q is not part of definition %q: %w",
			instance.CurrentState, def.ID, ErrUnknownTransition)
	}

	transition, ok := def.TransitionFor(instance.CurrentState, event)
	if !ok {
		return nil, fmt.Errorf("event %q from state %q: %w", event, instance.CurrentState, ErrUnknownTransition)
	}

	if transition.Auto {
		return nil, fmt.Errorf("event %q from state %q is automatic: %w", event, instance.CurrentState, ErrUnknownTransition)
	}

	if missing := missingPermissions(transition.RequiredPermissions, permissions); len(missing) > 0 {
		e.logger.WarnContext(ctx, "Transition denied, missing permissions",
			"instance_id", instance.ID, "event", event, "missing", missing)

		return nil, fmt.Errorf("event %q requires permissions %v: %w", event, missing, ErrGuardRejected)
	}

	guard, err := e.registry.Callbacks().Guard(instance.WorkflowType, transition.Guard)
	if err != nil {
		return nil, err
	}

	if guard != nil {
		passed, err := guard(ctx, wctx)
		if err != nil {
			return nil, fmt.Errorf("guard %q for event %q: %v: %w", transition.Guard, event, err, ErrGuardRejected)
		}

		if !passed {
			return nil, fmt.Errorf("guard %q rejected event %q: %w", transition.Guard, event, ErrGuardRejected)
		}
	}

	return e.execute(ctx, def, instance, state, transition, wctx)
}

// AvailableTransitions lists every transition defined on the current state
// with its condition (automatic) or guard (manual) evaluated against the
// provided context snapshot. Evaluation failures report as not met.
func (e *Engine) AvailableTransitions(ctx context.Context, instance *models.WorkflowInstance, wctx models.Context) ([]models.AvailableTransition, error) {
	def, err := e.registry.Definition(instance.WorkflowType, instance.Version)
	if err != nil {
		return nil, err
	}

	state := def.State(instance.CurrentState)
	if state == nil {
		return nil, fmt.Errorf("state %q is not part of definition %q: %w",
			instance.CurrentState, def.ID, ErrUnknownTransition)
	}

	available := make([]models.AvailableTransition, 0, len(state.Transitions))

	for i := range state.Transitions {
		transition := &state.Transitions[i]

		met := true

		if transition.Auto {
			condition, err := e.registry.Callbacks().Condition(instance.WorkflowType, transition.Condition)
			if err != nil {
				return nil, err
			}

			met, err = condition(ctx, wctx)
			if err != nil {
				met = false
			}
		} else if transition.Guard != "" {
			guard, err := e.registry.Callbacks().Guard(instance.WorkflowType, transition.Guard)
			if err != nil {
				return nil, err
			}

			passed, err := guard(ctx, wctx)
			met = err == nil && passed
		}

		available = append(available, models.AvailableTransition{
			Event:        transition.Event,
			To:           transition.Target,
			Auto:         transition.Auto,
			ConditionMet: met,
		})
	}

	return available, nil
}

// selectAutoTransition scans the state's transitions in definition order and
// returns the first automatic transition whose condition holds. Definition
// order is the tie-break when several conditions hold at once.
func (e *Engine) selectAutoTransition(ctx context.Context, def *models.WorkflowDefinition, state *models.State, wctx models.Context) (*models.Transition, error) {
	for i := range state.Transitions {
		transition := &state.Transitions[i]
		if !transition.Auto {
			continue
		}

		condition, err := e.registry.Callbacks().Condition(def.ID, transition.Condition)
		if err != nil {
			return nil, err
		}

		holds, err := condition(ctx, wctx)
		if err != nil {
			return nil, fmt.Errorf("condition %q for event %q failed: %w", transition.Condition, transition.Event, err)
		}

		if holds {
			return transition, nil
		}
	}

	return nil, nil
}

// execute runs one transition with the full callback ordering: source
// on-exit, before hook, the transition's own action, state mutation, target
// on-enter, after hook. Any callback failure invokes the definition's
// on-error hook and aborts the whole transition; the current state is left
// unchanged and nothing is appended to history.
func (e *Engine) execute(ctx context.Context, def *models.WorkflowDefinition, instance *models.WorkflowInstance, state *models.State, transition *models.Transition, wctx models.Context) (*models.TransitionResult, error) {
	callbacks := e.registry.Callbacks()
	from := state.Name
	target := def.State(transition.Target)

	hookEvent := registry.HookEvent{
		InstanceID:   instance.ID,
		WorkflowType: instance.WorkflowType,
		Event:        transition.Event,
		From:         from,
		To:           transition.Target,
		Context:      wctx,
	}

	abort := func(stage string, err error) (*models.TransitionResult, error) {
		instance.CurrentState = from

		if onError, hookErr := callbacks.ErrorHook(def.ID, def.Hooks.OnError); hookErr == nil && onError != nil {
			onError(ctx, err, hookEvent)
		}

		e.logger.ErrorContext(ctx, "Transition aborted",
			"instance_id", instance.ID,
			"event", transition.Event,
			"stage", stage,
			"error", err,
		)

		return nil, &HookError{Stage: stage, Event: transition.Event, State: from, Err: err}
	}

	onExit, err := callbacks.Action(def.ID, state.OnExit)
	if err != nil {
		return nil, err
	}

	if onExit != nil {
		if err := onExit(ctx, wctx); err != nil {
			return abort("on_exit", err)
		}
	}

	before, err := callbacks.Hook(def.ID, def.Hooks.BeforeTransition)
	if err != nil {
		return nil, err
	}

	if before != nil {
		if err := before(ctx, hookEvent); err != nil {
			return abort("before_transition", err)
		}
	}

	onTransition, err := callbacks.Action(def.ID, transition.OnTransition)
	if err != nil {
		return nil, err
	}

	if onTransition != nil {
		if err := onTransition(ctx, wctx); err != nil {
			return abort("on_transition", err)
		}
	}

	instance.CurrentState = transition.Target

	onEnter, err := callbacks.Action(def.ID, target.OnEnter)
	if err != nil {
		instance.CurrentState = from

		return nil, err
	}

	if onEnter != nil {
		if err := onEnter(ctx, wctx); err != nil {
			return abort("on_enter", err)
		}
	}

	after, err := callbacks.Hook(def.ID, def.Hooks.AfterTransition)
	if err != nil {
		instance.CurrentState = from

		return nil, err
	}

	if after != nil {
		if err := after(ctx, hookEvent); err != nil {
			return abort("after_transition", err)
		}
	}

	result := models.TransitionResult{
		Success:         true,
		PreviousState:   from,
		CurrentState:    transition.Target,
		TransitionEvent: transition.Event,
		Timestamp:       time.Now().UTC(),
	}

	instance.History = append(instance.History, result)
	instance.UpdatedAt = result.Timestamp

	e.logger.InfoContext(ctx, "Transition committed",
		"instance_id", instance.ID,
		"event", transition.Event,
		"from", from,
		"to", transition.Target,
	)

	return &result, nil
}

func missingPermissions(required, held []string) []string {
	if len(required) == 0 {
		return nil
	}

	heldSet := make(map[string]bool, len(held))
	for _, permission := range held {
		heldSet[permission] = true
	}

	missing := make([]string, 0)

	for _, permission := range required {
		if !heldSet[permission] {
			missing = append(missing, permission)
		}
	}

	return missing
}
