package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/registry"
)

type orderContext struct {
	Paid    bool
	Packed  bool
	CanShip bool
}

func (c *orderContext) WorkflowType() string { return "order" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// orderRegistry builds an order workflow: new -> paid -> packed advance
// automatically, packing is shipped manually behind a guard and a permission.
func orderRegistry(t *testing.T, trace *[]string) *registry.Registry {
	t.Helper()

	record := func(name string) func(context.Context, models.Context) error {
		return func(context.Context, models.Context) error {
			if trace != nil {
				*trace = append(*trace, name)
			}

			return nil
		}
	}

	callbacks := registry.NewCallbackRegistry()

	require.NoError(t, callbacks.RegisterCondition("order", "is_paid", func(_ context.Context, wctx models.Context) (bool, error) {
		return wctx.(*orderContext).Paid, nil
	}))
	require.NoError(t, callbacks.RegisterCondition("order", "is_packed", func(_ context.Context, wctx models.Context) (bool, error) {
		return wctx.(*orderContext).Packed, nil
	}))
	require.NoError(t, callbacks.RegisterGuard("order", "can_ship", func(_ context.Context, wctx models.Context) (bool, error) {
		return wctx.(*orderContext).CanShip, nil
	}))
	require.NoError(t, callbacks.RegisterAction("order", "leave_packed", record("on_exit")))
	require.NoError(t, callbacks.RegisterAction("order", "stamp_shipping", record("on_transition")))
	require.NoError(t, callbacks.RegisterAction("order", "enter_shipped", record("on_enter")))
	require.NoError(t, callbacks.RegisterHook("order", "before", func(context.Context, registry.HookEvent) error {
		if trace != nil {
			*trace = append(*trace, "before")
		}

		return nil
	}))
	require.NoError(t, callbacks.RegisterHook("order", "after", func(context.Context, registry.HookEvent) error {
		if trace != nil {
			*trace = append(*trace, "after")
		}

		return nil
	}))
	require.NoError(t, callbacks.RegisterErrorHook("order", "on_error", func(context.Context, error, registry.HookEvent) {
		if trace != nil {
			*trace = append(*trace, "on_error")
		}
	}))

	reg := registry.NewRegistry(testLogger(), callbacks)

	def := &models.WorkflowDefinition{
		ID:           "order",
		Version:      1,
		InitialState: "new",
		States: map[string]*models.State{
			"new": {
				Name: "new",
				Transitions: []models.Transition{
					{Event: "payment_received", Target: "paid", Auto: true, Condition: "is_paid"},
					{Event: "cancel", Target: "cancelled", RequiredPermissions: []string{"orders:cancel"}},
				},
			},
			"paid": {
				Name: "paid",
				Transitions: []models.Transition{
					{Event: "packed", Target: "packed", Auto: true, Condition: "is_packed"},
					{Event: "cancel", Target: "cancelled", RequiredPermissions: []string{"orders:cancel"}},
				},
			},
			"packed": {
				Name:   "packed",
				OnExit: "leave_packed",
				Transitions: []models.Transition{
					{
						Event:               "ship",
						Target:              "shipped",
						Guard:               "can_ship",
						RequiredPermissions: []string{"orders:ship"},
						OnTransition:        "stamp_shipping",
					},
				},
			},
			"shipped":   {Name: "shipped", OnEnter: "enter_shipped", Terminal: true},
			"cancelled": {Name: "cancelled", Terminal: true},
		},
		Hooks: models.Hooks{
			BeforeTransition: "before",
			AfterTransition:  "after",
			OnError:          "on_error",
		},
	}

	require.NoError(t, reg.Register(def))

	return reg
}

func newOrderInstance(t *testing.T, reg *registry.Registry, wctx *orderContext) *models.WorkflowInstance {
	t.Helper()

	def, err := reg.Definition("order", 1)
	require.NoError(t, err)

	return models.NewWorkflowInstance("order-1", def, wctx)
}

func TestEvaluate_AdvancesToFixedPoint(t *testing.T) {
	reg := orderRegistry(t, nil)
	eng := NewEngine(reg, testLogger())
	wctx := &orderContext{Paid: true, Packed: true}
	instance := newOrderInstance(t, reg, wctx)

	result, err := eng.Evaluate(context.Background(), instance, wctx)
	require.NoError(t, err)

	assert.True(t, result.Transitioned)
	assert.Len(t, result.Transitions, 2)
	assert.Equal(t, "packed", result.FinalState)
	assert.Equal(t, "packed", instance.CurrentState)
	assert.Empty(t, result.Errors)
	assert.Len(t, instance.History, 2)
	assert.Equal(t, "payment_received", instance.History[0].TransitionEvent)
	assert.Equal(t, "packed", instance.History[1].TransitionEvent)
}

func TestEvaluate_Idempotent(t *testing.T) {
	reg := orderRegistry(t, nil)
	eng := NewEngine(reg, testLogger())
	wctx := &orderContext{Paid: true}
	instance := newOrderInstance(t, reg, wctx)

	first, err := eng.Evaluate(context.Background(), instance, wctx)
	require.NoError(t, err)
	require.True(t, first.Transitioned)
	require.Equal(t, "paid", instance.CurrentState)

	second, err := eng.Evaluate(context.Background(), instance, wctx)
	require.NoError(t, err)

	assert.False(t, second.Transitioned)
	assert.Empty(t, second.Transitions)
	assert.Equal(t, "paid", second.FinalState)
	assert.Len(t, instance.History, 1)
}

func TestEvaluate_NoConditionHolds(t *testing.T) {
	reg := orderRegistry(t, nil)
	eng := NewEngine(reg, testLogger())
	wctx := &orderContext{}
	instance := newOrderInstance(t, reg, wctx)

	result, err := eng.Evaluate(context.Background(), instance, wctx)
	require.NoError(t, err)

	assert.False(t, result.Transitioned)
	assert.Equal(t, "new", result.FinalState)
}

func TestEvaluate_TerminalStateIsNoOp(t *testing.T) {
	reg := orderRegistry(t, nil)
	eng := NewEngine(reg, testLogger())
	wctx := &orderContext{Paid: true, Packed: true}
	instance := newOrderInstance(t, reg, wctx)
	instance.CurrentState = "shipped"

	result, err := eng.Evaluate(context.Background(), instance, wctx)
	require.NoError(t, err)

	assert.False(t, result.Transitioned)
	assert.Equal(t, "shipped", result.FinalState)
}

func TestEvaluate_DefinitionOrderBreaksTies(t *testing.T) {
	callbacks := registry.NewCallbackRegistry()
	always := func(context.Context, models.Context) (bool, error) { return true, nil }
	require.NoError(t, callbacks.RegisterCondition("race", "first", always))
	require.NoError(t, callbacks.RegisterCondition("race", "second", always))

	reg := registry.NewRegistry(testLogger(), callbacks)
	require.NoError(t, reg.Register(&models.WorkflowDefinition{
		ID:           "race",
		Version:      1,
		InitialState: "start",
		States: map[string]*models.State{
			"start": {
				Name: "start",
				Transitions: []models.Transition{
					{Event: "go_a", Target: "a", Auto: true, Condition: "first"},
					{Event: "go_b", Target: "b", Auto: true, Condition: "second"},
				},
			},
			"a": {Name: "a", Terminal: true},
			"b": {Name: "b", Terminal: true},
		},
	}))

	def, err := reg.Definition("race", 1)
	require.NoError(t, err)

	wctx := &orderContext{}
	instance := models.NewWorkflowInstance("race-1", def, wctx)
	eng := NewEngine(reg, testLogger())

	result, err := eng.Evaluate(context.Background(), instance, wctx)
	require.NoError(t, err)

	require.Len(t, result.Transitions, 1)
	assert.Equal(t, "go_a", result.Transitions[0].TransitionEvent)
	assert.Equal(t, "a", instance.CurrentState)
}

func TestEvaluate_CycleDetected(t *testing.T) {
	callbacks := registry.NewCallbackRegistry()
	always := func(context.Context, models.Context) (bool, error) { return true, nil }
	require.NoError(t, callbacks.RegisterCondition("flip", "always", always))

	reg := registry.NewRegistry(testLogger(), callbacks)
	require.NoError(t, reg.Register(&models.WorkflowDefinition{
		ID:           "flip",
		Version:      1,
		InitialState: "a",
		States: map[string]*models.State{
			"a": {Name: "a", Transitions: []models.Transition{
				{Event: "to_b", Target: "b", Auto: true, Condition: "always"},
			}},
			"b": {Name: "b", Transitions: []models.Transition{
				{Event: "to_a", Target: "a", Auto: true, Condition: "always"},
			}},
		},
	}))

	def, err := reg.Definition("flip", 1)
	require.NoError(t, err)

	wctx := &orderContext{}
	instance := models.NewWorkflowInstance("flip-1", def, wctx)
	eng := NewEngine(reg, testLogger())

	result, err := eng.Evaluate(context.Background(), instance, wctx)
	require.NoError(t, err)

	// The committed hop stays committed; the revisit is reported.
	assert.Len(t, result.Transitions, 1)
	assert.Equal(t, "b", instance.CurrentState)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], ErrCycleDetected.Error())
}

func TestEvaluate_MaxAutoTransitionsExceeded(t *testing.T) {
	callbacks := registry.NewCallbackRegistry()
	always := func(context.Context, models.Context) (bool, error) { return true, nil }
	require.NoError(t, callbacks.RegisterCondition("chain", "always", always))

	states := make(map[string]*models.State)
	for i := range 12 {
		states[fmt.Sprintf("s%d", i)] = &models.State{
			Name: fmt.Sprintf("s%d", i),
			Transitions: []models.Transition{
				{Event: fmt.Sprintf("next%d", i), Target: fmt.Sprintf("s%d", i+1), Auto: true, Condition: "always"},
			},
		}
	}

	states["s12"] = &models.State{Name: "s12", Terminal: true}

	reg := registry.NewRegistry(testLogger(), callbacks)
	require.NoError(t, reg.Register(&models.WorkflowDefinition{
		ID:           "chain",
		Version:      1,
		InitialState: "s0",
		States:       states,
	}))

	def, err := reg.Definition("chain", 1)
	require.NoError(t, err)

	wctx := &orderContext{}
	instance := models.NewWorkflowInstance("chain-1", def, wctx)
	eng := NewEngine(reg, testLogger())

	result, err := eng.Evaluate(context.Background(), instance, wctx)
	require.NoError(t, err)

	assert.Len(t, result.Transitions, DefaultMaxAutoTransitions)
	assert.Equal(t, "s10", instance.CurrentState)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], ErrMaxAutoTransitionsExceeded.Error())
}

func TestEvaluate_ConditionErrorStopsEvaluation(t *testing.T) {
	callbacks := registry.NewCallbackRegistry()
	require.NoError(t, callbacks.RegisterCondition("broken", "boom", func(context.Context, models.Context) (bool, error) {
		return false, errors.New("facts unavailable")
	}))

	reg := registry.NewRegistry(testLogger(), callbacks)
	require.NoError(t, reg.Register(&models.WorkflowDefinition{
		ID:           "broken",
		Version:      1,
		InitialState: "start",
		States: map[string]*models.State{
			"start": {Name: "start", Transitions: []models.Transition{
				{Event: "go", Target: "done", Auto: true, Condition: "boom"},
			}},
			"done": {Name: "done", Terminal: true},
		},
	}))

	def, err := reg.Definition("broken", 1)
	require.NoError(t, err)

	wctx := &orderContext{}
	instance := models.NewWorkflowInstance("broken-1", def, wctx)
	eng := NewEngine(reg, testLogger())

	result, err := eng.Evaluate(context.Background(), instance, wctx)
	require.NoError(t, err)

	assert.False(t, result.Transitioned)
	assert.Equal(t, "start", instance.CurrentState)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "facts unavailable")
}

func TestTransition_Success(t *testing.T) {
	trace := make([]string, 0)
	reg := orderRegistry(t, &trace)
	eng := NewEngine(reg, testLogger())
	wctx := &orderContext{CanShip: true}
	instance := newOrderInstance(t, reg, wctx)
	instance.CurrentState = "packed"

	result, err := eng.Transition(context.Background(), instance, "ship", wctx, []string{"orders:ship", "orders:cancel"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "packed", result.PreviousState)
	assert.Equal(t, "shipped", result.CurrentState)
	assert.Equal(t, "shipped", instance.CurrentState)
	assert.Len(t, instance.History, 1)
	assert.Equal(t, []string{"on_exit", "before", "on_transition", "on_enter", "after"}, trace)
}

func TestTransition_UnknownEvent(t *testing.T) {
	reg := orderRegistry(t, nil)
	eng := NewEngine(reg, testLogger())
	wctx := &orderContext{}
	instance := newOrderInstance(t, reg, wctx)

	_, err := eng.Transition(context.Background(), instance, "ship", wctx, nil)

	require.Error(t, err)
	assert.True(t, IsUnknownTransition(err))
	assert.Equal(t, "new", instance.CurrentState)
}

func TestTransition_AutoEventCannotBeFiredManually(t *testing.T) {
	reg := orderRegistry(t, nil)
	eng := NewEngine(reg, testLogger())
	wctx := &orderContext{Paid: true}
	instance := newOrderInstance(t, reg, wctx)

	_, err := eng.Transition(context.Background(), instance, "payment_received", wctx, nil)

	require.Error(t, err)
	assert.True(t, IsUnknownTransition(err))
}

func TestTransition_MissingPermission(t *testing.T) {
	reg := orderRegistry(t, nil)
	eng := NewEngine(reg, testLogger())
	wctx := &orderContext{CanShip: true}
	instance := newOrderInstance(t, reg, wctx)
	instance.CurrentState = "packed"

	_, err := eng.Transition(context.Background(), instance, "ship", wctx, []string{"orders:cancel"})

	require.Error(t, err)
	assert.True(t, IsGuardRejected(err))
	assert.Equal(t, "packed", instance.CurrentState)
	assert.Empty(t, instance.History)
}

func TestTransition_GuardRejects(t *testing.T) {
	reg := orderRegistry(t, nil)
	eng := NewEngine(reg, testLogger())
	wctx := &orderContext{CanShip: false}
	instance := newOrderInstance(t, reg, wctx)
	instance.CurrentState = "packed"

	_, err := eng.Transition(context.Background(), instance, "ship", wctx, []string{"orders:ship"})

	require.Error(t, err)
	assert.True(t, IsGuardRejected(err))
	assert.Equal(t, "packed", instance.CurrentState)
}

func TestTransition_GuardErrorReportsAsRejection(t *testing.T) {
	callbacks := registry.NewCallbackRegistry()
	require.NoError(t, callbacks.RegisterGuard("strict", "failing", func(context.Context, models.Context) (bool, error) {
		return false, errors.New("permission service unavailable")
	}))

	reg := registry.NewRegistry(testLogger(), callbacks)
	require.NoError(t, reg.Register(&models.WorkflowDefinition{
		ID:           "strict",
		Version:      1,
		InitialState: "start",
		States: map[string]*models.State{
			"start": {Name: "start", Transitions: []models.Transition{
				{Event: "go", Target: "done", Guard: "failing"},
			}},
			"done": {Name: "done", Terminal: true},
		},
	}))

	def, err := reg.Definition("strict", 1)
	require.NoError(t, err)

	wctx := &orderContext{}
	instance := models.NewWorkflowInstance("strict-1", def, wctx)
	eng := NewEngine(reg, testLogger())

	_, err = eng.Transition(context.Background(), instance, "go", wctx, nil)

	require.Error(t, err)
	assert.True(t, IsGuardRejected(err))
}

func TestTransition_HookFailureAborts(t *testing.T) {
	trace := make([]string, 0)

	callbacks := registry.NewCallbackRegistry()
	require.NoError(t, callbacks.RegisterAction("fragile", "explode", func(context.Context, models.Context) error {
		return errors.New("enter hook failed")
	}))
	require.NoError(t, callbacks.RegisterErrorHook("fragile", "on_error", func(context.Context, error, registry.HookEvent) {
		trace = append(trace, "on_error")
	}))

	reg := registry.NewRegistry(testLogger(), callbacks)
	require.NoError(t, reg.Register(&models.WorkflowDefinition{
		ID:           "fragile",
		Version:      1,
		InitialState: "start",
		States: map[string]*models.State{
			"start": {Name: "start", Transitions: []models.Transition{
				{Event: "go", Target: "done"},
			}},
			"done": {Name: "done", OnEnter: "explode", Terminal: true},
		},
		Hooks: models.Hooks{OnError: "on_error"},
	}))

	def, err := reg.Definition("fragile", 1)
	require.NoError(t, err)

	wctx := &orderContext{}
	instance := models.NewWorkflowInstance("fragile-1", def, wctx)
	eng := NewEngine(reg, testLogger())

	_, err = eng.Transition(context.Background(), instance, "go", wctx, nil)

	require.Error(t, err)
	assert.True(t, IsHookError(err))
	assert.Equal(t, "start", instance.CurrentState)
	assert.Empty(t, instance.History)
	assert.Equal(t, []string{"on_error"}, trace)

	var hookErr *HookError

	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "on_enter", hookErr.Stage)
	assert.Equal(t, "go", hookErr.Event)
}

func TestAvailableTransitions(t *testing.T) {
	reg := orderRegistry(t, nil)
	eng := NewEngine(reg, testLogger())
	wctx := &orderContext{Paid: true}
	instance := newOrderInstance(t, reg, wctx)

	available, err := eng.AvailableTransitions(context.Background(), instance, wctx)
	require.NoError(t, err)

	require.Len(t, available, 2)
	assert.Equal(t, "payment_received", available[0].Event)
	assert.True(t, available[0].Auto)
	assert.True(t, available[0].ConditionMet)
	assert.Equal(t, "cancel", available[1].Event)
	assert.False(t, available[1].Auto)
	assert.True(t, available[1].ConditionMet)
}
