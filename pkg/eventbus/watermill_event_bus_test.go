package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/channels/gochannel"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/events"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
)

func testBus(t *testing.T) EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func receive(t *testing.T, received <-chan any) any {
	t.Helper()

	select {
	case event := <-received:
		return event
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")

		return nil
	}
}

func TestPublishSubscribe_DecodesEachEventType(t *testing.T) {
	bus := testBus(t)
	ctx := context.Background()

	received := make(chan any, 10)
	collect := func(_ context.Context, event any) error {
		received <- event

		return nil
	}

	for _, eventType := range []events.EventType{
		events.InstanceCreatedEvent,
		events.TransitionCommittedEvent,
		events.EvaluationCompletedEvent,
		events.DeadlineApproachingEvent,
		events.DeadlineBreachedEvent,
	} {
		require.NoError(t, bus.Handle(eventType, collect))
	}

	require.NoError(t, bus.Subscribe(ctx))

	deadlineAt := time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)

	require.NoError(t, bus.Publish(ctx, "inc-1", events.InstanceCreated{
		BaseEvent:    events.NewBaseEvent(events.InstanceCreatedEvent, "inc-1", models.WorkflowTypeIncident),
		InitialState: "reported",
		Version:      1,
	}))

	created, ok := receive(t, received).(*events.InstanceCreated)
	require.True(t, ok)
	assert.Equal(t, "inc-1", created.InstanceID)
	assert.Equal(t, "reported", created.InitialState)

	require.NoError(t, bus.Publish(ctx, "inc-1", events.TransitionCommitted{
		BaseEvent:     events.NewBaseEvent(events.TransitionCommittedEvent, "inc-1", models.WorkflowTypeIncident),
		Event:         "triage",
		PreviousState: "reported",
		CurrentState:  "triaged",
		Actor:         "ops",
	}))

	committed, ok := receive(t, received).(*events.TransitionCommitted)
	require.True(t, ok)
	assert.Equal(t, "triage", committed.Event)
	assert.Equal(t, "triaged", committed.CurrentState)
	assert.Equal(t, "ops", committed.Actor)

	require.NoError(t, bus.Publish(ctx, "inc-1", events.EvaluationCompleted{
		BaseEvent:    events.NewBaseEvent(events.EvaluationCompletedEvent, "inc-1", models.WorkflowTypeIncident),
		Transitioned: true,
		FinalState:   "triaged",
		Transitions:  1,
	}))

	evaluated, ok := receive(t, received).(*events.EvaluationCompleted)
	require.True(t, ok)
	assert.True(t, evaluated.Transitioned)
	assert.Equal(t, 1, evaluated.Transitions)

	require.NoError(t, bus.Publish(ctx, "inc-1", events.DeadlineApproaching{
		BaseEvent:      events.NewBaseEvent(events.DeadlineApproachingEvent, "inc-1", models.WorkflowTypeIncident),
		Category:       "loss_of_contact",
		DeadlineAt:     deadlineAt,
		HoursRemaining: 4,
	}))

	approaching, ok := receive(t, received).(*events.DeadlineApproaching)
	require.True(t, ok)
	assert.Equal(t, "loss_of_contact", approaching.Category)
	assert.True(t, approaching.DeadlineAt.Equal(deadlineAt))
	assert.InDelta(t, 4.0, approaching.HoursRemaining, 0.001)

	require.NoError(t, bus.Publish(ctx, "inc-2", events.DeadlineBreached{
		BaseEvent:    events.NewBaseEvent(events.DeadlineBreachedEvent, "inc-2", models.WorkflowTypeIncident),
		Category:     "cyber_incident",
		DeadlineAt:   deadlineAt,
		HoursOverdue: 6,
	}))

	breached, ok := receive(t, received).(*events.DeadlineBreached)
	require.True(t, ok)
	assert.Equal(t, "inc-2", breached.InstanceID)
	assert.InDelta(t, 6.0, breached.HoursOverdue, 0.001)
}

func TestSubscribe_SkipsEventTypesWithoutHandler(t *testing.T) {
	bus := testBus(t)
	ctx := context.Background()

	received := make(chan any, 10)
	require.NoError(t, bus.Handle(events.InstanceCreatedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	}))

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for this type, so it is acked and dropped.
	require.NoError(t, bus.Publish(ctx, "inc-1", events.TransitionCommitted{
		BaseEvent: events.NewBaseEvent(events.TransitionCommittedEvent, "inc-1", models.WorkflowTypeIncident),
		Event:     "triage",
	}))

	require.NoError(t, bus.Publish(ctx, "inc-1", events.InstanceCreated{
		BaseEvent:    events.NewBaseEvent(events.InstanceCreatedEvent, "inc-1", models.WorkflowTypeIncident),
		InitialState: "reported",
	}))

	_, ok := receive(t, received).(*events.InstanceCreated)
	assert.True(t, ok)
	assert.Empty(t, received)
}

func TestSubscribe_RedeliversAfterHandlerError(t *testing.T) {
	bus := testBus(t)
	ctx := context.Background()

	var mu sync.Mutex

	attempts := 0

	require.NoError(t, bus.Handle(events.DeadlineBreachedEvent, func(_ context.Context, _ any) error {
		mu.Lock()
		defer mu.Unlock()

		attempts++
		if attempts == 1 {
			return errors.New("transient sink failure")
		}

		return nil
	}))

	require.NoError(t, bus.Subscribe(ctx))

	// Publish blocks until the message is acked, which takes one redelivery.
	require.NoError(t, bus.Publish(ctx, "inc-1", events.DeadlineBreached{
		BaseEvent: events.NewBaseEvent(events.DeadlineBreachedEvent, "inc-1", models.WorkflowTypeIncident),
		Category:  "cyber_incident",
	}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)
}

func TestGenerateID_Unique(t *testing.T) {
	bus := testBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
