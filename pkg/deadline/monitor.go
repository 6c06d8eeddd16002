// Package deadline runs the periodic sweep over open incident instances and
// publishes warnings when an NCA notification deadline approaches or passes.
package deadline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/eventbus"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/events"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/persistence"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/protocol"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/workflows/incident"
)

const (
	// DefaultSchedule sweeps every five minutes. Deadlines have hour
	// granularity, so this keeps warnings well inside one deadline step.
	DefaultSchedule = "*/5 * * * *"

	// DefaultWarningWindow is how long before the deadline the approaching
	// event fires.
	DefaultWarningWindow = 6 * time.Hour
)

// Monitor sweeps incident instances on a cron schedule. Approaching and
// breached events are published once per instance per kind; the dedup set is
// in-memory, so a restarted monitor re-warns at most once.
type Monitor struct {
	instances     persistence.InstanceRepository
	contexts      protocol.ContextProvider
	publisher     eventbus.EventPublisher
	logger        *slog.Logger
	schedule      string
	warningWindow time.Duration
	now           func() time.Time

	cron *cron.Cron

	mu       sync.Mutex
	notified map[string]bool
}

type Option func(*Monitor)

func WithSchedule(schedule string) Option {
	return func(m *Monitor) {
		m.schedule = schedule
	}
}

func WithWarningWindow(window time.Duration) Option {
	return func(m *Monitor) {
		m.warningWindow = window
	}
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

func NewMonitor(
	instances persistence.InstanceRepository,
	contexts protocol.ContextProvider,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
	opts ...Option,
) *Monitor {
	monitor := &Monitor{
		instances:     instances,
		contexts:      contexts,
		publisher:     publisher,
		logger:        logger.With("module", "deadline_monitor"),
		schedule:      DefaultSchedule,
		warningWindow: DefaultWarningWindow,
		now:           time.Now,
		notified:      make(map[string]bool),
	}

	for _, opt := range opts {
		opt(monitor)
	}

	return monitor
}

// Start schedules the sweep and runs one immediately.
func (m *Monitor) Start(ctx context.Context) error {
	m.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := m.cron.AddFunc(m.schedule, func() {
		m.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	m.cron.Start()
	m.logger.InfoContext(ctx, "Deadline monitor started", "schedule", m.schedule)

	m.Sweep(ctx)

	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (m *Monitor) Stop(ctx context.Context) {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}

	m.logger.InfoContext(ctx, "Deadline monitor stopped")
}

// Sweep checks every incident instance once.
func (m *Monitor) Sweep(ctx context.Context) {
	instances, err := m.instances.ListByType(ctx, models.WorkflowTypeIncident)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to list incident instances", "error", err)

		return
	}

	for _, instance := range instances {
		m.check(ctx, instance)
	}
}

func (m *Monitor) check(ctx context.Context, instance *models.WorkflowInstance) {
	wctx, err := m.contexts.Load(ctx, instance)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to load incident context",
			"instance_id", instance.ID, "error", err)

		return
	}

	incidentCtx, ok := wctx.(*models.IncidentContext)
	if !ok {
		return
	}

	now := m.now().UTC()

	status, err := incident.DeadlineStatus(incidentCtx, now)
	if err != nil {
		if !errors.Is(err, incident.ErrUnknownCategory) {
			m.logger.ErrorContext(ctx, "Failed to compute deadline status",
				"instance_id", instance.ID, "error", err)
		}

		return
	}

	if !status.RequiresNotification {
		return
	}

	switch {
	case status.IsOverdue:
		m.publishOnce(ctx, instance.ID+"/breached", events.DeadlineBreached{
			BaseEvent:    events.NewBaseEvent(events.DeadlineBreachedEvent, instance.ID, instance.WorkflowType),
			Category:     incidentCtx.Category,
			DeadlineAt:   status.NCADeadline,
			HoursOverdue: -status.HoursRemaining,
		})
	case time.Duration(status.HoursRemaining*float64(time.Hour)) <= m.warningWindow:
		m.publishOnce(ctx, instance.ID+"/approaching", events.DeadlineApproaching{
			BaseEvent:      events.NewBaseEvent(events.DeadlineApproachingEvent, instance.ID, instance.WorkflowType),
			Category:       incidentCtx.Category,
			DeadlineAt:     status.NCADeadline,
			HoursRemaining: status.HoursRemaining,
		})
	}
}

func (m *Monitor) publishOnce(ctx context.Context, key string, event eventbus.Event) {
	m.mu.Lock()
	already := m.notified[key]

	if !already {
		m.notified[key] = true
	}
	m.mu.Unlock()

	if already {
		return
	}

	err := m.publisher.Publish(ctx, key, event)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to publish deadline event",
			"key", key, "event_type", event.GetType(), "error", err)

		m.mu.Lock()
		delete(m.notified, key)
		m.mu.Unlock()

		return
	}

	m.logger.WarnContext(ctx, "Deadline event published",
		"key", key, "event_type", event.GetType())
}
