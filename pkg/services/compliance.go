package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/engine"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/eventbus"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/events"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/lock"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/persistence"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/protocol"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/registry"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/workflows/incident"
)

const instanceLockTTL = 30 * time.Second

// Compliance orchestrates workflow instance operations: it serializes access
// per instance, loads a fresh context snapshot before every engine call, and
// persists plus publishes the outcome.
type Compliance struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	engine      *engine.Engine
	contexts    protocol.ContextProvider
	permissions protocol.PermissionChecker
	locks       lock.Manager
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// NewCompliance creates a new compliance service.
func NewCompliance(
	p persistence.Persistence,
	reg *registry.Registry,
	eng *engine.Engine,
	contexts protocol.ContextProvider,
	permissions protocol.PermissionChecker,
	locks lock.Manager,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Compliance {
	return &Compliance{
		persistence: p,
		registry:    reg,
		engine:      eng,
		contexts:    contexts,
		permissions: permissions,
		locks:       locks,
		publisher:   publisher,
		logger:      logger.With("module", "compliance_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Compliance) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateInstanceRequest describes a new workflow instance. Version 0 selects
// the latest registered definition version.
type CreateInstanceRequest struct {
	ID           string `json:"id"`
	WorkflowType string `json:"workflow_type" validate:"required"`
	Version      int    `json:"version"       validate:"min=0"`
}

// CreateInstance creates an instance at the definition's initial state, runs
// one automatic-evaluation pass over its current facts, and persists the
// result. Facts that already hold at creation time advance the instance
// immediately.
func (s *Compliance) CreateInstance(ctx context.Context, req CreateInstanceRequest) (*models.WorkflowInstance, error) {
	if req.WorkflowType == "" {
		return nil, ErrWorkflowTypeRequired
	}

	var (
		def *models.WorkflowDefinition
		err error
	)

	if req.Version == 0 {
		def, err = s.registry.Latest(req.WorkflowType)
	} else {
		def, err = s.registry.Definition(req.WorkflowType, req.Version)
	}

	if err != nil {
		return nil, err
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}

	lease, err := s.locks.Acquire(ctx, id, instanceLockTTL)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, lease)

	instance := models.NewWorkflowInstance(id, def, nil)

	wctx, err := s.contexts.Load(ctx, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to load context for new instance %s: %w", id, err)
	}

	instance.Context = wctx

	evaluation, err := s.engine.Evaluate(ctx, instance, wctx)
	if err != nil {
		return nil, err
	}

	err = s.persistence.InstanceRepository().Save(ctx, instance, 0)
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, instance.ID, evaluation.Transitions)

	s.publish(ctx, instance.ID, events.InstanceCreated{
		BaseEvent:    events.NewBaseEvent(events.InstanceCreatedEvent, instance.ID, instance.WorkflowType),
		InitialState: def.InitialState,
		Version:      def.Version,
	})
	s.publishTransitions(ctx, instance, evaluation.Transitions, "")

	return instance, nil
}

// Instance retrieves a workflow instance by its ID.
func (s *Compliance) Instance(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	return s.persistence.InstanceRepository().GetByID(ctx, id)
}

// ListInstances retrieves every instance of one workflow type.
func (s *Compliance) ListInstances(ctx context.Context, workflowType string) ([]*models.WorkflowInstance, error) {
	if workflowType == "" {
		return nil, ErrWorkflowTypeRequired
	}

	return s.persistence.InstanceRepository().ListByType(ctx, workflowType)
}

// Evaluate re-reads the instance's facts and advances it through automatic
// transitions until no more apply. Call this whenever underlying facts may
// have changed.
func (s *Compliance) Evaluate(ctx context.Context, instanceID string) (*models.EvaluationResult, error) {
	lease, err := s.locks.Acquire(ctx, instanceID, instanceLockTTL)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, lease)

	instance, err := s.persistence.InstanceRepository().GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	loadedRevision := instance.Revision

	wctx, err := s.contexts.Load(ctx, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to load context for instance %s: %w", instanceID, err)
	}

	instance.Context = wctx

	result, err := s.engine.Evaluate(ctx, instance, wctx)
	if err != nil {
		return nil, err
	}

	err = s.persistence.InstanceRepository().Save(ctx, instance, loadedRevision)
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, instance.ID, result.Transitions)
	s.publishTransitions(ctx, instance, result.Transitions, "")

	s.publish(ctx, instance.ID, events.EvaluationCompleted{
		BaseEvent:    events.NewBaseEvent(events.EvaluationCompletedEvent, instance.ID, instance.WorkflowType),
		Transitioned: result.Transitioned,
		FinalState:   result.FinalState,
		Transitions:  len(result.Transitions),
		Errors:       result.Errors,
	})

	return result, nil
}

// TransitionRequest fires one named manual transition on behalf of an actor.
type TransitionRequest struct {
	InstanceID string `json:"-"`
	Event      string `json:"event" validate:"required"`
	Actor      string `json:"actor" validate:"required"`
}

// Transition fires a manual transition and then runs a follow-up automatic
// evaluation, since the transition's actions may have changed the facts.
func (s *Compliance) Transition(ctx context.Context, req TransitionRequest) (*models.TransitionResult, error) {
	if req.Event == "" {
		return nil, ErrEventRequired
	}

	if req.Actor == "" {
		return nil, ErrActorRequired
	}

	lease, err := s.locks.Acquire(ctx, req.InstanceID, instanceLockTTL)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, lease)

	instance, err := s.persistence.InstanceRepository().GetByID(ctx, req.InstanceID)
	if err != nil {
		return nil, err
	}

	loadedRevision := instance.Revision

	held, err := s.permissions.PermissionsOf(ctx, req.Actor)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve permissions for actor %s: %w", req.Actor, err)
	}

	wctx, err := s.contexts.Load(ctx, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to load context for instance %s: %w", req.InstanceID, err)
	}

	instance.Context = wctx

	result, err := s.engine.Transition(ctx, instance, req.Event, wctx, held)
	if err != nil {
		return nil, err
	}

	evaluation, err := s.engine.Evaluate(ctx, instance, wctx)
	if err != nil {
		return nil, err
	}

	err = s.persistence.InstanceRepository().Save(ctx, instance, loadedRevision)
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, instance.ID, append([]models.TransitionResult{*result}, evaluation.Transitions...))
	s.publishTransitions(ctx, instance, []models.TransitionResult{*result}, req.Actor)
	s.publishTransitions(ctx, instance, evaluation.Transitions, "")

	return result, nil
}

// AvailableTransitions lists the transitions defined on the instance's
// current state, each evaluated against a fresh context snapshot.
func (s *Compliance) AvailableTransitions(ctx context.Context, instanceID string) ([]models.AvailableTransition, error) {
	instance, err := s.persistence.InstanceRepository().GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	wctx, err := s.contexts.Load(ctx, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to load context for instance %s: %w", instanceID, err)
	}

	return s.engine.AvailableTransitions(ctx, instance, wctx)
}

// History returns the durable audit trail for one instance.
func (s *Compliance) History(ctx context.Context, instanceID string) ([]models.TransitionResult, error) {
	_, err := s.persistence.InstanceRepository().GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	return s.persistence.AuditRepository().ListByInstance(ctx, instanceID)
}

// ClassifyIncident resolves the notification classification for a category.
func (s *Compliance) ClassifyIncident(category string) (models.ClassificationEntry, error) {
	return incident.Classify(category)
}

// IncidentClassifications lists the full classification table.
func (s *Compliance) IncidentClassifications() []models.ClassificationEntry {
	return incident.Classifications()
}

// IncidentDeadlineStatus computes the live notification deadline status for
// one incident instance against a fresh context snapshot.
func (s *Compliance) IncidentDeadlineStatus(ctx context.Context, instanceID string) (*models.DeadlineStatus, error) {
	instance, err := s.persistence.InstanceRepository().GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	if instance.WorkflowType != models.WorkflowTypeIncident {
		return nil, fmt.Errorf("instance %s has type %q: %w", instanceID, instance.WorkflowType, ErrNotAnIncident)
	}

	wctx, err := s.contexts.Load(ctx, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to load context for instance %s: %w", instanceID, err)
	}

	incidentCtx, ok := wctx.(*models.IncidentContext)
	if !ok {
		return nil, fmt.Errorf("instance %s context is not an incident context: %w", instanceID, ErrNotAnIncident)
	}

	return incident.DeadlineStatus(incidentCtx, time.Now().UTC())
}

func (s *Compliance) appendAudit(ctx context.Context, instanceID string, results []models.TransitionResult) {
	for _, result := range results {
		err := s.persistence.AuditRepository().Append(ctx, instanceID, result)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to append audit entry",
				"instance_id", instanceID, "event", result.TransitionEvent, "error", err)
		}
	}
}

func (s *Compliance) publishTransitions(ctx context.Context, instance *models.WorkflowInstance, results []models.TransitionResult, actor string) {
	def, err := s.registry.Definition(instance.WorkflowType, instance.Version)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to resolve definition for event publishing",
			"instance_id", instance.ID, "error", err)

		return
	}

	for _, result := range results {
		terminal := false
		if state := def.State(result.CurrentState); state != nil {
			terminal = state.Terminal
		}

		s.publish(ctx, instance.ID, events.TransitionCommitted{
			BaseEvent:     events.NewBaseEvent(events.TransitionCommittedEvent, instance.ID, instance.WorkflowType),
			Event:         result.TransitionEvent,
			PreviousState: result.PreviousState,
			CurrentState:  result.CurrentState,
			Actor:         actor,
			Terminal:      terminal,
		})
	}
}

func (s *Compliance) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.Publish(ctx, key, event)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			"key", key, "event_type", event.GetType(), "error", err)
	}
}

func (s *Compliance) release(ctx context.Context, lease lock.Lease) {
	err := lease.Release(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to release instance lock", "error", err)
	}
}
