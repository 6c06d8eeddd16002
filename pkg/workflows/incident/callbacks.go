package incident

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/registry"
)

// Callback identifiers referenced by the definition.
const (
	condHasSeverity = "has_severity"

	guardNotificationPending = "notification_pending"
	guardClosable            = "closable"

	actionArmDeadline           = "arm_deadline"
	actionRecordNCANotification = "record_nca_notification"

	hookLogBefore = "log_before_transition"
	hookLogAfter  = "log_after_transition"
	hookLogError  = "log_transition_error"
)

func incidentContext(wctx models.Context) (*models.IncidentContext, error) {
	typed, ok := wctx.(*models.IncidentContext)
	if !ok {
		return nil, fmt.Errorf("expected incident context, got %T", wctx)
	}

	return typed, nil
}

// RegisterCallbacks wires the behavior referenced by Definition into the
// callback registry. The clock is injectable so notification timestamps are
// deterministic under test.
func RegisterCallbacks(callbacks *registry.CallbackRegistry, logger *slog.Logger, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}

	workflowType := models.WorkflowTypeIncident

	err := callbacks.RegisterCondition(workflowType, condHasSeverity,
		func(_ context.Context, wctx models.Context) (bool, error) {
			typed, err := incidentContext(wctx)
			if err != nil {
				return false, err
			}

			return typed.Severity != "", nil
		})
	if err != nil {
		return err
	}

	err = callbacks.RegisterGuard(workflowType, guardNotificationPending,
		func(_ context.Context, wctx models.Context) (bool, error) {
			typed, err := incidentContext(wctx)
			if err != nil {
				return false, err
			}

			return typed.NCANotifiedAt == nil, nil
		})
	if err != nil {
		return err
	}

	// An incident whose category carries a notification duty may not close
	// before that notification is on record.
	err = callbacks.RegisterGuard(workflowType, guardClosable,
		func(_ context.Context, wctx models.Context) (bool, error) {
			typed, err := incidentContext(wctx)
			if err != nil {
				return false, err
			}

			entry, err := Classify(typed.Category)
			if err != nil {
				return false, err
			}

			if entry.DeadlineHours > 0 && typed.NCANotifiedAt == nil {
				return false, nil
			}

			return true, nil
		})
	if err != nil {
		return err
	}

	err = callbacks.RegisterAction(workflowType, actionArmDeadline,
		func(ctx context.Context, wctx models.Context) error {
			typed, err := incidentContext(wctx)
			if err != nil {
				return err
			}

			entry, err := Classify(typed.Category)
			if err != nil {
				return err
			}

			deadline := typed.ReportedAt.Add(time.Duration(entry.DeadlineHours) * time.Hour)

			typed.RequiresNCANotification = entry.DeadlineHours > 0
			typed.NCADeadlineHours = entry.DeadlineHours
			typed.HasActiveDeadline = typed.RequiresNCANotification && typed.NCANotifiedAt == nil
			typed.DeadlineAt = &deadline

			logger.InfoContext(ctx, "Notification deadline armed",
				"category", typed.Category,
				"deadline_hours", entry.DeadlineHours,
				"deadline_at", deadline,
			)

			return nil
		})
	if err != nil {
		return err
	}

	err = callbacks.RegisterAction(workflowType, actionRecordNCANotification,
		func(ctx context.Context, wctx models.Context) error {
			typed, err := incidentContext(wctx)
			if err != nil {
				return err
			}

			entry, err := Classify(typed.Category)
			if err != nil {
				return err
			}

			notifiedAt := now().UTC()
			typed.NCANotifiedAt = &notifiedAt
			typed.HasActiveDeadline = false

			if entry.RequiresEUSPANotification {
				typed.EUSPANotifiedAt = &notifiedAt
			}

			logger.InfoContext(ctx, "NCA notification recorded",
				"category", typed.Category,
				"nca_reference", typed.NCAReference,
				"euspa_notified", entry.RequiresEUSPANotification,
			)

			return nil
		})
	if err != nil {
		return err
	}

	return registerLoggingHooks(callbacks, workflowType, logger)
}

func registerLoggingHooks(callbacks *registry.CallbackRegistry, workflowType string, logger *slog.Logger) error {
	err := callbacks.RegisterHook(workflowType, hookLogBefore,
		func(ctx context.Context, event registry.HookEvent) error {
			logger.DebugContext(ctx, "Transition starting",
				"instance_id", event.InstanceID, "event", event.Event,
				"from", event.From, "to", event.To)

			return nil
		})
	if err != nil {
		return err
	}

	err = callbacks.RegisterHook(workflowType, hookLogAfter,
		func(ctx context.Context, event registry.HookEvent) error {
			logger.DebugContext(ctx, "Transition finished",
				"instance_id", event.InstanceID, "event", event.Event,
				"from", event.From, "to", event.To)

			return nil
		})
	if err != nil {
		return err
	}

	return callbacks.RegisterErrorHook(workflowType, hookLogError,
		func(ctx context.Context, hookErr error, event registry.HookEvent) {
			logger.ErrorContext(ctx, "Transition callback failed",
				"instance_id", event.InstanceID, "event", event.Event,
				"from", event.From, "to", event.To, "error", hookErr)
		})
}
