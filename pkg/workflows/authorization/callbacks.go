package authorization

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/registry"
)

// Callback identifiers referenced by the definition.
const (
	condHasReadyDocuments          = "has_ready_documents"
	condMandatoryCompleteUnblocked = "mandatory_complete_unblocked"
	condMandatoryIncomplete        = "mandatory_incomplete"

	guardSubmissionReady = "submission_ready"

	actionLogSubmission = "log_submission"

	hookLogBefore = "log_before_transition"
	hookLogAfter  = "log_after_transition"
	hookLogError  = "log_transition_error"
)

func authorizationContext(wctx models.Context) (*models.AuthorizationContext, error) {
	typed, ok := wctx.(*models.AuthorizationContext)
	if !ok {
		return nil, fmt.Errorf("expected authorization context, got %T", wctx)
	}

	return typed, nil
}

// RegisterCallbacks wires the behavior referenced by Definition into the
// callback registry.
func RegisterCallbacks(callbacks *registry.CallbackRegistry, logger *slog.Logger) error {
	workflowType := models.WorkflowTypeAuthorization

	err := callbacks.RegisterCondition(workflowType, condHasReadyDocuments,
		func(_ context.Context, wctx models.Context) (bool, error) {
			typed, err := authorizationContext(wctx)
			if err != nil {
				return false, err
			}

			return typed.ReadyDocuments >= 1, nil
		})
	if err != nil {
		return err
	}

	err = callbacks.RegisterCondition(workflowType, condMandatoryCompleteUnblocked,
		func(_ context.Context, wctx models.Context) (bool, error) {
			typed, err := authorizationContext(wctx)
			if err != nil {
				return false, err
			}

			return typed.AllMandatoryComplete && !typed.HasBlockers, nil
		})
	if err != nil {
		return err
	}

	err = callbacks.RegisterCondition(workflowType, condMandatoryIncomplete,
		func(_ context.Context, wctx models.Context) (bool, error) {
			typed, err := authorizationContext(wctx)
			if err != nil {
				return false, err
			}

			return !typed.AllMandatoryComplete, nil
		})
	if err != nil {
		return err
	}

	// The guard re-checks completeness at call time: the decision to submit
	// may rest on a context snapshot that went stale between check and
	// submit.
	err = callbacks.RegisterGuard(workflowType, guardSubmissionReady,
		func(_ context.Context, wctx models.Context) (bool, error) {
			typed, err := authorizationContext(wctx)
			if err != nil {
				return false, err
			}

			return typed.AllMandatoryComplete && !typed.HasBlockers, nil
		})
	if err != nil {
		return err
	}

	err = callbacks.RegisterAction(workflowType, actionLogSubmission,
		func(ctx context.Context, wctx models.Context) error {
			typed, err := authorizationContext(wctx)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Authorization application submitted",
				"pathway", typed.Pathway,
				"primary_nca", typed.PrimaryNCA,
				"completeness", typed.CompletenessPercentage,
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
