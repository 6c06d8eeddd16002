// Package authorization defines the workflow driving an authorization
// application from first document upload to the national competent
// authority's decision.
package authorization

import "github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"

// States of the authorization lifecycle.
const (
	StateNotStarted         = "not_started"
	StateInProgress         = "in_progress"
	StateReadyForSubmission = "ready_for_submission"
	StateSubmitted          = "submitted"
	StateUnderReview        = "under_review"
	StateApproved           = "approved"
	StateRejected           = "rejected"
	StateWithdrawn          = "withdrawn"
)

// Permissions gating manual transitions.
const (
	PermissionSubmit   = "reports:submit"
	PermissionWithdraw = "reports:withdraw"
	PermissionReview   = "authorizations:review"
	PermissionDecide   = "authorizations:decide"
)

const Version = 1

// Definition builds the authorization state graph. Document progress drives
// the automatic transitions, including the regression from
// ready_for_submission back to in_progress when a mandatory document becomes
// incomplete again; decisions are manual and permission gated.
func Definition() *models.WorkflowDefinition {
	withdraw := models.Transition{
		Event:               "withdraw",
		Target:              StateWithdrawn,
		RequiredPermissions: []string{PermissionWithdraw},
	}

	return &models.WorkflowDefinition{
		ID:           models.WorkflowTypeAuthorization,
		Version:      Version,
		InitialState: StateNotStarted,
		Hooks: models.Hooks{
			BeforeTransition: hookLogBefore,
			AfterTransition:  hookLogAfter,
			OnError:          hookLogError,
		},
		States: map[string]*models.State{
			StateNotStarted: {
				Name: StateNotStarted,
				Transitions: []models.Transition{
					{
						Event:     "first_document_ready",
						Target:    StateInProgress,
						Auto:      true,
						Condition: condHasReadyDocuments,
					},
					withdraw,
				},
			},
			StateInProgress: {
				Name: StateInProgress,
				Transitions: []models.Transition{
					{
						Event:     "mandatory_complete",
						Target:    StateReadyForSubmission,
						Auto:      true,
						Condition: condMandatoryCompleteUnblocked,
					},
					withdraw,
				},
			},
			StateReadyForSubmission: {
				Name: StateReadyForSubmission,
				Transitions: []models.Transition{
					{
						Event:     "mandatory_regressed",
						Target:    StateInProgress,
						Auto:      true,
						Condition: condMandatoryIncomplete,
					},
					{
						Event:               "submit",
						Target:              StateSubmitted,
						Guard:               guardSubmissionReady,
						RequiredPermissions: []string{PermissionSubmit},
					},
					withdraw,
				},
			},
			StateSubmitted: {
				Name:    StateSubmitted,
				OnEnter: actionLogSubmission,
				Transitions: []models.Transition{
					{
						Event:               "begin_review",
						Target:              StateUnderReview,
						RequiredPermissions: []string{PermissionReview},
					},
					{
						Event:               "approve",
						Target:              StateApproved,
						RequiredPermissions: []string{PermissionDecide},
					},
					{
						Event:               "reject",
						Target:              StateRejected,
						RequiredPermissions: []string{PermissionDecide},
					},
					withdraw,
				},
			},
			StateUnderReview: {
				Name: StateUnderReview,
				Transitions: []models.Transition{
					{
						Event:               "approve",
						Target:              StateApproved,
						RequiredPermissions: []string{PermissionDecide},
					},
					{
						Event:               "reject",
						Target:              StateRejected,
						RequiredPermissions: []string{PermissionDecide},
					},
					withdraw,
				},
			},
			StateApproved:  {Name: StateApproved, Terminal: true},
			StateRejected:  {Name: StateRejected, Terminal: true},
			StateWithdrawn: {Name: StateWithdrawn, Terminal: true},
		},
	}
}
