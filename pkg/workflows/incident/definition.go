// Package incident defines the incident-reporting workflow, including the
// static classification table driving per-category NCA notification
// deadlines.
package incident

import "github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"

// States of the incident lifecycle.
const (
	StateReported      = "reported"
	StateTriaged       = "triaged"
	StateInvestigating = "investigating"
	StateMitigating    = "mitigating"
	StateResolved      = "resolved"
	StateClosed        = "closed"
)

// Permissions gating manual transitions.
const (
	PermissionTriage = "incidents:triage"
	PermissionManage = "incidents:manage"
	PermissionNotify = "incidents:notify"
	PermissionClose  = "incidents:close"
)

// EventRecordNCANotification records the regulator notification. It is a
// self-transition: notification is orthogonal to resolution progress, so the
// current state stays put while the action stamps the notification facts into
// the context.
const EventRecordNCANotification = "record_nca_notification"

const Version = 1

// Definition builds the incident state graph. Triage happens automatically
// once a severity has been assigned; everything after that is operator
// driven. Closing is guarded: an incident whose category requires NCA
// notification cannot close before the notification is recorded.
func Definition() *models.WorkflowDefinition {
	recordNotification := func(state string) models.Transition {
		return models.Transition{
			Event:               EventRecordNCANotification,
			Target:              state,
			Guard:               guardNotificationPending,
			RequiredPermissions: []string{PermissionNotify},
			OnTransition:        actionRecordNCANotification,
		}
	}

	return &models.WorkflowDefinition{
		ID:           models.WorkflowTypeIncident,
		Version:      Version,
		InitialState: StateReported,
		Hooks: models.Hooks{
			BeforeTransition: hookLogBefore,
			AfterTransition:  hookLogAfter,
			OnError:          hookLogError,
		},
		States: map[string]*models.State{
			StateReported: {
				Name: StateReported,
				Transitions: []models.Transition{
					{
						Event:     "severity_assigned",
						Target:    StateTriaged,
						Auto:      true,
						Condition: condHasSeverity,
					},
					{
						Event:               "triage",
						Target:              StateTriaged,
						RequiredPermissions: []string{PermissionTriage},
					},
				},
			},
			StateTriaged: {
				Name:    StateTriaged,
				OnEnter: actionArmDeadline,
				Transitions: []models.Transition{
					{
						Event:               "begin_investigation",
						Target:              StateInvestigating,
						RequiredPermissions: []string{PermissionManage},
					},
					recordNotification(StateTriaged),
				},
			},
			StateInvestigating: {
				Name: StateInvestigating,
				Transitions: []models.Transition{
					{
						Event:               "begin_mitigation",
						Target:              StateMitigating,
						RequiredPermissions: []string{PermissionManage},
					},
					recordNotification(StateInvestigating),
				},
			},
			StateMitigating: {
				Name: StateMitigating,
				Transitions: []models.Transition{
					{
						Event:               "resolve",
						Target:              StateResolved,
						RequiredPermissions: []string{PermissionManage},
					},
					recordNotification(StateMitigating),
				},
			},
			StateResolved: {
				Name: StateResolved,
				Transitions: []models.Transition{
					{
						Event:               "close",
						Target:              StateClosed,
						Guard:               guardClosable,
						RequiredPermissions: []string{PermissionClose},
					},
					{
						Event:               "reopen",
						Target:              StateInvestigating,
						RequiredPermissions: []string{PermissionManage},
					},
					recordNotification(StateResolved),
				},
			},
			StateClosed: {Name: StateClosed, Terminal: true},
		},
	}
}
