package models

// State is a named node in a workflow graph. Behavior on entry and exit is
// referenced by callback identifier and resolved through the callback
// registry, so the definition itself stays plain, serializable data.
type State struct {
	Name     string `json:"name"     validate:"required"`
	OnEnter  string `json:"on_enter,omitempty"`
	OnExit   string `json:"on_exit,omitempty"`
	Terminal bool   `json:"terminal,omitempty"`

	// Transitions keeps definition order. When several automatic conditions
	// hold at once, the first matching transition wins.
	Transitions []Transition `json:"transitions,omitempty"`
}

// Transition belongs to exactly one source state. Its event name is unique
// within that state, not globally.
type Transition struct {
	Event  string `json:"event"  validate:"required"`
	Target string `json:"target" validate:"required"`
	Auto   bool   `json:"auto,omitempty"`

	// Condition is required for automatic transitions.
	Condition string `json:"condition,omitempty"`

	// Guard and RequiredPermissions gate manual transitions. Both kinds of
	// denial are reported to the caller identically.
	Guard               string   `json:"guard,omitempty"`
	RequiredPermissions []string `json:"required_permissions,omitempty"`

	OnTransition string `json:"on_transition,omitempty"`
}

// Hooks are definition-wide callbacks wrapped around every transition.
type Hooks struct {
	BeforeTransition string `json:"before_transition,omitempty"`
	AfterTransition  string `json:"after_transition,omitempty"`
	OnError          string `json:"on_error,omitempty"`
}

// WorkflowDefinition is the full state graph for one workflow type. It is
// built once at process start, validated on registration and read-only
// afterwards.
type WorkflowDefinition struct {
	ID           string            `json:"id"            validate:"required"`
	Version      int               `json:"version"       validate:"required,min=1"`
	InitialState string            `json:"initial_state" validate:"required"`
	States       map[string]*State `json:"states"        validate:"required"`
	Hooks        Hooks             `json:"hooks,omitempty"`
}

// State returns the named state, or nil when it is not part of the graph.
func (d *WorkflowDefinition) State(name string) *State {
	return d.States[name]
}

// TransitionFor returns the transition with the given event name defined on
// the named state.
func (d *WorkflowDefinition) TransitionFor(stateName, event string) (*Transition, bool) {
	state := d.States[stateName]
	if state == nil {
		return nil, false
	}

	for i := range state.Transitions {
		if state.Transitions[i].Event == event {
			return &state.Transitions[i], true
		}
	}

	return nil, false
}
