package domain

import "errors"

var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrActionDenied     = errors.New("action not authorized")
	ErrIncorrectState   = errors.New("resource is not in a state that allows the action")
)

// Resource is one compute resource carrying the scheduler tag.
type Resource struct {
	ID          string
	ScheduleTag string
	// Override is advisory metadata read from the override tag. The action
	// logic does not consult it.
	Override string
}

// StateTransition is the lifecycle state reported by a start or stop call.
type StateTransition struct {
	Previous string
	Current  string
}

// Changed reports whether the call moved the resource to a different state.
func (t StateTransition) Changed() bool {
	return t.Previous != t.Current
}

// StateChange records an action that actually transitioned a resource.
type StateChange struct {
	ResourceID string `json:"resource_id"`
	Action     Action `json:"action"`
}

// EvaluationOutcome is the result of running the pipeline for one resource.
type EvaluationOutcome struct {
	ResourceID    string `json:"resource_id"`
	Schedule      string `json:"schedule"`
	Override      string `json:"override,omitempty"`
	Action        Action `json:"action"`
	MatchedPeriod string `json:"matched_period,omitempty"`
	Changed       bool   `json:"changed"`
	Issues        Issues `json:"issues,omitempty"`
}
