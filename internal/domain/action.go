package domain

// Action is the decision produced by evaluating a period at an instant.
type Action string

const (
	ActionNone  Action = "none"
	ActionStart Action = "start"
	ActionStop  Action = "stop"
)

func (a Action) String() string {
	if a == "" {
		return string(ActionNone)
	}
	return string(a)
}

// IsNone reports whether a requires no compute call. The zero value counts as none.
func (a Action) IsNone() bool {
	return a == "" || a == ActionNone
}
