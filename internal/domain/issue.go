package domain

import "fmt"

// Components that report issues.
const (
	ComponentMatcher  = "matcher"
	ComponentResolver = "resolver"
	ComponentSelector = "selector"
	ComponentStore    = "store"
	ComponentCompute  = "compute"
)

// Issue is a non-fatal error. Work continues after an issue, fail-closed.
type Issue struct {
	Component string `json:"component"`
	Message   string `json:"message"`
}

func (i Issue) String() string {
	return i.Component + ": " + i.Message
}

// Issues accumulates non-fatal errors. Components return it by value and the
// orchestrator merges the results, so no accumulator outlives a call.
type Issues []Issue

func (is *Issues) Add(component, format string, args ...any) {
	*is = append(*is, Issue{Component: component, Message: fmt.Sprintf(format, args...)})
}

func (is *Issues) Merge(other Issues) {
	*is = append(*is, other...)
}

func (is Issues) Empty() bool {
	return len(is) == 0
}

// Messages flattens the issues for response payloads.
func (is Issues) Messages() []string {
	out := make([]string, len(is))
	for i, issue := range is {
		out[i] = issue.String()
	}
	return out
}

// CountByComponent is used for per-component metrics.
func (is Issues) CountByComponent() map[string]int {
	counts := make(map[string]int)
	for _, issue := range is {
		counts[issue.Component]++
	}
	return counts
}
