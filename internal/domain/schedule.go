package domain

import (
	"errors"
	"slices"
)

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrInvalidRecord    = errors.New("invalid record")
	ErrUnknownTrigger   = errors.New("unknown trigger")
)

// Schedule is a named set of periods assigned to resources through the schedule tag.
type Schedule struct {
	Name    string
	Periods []string
	// Timezone is carried through from storage but never applied; evaluation runs on UTC.
	Timezone string
}

// PeriodNames returns the schedule's period names with duplicates removed,
// keeping the first occurrence of each.
func (s *Schedule) PeriodNames() []string {
	seen := make(map[string]struct{}, len(s.Periods))
	names := make([]string, 0, len(s.Periods))
	for _, p := range s.Periods {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		names = append(names, p)
	}
	return names
}

// Period is a named day/time window. Empty fields mean "not set".
type Period struct {
	Name       string
	DaysOfWeek string
	StartTime  string
	StopTime   string
}

// SortPeriodsByName orders periods lexicographically by name. Used when a
// deterministic evaluation order is configured instead of fetch order.
func SortPeriodsByName(periods []Period) {
	slices.SortStableFunc(periods, func(a, b Period) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
}
