// Package period decides which action a period asks for at a given instant.
package period

import (
	"log/slog"
	"strings"
	"time"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
)

// Matcher evaluates periods. It holds no state besides its logger, so the
// same (period, instant) pair always yields the same result.
type Matcher struct {
	logger *slog.Logger
}

func NewMatcher(logger *slog.Logger) *Matcher {
	return &Matcher{logger: logger.With("component", "matcher")}
}

// Evaluate returns the action p asks for at the instant at, evaluated on UTC.
// Malformed periods resolve to ActionNone and are reported in the returned issues.
func (m *Matcher) Evaluate(p domain.Period, at time.Time) (domain.Action, domain.Issues) {
	var issues domain.Issues
	at = at.UTC()

	if strings.TrimSpace(p.DaysOfWeek) == "" {
		m.logger.Warn("period has no days listed, it never matches", "period", p.Name)
		return domain.ActionNone, nil
	}

	days := matchDays(p.DaysOfWeek, at.Weekday())
	for i, problem := range days.problems {
		if days.aborted && i == len(days.problems)-1 {
			issues.Add(domain.ComponentMatcher, "period %q: %s; the whole period is skipped", p.Name, problem)
			continue
		}
		issues.Add(domain.ComponentMatcher, "period %q: %s; only this day token is skipped", p.Name, problem)
	}
	if days.aborted {
		m.logger.Error("period days failed to parse, skipping period", "period", p.Name, "days_of_week", p.DaysOfWeek)
		return domain.ActionNone, issues
	}
	if !days.matched {
		m.logger.Debug("period day does not match", "period", p.Name, "days_of_week", p.DaysOfWeek, "weekday", at.Weekday())
		return domain.ActionNone, issues
	}

	shouldStart, err := m.shouldStart(p, at)
	if err != nil {
		issues.Add(domain.ComponentMatcher, "period %q: start time: %v", p.Name, err)
		return domain.ActionNone, issues
	}
	shouldStop, err := m.shouldStop(p, at)
	if err != nil {
		issues.Add(domain.ComponentMatcher, "period %q: stop time: %v", p.Name, err)
		return domain.ActionNone, issues
	}

	// Stop is checked first so a stop-only period still stops past its stop time.
	action := domain.ActionNone
	switch {
	case shouldStop:
		action = domain.ActionStop
	case !shouldStart:
		action = domain.ActionNone
	default:
		action = domain.ActionStart
	}

	m.logger.Debug("period evaluated",
		"period", p.Name,
		"at", at.Format(time.RFC3339),
		"should_start", shouldStart,
		"should_stop", shouldStop,
		"action", action,
	)
	return action, issues
}

func (m *Matcher) shouldStart(p domain.Period, at time.Time) (bool, error) {
	start := strings.TrimSpace(p.StartTime)
	if start == "" {
		return false, nil
	}
	if isMidnightAlias(start) {
		m.logger.Debug("start time 24:00 treated as start of day", "period", p.Name)
		start = startOfDay
	}
	boundary, err := parseClock(start)
	if err != nil {
		return false, err
	}
	return clockOf(at) >= boundary, nil
}

func (m *Matcher) shouldStop(p domain.Period, at time.Time) (bool, error) {
	stop := strings.TrimSpace(p.StopTime)
	if stop == "" {
		return false, nil
	}
	if isMidnightAlias(stop) {
		stop = endOfDay
	}
	// TODO: decide whether a 00:00 stop means start of today or start of tomorrow.
	// Until then it is compared literally, which stops the resource all day.
	if stop == startOfDay {
		m.logger.Warn("stop time 00:00 matches every instant of the day", "period", p.Name)
	}
	boundary, err := parseClock(stop)
	if err != nil {
		return false, err
	}
	return clockOf(at) >= boundary, nil
}
