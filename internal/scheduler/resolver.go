package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
	"github.com/ErlanBelekov/instance-scheduler/internal/repository"
)

// Resolver maps a schedule name to its period names.
type Resolver struct {
	repo   repository.ScheduleRepository
	logger *slog.Logger
}

func NewResolver(repo repository.ScheduleRepository, logger *slog.Logger) *Resolver {
	return &Resolver{
		repo:   repo,
		logger: logger.With("component", "resolver"),
	}
}

// ResolveSchedule returns the period names of the named schedule and its
// timezone. A missing or invalid schedule yields no periods and an issue.
// A schedule that exists without periods yields no periods and no issue.
// Only store failures are returned as errors.
func (r *Resolver) ResolveSchedule(ctx context.Context, name string) ([]string, string, domain.Issues, error) {
	var issues domain.Issues

	if name == "" {
		issues.Add(domain.ComponentResolver, "resource has an empty schedule tag")
		return nil, "", issues, nil
	}

	schedule, err := r.repo.GetSchedule(ctx, name)
	if errors.Is(err, domain.ErrScheduleNotFound) {
		r.logger.ErrorContext(ctx, "schedule not found", "schedule", name)
		issues.Add(domain.ComponentResolver, "schedule %q not found", name)
		return nil, "", issues, nil
	}
	if errors.Is(err, domain.ErrInvalidRecord) {
		r.logger.ErrorContext(ctx, "schedule record is invalid", "schedule", name, "error", err)
		issues.Add(domain.ComponentResolver, "%v", err)
		return nil, "", issues, nil
	}
	if err != nil {
		return nil, "", nil, fmt.Errorf("get schedule %q: %w", name, err)
	}

	periods := schedule.PeriodNames()
	if len(periods) == 0 {
		r.logger.WarnContext(ctx, "schedule has no periods", "schedule", name)
		return nil, schedule.Timezone, nil, nil
	}
	return periods, schedule.Timezone, nil, nil
}
