package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/instance-scheduler/internal/correlation"
	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
	"github.com/ErlanBelekov/instance-scheduler/internal/metrics"
	"github.com/ErlanBelekov/instance-scheduler/internal/period"
	"github.com/ErlanBelekov/instance-scheduler/internal/repository"
	"golang.org/x/sync/errgroup"
)

// PeriodOrder controls the order in which a schedule's periods are evaluated.
type PeriodOrder string

const (
	// OrderFetched evaluates periods in the order the store returned them.
	OrderFetched PeriodOrder = "fetched"
	// OrderByName sorts periods by name first.
	OrderByName PeriodOrder = "name"
)

type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialFailure Status = "partial_failure"
)

// Options tune a run. The zero value is a sequential, live run in fetch order.
type Options struct {
	OverrideTagKey string
	DryRun         bool
	Order          PeriodOrder
	Concurrency    int
	Now            func() time.Time
}

// Summary is the result of one run.
type Summary struct {
	RunID     string                     `json:"run_id"`
	StartedAt time.Time                  `json:"started_at"`
	Duration  time.Duration              `json:"duration"`
	Status    Status                     `json:"status"`
	DryRun    bool                       `json:"dry_run"`
	Changed   []domain.StateChange       `json:"changed"`
	Outcomes  []domain.EvaluationOutcome `json:"outcomes"`
	Issues    domain.Issues              `json:"issues,omitempty"`
}

// Orchestrator runs the select, resolve, fetch, match, act pipeline.
type Orchestrator struct {
	selector *Selector
	resolver *Resolver
	periods  repository.ScheduleRepository
	compute  repository.ComputeAPI
	matcher  *period.Matcher
	opts     Options
	logger   *slog.Logger
}

func NewOrchestrator(
	store repository.ScheduleRepository,
	compute repository.ComputeAPI,
	logger *slog.Logger,
	opts Options,
) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Order == "" {
		opts.Order = OrderFetched
	}
	return &Orchestrator{
		selector: NewSelector(compute, opts.OverrideTagKey, logger),
		resolver: NewResolver(store, logger),
		periods:  store,
		compute:  compute,
		matcher:  period.NewMatcher(logger),
		opts:     opts,
		logger:   logger.With("component", "orchestrator"),
	}
}

// Run evaluates every resource carrying tagKey against one reference instant
// and applies the resulting actions. Issues make the run a partial failure;
// a returned error means a collaborator was unusable and the run was aborted.
func (o *Orchestrator) Run(ctx context.Context, tagKey string) (*Summary, error) {
	runID := correlation.RunIDFromContext(ctx)
	if runID == "" {
		runID = correlation.NewID()
		ctx = correlation.WithRunID(ctx, runID)
	}

	started := time.Now()
	now := o.opts.Now().UTC()
	summary := &Summary{
		RunID:     runID,
		StartedAt: now,
		DryRun:    o.opts.DryRun,
		Changed:   []domain.StateChange{},
	}

	o.logger.InfoContext(ctx, "run started", "tag", tagKey, "at", now, "dry_run", o.opts.DryRun)

	resources, issues, err := o.selector.SelectResources(ctx, tagKey)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("select resources: %w", err)
	}
	summary.Issues.Merge(issues)

	outcomes, err := o.evaluateAll(ctx, resources, now)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	summary.Outcomes = outcomes

	for _, out := range outcomes {
		summary.Issues.Merge(out.Issues)
		if out.Changed {
			summary.Changed = append(summary.Changed, domain.StateChange{ResourceID: out.ResourceID, Action: out.Action})
		}
	}

	summary.Status = StatusSuccess
	if !summary.Issues.Empty() {
		summary.Status = StatusPartialFailure
	}
	summary.Duration = time.Since(started)

	metrics.RunsTotal.WithLabelValues(string(summary.Status)).Inc()
	metrics.RunDuration.Observe(summary.Duration.Seconds())
	metrics.ResourcesEvaluated.Add(float64(len(resources)))
	for component, n := range summary.Issues.CountByComponent() {
		metrics.IssuesTotal.WithLabelValues(component).Add(float64(n))
	}
	if summary.Status == StatusSuccess {
		metrics.LastSuccessfulRun.SetToCurrentTime()
	}

	o.logger.InfoContext(ctx, "run finished",
		"status", summary.Status,
		"resources", len(resources),
		"changed", len(summary.Changed),
		"issues", len(summary.Issues),
		"duration", summary.Duration,
	)
	return summary, nil
}

// evaluateAll keeps outcomes in selection order regardless of concurrency.
func (o *Orchestrator) evaluateAll(ctx context.Context, resources []domain.Resource, now time.Time) ([]domain.EvaluationOutcome, error) {
	outcomes := make([]domain.EvaluationOutcome, len(resources))

	if o.opts.Concurrency == 1 {
		for i, r := range resources {
			out, err := o.evaluate(ctx, r, now)
			if err != nil {
				return nil, fmt.Errorf("resource %s: %w", r.ID, err)
			}
			outcomes[i] = out
		}
		return outcomes, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)
	for i, r := range resources {
		g.Go(func() error {
			out, err := o.evaluate(gctx, r, now)
			if err != nil {
				return fmt.Errorf("resource %s: %w", r.ID, err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (o *Orchestrator) evaluate(ctx context.Context, r domain.Resource, now time.Time) (domain.EvaluationOutcome, error) {
	out := domain.EvaluationOutcome{
		ResourceID: r.ID,
		Schedule:   r.ScheduleTag,
		Override:   r.Override,
	}
	logger := o.logger.With("resource_id", r.ID, "schedule", r.ScheduleTag)

	action, matched, issues, err := o.decide(ctx, r.ScheduleTag, now)
	out.Action, out.MatchedPeriod, out.Issues = action, matched, issues
	if err != nil {
		return out, err
	}

	if out.Action.IsNone() {
		logger.DebugContext(ctx, "no period asks for an action")
		return out, nil
	}
	if o.opts.DryRun {
		logger.InfoContext(ctx, "dry run, skipping action", "action", out.Action, "period", out.MatchedPeriod)
		return out, nil
	}

	changed, issues, err := o.apply(ctx, r.ID, out.Action)
	out.Issues.Merge(issues)
	if err != nil {
		return out, err
	}
	out.Changed = changed
	logger.InfoContext(ctx, "action applied", "action", out.Action, "period", out.MatchedPeriod, "changed", changed)
	return out, nil
}

// decide resolves a schedule and returns the first non-none action among its
// periods along with the period that asked for it.
func (o *Orchestrator) decide(ctx context.Context, schedule string, now time.Time) (domain.Action, string, domain.Issues, error) {
	var all domain.Issues

	names, _, issues, err := o.resolver.ResolveSchedule(ctx, schedule)
	all.Merge(issues)
	if err != nil {
		return domain.ActionNone, "", all, err
	}
	if len(names) == 0 {
		o.logger.WarnContext(ctx, "no periods resolved, leaving resource alone", "schedule", schedule)
		return domain.ActionNone, "", all, nil
	}

	periods, issues, err := o.periods.BatchGetPeriods(ctx, names)
	if err != nil {
		return domain.ActionNone, "", all, fmt.Errorf("fetch periods of schedule %q: %w", schedule, err)
	}
	all.Merge(issues)
	all.Merge(missingPeriods(schedule, names, periods))

	if o.opts.Order == OrderByName {
		domain.SortPeriodsByName(periods)
	}

	for _, p := range periods {
		action, issues := o.matcher.Evaluate(p, now)
		all.Merge(issues)
		if !action.IsNone() {
			return action, p.Name, all, nil
		}
	}
	return domain.ActionNone, "", all, nil
}

// Check evaluates a schedule at the given instant without touching any
// resource.
func (o *Orchestrator) Check(ctx context.Context, schedule string, at time.Time) (domain.EvaluationOutcome, error) {
	action, matched, issues, err := o.decide(ctx, schedule, at.UTC())
	if err != nil {
		return domain.EvaluationOutcome{}, err
	}
	return domain.EvaluationOutcome{
		Schedule:      schedule,
		Action:        action,
		MatchedPeriod: matched,
		Issues:        issues,
	}, nil
}

// apply issues the start or stop call. Refusals that concern only this
// resource become issues.
func (o *Orchestrator) apply(ctx context.Context, id string, action domain.Action) (bool, domain.Issues, error) {
	var (
		transition domain.StateTransition
		err        error
		issues     domain.Issues
	)
	switch action {
	case domain.ActionStart:
		transition, err = o.compute.Start(ctx, id)
	case domain.ActionStop:
		transition, err = o.compute.Stop(ctx, id)
	default:
		return false, nil, nil
	}

	switch {
	case errors.Is(err, domain.ErrResourceNotFound),
		errors.Is(err, domain.ErrActionDenied),
		errors.Is(err, domain.ErrIncorrectState):
		metrics.ActionsTotal.WithLabelValues(string(action), "refused").Inc()
		o.logger.WarnContext(ctx, "compute refused action", "resource_id", id, "action", action, "error", err)
		issues.Add(domain.ComponentCompute, "%s %s: %v", action, id, err)
		return false, issues, nil
	case err != nil:
		metrics.ActionsTotal.WithLabelValues(string(action), "error").Inc()
		return false, nil, fmt.Errorf("%s %s: %w", action, id, err)
	}

	outcome := "unchanged"
	if transition.Changed() {
		outcome = "changed"
	}
	metrics.ActionsTotal.WithLabelValues(string(action), outcome).Inc()
	return transition.Changed(), nil, nil
}

// missingPeriods diffs requested names against the periods returned.
func missingPeriods(schedule string, requested []string, got []domain.Period) domain.Issues {
	var issues domain.Issues
	if len(got) >= len(requested) {
		return nil
	}
	returned := make(map[string]struct{}, len(got))
	for _, p := range got {
		returned[p.Name] = struct{}{}
	}
	for _, name := range requested {
		if _, ok := returned[name]; !ok {
			issues.Add(domain.ComponentStore, "schedule %q: period %q was not returned by the store", schedule, name)
		}
	}
	return issues
}
