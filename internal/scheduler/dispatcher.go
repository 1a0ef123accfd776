package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ErlanBelekov/instance-scheduler/internal/correlation"
	"github.com/robfig/cron/v3"
)

// Runner is satisfied by *Orchestrator.
type Runner interface {
	Run(ctx context.Context, tagKey string) (*Summary, error)
}

// Dispatcher fires a run on a cron schedule. A tick that arrives while the
// previous run is still going is skipped.
type Dispatcher struct {
	runner  Runner
	tagKey  string
	spec    string
	timeout time.Duration
	logger  *slog.Logger

	// lastCompleted is the unix nano time of the last run that was not aborted.
	lastCompleted atomic.Int64
}

func NewDispatcher(runner Runner, tagKey, spec string, timeout time.Duration, logger *slog.Logger) (*Dispatcher, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse run schedule %q: %w", spec, err)
	}
	return &Dispatcher{
		runner:  runner,
		tagKey:  tagKey,
		spec:    spec,
		timeout: timeout,
		logger:  logger.With("component", "dispatcher"),
	}, nil
}

// Start blocks until ctx is cancelled, then waits for an in-flight run.
func (d *Dispatcher) Start(ctx context.Context) {
	cl := cronLogger{d.logger}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	// Spec was validated in NewDispatcher.
	_, _ = c.AddFunc(d.spec, func() { d.RunOnce(ctx) })

	c.Start()
	d.logger.Info("dispatcher started", "schedule", d.spec, "timeout", d.timeout)

	<-ctx.Done()
	<-c.Stop().Done()
	d.logger.Info("dispatcher shut down")
}

// RunOnce performs one bounded run and logs its summary.
func (d *Dispatcher) RunOnce(ctx context.Context) *Summary {
	if ctx.Err() != nil {
		return nil
	}
	ctx = correlation.WithRunID(ctx, correlation.NewID())
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	summary, err := d.runner.Run(ctx, d.tagKey)
	if err != nil {
		d.logger.ErrorContext(ctx, "scheduled run aborted", "error", err)
		return nil
	}
	d.lastCompleted.Store(time.Now().UnixNano())
	if summary.Status != StatusSuccess {
		d.logger.WarnContext(ctx, "scheduled run finished with issues", "issues", summary.Issues.Messages())
	}
	return summary
}

// LastCompleted returns when the last run that was not aborted finished,
// or the zero time if none has.
func (d *Dispatcher) LastCompleted() time.Time {
	ns := d.lastCompleted.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
