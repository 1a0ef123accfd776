// Package health reports liveness, store reachability and run freshness.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusUp   = "up"
	StatusDown = "down"

	pingTimeout = 2 * time.Second
	lastRunName = "last_run"
)

// Pinger is satisfied by every record store backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency is one named collaborator checked on readiness.
type Dependency struct {
	Name   string
	Pinger Pinger
}

type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type HealthResult struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

type Checker struct {
	deps   []Dependency
	logger *slog.Logger
	gauge  *prometheus.GaugeVec

	lastRun      func() time.Time
	maxRunAge    time.Duration
	watchedSince time.Time
	now          func() time.Time
}

// NewChecker registers the scheduler_health_check_up gauge on reg.
func NewChecker(logger *slog.Logger, reg prometheus.Registerer, deps ...Dependency) *Checker {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "scheduler",
		Name:      "health_check_up",
		Help:      "Whether a dependency is reachable. 1 = up, 0 = down.",
	}, []string{"dependency"})
	reg.MustRegister(gauge)

	return &Checker{
		deps:   deps,
		logger: logger.With("component", "health"),
		gauge:  gauge,
		now:    time.Now,
	}
}

// WatchRuns makes readiness fail once the last completed run is older than
// maxAge. Until a run completes, age is measured from this call, so a daemon
// whose every run aborts turns unready. A zero maxAge disables it.
func (c *Checker) WatchRuns(lastRun func() time.Time, maxAge time.Duration) {
	if maxAge <= 0 {
		return
	}
	c.lastRun = lastRun
	c.maxRunAge = maxAge
	c.watchedSince = c.now()
}

func (c *Checker) Liveness(_ context.Context) HealthResult {
	return HealthResult{Status: StatusUp}
}

// Readiness pings every dependency and checks run freshness. Any failing
// check marks the result down.
func (c *Checker) Readiness(ctx context.Context) HealthResult {
	result := HealthResult{
		Status: StatusUp,
		Checks: make(map[string]CheckResult, len(c.deps)+1),
	}

	for _, d := range c.deps {
		c.record(&result, d.Name, c.ping(ctx, d))
	}

	if c.lastRun != nil {
		c.record(&result, lastRunName, c.checkRunAge())
	}

	return result
}

func (c *Checker) ping(ctx context.Context, d Dependency) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return d.Pinger.Ping(pingCtx)
}

func (c *Checker) checkRunAge() error {
	last := c.lastRun()
	if last.IsZero() {
		if age := c.now().Sub(c.watchedSince); age > c.maxRunAge {
			return fmt.Errorf("no run completed in %s since startup, limit %s", age.Round(time.Second), c.maxRunAge)
		}
		return nil
	}
	if age := c.now().Sub(last); age > c.maxRunAge {
		return fmt.Errorf("last completed run was %s ago, limit %s", age.Round(time.Second), c.maxRunAge)
	}
	return nil
}

func (c *Checker) record(result *HealthResult, name string, err error) {
	if err != nil {
		c.logger.Warn("health check failed", "check", name, "error", err)
		result.Status = StatusDown
		result.Checks[name] = CheckResult{Status: StatusDown, Error: err.Error()}
		c.gauge.WithLabelValues(name).Set(0)
		return
	}
	result.Checks[name] = CheckResult{Status: StatusUp}
	c.gauge.WithLabelValues(name).Set(1)
}
