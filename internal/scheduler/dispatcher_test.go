package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ErlanBelekov/instance-scheduler/internal/correlation"
	"github.com/ErlanBelekov/instance-scheduler/internal/scheduler"
)

type runnerFunc func(ctx context.Context, tagKey string) (*scheduler.Summary, error)

func (f runnerFunc) Run(ctx context.Context, tagKey string) (*scheduler.Summary, error) {
	return f(ctx, tagKey)
}

func TestNewDispatcher_RejectsBadSchedule(t *testing.T) {
	_, err := scheduler.NewDispatcher(runnerFunc(nil), tagKey, "every five minutes", time.Minute, discardLogger())
	if err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestRunOnce_BoundsRunAndSetsRunID(t *testing.T) {
	var (
		gotTag   string
		gotRunID string
		deadline bool
	)
	runner := runnerFunc(func(ctx context.Context, tag string) (*scheduler.Summary, error) {
		gotTag = tag
		gotRunID = correlation.RunIDFromContext(ctx)
		_, deadline = ctx.Deadline()
		return &scheduler.Summary{Status: scheduler.StatusSuccess}, nil
	})

	d, err := scheduler.NewDispatcher(runner, tagKey, "*/5 * * * *", time.Minute, discardLogger())
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	if !d.LastCompleted().IsZero() {
		t.Fatal("LastCompleted set before any run")
	}
	if summary := d.RunOnce(context.Background()); summary == nil {
		t.Fatal("RunOnce returned nil summary")
	}
	if d.LastCompleted().IsZero() {
		t.Error("LastCompleted not set after a completed run")
	}
	if gotTag != tagKey {
		t.Errorf("tag = %q, want %q", gotTag, tagKey)
	}
	if gotRunID == "" {
		t.Error("run id missing from context")
	}
	if !deadline {
		t.Error("run context has no deadline")
	}
}

func TestRunOnce_AbortedRunReturnsNil(t *testing.T) {
	runner := runnerFunc(func(context.Context, string) (*scheduler.Summary, error) {
		return nil, errors.New("store unreachable")
	})
	d, err := scheduler.NewDispatcher(runner, tagKey, "@every 1m", 0, discardLogger())
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	if summary := d.RunOnce(context.Background()); summary != nil {
		t.Fatalf("summary = %+v, want nil", summary)
	}
	if !d.LastCompleted().IsZero() {
		t.Error("aborted run counted as completed")
	}
}

func TestStart_ReturnsOnCancel(t *testing.T) {
	d, err := scheduler.NewDispatcher(runnerFunc(func(context.Context, string) (*scheduler.Summary, error) {
		return &scheduler.Summary{Status: scheduler.StatusSuccess}, nil
	}), tagKey, "@every 1h", time.Minute, discardLogger())
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestStart_WaitsForInFlightRun(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	runner := runnerFunc(func(ctx context.Context, _ string) (*scheduler.Summary, error) {
		close(started)
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil, ctx.Err()
	})
	d, err := scheduler.NewDispatcher(runner, tagKey, "@every 1s", time.Minute, discardLogger())
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("run never started")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	if !finished.Load() {
		t.Error("Start returned before the in-flight run finished")
	}
}
