package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
	"github.com/ErlanBelekov/instance-scheduler/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	getSchedule     func(ctx context.Context, name string) (*domain.Schedule, error)
	batchGetPeriods func(ctx context.Context, names []string) ([]domain.Period, domain.Issues, error)
}

func (f *fakeStore) GetSchedule(ctx context.Context, name string) (*domain.Schedule, error) {
	return f.getSchedule(ctx, name)
}

func (f *fakeStore) BatchGetPeriods(ctx context.Context, names []string) ([]domain.Period, domain.Issues, error) {
	return f.batchGetPeriods(ctx, names)
}

// memStore serves fixed schedules and periods, returning periods in request order.
func memStore(schedules []domain.Schedule, periods []domain.Period) *fakeStore {
	byName := make(map[string]domain.Period, len(periods))
	for _, p := range periods {
		byName[p.Name] = p
	}
	return &fakeStore{
		getSchedule: func(_ context.Context, name string) (*domain.Schedule, error) {
			for _, s := range schedules {
				if s.Name == name {
					return &s, nil
				}
			}
			return nil, domain.ErrScheduleNotFound
		},
		batchGetPeriods: func(_ context.Context, names []string) ([]domain.Period, domain.Issues, error) {
			var out []domain.Period
			for _, n := range names {
				if p, ok := byName[n]; ok {
					out = append(out, p)
				}
			}
			return out, nil, nil
		},
	}
}

type fakePager struct {
	pages [][]string
	err   error
}

func (p *fakePager) HasMorePages() bool { return len(p.pages) > 0 || p.err != nil }

func (p *fakePager) NextPage(context.Context) ([]string, error) {
	if p.err != nil {
		err := p.err
		p.err = nil
		return nil, err
	}
	page := p.pages[0]
	p.pages = p.pages[1:]
	return page, nil
}

type call struct {
	action domain.Action
	id     string
}

type fakeCompute struct {
	pages     [][]string
	listErr   error
	tags      map[string]map[string]string
	tagValues func(ctx context.Context, id string, keys ...string) (map[string]string, error)
	start     func(ctx context.Context, id string) (domain.StateTransition, error)
	stop      func(ctx context.Context, id string) (domain.StateTransition, error)

	mu    sync.Mutex
	calls []call
}

func (f *fakeCompute) ListTagged(string) repository.ResourcePager {
	pages := make([][]string, len(f.pages))
	copy(pages, f.pages)
	return &fakePager{pages: pages, err: f.listErr}
}

func (f *fakeCompute) TagValues(ctx context.Context, id string, keys ...string) (map[string]string, error) {
	if f.tagValues != nil {
		return f.tagValues(ctx, id, keys...)
	}
	out := make(map[string]string)
	for _, k := range keys {
		if v, ok := f.tags[id][k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (f *fakeCompute) record(a domain.Action, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{action: a, id: id})
}

func (f *fakeCompute) Start(ctx context.Context, id string) (domain.StateTransition, error) {
	f.record(domain.ActionStart, id)
	if f.start != nil {
		return f.start(ctx, id)
	}
	return domain.StateTransition{Previous: "stopped", Current: "pending"}, nil
}

func (f *fakeCompute) Stop(ctx context.Context, id string) (domain.StateTransition, error) {
	f.record(domain.ActionStop, id)
	if f.stop != nil {
		return f.stop(ctx, id)
	}
	return domain.StateTransition{Previous: "running", Current: "stopping"}, nil
}

func (f *fakeCompute) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}
