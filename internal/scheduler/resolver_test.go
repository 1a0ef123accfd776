package scheduler_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
	"github.com/ErlanBelekov/instance-scheduler/internal/scheduler"
)

func TestResolveSchedule(t *testing.T) {
	store := memStore([]domain.Schedule{
		{Name: "office", Periods: []string{"morning", "evening", "morning"}, Timezone: "UTC"},
		{Name: "empty"},
	}, nil)
	resolver := scheduler.NewResolver(store, discardLogger())

	tests := []struct {
		name       string
		schedule   string
		wantIDs    []string
		wantTZ     string
		wantIssues int
	}{
		{name: "periods deduplicated in order", schedule: "office", wantIDs: []string{"morning", "evening"}, wantTZ: "UTC"},
		{name: "no periods is not an issue", schedule: "empty"},
		{name: "unknown schedule", schedule: "missing", wantIssues: 1},
		{name: "empty tag", schedule: "", wantIssues: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, tz, issues, err := resolver.ResolveSchedule(context.Background(), tt.schedule)
			if err != nil {
				t.Fatalf("ResolveSchedule: %v", err)
			}
			if len(ids) != len(tt.wantIDs) {
				t.Fatalf("ids = %v, want %v", ids, tt.wantIDs)
			}
			for i := range ids {
				if ids[i] != tt.wantIDs[i] {
					t.Errorf("ids[%d] = %s, want %s", i, ids[i], tt.wantIDs[i])
				}
			}
			if tz != tt.wantTZ {
				t.Errorf("timezone = %q, want %q", tz, tt.wantTZ)
			}
			if len(issues) != tt.wantIssues {
				t.Errorf("issues = %v, want %d", issues, tt.wantIssues)
			}
		})
	}
}

func TestResolveSchedule_StoreErrorIsFatal(t *testing.T) {
	boom := errors.New("ProvisionedThroughputExceededException")
	store := &fakeStore{getSchedule: func(context.Context, string) (*domain.Schedule, error) { return nil, boom }}

	_, _, _, err := scheduler.NewResolver(store, discardLogger()).ResolveSchedule(context.Background(), "office")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
}
