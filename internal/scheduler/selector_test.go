package scheduler_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
	"github.com/ErlanBelekov/instance-scheduler/internal/scheduler"
)

func TestSelectResources_FlattensPagesAndDedupes(t *testing.T) {
	compute := &fakeCompute{
		pages: [][]string{{"i-1", "i-2"}, {"i-2", "i-3"}},
		tags: map[string]map[string]string{
			"i-1": {tagKey: "office", "override": "on"},
			"i-2": {tagKey: "office"},
			"i-3": {tagKey: ""},
		},
	}

	got, issues, err := scheduler.NewSelector(compute, "override", discardLogger()).SelectResources(context.Background(), tagKey)
	if err != nil {
		t.Fatalf("SelectResources: %v", err)
	}
	if !issues.Empty() {
		t.Fatalf("issues = %v", issues)
	}
	want := []domain.Resource{
		{ID: "i-1", ScheduleTag: "office", Override: "on"},
		{ID: "i-2", ScheduleTag: "office"},
		{ID: "i-3"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d resources, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("resource[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSelectResources_VanishedResourceIsIssue(t *testing.T) {
	compute := &fakeCompute{
		pages: [][]string{{"i-gone", "i-1"}},
		tagValues: func(_ context.Context, id string, _ ...string) (map[string]string, error) {
			if id == "i-gone" {
				return nil, domain.ErrResourceNotFound
			}
			return map[string]string{tagKey: "office"}, nil
		},
	}

	got, issues, err := scheduler.NewSelector(compute, "override", discardLogger()).SelectResources(context.Background(), tagKey)
	if err != nil {
		t.Fatalf("SelectResources: %v", err)
	}
	if len(got) != 1 || got[0].ID != "i-1" {
		t.Fatalf("resources = %+v, want only i-1", got)
	}
	if len(issues) != 1 || issues[0].Component != domain.ComponentSelector {
		t.Fatalf("issues = %v, want one selector issue", issues)
	}
}

func TestSelectResources_TagLookupFailureIsFatal(t *testing.T) {
	boom := errors.New("throttled")
	compute := &fakeCompute{
		pages: [][]string{{"i-1"}},
		tagValues: func(context.Context, string, ...string) (map[string]string, error) {
			return nil, boom
		},
	}

	_, _, err := scheduler.NewSelector(compute, "override", discardLogger()).SelectResources(context.Background(), tagKey)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped throttled", err)
	}
}

func TestSelectResources_NoOverrideKeyRequestsOnlyScheduleTag(t *testing.T) {
	compute := &fakeCompute{
		pages: [][]string{{"i-1"}},
		tagValues: func(_ context.Context, _ string, keys ...string) (map[string]string, error) {
			if len(keys) != 1 || keys[0] != tagKey {
				t.Errorf("keys = %v, want [%s]", keys, tagKey)
			}
			return map[string]string{tagKey: "office"}, nil
		},
	}

	if _, _, err := scheduler.NewSelector(compute, "", discardLogger()).SelectResources(context.Background(), tagKey); err != nil {
		t.Fatalf("SelectResources: %v", err)
	}
}
