package postgres_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
	"github.com/ErlanBelekov/instance-scheduler/internal/infrastructure/postgres"
)

// newStore connects to TEST_DATABASE_URL and truncates the items table.
func newStore(t *testing.T) *postgres.Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, url)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE scheduler_items`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return postgres.NewStore(pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStore_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	records := []domain.Record{
		{Kind: domain.KindSchedule, Name: "us_hours", Periods: []string{"office", "gone"}, Timezone: "UTC"},
		{Kind: domain.KindPeriod, Name: "office", DaysOfWeek: "mon-fri", StartTime: "08:00", StopTime: "18:00"},
		{Kind: domain.KindPeriod, Name: "broken", DaysOfWeek: "mon", StartTime: "99:99"},
	}
	if err := store.PutRecords(ctx, records); err != nil {
		t.Fatalf("PutRecords: %v", err)
	}

	s, err := store.GetSchedule(ctx, "us_hours")
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if len(s.Periods) != 2 || s.Timezone != "UTC" {
		t.Fatalf("schedule = %+v", s)
	}

	periods, issues, err := store.BatchGetPeriods(ctx, []string{"office", "gone", "broken"})
	if err != nil {
		t.Fatalf("BatchGetPeriods: %v", err)
	}
	if len(periods) != 1 || periods[0].StartTime != "08:00" {
		t.Fatalf("periods = %+v", periods)
	}
	if len(issues) != 1 {
		t.Fatalf("issues = %v, want the broken period", issues)
	}

	all, err := store.ListRecords(ctx)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("records = %d, want 3", len(all))
	}
}

func TestStore_UpsertReplaces(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	put := func(start string) {
		t.Helper()
		err := store.PutRecords(ctx, []domain.Record{{Kind: domain.KindPeriod, Name: "office", DaysOfWeek: "mon", StartTime: start}})
		if err != nil {
			t.Fatalf("PutRecords: %v", err)
		}
	}
	put("08:00")
	put("09:00")

	periods, _, err := store.BatchGetPeriods(ctx, []string{"office"})
	if err != nil {
		t.Fatalf("BatchGetPeriods: %v", err)
	}
	if len(periods) != 1 || periods[0].StartTime != "09:00" {
		t.Fatalf("periods = %+v", periods)
	}
}

func TestStore_ScheduleNotFound(t *testing.T) {
	store := newStore(t)

	_, err := store.GetSchedule(context.Background(), "nope")
	if !errors.Is(err, domain.ErrScheduleNotFound) {
		t.Fatalf("err = %v, want ErrScheduleNotFound", err)
	}
}
