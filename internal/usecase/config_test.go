package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
	"github.com/ErlanBelekov/instance-scheduler/internal/usecase"
)

// ---- fakes ----

type fakeRecordRepo struct {
	listRecords func(ctx context.Context) ([]domain.Record, error)
	putRecords  func(ctx context.Context, records []domain.Record) error
}

func (r *fakeRecordRepo) ListRecords(ctx context.Context) ([]domain.Record, error) {
	return r.listRecords(ctx)
}

func (r *fakeRecordRepo) PutRecords(ctx context.Context, records []domain.Record) error {
	return r.putRecords(ctx, records)
}

type fakeObjects struct {
	get func(ctx context.Context, key string) ([]byte, error)
	put func(ctx context.Context, key string, data []byte) error
}

func (o *fakeObjects) Get(ctx context.Context, key string) ([]byte, error) { return o.get(ctx, key) }

func (o *fakeObjects) Put(ctx context.Context, key string, data []byte) error {
	return o.put(ctx, key, data)
}

// ---- helpers ----

const defaultKey = "automated_config.json"

const sampleJSON = `[
	{"pk": "schedule", "sk": "us_hours", "periods": ["MON-THU", "FRI-START-10:00"], "timezone": "UTC"},
	{"pk": "period", "sk": "MON-THU", "days_of_week": "mon-thu", "start_time": "08:00", "stop_time": "18:00"},
	{"pk": "period", "sk": "FRI-START-10:00", "days_of_week": "fri", "start_time": "10:00", "stop_time": "18:00"}
]`

func newUsecase(repo *fakeRecordRepo, objects *fakeObjects) *usecase.ConfigUsecase {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if objects == nil {
		return usecase.NewConfigUsecase(repo, nil, defaultKey, logger)
	}
	return usecase.NewConfigUsecase(repo, objects, defaultKey, logger)
}

// ---- Import ----

func TestImport_DefaultKeyWritesRecords(t *testing.T) {
	var written []domain.Record
	repo := &fakeRecordRepo{putRecords: func(_ context.Context, records []domain.Record) error {
		written = records
		return nil
	}}
	objects := &fakeObjects{get: func(_ context.Context, key string) ([]byte, error) {
		if key != defaultKey {
			t.Errorf("key = %q, want %q", key, defaultKey)
		}
		return []byte(sampleJSON), nil
	}}

	n, err := newUsecase(repo, objects).Import(context.Background(), "")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 3 || len(written) != 3 {
		t.Fatalf("imported %d, wrote %d, want 3", n, len(written))
	}
	if written[0].Kind != domain.KindSchedule || len(written[0].Periods) != 2 {
		t.Errorf("schedule record = %+v", written[0])
	}
}

func TestImport_InvalidRecordWritesNothing(t *testing.T) {
	repo := &fakeRecordRepo{putRecords: func(context.Context, []domain.Record) error {
		t.Fatal("PutRecords called for invalid document")
		return nil
	}}
	objects := &fakeObjects{get: func(context.Context, string) ([]byte, error) {
		return []byte(`[{"pk": "period", "sk": "bad", "start_time": "8am"}, {"pk": "holiday", "sk": "x"}]`), nil
	}}

	_, err := newUsecase(repo, objects).Import(context.Background(), "bad.json")
	if !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("err = %v, want ErrInvalidRecord", err)
	}
	if !strings.Contains(err.Error(), "bad") || !strings.Contains(err.Error(), "holiday") {
		t.Errorf("err = %v, want both records named", err)
	}
}

func TestImport_UnknownFieldRejected(t *testing.T) {
	repo := &fakeRecordRepo{}
	objects := &fakeObjects{get: func(context.Context, string) ([]byte, error) {
		return []byte(`[{"pk": "period", "sk": "p", "days": "mon"}]`), nil
	}}

	_, err := newUsecase(repo, objects).Import(context.Background(), "typo.json")
	if !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("err = %v, want ErrInvalidRecord", err)
	}
}

func TestImport_MissingObject(t *testing.T) {
	objects := &fakeObjects{get: func(context.Context, string) ([]byte, error) {
		return nil, domain.ErrObjectNotFound
	}}

	_, err := newUsecase(&fakeRecordRepo{}, objects).Import(context.Background(), "nope.json")
	if !errors.Is(err, domain.ErrObjectNotFound) {
		t.Fatalf("err = %v, want ErrObjectNotFound", err)
	}
}

func TestImport_NoObjectStore(t *testing.T) {
	if _, err := newUsecase(&fakeRecordRepo{}, nil).Import(context.Background(), ""); err == nil {
		t.Fatal("expected error without object store")
	}
}

func TestImportDocument_YAML(t *testing.T) {
	doc := `
- pk: schedule
  sk: office
  periods: [day]
- pk: period
  sk: day
  days_of_week: mon-fri
  start_time: "08:00"
  stop_time: "18:00"
`
	var written []domain.Record
	repo := &fakeRecordRepo{putRecords: func(_ context.Context, records []domain.Record) error {
		written = records
		return nil
	}}

	n, err := newUsecase(repo, nil).ImportDocument(context.Background(), "schedules.yaml", []byte(doc))
	if err != nil {
		t.Fatalf("ImportDocument: %v", err)
	}
	if n != 2 || written[1].StartTime != "08:00" {
		t.Fatalf("written = %+v", written)
	}
}

func TestImportDocument_DuplicatesKeepLast(t *testing.T) {
	doc := `[
		{"pk": "period", "sk": "day", "days_of_week": "mon", "start_time": "08:00"},
		{"pk": "period", "sk": "night", "days_of_week": "mon", "stop_time": "22:00"},
		{"pk": "period", "sk": "day", "days_of_week": "mon", "start_time": "09:00"}
	]`
	var written []domain.Record
	repo := &fakeRecordRepo{putRecords: func(_ context.Context, records []domain.Record) error {
		written = records
		return nil
	}}

	n, err := newUsecase(repo, nil).ImportDocument(context.Background(), "dups.json", []byte(doc))
	if err != nil {
		t.Fatalf("ImportDocument: %v", err)
	}
	if n != 2 || written[0].Name != "day" || written[0].StartTime != "09:00" {
		t.Fatalf("written = %+v", written)
	}
}

func TestImportDocument_RepeatedPeriodNamesCollapse(t *testing.T) {
	doc := `[
		{"pk": "schedule", "sk": "us_hours", "periods": ["office", "late", "office"], "timezone": "UTC"},
		{"pk": "period", "sk": "office", "days_of_week": "mon-fri", "start_time": "08:00"}
	]`
	var written []domain.Record
	repo := &fakeRecordRepo{putRecords: func(_ context.Context, records []domain.Record) error {
		written = records
		return nil
	}}

	if _, err := newUsecase(repo, nil).ImportDocument(context.Background(), "dups.json", []byte(doc)); err != nil {
		t.Fatalf("ImportDocument: %v", err)
	}
	got := written[0].Periods
	if len(got) != 2 || got[0] != "office" || got[1] != "late" {
		t.Fatalf("periods = %v, want [office late]", got)
	}
	if written[0].Timezone != "UTC" {
		t.Errorf("timezone = %q, want UTC", written[0].Timezone)
	}
}

func TestImportDocument_StoreFailure(t *testing.T) {
	boom := errors.New("2 items left unprocessed")
	repo := &fakeRecordRepo{putRecords: func(context.Context, []domain.Record) error { return boom }}

	_, err := newUsecase(repo, nil).ImportDocument(context.Background(), "c.json", []byte(sampleJSON))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
}

// ---- Export ----

func TestExport_SortedByKindThenName(t *testing.T) {
	repo := &fakeRecordRepo{listRecords: func(context.Context) ([]domain.Record, error) {
		return []domain.Record{
			{Kind: domain.KindSchedule, Name: "b"},
			{Kind: domain.KindPeriod, Name: "z"},
			{Kind: domain.KindSchedule, Name: "a"},
			{Kind: domain.KindPeriod, Name: "m"},
		}, nil
	}}

	got, err := newUsecase(repo, nil).Export(context.Background())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	want := []string{"period/m", "period/z", "schedule/a", "schedule/b"}
	for i, r := range got {
		if r.Kind+"/"+r.Name != want[i] {
			t.Errorf("record[%d] = %s/%s, want %s", i, r.Kind, r.Name, want[i])
		}
	}
}

func TestExport_EmptyStoreIsEmptyList(t *testing.T) {
	repo := &fakeRecordRepo{listRecords: func(context.Context) ([]domain.Record, error) { return nil, nil }}

	got, err := newUsecase(repo, nil).Export(context.Background())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	data, _ := json.Marshal(got)
	if string(data) != "[]" {
		t.Fatalf("json = %s, want []", data)
	}
}

func TestExportTo_WritesPrettyJSON(t *testing.T) {
	repo := &fakeRecordRepo{listRecords: func(context.Context) ([]domain.Record, error) {
		return []domain.Record{{Kind: domain.KindPeriod, Name: "day", DaysOfWeek: "mon"}}, nil
	}}
	var gotKey string
	var gotData []byte
	objects := &fakeObjects{put: func(_ context.Context, key string, data []byte) error {
		gotKey, gotData = key, data
		return nil
	}}

	n, err := newUsecase(repo, objects).ExportTo(context.Background(), "dump.json")
	if err != nil {
		t.Fatalf("ExportTo: %v", err)
	}
	if n != 1 || gotKey != "dump.json" {
		t.Fatalf("n = %d key = %s", n, gotKey)
	}
	if !strings.Contains(string(gotData), "\n    ") {
		t.Errorf("dump not indented: %s", gotData)
	}

	back, err := usecase.DecodeRecords("dump.json", gotData)
	if err != nil || len(back) != 1 || back[0].DaysOfWeek != "mon" {
		t.Fatalf("decode dump = %+v, %v", back, err)
	}
}
