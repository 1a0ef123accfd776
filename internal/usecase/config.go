package usecase

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
	"github.com/ErlanBelekov/instance-scheduler/internal/metrics"
	"github.com/ErlanBelekov/instance-scheduler/internal/repository"
	"gopkg.in/yaml.v3"
)

// ConfigUsecase moves schedule and period records between configuration
// documents and the record store.
type ConfigUsecase struct {
	store      repository.RecordRepository
	objects    repository.ObjectStore
	defaultKey string
	logger     *slog.Logger
}

// NewConfigUsecase accepts a nil object store; imports and exports that need
// it then fail.
func NewConfigUsecase(store repository.RecordRepository, objects repository.ObjectStore, defaultKey string, logger *slog.Logger) *ConfigUsecase {
	return &ConfigUsecase{
		store:      store,
		objects:    objects,
		defaultKey: defaultKey,
		logger:     logger.With("component", "config"),
	}
}

var errNoObjectStore = errors.New("no object store configured")

// Import loads the document at key (the default key when empty) from the
// object store and writes its records. It returns the number of records written.
func (u *ConfigUsecase) Import(ctx context.Context, key string) (int, error) {
	if u.objects == nil {
		return 0, errNoObjectStore
	}
	if key == "" {
		key = u.defaultKey
	}
	data, err := u.objects.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("read config %s: %w", key, err)
	}
	return u.ImportDocument(ctx, key, data)
}

// ImportDocument decodes, validates and writes records. name picks the
// format by extension. Nothing is written if any record is invalid.
func (u *ConfigUsecase) ImportDocument(ctx context.Context, name string, data []byte) (int, error) {
	records, err := DecodeRecords(name, data)
	if err != nil {
		return 0, err
	}

	var errs []error
	for i := range records {
		if err := records[i].Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return 0, errors.Join(errs...)
	}

	records = dedupe(records)
	if err := u.store.PutRecords(ctx, records); err != nil {
		return 0, fmt.Errorf("write records: %w", err)
	}

	metrics.RecordsImportedTotal.Add(float64(len(records)))
	u.logger.InfoContext(ctx, "configuration imported", "source", name, "records", len(records))
	return len(records), nil
}

// Export returns every stored record sorted by kind then name.
func (u *ConfigUsecase) Export(ctx context.Context) ([]domain.Record, error) {
	records, err := u.store.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	slices.SortFunc(records, func(a, b domain.Record) int {
		return cmp.Or(cmp.Compare(a.Kind, b.Kind), cmp.Compare(a.Name, b.Name))
	})
	if records == nil {
		records = []domain.Record{}
	}
	return records, nil
}

// ExportTo writes the dump to the object store at key.
func (u *ConfigUsecase) ExportTo(ctx context.Context, key string) (int, error) {
	if u.objects == nil {
		return 0, errNoObjectStore
	}
	records, err := u.Export(ctx)
	if err != nil {
		return 0, err
	}
	data, err := EncodeRecords(key, records, true)
	if err != nil {
		return 0, err
	}
	if err := u.objects.Put(ctx, key, data); err != nil {
		return 0, fmt.Errorf("write config %s: %w", key, err)
	}
	u.logger.InfoContext(ctx, "configuration exported", "target", key, "records", len(records))
	return len(records), nil
}

// DecodeRecords parses a JSON or YAML list of records. Unknown fields are
// rejected so typos do not silently drop settings.
func DecodeRecords(name string, data []byte) ([]domain.Record, error) {
	var records []domain.Record
	if domain.IsYAMLDocument(name) {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&records); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrInvalidRecord, name, err)
		}
		return records, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrInvalidRecord, name, err)
	}
	return records, nil
}

// EncodeRecords renders records in the format name implies.
func EncodeRecords(name string, records []domain.Record, pretty bool) ([]byte, error) {
	if domain.IsYAMLDocument(name) {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	}

	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(records, "", "    ")
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return data, nil
}

// dedupe keeps the last occurrence of each (kind, name) at the position of
// the first, since batch writes reject duplicate keys. Repeated period names
// within a schedule collapse to one, as a string set cannot hold duplicates.
func dedupe(records []domain.Record) []domain.Record {
	type key struct{ kind, name string }
	index := make(map[key]int, len(records))
	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if r.Kind == domain.KindSchedule {
			r = domain.ScheduleRecord(r.Schedule())
		}
		k := key{r.Kind, r.Name}
		if i, ok := index[k]; ok {
			out[i] = r
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}
