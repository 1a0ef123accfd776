package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store keeps records in one table with the same (pk, sk) layout as the
// DynamoDB table, so configuration documents move between the two unchanged.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{pool: pool, logger: logger.With("component", "postgres_store")}
}

const recordColumns = `pk, sk, days_of_week, start_time, stop_time, periods, timezone`

func (s *Store) GetSchedule(ctx context.Context, name string) (*domain.Schedule, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM scheduler_items WHERE pk = $1 AND sk = $2`,
		domain.KindSchedule, name)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("get schedule %q: %w", name, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec.Schedule(), nil
}

// BatchGetPeriods returns periods in table order, not request order.
func (s *Store) BatchGetPeriods(ctx context.Context, names []string) ([]domain.Period, domain.Issues, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM scheduler_items WHERE pk = $1 AND sk = ANY($2)`,
		domain.KindPeriod, names)
	if err != nil {
		return nil, nil, fmt.Errorf("batch get periods: %w", err)
	}
	defer rows.Close()

	var (
		periods []domain.Period
		issues  domain.Issues
	)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("scan period: %w", err)
		}
		if err := rec.Validate(); err != nil {
			issues.Add(domain.ComponentStore, "%v", err)
			continue
		}
		periods = append(periods, rec.Period())
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("batch get periods: %w", err)
	}
	return periods, issues, nil
}

func (s *Store) ListRecords(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+recordColumns+` FROM scheduler_items ORDER BY pk, sk`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// PutRecords upserts every record in one transaction.
func (s *Store) PutRecords(ctx context.Context, records []domain.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	batch := &pgx.Batch{}
	for _, r := range records {
		periods := r.Periods
		if periods == nil {
			periods = []string{}
		}
		batch.Queue(`
			INSERT INTO scheduler_items (`+recordColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (pk, sk) DO UPDATE SET
				days_of_week = EXCLUDED.days_of_week,
				start_time   = EXCLUDED.start_time,
				stop_time    = EXCLUDED.stop_time,
				periods      = EXCLUDED.periods,
				timezone     = EXCLUDED.timezone,
				updated_at   = NOW()`,
			r.Kind, r.Name, r.DaysOfWeek, r.StartTime, r.StopTime, periods, r.Timezone)
	}

	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert records: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.logger.InfoContext(ctx, "wrote records", "count", len(records))
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanRecord(row pgx.Row) (domain.Record, error) {
	var r domain.Record
	err := row.Scan(&r.Kind, &r.Name, &r.DaysOfWeek, &r.StartTime, &r.StopTime, &r.Periods, &r.Timezone)
	if len(r.Periods) == 0 {
		r.Periods = nil
	}
	return r, err
}
