package repository

import (
	"context"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
)

// ScheduleRepository is the read side used on every run.
// The orchestrator depends on this interface so the store can be DynamoDB,
// Postgres, or a fake in tests.
type ScheduleRepository interface {
	// GetSchedule returns domain.ErrScheduleNotFound when no record exists.
	GetSchedule(ctx context.Context, name string) (*domain.Schedule, error)
	// BatchGetPeriods returns the periods that exist, in the order the store
	// produced them. Missing names are simply absent; records that fail
	// validation are dropped and reported as issues.
	BatchGetPeriods(ctx context.Context, names []string) ([]domain.Period, domain.Issues, error)
}

// RecordRepository is the bulk side used by configuration import and dump.
type RecordRepository interface {
	ListRecords(ctx context.Context) ([]domain.Record, error)
	PutRecords(ctx context.Context, records []domain.Record) error
}

// Store is implemented by every backend.
type Store interface {
	ScheduleRepository
	RecordRepository
	Ping(ctx context.Context) error
}
