// Package bootstrap builds the collaborators shared by the daemon and the CLI
// from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/instance-scheduler/config"
	"github.com/ErlanBelekov/instance-scheduler/internal/infrastructure/awsclient"
	"github.com/ErlanBelekov/instance-scheduler/internal/infrastructure/dynamodb"
	"github.com/ErlanBelekov/instance-scheduler/internal/infrastructure/ec2"
	"github.com/ErlanBelekov/instance-scheduler/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/instance-scheduler/internal/infrastructure/s3"
	"github.com/ErlanBelekov/instance-scheduler/internal/repository"
	"github.com/ErlanBelekov/instance-scheduler/internal/scheduler"
	"github.com/ErlanBelekov/instance-scheduler/internal/usecase"
)

const localTableWait = 30 * time.Second

// Deps are the live collaborators. Objects is nil when no bucket is configured.
type Deps struct {
	Store   repository.Store
	Compute repository.ComputeAPI
	Objects repository.ObjectStore

	cfg    *config.Config
	logger *slog.Logger
	close  func()
}

func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Deps, error) {
	awsCfg, err := awsclient.Load(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}

	d := &Deps{
		Compute: ec2.NewCompute(ec2.NewClient(awsCfg), logger),
		cfg:     cfg,
		logger:  logger,
		close:   func() {},
	}

	switch cfg.Store {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		d.Store = postgres.NewStore(pool, logger)
		d.close = pool.Close
		logger.Info("db connected")
	default:
		store := dynamodb.NewStore(dynamodb.NewClient(awsCfg, cfg.DynamoDBEndpoint), cfg.Table, logger)
		if cfg.LocalDynamoDB() {
			if err := store.EnsureTable(ctx, localTableWait); err != nil {
				return nil, err
			}
		}
		d.Store = store
	}

	if cfg.BucketName != "" {
		d.Objects = s3.NewObjectStore(s3.NewClient(awsCfg), cfg.BucketName, logger)
	}

	return d, nil
}

func (d *Deps) Close() {
	d.close()
}

// Orchestrator builds a run pipeline from configuration. dryRun overrides
// the configured mode so callers can ask for a decision-only run.
func (d *Deps) Orchestrator(dryRun bool) *scheduler.Orchestrator {
	return scheduler.NewOrchestrator(d.Store, d.Compute, d.logger, scheduler.Options{
		OverrideTagKey: d.cfg.OverrideTag,
		DryRun:         dryRun,
		Order:          scheduler.PeriodOrder(d.cfg.PeriodOrder),
		Concurrency:    d.cfg.RunConcurrency,
	})
}

func (d *Deps) ConfigUsecase() *usecase.ConfigUsecase {
	return usecase.NewConfigUsecase(d.Store, d.Objects, d.cfg.ConfigObjectKey, d.logger)
}
