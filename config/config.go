package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	Region      string `env:"SCHEDULER_REGION,required,notEmpty" validate:"required"`
	TagKey      string `env:"SCHEDULER_TAG,required,notEmpty" validate:"required,max=128"`
	Table       string `env:"SCHEDULER_TABLE,required,notEmpty" validate:"required"`
	OverrideTag string `env:"SCHEDULER_OVERRIDE_TAG" envDefault:"override" validate:"max=128"`

	Store            string `env:"SCHEDULER_STORE" envDefault:"dynamodb" validate:"oneof=dynamodb postgres"`
	DatabaseURL      string `env:"DATABASE_URL"      validate:"required_if=Store postgres"`
	DynamoDBEndpoint string `env:"DYNAMODB_ENDPOINT" validate:"omitempty,url"`

	BucketName      string `env:"SCHEDULER_BUCKET_NAME"`
	ConfigObjectKey string `env:"SCHEDULER_S3_CONFIG_OBJECT_KEY" envDefault:"automated_config.json" validate:"required"`

	RunSchedule    string `env:"RUN_SCHEDULE" envDefault:"*/5 * * * *" validate:"required,cronexpr"`
	RunTimeoutSec  int    `env:"RUN_TIMEOUT_SEC" envDefault:"240" validate:"min=1,max=3600"`
	RunConcurrency int    `env:"RUN_CONCURRENCY" envDefault:"1" validate:"min=1,max=64"`
	PeriodOrder    string `env:"PERIOD_ORDER" envDefault:"fetched" validate:"oneof=fetched name"`
	DryRun         bool   `env:"DRY_RUN" envDefault:"false"`

	// ReadyMaxRunAgeSec fails readiness when no run completed for this long. 0 disables.
	ReadyMaxRunAgeSec int `env:"READY_MAX_RUN_AGE_SEC" envDefault:"1800" validate:"min=0"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	validate, err := newValidator()
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func newValidator() (*validator.Validate, error) {
	v := validator.New()
	err := v.RegisterValidation("cronexpr", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
	if err != nil {
		return nil, fmt.Errorf("register cronexpr validation: %w", err)
	}
	return v, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSec) * time.Second
}

func (c *Config) ReadyMaxRunAge() time.Duration {
	return time.Duration(c.ReadyMaxRunAgeSec) * time.Second
}

// LocalDynamoDB reports whether the store points at a local DynamoDB, in
// which case the table is created on startup.
func (c *Config) LocalDynamoDB() bool {
	return c.Store == "dynamodb" && c.DynamoDBEndpoint != ""
}
