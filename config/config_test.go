package config_test

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/instance-scheduler/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SCHEDULER_REGION", "us-west-2")
	t.Setenv("SCHEDULER_TAG", "scheduler")
	t.Setenv("SCHEDULER_TABLE", "automated-scheduler")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store != "dynamodb" || cfg.OverrideTag != "override" || cfg.ConfigObjectKey != "automated_config.json" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.RunSchedule != "*/5 * * * *" || cfg.RunTimeout() != 240*time.Second || cfg.RunConcurrency != 1 {
		t.Errorf("run defaults = %+v", cfg)
	}
	if cfg.ReadyMaxRunAge() != 30*time.Minute {
		t.Errorf("ready max run age = %v", cfg.ReadyMaxRunAge())
	}
	if cfg.PeriodOrder != "fetched" || cfg.DryRun {
		t.Errorf("evaluation defaults = %+v", cfg)
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("level = %v", cfg.SlogLevel())
	}
	if cfg.LocalDynamoDB() {
		t.Error("LocalDynamoDB without endpoint")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	for _, missing := range []string{"SCHEDULER_REGION", "SCHEDULER_TAG", "SCHEDULER_TABLE"} {
		t.Run(missing, func(t *testing.T) {
			setRequired(t)
			t.Setenv(missing, "")

			_, err := config.Load()
			if err == nil || !strings.Contains(err.Error(), missing) {
				t.Fatalf("err = %v, want mention of %s", err, missing)
			}
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"bad cron":            {"RUN_SCHEDULE": "every day"},
		"postgres without db": {"SCHEDULER_STORE": "postgres"},
		"unknown store":       {"SCHEDULER_STORE": "redis"},
		"bad order":           {"PERIOD_ORDER": "random"},
		"zero concurrency":    {"RUN_CONCURRENCY": "0"},
		"bad endpoint":        {"DYNAMODB_ENDPOINT": "not a url"},
		"bad env":             {"ENV": "dev"},
		"negative run age":    {"READY_MAX_RUN_AGE_SEC": "-1"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			for k, v := range vars {
				t.Setenv(k, v)
			}
			if _, err := config.Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoad_LocalDynamoDB(t *testing.T) {
	setRequired(t)
	t.Setenv("DYNAMODB_ENDPOINT", "http://localhost:8000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.LocalDynamoDB() {
		t.Error("LocalDynamoDB = false")
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("level = %v", cfg.SlogLevel())
	}
}

func TestLoad_Postgres(t *testing.T) {
	setRequired(t)
	t.Setenv("SCHEDULER_STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/scheduler")

	if _, err := config.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
}
