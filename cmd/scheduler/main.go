package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/ErlanBelekov/instance-scheduler/config"
	"github.com/ErlanBelekov/instance-scheduler/internal/bootstrap"
	"github.com/ErlanBelekov/instance-scheduler/internal/event"
	"github.com/ErlanBelekov/instance-scheduler/internal/health"
	ctxlog "github.com/ErlanBelekov/instance-scheduler/internal/log"
	"github.com/ErlanBelekov/instance-scheduler/internal/metrics"
	"github.com/ErlanBelekov/instance-scheduler/internal/period"
	"github.com/ErlanBelekov/instance-scheduler/internal/scheduler"
	httptransport "github.com/ErlanBelekov/instance-scheduler/internal/transport/http"
	"github.com/ErlanBelekov/instance-scheduler/internal/transport/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	deps, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		stop()
		log.Fatalf("startup: %v", err)
	}
	defer deps.Close()

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer, health.Dependency{Name: cfg.Store, Pinger: deps.Store})

	live := deps.Orchestrator(cfg.DryRun)
	dryRun := deps.Orchestrator(true)
	configUsecase := deps.ConfigUsecase()
	events := event.NewHandler(live, configUsecase, cfg.TagKey, logger)

	dispatcher, err := scheduler.NewDispatcher(live, cfg.TagKey, cfg.RunSchedule, cfg.RunTimeout(), logger)
	if err != nil {
		stop()
		log.Fatalf("dispatcher: %v", err)
	}
	checker.WatchRuns(dispatcher.LastCompleted, cfg.ReadyMaxRunAge())
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Start(ctx)
	}()

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, httptransport.Handlers{
			Events:   handler.NewEventHandler(events, logger),
			Runs:     handler.NewRunHandler(live, dryRun, cfg.TagKey, logger),
			Config:   handler.NewConfigHandler(configUsecase, logger),
			Evaluate: handler.NewEvaluateHandler(period.NewMatcher(logger), live, logger),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port, "store", cfg.Store, "dry_run", cfg.DryRun)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	// The store is closed by the deferred deps.Close, so an in-flight run
	// must finish first.
	<-dispatcherDone

	logger.Info("scheduler shut down")
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
