package event

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
	"github.com/ErlanBelekov/instance-scheduler/internal/scheduler"
)

// Runner is satisfied by *scheduler.Orchestrator.
type Runner interface {
	Run(ctx context.Context, tagKey string) (*scheduler.Summary, error)
}

// ConfigService is satisfied by *usecase.ConfigUsecase.
type ConfigService interface {
	Import(ctx context.Context, key string) (int, error)
	Export(ctx context.Context) ([]domain.Record, error)
}

type Handler struct {
	runner Runner
	config ConfigService
	tagKey string
	logger *slog.Logger
}

func NewHandler(runner Runner, config ConfigService, tagKey string, logger *slog.Logger) *Handler {
	return &Handler{
		runner: runner,
		config: config,
		tagKey: tagKey,
		logger: logger.With("component", "event_handler"),
	}
}

// Handle dispatches on the event kind. Every outcome, including failures,
// is expressed as a Response.
func (h *Handler) Handle(ctx context.Context, e Event) Response {
	kind := e.Kind()
	h.logger.InfoContext(ctx, "received event", "kind", kind, "detail_type", e.DetailType, "action", e.Action)

	switch kind {
	case KindRun:
		return h.run(ctx)
	case KindImport:
		return h.importConfig(ctx, e.ObjectKey())
	case KindDump:
		return h.dump(ctx)
	}

	err := errUnknown(e)
	h.logger.WarnContext(ctx, "unknown event", "error", err)
	return respond(http.StatusNotFound, err.Error())
}

func (h *Handler) run(ctx context.Context) Response {
	summary, err := h.runner.Run(ctx, h.tagKey)
	if err != nil {
		h.logger.ErrorContext(ctx, "run aborted", "error", err)
		return respond(http.StatusInternalServerError, []string{err.Error()})
	}
	return RunResponse(summary)
}

// RunResponse maps a run summary to a response: the issue list on partial
// failure, the state changes otherwise.
func RunResponse(s *scheduler.Summary) Response {
	if s.Status != scheduler.StatusSuccess {
		return respond(http.StatusInternalServerError, s.Issues.Messages())
	}
	return respond(http.StatusOK, s.Changed)
}

func (h *Handler) importConfig(ctx context.Context, key string) Response {
	n, err := h.config.Import(ctx, key)
	if err != nil {
		h.logger.ErrorContext(ctx, "config import failed", "key", key, "error", err)
		return respond(http.StatusInternalServerError, err.Error())
	}
	return respond(http.StatusOK, fmt.Sprintf("Success from %q: %d records imported", EventNamePutObject, n))
}

func (h *Handler) dump(ctx context.Context) Response {
	records, err := h.config.Export(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "config dump failed", "error", err)
		return respond(http.StatusInternalServerError, err.Error())
	}
	return respond(http.StatusOK, records)
}
