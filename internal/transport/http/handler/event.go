package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/instance-scheduler/internal/event"
	"github.com/gin-gonic/gin"
)

type eventHandler interface {
	Handle(ctx context.Context, e event.Event) event.Response
}

// EventHandler accepts trigger events over HTTP and answers with the same
// response envelope the event dispatcher produces.
type EventHandler struct {
	events eventHandler
	logger *slog.Logger
}

func NewEventHandler(events eventHandler, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		events: events,
		logger: logger.With("component", "event_handler"),
	}
}

func (h *EventHandler) Handle(ctx *gin.Context) {
	data, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}

	e, err := event.Parse(data)
	if err != nil {
		h.logger.WarnContext(ctx.Request.Context(), "malformed event", "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidEvent})
		return
	}

	resp := h.events.Handle(ctx.Request.Context(), e)
	ctx.JSON(resp.StatusCode, resp)
}
