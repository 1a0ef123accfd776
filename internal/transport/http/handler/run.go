package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/instance-scheduler/internal/scheduler"
	"github.com/gin-gonic/gin"
)

type runner interface {
	Run(ctx context.Context, tagKey string) (*scheduler.Summary, error)
}

// RunHandler triggers a run on demand and returns its full summary.
type RunHandler struct {
	live   runner
	dryRun runner
	tagKey string
	logger *slog.Logger
}

// NewRunHandler takes a live runner and a runner that only reports decisions.
func NewRunHandler(live, dryRun runner, tagKey string, logger *slog.Logger) *RunHandler {
	return &RunHandler{
		live:   live,
		dryRun: dryRun,
		tagKey: tagKey,
		logger: logger.With("component", "run_handler"),
	}
}

type runQuery struct {
	DryRun bool `form:"dry_run"`
}

func (h *RunHandler) Trigger(ctx *gin.Context) {
	var q runQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r := h.live
	if q.DryRun {
		r = h.dryRun
	}

	summary, err := r.Run(ctx.Request.Context(), h.tagKey)
	if err != nil {
		h.logger.ErrorContext(ctx.Request.Context(), "run aborted", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errRunAborted})
		return
	}

	ctx.JSON(http.StatusOK, summary)
}
