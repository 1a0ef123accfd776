package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
	"github.com/gin-gonic/gin"
)

type periodEvaluator interface {
	Evaluate(p domain.Period, at time.Time) (domain.Action, domain.Issues)
}

type scheduleChecker interface {
	Check(ctx context.Context, schedule string, at time.Time) (domain.EvaluationOutcome, error)
}

// EvaluateHandler answers "what would happen at this instant" for a single
// period or a stored schedule. It never touches a resource.
type EvaluateHandler struct {
	matcher periodEvaluator
	checker scheduleChecker
	now     func() time.Time
	logger  *slog.Logger
}

func NewEvaluateHandler(matcher periodEvaluator, checker scheduleChecker, logger *slog.Logger) *EvaluateHandler {
	return &EvaluateHandler{
		matcher: matcher,
		checker: checker,
		now:     time.Now,
		logger:  logger.With("component", "evaluate_handler"),
	}
}

type periodRequest struct {
	Name       string `json:"name"`
	DaysOfWeek string `json:"days_of_week"`
	StartTime  string `json:"start_time"`
	StopTime   string `json:"stop_time"`
}

type evaluateRequest struct {
	Period   *periodRequest `json:"period"`
	Schedule string         `json:"schedule"`
	At       *time.Time     `json:"at"`
}

type evaluateResponse struct {
	At            time.Time     `json:"at"`
	Action        domain.Action `json:"action"`
	MatchedPeriod string        `json:"matched_period,omitempty"`
	Issues        []string      `json:"issues"`
}

func (h *EvaluateHandler) Evaluate(ctx *gin.Context) {
	var req evaluateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (req.Period == nil) == (req.Schedule == "") {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errPeriodOrSchedule})
		return
	}

	at := h.now().UTC()
	if req.At != nil {
		at = req.At.UTC()
	}

	if req.Period != nil {
		p := domain.Period{
			Name:       req.Period.Name,
			DaysOfWeek: req.Period.DaysOfWeek,
			StartTime:  req.Period.StartTime,
			StopTime:   req.Period.StopTime,
		}
		action, issues := h.matcher.Evaluate(p, at)
		ctx.JSON(http.StatusOK, evaluateResponse{At: at, Action: action, MatchedPeriod: matchedName(p.Name, action), Issues: messages(issues)})
		return
	}

	out, err := h.checker.Check(ctx.Request.Context(), req.Schedule, at)
	if err != nil {
		h.logger.ErrorContext(ctx.Request.Context(), "check schedule", "schedule", req.Schedule, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	ctx.JSON(http.StatusOK, evaluateResponse{At: at, Action: out.Action, MatchedPeriod: out.MatchedPeriod, Issues: messages(out.Issues)})
}

func matchedName(name string, action domain.Action) string {
	if action.IsNone() {
		return ""
	}
	return name
}

func messages(issues domain.Issues) []string {
	m := issues.Messages()
	if m == nil {
		return []string{}
	}
	return m
}
