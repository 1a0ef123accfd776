package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/instance-scheduler/internal/transport/http/handler"
	"github.com/ErlanBelekov/instance-scheduler/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type Handlers struct {
	Events   *handler.EventHandler
	Runs     *handler.RunHandler
	Config   *handler.ConfigHandler
	Evaluate *handler.EvaluateHandler
}

func NewRouter(logger *slog.Logger, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	r.POST("/events", h.Events.Handle)
	r.POST("/runs", h.Runs.Trigger)

	config := r.Group("/config")
	config.GET("", h.Config.Export)
	config.POST("/import", h.Config.Import)

	r.POST("/periods/evaluate", h.Evaluate.Evaluate)

	return r
}
