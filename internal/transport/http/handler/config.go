package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
	"github.com/gin-gonic/gin"
)

type configUsecaser interface {
	Import(ctx context.Context, key string) (int, error)
	ImportDocument(ctx context.Context, name string, data []byte) (int, error)
	Export(ctx context.Context) ([]domain.Record, error)
}

type ConfigHandler struct {
	uc     configUsecaser
	logger *slog.Logger
}

func NewConfigHandler(uc configUsecaser, logger *slog.Logger) *ConfigHandler {
	return &ConfigHandler{
		uc:     uc,
		logger: logger.With("component", "config_handler"),
	}
}

func (h *ConfigHandler) Export(ctx *gin.Context) {
	records, err := h.uc.Export(ctx.Request.Context())
	if err != nil {
		h.logger.ErrorContext(ctx.Request.Context(), "export records", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	ctx.JSON(http.StatusOK, records)
}

type importQuery struct {
	Key string `form:"key"`
}

// Import loads the object named by ?key= from the object store. Without a
// key the request body is imported, as YAML when the content type says so.
func (h *ConfigHandler) Import(ctx *gin.Context) {
	var q importQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		n   int
		err error
	)
	if q.Key != "" || ctx.Request.ContentLength == 0 {
		n, err = h.uc.Import(ctx.Request.Context(), q.Key)
	} else {
		var data []byte
		data, err = io.ReadAll(ctx.Request.Body)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
			return
		}
		n, err = h.uc.ImportDocument(ctx.Request.Context(), documentName(ctx.ContentType()), data)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidRecord):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRecords, "details": err.Error()})
	case errors.Is(err, domain.ErrObjectNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": errConfigNotFound})
	case err != nil:
		h.logger.ErrorContext(ctx.Request.Context(), "import records", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	default:
		ctx.JSON(http.StatusOK, gin.H{"imported": n})
	}
}

func documentName(contentType string) string {
	if strings.Contains(contentType, "yaml") {
		return "request.yaml"
	}
	return "request.json"
}
