package statements

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"invobridge/funding-portal-backend/internal/funding/engine"
)

// Handler serves statement downloads.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers statement routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/pools/:id/statement", h.downloadStatement)
}

// downloadStatement handles GET /api/v1/pools/:id/statement?format=pdf|csv|xlsx
func (h *Handler) downloadStatement(c *gin.Context) {
	poolID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pool ID"})
		return
	}

	format := Format(strings.ToLower(c.DefaultQuery("format", string(FormatPDF))))
	switch format {
	case FormatPDF, FormatCSV, FormatXLSX:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported format %q", format)})
		return
	}

	statement, err := h.service.Render(c.Request.Context(), poolID, format)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "pool not found"})
			return
		}
		h.logger.Error("failed to render statement",
			zap.String("pool_id", poolID.String()),
			zap.String("format", string(format)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render statement"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", statement.Filename))
	c.Data(http.StatusOK, statement.ContentType, statement.Content)
}
