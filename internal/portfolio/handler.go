package portfolio

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for portfolio and dashboard read models
type Handler struct {
	repo   Repository
	logger *zap.Logger
}

func NewHandler(repo Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// RegisterRoutes registers portfolio routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/investors/:id/portfolio", h.getPortfolio)
	router.GET("/exporters/:id/dashboard", h.getDashboard)
	router.GET("/stats/platform", h.getPlatformStats)
}

// getPortfolio handles GET /api/v1/investors/:id/portfolio
func (h *Handler) getPortfolio(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid investor ID"})
		return
	}

	portfolio, err := h.repo.GetInvestorPortfolio(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load portfolio", zap.Error(err), zap.String("investor_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, portfolio)
}

// getDashboard handles GET /api/v1/exporters/:id/dashboard
func (h *Handler) getDashboard(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exporter ID"})
		return
	}

	dashboard, err := h.repo.GetExporterDashboard(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load dashboard", zap.Error(err), zap.String("exporter_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// getPlatformStats handles GET /api/v1/stats/platform
func (h *Handler) getPlatformStats(c *gin.Context) {
	stats, err := h.repo.GetPlatformStats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load platform stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
