package currency

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for exchange-rate operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers currency routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	currency := router.Group("/currency")
	{
		currency.GET("/rate", h.getRate)
		currency.POST("/lock", h.lockRate)
		currency.GET("/lock/:token", h.getLock)
	}
}

// getRate handles GET /api/v1/currency/rate?base=USD&quote=IDR
func (h *Handler) getRate(c *gin.Context) {
	base := c.DefaultQuery("base", "USD")
	quote := c.DefaultQuery("quote", "IDR")

	rate, effective, err := h.service.Quote(base, quote)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"base":           base,
		"quote":          quote,
		"rate":           rate,
		"effective_rate": effective,
	})
}

// lockRate handles POST /api/v1/currency/lock
func (h *Handler) lockRate(c *gin.Context) {
	var req struct {
		Base  string `json:"base" binding:"required"`
		Quote string `json:"quote" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lock, err := h.service.Lock(req.Base, req.Quote)
	if err != nil {
		h.logger.Error("Failed to lock rate", zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, lock)
}

// getLock handles GET /api/v1/currency/lock/:token
func (h *Handler) getLock(c *gin.Context) {
	lock, err := h.service.Verify(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, lock)
}
