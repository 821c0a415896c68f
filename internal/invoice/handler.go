package invoice

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for invoice operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers invoice routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/invoices")
	{
		invoices.POST("", h.createInvoice)
		invoices.GET("", h.listInvoices)
		invoices.GET("/:id", h.getInvoice)
		invoices.POST("/:id/verify", h.verifyInvoice)
		invoices.POST("/:id/tokenize", h.tokenizeInvoice)
	}
}

// createInvoice handles POST /api/v1/invoices
func (h *Handler) createInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := h.service.CreateInvoice(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to create invoice", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, inv)
}

// listInvoices handles GET /api/v1/invoices
func (h *Handler) listInvoices(c *gin.Context) {
	filters := &InvoiceFilters{
		Page:     h.getIntParam(c, "page", 1),
		PageSize: h.getIntParam(c, "page_size", 20),
	}
	if exporterID := c.Query("exporter_id"); exporterID != "" {
		if id, err := uuid.Parse(exporterID); err == nil {
			filters.ExporterID = &id
		}
	}
	if status := c.Query("status"); status != "" {
		s := Status(status)
		filters.Status = &s
	}

	invoices, total, err := h.service.ListInvoices(c.Request.Context(), filters)
	if err != nil {
		h.logger.Error("Failed to list invoices", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoices":    invoices,
		"total_count": total,
		"page":        filters.Page,
		"page_size":   filters.PageSize,
	})
}

// getInvoice handles GET /api/v1/invoices/:id
func (h *Handler) getInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	inv, err := h.service.GetInvoice(c.Request.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, inv)
}

// verifyInvoice handles POST /api/v1/invoices/:id/verify
func (h *Handler) verifyInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	inv, err := h.service.Verify(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to verify invoice", zap.Error(err), zap.String("invoice_id", id.String()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, inv)
}

// tokenizeInvoice handles POST /api/v1/invoices/:id/tokenize
func (h *Handler) tokenizeInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	inv, err := h.service.Tokenize(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to tokenize invoice", zap.Error(err), zap.String("invoice_id", id.String()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, inv)
}

func (h *Handler) getIntParam(c *gin.Context, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
