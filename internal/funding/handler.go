package funding

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"invobridge/funding-portal-backend/internal/funding/engine"
	"invobridge/funding-portal-backend/internal/payments"
)

// Handler handles HTTP requests for funding pool operations
type Handler struct {
	service *Service
	payouts *payments.Service
	logger  *zap.Logger
}

func NewHandler(service *Service, payouts *payments.Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, payouts: payouts, logger: logger}
}

// RegisterRoutes registers funding pool routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	pools := router.Group("/pools")
	{
		pools.POST("", h.createPool)
		pools.GET("", h.listPools)
		pools.GET("/:id", h.getPool)
		pools.GET("/:id/investments", h.listInvestments)
		pools.GET("/:id/capacity", h.getCapacity)
		pools.GET("/:id/repayment-breakdown", h.getBreakdown)
		pools.GET("/:id/payouts", h.listPayouts)
		pools.POST("/:id/investments", h.invest)
		pools.POST("/:id/disburse", h.disburse)
		pools.POST("/:id/repay", h.repay)
		pools.POST("/:id/default", h.markDefaulted)
		pools.POST("/:id/close", h.closePool)
	}
	router.POST("/payouts/:id/confirm", h.confirmPayout)
}

// RegisterAdminRoutes registers the engine pause/resume surface. The caller
// wraps the group with the admin-role middleware.
func (h *Handler) RegisterAdminRoutes(router *gin.RouterGroup) {
	eng := router.Group("/engine")
	{
		eng.GET("/status", h.engineStatus)
		eng.POST("/pause", h.pauseEngine)
		eng.POST("/resume", h.resumeEngine)
	}
}

// statusFor maps engine error codes to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, engine.ErrPoolNotOpen),
		errors.Is(err, engine.ErrPoolNotFilled),
		errors.Is(err, engine.ErrPoolNotDisbursed),
		errors.Is(err, engine.ErrInvalidState),
		errors.Is(err, engine.ErrGracePeriodActive):
		return http.StatusConflict
	case errors.Is(err, engine.ErrCapacityExceeded),
		errors.Is(err, engine.ErrOverAllocation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrEngineDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// createPool handles POST /api/v1/pools
func (h *Handler) createPool(c *gin.Context) {
	var req CreatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pool, err := h.service.CreatePool(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to create pool", zap.Error(err),
			zap.String("invoice_id", req.InvoiceID.String()))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, pool)
}

// listPools handles GET /api/v1/pools
func (h *Handler) listPools(c *gin.Context) {
	var status *engine.PoolStatus
	if s := c.Query("status"); s != "" {
		st := engine.PoolStatus(s)
		status = &st
	}

	pools := h.service.ListPools(c.Request.Context(), status)
	c.JSON(http.StatusOK, gin.H{
		"pools":       pools,
		"total_count": len(pools),
	})
}

// getPool handles GET /api/v1/pools/:id
func (h *Handler) getPool(c *gin.Context) {
	id, ok := h.poolID(c)
	if !ok {
		return
	}

	pool, err := h.service.GetPool(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, pool)
}

// listInvestments handles GET /api/v1/pools/:id/investments
func (h *Handler) listInvestments(c *gin.Context) {
	id, ok := h.poolID(c)
	if !ok {
		return
	}

	investments, err := h.service.GetInvestments(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"investments": investments,
		"total_count": len(investments),
	})
}

// getCapacity handles GET /api/v1/pools/:id/capacity?tranche=priority
func (h *Handler) getCapacity(c *gin.Context) {
	id, ok := h.poolID(c)
	if !ok {
		return
	}

	tranche := engine.Tranche(c.DefaultQuery("tranche", string(engine.TranchePriority)))
	remaining, err := h.service.RemainingCapacity(c.Request.Context(), id, tranche)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pool_id":   id,
		"tranche":   tranche,
		"remaining": remaining,
	})
}

// getBreakdown handles GET /api/v1/pools/:id/repayment-breakdown
func (h *Handler) getBreakdown(c *gin.Context) {
	id, ok := h.poolID(c)
	if !ok {
		return
	}

	breakdown, err := h.service.Breakdown(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, breakdown)
}

// listPayouts handles GET /api/v1/pools/:id/payouts
func (h *Handler) listPayouts(c *gin.Context) {
	id, ok := h.poolID(c)
	if !ok {
		return
	}

	instructions, err := h.payouts.ListByPool(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to list payouts", zap.Error(err), zap.String("pool_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payouts":     instructions,
		"total_count": len(instructions),
	})
}

// invest handles POST /api/v1/pools/:id/investments
func (h *Handler) invest(c *gin.Context) {
	id, ok := h.poolID(c)
	if !ok {
		return
	}

	var req InvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	investorID := h.userID(c)
	inv, pool, err := h.service.Invest(c.Request.Context(), investorID, id, &req)
	if err != nil {
		h.logger.Warn("Investment rejected", zap.Error(err),
			zap.String("pool_id", id.String()),
			zap.String("investor_id", investorID.String()))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"investment": inv,
		"pool":       pool,
	})
}

// disburse handles POST /api/v1/pools/:id/disburse
func (h *Handler) disburse(c *gin.Context) {
	id, ok := h.poolID(c)
	if !ok {
		return
	}

	disb, pool, err := h.service.Disburse(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to disburse pool", zap.Error(err), zap.String("pool_id", id.String()))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"disbursement": disb,
		"pool":         pool,
	})
}

// repay handles POST /api/v1/pools/:id/repay
func (h *Handler) repay(c *gin.Context) {
	id, ok := h.poolID(c)
	if !ok {
		return
	}

	var req RepaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settlement, pool, err := h.service.Repay(c.Request.Context(), id, &req)
	if err != nil {
		h.logger.Error("Failed to settle pool", zap.Error(err), zap.String("pool_id", id.String()))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"settlement": settlement,
		"pool":       pool,
	})
}

// markDefaulted handles POST /api/v1/pools/:id/default
func (h *Handler) markDefaulted(c *gin.Context) {
	id, ok := h.poolID(c)
	if !ok {
		return
	}

	pool, err := h.service.MarkDefaulted(c.Request.Context(), id, time.Now())
	if err != nil {
		h.logger.Warn("Default rejected", zap.Error(err), zap.String("pool_id", id.String()))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, pool)
}

// closePool handles POST /api/v1/pools/:id/close
func (h *Handler) closePool(c *gin.Context) {
	id, ok := h.poolID(c)
	if !ok {
		return
	}

	pool, err := h.service.ClosePool(c.Request.Context(), id)
	if err != nil {
		h.logger.Warn("Close rejected", zap.Error(err), zap.String("pool_id", id.String()))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, pool)
}

// confirmPayout handles POST /api/v1/payouts/:id/confirm
func (h *Handler) confirmPayout(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payout ID"})
		return
	}

	var req ConfirmPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.payouts.ConfirmInstruction(c.Request.Context(), id, req.Reference); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, payments.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "confirmed"})
}

// engineStatus handles GET /api/v1/admin/engine/status
func (h *Handler) engineStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": h.service.Enabled()})
}

// pauseEngine handles POST /api/v1/admin/engine/pause
func (h *Handler) pauseEngine(c *gin.Context) {
	h.service.SetEnabled(false)
	c.JSON(http.StatusOK, gin.H{"enabled": false})
}

// resumeEngine handles POST /api/v1/admin/engine/resume
func (h *Handler) resumeEngine(c *gin.Context) {
	h.service.SetEnabled(true)
	c.JSON(http.StatusOK, gin.H{"enabled": true})
}

func (h *Handler) poolID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pool ID"})
		return uuid.Nil, false
	}
	return id, true
}

// userID extracts the authenticated user id set by the auth middleware, with
// a header fallback for unauthenticated development setups.
func (h *Handler) userID(c *gin.Context) uuid.UUID {
	if v, exists := c.Get("user_id"); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	if header := c.GetHeader("X-User-ID"); header != "" {
		if id, err := uuid.Parse(header); err == nil {
			return id
		}
	}
	return uuid.Nil
}
