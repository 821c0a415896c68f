package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"invobridge/funding-portal-backend/internal/auth"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers settings routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/settings")
	{
		group.GET("/profile", h.getProfile)
		group.PUT("/profile", h.updateProfile)
		group.GET("/notifications", h.getNotifications)
		group.PUT("/notifications", h.updateNotifications)
	}
}

// getProfile handles GET /api/v1/settings/profile
func (h *Handler) getProfile(c *gin.Context) {
	profile, err := h.service.GetProfile(c.Request.Context(), callerID(c))
	if err != nil {
		h.logger.Error("failed to get profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// updateProfile handles PUT /api/v1/settings/profile
func (h *Handler) updateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), callerID(c), &req)
	if err != nil {
		h.logger.Error("failed to update profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// getNotifications handles GET /api/v1/settings/notifications
func (h *Handler) getNotifications(c *gin.Context) {
	prefs, err := h.service.GetNotifications(c.Request.Context(), callerID(c))
	if err != nil {
		h.logger.Error("failed to get notification preferences", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get notification preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// updateNotifications handles PUT /api/v1/settings/notifications
func (h *Handler) updateNotifications(c *gin.Context) {
	var req UpdateNotificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prefs, err := h.service.UpdateNotifications(c.Request.Context(), callerID(c), &req)
	if err != nil {
		h.logger.Error("failed to update notification preferences", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update notification preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func callerID(c *gin.Context) uuid.UUID {
	if val, ok := c.Get(auth.ContextUserID); ok {
		if id, ok := val.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
