package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

// Ping endpoint
func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "auth service alive!"})
}

type tokenRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   Role   `json:"role" binding:"required"`
}

// IssueToken handles POST /auth/token. Identity is asserted by the
// upstream identity provider; this endpoint only mints the session token.
func (h *Handler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	token, err := h.Service.IssueToken(userID, req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Me handles GET /auth/me and echoes the verified identity.
func (h *Handler) Me(c *gin.Context) {
	userID, _ := c.Get(ContextUserID)
	role, _ := c.Get(ContextRole)
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": role})
}
