package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIssueAndVerifyToken(t *testing.T) {
	service := NewService("test-secret", time.Hour)
	userID := uuid.New()

	token, err := service.IssueToken(userID, RoleInvestor)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := service.VerifyToken(token)
	assert.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, RoleInvestor, claims.Role)
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewService("secret-a", time.Hour).IssueToken(uuid.New(), RoleOperator)
	assert.NoError(t, err)

	_, err = NewService("secret-b", time.Hour).VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	service := NewService("test-secret", -time.Minute)
	token, err := service.IssueToken(uuid.New(), RoleAdmin)
	assert.NoError(t, err)

	_, err = service.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueTokenRejectsUnknownRole(t *testing.T) {
	_, err := NewService("test-secret", time.Hour).IssueToken(uuid.New(), Role("superuser"))
	assert.Error(t, err)
}

func setupRouter(service *Service, handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append([]gin.HandlerFunc{Middleware(service)}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/protected", chain...)
	return r
}

func TestMiddlewareSetsIdentity(t *testing.T) {
	service := NewService("test-secret", time.Hour)
	userID := uuid.New()
	token, err := service.IssueToken(userID, RoleExporter)
	assert.NoError(t, err)

	var gotID uuid.UUID
	var gotRole Role
	r := setupRouter(service, func(c *gin.Context) {
		gotID = c.MustGet(ContextUserID).(uuid.UUID)
		gotRole = c.MustGet(ContextRole).(Role)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, RoleExporter, gotRole)
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	r := setupRouter(NewService("test-secret", time.Hour))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsGarbageToken(t *testing.T) {
	r := setupRouter(NewService("test-secret", time.Hour))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	service := NewService("test-secret", time.Hour)
	r := setupRouter(service, RequireRole(RoleAdmin, RoleOperator))

	investorToken, err := service.IssueToken(uuid.New(), RoleInvestor)
	assert.NoError(t, err)
	adminToken, err := service.IssueToken(uuid.New(), RoleAdmin)
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+investorToken)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
