package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role identifies what a token holder may do.
type Role string

const (
	RoleInvestor Role = "investor"
	RoleExporter Role = "exporter"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

var (
	// ErrInvalidToken signals a missing, malformed, or expired token.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Claims is the decoded identity carried by a verified token.
type Claims struct {
	UserID uuid.UUID
	Role   Role
}

// Service issues and verifies JWT access tokens.
type Service struct {
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewService creates a token service. ttl <= 0 defaults to 24 hours.
func NewService(jwtSecret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  ttl,
	}
}

// IssueToken creates a signed JWT for the user.
func (s *Service) IssueToken(userID uuid.UUID, role Role) (string, error) {
	if !isValidRole(role) {
		return "", fmt.Errorf("auth: invalid role %q", role)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"role":    string(role),
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// VerifyToken validates a JWT and returns the identity it carries.
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	rawID, ok := claims["user_id"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed user_id", ErrInvalidToken)
	}

	rawRole, ok := claims["role"].(string)
	if !ok || !isValidRole(Role(rawRole)) {
		return nil, fmt.Errorf("%w: invalid role", ErrInvalidToken)
	}

	return &Claims{UserID: userID, Role: Role(rawRole)}, nil
}

func isValidRole(role Role) bool {
	switch role {
	case RoleInvestor, RoleExporter, RoleOperator, RoleAdmin:
		return true
	default:
		return false
	}
}
