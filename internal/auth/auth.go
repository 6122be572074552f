package auth

import (
	"time"

	"github.com/frahmantamala/reimbursement-management/internal"
	"github.com/golang-jwt/jwt/v5"
)

// Credentials is what login needs to know about a user.
type Credentials struct {
	UserID       string
	Email        string
	Role         string
	PasswordHash string
	IsActive     bool
}

// TokenGenerator creates and verifies access tokens.
type TokenGenerator interface {
	GenerateAccessToken(identity internal.Identity) (token string, expiresAt time.Time, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

type AuthTokens struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      string    `json:"user_id"`
	Role        string    `json:"role"`
}

// Claims represents JWT token claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() internal.Identity {
	return internal.Identity{ID: c.UserID, Email: c.Email, Role: c.Role}
}

type JWTTokenGenerator struct {
	Secret         []byte
	AccessTokenTTL time.Duration
	now            func() time.Time
}
