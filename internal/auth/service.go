package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/reimbursement-management/internal"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	GetCredentialsByEmail(ctx context.Context, email string) (*Credentials, error)
}

// Service is the main auth service with dependencies
type Service struct {
	userRepo       UserRepository
	tokenGenerator TokenGenerator
	bcryptCost     int
	logger         *slog.Logger
}

func NewService(userRepo UserRepository, tokenGen TokenGenerator, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:       userRepo,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

func NewJWTTokenGenerator(secret string, accessTTL time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		Secret:         []byte(secret),
		AccessTokenTTL: accessTTL,
		now:            time.Now,
	}
}

// Authenticate validates credentials and returns an access token
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	email := strings.ToLower(strings.TrimSpace(dto.Email))
	creds, err := s.userRepo.GetCredentialsByEmail(ctx, email)
	if err != nil {
		if internal.HasType(err, internal.ErrorTypeNotFound) {
			s.logger.Warn("login for unknown email", "email", email)
			return AuthTokens{}, internal.ErrInvalidCredentials
		}
		return AuthTokens{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Warn("login with wrong password", "user_id", creds.UserID)
		return AuthTokens{}, internal.ErrInvalidCredentials
	}
	if !creds.IsActive {
		return AuthTokens{}, internal.ErrUserInactive
	}

	identity := internal.Identity{ID: creds.UserID, Email: creds.Email, Role: creds.Role}
	token, expiresAt, err := s.tokenGenerator.GenerateAccessToken(identity)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue token", err)
	}

	s.logger.Info("user logged in", "user_id", creds.UserID, "role", creds.Role)
	return AuthTokens{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		UserID:      creds.UserID,
		Role:        creds.Role,
	}, nil
}

// ValidateAccessToken resolves a bearer token into the caller's identity.
func (s *Service) ValidateAccessToken(tokenString string) (internal.Identity, error) {
	claims, err := s.tokenGenerator.ValidateToken(tokenString)
	if err != nil {
		return internal.Identity{}, err
	}
	return claims.Identity(), nil
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (j *JWTTokenGenerator) GenerateAccessToken(identity internal.Identity) (string, time.Time, error) {
	now := j.now()
	expiresAt := now.Add(j.AccessTokenTTL)

	claims := &Claims{
		UserID: identity.ID,
		Email:  identity.Email,
		Role:   identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   identity.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}
