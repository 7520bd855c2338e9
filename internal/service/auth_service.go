package service

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/redemption-queue/internal/auth"
	"github.com/spec-kit/redemption-queue/internal/config"
	apperrors "github.com/spec-kit/redemption-queue/pkg/util/errorutil"
)

// AuthService authenticates the shop admin and issues bearer tokens.
type AuthService struct {
	username     string
	passwordHash string
	tokenMgr     *auth.TokenManager
	logger       *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		username:     cfg.AdminUsername,
		passwordHash: cfg.AdminPasswordHash,
		tokenMgr:     auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		logger:       logger,
	}
}

// LoginAdmin verifies the admin credentials and returns a signed token.
// Login is refused when no password hash is configured.
func (s *AuthService) LoginAdmin(_ context.Context, username, password string) (string, time.Time, error) {
	if strings.TrimSpace(s.passwordHash) == "" {
		return "", time.Time{}, apperrors.NewUnauthorized("admin login disabled")
	}
	nameOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(s.username)) == 1
	if err := auth.ComparePassword(s.passwordHash, password); err != nil || !nameOK {
		s.logger.Info("admin login rejected", zap.String("username", username))
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.tokenMgr.GenerateToken(s.username, auth.RoleAdmin)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
