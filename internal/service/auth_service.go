package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/access-portal/internal/auth"
	"github.com/spec-kit/access-portal/internal/config"
	"github.com/spec-kit/access-portal/internal/domain"
	"github.com/spec-kit/access-portal/internal/repository"
	"github.com/spec-kit/access-portal/internal/session"
	apperrors "github.com/spec-kit/access-portal/pkg/util"
)

// AuthService coordinates login and logout flows.
type AuthService struct {
	accounts   repository.AccountRepository
	sessions   session.Store
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	AccountRepo  repository.AccountRepository
	SessionStore session.Store
	Logger       *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		accounts:   deps.AccountRepo,
		sessions:   deps.SessionStore,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     deps.Logger,
	}
}

// Login authenticates the (identifier, roleClass, password) triple and, on
// success only, writes the resulting session to the store. A failed login
// leaves the store untouched.
func (s *AuthService) Login(ctx context.Context, identifier string, roleClass domain.RoleClass, password string) (*domain.Session, error) {
	account, err := s.accounts.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, err
	}
	if account.RoleClass != roleClass {
		return nil, apperrors.NewInvalidCredentials()
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, apperrors.NewInvalidCredentials()
	}

	token, tokenID, expiresAt, err := s.tokenMgr.GenerateToken(account)
	if err != nil {
		return nil, err
	}

	sess := &domain.Session{
		TokenID:    tokenID,
		Identifier: account.Identifier,
		RoleClass:  account.RoleClass,
		IsAdmin:    account.IsAdmin,
		IsNewUser:  account.IsNewUser,
		IsApproved: account.IsApproved,
		Token:      token,
		Allocation: account.Allocation,
		ExpiresAt:  expiresAt,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info("login",
		zap.String("identifier", account.Identifier),
		zap.Bool("is_admin", account.IsAdmin),
		zap.Bool("is_approved", account.IsApproved),
	)
	return sess, nil
}

// Logout clears the stored session, invalidating the token server-side.
func (s *AuthService) Logout(ctx context.Context, tokenID string) error {
	return s.sessions.Clear(ctx, tokenID)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
