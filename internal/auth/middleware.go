package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/access-portal/internal/domain"
	"github.com/spec-kit/access-portal/internal/session"
	apperrors "github.com/spec-kit/access-portal/pkg/util"
)

const sessionKey = "auth_session"

// AuthMiddleware validates bearer tokens and loads the stored session.
type AuthMiddleware struct {
	tokens   *TokenManager
	sessions session.Store
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, sessions session.Store) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, sessions: sessions}
}

// Handle enforces authentication for protected routes. A token whose session
// was cleared (logout) is rejected even if the JWT itself is still valid.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	sess, err := m.sessions.Current(c.Context(), claims.ID)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return apperrors.NewUnauthorized("session expired")
		}
		return apperrors.MapError(err)
	}

	c.Locals(sessionKey, sess)
	return c.Next()
}

// SessionFromContext retrieves the authenticated session.
func SessionFromContext(c *fiber.Ctx) (*domain.Session, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	sess, ok := val.(*domain.Session)
	return sess, ok
}
