package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/access-portal/internal/api/dto"
	"github.com/spec-kit/access-portal/internal/auth"
	"github.com/spec-kit/access-portal/internal/domain"
	"github.com/spec-kit/access-portal/internal/service"
)

// AuthHandler exposes login and logout endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Identifier == "" || req.Password == "" || req.RoleClass == "" {
		return fiber.NewError(http.StatusBadRequest, "identifier, role_class, password required")
	}

	sess, err := h.auth.Login(c.Context(), req.Identifier, domain.RoleClass(req.RoleClass), req.Password)
	if err != nil {
		return err
	}

	return c.JSON(dto.NewLoginResponse(sess))
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	if err := h.auth.Logout(c.Context(), sess.TokenID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": true})
}

// Me handles GET /auth/me, returning the current session shape so clients can
// restore state after a reload.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	resp := dto.NewLoginResponse(sess)
	resp.Token = ""
	return c.JSON(resp)
}
