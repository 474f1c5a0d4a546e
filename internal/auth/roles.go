package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// RequireAdmin ensures the session belongs to an admin account. Admin status
// is a backend flag independent of role class.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := SessionFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if !sess.IsAdmin {
			return fiber.NewError(http.StatusForbidden, "admin required")
		}
		return c.Next()
	}
}

// RequireSession ensures the caller is authenticated.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := SessionFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}
