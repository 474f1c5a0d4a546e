package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/access-portal/internal/api/dto"
	"github.com/spec-kit/access-portal/internal/auth"
	"github.com/spec-kit/access-portal/internal/domain"
	"github.com/spec-kit/access-portal/internal/service"
)

// AdminHandler exposes the approval dashboard endpoints.
type AdminHandler struct {
	requests *service.RequestService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(requestService *service.RequestService) *AdminHandler {
	return &AdminHandler{requests: requestService}
}

// ListPending handles GET /admin/requests/pending. Most recent first, so
// admins triage newest requests first.
func (h *AdminHandler) ListPending(c *fiber.Ctx) error {
	pending, err := h.requests.ListPending(c.Context())
	if err != nil {
		return err
	}

	views := make([]dto.RequestView, 0, len(pending))
	for _, req := range pending {
		views = append(views, dto.NewRequestView(req))
	}
	return c.JSON(fiber.Map{"status": true, "requests": views})
}

// ApproveOne handles POST /admin/requests/:id/approve.
func (h *AdminHandler) ApproveOne(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var payload dto.AllocationPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	approved, err := h.requests.ApproveOne(c.Context(), c.Params("id"), payload.ToDomain(), sess.Identifier)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": true, "request": dto.NewRequestView(approved)})
}

// EditAllocation handles POST /admin/requests/:id/allocation.
func (h *AdminHandler) EditAllocation(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var payload dto.AllocationPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	edited, err := h.requests.EditAllocation(c.Context(), c.Params("id"), payload.ToDomain(), sess.Identifier)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": true, "request": dto.NewRequestView(edited)})
}

// ApproveAll handles POST /admin/requests/approve-all.
func (h *AdminHandler) ApproveAll(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	count, err := h.requests.ApproveAll(c.Context(), sess.Identifier)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": true, "approved": count})
}

// ApproveByRoleClass handles POST /admin/requests/approve-all/:role_class.
func (h *AdminHandler) ApproveByRoleClass(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	roleClass := domain.RoleClass(c.Params("role_class"))
	if roleClass == "" {
		return fiber.NewError(http.StatusBadRequest, "role_class required")
	}

	count, err := h.requests.ApproveByRoleClass(c.Context(), roleClass, sess.Identifier)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": true, "approved": count})
}
