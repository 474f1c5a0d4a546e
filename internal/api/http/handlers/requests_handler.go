package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/access-portal/internal/api/dto"
	"github.com/spec-kit/access-portal/internal/auth"
	"github.com/spec-kit/access-portal/internal/service"
)

// RequestsHandler exposes catalog, submission and status endpoints.
type RequestsHandler struct {
	requests *service.RequestService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.RequestService) *RequestsHandler {
	return &RequestsHandler{requests: requestService}
}

// Catalog handles GET /catalog.
func (h *RequestsHandler) Catalog(c *fiber.Ctx) error {
	catalog := h.requests.Catalog(c.Context())
	return c.JSON(fiber.Map{"status": true, "catalog": catalog})
}

// Submit handles POST /requests.
func (h *RequestsHandler) Submit(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	created, err := h.requests.Submit(c.Context(), service.SubmitInput{
		Identifier:        sess.Identifier,
		RoleClass:         sess.RoleClass,
		Models:            req.Models,
		PromptsPerDay:     req.PromptsPerDay,
		TokensPerResponse: req.TokensPerResponse,
		Justification:     req.Justification,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"status":  true,
		"request": dto.NewRequestView(created),
	})
}

// Status handles GET /requests/status.
func (h *RequestsHandler) Status(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	result, err := h.requests.Status(c.Context(), sess.Identifier)
	if err != nil {
		return err
	}

	resp := dto.StatusResponse{Status: true, State: string(result.State)}
	if result.Request != nil {
		createdAt := result.Request.CreatedAt
		resp.CreatedAt = &createdAt
		resp.Allocation = result.Request.Allocation
		resp.ApprovedBy = result.Request.ApprovedBy
		resp.ApprovedAt = result.Request.ApprovedAt
	}
	return c.JSON(resp)
}
