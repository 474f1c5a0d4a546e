package dto

import (
	"time"

	"github.com/spec-kit/access-portal/internal/domain"
)

// SubmitRequest is the access request form payload. Identifier and role class
// come from the session, not the body.
type SubmitRequest struct {
	Models            []string `json:"models"`
	PromptsPerDay     int      `json:"prompts_per_day"`
	TokensPerResponse int      `json:"tokens_per_response"`
	Justification     string   `json:"justification"`
}

// AllocationPayload carries an admin-assigned allocation.
type AllocationPayload struct {
	Models            []string `json:"models"`
	PromptsPerDay     int      `json:"prompts_per_day"`
	TokensPerResponse int      `json:"tokens_per_response"`
}

// ToDomain converts the payload.
func (p AllocationPayload) ToDomain() domain.Allocation {
	return domain.Allocation{
		Models:            p.Models,
		PromptsPerDay:     p.PromptsPerDay,
		TokensPerResponse: p.TokensPerResponse,
	}
}

// RequestView is the JSON projection of an access request.
type RequestView struct {
	ID                         string               `json:"id"`
	Identifier                 string               `json:"identifier"`
	RoleClass                  domain.RoleClass     `json:"role_class"`
	RequestedModels            []string             `json:"requested_models"`
	RequestedPromptsPerDay     int                  `json:"requested_prompts_per_day"`
	RequestedTokensPerResponse int                  `json:"requested_tokens_per_response"`
	Justification              string               `json:"justification"`
	Status                     domain.RequestStatus `json:"status"`
	Allocation                 *domain.Allocation   `json:"allocation,omitempty"`
	ApprovedBy                 *string              `json:"approved_by,omitempty"`
	ApprovedAt                 *time.Time           `json:"approved_at,omitempty"`
	CreatedAt                  time.Time            `json:"created_at"`
}

// NewRequestView maps a domain request.
func NewRequestView(req *domain.AccessRequest) RequestView {
	return RequestView{
		ID:                         req.ID,
		Identifier:                 req.Identifier,
		RoleClass:                  req.RoleClass,
		RequestedModels:            req.RequestedModels,
		RequestedPromptsPerDay:     req.RequestedPromptsPerDay,
		RequestedTokensPerResponse: req.RequestedTokensPerResponse,
		Justification:              req.Justification,
		Status:                     req.Status,
		Allocation:                 req.Allocation,
		ApprovedBy:                 req.ApprovedBy,
		ApprovedAt:                 req.ApprovedAt,
		CreatedAt:                  req.CreatedAt,
	}
}

// StatusResponse reports the requester's current resolution.
type StatusResponse struct {
	Status     bool               `json:"status"`
	State      string             `json:"state"`
	CreatedAt  *time.Time         `json:"created_at,omitempty"`
	Allocation *domain.Allocation `json:"allocation,omitempty"`
	ApprovedBy *string            `json:"approved_by,omitempty"`
	ApprovedAt *time.Time         `json:"approved_at,omitempty"`
}
