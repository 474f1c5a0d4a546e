package domain

import "time"

// RequestStatus enumerates AccessRequest lifecycle states. Both states are
// terminal in the sense that requests are never deleted.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
)

// AccessRequest is a user's request for a usage allocation, pending admin
// approval. At most one pending request exists per identifier; resubmitting
// replaces the pending one.
type AccessRequest struct {
	ID                         string
	Identifier                 string
	RoleClass                  RoleClass
	RequestedModels            []string
	RequestedPromptsPerDay     int
	RequestedTokensPerResponse int
	Justification              string
	Status                     RequestStatus
	Allocation                 *Allocation
	ApprovedBy                 *string
	ApprovedAt                 *time.Time
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

// Catalog lists the models a requester may ask for plus the default quota
// values used to prefill the request form.
type Catalog struct {
	Models               []string `json:"models"`
	DefaultPromptsPerDay int      `json:"default_prompts_per_day"`
	MaxTokensPerResponse int      `json:"max_tokens_per_response"`
}
