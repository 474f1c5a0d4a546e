package events

import (
	"time"

	"github.com/spec-kit/access-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestSubmitted  EventType = "request_submitted"
	EventRequestApproved   EventType = "request_approved"
	EventAllocationChanged EventType = "allocation_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	RequestID  string      `json:"request_id"`
	Identifier string      `json:"identifier"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// RequestSubmittedPayload payload.
type RequestSubmittedPayload struct {
	RoleClass       domain.RoleClass `json:"role_class"`
	RequestedModels []string         `json:"requested_models"`
	Resubmission    bool             `json:"resubmission"`
}

// RequestApprovedPayload payload.
type RequestApprovedPayload struct {
	ApprovedBy string            `json:"approved_by"`
	Allocation domain.Allocation `json:"allocation"`
}

// AllocationChangedPayload payload.
type AllocationChangedPayload struct {
	EditedBy      string            `json:"edited_by"`
	OldAllocation domain.Allocation `json:"old_allocation"`
	NewAllocation domain.Allocation `json:"new_allocation"`
}
