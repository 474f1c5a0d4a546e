package domain

import "time"

// RoleClass is the personnel category presented at login. Values come from
// the upstream personnel system ("1" officer, "2" airman, "3" civilian) and
// are opaque to authorization logic.
type RoleClass string

const (
	RoleClassOfficer  RoleClass = "1"
	RoleClassAirman   RoleClass = "2"
	RoleClassCivilian RoleClass = "3"
)

// Allocation is the usage grant attached to an approved account: which models
// may be used and at what daily/per-response quotas.
type Allocation struct {
	Models            []string `json:"models"`
	PromptsPerDay     int      `json:"prompts_per_day"`
	TokensPerResponse int      `json:"tokens_per_response"`
}

// Session describes the authenticated actor for the lifetime of a token.
// A Session exists only after a successful login and is destroyed on logout
// or token expiry. The session store is its sole owner.
type Session struct {
	TokenID    string      `json:"token_id"`
	Identifier string      `json:"identifier"`
	RoleClass  RoleClass   `json:"role_class"`
	IsAdmin    bool        `json:"is_admin"`
	IsNewUser  bool        `json:"is_new_user"`
	IsApproved bool        `json:"is_approved"`
	Token      string      `json:"token,omitempty"`
	Allocation *Allocation `json:"allocation,omitempty"`
	ExpiresAt  time.Time   `json:"expires_at"`
}
