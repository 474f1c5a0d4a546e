package dto

import (
	"time"

	"github.com/spec-kit/access-portal/internal/domain"
)

// LoginRequest is the credential triple presented at login.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	RoleClass  string `json:"role_class"`
	Password   string `json:"password"`
}

// LoginResponse is the canonical login payload. Status is the single pinned
// success discriminant; clients must treat any other shape as failure.
type LoginResponse struct {
	Status     bool               `json:"status"`
	Identifier string             `json:"identifier"`
	RoleClass  domain.RoleClass   `json:"role_class"`
	IsAdmin    bool               `json:"is_admin"`
	IsNewUser  bool               `json:"is_new_user"`
	IsApproved bool               `json:"is_approved"`
	Token      string             `json:"token,omitempty"`
	ExpiresAt  time.Time          `json:"expires_at"`
	Allocation *domain.Allocation `json:"allocation,omitempty"`
}

// NewLoginResponse maps a session onto the canonical payload.
func NewLoginResponse(sess *domain.Session) LoginResponse {
	return LoginResponse{
		Status:     true,
		Identifier: sess.Identifier,
		RoleClass:  sess.RoleClass,
		IsAdmin:    sess.IsAdmin,
		IsNewUser:  sess.IsNewUser,
		IsApproved: sess.IsApproved,
		Token:      sess.Token,
		ExpiresAt:  sess.ExpiresAt,
		Allocation: sess.Allocation,
	}
}
