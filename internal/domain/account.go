package domain

import "time"

// Account is the domain model for a provisioned portal account. Accounts are
// created out of band (cmd/addaccount); there is no self-registration.
type Account struct {
	ID           string
	Identifier   string
	RoleClass    RoleClass
	PasswordHash string
	IsAdmin      bool
	IsNewUser    bool
	IsApproved   bool
	Allocation   *Allocation
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
