package portal

import "encoding/json"

// rawLoginPayload accepts every login response shape the backend has been
// observed to emit. The canonical discriminant is the top-level "status"
// boolean; "success" and msg=="true" are legacy shapes still accepted here.
type rawLoginPayload struct {
	Status     *bool       `json:"status"`
	Success    *bool       `json:"success"`
	Msg        string      `json:"msg"`
	Identifier string      `json:"identifier"`
	RoleClass  string      `json:"role_class"`
	IsAdmin    bool        `json:"is_admin"`
	IsNewUser  bool        `json:"is_new_user"`
	IsApproved bool        `json:"is_approved"`
	Token      string      `json:"token"`
	Allocation *Allocation `json:"allocation"`
}

// normalizeLogin collapses the raw payload variants into the canonical
// Session shape. This is the ONLY place backend login shapes are interpreted;
// anything that does not positively indicate success is a failure.
func normalizeLogin(payload []byte) (*Session, error) {
	var raw rawLoginPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &NetworkError{Op: "login", Err: err}
	}

	if !loginSucceeded(raw) {
		return nil, ErrInvalidCredentials
	}

	return &Session{
		Identifier: raw.Identifier,
		RoleClass:  raw.RoleClass,
		IsAdmin:    raw.IsAdmin,
		IsNewUser:  raw.IsNewUser,
		IsApproved: raw.IsApproved,
		Token:      raw.Token,
		Allocation: raw.Allocation,
	}, nil
}

func loginSucceeded(raw rawLoginPayload) bool {
	if raw.Status != nil {
		return *raw.Status
	}
	if raw.Success != nil {
		return *raw.Success
	}
	return raw.Msg == "true"
}
