package portal

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials is returned when the backend explicitly rejects a login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrNoSession is returned by a session store when nobody is logged in.
var ErrNoSession = errors.New("no session")

// ErrRequestInFlight is returned when a mutating call is attempted while the
// same operation is still outstanding.
var ErrRequestInFlight = errors.New("request already in flight")

// ValidationError reports a client-side input problem. No network call was
// issued.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NetworkError covers transport failures, timeouts, non-2xx responses and
// malformed payloads.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AuthorizationError is returned when a view is not reachable for the current
// session. Redirect names the view to land on instead.
type AuthorizationError struct {
	Denied   View
	Redirect View
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("access to %s denied, redirect to %s", e.Denied, e.Redirect)
}
