package portal

// View names a navigable destination in the portal.
type View string

const (
	ViewLogin   View = "login"
	ViewMain    View = "main"
	ViewRequest View = "request"
	ViewPending View = "pending"
	ViewAdmin   View = "admin"
)

// Resolve returns the landing view for a session. It is a pure function of
// the session flags: no session lands on Login, admins and approved users on
// Main, new unapproved users on the request form, everyone else on Pending.
func Resolve(sess *Session) View {
	switch {
	case sess == nil:
		return ViewLogin
	case sess.IsAdmin:
		return ViewMain
	case sess.IsNewUser && !sess.IsApproved:
		return ViewRequest
	case !sess.IsApproved:
		return ViewPending
	default:
		return ViewMain
	}
}

// Allowed reports whether the session may enter the view.
func Allowed(sess *Session, view View) bool {
	if sess == nil {
		return view == ViewLogin
	}
	switch view {
	case ViewLogin:
		return true
	case ViewAdmin:
		return sess.IsAdmin
	case ViewMain:
		return sess.IsAdmin || sess.IsApproved
	case ViewRequest:
		return !sess.IsAdmin && sess.IsNewUser && !sess.IsApproved
	case ViewPending:
		return !sess.IsAdmin && !sess.IsApproved
	}
	return false
}

// Require returns nil when the view is reachable, otherwise an
// AuthorizationError carrying the redirect target.
func Require(sess *Session, view View) error {
	if Allowed(sess, view) {
		return nil
	}
	return &AuthorizationError{Denied: view, Redirect: Resolve(sess)}
}
