package auth

import "slices"

// LoginPath is where every denied request is sent.
const LoginPath = "/"

// Session is the {token, role} pair held for a signed-in browser.
type Session struct {
	Token string
	Role  Role
}

type Decision struct {
	Admit        bool
	RedirectPath string
}

// Authorize admits a request iff a session exists and its role is allowed.
func Authorize(allowed []Role, sess *Session) Decision {
	if sess == nil || sess.Token == "" || !slices.Contains(allowed, sess.Role) {
		return Decision{RedirectPath: LoginPath}
	}
	return Decision{Admit: true}
}
