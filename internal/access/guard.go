// Package access decides whether a view may be rendered for a given session.
// Decisions only steer navigation; the backend enforces authorization on its own.
package access

import (
	"fmt"
	"github.com/skybi/reservation-console/internal/bitflag"
	"github.com/skybi/reservation-console/internal/permission"
	"github.com/skybi/reservation-console/internal/session"
	"strings"
)

const (
	// RedirectLogin is the view a session without a token is sent to
	RedirectLogin = "/login"

	// RedirectHome is the view a session lacking a role or capability is sent to
	RedirectHome = "/"
)

// Decision represents the outcome of a policy evaluation
type Decision struct {
	Allowed  bool
	Redirect string
	Reason   string
}

var allowed = Decision{Allowed: true}

// Policy represents the requirements a view imposes on the session
type Policy struct {
	session      bool
	roles        []permission.Role
	capabilities []bitflag.Flag
}

// RequireSession creates a policy requiring a token to be held
func RequireSession() *Policy {
	return &Policy{session: true}
}

// RequireRole extends the policy by a required role
func (policy *Policy) RequireRole(role permission.Role) *Policy {
	cpy := policy.clone()
	cpy.roles = append(cpy.roles, role)
	return cpy
}

// RequireCapabilities extends the policy by required capabilities
func (policy *Policy) RequireCapabilities(capabilities ...bitflag.Flag) *Policy {
	cpy := policy.clone()
	cpy.capabilities = append(cpy.capabilities, capabilities...)
	return cpy
}

func (policy *Policy) clone() *Policy {
	if policy == nil {
		return &Policy{}
	}
	return &Policy{
		session:      policy.session,
		roles:        append([]permission.Role(nil), policy.roles...),
		capabilities: append([]bitflag.Flag(nil), policy.capabilities...),
	}
}

// Evaluate checks the policy against a session snapshot.
// The session requirement is checked first, then roles, then capabilities; the first failing one decides.
// A nil policy allows everything.
func (policy *Policy) Evaluate(state session.State) Decision {
	if policy == nil {
		return allowed
	}
	if policy.session && !state.HasToken() {
		return Decision{
			Redirect: RedirectLogin,
			Reason:   "no session",
		}
	}
	for _, role := range policy.roles {
		if !state.HasToken() || !state.Roles.Has(role) {
			return Decision{
				Redirect: RedirectHome,
				Reason:   fmt.Sprintf("missing role '%s'", role),
			}
		}
	}
	if missing := state.Permissions.Missing(policy.capabilities...); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, capability := range missing {
			names = append(names, permission.Name(capability))
		}
		return Decision{
			Redirect: RedirectHome,
			Reason:   fmt.Sprintf("missing capabilities %s", strings.Join(names, ", ")),
		}
	}
	return allowed
}
