package session

import (
	"github.com/skybi/reservation-console/internal/bitflag"
	"github.com/skybi/reservation-console/internal/permission"
)

// Status represents the authentication status of a session
type Status int

const (
	// StatusAnonymous means no token is held
	StatusAnonymous Status = iota

	// StatusAuthenticating means a token is held but its identity is being resolved
	StatusAuthenticating

	// StatusAuthenticated means a token is held and its identity was confirmed by the backend
	StatusAuthenticated

	// StatusDemoted means a token is held but its identity could not be resolved
	StatusDemoted
)

func (status Status) String() string {
	switch status {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusDemoted:
		return "demoted"
	default:
		return "unknown"
	}
}

// MessageInvalidCredentials is the fixed text shown whenever a login attempt failed
const MessageInvalidCredentials = "Invalid credentials"

// State represents an immutable snapshot of a session.
// Identity and Roles are only ever set while Token is.
type State struct {
	Status      Status
	Token       string
	Identity    string
	Roles       permission.Roles
	Permissions bitflag.Container
}

// HasToken reports whether the session holds a token
func (state State) HasToken() bool {
	return state.Token != ""
}

// IsAdmin reports whether the session holds the admin role
func (state State) IsAdmin() bool {
	return state.Roles.Has(permission.RoleAdmin)
}

// Holder provides read access to the session calls are authorized with
type Holder interface {
	State() State
}

var _ Holder = (*Store)(nil)

func anonymousState() State {
	return State{
		Status:      StatusAnonymous,
		Roles:       permission.NewRoles(),
		Permissions: permission.Of(false, nil),
	}
}

func (state State) clone() State {
	state.Roles = state.Roles.Clone()
	return state
}
