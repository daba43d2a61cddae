package permission

import (
	"github.com/skybi/reservation-console/internal/bitflag"
	"sort"
	"strings"
)

// Role represents a role name as reported by the backend's identity endpoint
type Role string

// RoleAdmin is the only role the console distinguishes
const RoleAdmin Role = "admin"

// Roles represents a flat set of roles
type Roles map[Role]struct{}

// NewRoles builds a role set out of raw role names, ignoring blank entries
func NewRoles(raw ...string) Roles {
	roles := make(Roles, len(raw))
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		roles[Role(name)] = struct{}{}
	}
	return roles
}

// Has checks if the set contains the given role
func (roles Roles) Has(role Role) bool {
	_, ok := roles[role]
	return ok
}

// Slice returns the roles of the set in lexical order
func (roles Roles) Slice() []Role {
	out := make([]Role, 0, len(roles))
	for role := range roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i] < out[j]
	})
	return out
}

// Clone returns an independent copy of the set
func (roles Roles) Clone() Roles {
	cpy := make(Roles, len(roles))
	for role := range roles {
		cpy[role] = struct{}{}
	}
	return cpy
}

// Capabilities a session may hold. They are derived from the session's roles by Of.
const (
	CapabilityViewPool bitflag.Flag = 1 << iota
	CapabilityViewMachines
	CapabilityViewReservations
	CapabilityReserve
	CapabilityManageMachines
	CapabilityManageUsers
	CapabilityReleaseAll
)

// Capabilities lists every known capability in declaration order
var Capabilities = []bitflag.Flag{
	CapabilityViewPool,
	CapabilityViewMachines,
	CapabilityViewReservations,
	CapabilityReserve,
	CapabilityManageMachines,
	CapabilityManageUsers,
	CapabilityReleaseAll,
}

var capabilityNames = map[bitflag.Flag]string{
	CapabilityViewPool:         "viewPool",
	CapabilityViewMachines:     "viewMachines",
	CapabilityViewReservations: "viewReservations",
	CapabilityReserve:          "reserve",
	CapabilityManageMachines:   "manageMachines",
	CapabilityManageUsers:      "manageUsers",
	CapabilityReleaseAll:       "releaseAll",
}

// Name returns the human-readable name of a capability
func Name(capability bitflag.Flag) string {
	if name, ok := capabilityNames[capability]; ok {
		return name
	}
	return "unknown"
}

// Names returns the names of all capabilities set in the container
func Names(container bitflag.Container) []string {
	names := make([]string, 0, len(Capabilities))
	for _, capability := range Capabilities {
		if container.Has(capability) {
			names = append(names, Name(capability))
		}
	}
	return names
}

var (
	// sessionCapabilities are granted to every session holding a token
	sessionCapabilities = bitflag.EmptyContainer.With(
		CapabilityViewPool,
		CapabilityViewMachines,
		CapabilityViewReservations,
		CapabilityReserve,
	)

	// roleCapabilities are granted additionally per role
	roleCapabilities = map[Role]bitflag.Container{
		RoleAdmin: bitflag.EmptyContainer.With(
			CapabilityManageMachines,
			CapabilityManageUsers,
			CapabilityReleaseAll,
		),
	}
)

// Of derives the capability set of a session.
// A session without a token holds no capabilities, regardless of the given roles.
func Of(hasToken bool, roles Roles) bitflag.Container {
	if !hasToken {
		return bitflag.EmptyContainer
	}
	caps := sessionCapabilities
	for role := range roles {
		caps |= roleCapabilities[role]
	}
	return caps
}
