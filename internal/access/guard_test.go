package access

import (
	"github.com/skybi/reservation-console/internal/permission"
	"github.com/skybi/reservation-console/internal/session"
	"github.com/stretchr/testify/assert"
	"testing"
)

func stateWith(token string, roles ...string) session.State {
	set := permission.NewRoles(roles...)
	return session.State{
		Status:      session.StatusAuthenticated,
		Token:       token,
		Roles:       set,
		Permissions: permission.Of(token != "", set),
	}
}

var userManagement = RequireSession().RequireRole(permission.RoleAdmin)

func TestEvaluate_Session(t *testing.T) {
	decision := RequireSession().Evaluate(session.State{})
	assert.False(t, decision.Allowed)
	assert.Equal(t, RedirectLogin, decision.Redirect)

	assert.True(t, RequireSession().Evaluate(stateWith("tok")).Allowed)
}

func TestEvaluate_RoleGatedView(t *testing.T) {
	decision := userManagement.Evaluate(stateWith("tok"))
	assert.False(t, decision.Allowed)
	assert.Equal(t, RedirectHome, decision.Redirect)
	assert.Contains(t, decision.Reason, "admin")

	assert.True(t, userManagement.Evaluate(stateWith("tok", "admin")).Allowed)
}

func TestEvaluate_SessionCheckedFirst(t *testing.T) {
	decision := userManagement.Evaluate(session.State{Roles: permission.NewRoles("admin")})
	assert.False(t, decision.Allowed)
	assert.Equal(t, RedirectLogin, decision.Redirect)
}

func TestEvaluate_RoleWithoutSessionRequirement(t *testing.T) {
	decision := (&Policy{}).RequireRole(permission.RoleAdmin).Evaluate(session.State{Roles: permission.NewRoles("admin")})
	assert.False(t, decision.Allowed)
	assert.Equal(t, RedirectHome, decision.Redirect)
}

func TestEvaluate_Capabilities(t *testing.T) {
	policy := RequireSession().RequireCapabilities(permission.CapabilityReserve, permission.CapabilityManageMachines)

	decision := policy.Evaluate(stateWith("tok"))
	assert.False(t, decision.Allowed)
	assert.Equal(t, RedirectHome, decision.Redirect)
	assert.Equal(t, "missing capabilities manageMachines", decision.Reason)

	assert.True(t, policy.Evaluate(stateWith("tok", "admin")).Allowed)
}

func TestEvaluate_LoggedOutAlwaysRedirectsToLogin(t *testing.T) {
	policies := []*Policy{
		RequireSession(),
		userManagement,
		RequireSession().RequireCapabilities(permission.CapabilityViewPool),
		RequireSession().RequireRole(permission.RoleAdmin).RequireCapabilities(permission.CapabilityReleaseAll),
	}
	for _, policy := range policies {
		decision := policy.Evaluate(session.State{Status: session.StatusAnonymous})
		assert.False(t, decision.Allowed)
		assert.Equal(t, RedirectLogin, decision.Redirect)
	}
}

func TestPolicy_BuilderDoesNotMutate(t *testing.T) {
	base := RequireSession()
	_ = base.RequireRole(permission.RoleAdmin)
	assert.True(t, base.Evaluate(stateWith("tok")).Allowed)
}

func TestEvaluate_NilPolicy(t *testing.T) {
	var policy *Policy
	assert.True(t, policy.Evaluate(session.State{}).Allowed)
}
