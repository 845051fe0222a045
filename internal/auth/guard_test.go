package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeDeniesRolesOutsideAllowedSet(t *testing.T) {
	for _, allowed := range Roles() {
		for _, role := range Roles() {
			d := Authorize([]Role{allowed}, &Session{Token: "t", Role: role})
			if role == allowed {
				assert.True(t, d.Admit, "%s should reach %s", role, allowed.Path())
				continue
			}
			assert.False(t, d.Admit, "%s must not reach %s", role, allowed.Path())
			assert.Equal(t, "/", d.RedirectPath)
		}
	}
}

func TestAuthorizeWithoutSession(t *testing.T) {
	d := Authorize([]Role{RoleAdmin}, nil)
	assert.False(t, d.Admit)
	assert.Equal(t, LoginPath, d.RedirectPath)

	d = Authorize([]Role{RoleAdmin}, &Session{Role: RoleAdmin})
	assert.False(t, d.Admit, "a role without a token is not a session")
}

func TestAuthorizeUnknownRole(t *testing.T) {
	d := Authorize([]Role{RoleAdmin}, &Session{Token: "t", Role: "Jardinero"})
	assert.False(t, d.Admit)
}

func TestRolePaths(t *testing.T) {
	want := map[Role]string{
		RoleAdmin:       "/admin",
		RoleResident:    "/resident",
		RoleMaintenance: "/maintenance",
		RoleGuard:       "/guard",
		RoleVisitor:     "/visitor",
	}
	for role, path := range want {
		assert.Equal(t, path, role.Path())
	}
	assert.Empty(t, Role("Jardinero").Path())
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("Vigilante")
	require.NoError(t, err)
	assert.Equal(t, RoleGuard, r)

	_, err = ParseRole("Jardinero")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestRoleByID(t *testing.T) {
	for _, role := range Roles() {
		got, ok := RoleByID(role.ID())
		require.True(t, ok)
		assert.Equal(t, role, got)
	}
	_, ok := RoleByID(99)
	assert.False(t, ok)
}
