package session

import (
	"errors"
	"testing"

	"bloodconnect/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestResolve_NoIdentityIsUnauthenticated(t *testing.T) {
	reads := []ProfileRead{
		{},
		{Missing: true},
		{Err: errors.New("boom")},
		{Profile: &models.Profile{ProfileComplete: true, Role: models.RoleSuperAdmin}},
	}
	for _, read := range reads {
		assert.Equal(t, Snapshot{State: Unauthenticated}, Resolve(nil, read))
		assert.Equal(t, Unauthenticated, Resolve(&Identity{}, read).State)
	}
}

func TestResolve_NeedsProfile(t *testing.T) {
	id := &Identity{UID: "u1"}

	assert.Equal(t, NeedsProfile, Resolve(id, ProfileRead{Missing: true}).State)
	assert.Equal(t, NeedsProfile, Resolve(id, ProfileRead{}).State)

	partial := Resolve(id, ProfileRead{Profile: &models.Profile{Name: "Asha", BloodGroup: "O+", Version: 3}})
	assert.Equal(t, NeedsProfile, partial.State, "field presence never implies completion")
	assert.Equal(t, uint64(3), partial.ProfileVersion)
}

func TestResolve_ReadErrorIsUnavailable(t *testing.T) {
	snap := Resolve(&Identity{UID: "u1"}, ProfileRead{Err: errors.New("timeout")})

	assert.Equal(t, Unavailable, snap.State)
	assert.True(t, snap.Retryable)
	assert.Empty(t, snap.View, "a failed read never picks a view")
	assert.Empty(t, snap.Role)
}

func TestResolve_Ready(t *testing.T) {
	snap := Resolve(&Identity{UID: "u1"}, ProfileRead{Profile: &models.Profile{
		ProfileComplete: true, Role: models.RoleAdmin, Version: 7,
	}})

	assert.Equal(t, Snapshot{State: Ready, UID: "u1", Role: "admin", View: ViewAdmin, ProfileVersion: 7}, snap)

	snap = Resolve(&Identity{UID: "u1"}, ProfileRead{Profile: &models.Profile{ProfileComplete: true}})
	assert.Equal(t, models.RoleUser, snap.Role)
	assert.Equal(t, ViewStandard, snap.View)
}

func TestRouteForRole_Total(t *testing.T) {
	cases := map[string]View{
		"superadmin": ViewSuperAdmin,
		"admin":      ViewAdmin,
		"user":       ViewStandard,
		"":           ViewStandard,
		"moderator":  ViewStandard,
		"ADMIN":      ViewStandard,
	}
	for role, want := range cases {
		assert.Equal(t, want, RouteForRole(role), "role %q", role)
	}
}

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, RoleAtLeast("superadmin", "admin"))
	assert.True(t, RoleAtLeast("admin", "admin"))
	assert.False(t, RoleAtLeast("user", "admin"))
	assert.False(t, RoleAtLeast("", "admin"))
	assert.True(t, RoleAtLeast("", "user"))
	assert.False(t, RoleAtLeast("admin", "superadmin"))

	assert.True(t, IsKnownRole("admin"))
	assert.False(t, IsKnownRole("root"))
}
