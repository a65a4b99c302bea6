// Package session decides what a client should show: sign-in, profile completion,
// a role-specific home, or a retryable error.
package session

import (
	"bloodconnect/internal/models"
)

// State is the resolved session state.
type State string

const (
	Unauthenticated State = "unauthenticated"
	NeedsProfile    State = "needs-profile"
	Ready           State = "ready"
	// Unavailable means the profile could not be read. It is retryable and
	// never collapses into NeedsProfile.
	Unavailable State = "unavailable"
)

// View is the home surface for a ready session.
type View string

const (
	ViewStandard   View = "standard"
	ViewAdmin      View = "admin"
	ViewSuperAdmin View = "superadmin"
)

// Snapshot is what clients render.
type Snapshot struct {
	State     State  `json:"state"`
	UID       string `json:"uid,omitempty"`
	Role      string `json:"role,omitempty"`
	View      View   `json:"view,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	// ProfileVersion is the profile version the snapshot was resolved from.
	ProfileVersion uint64 `json:"profileVersion,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// Identity is the signed-in principal, or nil when signed out.
type Identity struct {
	UID   string `json:"uid"`
	Phone string `json:"phone,omitempty"`
}

// ProfileRead is the outcome of reading the profile document for an identity.
// Exactly one of Profile, Missing or Err describes it.
type ProfileRead struct {
	Profile *models.Profile
	Missing bool
	Err     error
}

// Resolve applies the session rule. Without an identity the result is
// Unauthenticated whatever the profile says.
func Resolve(identity *Identity, read ProfileRead) Snapshot {
	if identity == nil || identity.UID == "" {
		return Snapshot{State: Unauthenticated}
	}

	snap := Snapshot{UID: identity.UID}
	switch {
	case read.Err != nil:
		snap.State = Unavailable
		snap.Retryable = true
		snap.Reason = "profile could not be loaded"
	case read.Missing || read.Profile == nil:
		snap.State = NeedsProfile
	case !read.Profile.ProfileComplete:
		snap.State = NeedsProfile
		snap.ProfileVersion = read.Profile.Version
	default:
		role := read.Profile.EffectiveRole()
		snap.State = Ready
		snap.Role = role
		snap.View = RouteForRole(role)
		snap.ProfileVersion = read.Profile.Version
	}
	return snap
}

// RouteForRole maps a role to its home view. Unknown and empty roles get the standard view.
func RouteForRole(role string) View {
	switch role {
	case models.RoleSuperAdmin:
		return ViewSuperAdmin
	case models.RoleAdmin:
		return ViewAdmin
	default:
		return ViewStandard
	}
}

// roleRank orders roles for authorization checks.
func roleRank(role string) int {
	switch role {
	case models.RoleSuperAdmin:
		return 2
	case models.RoleAdmin:
		return 1
	default:
		return 0
	}
}

// RoleAtLeast reports whether role grants at least minimum.
func RoleAtLeast(role, minimum string) bool {
	return roleRank(role) >= roleRank(minimum)
}

// IsKnownRole reports whether role is assignable.
func IsKnownRole(role string) bool {
	switch role {
	case models.RoleUser, models.RoleAdmin, models.RoleSuperAdmin:
		return true
	}
	return false
}
