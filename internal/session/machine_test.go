package session

import (
	"errors"
	"sync"
	"testing"

	"bloodconnect/internal/models"

	"github.com/stretchr/testify/assert"
)

func signedIn(uid string, seq uint64) Event {
	return Event{Kind: SignedIn, Seq: seq, Identity: &Identity{UID: uid}}
}

func profileEvent(version uint64, complete bool, role string) Event {
	return Event{Kind: ProfileSnapshot, Seq: version, Read: ProfileRead{
		Profile: &models.Profile{ProfileComplete: complete, Role: role, Version: version},
	}}
}

func TestMachine_SignInThenProfile(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, Unauthenticated, m.Snapshot().State)

	_, changed := m.Apply(signedIn("u1", 1))
	assert.False(t, changed, "no answer until the profile is observed")

	snap, changed := m.Apply(Event{Kind: ProfileMissing})
	assert.True(t, changed)
	assert.Equal(t, NeedsProfile, snap.State)

	snap, changed = m.Apply(profileEvent(1, true, "user"))
	assert.True(t, changed)
	assert.Equal(t, Ready, snap.State)
	assert.Equal(t, ViewStandard, snap.View)
}

func TestMachine_DropsStaleProfileEvents(t *testing.T) {
	m := NewMachine()
	m.Apply(signedIn("u1", 1))
	m.Apply(profileEvent(3, true, "admin"))

	// An older document version arrives late.
	snap, changed := m.Apply(profileEvent(2, false, "user"))
	assert.False(t, changed)
	assert.Equal(t, Ready, snap.State)
	assert.Equal(t, ViewAdmin, snap.View)

	// A duplicate of the applied version is ignored too.
	_, changed = m.Apply(profileEvent(3, true, "admin"))
	assert.False(t, changed)
}

func TestMachine_DropsStaleIdentityEvents(t *testing.T) {
	m := NewMachine()
	m.Apply(signedIn("u1", 5))
	m.Apply(profileEvent(1, true, "user"))

	snap, changed := m.Apply(Event{Kind: SignedOut, Seq: 4, Identity: &Identity{UID: "u1"}})
	assert.False(t, changed)
	assert.Equal(t, Ready, snap.State)

	snap, changed = m.Apply(Event{Kind: SignedOut, Seq: 6, Identity: &Identity{UID: "u1"}})
	assert.True(t, changed)
	assert.Equal(t, Snapshot{State: Unauthenticated}, snap)
}

func TestMachine_SwitchingUserResetsProfile(t *testing.T) {
	m := NewMachine()
	m.Apply(signedIn("u1", 9))
	m.Apply(profileEvent(4, true, "superadmin"))

	// u2's identity sequence is independent of u1's.
	snap, changed := m.Apply(signedIn("u2", 1))
	assert.True(t, changed)
	assert.Equal(t, Unauthenticated, snap.State, "u1's view must not leak to u2")

	// u2's profile at a lower version than u1's is not stale.
	snap, _ = m.Apply(profileEvent(1, false, ""))
	assert.Equal(t, NeedsProfile, snap.State)
	assert.Equal(t, "u2", snap.UID)
}

func TestMachine_ReadErrorThenRetry(t *testing.T) {
	m := NewMachine()
	m.Apply(signedIn("u1", 1))

	snap, _ := m.Apply(Event{Kind: ProfileError, Seq: 2, Read: ProfileRead{Err: errors.New("db down")}})
	assert.Equal(t, Unavailable, snap.State)
	assert.True(t, snap.Retryable)

	snap, changed := m.Apply(profileEvent(2, true, "user"))
	assert.True(t, changed, "a retry of the same version after an error is applied")
	assert.Equal(t, Ready, snap.State)
}

func TestMachine_SignOutThenSignInAgain(t *testing.T) {
	m := NewMachine()
	m.Apply(signedIn("u1", 1))
	m.Apply(profileEvent(3, true, "user"))
	assert.False(t, m.NeedsProfileRead())

	snap, changed := m.Apply(Event{Kind: SignedOut, Seq: 2})
	assert.True(t, changed)
	assert.Equal(t, Unauthenticated, snap.State)
	assert.False(t, m.NeedsProfileRead(), "nobody is signed in")

	_, changed = m.Apply(signedIn("u1", 3))
	assert.False(t, changed)
	assert.True(t, m.NeedsProfileRead())

	// The profile is unchanged since before the sign-out; the same version applies again.
	snap, changed = m.Apply(profileEvent(3, true, "user"))
	assert.True(t, changed)
	assert.Equal(t, Ready, snap.State)
	assert.False(t, m.NeedsProfileRead())
}

func TestMachine_ReadErrorNeedsProfileRead(t *testing.T) {
	m := NewMachine()
	m.Apply(signedIn("u1", 1))
	m.Apply(Event{Kind: ProfileError, Read: ProfileRead{Err: errors.New("db down")}})
	assert.True(t, m.NeedsProfileRead())

	m.Apply(Event{Kind: ProfileMissing})
	assert.False(t, m.NeedsProfileRead())
}

func TestMachine_ProfileWithoutIdentityIsIgnored(t *testing.T) {
	m := NewMachine()
	snap, changed := m.Apply(profileEvent(5, true, "admin"))
	assert.False(t, changed)
	assert.Equal(t, Unauthenticated, snap.State)
}

func TestMachine_ConcurrentApply(t *testing.T) {
	m := NewMachine()
	m.Apply(signedIn("u1", 1))

	var wg sync.WaitGroup
	for v := uint64(1); v <= 50; v++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			m.Apply(profileEvent(v, v%2 == 0, "user"))
		}(v)
	}
	wg.Wait()

	// Whatever the arrival order, the newest version wins.
	m.Apply(profileEvent(50, true, "user"))
	assert.Equal(t, uint64(50), m.Snapshot().ProfileVersion)
	assert.Equal(t, Ready, m.Snapshot().State)
}
