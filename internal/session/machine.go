package session

import (
	"sync"
)

// Source identifies an event stream feeding a Machine.
type Source string

const (
	SourceIdentity Source = "identity"
	SourceProfile  Source = "profile"
)

// EventKind is what happened on a source.
type EventKind string

const (
	SignedIn  EventKind = "signed_in"
	Refreshed EventKind = "refreshed"
	SignedOut EventKind = "signed_out"

	ProfileSnapshot EventKind = "snapshot"
	ProfileMissing  EventKind = "missing"
	ProfileError    EventKind = "error"
)

// Event is one observation from a source. Seq is monotonic per source and uid;
// an event whose Seq is not newer than the last applied one for its source is stale.
type Event struct {
	Source   Source
	Kind     EventKind
	Seq      uint64
	Identity *Identity
	Read     ProfileRead
}

// Source returns the stream a kind belongs to.
func (k EventKind) Source() Source {
	switch k {
	case SignedIn, Refreshed, SignedOut:
		return SourceIdentity
	default:
		return SourceProfile
	}
}

// Machine holds the latest identity and profile observations for one client and
// resolves them into a Snapshot. It is safe for concurrent use.
type Machine struct {
	mu       sync.Mutex
	identity *Identity
	profile  ProfileRead
	haveRead bool
	lastSeq  map[Source]uint64
	// seqUID is the uid whose identity sequence lastSeq[SourceIdentity] tracks.
	seqUID string
	// readFailed marks that the last applied profile event was a read error.
	readFailed bool
	current    Snapshot
}

// NewMachine starts in the Unauthenticated state.
func NewMachine() *Machine {
	return &Machine{
		lastSeq: make(map[Source]uint64),
		current: Snapshot{State: Unauthenticated},
	}
}

// Snapshot returns the current resolved state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// NeedsProfileRead reports whether a signed-in identity is waiting for its
// profile, either because none was observed since sign-in or because the last
// read failed. The caller is expected to read the profile and Apply the result.
func (m *Machine) NeedsProfileRead() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity != nil && (!m.haveRead || m.readFailed)
}

// Apply feeds ev into the machine. It returns the resolved snapshot and whether
// it differs from the previous one. Stale events are dropped and report no change.
func (m *Machine) Apply(ev Event) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ev.Source == "" {
		ev.Source = ev.Kind.Source()
	}
	if m.isStaleLocked(ev) {
		return m.current, false
	}

	switch ev.Source {
	case SourceIdentity:
		m.applyIdentity(ev)
	case SourceProfile:
		if m.identity == nil {
			// Profile data without a signed-in identity cannot change the outcome.
			m.lastSeq[SourceProfile] = ev.Seq
			return m.current, false
		}
		m.applyProfile(ev)
	default:
		return m.current, false
	}

	next, pending := m.resolveLocked()
	if pending {
		if m.current.UID == "" || m.current.UID == m.identity.UID {
			// Hold the last answer until the profile is observed.
			return m.current, false
		}
		// Another user's snapshot must not outlive the switch.
		next = Snapshot{State: Unauthenticated}
	}
	changed := next != m.current
	m.current = next
	return next, changed
}

// isStaleLocked drops events that are not newer than the last applied one from
// the same source. Identity sequences are per uid, so an event for another uid is
// never stale. A profile read error may be followed by a retry of the same version.
func (m *Machine) isStaleLocked(ev Event) bool {
	last, seen := m.lastSeq[ev.Source]
	if !seen {
		return false
	}
	switch ev.Source {
	case SourceIdentity:
		if ev.Identity != nil && ev.Identity.UID != m.seqUID {
			return false
		}
	case SourceProfile:
		if m.readFailed && ev.Seq == last {
			return false
		}
	}
	return ev.Seq <= last
}

func (m *Machine) applyIdentity(ev Event) {
	m.lastSeq[SourceIdentity] = ev.Seq
	if ev.Identity != nil && ev.Identity.UID != "" {
		m.seqUID = ev.Identity.UID
	}

	if ev.Kind == SignedOut || ev.Identity == nil || ev.Identity.UID == "" {
		m.identity = nil
		m.resetProfileLocked()
		return
	}

	if m.identity == nil || m.identity.UID != ev.Identity.UID {
		// A different user: earlier profile observations belong to someone else.
		m.resetProfileLocked()
	}
	id := *ev.Identity
	m.identity = &id
}

func (m *Machine) applyProfile(ev Event) {
	m.lastSeq[SourceProfile] = ev.Seq
	m.haveRead = true
	m.readFailed = ev.Kind == ProfileError

	switch ev.Kind {
	case ProfileMissing:
		m.profile = ProfileRead{Missing: true}
	case ProfileError:
		m.profile = ProfileRead{Err: ev.Read.Err}
		if m.profile.Err == nil {
			m.profile.Err = errUnknownRead
		}
	default:
		m.profile = ev.Read
	}
}

func (m *Machine) resetProfileLocked() {
	m.profile = ProfileRead{}
	m.haveRead = false
	m.readFailed = false
	delete(m.lastSeq, SourceProfile)
}

// resolveLocked reports pending when an identity is known but its profile has not been observed.
func (m *Machine) resolveLocked() (Snapshot, bool) {
	if m.identity != nil && !m.haveRead {
		return Snapshot{}, true
	}
	return Resolve(m.identity, m.profile), false
}
