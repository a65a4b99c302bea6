package notifications

import (
	"encoding/json"
	"errors"
	"fmt"

	"bloodconnect/internal/feed"
	"bloodconnect/internal/models"
	"bloodconnect/internal/session"
)

// Message types pushed to WebSocket clients.
const (
	TypeSession     = "session"
	TypePostCreated = "post.created"
	TypeError       = "error"
)

// SessionEvent is the wire form of an identity or profile change for one uid.
// SessionID limits a sign-out to the sockets of one device session.
type SessionEvent struct {
	Kind      session.EventKind `json:"kind"`
	UID       string            `json:"uid"`
	SessionID string            `json:"sid,omitempty"`
	Phone     string            `json:"phone,omitempty"`
	Seq       uint64            `json:"seq"`
	Profile   *models.Profile   `json:"profile,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// scope returns the device session the event is limited to, empty for all of them.
func (e SessionEvent) scope() string {
	if e.Kind == session.SignedOut {
		return e.SessionID
	}
	return ""
}

// MachineEvent converts the wire event into a session.Machine input.
func (e SessionEvent) MachineEvent() session.Event {
	ev := session.Event{Source: e.Kind.Source(), Kind: e.Kind, Seq: e.Seq}
	switch e.Kind {
	case session.SignedIn, session.Refreshed:
		ev.Identity = &session.Identity{UID: e.UID, Phone: e.Phone}
	case session.SignedOut:
		ev.Identity = nil
	case session.ProfileSnapshot:
		ev.Read = session.ProfileRead{Profile: e.Profile, Missing: e.Profile == nil}
	case session.ProfileMissing:
		ev.Read = session.ProfileRead{Missing: true}
	case session.ProfileError:
		msg := e.Error
		if msg == "" {
			msg = "profile read failed"
		}
		ev.Read = session.ProfileRead{Err: errors.New(msg)}
	}
	return ev
}

// FeedEvent announces a newly stored post to every connected client.
type FeedEvent struct {
	Type string    `json:"type"`
	Post feed.Item `json:"post"`
}

// Envelope is what clients receive on the socket.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// EncodeEnvelope marshals a socket message of type typ.
func EncodeEnvelope(typ string, payload any) ([]byte, error) {
	data, err := json.Marshal(Envelope{Type: typ, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", typ, err)
	}
	return data, nil
}
