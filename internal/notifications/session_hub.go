package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"bloodconnect/internal/middleware"
	"bloodconnect/internal/observability"
	"bloodconnect/internal/session"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerUser = 8
	maxTotalConns   = 10000

	profileReadTimeout = 5 * time.Second
)

var (
	ErrHubFull      = errors.New("server connection limit reached")
	ErrUserConnsMax = errors.New("user connection limit reached")
	ErrHubClosed    = errors.New("hub is shut down")
)

// ProfileSource reads the profile event for uid. A machine that is signed in
// but has no usable profile observation is brought up to date with it.
type ProfileSource interface {
	ProfileEvent(ctx context.Context, uid string) session.Event
}

// SessionHub pushes resolved session snapshots to connected clients. Each
// connection owns a session.Machine so out-of-order events are resolved per client.
type SessionHub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]*session.Machine
	totalConns int
	closed     bool
	profiles   ProfileSource
}

// NewSessionHub creates an empty hub. profiles may be nil, in which case
// machines only learn about profiles from published events.
func NewSessionHub(profiles ProfileSource) *SessionHub {
	return &SessionHub{
		conns:    make(map[string]map[*Client]*session.Machine),
		profiles: profiles,
	}
}

// Name returns a human-readable identifier for this hub.
func (h *SessionHub) Name() string { return "session hub" }

// Register adds a connection for uid opened from device session sessionID and
// applies the seed events to its machine. The connection receives events from
// the moment it is added; the profile is read afterwards, so a change published
// while the socket is being set up is not lost. The resulting snapshot is queued.
func (h *SessionHub) Register(uid, sessionID string, conn *websocket.Conn, seed ...session.Event) (*Client, session.Snapshot, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, session.Snapshot{}, ErrHubClosed
	}
	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, session.Snapshot{}, ErrHubFull
	}
	m, ok := h.conns[uid]
	if !ok {
		m = make(map[*Client]*session.Machine)
		h.conns[uid] = m
	}
	if len(m) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, session.Snapshot{}, ErrUserConnsMax
	}

	client := NewClient(h, conn, uid)
	client.SessionID = sessionID
	machine := session.NewMachine()
	for _, ev := range seed {
		machine.Apply(ev)
	}
	m[client] = machine
	h.totalConns++
	h.mu.Unlock()

	h.readProfile(client, machine)
	snap := machine.Snapshot()
	h.push(client, snap)
	return client, snap, nil
}

// UnregisterClient removes a client and its machine.
func (h *SessionHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.conns[client.UID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
		}
		if len(m) == 0 {
			delete(h.conns, client.UID)
		}
	}
}

// Apply feeds ev to the machine of every connection for uid and pushes the
// snapshots that changed.
func (h *SessionHub) Apply(uid string, ev session.Event) {
	h.apply(uid, "", ev)
}

// apply feeds ev to the connections of uid, limited to device session
// sessionID when it is set. Identity events that leave a machine waiting for
// its profile trigger a fresh read.
func (h *SessionHub) apply(uid, sessionID string, ev session.Event) {
	type waiting struct {
		client  *Client
		machine *session.Machine
	}
	var reads []waiting

	h.mu.RLock()
	for client, machine := range h.conns[uid] {
		if sessionID != "" && client.SessionID != sessionID {
			continue
		}
		snap, changed := machine.Apply(ev)
		if changed {
			h.push(client, snap)
		}
		if ev.Kind.Source() == session.SourceIdentity && machine.NeedsProfileRead() {
			reads = append(reads, waiting{client, machine})
		}
	}
	h.mu.RUnlock()

	for _, w := range reads {
		if snap, changed := h.readProfile(w.client, w.machine); changed {
			h.push(w.client, snap)
		}
	}
}

// Resend pushes the client's current snapshot again. A machine that is still
// waiting for its profile, or whose last read failed, reads it first.
func (h *SessionHub) Resend(client *Client) {
	h.mu.RLock()
	machine, ok := h.conns[client.UID][client]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.readProfile(client, machine)
	h.push(client, machine.Snapshot())
}

func (h *SessionHub) readProfile(client *Client, machine *session.Machine) (session.Snapshot, bool) {
	if h.profiles == nil || !machine.NeedsProfileRead() {
		return machine.Snapshot(), false
	}
	ctx, cancel := context.WithTimeout(context.Background(), profileReadTimeout)
	defer cancel()
	return machine.Apply(h.profiles.ProfileEvent(ctx, client.UID))
}

// Snapshot returns the current snapshot of a registered client.
func (h *SessionHub) Snapshot(client *Client) (session.Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	machine, ok := h.conns[client.UID][client]
	if !ok {
		return session.Snapshot{}, false
	}
	return machine.Snapshot(), true
}

// BroadcastAll sends a raw message to every connected client.
func (h *SessionHub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.conns {
		for c := range clients {
			c.TrySend(message)
		}
	}
}

// ConnCount reports the number of registered connections.
func (h *SessionHub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

func (h *SessionHub) push(client *Client, snap session.Snapshot) {
	observability.SessionResolutions.WithLabelValues(string(snap.State)).Inc()
	data, err := EncodeEnvelope(TypeSession, snap)
	if err != nil {
		middleware.Logger.Error("encode session snapshot", "uid", client.UID, "error", err)
		return
	}
	client.TrySend(data)
}

// StartWiring subscribes to the notifier and routes session events to machines
// and feed events to every client.
func (h *SessionHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartSubscriber(ctx, h.HandleMessage)
}

// HandleMessage routes one pub/sub message.
func (h *SessionHub) HandleMessage(channel, payload string) {
	if channel == FeedChannel {
		var ev FeedEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			middleware.Logger.Warn("invalid feed event", "error", err)
			return
		}
		data, err := EncodeEnvelope(TypePostCreated, ev.Post)
		if err != nil {
			return
		}
		h.BroadcastAll(data)
		return
	}

	uid, ok := UIDFromChannel(channel)
	if !ok {
		middleware.Logger.Warn("invalid session channel", "channel", channel)
		return
	}
	var ev SessionEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		middleware.Logger.Warn("invalid session event", "channel", channel, "error", err)
		return
	}
	h.apply(uid, ev.scope(), ev.MachineEvent())
}

// Shutdown closes every connection.
func (h *SessionHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for uid, clients := range h.conns {
		for client := range clients {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				middleware.Logger.Warn("write close message", "uid", uid, "error", err)
			}
			_ = client.Conn.Close()
		}
	}
	h.conns = make(map[string]map[*Client]*session.Machine)
	h.totalConns = 0
	return nil
}
