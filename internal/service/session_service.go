// Package service holds the business rules behind the HTTP handlers.
package service

import (
	"context"

	"bloodconnect/internal/models"
	"bloodconnect/internal/observability"
	"bloodconnect/internal/repository"
	"bloodconnect/internal/session"
)

// SessionService resolves what a signed-in client should see from a single profile read.
type SessionService struct {
	profiles repository.ProfileRepository
}

func NewSessionService(profiles repository.ProfileRepository) *SessionService {
	return &SessionService{profiles: profiles}
}

// Read loads the profile for uid and classifies the outcome. A missing document
// and a failed read are kept apart.
func (s *SessionService) Read(ctx context.Context, uid string) session.ProfileRead {
	profile, err := s.profiles.Get(ctx, uid)
	switch {
	case err == nil:
		return session.ProfileRead{Profile: profile}
	case models.IsCode(err, models.CodeNotFound):
		return session.ProfileRead{Missing: true}
	default:
		return session.ProfileRead{Err: err}
	}
}

// Resolve reads the profile and resolves the session snapshot.
func (s *SessionService) Resolve(ctx context.Context, identity *session.Identity) session.Snapshot {
	var snap session.Snapshot
	if identity == nil || identity.UID == "" {
		snap = session.Resolve(nil, session.ProfileRead{})
	} else {
		snap = session.Resolve(identity, s.Read(ctx, identity.UID))
	}
	observability.SessionResolutions.WithLabelValues(string(snap.State)).Inc()
	return snap
}

// IdentityEvent is the identity observation a fresh session.Machine starts from.
func (s *SessionService) IdentityEvent(identity session.Identity, identitySeq uint64) session.Event {
	return session.Event{
		Source:   session.SourceIdentity,
		Kind:     session.SignedIn,
		Seq:      identitySeq,
		Identity: &identity,
	}
}

// ProfileEvent reads the profile for uid and returns it as a machine event. A
// snapshot carries the document version as its sequence.
func (s *SessionService) ProfileEvent(ctx context.Context, uid string) session.Event {
	read := s.Read(ctx, uid)
	ev := session.Event{Source: session.SourceProfile, Read: read}
	switch {
	case read.Err != nil:
		ev.Kind = session.ProfileError
	case read.Missing:
		ev.Kind = session.ProfileMissing
	default:
		ev.Kind = session.ProfileSnapshot
		ev.Seq = read.Profile.Version
	}
	return ev
}
