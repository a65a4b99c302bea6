package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bloodconnect/internal/auth"
	"bloodconnect/internal/models"
	"bloodconnect/internal/notifications"
	"bloodconnect/internal/otp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// profileRepoStub is a stub for repository.ProfileRepository.
type profileRepoStub struct {
	getFn         func(context.Context, string) (*models.Profile, error)
	putFn         func(context.Context, *models.Profile) error
	updateFieldFn func(context.Context, string, string, any) (*models.Profile, error)
	listByRolesFn func(context.Context, []string) ([]models.Profile, error)
}

func (s *profileRepoStub) Get(ctx context.Context, uid string) (*models.Profile, error) {
	return s.getFn(ctx, uid)
}
func (s *profileRepoStub) Put(ctx context.Context, p *models.Profile) error {
	return s.putFn(ctx, p)
}
func (s *profileRepoStub) UpdateField(ctx context.Context, uid, column string, value any) (*models.Profile, error) {
	return s.updateFieldFn(ctx, uid, column, value)
}
func (s *profileRepoStub) ListByRoles(ctx context.Context, roles []string) ([]models.Profile, error) {
	return s.listByRolesFn(ctx, roles)
}

func missingProfileRepo() *profileRepoStub {
	return &profileRepoStub{
		getFn: func(_ context.Context, uid string) (*models.Profile, error) {
			return nil, models.NewNotFoundError("Profile", uid)
		},
		putFn: func(context.Context, *models.Profile) error { return nil },
		updateFieldFn: func(_ context.Context, uid, _ string, _ any) (*models.Profile, error) {
			return nil, models.NewNotFoundError("Profile", uid)
		},
		listByRolesFn: func(context.Context, []string) ([]models.Profile, error) { return nil, nil },
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn      func(context.Context, *models.Post) error
	getByIDFn     func(context.Context, string) (*models.Post, error)
	recentFn      func(context.Context, int) ([]models.Post, error)
	listByOwnerFn func(context.Context, string, int, int) ([]models.Post, error)
}

func (s *postRepoStub) Create(ctx context.Context, p *models.Post) error { return s.createFn(ctx, p) }
func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Recent(ctx context.Context, limit int) ([]models.Post, error) {
	return s.recentFn(ctx, limit)
}
func (s *postRepoStub) ListByOwner(ctx context.Context, uid string, limit, offset int) ([]models.Post, error) {
	return s.listByOwnerFn(ctx, uid, limit, offset)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:      func(context.Context, *models.Post) error { return nil },
		getByIDFn:     func(_ context.Context, id string) (*models.Post, error) { return &models.Post{ID: id}, nil },
		recentFn:      func(context.Context, int) ([]models.Post, error) { return nil, nil },
		listByOwnerFn: func(context.Context, string, int, int) ([]models.Post, error) { return nil, nil },
	}
}

// identityRepoStub is a stub for repository.IdentityRepository.
type identityRepoStub struct {
	getByUIDFn   func(context.Context, string) (*models.Identity, error)
	getByPhoneFn func(context.Context, string) (*models.Identity, error)
	signInFn     func(context.Context, string, time.Time) (*models.Identity, bool, error)
}

func (s *identityRepoStub) GetByUID(ctx context.Context, uid string) (*models.Identity, error) {
	return s.getByUIDFn(ctx, uid)
}
func (s *identityRepoStub) GetByPhone(ctx context.Context, phone string) (*models.Identity, error) {
	return s.getByPhoneFn(ctx, phone)
}
func (s *identityRepoStub) SignIn(ctx context.Context, phone string, at time.Time) (*models.Identity, bool, error) {
	return s.signInFn(ctx, phone, at)
}

// challengesStub is a stub for Challenges.
type challengesStub struct {
	issueFn  func(context.Context, string) (*otp.Challenge, error)
	resendFn func(context.Context, string) (*otp.Challenge, error)
	verifyFn func(context.Context, string, string) (string, error)
}

func (s *challengesStub) Issue(ctx context.Context, phone string) (*otp.Challenge, error) {
	return s.issueFn(ctx, phone)
}
func (s *challengesStub) Resend(ctx context.Context, id string) (*otp.Challenge, error) {
	return s.resendFn(ctx, id)
}
func (s *challengesStub) Verify(ctx context.Context, id, code string) (string, error) {
	return s.verifyFn(ctx, id, code)
}

// tokenStateStub keeps token state in memory.
type tokenStateStub struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	seq     map[string]uint64
	tickets map[string]auth.TicketGrant
	seqErr  error
}

func newTokenState() *tokenStateStub {
	return &tokenStateStub{
		revoked: map[string]time.Duration{},
		seq:     map[string]uint64{},
		tickets: map[string]auth.TicketGrant{},
	}
}

func (s *tokenStateStub) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = ttl
	return nil
}
func (s *tokenStateStub) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[jti]
	return ok, nil
}
func (s *tokenStateStub) NextIdentitySeq(_ context.Context, uid string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seqErr != nil {
		return 0, s.seqErr
	}
	s.seq[uid]++
	return s.seq[uid], nil
}
func (s *tokenStateStub) CurrentIdentitySeq(_ context.Context, uid string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq[uid], nil
}
func (s *tokenStateStub) IssueTicket(_ context.Context, uid, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket := "t-" + uid + "-" + sessionID
	s.tickets[ticket] = auth.TicketGrant{UID: uid, SessionID: sessionID}
	return ticket, nil
}
func (s *tokenStateStub) RedeemTicket(_ context.Context, ticket string) (auth.TicketGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.tickets[ticket]
	if !ok {
		return auth.TicketGrant{}, errors.New("unknown ticket")
	}
	delete(s.tickets, ticket)
	return grant, nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu       sync.Mutex
	sessions []notifications.SessionEvent
	feeds    []notifications.FeedEvent
}

func (p *recordingPublisher) PublishSession(_ context.Context, ev notifications.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions = append(p.sessions, ev)
	return nil
}
func (p *recordingPublisher) PublishFeed(_ context.Context, ev notifications.FeedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feeds = append(p.feeds, ev)
	return nil
}

// assertAppErrorCode asserts that err is an AppError carrying code.
func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
