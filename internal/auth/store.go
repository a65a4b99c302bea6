package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TicketTTL bounds how long a WebSocket ticket can wait to be redeemed.
const TicketTTL = 60 * time.Second

var ErrTicketInvalid = errors.New("invalid or expired WebSocket ticket")

// SessionStore keeps token-adjacent state in Redis.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Revoke blacklists jti until the token would have expired anyway.
func (s *SessionStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if s.rdb == nil || jti == "" {
		return nil
	}
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, "blacklist:"+jti, "1", ttl).Err()
}

// IsRevoked reports whether jti was blacklisted.
func (s *SessionStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if s.rdb == nil || jti == "" {
		return false, nil
	}
	n, err := s.rdb.Exists(ctx, "blacklist:"+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// NextIdentitySeq returns the next identity event sequence for uid.
func (s *SessionStore) NextIdentitySeq(ctx context.Context, uid string) (uint64, error) {
	if s.rdb == nil {
		return 0, errors.New("identity sequence requires redis")
	}
	n, err := s.rdb.Incr(ctx, "identity:seq:"+uid).Result()
	if err != nil {
		return 0, fmt.Errorf("identity sequence: %w", err)
	}
	return uint64(n), nil
}

// CurrentIdentitySeq returns the last issued identity sequence, zero if none.
func (s *SessionStore) CurrentIdentitySeq(ctx context.Context, uid string) (uint64, error) {
	if s.rdb == nil {
		return 0, nil
	}
	n, err := s.rdb.Get(ctx, "identity:seq:"+uid).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// TicketGrant is what a redeemed WebSocket ticket stands for.
type TicketGrant struct {
	UID       string
	SessionID string
}

// IssueTicket stores a single-use ticket for the device session of uid.
func (s *SessionStore) IssueTicket(ctx context.Context, uid, sessionID string) (string, error) {
	if s.rdb == nil {
		return "", errors.New("tickets require redis")
	}
	ticket := uuid.NewString()
	if err := s.rdb.Set(ctx, "ws_ticket:"+ticket, uid+"|"+sessionID, TicketTTL).Err(); err != nil {
		return "", fmt.Errorf("store ticket: %w", err)
	}
	return ticket, nil
}

// RedeemTicket consumes ticket and returns what it was issued for.
func (s *SessionStore) RedeemTicket(ctx context.Context, ticket string) (TicketGrant, error) {
	if s.rdb == nil || ticket == "" {
		return TicketGrant{}, ErrTicketInvalid
	}
	raw, err := s.rdb.GetDel(ctx, "ws_ticket:"+ticket).Result()
	if errors.Is(err, redis.Nil) {
		return TicketGrant{}, ErrTicketInvalid
	}
	if err != nil {
		return TicketGrant{}, err
	}
	uid, sid, _ := strings.Cut(raw, "|")
	if uid == "" {
		return TicketGrant{}, ErrTicketInvalid
	}
	return TicketGrant{UID: uid, SessionID: sid}, nil
}
