// Package otp issues and verifies one-time sign-in codes. Codes are stored only
// as bcrypt hashes in Redis and expire with their key.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"bloodconnect/internal/middleware"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// CodeLength is the number of digits in a code.
const CodeLength = 6

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

var (
	// ErrChallengeNotFound means the verification id is unknown, used or expired.
	ErrChallengeNotFound = errors.New("verification expired or not found")
	// ErrInvalidCode means the code did not match; attempts remain.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrTooManyAttempts means the challenge was discarded after the last wrong code.
	ErrTooManyAttempts = errors.New("too many attempts")
	// ErrMalformedCode means the code is not six digits.
	ErrMalformedCode = errors.New("code must be 6 digits")
)

// AttemptError is returned for a wrong code while attempts remain. It matches
// ErrInvalidCode.
type AttemptError struct {
	Left int
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("%s: %d attempts left", ErrInvalidCode, e.Left)
}

func (e *AttemptError) Unwrap() error { return ErrInvalidCode }

const (
	claimMissing   = -1
	claimExhausted = -2
)

// claimAttempt takes one attempt from a challenge before its code is compared,
// so concurrent verifications never compare more codes than were allowed. It
// returns the attempts left after the claim with the phone and hash.
var claimAttempt = redis.NewScript(`
local attempts = tonumber(redis.call('HGET', KEYS[1], 'attempts'))
if not attempts then
	return {-1, '', ''}
end
if attempts <= 0 then
	redis.call('DEL', KEYS[1])
	return {-2, '', ''}
end
local left = redis.call('HINCRBY', KEYS[1], 'attempts', -1)
local fields = redis.call('HMGET', KEYS[1], 'phone', 'hash')
return {left, fields[1], fields[2]}
`)

// Sender delivers a code to a phone number.
type Sender interface {
	Send(ctx context.Context, phone, code string) error
}

// LogSender writes codes to the application log. It is the development transport.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, phone, code string) error {
	middleware.Logger.InfoContext(ctx, "verification code issued", "phone", maskPhone(phone), "code", code)
	return nil
}

// Challenge is a pending verification.
type Challenge struct {
	ID        string
	Phone     string
	ExpiresAt time.Time
	// Code is set only when the store echoes codes (development).
	Code string
}

// Store keeps challenges in Redis under otp:<id>.
type Store struct {
	rdb         *redis.Client
	sender      Sender
	ttl         time.Duration
	maxAttempts int
	echo        bool
	bcryptCost  int
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithEcho returns the plain code on the challenge. Never enable in production.
func WithEcho(echo bool) Option {
	return func(s *Store) { s.echo = echo }
}

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Store) { s.bcryptCost = cost }
}

// NewStore returns a Store. A nil sender defaults to LogSender.
func NewStore(rdb *redis.Client, sender Sender, ttl time.Duration, maxAttempts int, opts ...Option) *Store {
	if sender == nil {
		sender = LogSender{}
	}
	s := &Store{
		rdb:         rdb,
		sender:      sender,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		bcryptCost:  bcrypt.DefaultCost,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func key(id string) string {
	return "otp:" + id
}

// Issue creates a challenge for phone and sends its code.
func (s *Store) Issue(ctx context.Context, phone string) (*Challenge, error) {
	if s.rdb == nil {
		return nil, errors.New("otp store requires redis")
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}

	id := uuid.NewString()
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key(id), map[string]any{
		"phone":    phone,
		"hash":     string(hash),
		"attempts": s.maxAttempts,
	})
	pipe.Expire(ctx, key(id), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store challenge: %w", err)
	}

	if err := s.sender.Send(ctx, phone, code); err != nil {
		s.rdb.Del(ctx, key(id))
		return nil, fmt.Errorf("send code: %w", err)
	}

	ch := &Challenge{ID: id, Phone: phone, ExpiresAt: s.now().Add(s.ttl)}
	if s.echo {
		ch.Code = code
	}
	return ch, nil
}

// Resend replaces a pending challenge with a fresh one for the same phone.
func (s *Store) Resend(ctx context.Context, id string) (*Challenge, error) {
	phone, err := s.rdb.HGet(ctx, key(id), "phone").Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load challenge: %w", err)
	}
	s.rdb.Del(ctx, key(id))
	return s.Issue(ctx, phone)
}

// Verify checks code against the challenge and returns its phone number.
// Every call with a well-formed code consumes one attempt before the code is
// compared; a wrong code on the last attempt discards the challenge. A correct
// code consumes the challenge, so it verifies at most once.
func (s *Store) Verify(ctx context.Context, id, code string) (string, error) {
	if !codePattern.MatchString(code) {
		return "", ErrMalformedCode
	}

	if s.rdb == nil {
		return "", errors.New("otp store requires redis")
	}
	res, err := claimAttempt.Run(ctx, s.rdb, []string{key(id)}).Slice()
	if err != nil {
		return "", fmt.Errorf("claim attempt: %w", err)
	}
	left, phone, hash, err := parseClaim(res)
	if err != nil {
		return "", err
	}
	switch {
	case left == claimExhausted:
		return "", ErrTooManyAttempts
	case left == claimMissing || hash == "":
		return "", ErrChallengeNotFound
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) != nil {
		if left <= 0 {
			s.rdb.Del(ctx, key(id))
			return "", ErrTooManyAttempts
		}
		return "", &AttemptError{Left: int(left)}
	}

	// Only the caller that deletes the key wins a concurrent double submit.
	deleted, err := s.rdb.Del(ctx, key(id)).Result()
	if err != nil {
		return "", fmt.Errorf("consume challenge: %w", err)
	}
	if deleted == 0 {
		return "", ErrChallengeNotFound
	}
	return phone, nil
}

func parseClaim(res []any) (int64, string, string, error) {
	if len(res) != 3 {
		return 0, "", "", fmt.Errorf("claim attempt: unexpected reply %v", res)
	}
	left, ok := res[0].(int64)
	if !ok {
		return 0, "", "", fmt.Errorf("claim attempt: unexpected count %v", res[0])
	}
	phone, _ := res[1].(string)
	hash, _ := res[2].(string)
	return left, phone, hash, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
