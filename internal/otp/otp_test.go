package otp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (c *captureSender) Send(_ context.Context, phone, code string) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.codes == nil {
		c.codes = map[string]string{}
	}
	c.codes[phone] = code
	return nil
}

func (c *captureSender) last(phone string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[phone]
}

func newTestStore(t *testing.T, maxAttempts int, opts ...Option) (*Store, *captureSender, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	sender := &captureSender{}
	opts = append([]Option{WithBcryptCost(bcrypt.MinCost)}, opts...)
	return NewStore(rdb, sender, 5*time.Minute, maxAttempts, opts...), sender, mr
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestStore_IssueAndVerify(t *testing.T) {
	store, sender, mr := newTestStore(t, 5)
	ctx := context.Background()

	ch, err := store.Issue(ctx, "+919876543210")
	require.NoError(t, err)
	assert.NotEmpty(t, ch.ID)
	assert.Empty(t, ch.Code, "codes are not echoed by default")

	code := sender.last("+919876543210")
	require.Len(t, code, CodeLength)

	stored := mr.HGet("otp:"+ch.ID, "hash")
	assert.NotEqual(t, code, stored, "code must be stored hashed")
	assert.True(t, mr.TTL("otp:"+ch.ID) > 0)

	phone, err := store.Verify(ctx, ch.ID, code)
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", phone)

	_, err = store.Verify(ctx, ch.ID, code)
	assert.ErrorIs(t, err, ErrChallengeNotFound, "a challenge verifies once")
}

func TestStore_WrongCodeConsumesAttempts(t *testing.T) {
	store, sender, _ := newTestStore(t, 2)
	ctx := context.Background()

	ch, err := store.Issue(ctx, "+15550001111")
	require.NoError(t, err)
	bad := wrongCode(sender.last("+15550001111"))

	_, err = store.Verify(ctx, ch.ID, bad)
	assert.ErrorIs(t, err, ErrInvalidCode)
	var attemptErr *AttemptError
	require.ErrorAs(t, err, &attemptErr)
	assert.Equal(t, 1, attemptErr.Left)

	_, err = store.Verify(ctx, ch.ID, bad)
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	_, err = store.Verify(ctx, ch.ID, sender.last("+15550001111"))
	assert.ErrorIs(t, err, ErrChallengeNotFound, "exhausted challenge is discarded")
}

func TestStore_AttemptIsTakenBeforeComparing(t *testing.T) {
	store, sender, mr := newTestStore(t, 3)
	ctx := context.Background()

	ch, err := store.Issue(ctx, "+15550006666")
	require.NoError(t, err)

	// Another request already took the last attempt but has not discarded the challenge yet.
	mr.HSet(key(ch.ID), "attempts", "0")
	_, err = store.Verify(ctx, ch.ID, sender.last("+15550006666"))
	assert.ErrorIs(t, err, ErrTooManyAttempts, "a correct code is not compared without an attempt")
	assert.False(t, mr.Exists(key(ch.ID)))
}

func TestStore_ConcurrentWrongCodesRespectCap(t *testing.T) {
	const maxAttempts = 3
	store, sender, _ := newTestStore(t, maxAttempts)
	ctx := context.Background()

	ch, err := store.Issue(ctx, "+15550007777")
	require.NoError(t, err)
	bad := wrongCode(sender.last("+15550007777"))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		invalid int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Verify(ctx, ch.ID, bad)
			var attemptErr *AttemptError
			if errors.As(err, &attemptErr) {
				mu.Lock()
				invalid++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrTooManyAttempts) && !errors.Is(err, ErrChallengeNotFound) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, maxAttempts-1, invalid)
	_, err = store.Verify(ctx, ch.ID, sender.last("+15550007777"))
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestStore_ExpiredChallenge(t *testing.T) {
	store, sender, mr := newTestStore(t, 5)
	ctx := context.Background()

	ch, err := store.Issue(ctx, "+15550002222")
	require.NoError(t, err)
	mr.FastForward(6 * time.Minute)

	_, err = store.Verify(ctx, ch.ID, sender.last("+15550002222"))
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestStore_MalformedCode(t *testing.T) {
	store, _, _ := newTestStore(t, 5)
	for _, code := range []string{"", "12345", "1234567", "12a456"} {
		_, err := store.Verify(context.Background(), "whatever", code)
		assert.ErrorIs(t, err, ErrMalformedCode, code)
	}
}

func TestStore_Echo(t *testing.T) {
	store, sender, _ := newTestStore(t, 5, WithEcho(true))
	ch, err := store.Issue(context.Background(), "+15550003333")
	require.NoError(t, err)
	assert.Equal(t, sender.last("+15550003333"), ch.Code)
}

func TestStore_SendFailureDropsChallenge(t *testing.T) {
	store, sender, mr := newTestStore(t, 5)
	sender.err = errors.New("gateway down")

	_, err := store.Issue(context.Background(), "+15550004444")
	require.Error(t, err)
	assert.Empty(t, mr.Keys())
}

func TestStore_Resend(t *testing.T) {
	store, sender, mr := newTestStore(t, 5)
	ctx := context.Background()

	first, err := store.Issue(ctx, "+15550005555")
	require.NoError(t, err)

	second, err := store.Resend(ctx, first.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, mr.Exists("otp:"+first.ID))

	phone, err := store.Verify(ctx, second.ID, sender.last("+15550005555"))
	require.NoError(t, err)
	assert.Equal(t, "+15550005555", phone)

	_, err = store.Resend(ctx, "missing")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestFullNumber(t *testing.T) {
	tests := []struct {
		name    string
		cc      string
		phone   string
		want    string
		wantErr error
	}{
		{"default calling code", "", "9876543210", "+919876543210", nil},
		{"explicit plus", "+1", "5550001111", "+15550001111", nil},
		{"trims spaces", " 44 ", " 7700900123 ", "+447700900123", nil},
		{"too short", "91", "12345", "", ErrInvalidPhone},
		{"too long", "91", "1234567890123456", "", ErrInvalidPhone},
		{"letters", "91", "98765abcde", "", ErrInvalidPhone},
		{"bad calling code", "12345", "9876543210", "", ErrInvalidCallingCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FullNumber(tt.cc, tt.phone)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
