// Package auth issues and checks access tokens and the Redis-backed state
// around them: revoked token ids, WebSocket tickets and identity sequences.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Issuer   = "bloodconnect-api"
	Audience = "bloodconnect-client"
	TokenTTL = 7 * 24 * time.Hour
)

var (
	ErrNoSecret     = errors.New("JWT secret not configured")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims are the access token claims. Subject is the identity uid. SessionID
// names the device sign-in and is carried over when the token is refreshed.
type Claims struct {
	Phone     string `json:"phone"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// UID returns the subject claim.
func (c *Claims) UID() string {
	return c.Subject
}

// Tokens signs and parses HS256 access tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens returns a signer for secret with the default lifetime.
func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: TokenTTL, now: time.Now}
}

// Issue signs a token for uid that starts a new device session.
func (t *Tokens) Issue(uid, phone string) (string, *Claims, error) {
	return t.IssueForSession(uid, phone, "")
}

// IssueForSession signs a token for uid within an existing device session. An
// empty sessionID starts a new one.
func (t *Tokens) IssueForSession(uid, phone, sessionID string) (string, *Claims, error) {
	if len(t.secret) == 0 {
		return "", nil, ErrNoSecret
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	now := t.now()
	claims := &Claims{
		Phone:     phone,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        newJTI(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse validates signature, issuer, audience and expiry.
func (t *Tokens) Parse(tokenString string) (*Claims, error) {
	if len(t.secret) == 0 {
		return nil, ErrNoSecret
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// Remaining is how long the token stays valid, floored at zero.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := c.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func newJTI(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.Unix(), uuid.NewString()[:8])
}
