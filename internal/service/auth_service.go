package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bloodconnect/internal/auth"
	"bloodconnect/internal/middleware"
	"bloodconnect/internal/models"
	"bloodconnect/internal/notifications"
	"bloodconnect/internal/observability"
	"bloodconnect/internal/otp"
	"bloodconnect/internal/repository"
	"bloodconnect/internal/session"
)

// Challenges issues and checks one-time codes.
type Challenges interface {
	Issue(ctx context.Context, phone string) (*otp.Challenge, error)
	Resend(ctx context.Context, verificationID string) (*otp.Challenge, error)
	Verify(ctx context.Context, verificationID, code string) (string, error)
}

// TokenState is the Redis-backed state around access tokens.
type TokenState interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	NextIdentitySeq(ctx context.Context, uid string) (uint64, error)
	CurrentIdentitySeq(ctx context.Context, uid string) (uint64, error)
	IssueTicket(ctx context.Context, uid, sessionID string) (string, error)
	RedeemTicket(ctx context.Context, ticket string) (auth.TicketGrant, error)
}

type AuthService struct {
	identities repository.IdentityRepository
	challenges Challenges
	tokens     *auth.Tokens
	state      TokenState
	sessions   *SessionService
	publisher  Publisher
	now        func() time.Time
}

type SendOTPInput struct {
	CallingCode string
	Phone       string
}

type VerifyOTPInput struct {
	VerificationID string
	Code           string
}

// OTPChallenge is returned after a code is sent. Code is only set when codes are echoed.
type OTPChallenge struct {
	VerificationID string    `json:"verificationId"`
	ExpiresAt      time.Time `json:"expiresAt"`
	Code           string    `json:"code,omitempty"`
}

// AuthResult is a signed-in identity with its token and resolved session.
type AuthResult struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	Identity  *models.Identity `json:"identity"`
	Session   session.Snapshot `json:"session"`
}

func NewAuthService(
	identities repository.IdentityRepository,
	challenges Challenges,
	tokens *auth.Tokens,
	state TokenState,
	sessions *SessionService,
	publisher Publisher,
) *AuthService {
	return &AuthService{
		identities: identities,
		challenges: challenges,
		tokens:     tokens,
		state:      state,
		sessions:   sessions,
		publisher:  orNoop(publisher),
		now:        time.Now,
	}
}

// SendOTP validates the number and sends a verification code to +<callingCode><phone>.
func (s *AuthService) SendOTP(ctx context.Context, in SendOTPInput) (*OTPChallenge, error) {
	phone, err := otp.FullNumber(in.CallingCode, in.Phone)
	if err != nil {
		field := "phone"
		if errors.Is(err, otp.ErrInvalidCallingCode) {
			field = "callingCode"
		}
		return nil, models.NewFieldValidationError(map[string]string{field: err.Error()})
	}

	ch, err := s.challenges.Issue(ctx, phone)
	if err != nil {
		return nil, models.NewUnavailableError("Could not send verification code", err)
	}
	observability.OTPSent.Inc()
	return &OTPChallenge{VerificationID: ch.ID, ExpiresAt: ch.ExpiresAt, Code: ch.Code}, nil
}

// ResendOTP replaces a pending challenge with a new code for the same number.
func (s *AuthService) ResendOTP(ctx context.Context, verificationID string) (*OTPChallenge, error) {
	if verificationID == "" {
		return nil, models.NewFieldValidationError(map[string]string{"verificationId": "Verification ID is required"})
	}
	ch, err := s.challenges.Resend(ctx, verificationID)
	if err != nil {
		if errors.Is(err, otp.ErrChallengeNotFound) {
			return nil, models.NewUnauthorizedError("Verification expired, request a new code")
		}
		return nil, models.NewUnavailableError("Could not send verification code", err)
	}
	observability.OTPSent.Inc()
	return &OTPChallenge{VerificationID: ch.ID, ExpiresAt: ch.ExpiresAt, Code: ch.Code}, nil
}

// VerifyOTP confirms the code, signs the identity in and resolves its session.
func (s *AuthService) VerifyOTP(ctx context.Context, in VerifyOTPInput) (*AuthResult, error) {
	if in.VerificationID == "" {
		return nil, models.NewFieldValidationError(map[string]string{"verificationId": "Verification ID is required"})
	}

	phone, err := s.challenges.Verify(ctx, in.VerificationID, in.Code)
	if err != nil {
		return nil, s.verifyError(err)
	}
	observability.OTPVerified.WithLabelValues("ok").Inc()

	identity, created, err := s.identities.SignIn(ctx, phone, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if created {
		middleware.Logger.InfoContext(ctx, "identity created", "uid", identity.UID)
	}

	return s.issue(ctx, identity, "", session.SignedIn)
}

func (s *AuthService) verifyError(err error) error {
	switch {
	case errors.Is(err, otp.ErrMalformedCode):
		observability.OTPVerified.WithLabelValues("malformed").Inc()
		return models.NewFieldValidationError(map[string]string{"code": "Code must be 6 digits"})
	case errors.Is(err, otp.ErrInvalidCode):
		observability.OTPVerified.WithLabelValues("invalid").Inc()
		msg := "Invalid verification code"
		var attemptErr *otp.AttemptError
		if errors.As(err, &attemptErr) {
			msg = fmt.Sprintf("Invalid verification code, %d attempts left", attemptErr.Left)
		}
		return &models.AppError{Code: models.CodeUnauthorized, Message: msg, Err: err}
	case errors.Is(err, otp.ErrTooManyAttempts):
		observability.OTPVerified.WithLabelValues("exhausted").Inc()
		return models.NewUnauthorizedError("Too many attempts, request a new code")
	case errors.Is(err, otp.ErrChallengeNotFound):
		observability.OTPVerified.WithLabelValues("expired").Inc()
		return models.NewUnauthorizedError("Verification expired, request a new code")
	default:
		observability.OTPVerified.WithLabelValues("error").Inc()
		return models.NewUnavailableError("Could not verify code", err)
	}
}

// Me returns the identity behind uid.
func (s *AuthService) Me(ctx context.Context, uid string) (*models.Identity, error) {
	return s.identities.GetByUID(ctx, uid)
}

// Authenticate parses a bearer token and rejects revoked ones.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	revoked, err := s.state.IsRevoked(ctx, claims.ID)
	if err != nil {
		// Revocation state is unreachable; the signature check alone decides.
		middleware.Logger.WarnContext(ctx, "token revocation check failed", "error", err)
	}
	if revoked {
		return nil, models.NewUnauthorizedError("Token has been revoked")
	}
	return claims, nil
}

// Refresh issues a new token for the same identity and revokes the presented one.
func (s *AuthService) Refresh(ctx context.Context, claims *auth.Claims) (*AuthResult, error) {
	identity, err := s.identities.GetByUID(ctx, claims.UID())
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("Identity no longer exists")
		}
		return nil, err
	}
	result, err := s.issue(ctx, identity, claims.SessionID, session.Refreshed)
	if err != nil {
		return nil, err
	}
	s.revoke(ctx, claims)
	return result, nil
}

// Logout revokes the presented token and signs out the sockets opened by the
// same device session. Other devices of the user stay signed in.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	s.revoke(ctx, claims)
	seq, err := s.state.NextIdentitySeq(ctx, claims.UID())
	if err != nil {
		middleware.Logger.WarnContext(ctx, "identity sequence unavailable", "error", err)
		return nil
	}
	publishSession(ctx, s.publisher, notifications.SessionEvent{
		Kind:      session.SignedOut,
		UID:       claims.UID(),
		SessionID: claims.SessionID,
		Seq:       seq,
	})
	return nil
}

// IssueWSTicket returns a single-use ticket for opening the session socket from
// the device session sessionID.
func (s *AuthService) IssueWSTicket(ctx context.Context, uid, sessionID string) (string, error) {
	ticket, err := s.state.IssueTicket(ctx, uid, sessionID)
	if err != nil {
		return "", models.NewUnavailableError("Could not issue WebSocket ticket", err)
	}
	return ticket, nil
}

// RedeemWSTicket consumes a ticket and returns what it was issued for.
func (s *AuthService) RedeemWSTicket(ctx context.Context, ticket string) (auth.TicketGrant, error) {
	grant, err := s.state.RedeemTicket(ctx, ticket)
	if err != nil {
		return auth.TicketGrant{}, models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
	}
	return grant, nil
}

// CurrentIdentitySeq is the sequence new session machines start from.
func (s *AuthService) CurrentIdentitySeq(ctx context.Context, uid string) uint64 {
	seq, err := s.state.CurrentIdentitySeq(ctx, uid)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "identity sequence unavailable", "error", err)
		return 0
	}
	return seq
}

func (s *AuthService) issue(ctx context.Context, identity *models.Identity, sessionID string, kind session.EventKind) (*AuthResult, error) {
	token, claims, err := s.tokens.IssueForSession(identity.UID, identity.Phone, sessionID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	if seq, err := s.state.NextIdentitySeq(ctx, identity.UID); err != nil {
		middleware.Logger.WarnContext(ctx, "identity sequence unavailable", "error", err)
	} else {
		publishSession(ctx, s.publisher, notifications.SessionEvent{
			Kind:  kind,
			UID:   identity.UID,
			Phone: identity.Phone,
			Seq:   seq,
		})
	}

	return &AuthResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Identity:  identity,
		Session:   s.sessions.Resolve(ctx, &session.Identity{UID: identity.UID, Phone: identity.Phone}),
	}, nil
}

func (s *AuthService) revoke(ctx context.Context, claims *auth.Claims) {
	if err := s.state.Revoke(ctx, claims.ID, claims.Remaining(s.now())); err != nil {
		middleware.Logger.WarnContext(ctx, "token revocation failed", "jti", claims.ID, "error", err)
	}
}
