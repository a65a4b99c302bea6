package service

import (
	"context"
	"strings"
	"time"

	"bloodconnect/internal/locations"
	"bloodconnect/internal/middleware"
	"bloodconnect/internal/models"
	"bloodconnect/internal/notifications"
	"bloodconnect/internal/observability"
	"bloodconnect/internal/repository"
	"bloodconnect/internal/session"
	"bloodconnect/internal/validation"
)

// Field update outcomes.
const (
	FieldConfirmed = "confirmed"
	FieldFailed    = "failed"
)

// FieldUpdate reports the result of a single-field edit. On failure Value equals
// Previous: the edit is never shown as applied before the write confirms.
type FieldUpdate struct {
	Field    string `json:"field"`
	Value    any    `json:"value"`
	Previous any    `json:"previous"`
	Status   string `json:"status"`
	Version  uint64 `json:"version,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ProfileService struct {
	profiles        repository.ProfileRepository
	catalog         *locations.Catalog
	publisher       Publisher
	now             func() time.Time
	superadminPhone string
}

// CompleteProfileInput is the signup form for the caller's own profile.
type CompleteProfileInput struct {
	UID   string
	Phone string
	Draft validation.ProfileDraft
}

type UpdateFieldInput struct {
	UID   string
	Field string
	Value any
}

type SetRoleInput struct {
	ActorUID  string
	TargetUID string
	Role      string
}

func NewProfileService(profiles repository.ProfileRepository, catalog *locations.Catalog, publisher Publisher) *ProfileService {
	if catalog == nil {
		catalog = locations.Default()
	}
	return &ProfileService{
		profiles:  profiles,
		catalog:   catalog,
		publisher: orNoop(publisher),
		now:       time.Now,
	}
}

// WithSuperadminPhone makes the profile completed by phone a superadmin.
// Used to bootstrap a development environment.
func (s *ProfileService) WithSuperadminPhone(phone string) *ProfileService {
	s.superadminPhone = strings.TrimSpace(phone)
	return s
}

func (s *ProfileService) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	return s.profiles.Get(ctx, uid)
}

// CompleteProfile validates the signup form and writes the whole profile document.
// A profile that is already complete cannot be completed again.
func (s *ProfileService) CompleteProfile(ctx context.Context, in CompleteProfileInput) (*models.Profile, error) {
	existing, err := s.profiles.Get(ctx, in.UID)
	if err != nil && !models.IsCode(err, models.CodeNotFound) {
		return nil, err
	}
	if existing != nil && existing.ProfileComplete {
		return nil, models.NewConflictError("Profile is already complete")
	}

	now := s.now()
	donated, err := validation.ValidateProfile(in.Draft, s.catalog, now)
	if err != nil {
		return nil, err
	}

	healthIssues := strings.TrimSpace(in.Draft.HealthIssues)
	if healthIssues == "" {
		healthIssues = "None"
	}
	role := models.RoleUser
	if s.superadminPhone != "" && in.Phone == s.superadminPhone {
		role = models.RoleSuperAdmin
	}

	profile := &models.Profile{
		UID:                 in.UID,
		Phone:               in.Phone,
		Name:                strings.TrimSpace(in.Draft.Name),
		Gender:              in.Draft.Gender,
		Age:                 in.Draft.Age,
		Weight:              in.Draft.Weight,
		BloodGroup:          validation.NormalizeBloodGroup(in.Draft.BloodGroup),
		HealthIssues:        healthIssues,
		LastDonationDate:    &donated,
		IsAvailableToDonate: true,
		State:               strings.TrimSpace(in.Draft.State),
		Constituency:        strings.TrimSpace(in.Draft.Constituency),
		Role:                role,
		ProfileComplete:     true,
		DonationHistory:     []models.DonationRecord{},
		RequestHistory:      []models.RequestRef{},
		Version:             1,
	}
	if existing != nil {
		profile.CreatedAt = existing.CreatedAt
		profile.Version = existing.Version + 1
	}

	if err := s.profiles.Put(ctx, profile); err != nil {
		return nil, err
	}
	s.publishProfile(ctx, profile)
	return profile, nil
}

// UpdateField edits one whitelisted field. Validation problems return an error and
// no FieldUpdate. A failed write returns a FieldUpdate with Status failed together
// with the write error.
func (s *ProfileService) UpdateField(ctx context.Context, in UpdateFieldInput) (*FieldUpdate, error) {
	def, ok := validation.EditableField(in.Field)
	if !ok {
		return nil, models.NewFieldValidationError(map[string]string{
			"field": "Field cannot be edited: " + in.Field,
		})
	}

	current, err := s.profiles.Get(ctx, in.UID)
	if err != nil {
		return nil, err
	}
	previous := def.Read(current)

	value, err := def.Parse(in.Value, current, s.catalog, s.now())
	if err != nil {
		return nil, err
	}

	updated, err := s.profiles.UpdateField(ctx, in.UID, def.Column, value)
	if err != nil {
		observability.ProfileFieldUpdates.WithLabelValues(FieldFailed).Inc()
		middleware.Logger.WarnContext(ctx, "profile field write failed", "field", def.Name, "error", err)
		return &FieldUpdate{
			Field:    def.Name,
			Value:    previous,
			Previous: previous,
			Status:   FieldFailed,
			Version:  current.Version,
			Error:    "Update failed, value reverted",
		}, err
	}

	observability.ProfileFieldUpdates.WithLabelValues(FieldConfirmed).Inc()
	s.publishProfile(ctx, updated)
	return &FieldUpdate{
		Field:    def.Name,
		Value:    def.Read(updated),
		Previous: previous,
		Status:   FieldConfirmed,
		Version:  updated.Version,
	}, nil
}

// ToggleAvailability flips isAvailableToDonate with a direct single-field write.
func (s *ProfileService) ToggleAvailability(ctx context.Context, uid string) (*FieldUpdate, error) {
	current, err := s.profiles.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	return s.UpdateField(ctx, UpdateFieldInput{
		UID:   uid,
		Field: "isAvailableToDonate",
		Value: !current.IsAvailableToDonate,
	})
}

// SetRole changes another user's role.
func (s *ProfileService) SetRole(ctx context.Context, in SetRoleInput) (*models.Profile, error) {
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if !session.IsKnownRole(role) {
		return nil, models.NewFieldValidationError(map[string]string{
			"role": "Role must be one of user, admin, superadmin",
		})
	}
	if in.ActorUID != "" && in.ActorUID == in.TargetUID {
		return nil, models.NewForbiddenError("You cannot change your own role")
	}

	updated, err := s.profiles.UpdateField(ctx, in.TargetUID, "role", role)
	if err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "role changed", "target_uid", in.TargetUID, "role", role, "actor_uid", in.ActorUID)
	s.publishProfile(ctx, updated)
	return updated, nil
}

// ListStaff returns admins and superadmins.
func (s *ProfileService) ListStaff(ctx context.Context) ([]models.Profile, error) {
	return s.profiles.ListByRoles(ctx, []string{models.RoleAdmin, models.RoleSuperAdmin})
}

func (s *ProfileService) publishProfile(ctx context.Context, p *models.Profile) {
	publishSession(ctx, s.publisher, notifications.SessionEvent{
		Kind:    session.ProfileSnapshot,
		UID:     p.UID,
		Seq:     p.Version,
		Profile: p,
	})
}
