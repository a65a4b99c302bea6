package service

import (
	"context"
	"errors"
	"testing"

	"bloodconnect/internal/models"
	"bloodconnect/internal/session"
	"bloodconnect/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDraft() validation.ProfileDraft {
	return validation.ProfileDraft{
		Name:             "Asha Rao",
		BloodGroup:       "o+",
		Gender:           "Female",
		Age:              29,
		Weight:           58,
		State:            "Karnataka",
		Constituency:     "Mysuru",
		LastDonationDate: "2025-01-10",
	}
}

func newProfileService(repo *profileRepoStub, pub *recordingPublisher) *ProfileService {
	svc := NewProfileService(repo, nil, pub)
	svc.now = clock
	return svc
}

func completeProfile(uid string) *models.Profile {
	return &models.Profile{
		UID:                 uid,
		Name:                "Asha Rao",
		Age:                 29,
		Weight:              58,
		State:               "Karnataka",
		Constituency:        "Mysuru",
		IsAvailableToDonate: true,
		Role:                models.RoleUser,
		ProfileComplete:     true,
		Version:             3,
	}
}

func TestProfileService_CompleteProfile(t *testing.T) {
	repo := missingProfileRepo()
	var stored *models.Profile
	repo.putFn = func(_ context.Context, p *models.Profile) error {
		stored = p
		return nil
	}
	pub := &recordingPublisher{}
	svc := newProfileService(repo, pub)

	p, err := svc.CompleteProfile(context.Background(), CompleteProfileInput{UID: "u1", Phone: "+911234567890", Draft: validDraft()})
	require.NoError(t, err)
	require.Same(t, stored, p)
	assert.True(t, p.ProfileComplete)
	assert.True(t, p.IsAvailableToDonate)
	assert.Equal(t, models.RoleUser, p.Role)
	assert.Equal(t, "O+", p.BloodGroup)
	assert.Equal(t, "None", p.HealthIssues)
	assert.Equal(t, uint64(1), p.Version)
	assert.Empty(t, p.DonationHistory)
	require.NotNil(t, p.LastDonationDate)

	require.Len(t, pub.sessions, 1)
	assert.Equal(t, session.ProfileSnapshot, pub.sessions[0].Kind)
	assert.Equal(t, uint64(1), pub.sessions[0].Seq)
}

func TestProfileService_CompleteProfileRejectsInvalid(t *testing.T) {
	repo := missingProfileRepo()
	repo.putFn = func(context.Context, *models.Profile) error {
		t.Fatal("invalid profile must not be written")
		return nil
	}
	svc := newProfileService(repo, &recordingPublisher{})

	draft := validDraft()
	draft.Age = 17
	draft.Constituency = "Chennai"
	draft.LastDonationDate = "2025-05-20"

	_, err := svc.CompleteProfile(context.Background(), CompleteProfileInput{UID: "u1", Draft: draft})
	assertAppErrorCode(t, err, models.CodeValidation)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "age")
	assert.Contains(t, appErr.Fields, "constituency")
	assert.Contains(t, appErr.Fields, "lastDonationDate")
}

func TestProfileService_CompleteProfileTwiceConflicts(t *testing.T) {
	repo := missingProfileRepo()
	repo.getFn = func(_ context.Context, uid string) (*models.Profile, error) { return completeProfile(uid), nil }
	svc := newProfileService(repo, &recordingPublisher{})

	_, err := svc.CompleteProfile(context.Background(), CompleteProfileInput{UID: "u1", Draft: validDraft()})
	assertAppErrorCode(t, err, models.CodeConflict)
}

func TestProfileService_CompleteProfileSuperadminPhone(t *testing.T) {
	svc := newProfileService(missingProfileRepo(), &recordingPublisher{}).WithSuperadminPhone("+911234567890")

	p, err := svc.CompleteProfile(context.Background(), CompleteProfileInput{UID: "u1", Phone: "+911234567890", Draft: validDraft()})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, p.Role)
}

func TestProfileService_UpdateFieldConfirmed(t *testing.T) {
	repo := missingProfileRepo()
	repo.getFn = func(_ context.Context, uid string) (*models.Profile, error) { return completeProfile(uid), nil }
	repo.updateFieldFn = func(_ context.Context, uid, column string, value any) (*models.Profile, error) {
		assert.Equal(t, "weight", column)
		p := completeProfile(uid)
		p.Weight = value.(float64)
		p.Version++
		return p, nil
	}
	pub := &recordingPublisher{}
	svc := newProfileService(repo, pub)

	update, err := svc.UpdateField(context.Background(), UpdateFieldInput{UID: "u1", Field: "weight", Value: "62.5"})
	require.NoError(t, err)
	assert.Equal(t, FieldConfirmed, update.Status)
	assert.Equal(t, 62.5, update.Value)
	assert.Equal(t, float64(58), update.Previous)
	assert.Equal(t, uint64(4), update.Version)
	require.Len(t, pub.sessions, 1)
	assert.Equal(t, uint64(4), pub.sessions[0].Seq)
}

func TestProfileService_UpdateFieldWriteFailureReverts(t *testing.T) {
	repo := missingProfileRepo()
	repo.getFn = func(_ context.Context, uid string) (*models.Profile, error) { return completeProfile(uid), nil }
	repo.updateFieldFn = func(context.Context, string, string, any) (*models.Profile, error) {
		return nil, models.NewInternalError(errors.New("write timeout"))
	}
	pub := &recordingPublisher{}
	svc := newProfileService(repo, pub)

	update, err := svc.UpdateField(context.Background(), UpdateFieldInput{UID: "u1", Field: "age", Value: float64(30)})
	require.Error(t, err)
	require.NotNil(t, update)
	assert.Equal(t, FieldFailed, update.Status)
	assert.Equal(t, update.Previous, update.Value)
	assert.Equal(t, 29, update.Value)
	assert.Empty(t, pub.sessions, "failed writes publish nothing")
}

func TestProfileService_UpdateFieldValidation(t *testing.T) {
	repo := missingProfileRepo()
	repo.getFn = func(_ context.Context, uid string) (*models.Profile, error) { return completeProfile(uid), nil }
	repo.updateFieldFn = func(context.Context, string, string, any) (*models.Profile, error) {
		t.Fatal("invalid edits must not be written")
		return nil, nil
	}
	svc := newProfileService(repo, &recordingPublisher{})
	ctx := context.Background()

	tests := []struct {
		name  string
		field string
		value any
	}{
		{"unknown field", "role", "admin"},
		{"age below minimum", "age", float64(12)},
		{"weight above maximum", "weight", float64(200)},
		{"constituency outside state", "constituency", "Chennai"},
		{"future donation", "lastDonationDate", "2025-07-01"},
		{"bad blood group", "bloodGroup", "Z+"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			update, err := svc.UpdateField(ctx, UpdateFieldInput{UID: "u1", Field: tt.field, Value: tt.value})
			assert.Nil(t, update)
			assertAppErrorCode(t, err, models.CodeValidation)
		})
	}
}

func TestProfileService_ToggleAvailability(t *testing.T) {
	repo := missingProfileRepo()
	repo.getFn = func(_ context.Context, uid string) (*models.Profile, error) { return completeProfile(uid), nil }
	repo.updateFieldFn = func(_ context.Context, uid, column string, value any) (*models.Profile, error) {
		assert.Equal(t, "is_available_to_donate", column)
		p := completeProfile(uid)
		p.IsAvailableToDonate = value.(bool)
		p.Version++
		return p, nil
	}
	svc := newProfileService(repo, &recordingPublisher{})

	update, err := svc.ToggleAvailability(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, false, update.Value)
	assert.Equal(t, true, update.Previous)
}

func TestProfileService_SetRole(t *testing.T) {
	repo := missingProfileRepo()
	repo.updateFieldFn = func(_ context.Context, uid, column string, value any) (*models.Profile, error) {
		p := completeProfile(uid)
		p.Role = value.(string)
		return p, nil
	}
	svc := newProfileService(repo, &recordingPublisher{})
	ctx := context.Background()

	p, err := svc.SetRole(ctx, SetRoleInput{ActorUID: "root", TargetUID: "u1", Role: "Admin"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, p.Role)

	_, err = svc.SetRole(ctx, SetRoleInput{ActorUID: "root", TargetUID: "u1", Role: "owner"})
	assertAppErrorCode(t, err, models.CodeValidation)

	_, err = svc.SetRole(ctx, SetRoleInput{ActorUID: "root", TargetUID: "root", Role: "user"})
	assertAppErrorCode(t, err, models.CodeForbidden)
}
