package repository

import (
	"context"
	"errors"
	"time"

	"bloodconnect/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IdentityRepository persists phone-number identities.
type IdentityRepository interface {
	GetByUID(ctx context.Context, uid string) (*models.Identity, error)
	GetByPhone(ctx context.Context, phone string) (*models.Identity, error)
	// SignIn returns the identity for phone, creating it on first sign-in.
	SignIn(ctx context.Context, phone string, at time.Time) (*models.Identity, bool, error)
}

type identityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository returns a new IdentityRepository implementation.
func NewIdentityRepository(db *gorm.DB) IdentityRepository {
	return &identityRepository{db: db}
}

func (r *identityRepository) GetByUID(ctx context.Context, uid string) (*models.Identity, error) {
	var identity models.Identity
	if err := readDB(r.db).WithContext(ctx).Where("uid = ?", uid).First(&identity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Identity", uid)
		}
		return nil, models.NewInternalError(err)
	}
	return &identity, nil
}

func (r *identityRepository) GetByPhone(ctx context.Context, phone string) (*models.Identity, error) {
	var identity models.Identity
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&identity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &identity, nil
}

func (r *identityRepository) SignIn(ctx context.Context, phone string, at time.Time) (*models.Identity, bool, error) {
	existing, err := r.GetByPhone(ctx, phone)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if err := r.db.WithContext(ctx).Model(existing).Update("last_sign_in_at", at).Error; err != nil {
			return nil, false, models.NewInternalError(err)
		}
		existing.LastSignInAt = at
		return existing, false, nil
	}

	identity := &models.Identity{
		UID:          uuid.NewString(),
		Phone:        phone,
		CreatedAt:    at,
		LastSignInAt: at,
	}
	if err := r.db.WithContext(ctx).Create(identity).Error; err != nil {
		if isUniqueConstraintError(err) {
			// Lost a race with a concurrent first sign-in for the same phone.
			winner, getErr := r.GetByPhone(ctx, phone)
			if getErr == nil && winner != nil {
				return winner, false, nil
			}
		}
		return nil, false, models.NewInternalError(err)
	}
	return identity, true, nil
}
