package repository

import (
	"context"
	"errors"
	"time"

	"bloodconnect/internal/cache"
	"bloodconnect/internal/models"

	"gorm.io/gorm"
)

// ProfileRepository persists user profile documents.
type ProfileRepository interface {
	// Get returns the profile for uid or a NOT_FOUND AppError.
	Get(ctx context.Context, uid string) (*models.Profile, error)
	// Put writes the whole document, replacing any previous one.
	Put(ctx context.Context, profile *models.Profile) error
	// UpdateField writes one column and bumps version and updated_at.
	UpdateField(ctx context.Context, uid, column string, value any) (*models.Profile, error)
	ListByRoles(ctx context.Context, roles []string) ([]models.Profile, error)
}

type profileRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewProfileRepository returns a new ProfileRepository implementation.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db, now: time.Now}
}

func (r *profileRepository) Get(ctx context.Context, uid string) (*models.Profile, error) {
	var profile models.Profile
	err := cache.Aside(ctx, cache.ProfileKey(uid), &profile, cache.ProfileTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).Where("uid = ?", uid).First(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Profile", uid)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) Put(ctx context.Context, profile *models.Profile) error {
	now := r.now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	if err := r.db.WithContext(ctx).Save(profile).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateProfile(ctx, profile.UID)
	return nil
}

func (r *profileRepository) UpdateField(ctx context.Context, uid, column string, value any) (*models.Profile, error) {
	var updated models.Profile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Profile{}).
			Where("uid = ?", uid).
			Updates(map[string]any{
				column:       value,
				"updated_at": r.now().UTC(),
				"version":    gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Profile", uid)
		}
		if err := tx.Where("uid = ?", uid).First(&updated).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateProfile(ctx, uid)
	return &updated, nil
}

func (r *profileRepository) ListByRoles(ctx context.Context, roles []string) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := readDB(r.db).WithContext(ctx).
		Where("role IN ?", roles).
		Order("role DESC, name ASC").
		Find(&profiles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return profiles, nil
}
