package repository

import (
	"context"
	"errors"

	"bloodconnect/internal/cache"
	"bloodconnect/internal/models"

	"gorm.io/gorm"
)

// RecentLimit is the size of the cached recent feed window.
const RecentLimit = 50

// PostRepository defines the interface for post data operations.
type PostRepository interface {
	// Create stores the post and appends it to the owner's request history in one transaction.
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// Recent returns the newest posts across all users.
	Recent(ctx context.Context, limit int) ([]models.Post, error)
	ListByOwner(ctx context.Context, uid string, limit, offset int) ([]models.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}

		var owner models.Profile
		err := tx.Where("uid = ?", post.UserID).First(&owner).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		owner.RequestHistory = append(owner.RequestHistory, models.RequestRef{
			PostID:    post.ID,
			Type:      post.Type,
			CreatedAt: post.CreatedAt,
		})
		owner.Version++
		owner.UpdatedAt = post.CreatedAt
		return tx.Model(&owner).
			Select("request_history", "version", "updated_at").
			Updates(&owner).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateFeed(ctx)
	cache.InvalidateProfile(ctx, post.UserID)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	// Posts are immutable, so the cached copy never goes stale.
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Recent(ctx context.Context, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > RecentLimit {
		limit = RecentLimit
	}
	load := func(dest *[]models.Post) error {
		if err := readDB(r.db).WithContext(ctx).
			Order("created_at DESC").
			Limit(limit).
			Find(dest).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	}

	var posts []models.Post
	if limit != RecentLimit {
		if err := load(&posts); err != nil {
			return nil, err
		}
		return posts, nil
	}
	if err := cache.Aside(ctx, cache.FeedRecentKey, &posts, cache.FeedTTL, func() error {
		return load(&posts)
	}); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) ListByOwner(ctx context.Context, uid string, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	if err := readDB(r.db).WithContext(ctx).
		Where("user_id = ?", uid).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}
