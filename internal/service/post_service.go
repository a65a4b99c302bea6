package service

import (
	"context"
	"time"

	"bloodconnect/internal/featureflags"
	"bloodconnect/internal/feed"
	"bloodconnect/internal/middleware"
	"bloodconnect/internal/models"
	"bloodconnect/internal/notifications"
	"bloodconnect/internal/observability"
	"bloodconnect/internal/repository"
	"bloodconnect/internal/validation"

	"github.com/google/uuid"
)

type PostService struct {
	posts     repository.PostRepository
	profiles  repository.ProfileRepository
	flags     *featureflags.Manager
	publisher Publisher
	now       func() time.Time
}

type CreatePostInput struct {
	UID   string
	Draft validation.PostDraft
}

type FeedInput struct {
	UID    string
	Filter feed.Filter
}

// FeedResult is a filtered page of feed cards. Demo is set when the cards are placeholders.
type FeedResult struct {
	Items []feed.Item `json:"items"`
	Demo  bool        `json:"demo"`
	Total int         `json:"total"`
}

type MyPostsInput struct {
	UID    string
	Limit  int
	Offset int
	Filter feed.Filter
}

// MyPostsResult is the owner view: the caller's posts plus donation history.
type MyPostsResult struct {
	Items           []feed.Item             `json:"items"`
	Demo            bool                    `json:"demo"`
	DonationHistory []models.DonationRecord `json:"donationHistory"`
}

func NewPostService(
	posts repository.PostRepository,
	profiles repository.ProfileRepository,
	flags *featureflags.Manager,
	publisher Publisher,
) *PostService {
	return &PostService{
		posts:     posts,
		profiles:  profiles,
		flags:     flags,
		publisher: orNoop(publisher),
		now:       time.Now,
	}
}

// CreatePost validates the form and stores the post. It returns only after the
// write commits; nothing is written when validation fails.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validation.ValidatePost(in.Draft); err != nil {
		return nil, err
	}

	post := validation.BuildPost(in.Draft, in.UID)
	now := s.now().UTC()
	post.ID = uuid.NewString()
	post.CreatedAt = now
	post.UpdatedAt = now

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.PostsCreated.WithLabelValues(post.Type).Inc()

	if err := s.publisher.PublishFeed(ctx, notifications.FeedEvent{
		Type: notifications.TypePostCreated,
		Post: feed.Project(*post, now),
	}); err != nil {
		middleware.Logger.WarnContext(ctx, "publish post.created failed", "post_id", post.ID, "error", err)
	}
	return post, nil
}

// Feed returns the most recent posts across all users, filtered. When there are
// no posts at all the dashboard placeholders are shown instead, unless the
// demo_posts flag is off for the caller.
func (s *PostService) Feed(ctx context.Context, in FeedInput) (*FeedResult, error) {
	posts, err := s.posts.Recent(ctx, feed.Limit)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := &FeedResult{}
	var items []feed.Item
	if len(posts) == 0 && s.flags.EnabledOr(featureflags.DemoPosts, in.UID, true) {
		items = feed.DashboardPlaceholders(now)
		result.Demo = true
	} else {
		items = feed.ProjectAll(posts, now)
	}

	result.Items = in.Filter.Apply(items)
	result.Total = len(result.Items)
	return result, nil
}

func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	if id == "" {
		return nil, models.NewValidationError("Post ID is required")
	}
	return s.posts.GetByID(ctx, id)
}

// MyPosts lists the caller's posts, newest first. An owner with no posts sees the
// owner placeholder set.
func (s *PostService) MyPosts(ctx context.Context, in MyPostsInput) (*MyPostsResult, error) {
	posts, err := s.posts.ListByOwner(ctx, in.UID, in.Limit, in.Offset)
	if err != nil {
		return nil, err
	}

	history := []models.DonationRecord{}
	profile, err := s.profiles.Get(ctx, in.UID)
	switch {
	case err == nil:
		if profile.DonationHistory != nil {
			history = profile.DonationHistory
		}
	case models.IsCode(err, models.CodeNotFound):
	default:
		return nil, err
	}

	now := s.now()
	result := &MyPostsResult{DonationHistory: history}
	var items []feed.Item
	if len(posts) == 0 && in.Offset == 0 && s.flags.EnabledOr(featureflags.DemoPosts, in.UID, true) {
		items = feed.OwnerPlaceholders(now)
		result.Demo = true
	} else {
		items = feed.ProjectAll(posts, now)
	}
	result.Items = in.Filter.Apply(items)
	return result, nil
}
