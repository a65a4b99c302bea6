package seed

import (
	"context"
	"fmt"
	"log"

	"bloodconnect/internal/locations"
	"bloodconnect/internal/models"
	"bloodconnect/internal/repository"

	"gorm.io/gorm"
)

// Seeder writes generated data through the regular repositories, so seeded
// posts land in their owner's request history like real ones.
type Seeder struct {
	db         *gorm.DB
	factory    *Factory
	opts       Options
	identities repository.IdentityRepository
	profiles   repository.ProfileRepository
	posts      repository.PostRepository
}

// NewSeeder creates a seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{
		db:         db,
		factory:    NewFactory(locations.Default(), opts),
		opts:       opts,
		identities: repository.NewIdentityRepository(db),
		profiles:   repository.NewProfileRepository(db),
		posts:      repository.NewPostRepository(db),
	}
}

// Factory exposes the generator used by the seeder.
func (s *Seeder) Factory() *Factory {
	return s.factory
}

// ClearAll removes every post, profile and identity.
func (s *Seeder) ClearAll() error {
	if s.opts.DryRun {
		log.Println("[dry-run] ClearAll skipped")
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, table := range []any{&models.Post{}, &models.Profile{}, &models.Identity{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
				return fmt.Errorf("clear %T: %w", table, err)
			}
		}
		log.Println("🧹 cleared posts, profiles and identities")
		return nil
	})
}

// SeedCommunity signs in n phone numbers and completes a profile for each.
func (s *Seeder) SeedCommunity(ctx context.Context, n int) ([]*models.Profile, error) {
	profiles := make([]*models.Profile, 0, n)
	for i := 0; i < n; i++ {
		phone := s.factory.Phone()

		uid := s.factory.faker.UUID()
		if !s.opts.DryRun {
			identity, _, err := s.identities.SignIn(ctx, phone, s.factory.now().UTC())
			if err != nil {
				return nil, fmt.Errorf("sign in %s: %w", phone, err)
			}
			uid = identity.UID
		}

		profile, err := s.factory.BuildProfile(uid, phone)
		if err != nil {
			return nil, err
		}
		if !s.opts.DryRun {
			if err := s.profiles.Put(ctx, profile); err != nil {
				return nil, fmt.Errorf("store profile %s: %w", uid, err)
			}
		}
		profiles = append(profiles, profile)
	}
	log.Printf("👥 seeded %d profiles", len(profiles))
	return profiles, nil
}

// SeedPosts creates perOwner posts for every owner.
func (s *Seeder) SeedPosts(ctx context.Context, owners []*models.Profile, perOwner int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, len(owners)*perOwner)
	for _, owner := range owners {
		for i := 0; i < perOwner; i++ {
			post, err := s.factory.BuildPost(owner, s.factory.PostType())
			if err != nil {
				return nil, err
			}
			if !s.opts.DryRun {
				if err := s.posts.Create(ctx, post); err != nil {
					return nil, fmt.Errorf("store post for %s: %w", owner.UID, err)
				}
			}
			posts = append(posts, post)
		}
	}
	log.Printf("🩸 seeded %d posts", len(posts))
	return posts, nil
}

// Run seeds Options.Users profiles with Options.PostsPerUser posts each.
func (s *Seeder) Run(ctx context.Context) error {
	owners, err := s.SeedCommunity(ctx, s.opts.Users)
	if err != nil {
		return err
	}
	_, err = s.SeedPosts(ctx, owners, s.opts.PostsPerUser)
	return err
}
