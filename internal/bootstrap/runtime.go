// Package bootstrap connects the backing stores shared by the server and the
// command-line tools.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bloodconnect/internal/cache"
	"bloodconnect/internal/config"
	"bloodconnect/internal/database"
	"bloodconnect/internal/middleware"
	"bloodconnect/internal/models"
	"bloodconnect/internal/repository"
	"bloodconnect/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty development database with generated data.
	SeedDemo bool
	Seed     seed.Options
}

// OptionsFromConfig derives the startup options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{SeedDemo: cfg.SeedDemo}
}

// InitRuntime connects to the database and Redis, promotes the development
// superadmin and optionally seeds demo data.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// May leave a nil client when Redis is unreachable.
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := EnsureDevSuperadmin(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development superadmin: %w", err)
	}

	if err := seedDemo(ctx, cfg, db, opts); err != nil {
		return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
	}

	return db, r, nil
}

// seedDemo seeds an empty database when asked to, and only in development.
func seedDemo(ctx context.Context, cfg *config.Config, db *gorm.DB, opts Options) error {
	if !opts.SeedDemo || !isDevelopment(cfg) {
		return nil
	}
	return seedIfEmpty(ctx, db, opts.Seed)
}

func isDevelopment(cfg *config.Config) bool {
	return cfg != nil && strings.EqualFold(cfg.Env, "development")
}

// EnsureDevSuperadmin promotes an existing profile for DEV_SUPERADMIN_PHONE to
// superadmin. Profiles completed later get the role at completion time.
func EnsureDevSuperadmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if db == nil || !isDevelopment(cfg) {
		return nil
	}
	phone := strings.TrimSpace(cfg.DevSuperadminPhone)
	if phone == "" {
		return nil
	}

	identity, err := repository.NewIdentityRepository(db).GetByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if identity == nil {
		middleware.Logger.Info("development superadmin has not signed in yet", "phone", phone)
		return nil
	}

	profiles := repository.NewProfileRepository(db)
	profile, err := profiles.Get(ctx, identity.UID)
	switch {
	case models.IsCode(err, models.CodeNotFound):
		return nil
	case err != nil:
		return err
	case profile.EffectiveRole() == models.RoleSuperAdmin:
		return nil
	}

	if _, err := profiles.UpdateField(ctx, identity.UID, "role", models.RoleSuperAdmin); err != nil {
		return err
	}
	middleware.Logger.Info("development superadmin ensured", "uid", identity.UID)
	return nil
}

func seedIfEmpty(ctx context.Context, db *gorm.DB, opts seed.Options) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Profile{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if opts.Users <= 0 {
		opts.Users = 10
	}
	if opts.PostsPerUser <= 0 {
		opts.PostsPerUser = 2
	}
	return seed.NewSeeder(db, opts).Run(ctx)
}
