// Command main fills a development database with generated donors and posts.
package main

import (
	"context"
	"flag"
	"log"

	"bloodconnect/internal/config"
	"bloodconnect/internal/database"
	"bloodconnect/internal/seed"
)

func main() {
	users := flag.Int("users", 25, "Number of profiles to create")
	posts := flag.Int("posts", 2, "Posts per profile")
	days := flag.Int("days", 30, "Spread post timestamps over this many days")
	seedValue := flag.Int64("seed", 0, "Random seed (0 picks one)")
	shouldClean := flag.Bool("clean", false, "Delete posts, profiles and identities first")
	dryRun := flag.Bool("dry-run", false, "Generate without writing")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Printf("Target: %d profiles, %d posts each, clean=%v\n", *users, *posts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	s := seed.NewSeeder(db, seed.Options{
		Users:        *users,
		PostsPerUser: *posts,
		MaxDays:      *days,
		Seed:         *seedValue,
		DryRun:       *dryRun,
	})

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	if err := s.Run(context.Background()); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	log.Println("✨ All done! Sign in with any seeded phone number to try it out.")
}
