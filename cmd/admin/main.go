// Package main provides role management utilities for BloodConnect.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"bloodconnect/internal/config"
	"bloodconnect/internal/database"
	"bloodconnect/internal/models"
	"bloodconnect/internal/repository"
	"bloodconnect/internal/session"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin set-role <uid|+phone> <user|admin|superadmin>  - Change a user's role")
	fmt.Println("  go run ./cmd/admin list-staff                                  - List admins and superadmins")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	identities := repository.NewIdentityRepository(db)
	profiles := repository.NewProfileRepository(db)

	switch os.Args[1] {
	case "set-role":
		if len(os.Args) < 4 {
			usage()
			os.Exit(1)
		}
		uid, err := resolveUID(ctx, identities, os.Args[2])
		if err != nil {
			log.Fatalf("Lookup failed: %v", err)
		}
		setRole(ctx, profiles, uid, os.Args[3])

	case "list-staff":
		listStaff(ctx, profiles)

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

// resolveUID accepts a uid or an E.164 phone number.
func resolveUID(ctx context.Context, identities repository.IdentityRepository, ref string) (string, error) {
	if !strings.HasPrefix(ref, "+") {
		return ref, nil
	}
	identity, err := identities.GetByPhone(ctx, ref)
	if err != nil {
		return "", err
	}
	if identity == nil {
		return "", fmt.Errorf("no user has signed in with %s", ref)
	}
	return identity.UID, nil
}

func setRole(ctx context.Context, profiles repository.ProfileRepository, uid, role string) {
	role = strings.ToLower(strings.TrimSpace(role))
	if !session.IsKnownRole(role) {
		fmt.Printf("Unknown role %q\n", role)
		os.Exit(1)
	}

	profile, err := profiles.Get(ctx, uid)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			fmt.Printf("User %s has no profile yet\n", uid)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}

	if profile.EffectiveRole() == role {
		fmt.Printf("%s (%s) is already %s\n", profile.Name, uid, role)
		return
	}

	if _, err := profiles.UpdateField(ctx, uid, "role", role); err != nil {
		log.Fatalf("Failed to change role: %v", err)
	}
	fmt.Printf("✅ %s (%s): %s -> %s\n", profile.Name, uid, profile.EffectiveRole(), role)
}

func listStaff(ctx context.Context, profiles repository.ProfileRepository) {
	staff, err := profiles.ListByRoles(ctx, []string{models.RoleAdmin, models.RoleSuperAdmin})
	if err != nil {
		log.Fatalf("Failed to fetch staff: %v", err)
	}

	if len(staff) == 0 {
		fmt.Println("No admins found in the system")
		return
	}

	fmt.Println("\n📋 Current Staff:")
	fmt.Println("─────────────────────────────────────")
	for _, p := range staff {
		fmt.Printf("UID: %s | Role: %s | Name: %s | Phone: %s\n", p.UID, p.Role, p.Name, p.Phone)
	}
	fmt.Println("─────────────────────────────────────")
}
