package database

import (
	"context"
	"database/sql"
	"fmt"

	"bloodconnect/internal/config"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// EnsureDatabase creates DB_NAME on the configured server when it does not
// exist yet. It connects to the maintenance database "postgres".
func EnsureDatabase(ctx context.Context, cfg *config.Config) (created bool, err error) {
	admin := buildDSN(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, "postgres", cfg.DBSSLMode)
	conn, err := sql.Open("pgx", admin)
	if err != nil {
		return false, fmt.Errorf("open maintenance connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	var exists bool
	if err := conn.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", cfg.DBName,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check database %q: %w", cfg.DBName, err)
	}
	if exists {
		return false, nil
	}

	// CREATE DATABASE does not take bind parameters.
	stmt := "CREATE DATABASE " + pgx.Identifier{cfg.DBName}.Sanitize()
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return false, fmt.Errorf("create database %q: %w", cfg.DBName, err)
	}
	return true, nil
}
