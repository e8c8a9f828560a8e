// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"bizdir/internal/slug"
)

// SeedAdminEmail is the login of the development administrator.
const SeedAdminEmail = "admin@bizdir.local"

// seedCategories are the root categories created for a fresh database.
var seedCategories = []string{
	"Restaurants",
	"Shopping",
	"Health & Beauty",
	"Home Services",
	"Automotive",
}

// Seed populates the database with initial development data.
// It creates a default admin user and a handful of root categories if the
// database has no users yet. The admin has 2FA disabled.
func Seed(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, display_name, role, totp_enabled)
		VALUES ($1, $2, $3, $4, $5)
	`, SeedAdminEmail, string(hash), "Admin", "system_admin", false)
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	for i, name := range seedCategories {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (name, slug, sort_order)
			VALUES ($1, $2, $3)
			ON CONFLICT (slug) DO NOTHING
		`, name, slug.Generate(name), i)
		if err != nil {
			return fmt.Errorf("seed insert category %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with default admin user",
		"email", SeedAdminEmail,
		"password", "admin",
		"categories", len(seedCategories),
	)
	return nil
}
