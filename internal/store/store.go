// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides database access methods for all bizdir entities.
// Each store struct wraps a *sql.DB and exposes typed query methods.
package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"bizdir/internal/apperr"
)

// PostgreSQL error codes the stores reclassify.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Constraint names from the migrations, mapped to client-facing codes.
var uniqueConstraints = map[string]struct{ code, message string }{
	"users_email_key":     {"duplicate_email", "An account with this email already exists."},
	"categories_slug_key": {"duplicate_slug", "A category with this slug already exists."},
	"businesses_slug_key": {"duplicate_slug", "A business with this slug already exists."},
	"categories_pkey":     {"duplicate_id", "Category already exists."},
	"businesses_pkey":     {"duplicate_id", "Business already exists."},
	"ads_pkey":            {"duplicate_id", "Ad already exists."},
	"users_pkey":          {"duplicate_id", "User already exists."},
}

// classify turns constraint violations into Conflict errors and wraps
// everything else with op.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			c, ok := uniqueConstraints[pgErr.ConstraintName]
			if !ok {
				c.code, c.message = "duplicate", "A record with these values already exists."
			}
			return apperr.Wrap(apperr.KindConflict, c.code, c.message, err)
		case pgForeignKeyViolation:
			return apperr.Wrap(apperr.KindConflict, "still_referenced", "The record is referenced by other records.", err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
