// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"bizdir/internal/models"
)

// BusinessStore manages business listings in the database.
type BusinessStore struct {
	db *sql.DB
}

// NewBusinessStore returns a new BusinessStore.
func NewBusinessStore(db *sql.DB) *BusinessStore {
	return &BusinessStore{db: db}
}

const businessColumns = `id, owner_id, category_id, name, slug, description, phone, website, address, is_active, created_at, updated_at`

func scanBusiness(scanner interface{ Scan(...any) error }) (*models.Business, error) {
	var b models.Business
	err := scanner.Scan(
		&b.ID, &b.OwnerID, &b.CategoryID, &b.Name, &b.Slug, &b.Description,
		&b.Phone, &b.Website, &b.Address, &b.IsActive, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *BusinessStore) queryList(ctx context.Context, op, query string, args ...any) ([]models.Business, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := []models.Business{}
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, fmt.Errorf("scan business: %w", err)
		}
		items = append(items, *b)
	}
	return items, rows.Err()
}

// FindByID retrieves a business by ID. Returns nil if not found.
func (s *BusinessStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	b, err := scanBusiness(s.db.QueryRowContext(ctx,
		`SELECT `+businessColumns+` FROM businesses WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find business by id: %w", err)
	}
	return b, nil
}

// FindBySlug retrieves a business by slug. Returns nil if not found.
func (s *BusinessStore) FindBySlug(ctx context.Context, slug string) (*models.Business, error) {
	b, err := scanBusiness(s.db.QueryRowContext(ctx,
		`SELECT `+businessColumns+` FROM businesses WHERE slug = $1`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find business by slug: %w", err)
	}
	return b, nil
}

// SlugExists reports whether a business other than exclude uses slug.
func (s *BusinessStore) SlugExists(ctx context.Context, slug string, exclude *uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM businesses
			WHERE slug = $1 AND ($2::uuid IS NULL OR id <> $2::uuid)
		)
	`, slug, exclude).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check business slug: %w", err)
	}
	return exists, nil
}

// ListByOwner returns every business of an owner, newest first.
func (s *BusinessStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Business, error) {
	return s.queryList(ctx, "list businesses by owner", `
		SELECT `+businessColumns+` FROM businesses
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
}

// ListActive returns active businesses, optionally in one category, by name.
func (s *BusinessStore) ListActive(ctx context.Context, categoryID *uuid.UUID, limit, offset int) ([]models.Business, error) {
	return s.queryList(ctx, "list active businesses", `
		SELECT `+businessColumns+` FROM businesses
		WHERE is_active AND ($1::uuid IS NULL OR category_id = $1::uuid)
		ORDER BY name
		LIMIT $2 OFFSET $3
	`, categoryID, limit, offset)
}

// Create inserts a new business and returns it.
func (s *BusinessStore) Create(ctx context.Context, b *models.Business) (*models.Business, error) {
	result, err := scanBusiness(s.db.QueryRowContext(ctx, `
		INSERT INTO businesses (owner_id, category_id, name, slug, description, phone, website, address, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+businessColumns,
		b.OwnerID, b.CategoryID, b.Name, b.Slug, b.Description, b.Phone, b.Website, b.Address, b.IsActive))
	if err != nil {
		return nil, classify("create business", err)
	}
	return result, nil
}

// Update modifies the editable fields of a business.
func (s *BusinessStore) Update(ctx context.Context, b *models.Business) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE businesses SET
			category_id = $1, name = $2, slug = $3, description = $4,
			phone = $5, website = $6, address = $7, updated_at = NOW()
		WHERE id = $8
	`, b.CategoryID, b.Name, b.Slug, b.Description, b.Phone, b.Website, b.Address, b.ID)
	if err != nil {
		return classify("update business", err)
	}
	return nil
}

// SetActive toggles a business's public visibility.
func (s *BusinessStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE businesses SET is_active = $1, updated_at = NOW() WHERE id = $2
	`, active, id)
	if err != nil {
		return fmt.Errorf("set business active: %w", err)
	}
	return requireRow(res, "set business active")
}
