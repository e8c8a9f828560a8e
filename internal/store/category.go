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

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `id, name, slug, description, image_url, parent_id, sort_order, is_active, created_at, updated_at`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &c.ImageURL,
		&c.ParentID, &c.SortOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns all categories ordered by parent, sort_order, then name.
func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		ORDER BY parent_id NULLS FIRST, sort_order, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// SlugExists reports whether a category other than exclude uses slug.
func (s *CategoryStore) SlugExists(ctx context.Context, slug string, exclude *uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM categories
			WHERE slug = $1 AND ($2::uuid IS NULL OR id <> $2::uuid)
		)
	`, slug, exclude).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check category slug: %w", err)
	}
	return exists, nil
}

// Create inserts a new category and returns it.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, slug, description, image_url, parent_id, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+categoryColumns,
		c.Name, c.Slug, c.Description, c.ImageURL, c.ParentID, c.SortOrder, c.IsActive,
	)
	result, err := scanCategory(row)
	if err != nil {
		return nil, classify("create category", err)
	}
	return result, nil
}

// Update modifies an existing category.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE categories SET
			name = $1, slug = $2, description = $3, image_url = $4, parent_id = $5,
			sort_order = $6, is_active = $7, updated_at = NOW()
		WHERE id = $8
	`, c.Name, c.Slug, c.Description, c.ImageURL, c.ParentID, c.SortOrder, c.IsActive, c.ID)
	if err != nil {
		return classify("update category", err)
	}
	return nil
}

// Delete removes a category by ID. The foreign keys restrict deleting a
// category that still has children or businesses.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return classify("delete category", err)
	}
	return nil
}

// CountChildren returns the number of direct children of a category.
func (s *CategoryStore) CountChildren(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE parent_id = $1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("count category children: %w", err)
	}
	return n, nil
}

// CountBusinesses returns the number of businesses filed under a category.
func (s *CategoryStore) CountBusinesses(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM businesses WHERE category_id = $1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("count category businesses: %w", err)
	}
	return n, nil
}

// NextSortOrder returns the next sort_order value for a given parent.
func (s *CategoryStore) NextSortOrder(ctx context.Context, parentID *uuid.UUID) (int, error) {
	var maxOrder sql.NullInt64
	var err error
	if parentID == nil {
		err = s.db.QueryRowContext(ctx, `SELECT MAX(sort_order) FROM categories WHERE parent_id IS NULL`).Scan(&maxOrder)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT MAX(sort_order) FROM categories WHERE parent_id = $1`, *parentID).Scan(&maxOrder)
	}
	if err != nil {
		return 0, fmt.Errorf("next category sort order: %w", err)
	}
	if maxOrder.Valid {
		return int(maxOrder.Int64) + 1, nil
	}
	return 0, nil
}
