// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package categories maintains the category forest: slug derivation and
// disambiguation, reparenting without cycles, and guarded deletion.
package categories

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"bizdir/internal/apperr"
	"bizdir/internal/models"
	"bizdir/internal/slug"
)

const (
	// minNameLen is the minimum category name length after trimming.
	minNameLen = 2

	// maxNameLen caps category names.
	maxNameLen = 120

	// MaxDepth bounds the ancestor walk performed before a reparent.
	MaxDepth = 64
)

// Repository is the persistence the manager needs. FindByID returns
// (nil, nil) when the category does not exist.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	SlugExists(ctx context.Context, slug string, exclude *uuid.UUID) (bool, error)
	NextSortOrder(ctx context.Context, parentID *uuid.UUID) (int, error)
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountChildren(ctx context.Context, id uuid.UUID) (int, error)
	CountBusinesses(ctx context.Context, id uuid.UUID) (int, error)
	List(ctx context.Context) ([]models.Category, error)
}

// Manager applies the category tree rules on top of a Repository.
type Manager struct {
	repo Repository
	now  func() time.Time
}

// NewManager returns a Manager backed by repo.
func NewManager(repo Repository) *Manager {
	return &Manager{repo: repo, now: time.Now}
}

// CreateParams holds the input for Create. Nil pointers take defaults.
type CreateParams struct {
	Name        string
	ParentID    *uuid.UUID
	Description string
	ImageURL    *string
	SortOrder   *int
	IsActive    *bool
}

// ParentRef expresses a reparent request. A nil ID moves the category to
// the root level.
type ParentRef struct {
	ID *uuid.UUID
}

// UpdateParams holds a partial update. Nil fields keep their current value.
type UpdateParams struct {
	Name        *string
	Description *string
	ImageURL    *string
	SortOrder   *int
	IsActive    *bool
	Parent      *ParentRef
}

// Create validates and stores a new category with a generated slug.
func (m *Manager) Create(ctx context.Context, p CreateParams) (*models.Category, error) {
	name, err := validateName(p.Name)
	if err != nil {
		return nil, err
	}

	if p.ParentID != nil {
		parent, err := m.repo.FindByID(ctx, *p.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, apperr.NotFound("parent_not_found", "Parent category not found.")
		}
	}

	s, err := m.uniqueSlug(ctx, name, nil)
	if err != nil {
		return nil, err
	}

	sortOrder := 0
	if p.SortOrder != nil {
		sortOrder = *p.SortOrder
	} else if sortOrder, err = m.repo.NextSortOrder(ctx, p.ParentID); err != nil {
		return nil, err
	}

	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}

	return m.repo.Create(ctx, &models.Category{
		Name:        name,
		Slug:        s,
		Description: strings.TrimSpace(p.Description),
		ImageURL:    p.ImageURL,
		ParentID:    p.ParentID,
		SortOrder:   sortOrder,
		IsActive:    active,
	})
}

// Update applies a partial update. A rename regenerates the slug; a
// reparent is rejected if it would make the category its own ancestor.
func (m *Manager) Update(ctx context.Context, id uuid.UUID, p UpdateParams) (*models.Category, error) {
	c, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Name != nil {
		name, err := validateName(*p.Name)
		if err != nil {
			return nil, err
		}
		if name != c.Name {
			s, err := m.uniqueSlug(ctx, name, &c.ID)
			if err != nil {
				return nil, err
			}
			c.Name = name
			c.Slug = s
		}
	}

	if p.Parent != nil && !sameParent(c.ParentID, p.Parent.ID) {
		if p.Parent.ID != nil {
			if err := m.checkReparent(ctx, c.ID, *p.Parent.ID); err != nil {
				return nil, err
			}
		}
		c.ParentID = p.Parent.ID
	}

	if p.Description != nil {
		c.Description = strings.TrimSpace(*p.Description)
	}
	if p.ImageURL != nil {
		c.ImageURL = p.ImageURL
		if *p.ImageURL == "" {
			c.ImageURL = nil
		}
	}
	if p.SortOrder != nil {
		c.SortOrder = *p.SortOrder
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}

	if err := m.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a category that has no children and no businesses.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := m.Get(ctx, id); err != nil {
		return err
	}

	children, err := m.repo.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return apperr.Conflict("category_has_children", "Category has subcategories; move or delete them first.")
	}

	businesses, err := m.repo.CountBusinesses(ctx, id)
	if err != nil {
		return err
	}
	if businesses > 0 {
		return apperr.Conflict("category_has_businesses", "Category is used by businesses; reassign them first.")
	}

	return m.repo.Delete(ctx, id)
}

// Get returns a single category or a NotFound error.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := m.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("category_not_found", "Category not found.")
	}
	return c, nil
}

// List returns every category arranged as a forest.
func (m *Manager) List(ctx context.Context) ([]models.Category, error) {
	flat, err := m.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return BuildForest(flat), nil
}

// Roots returns the top-level categories without their subtrees.
func (m *Manager) Roots(ctx context.Context) ([]models.Category, error) {
	flat, err := m.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	roots := make([]models.Category, 0)
	for _, c := range flat {
		if c.ParentID == nil {
			roots = append(roots, c)
		}
	}
	return roots, nil
}

// checkReparent walks the ancestor chain of newParentID toward the root and
// fails if id appears in it. A missing intermediate node or a node seen
// twice ends the walk; the chain is never followed past MaxDepth.
func (m *Manager) checkReparent(ctx context.Context, id, newParentID uuid.UUID) error {
	if newParentID == id {
		return apperr.InvalidOperation("self_parent", "A category cannot be its own parent.")
	}

	cur, err := m.repo.FindByID(ctx, newParentID)
	if err != nil {
		return err
	}
	if cur == nil {
		return apperr.NotFound("parent_not_found", "Parent category not found.")
	}

	seen := make(map[uuid.UUID]bool)
	for depth := 0; cur != nil; depth++ {
		if depth >= MaxDepth {
			return apperr.InvalidOperation("hierarchy_too_deep", "Category hierarchy is too deep.")
		}
		if cur.ID == id {
			return apperr.InvalidOperation("category_cycle", "A category cannot be moved under one of its descendants.")
		}
		if seen[cur.ID] || cur.ParentID == nil {
			return nil
		}
		seen[cur.ID] = true

		if cur, err = m.repo.FindByID(ctx, *cur.ParentID); err != nil {
			return err
		}
	}
	return nil
}

// uniqueSlug derives a slug from name and, if it is taken by another
// category, appends a time-derived suffix once.
func (m *Manager) uniqueSlug(ctx context.Context, name string, exclude *uuid.UUID) (string, error) {
	base := slug.Generate(name)
	if base == "" {
		return "", apperr.InvalidInput("invalid_name", "Name must contain letters or digits.")
	}
	taken, err := m.repo.SlugExists(ctx, base, exclude)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}
	return slug.WithSuffix(base, m.now()), nil
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(name)
	if n < minNameLen {
		return "", apperr.InvalidInput("invalid_name", "Name must be at least 2 characters.")
	}
	if n > maxNameLen {
		return "", apperr.InvalidInput("invalid_name", "Name is too long (max 120 characters).")
	}
	return name, nil
}

// sameParent compares two *uuid.UUID for equality (both nil or same value).
func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
