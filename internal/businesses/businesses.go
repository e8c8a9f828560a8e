// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package businesses manages directory listings owned by business owners.
package businesses

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"bizdir/internal/apperr"
	"bizdir/internal/auth"
	"bizdir/internal/models"
	"bizdir/internal/slug"
)

const (
	maxNameLen = 200

	defaultPageSize = 50
	maxPageSize     = 200
)

// Repository persists businesses. Find methods return (nil, nil) when the
// row does not exist.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Business, error)
	FindBySlug(ctx context.Context, slug string) (*models.Business, error)
	SlugExists(ctx context.Context, slug string, exclude *uuid.UUID) (bool, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Business, error)
	ListActive(ctx context.Context, categoryID *uuid.UUID, limit, offset int) ([]models.Business, error)
	Create(ctx context.Context, b *models.Business) (*models.Business, error)
	Update(ctx context.Context, b *models.Business) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// Categories checks that a referenced category exists.
type Categories interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

// Service applies listing rules on top of a Repository.
type Service struct {
	repo       Repository
	categories Categories
	now        func() time.Time
}

// NewService returns a Service.
func NewService(repo Repository, categories Categories) *Service {
	return &Service{repo: repo, categories: categories, now: time.Now}
}

var (
	errNotFound  = apperr.NotFound("business_not_found", "Business not found.")
	errOwnerOnly = apperr.Forbidden("owner_only", "Only business owners manage businesses.")
	errNotOwner  = apperr.Forbidden("not_business_owner", "You do not own this business.")
	errAdminOnly = apperr.Forbidden("admin_only", "Only administrators may do this.")
)

// Params is the editable content of a business. For updates, nil fields
// keep their current value and an empty CategoryID clears the category.
type Params struct {
	Name        *string
	CategoryID  *string
	Description *string
	Phone       *string
	Website     *string
	Address     *string
}

// Create stores a new active business owned by p.
func (s *Service) Create(ctx context.Context, p auth.Principal, in Params) (*models.Business, error) {
	if !p.IsOwner() {
		return nil, errOwnerOnly
	}
	if in.Name == nil {
		return nil, apperr.InvalidInput("invalid_name", "Name is required.")
	}
	b := &models.Business{OwnerID: p.UserID, IsActive: true}
	if err := s.apply(ctx, b, in); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, b)
}

// Update changes a business owned by p. The slug follows the name.
func (s *Service) Update(ctx context.Context, p auth.Principal, id uuid.UUID, in Params) (*models.Business, error) {
	if !p.IsOwner() {
		return nil, errOwnerOnly
	}
	b, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.OwnedBy(p.UserID) {
		return nil, errNotOwner
	}
	if err := s.apply(ctx, b, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return s.find(ctx, id)
}

// ListMine returns the businesses owned by p.
func (s *Service) ListMine(ctx context.Context, p auth.Principal) ([]models.Business, error) {
	if !p.IsOwner() {
		return nil, errOwnerOnly
	}
	return nonNil(s.repo.ListByOwner(ctx, p.UserID))
}

// ListPublic returns active businesses, optionally in one category.
func (s *Service) ListPublic(ctx context.Context, categoryID *uuid.UUID, page, perPage int) ([]models.Business, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPageSize
	}
	perPage = min(perPage, maxPageSize)
	return nonNil(s.repo.ListActive(ctx, categoryID, perPage, (page-1)*perPage))
}

// GetPublic finds an active business by id or slug. Inactive businesses
// are reported as missing.
func (s *Service) GetPublic(ctx context.Context, idOrSlug string) (*models.Business, error) {
	var (
		b   *models.Business
		err error
	)
	if id, perr := uuid.Parse(idOrSlug); perr == nil {
		b, err = s.repo.FindByID(ctx, id)
	} else {
		b, err = s.repo.FindBySlug(ctx, strings.ToLower(idOrSlug))
	}
	if err != nil {
		return nil, err
	}
	if b == nil || !b.IsActive {
		return nil, errNotFound
	}
	return b, nil
}

// SetActive shows or hides a business. Admin only.
func (s *Service) SetActive(ctx context.Context, p auth.Principal, id uuid.UUID, active bool) (*models.Business, error) {
	if !p.IsAdmin() {
		return nil, errAdminOnly
	}
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	return s.find(ctx, id)
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, errNotFound
	}
	return b, nil
}

func (s *Service) apply(ctx context.Context, b *models.Business, in Params) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || utf8.RuneCountInString(name) > maxNameLen {
			return apperr.InvalidInput("invalid_name", "Name must be between 1 and 200 characters.")
		}
		if name != b.Name {
			sl, err := s.uniqueSlug(ctx, name, idOrNil(b.ID))
			if err != nil {
				return err
			}
			b.Name, b.Slug = name, sl
		}
	}
	if in.CategoryID != nil {
		raw := strings.TrimSpace(*in.CategoryID)
		if raw == "" {
			b.CategoryID = nil
		} else {
			id, err := uuid.Parse(raw)
			if err != nil {
				return apperr.InvalidInput("invalid_category_id", "category_id is not a valid identifier.")
			}
			cat, err := s.categories.FindByID(ctx, id)
			if err != nil {
				return err
			}
			if cat == nil {
				return apperr.NotFound("category_not_found", "Category not found.")
			}
			b.CategoryID = &id
		}
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&b.Description, in.Description)
	set(&b.Phone, in.Phone)
	set(&b.Website, in.Website)
	set(&b.Address, in.Address)
	return nil
}

// uniqueSlug follows the category rule: the generated slug, or one
// time-derived suffix when it is taken.
func (s *Service) uniqueSlug(ctx context.Context, name string, exclude *uuid.UUID) (string, error) {
	base := slug.Generate(name)
	if base == "" {
		return "", apperr.InvalidInput("invalid_name", "Name must contain letters or digits.")
	}
	taken, err := s.repo.SlugExists(ctx, base, exclude)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}
	return slug.WithSuffix(base, s.now()), nil
}

func idOrNil(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func nonNil(items []models.Business, err error) ([]models.Business, error) {
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Business{}
	}
	return items, nil
}
