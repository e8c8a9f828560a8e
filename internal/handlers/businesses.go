// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bizdir/internal/apperr"
	"bizdir/internal/businesses"
)

// Businesses serves directory listings.
type Businesses struct {
	svc *businesses.Service
}

// NewBusinesses creates a new Businesses handler group.
func NewBusinesses(svc *businesses.Service) *Businesses {
	return &Businesses{svc: svc}
}

type businessRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	CategoryID  *string `json:"category_id"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Phone       *string `json:"phone" validate:"omitempty,max=50"`
	Website     *string `json:"website" validate:"omitempty,http_url,max=2048"`
	Address     *string `json:"address" validate:"omitempty,max=500"`
}

func (req businessRequest) params() businesses.Params {
	return businesses.Params{
		Name:        req.Name,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Phone:       req.Phone,
		Website:     req.Website,
		Address:     req.Address,
	}
}

// List returns active businesses, optionally filtered by ?category_id=.
func (b *Businesses) List(w http.ResponseWriter, r *http.Request) {
	var categoryID *uuid.UUID
	if raw := strings.TrimSpace(r.URL.Query().Get("category_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, r, apperr.InvalidInput("invalid_category_id", "category_id must be a valid identifier."))
			return
		}
		categoryID = &id
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	perPage, err := queryInt(r, "per_page", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, err := b.svc.ListPublic(r.Context(), categoryID, page, perPage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Get returns an active business by id or slug.
func (b *Businesses) Get(w http.ResponseWriter, r *http.Request) {
	item, err := b.svc.GetPublic(r.Context(), chi.URLParam(r, "idOrSlug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Create registers a business for the calling owner.
func (b *Businesses) Create(w http.ResponseWriter, r *http.Request) {
	var req businessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := b.svc.Create(r.Context(), principal(r), req.params())
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("business created", "id", item.ID, "owner_id", item.OwnerID, "slug", item.Slug)
	writeJSON(w, http.StatusCreated, item)
}

// ListMine returns the calling owner's businesses.
func (b *Businesses) ListMine(w http.ResponseWriter, r *http.Request) {
	items, err := b.svc.ListMine(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Update edits one of the calling owner's businesses.
func (b *Businesses) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req businessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := b.svc.Update(r.Context(), principal(r), id, req.params())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// SetActive shows or hides a business. Admin only.
func (b *Businesses) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req activeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := b.svc.SetActive(r.Context(), principal(r), id, *req.IsActive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("business activation changed", "id", id, "active", item.IsActive)
	writeJSON(w, http.StatusOK, item)
}
