// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"bizdir/internal/apperr"
	"bizdir/internal/cache"
	"bizdir/internal/categories"
)

// Categories serves the category tree and its admin mutations.
type Categories struct {
	mgr   *categories.Manager
	cache *cache.CategoryCache
}

// NewCategories creates a new Categories handler group.
func NewCategories(mgr *categories.Manager, forestCache *cache.CategoryCache) *Categories {
	return &Categories{mgr: mgr, cache: forestCache}
}

type categoryCreateRequest struct {
	Name        string  `json:"name" validate:"required"`
	ParentID    *string `json:"parent_id" validate:"omitempty,uuid"`
	Description string  `json:"description" validate:"max=2000"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url,max=2048"`
	SortOrder   *int    `json:"sort_order" validate:"omitempty,min=0"`
	IsActive    *bool   `json:"is_active"`
}

// parent_id is kept raw so an explicit null (move to root) can be told
// apart from an absent field (keep parent).
type categoryUpdateRequest struct {
	Name        *string         `json:"name"`
	ParentID    json.RawMessage `json:"parent_id"`
	Description *string         `json:"description" validate:"omitempty,max=2000"`
	ImageURL    *string         `json:"image_url" validate:"omitempty,max=2048"`
	SortOrder   *int            `json:"sort_order" validate:"omitempty,min=0"`
	IsActive    *bool           `json:"is_active"`
}

func (req categoryUpdateRequest) parent() (*categories.ParentRef, error) {
	if len(req.ParentID) == 0 {
		return nil, nil
	}
	if bytes.Equal(bytes.TrimSpace(req.ParentID), []byte("null")) {
		return &categories.ParentRef{}, nil
	}
	var raw string
	if err := json.Unmarshal(req.ParentID, &raw); err != nil {
		return nil, apperr.InvalidInput("invalid_parent_id", "parent_id must be a string or null.")
	}
	if raw == "" {
		return &categories.ParentRef{}, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.InvalidInput("invalid_parent_id", "parent_id must be a valid identifier.")
	}
	return &categories.ParentRef{ID: &id}, nil
}

// Forest returns the category tree, or the depth-first flattened list
// with ?flat=true.
func (c *Categories) Forest(w http.ResponseWriter, r *http.Request) {
	flat, err := queryBool(r, "flat")
	if err != nil {
		writeError(w, r, err)
		return
	}
	forest, err := c.cache.Forest(r.Context(), c.mgr.List)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if flat {
		forest = categories.Flatten(forest)
	}
	if forest == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, forest)
}

// Roots returns the top-level categories.
func (c *Categories) Roots(w http.ResponseWriter, r *http.Request) {
	roots, err := c.mgr.Roots(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if roots == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, roots)
}

// Get returns one category.
func (c *Categories) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	cat, err := c.mgr.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// Create adds a category. Admin only (enforced by the router).
func (c *Categories) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	params := categories.CreateParams{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		SortOrder:   req.SortOrder,
		IsActive:    req.IsActive,
	}
	if req.ParentID != nil {
		id := uuid.MustParse(*req.ParentID)
		params.ParentID = &id
	}

	cat, err := c.mgr.Create(r.Context(), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.cache.Invalidate(r.Context())
	slog.Info("category created", "id", cat.ID, "slug", cat.Slug)
	writeJSON(w, http.StatusCreated, cat)
}

// Update applies a partial update, including reparenting.
func (c *Categories) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req categoryUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	parent, err := req.parent()
	if err != nil {
		writeError(w, r, err)
		return
	}

	cat, err := c.mgr.Update(r.Context(), id, categories.UpdateParams{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		SortOrder:   req.SortOrder,
		IsActive:    req.IsActive,
		Parent:      parent,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.cache.Invalidate(r.Context())
	writeJSON(w, http.StatusOK, cat)
}

// Delete removes a category without children or businesses.
func (c *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := c.mgr.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	c.cache.Invalidate(r.Context())
	slog.Info("category deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}
