// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ads

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"bizdir/internal/apperr"
	"bizdir/internal/auth"
	"bizdir/internal/models"
)

// ListMine returns the ads targeting businesses owned by p.
func (e *Engine) ListMine(ctx context.Context, p auth.Principal, f ListFilter) (*Page, error) {
	if !p.IsOwner() {
		return nil, apperr.Forbidden("owner_only", "Only business owners have their own ads.")
	}
	f.BannerType, f.TargetType, f.Search = "", "", ""
	if err := f.normalize(); err != nil {
		return nil, err
	}
	owner := p.UserID
	f.OwnerID = &owner
	return e.list(ctx, f)
}

// ListAll returns every ad matching f. Admin only.
func (e *Engine) ListAll(ctx context.Context, p auth.Principal, f ListFilter) (*Page, error) {
	if !p.IsAdmin() {
		return nil, errAdminOnly
	}
	if err := f.normalize(); err != nil {
		return nil, err
	}
	f.OwnerID = nil
	return e.list(ctx, f)
}

func (e *Engine) list(ctx context.Context, f ListFilter) (*Page, error) {
	items, total, err := e.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Ad{}
	}
	return &Page{Ads: items, Total: total, Page: f.Page, PerPage: f.PerPage}, nil
}

// ListPublicEligible returns the ads that may be shown right now, highest
// priority first, newest first among equals. Impressions for the returned
// ads are counted in the background; the response does not wait for them.
func (e *Engine) ListPublicEligible(ctx context.Context, banner models.BannerType, limit int) ([]models.Ad, error) {
	if banner != "" && !banner.Valid() {
		return nil, apperr.InvalidInput("invalid_banner_type", "Unknown banner type.")
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxServeLimit {
		limit = MaxServeLimit
	}

	items, err := e.repo.ListEligible(ctx, e.now(), banner, limit)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []models.Ad{}, nil
	}

	ids := make([]uuid.UUID, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	if !e.tasks.Go("ad-impressions", func(ctx context.Context) error {
		if err := e.repo.IncrementImpressions(ctx, ids); err != nil {
			return err
		}
		if e.opts.Impressions != nil {
			e.opts.Impressions.Add(float64(len(ids)))
		}
		return nil
	}) {
		slog.Warn("impressions not counted", "ads", len(ids))
	}
	return items, nil
}

// IncrementClicks records one click and returns the new total. The counter
// is incremented atomically by the repository.
func (e *Engine) IncrementClicks(ctx context.Context, rawID string) (int64, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return 0, apperr.InvalidInput("invalid_id", "Ad id is not a valid identifier.")
	}
	clicks, found, err := e.repo.IncrementClicks(ctx, id)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, errAdNotFound
	}
	return clicks, nil
}

// MaxExportRows caps how many ads a single export collects.
const MaxExportRows = 10_000

// ExportAll collects every ad matching f, page by page, up to
// MaxExportRows. Admin only. The page fields of f are ignored.
func (e *Engine) ExportAll(ctx context.Context, p auth.Principal, f ListFilter) ([]models.Ad, error) {
	if !p.IsAdmin() {
		return nil, errAdminOnly
	}
	f.Page, f.PerPage, f.OwnerID = 1, maxPerPage, nil
	if err := f.normalize(); err != nil {
		return nil, err
	}

	out := []models.Ad{}
	for len(out) < MaxExportRows {
		items, total, err := e.repo.List(ctx, f)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if len(items) < f.PerPage || len(out) >= total {
			break
		}
		f.Page++
	}
	if len(out) > MaxExportRows {
		out = out[:MaxExportRows]
	}
	return out, nil
}
