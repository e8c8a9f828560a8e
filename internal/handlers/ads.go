// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bizdir/internal/ads"
	"bizdir/internal/apperr"
	"bizdir/internal/export"
	"bizdir/internal/metrics"
	"bizdir/internal/models"
)

// Ads serves public ad slots and the owner/admin ad workflows.
type Ads struct {
	engine     *ads.Engine
	metrics    *metrics.Metrics
	serveLimit int
	now        func() time.Time
}

// NewAds creates a new Ads handler group. serveLimit is the default number
// of ads returned by the public endpoint when ?limit= is absent.
func NewAds(engine *ads.Engine, m *metrics.Metrics, serveLimit int) *Ads {
	return &Ads{engine: engine, metrics: m, serveLimit: serveLimit, now: time.Now}
}

// --- Public ---

// Eligible returns the ads that may be shown now for ?banner_type=.
func (a *Ads) Eligible(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", a.serveLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	banner := models.BannerType(strings.TrimSpace(r.URL.Query().Get("banner_type")))

	items, err := a.engine.ListPublicEligible(r.Context(), banner, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Click records a click and returns the new total.
func (a *Ads) Click(w http.ResponseWriter, r *http.Request) {
	clicks, err := a.engine.IncrementClicks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if a.metrics != nil {
		a.metrics.AdClicks.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]int64{"clicks": clicks})
}

// --- Owner and admin ---

// Create submits a new ad for review.
func (a *Ads) Create(w http.ResponseWriter, r *http.Request) {
	form, err := parseAdForm(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ad, err := a.engine.Create(r.Context(), principal(r), form.draft())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ad)
}

// Get returns one ad to its owner or an admin.
func (a *Ads) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ad, err := a.engine.Get(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

// Update edits an ad. Admins may change priority, activation and
// targeting; owners only the content, and other keys they send are ignored.
func (a *Ads) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	form, err := parseAdForm(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p := principal(r)
	var ad *models.Ad
	if p.IsAdmin() {
		u, ferr := form.adminUpdate()
		if ferr != nil {
			writeError(w, r, ferr)
			return
		}
		ad, err = a.engine.UpdateAsAdmin(r.Context(), p, id, u)
	} else {
		// Priority, activation, status and targeting are not part of a
		// content update, so any such keys in an owner's form are dropped.
		ad, err = a.engine.UpdateAsOwner(r.Context(), p, id, form.contentUpdate())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

// ListMine returns the ads of the calling owner's businesses.
func (a *Ads) ListMine(w http.ResponseWriter, r *http.Request) {
	f, err := listFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := a.engine.ListMine(r.Context(), principal(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// --- Admin ---

type statusRequest struct {
	Status          string  `json:"status" validate:"required,oneof=pending_review approved rejected"`
	RejectionReason *string `json:"rejection_reason" validate:"omitempty,max=1000"`
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=100,dive,uuid"`
}

type bulkItem struct {
	ID      uuid.UUID    `json:"id"`
	Deleted bool         `json:"deleted"`
	Error   *errorDetail `json:"error,omitempty"`
}

// ListAll returns every ad matching the query filters.
func (a *Ads) ListAll(w http.ResponseWriter, r *http.Request) {
	f, err := listFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := a.engine.ListAll(r.Context(), principal(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Export streams the filtered ads as an XLSX workbook.
func (a *Ads) Export(w http.ResponseWriter, r *http.Request) {
	f, err := listFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := a.engine.ExportAll(r.Context(), principal(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filename, data, err := export.Ads(items, a.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Warn("write export failed", "error", err)
	}
}

// SetStatus moves an ad through moderation.
func (a *Ads) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ad, err := a.engine.SetStatus(r.Context(), principal(r), id, models.AdStatus(req.Status), req.RejectionReason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

// Delete removes one ad and releases its creatives.
func (a *Ads) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.engine.Delete(r.Context(), principal(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkDelete deletes each listed ad independently and reports per item.
func (a *Ads) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ids := make([]uuid.UUID, len(req.IDs))
	for i, raw := range req.IDs {
		ids[i] = uuid.MustParse(raw)
	}

	results, err := a.engine.DeleteMany(r.Context(), principal(r), ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]bulkItem, len(results))
	deleted := 0
	for i, res := range results {
		out[i] = bulkItem{ID: res.ID, Deleted: res.Err == nil}
		if res.Err != nil {
			if apperr.KindOf(res.Err) == apperr.KindInternal {
				slog.Error("bulk delete item failed", "ad_id", res.ID, "error", res.Err)
			}
			code, msg := apperr.Public(res.Err)
			out[i].Error = &errorDetail{Code: code, Message: msg}
			continue
		}
		deleted++
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted, "results": out})
}

// listFilter reads the list/export query parameters. Values are checked
// by the engine.
func listFilter(r *http.Request) (ads.ListFilter, error) {
	q := r.URL.Query()
	f := ads.ListFilter{
		Status:     models.AdStatus(q.Get("status")),
		BannerType: models.BannerType(q.Get("banner_type")),
		TargetType: models.TargetType(q.Get("target_type")),
		Search:     q.Get("q"),
		Sort:       q.Get("sort"),
	}
	switch strings.ToLower(q.Get("order")) {
	case "", "desc":
		f.Desc = true
	case "asc":
		f.Desc = false
	default:
		return f, apperr.InvalidInput("invalid_order", "order must be asc or desc.")
	}
	var err error
	if f.Page, err = queryInt(r, "page", 1); err != nil {
		return f, err
	}
	if f.PerPage, err = queryInt(r, "per_page", 0); err != nil {
		return f, err
	}
	return f, nil
}
