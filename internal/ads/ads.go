// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ads implements the ad lifecycle: who may create an ad for which
// target, the moderation workflow, and which ads are served publicly.
package ads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bizdir/internal/apperr"
	"bizdir/internal/auth"
	"bizdir/internal/models"
)

// Repository persists ads. FindByID returns (nil, nil) when missing.
// Update must not write the click and impression counters.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Ad, error)
	Create(ctx context.Context, ad *models.Ad) (*models.Ad, error)
	Update(ctx context.Context, ad *models.Ad) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter) ([]models.Ad, int, error)
	ListEligible(ctx context.Context, now time.Time, banner models.BannerType, limit int) ([]models.Ad, error)
	IncrementClicks(ctx context.Context, id uuid.UUID) (clicks int64, found bool, err error)
	IncrementImpressions(ctx context.Context, ids []uuid.UUID) error
}

// Businesses resolves ad targets. FindByID returns (nil, nil) when missing.
type Businesses interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Business, error)
}

// Assets stores creative images and returns a public URL for each.
type Assets interface {
	Upload(ctx context.Context, slot models.AssetSlot, u Upload) (string, error)
	Release(ctx context.Context, url string) error
}

// Dispatcher runs best-effort work after the caller has returned.
type Dispatcher interface {
	Go(name string, fn func(ctx context.Context) error) bool
}

// Notifier is told about committed moderation decisions.
type Notifier interface {
	AdStatusChanged(ctx context.Context, ad *models.Ad) error
}

// Options tunes engine behaviour.
type Options struct {
	// RereviewOnOwnerEdit returns an approved or rejected ad to
	// pending_review when its owner edits it.
	RereviewOnOwnerEdit bool

	// Impressions, when set, is advanced by the number of impressions
	// actually stored.
	Impressions Counter
}

// Counter is a monotonically increasing metric.
type Counter interface {
	Add(float64)
}

// Engine applies the ad rules on top of its collaborators.
type Engine struct {
	repo       Repository
	businesses Businesses
	assets     Assets
	tasks      Dispatcher
	notifier   Notifier
	opts       Options
	now        func() time.Time
}

// NewEngine wires an Engine. notifier may be nil.
func NewEngine(repo Repository, businesses Businesses, assets Assets, tasks Dispatcher, notifier Notifier, opts Options) *Engine {
	return &Engine{
		repo:       repo,
		businesses: businesses,
		assets:     assets,
		tasks:      tasks,
		notifier:   notifier,
		opts:       opts,
		now:        time.Now,
	}
}

var (
	errAdNotFound  = apperr.NotFound("ad_not_found", "Ad not found.")
	errAdminOnly   = apperr.Forbidden("admin_only", "Only administrators may do this.")
	errNotAdOwner  = apperr.Forbidden("not_ad_owner", "You do not own this ad.")
	errCreateRoles = apperr.Forbidden("role_cannot_create_ads", "Your role cannot create ads.")
)

// transition is the only writer of Ad.Status.
func transition(ad *models.Ad, status models.AdStatus, reason *string) {
	ad.Status = status
	switch status {
	case models.AdApproved:
		ad.IsActive = true
	case models.AdRejected:
		if r := trimmed(reason); r != nil {
			ad.RejectionReason = r
		}
	}
}

// Create stores a new ad in pending_review. Admins create external ads;
// business owners create ads for a business they own.
func (e *Engine) Create(ctx context.Context, p auth.Principal, d Draft) (*models.Ad, error) {
	if !p.IsAdmin() && !p.IsOwner() {
		return nil, errCreateRoles
	}

	ad := &models.Ad{
		Title:           strings.TrimSpace(d.Title),
		Content:         trimmed(d.Content),
		CTAText:         trimmed(d.CTAText),
		CTAURL:          trimmed(d.CTAURL),
		BackgroundColor: trimmed(d.BackgroundColor),
		TextColor:       trimmed(d.TextColor),
		URL:             trimmed(d.URL),
		BannerType:      d.BannerType,
		CreatedBy:       p.UserID,
	}

	switch {
	case p.IsAdmin():
		if d.TargetType != "" && d.TargetType != models.TargetExternal {
			return nil, apperr.InvalidInput("invalid_target_type", "Administrators create external ads only.")
		}
		ad.TargetType = models.TargetExternal
		ad.TargetID = nil
	default:
		if d.TargetType != models.TargetBusiness {
			return nil, apperr.InvalidInput("invalid_target_type", "Business owners create business ads only.")
		}
		targetID, err := parseTargetID(d.TargetID)
		if err != nil {
			return nil, err
		}
		if _, err := e.ownedBusiness(ctx, p, targetID); err != nil {
			return nil, err
		}
		ad.TargetType = models.TargetBusiness
		ad.TargetID = &targetID
	}

	if ad.Title == "" {
		return nil, apperr.InvalidInput("invalid_title", "Title is required.")
	}
	if !ad.BannerType.Valid() {
		return nil, apperr.InvalidInput("invalid_banner_type", "Unknown banner type.")
	}
	start, err := ParseTime("start_at", d.StartAt)
	if err != nil {
		return nil, err
	}
	end, err := ParseTime("end_at", d.EndAt)
	if err != nil {
		return nil, err
	}
	if err := checkWindow(start, end); err != nil {
		return nil, err
	}
	ad.StartAt, ad.EndAt = start, end

	uploaded, err := e.uploadAll(ctx, d.Assets)
	if err != nil {
		return nil, err
	}
	for slot, url := range uploaded {
		url := url
		ad.SetAssetURL(slot, &url)
	}

	transition(ad, models.AdPendingReview, nil)
	ad.IsActive = false
	ad.Priority = 0

	created, err := e.repo.Create(ctx, ad)
	if err != nil {
		e.releaseAll(ctx, urlsOf(uploaded))
		return nil, err
	}
	slog.Info("ad created", "ad_id", created.ID, "target_type", created.TargetType, "by", p.UserID)
	return created, nil
}

// SetStatus moves an ad to another moderation state. Any state is reachable
// from any other; approval also activates the ad.
func (e *Engine) SetStatus(ctx context.Context, p auth.Principal, id uuid.UUID, status models.AdStatus, reason *string) (*models.Ad, error) {
	if !p.IsAdmin() {
		return nil, errAdminOnly
	}
	if !status.Valid() {
		return nil, apperr.InvalidInput("invalid_status", "Unknown ad status.")
	}
	ad, err := e.find(ctx, id)
	if err != nil {
		return nil, err
	}

	transition(ad, status, reason)
	if err := e.repo.Update(ctx, ad); err != nil {
		return nil, err
	}
	slog.Info("ad status changed", "ad_id", ad.ID, "status", ad.Status, "by", p.UserID)

	if e.notifier != nil {
		snapshot := *ad
		e.tasks.Go("ad-status-event", func(ctx context.Context) error {
			return e.notifier.AdStatusChanged(ctx, &snapshot)
		})
	}
	return ad, nil
}

// UpdateAsOwner applies a content update from the owner of the ad's target
// business.
func (e *Engine) UpdateAsOwner(ctx context.Context, p auth.Principal, id uuid.UUID, u ContentUpdate) (*models.Ad, error) {
	ad, err := e.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.checkOwner(ctx, p, ad); err != nil {
		return nil, err
	}

	swap, err := e.applyContent(ctx, ad, u)
	if err != nil {
		return nil, err
	}
	if e.opts.RereviewOnOwnerEdit && ad.Status != models.AdPendingReview {
		transition(ad, models.AdPendingReview, nil)
	}
	return e.commitUpdate(ctx, ad, swap)
}

// UpdateAsAdmin applies an update that may also change priority, the
// active flag and targeting.
func (e *Engine) UpdateAsAdmin(ctx context.Context, p auth.Principal, id uuid.UUID, u AdminUpdate) (*models.Ad, error) {
	if !p.IsAdmin() {
		return nil, errAdminOnly
	}
	ad, err := e.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.TargetType != nil || u.TargetID != nil {
		if err := e.retarget(ctx, ad, u.TargetType, u.TargetID); err != nil {
			return nil, err
		}
	}

	swap, err := e.applyContent(ctx, ad, u.ContentUpdate)
	if err != nil {
		return nil, err
	}
	if u.Priority != nil {
		ad.Priority = *u.Priority
	}
	if u.IsActive != nil {
		ad.IsActive = *u.IsActive
	}
	return e.commitUpdate(ctx, ad, swap)
}

// Delete removes an ad and then releases its creatives. A failed release is
// logged and does not stop the others.
func (e *Engine) Delete(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if !p.IsAdmin() {
		return errAdminOnly
	}
	ad, err := e.find(ctx, id)
	if err != nil {
		return err
	}
	if err := e.repo.Delete(ctx, ad.ID); err != nil {
		return err
	}
	e.releaseAll(ctx, ad.AssetURLs())
	slog.Info("ad deleted", "ad_id", ad.ID, "by", p.UserID)
	return nil
}

// BulkResult is the outcome of one item of DeleteMany.
type BulkResult struct {
	ID  uuid.UUID
	Err error
}

// DeleteMany deletes each ad independently and concurrently. One failure
// does not roll back the others.
func (e *Engine) DeleteMany(ctx context.Context, p auth.Principal, ids []uuid.UUID) ([]BulkResult, error) {
	if !p.IsAdmin() {
		return nil, errAdminOnly
	}
	results := make([]BulkResult, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			results[i] = BulkResult{ID: id, Err: e.Delete(ctx, p, id)}
		}(i, id)
	}
	wg.Wait()
	return results, nil
}

// Get returns an ad visible to p: admins see every ad, owners only theirs.
func (e *Engine) Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.Ad, error) {
	ad, err := e.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsAdmin() {
		return ad, nil
	}
	if err := e.checkOwner(ctx, p, ad); err != nil {
		return nil, err
	}
	return ad, nil
}

func (e *Engine) find(ctx context.Context, id uuid.UUID) (*models.Ad, error) {
	ad, err := e.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ad == nil {
		return nil, errAdNotFound
	}
	return ad, nil
}

// ownedBusiness resolves a business and checks p owns it.
func (e *Engine) ownedBusiness(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.Business, error) {
	b, err := e.businesses.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, apperr.NotFound("business_not_found", "Target business not found.")
	}
	if !b.OwnedBy(p.UserID) {
		return nil, apperr.Forbidden("not_business_owner", "You do not own this business.")
	}
	return b, nil
}

// checkOwner requires p to own the business the ad targets.
func (e *Engine) checkOwner(ctx context.Context, p auth.Principal, ad *models.Ad) error {
	if !p.IsOwner() || ad.TargetType != models.TargetBusiness || ad.TargetID == nil {
		return errNotAdOwner
	}
	b, err := e.businesses.FindByID(ctx, *ad.TargetID)
	if err != nil {
		return err
	}
	if b == nil || !b.OwnedBy(p.UserID) {
		return errNotAdOwner
	}
	return nil
}

func (e *Engine) retarget(ctx context.Context, ad *models.Ad, tt *models.TargetType, rawID *string) error {
	targetType := ad.TargetType
	if tt != nil {
		if !tt.Valid() {
			return apperr.InvalidInput("invalid_target_type", "Unknown target type.")
		}
		targetType = *tt
	}

	targetID := ad.TargetID
	if rawID != nil {
		targetID = nil
		if strings.TrimSpace(*rawID) != "" {
			id, err := parseTargetID(*rawID)
			if err != nil {
				return err
			}
			targetID = &id
		}
	}

	switch targetType {
	case models.TargetExternal:
		targetID = nil
	case models.TargetBusiness:
		if targetID == nil {
			return apperr.InvalidInput("invalid_target_id", "Business ads need a target_id.")
		}
		b, err := e.businesses.FindByID(ctx, *targetID)
		if err != nil {
			return err
		}
		if b == nil {
			return apperr.NotFound("business_not_found", "Target business not found.")
		}
	}

	ad.TargetType = targetType
	ad.TargetID = targetID
	return nil
}

// assetSwap records creatives uploaded by an update and the URLs they
// replaced.
type assetSwap struct {
	uploaded []string
	replaced []string
}

// applyContent validates and applies u to ad, uploading any new creatives.
func (e *Engine) applyContent(ctx context.Context, ad *models.Ad, u ContentUpdate) (*assetSwap, error) {
	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			return nil, apperr.InvalidInput("invalid_title", "Title is required.")
		}
		ad.Title = title
	}
	if u.BannerType != nil {
		if !u.BannerType.Valid() {
			return nil, apperr.InvalidInput("invalid_banner_type", "Unknown banner type.")
		}
		ad.BannerType = *u.BannerType
	}

	start, end := ad.StartAt, ad.EndAt
	var err error
	if u.StartAt != nil {
		if start, err = ParseTime("start_at", *u.StartAt); err != nil {
			return nil, err
		}
	}
	if u.EndAt != nil {
		if end, err = ParseTime("end_at", *u.EndAt); err != nil {
			return nil, err
		}
	}
	if u.StartAt != nil || u.EndAt != nil {
		if err := checkWindow(start, end); err != nil {
			return nil, err
		}
	}
	ad.StartAt, ad.EndAt = start, end

	for _, f := range []struct {
		dst **string
		src *string
	}{
		{&ad.Content, u.Content},
		{&ad.CTAText, u.CTAText},
		{&ad.CTAURL, u.CTAURL},
		{&ad.BackgroundColor, u.BackgroundColor},
		{&ad.TextColor, u.TextColor},
		{&ad.URL, u.URL},
	} {
		if f.src != nil {
			*f.dst = trimmed(f.src)
		}
	}

	uploaded, err := e.uploadAll(ctx, u.Assets)
	if err != nil {
		return nil, err
	}
	swap := &assetSwap{uploaded: urlsOf(uploaded)}
	for _, slot := range models.AssetSlots {
		url, ok := uploaded[slot]
		if !ok {
			continue
		}
		if prev := ad.AssetURL(slot); prev != nil && *prev != "" {
			swap.replaced = append(swap.replaced, *prev)
		}
		ad.SetAssetURL(slot, &url)
	}
	return swap, nil
}

// commitUpdate persists ad and then releases the creatives it replaced. If
// the write fails, the freshly uploaded creatives are released instead.
func (e *Engine) commitUpdate(ctx context.Context, ad *models.Ad, swap *assetSwap) (*models.Ad, error) {
	if err := e.repo.Update(ctx, ad); err != nil {
		e.releaseAll(ctx, swap.uploaded)
		return nil, err
	}
	e.releaseAll(ctx, swap.replaced)
	return ad, nil
}

// uploadAll stores every creative. On failure the ones already stored are
// released and the error is returned.
func (e *Engine) uploadAll(ctx context.Context, assets map[models.AssetSlot]Upload) (map[models.AssetSlot]string, error) {
	out := make(map[models.AssetSlot]string, len(assets))
	for _, slot := range models.AssetSlots {
		up, ok := assets[slot]
		if !ok {
			continue
		}
		url, err := e.assets.Upload(ctx, slot, up)
		if err != nil {
			e.releaseAll(ctx, urlsOf(out))
			return nil, fmt.Errorf("upload %s: %w", slot, err)
		}
		out[slot] = url
	}
	return out, nil
}

// releaseAll attempts every release and logs the failures.
func (e *Engine) releaseAll(ctx context.Context, urls []string) {
	var errs []error
	for _, u := range urls {
		if err := e.assets.Release(ctx, u); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", u, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		slog.Warn("failed to release ad creatives", "error", err)
	}
}

func urlsOf(m map[models.AssetSlot]string) []string {
	urls := make([]string, 0, len(m))
	for _, slot := range models.AssetSlots {
		if u, ok := m[slot]; ok {
			urls = append(urls, u)
		}
	}
	return urls
}
