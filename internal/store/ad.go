// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"bizdir/internal/ads"
	"bizdir/internal/models"
)

// AdStore manages ads in the database.
type AdStore struct {
	db *sql.DB
}

// NewAdStore returns a new AdStore.
func NewAdStore(db *sql.DB) *AdStore {
	return &AdStore{db: db}
}

const adColumns = `id, title, content, image_url, mobile_image_url, tablet_image_url,
	cta_text, cta_url, background_color, text_color, banner_type, target_type, target_id, url,
	start_at, end_at, status, is_active, priority, clicks, impressions, rejection_reason,
	created_by, created_at, updated_at`

// adSortColumns maps sort keys to SQL columns. Keys outside the map never
// reach the query.
var adSortColumns = map[string]string{
	"created_at":  "created_at",
	"priority":    "priority",
	"clicks":      "clicks",
	"impressions": "impressions",
	"start_at":    "start_at",
	"end_at":      "end_at",
	"title":       "lower(title)",
}

func scanAd(scanner interface{ Scan(...any) error }) (*models.Ad, error) {
	var a models.Ad
	err := scanner.Scan(
		&a.ID, &a.Title, &a.Content, &a.ImageURL, &a.MobileImageURL, &a.TabletImageURL,
		&a.CTAText, &a.CTAURL, &a.BackgroundColor, &a.TextColor, &a.BannerType, &a.TargetType, &a.TargetID, &a.URL,
		&a.StartAt, &a.EndAt, &a.Status, &a.IsActive, &a.Priority, &a.Clicks, &a.Impressions, &a.RejectionReason,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByID retrieves an ad by ID. Returns nil if not found.
func (s *AdStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Ad, error) {
	a, err := scanAd(s.db.QueryRowContext(ctx, `SELECT `+adColumns+` FROM ads WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find ad by id: %w", err)
	}
	return a, nil
}

// Create inserts a new ad and returns it with its generated fields.
func (s *AdStore) Create(ctx context.Context, a *models.Ad) (*models.Ad, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO ads (
			title, content, image_url, mobile_image_url, tablet_image_url,
			cta_text, cta_url, background_color, text_color, banner_type, target_type, target_id, url,
			start_at, end_at, status, is_active, priority, rejection_reason, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING `+adColumns,
		a.Title, a.Content, a.ImageURL, a.MobileImageURL, a.TabletImageURL,
		a.CTAText, a.CTAURL, a.BackgroundColor, a.TextColor, a.BannerType, a.TargetType, a.TargetID, a.URL,
		a.StartAt, a.EndAt, a.Status, a.IsActive, a.Priority, a.RejectionReason, a.CreatedBy,
	)
	created, err := scanAd(row)
	if err != nil {
		return nil, classify("create ad", err)
	}
	return created, nil
}

// Update writes every mutable column except the counters, which only the
// increment methods touch.
func (s *AdStore) Update(ctx context.Context, a *models.Ad) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ads SET
			title = $1, content = $2, image_url = $3, mobile_image_url = $4, tablet_image_url = $5,
			cta_text = $6, cta_url = $7, background_color = $8, text_color = $9,
			banner_type = $10, target_type = $11, target_id = $12, url = $13,
			start_at = $14, end_at = $15, status = $16, is_active = $17, priority = $18,
			rejection_reason = $19, updated_at = NOW()
		WHERE id = $20
	`,
		a.Title, a.Content, a.ImageURL, a.MobileImageURL, a.TabletImageURL,
		a.CTAText, a.CTAURL, a.BackgroundColor, a.TextColor,
		a.BannerType, a.TargetType, a.TargetID, a.URL,
		a.StartAt, a.EndAt, a.Status, a.IsActive, a.Priority,
		a.RejectionReason, a.ID,
	)
	if err != nil {
		return classify("update ad", err)
	}
	return requireRow(res, "update ad")
}

// Delete removes an ad by ID.
func (s *AdStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ads WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete ad: %w", err)
	}
	return nil
}

// IncrementClicks adds one click in a single statement so concurrent calls
// never lose an update. found is false when the ad does not exist.
func (s *AdStore) IncrementClicks(ctx context.Context, id uuid.UUID) (int64, bool, error) {
	var clicks int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE ads SET clicks = clicks + 1 WHERE id = $1 RETURNING clicks
	`, id).Scan(&clicks)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("increment ad clicks: %w", err)
	}
	return clicks, true, nil
}

// IncrementImpressions adds one impression to each listed ad.
func (s *AdStore) IncrementImpressions(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE ads SET impressions = impressions + 1 WHERE id = ANY($1::uuid[])
	`, strs)
	if err != nil {
		return fmt.Errorf("increment ad impressions: %w", err)
	}
	return nil
}

// ListEligible returns approved, active ads whose window contains now,
// highest priority first and newest first among equals.
func (s *AdStore) ListEligible(ctx context.Context, now time.Time, banner models.BannerType, limit int) ([]models.Ad, error) {
	return s.queryAds(ctx, "list eligible ads", `
		SELECT `+adColumns+` FROM ads
		WHERE status = 'approved' AND is_active
		  AND start_at <= $1 AND end_at >= $1
		  AND ($2::text = '' OR banner_type = $2::text)
		ORDER BY priority DESC, created_at DESC
		LIMIT $3
	`, now, string(banner), limit)
}

// List returns one page of ads matching f plus the total match count.
func (s *AdStore) List(ctx context.Context, f ads.ListFilter) ([]models.Ad, int, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.OwnerID != nil {
		conds = append(conds, "target_type = 'business' AND target_id IN (SELECT id FROM businesses WHERE owner_id = "+arg(*f.OwnerID)+")")
	}
	if f.Status != "" {
		conds = append(conds, "status = "+arg(string(f.Status)))
	}
	if f.BannerType != "" {
		conds = append(conds, "banner_type = "+arg(string(f.BannerType)))
	}
	if f.TargetType != "" {
		conds = append(conds, "target_type = "+arg(string(f.TargetType)))
	}
	if f.Search != "" {
		conds = append(conds, "title ILIKE "+arg("%"+escapeLike(f.Search)+"%"))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ads`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ads: %w", err)
	}

	col, ok := adSortColumns[f.Sort]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	perPage := f.PerPage
	if perPage < 1 {
		perPage = 20
	}
	offset := f.Offset()
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + adColumns + ` FROM ads` + where +
		` ORDER BY ` + col + ` ` + dir + `, id LIMIT ` + arg(perPage) + ` OFFSET ` + arg(offset)
	items, err := s.queryAds(ctx, "list ads", query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *AdStore) queryAds(ctx context.Context, op, query string, args ...any) ([]models.Ad, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := []models.Ad{}
	for rows.Next() {
		a, err := scanAd(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ad: %w", err)
		}
		items = append(items, *a)
	}
	return items, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
