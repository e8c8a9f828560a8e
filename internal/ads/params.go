// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ads

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"bizdir/internal/apperr"
	"bizdir/internal/models"
)

// Upload is a creative image already validated by the caller.
type Upload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Draft is the input for Create. StartAt and EndAt are raw client values
// accepted in RFC 3339, "2006-01-02T15:04" or "2006-01-02" form.
type Draft struct {
	Title           string
	Content         *string
	CTAText         *string
	CTAURL          *string
	BackgroundColor *string
	TextColor       *string
	URL             *string
	BannerType      models.BannerType
	TargetType      models.TargetType
	TargetID        string
	StartAt         string
	EndAt           string
	Assets          map[models.AssetSlot]Upload
}

// ContentUpdate carries the fields an owner may change. It has no status,
// priority, active or targeting fields, so an owner cannot submit them.
type ContentUpdate struct {
	Title           *string
	Content         *string
	CTAText         *string
	CTAURL          *string
	BackgroundColor *string
	TextColor       *string
	URL             *string
	BannerType      *models.BannerType
	StartAt         *string
	EndAt           *string
	Assets          map[models.AssetSlot]Upload
}

// AdminUpdate extends ContentUpdate with the fields reserved to admins.
// An empty TargetID clears the target.
type AdminUpdate struct {
	ContentUpdate
	Priority   *int
	IsActive   *bool
	TargetType *models.TargetType
	TargetID   *string
}

// Sortable columns for ListAll.
var sortFields = map[string]bool{
	"created_at":  true,
	"priority":    true,
	"clicks":      true,
	"impressions": true,
	"start_at":    true,
	"end_at":      true,
	"title":       true,
}

const (
	defaultPerPage = 20
	maxPerPage     = 100

	// MaxServeLimit caps how many ads a single public query returns.
	MaxServeLimit = 10
)

// ListFilter narrows ListMine and ListAll. Zero values mean "no filter".
type ListFilter struct {
	Status     models.AdStatus
	BannerType models.BannerType
	TargetType models.TargetType
	Search     string
	Sort       string
	Desc       bool
	Page       int
	PerPage    int

	// OwnerID scopes the query to ads targeting businesses of one owner.
	// Set by ListMine, ignored from callers.
	OwnerID *uuid.UUID
}

// Offset returns the row offset of the requested page.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.PerPage
}

// Page is one page of ads plus the total match count.
type Page struct {
	Ads     []models.Ad `json:"ads"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

func (f *ListFilter) normalize() error {
	if f.Status != "" && !f.Status.Valid() {
		return apperr.InvalidInput("invalid_status", "Unknown ad status.")
	}
	if f.BannerType != "" && !f.BannerType.Valid() {
		return apperr.InvalidInput("invalid_banner_type", "Unknown banner type.")
	}
	if f.TargetType != "" && !f.TargetType.Valid() {
		return apperr.InvalidInput("invalid_target_type", "Unknown target type.")
	}
	if f.Sort == "" {
		f.Sort = "created_at"
		f.Desc = true
	}
	if !sortFields[f.Sort] {
		return apperr.InvalidInput("invalid_sort", "Unsupported sort field.")
	}
	f.Search = strings.TrimSpace(f.Search)
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = defaultPerPage
	}
	if f.PerPage > maxPerPage {
		f.PerPage = maxPerPage
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parses a client-supplied timestamp. Values without a zone are
// taken as UTC.
func ParseTime(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apperr.InvalidInput("invalid_"+field, field+" is required.")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperr.InvalidInput("invalid_"+field, field+" is not a valid date.")
}

func checkWindow(start, end time.Time) error {
	if !end.After(start) {
		return apperr.InvalidInput("invalid_window", "end_at must be after start_at.")
	}
	return nil
}

func parseTargetID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperr.InvalidInput("invalid_target_id", "target_id is not a valid identifier.")
	}
	return id, nil
}

// trimmed returns nil for nil or blank values.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
