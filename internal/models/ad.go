// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// BannerType is the placement of an ad creative.
type BannerType string

const (
	BannerHero    BannerType = "hero"
	BannerSidebar BannerType = "sidebar"
	BannerPopup   BannerType = "popup"
)

// Valid reports whether b is a known placement.
func (b BannerType) Valid() bool {
	switch b {
	case BannerHero, BannerSidebar, BannerPopup:
		return true
	}
	return false
}

// TargetType is what an ad promotes.
type TargetType string

const (
	TargetBusiness TargetType = "business"
	TargetListing  TargetType = "listing"
	TargetCategory TargetType = "category"
	TargetExternal TargetType = "external"
)

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool {
	switch t {
	case TargetBusiness, TargetListing, TargetCategory, TargetExternal:
		return true
	}
	return false
}

// AdStatus is the moderation state of an ad.
type AdStatus string

const (
	AdPendingReview AdStatus = "pending_review"
	AdApproved      AdStatus = "approved"
	AdRejected      AdStatus = "rejected"
)

// Valid reports whether s is a known moderation state.
func (s AdStatus) Valid() bool {
	switch s {
	case AdPendingReview, AdApproved, AdRejected:
		return true
	}
	return false
}

// AssetSlot names one of the creative images an ad can carry.
type AssetSlot string

const (
	SlotPrimary AssetSlot = "image"
	SlotMobile  AssetSlot = "mobile_image"
	SlotTablet  AssetSlot = "tablet_image"
)

// AssetSlots lists every creative slot in a stable order.
var AssetSlots = []AssetSlot{SlotPrimary, SlotMobile, SlotTablet}

// Ad is a promotional creative shown on public pages once approved.
type Ad struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Content         *string    `json:"content,omitempty"`
	ImageURL        *string    `json:"image_url,omitempty"`
	MobileImageURL  *string    `json:"mobile_image_url,omitempty"`
	TabletImageURL  *string    `json:"tablet_image_url,omitempty"`
	CTAText         *string    `json:"cta_text,omitempty"`
	CTAURL          *string    `json:"cta_url,omitempty"`
	BackgroundColor *string    `json:"background_color,omitempty"`
	TextColor       *string    `json:"text_color,omitempty"`
	BannerType      BannerType `json:"banner_type"`
	TargetType      TargetType `json:"target_type"`
	TargetID        *uuid.UUID `json:"target_id,omitempty"`
	URL             *string    `json:"url,omitempty"`
	StartAt         time.Time  `json:"start_at"`
	EndAt           time.Time  `json:"end_at"`
	Status          AdStatus   `json:"status"`
	IsActive        bool       `json:"is_active"`
	Priority        int        `json:"priority"`
	Clicks          int64      `json:"clicks"`
	Impressions     int64      `json:"impressions"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	CreatedBy       uuid.UUID  `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// EligibleAt reports whether the ad may be shown publicly at now:
// approved, active, and now within [StartAt, EndAt]. It mirrors the WHERE
// clause of store.AdStore.ListEligible, which is what serving uses; keep
// the two in step. In-memory repositories filter with it.
func (a *Ad) EligibleAt(now time.Time) bool {
	return a.Status == AdApproved &&
		a.IsActive &&
		!now.Before(a.StartAt) &&
		!now.After(a.EndAt)
}

// AssetURL returns the stored URL for a creative slot.
func (a *Ad) AssetURL(slot AssetSlot) *string {
	switch slot {
	case SlotPrimary:
		return a.ImageURL
	case SlotMobile:
		return a.MobileImageURL
	case SlotTablet:
		return a.TabletImageURL
	}
	return nil
}

// SetAssetURL replaces the stored URL for a creative slot.
func (a *Ad) SetAssetURL(slot AssetSlot, url *string) {
	switch slot {
	case SlotPrimary:
		a.ImageURL = url
	case SlotMobile:
		a.MobileImageURL = url
	case SlotTablet:
		a.TabletImageURL = url
	}
}

// AssetURLs returns every non-empty creative URL attached to the ad.
func (a *Ad) AssetURLs() []string {
	var urls []string
	for _, slot := range AssetSlots {
		if u := a.AssetURL(slot); u != nil && *u != "" {
			urls = append(urls, *u)
		}
	}
	return urls
}
