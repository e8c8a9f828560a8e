// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	nanoid "github.com/jaevor/go-nanoid"

	"bizdir/internal/ads"
	"bizdir/internal/apperr"
	"bizdir/internal/models"
)

// extensions maps accepted creative content types to file extensions.
var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Assets stores ad creatives under ads/<slot>/<yyyy>/<mm>/<id><ext>.
type Assets struct {
	client *Client
	newID  func() string
	now    func() time.Time
}

// NewAssets returns an Assets backed by client. A nil client yields an
// Assets that refuses uploads and ignores releases.
func NewAssets(client *Client) (*Assets, error) {
	gen, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("init asset id generator: %w", err)
	}
	return &Assets{client: client, newID: gen, now: time.Now}, nil
}

// Upload stores one creative and returns its public URL.
func (a *Assets) Upload(ctx context.Context, slot models.AssetSlot, u ads.Upload) (string, error) {
	if a.client == nil {
		return "", apperr.InvalidOperation("storage_unavailable", "File storage is not configured.")
	}
	ext, ok := extensions[u.ContentType]
	if !ok {
		return "", apperr.InvalidInput("invalid_image_type", "Unsupported image type.")
	}

	now := a.now().UTC()
	key := fmt.Sprintf("ads/%s/%04d/%02d/%s%s", slot, now.Year(), now.Month(), a.newID(), ext)
	if err := a.client.Upload(ctx, key, u.ContentType, u.Data); err != nil {
		return "", err
	}
	return a.client.FileURL(key), nil
}

// Release deletes the object behind url. URLs that do not belong to the
// bucket are left alone.
func (a *Assets) Release(ctx context.Context, url string) error {
	if a.client == nil || url == "" {
		return nil
	}
	key, ok := a.client.ExtractS3Key(url)
	if !ok {
		slog.Warn("not releasing foreign asset url", "url", url)
		return nil
	}
	return a.client.Delete(ctx, key)
}
