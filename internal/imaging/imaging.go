// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging validates uploaded ad creatives. It sniffs the real
// content type from the bytes (the client-supplied header is ignored),
// enforces a size limit, and decodes only the image header to cap the
// pixel count before anything is written to storage.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"net/http"

	_ "golang.org/x/image/webp" // register WebP decoder

	"bizdir/internal/apperr"
)

const (
	// MaxUploadSize is the largest creative accepted, in bytes.
	MaxUploadSize = 5 << 20

	// MaxPixels caps width*height to reject decompression bombs.
	MaxPixels = 40_000_000
)

// allowedTypes lists the sniffed content types accepted for creatives.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Info describes a validated creative.
type Info struct {
	ContentType string
	Width       int
	Height      int
}

// Validate checks data and returns its sniffed type and dimensions.
// All failures are InvalidInput errors.
func Validate(data []byte) (*Info, error) {
	if len(data) == 0 {
		return nil, apperr.InvalidInput("empty_image", "Uploaded image is empty.")
	}
	if len(data) > MaxUploadSize {
		return nil, apperr.InvalidInput("image_too_large",
			fmt.Sprintf("Image exceeds the %d MB limit.", MaxUploadSize>>20))
	}

	contentType := http.DetectContentType(data)
	if !allowedTypes[contentType] {
		return nil, apperr.InvalidInput("invalid_image_type",
			"Only JPEG, PNG, GIF and WebP images are accepted.")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "invalid_image", "Image could not be decoded.", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, apperr.InvalidInput("invalid_image", "Image has no pixels.")
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return nil, apperr.InvalidInput("image_too_large", "Image dimensions are too large.")
	}

	return &Info{ContentType: contentType, Width: cfg.Width, Height: cfg.Height}, nil
}
