// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bizdir/internal/ads"
	"bizdir/internal/apperr"
	"bizdir/internal/imaging"
	"bizdir/internal/models"
)

const (
	// maxAdBody fits three creatives plus the text fields.
	maxAdBody = 3*imaging.MaxUploadSize + 1<<20

	// multipartMemory is kept in memory before spilling to temp files.
	multipartMemory = 8 << 20
)

// adForm is a parsed ad create/update request. Text fields are looked up
// by presence so an update can tell "absent" from "empty".
type adForm struct {
	values url.Values
	assets map[models.AssetSlot]ads.Upload
}

// parseAdForm reads a multipart (or urlencoded) ad form and validates any
// uploaded creatives.
func parseAdForm(w http.ResponseWriter, r *http.Request) (*adForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAdBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var err error
	switch mediaType {
	case "multipart/form-data":
		err = r.ParseMultipartForm(multipartMemory)
	case "application/x-www-form-urlencoded":
		err = r.ParseForm()
	default:
		return nil, apperr.InvalidInput("invalid_content_type", "Ads are submitted as multipart/form-data.")
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apperr.InvalidInput("body_too_large", "Request body is too large.")
		}
		return nil, apperr.Wrap(apperr.KindInvalidInput, "invalid_form", "Form could not be parsed.", err)
	}

	f := &adForm{values: r.PostForm, assets: map[models.AssetSlot]ads.Upload{}}
	if r.MultipartForm == nil {
		return f, nil
	}
	for _, slot := range models.AssetSlots {
		files := r.MultipartForm.File[string(slot)]
		if len(files) == 0 {
			continue
		}
		fh := files[0]
		file, err := fh.Open()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidInput, "invalid_form", "Uploaded file could not be read.", err)
		}
		data, err := io.ReadAll(io.LimitReader(file, imaging.MaxUploadSize+1))
		file.Close()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidInput, "invalid_form", "Uploaded file could not be read.", err)
		}
		info, err := imaging.Validate(data)
		if err != nil {
			return nil, err
		}
		f.assets[slot] = ads.Upload{Data: data, ContentType: info.ContentType, Filename: fh.Filename}
	}
	return f, nil
}

func (f *adForm) has(key string) bool {
	_, ok := f.values[key]
	return ok
}

func (f *adForm) str(key string) *string {
	vs, ok := f.values[key]
	if !ok || len(vs) == 0 {
		return nil
	}
	v := vs[0]
	return &v
}

func (f *adForm) get(key string) string {
	return f.values.Get(key)
}

func (f *adForm) intField(key string) (*int, error) {
	raw := f.str(key)
	if raw == nil {
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(*raw))
	if err != nil {
		return nil, apperr.InvalidInput("invalid_"+key, key+" must be an integer.")
	}
	return &n, nil
}

func (f *adForm) boolField(key string) (*bool, error) {
	raw := f.str(key)
	if raw == nil {
		return nil, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(*raw))
	if err != nil {
		return nil, apperr.InvalidInput("invalid_"+key, key+" must be true or false.")
	}
	return &b, nil
}

func (f *adForm) draft() ads.Draft {
	return ads.Draft{
		Title:           f.get("title"),
		Content:         f.str("content"),
		CTAText:         f.str("cta_text"),
		CTAURL:          f.str("cta_url"),
		BackgroundColor: f.str("background_color"),
		TextColor:       f.str("text_color"),
		URL:             f.str("url"),
		BannerType:      models.BannerType(strings.TrimSpace(f.get("banner_type"))),
		TargetType:      models.TargetType(strings.TrimSpace(f.get("target_type"))),
		TargetID:        f.get("target_id"),
		StartAt:         f.get("start_at"),
		EndAt:           f.get("end_at"),
		Assets:          f.assets,
	}
}

func (f *adForm) contentUpdate() ads.ContentUpdate {
	u := ads.ContentUpdate{
		Title:           f.str("title"),
		Content:         f.str("content"),
		CTAText:         f.str("cta_text"),
		CTAURL:          f.str("cta_url"),
		BackgroundColor: f.str("background_color"),
		TextColor:       f.str("text_color"),
		URL:             f.str("url"),
		StartAt:         f.str("start_at"),
		EndAt:           f.str("end_at"),
		Assets:          f.assets,
	}
	if raw := f.str("banner_type"); raw != nil {
		bt := models.BannerType(strings.TrimSpace(*raw))
		u.BannerType = &bt
	}
	return u
}

func (f *adForm) adminUpdate() (ads.AdminUpdate, error) {
	u := ads.AdminUpdate{ContentUpdate: f.contentUpdate()}
	var err error
	if u.Priority, err = f.intField("priority"); err != nil {
		return u, err
	}
	if u.IsActive, err = f.boolField("is_active"); err != nil {
		return u, err
	}
	if raw := f.str("target_type"); raw != nil {
		tt := models.TargetType(strings.TrimSpace(*raw))
		u.TargetType = &tt
	}
	u.TargetID = f.str("target_id")
	return u, nil
}

