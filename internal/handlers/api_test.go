// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// api_test.go drives the whole API through the router against a live
// PostgreSQL and Valkey. Tests are skipped when either is unavailable.
package handlers_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdir/internal/ads"
	"bizdir/internal/auth"
	"bizdir/internal/businesses"
	"bizdir/internal/cache"
	"bizdir/internal/categories"
	"bizdir/internal/database"
	"bizdir/internal/dispatch"
	"bizdir/internal/events"
	"bizdir/internal/handlers"
	"bizdir/internal/metrics"
	"bizdir/internal/models"
	"bizdir/internal/router"
	"bizdir/internal/session"
	"bizdir/internal/storage"
	"bizdir/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "postgres://" + envOr("POSTGRES_USER", "bizdir") + ":" + envOr("POSTGRES_PASSWORD", "changeme") +
		"@" + envOr("POSTGRES_HOST", "localhost") + ":" + envOr("POSTGRES_PORT", "5432") +
		"/" + envOr("POSTGRES_DB", "bizdir") + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	if err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testValkey(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:     envOr("VALKEY_HOST", "localhost") + ":" + envOr("VALKEY_PORT", "6379"),
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

type apiEnv struct {
	handler http.Handler
	db      *sql.DB
	users   *store.UserStore
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	db := testDB(t)
	vk := testValkey(t)

	tokens, err := auth.NewTokens("integration-secret-0123456789abcdef", "bizdir-test", 15*time.Minute, time.Hour)
	require.NoError(t, err)

	users := store.NewUserStore(db)
	categoryStore := store.NewCategoryStore(db)
	businessStore := store.NewBusinessStore(db)
	assets, err := storage.NewAssets(nil)
	require.NoError(t, err)

	m := metrics.New()
	tasks := dispatch.New(dispatch.Config{Workers: 2, Queue: 64, Timeout: 5 * time.Second}, m)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tasks.Close(ctx)
	})

	engine := ads.NewEngine(store.NewAdStore(db), businessStore, assets, tasks, events.LogPublisher{}, ads.Options{})
	h := router.New(router.Deps{
		Tokens:     tokens,
		Metrics:    m,
		Health:     handlers.NewHealth(map[string]handlers.Check{"postgres": db.PingContext}),
		Auth:       handlers.NewAuth(auth.NewService(users, session.NewStore(vk), tokens, "bizdir-test")),
		Categories: handlers.NewCategories(categories.NewManager(categoryStore), cache.NewCategoryCache(vk, time.Minute)),
		Businesses: handlers.NewBusinesses(businesses.NewService(businessStore, categoryStore)),
		Ads:        handlers.NewAds(engine, m, 5),
	})
	return &apiEnv{handler: h, db: db, users: users}
}

func (e *apiEnv) call(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *apiEnv) form(t *testing.T, method, path, token string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

type loginBody struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

func (e *apiEnv) login(t *testing.T, email, password string) loginBody {
	t.Helper()
	rr := e.call(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[loginBody](t, rr)
}

func TestAPIFlow(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()
	run := uuid.NewString()[:8]

	// Accounts
	adminEmail := "admin-" + run + "@bizdir.test"
	_, err := env.users.Create(ctx, adminEmail, "admin-password", "Admin", models.RoleSystemAdmin)
	require.NoError(t, err)
	admin := env.login(t, adminEmail, "admin-password")

	ownerEmail := "owner-" + run + "@bizdir.test"
	rr := env.call(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": ownerEmail, "password": "owner-password", "display_name": "Owner", "role": "business_owner",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.call(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": ownerEmail, "password": "owner-password", "display_name": "Again",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)

	owner := env.login(t, ownerEmail, "owner-password")
	assert.Equal(t, models.RoleBusinessOwner, owner.User.Role)

	rr = env.call(t, http.MethodGet, "/api/auth/me", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, ownerEmail, decode[models.User](t, rr).Email)

	// Categories
	rr = env.call(t, http.MethodPost, "/api/admin/categories", admin.AccessToken, map[string]any{"name": "Bakeries " + run})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	cat := decode[models.Category](t, rr)
	t.Cleanup(func() { env.db.Exec(`DELETE FROM categories WHERE id = $1`, cat.ID) })

	rr = env.call(t, http.MethodGet, "/api/categories?flat=true", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	found := false
	for _, c := range decode[[]models.Category](t, rr) {
		found = found || c.ID == cat.ID
	}
	assert.True(t, found, "new category should be listed after cache invalidation")

	// Businesses
	rr = env.call(t, http.MethodPost, "/api/owner/businesses", owner.AccessToken, map[string]any{
		"name": "Corner Bakery " + run, "category_id": cat.ID.String(),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	biz := decode[models.Business](t, rr)
	t.Cleanup(func() { env.db.Exec(`DELETE FROM businesses WHERE id = $1`, biz.ID) })

	rr = env.call(t, http.MethodGet, "/api/businesses/"+biz.Slug, "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.call(t, http.MethodDelete, "/api/admin/categories/"+cat.ID.String(), admin.AccessToken, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	// Ads
	start := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	end := time.Now().UTC().AddDate(0, 1, 0).Format("2006-01-02")
	rr = env.form(t, http.MethodPost, "/api/ads", owner.AccessToken, map[string]string{
		"title": "Fresh bread " + run, "banner_type": "sidebar",
		"target_type": "business", "target_id": biz.ID.String(),
		"start_at": start, "end_at": end,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	ad := decode[models.Ad](t, rr)
	assert.Equal(t, models.AdPendingReview, ad.Status)
	assert.False(t, ad.IsActive)

	rr = env.form(t, http.MethodPut, "/api/ads/"+ad.ID.String(), owner.AccessToken, map[string]string{
		"title": "Warm bread " + run, "status": "approved", "priority": "9",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	edited := decode[models.Ad](t, rr)
	assert.Equal(t, "Warm bread "+run, edited.Title)
	assert.Equal(t, models.AdPendingReview, edited.Status)
	assert.Zero(t, edited.Priority)

	rr = env.call(t, http.MethodPatch, "/api/admin/ads/"+ad.ID.String()+"/status", admin.AccessToken, map[string]any{"status": "approved"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	approved := decode[models.Ad](t, rr)
	assert.Equal(t, models.AdApproved, approved.Status)
	assert.True(t, approved.IsActive)

	rr = env.call(t, http.MethodGet, "/api/ads?banner_type=sidebar&limit=10", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.call(t, http.MethodPost, "/api/ads/"+ad.ID.String()+"/click", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(1), decode[map[string]int64](t, rr)["clicks"])

	rr = env.call(t, http.MethodGet, "/api/ads/mine", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode[ads.Page](t, rr).Total)

	rr = env.call(t, http.MethodGet, "/api/admin/ads/export?status=approved", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rr.Header().Get("Content-Type"))

	missing := uuid.New()
	rr = env.call(t, http.MethodPost, "/api/admin/ads/bulk-delete", admin.AccessToken, map[string]any{
		"ids": []string{ad.ID.String(), missing.String()},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	bulk := decode[struct {
		Deleted int `json:"deleted"`
		Results []struct {
			ID      uuid.UUID `json:"id"`
			Deleted bool      `json:"deleted"`
		} `json:"results"`
	}](t, rr)
	assert.Equal(t, 1, bulk.Deleted)
	require.Len(t, bulk.Results, 2)
	assert.True(t, bulk.Results[0].Deleted)
	assert.False(t, bulk.Results[1].Deleted)

	// Refresh rotation: the old refresh token is single use.
	rr = env.call(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": owner.RefreshToken})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = env.call(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": owner.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
