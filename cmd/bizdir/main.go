// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the bizdir API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bizdir/internal/ads"
	"bizdir/internal/auth"
	"bizdir/internal/businesses"
	"bizdir/internal/cache"
	"bizdir/internal/categories"
	"bizdir/internal/config"
	"bizdir/internal/database"
	"bizdir/internal/dispatch"
	"bizdir/internal/events"
	"bizdir/internal/handlers"
	"bizdir/internal/logging"
	"bizdir/internal/metrics"
	"bizdir/internal/middleware"
	"bizdir/internal/router"
	"bizdir/internal/session"
	"bizdir/internal/storage"
	"bizdir/internal/store"
)

// publisher is the notifier handed to the ad engine.
type publisher interface {
	ads.Notifier
	io.Closer
}

func main() {
	// Load configuration from environment variables (and .env in development).
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logCloser := logging.Setup(logging.Options{
		Level:      cfg.LogLevel,
		JSON:       !cfg.IsDev(),
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	defer logCloser.Close()

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	// Connect to PostgreSQL.
	db, err := database.Connect(startCtx, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(startCtx, db); err != nil {
		return err
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(startCtx, db); err != nil {
			return err
		}
	}

	// Valkey backs refresh sessions and the category cache.
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		return err
	}
	defer valkeyClient.Close()

	userStore := store.NewUserStore(db)
	categoryStore := store.NewCategoryStore(db)
	businessStore := store.NewBusinessStore(db)
	adStore := store.NewAdStore(db)

	// S3-compatible object storage is optional; uploads fail without it.
	storageClient, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
	if err != nil {
		return err
	}
	if storageClient != nil {
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("s3 storage not configured, ad uploads disabled")
	}
	assets, err := storage.NewAssets(storageClient)
	if err != nil {
		return err
	}

	var pub publisher = events.LogPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAdTopic)
		slog.Info("kafka publisher enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAdTopic)
	}

	m := metrics.New()
	dispatcher := dispatch.New(dispatch.Config{
		Workers: cfg.DispatchWorkers,
		Queue:   cfg.DispatchQueue,
		Timeout: 10 * time.Second,
	}, m)

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		return err
	}
	authService := auth.NewService(userStore, session.NewStore(valkeyClient), tokens, cfg.JWTIssuer)
	categoryManager := categories.NewManager(categoryStore)
	businessService := businesses.NewService(businessStore, categoryStore)
	adEngine := ads.NewEngine(adStore, businessStore, assets, dispatcher, pub, ads.Options{
		RereviewOnOwnerEdit: cfg.AdRereviewOnOwnerEdit,
		Impressions:         m.AdImpressions,
	})

	var limiter *middleware.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
		defer limiter.Stop()
	}

	r := router.New(router.Deps{
		Tokens:      tokens,
		Metrics:     m,
		RateLimiter: limiter,
		Health: handlers.NewHealth(map[string]handlers.Check{
			"postgres": db.PingContext,
			"valkey": func(ctx context.Context) error {
				return valkeyClient.Ping(ctx).Err()
			},
		}),
		Auth:       handlers.NewAuth(authService),
		Categories: handlers.NewCategories(categoryManager, cache.NewCategoryCache(valkeyClient, cache.DefaultCategoryTTL)),
		Businesses: handlers.NewBusinesses(businessService),
		Ads:        handlers.NewAds(adEngine, m, cfg.AdServeLimit),
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second, // multipart ad uploads
		WriteTimeout: 60 * time.Second, // xlsx exports
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-serveErr:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	// Background tasks still need the database, so drain them before the
	// deferred closes run.
	if err := dispatcher.Close(ctx); err != nil {
		slog.Warn("background tasks abandoned", "error", err)
	}
	if err := pub.Close(); err != nil {
		slog.Warn("closing event publisher", "error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
