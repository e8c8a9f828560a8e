// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package session

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// testValkeyClient returns a Redis client connected to the test Valkey.
// Skips the test if Valkey is unavailable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15, // Use DB 15 for tests to isolate from dev data.
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		for _, pattern := range []string{keyPrefix + "*", userPrefix + "*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestSessionCreateAndGet(t *testing.T) {
	store := NewStore(testValkeyClient(t))
	ctx := context.Background()

	data := &Data{UserID: uuid.New(), Email: "test@session.local", Role: "business_owner"}
	if err := store.Create(ctx, "jti-1", data, time.Minute); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(ctx, "jti-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected session data, got nil")
	}
	if got.UserID != data.UserID || got.Email != data.Email || got.Role != data.Role {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, data)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestSessionCreateEmptyID(t *testing.T) {
	store := NewStore(testValkeyClient(t))
	if err := store.Create(context.Background(), "", &Data{UserID: uuid.New()}, time.Minute); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestSessionGetMissing(t *testing.T) {
	store := NewStore(testValkeyClient(t))

	data, err := store.Get(context.Background(), "nonexistent-session-id")
	if err != nil {
		t.Fatalf("Get (missing): %v", err)
	}
	if data != nil {
		t.Error("expected nil for nonexistent session")
	}
}

func TestSessionConsumeOnce(t *testing.T) {
	store := NewStore(testValkeyClient(t))
	ctx := context.Background()

	if err := store.Create(ctx, "jti-once", &Data{UserID: uuid.New()}, time.Minute); err != nil {
		t.Fatalf("Create: %v", err)
	}

	const n = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := store.Consume(ctx, "jti-once")
			if err != nil {
				t.Errorf("Consume: %v", err)
				return
			}
			if data != nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one successful consume, got %d", wins)
	}
}

func TestSessionDestroy(t *testing.T) {
	store := NewStore(testValkeyClient(t))
	ctx := context.Background()

	if err := store.Create(ctx, "jti-destroy", &Data{UserID: uuid.New()}, time.Minute); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Destroy(ctx, "jti-destroy"); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if got, _ := store.Get(ctx, "jti-destroy"); got != nil {
		t.Error("expected nil after destroy")
	}

	// Destroying twice is harmless.
	if err := store.Destroy(ctx, "jti-destroy"); err != nil {
		t.Errorf("Destroy (missing): %v", err)
	}
}

func TestSessionDestroyAll(t *testing.T) {
	client := testValkeyClient(t)
	store := NewStore(client)
	ctx := context.Background()

	user, other := uuid.New(), uuid.New()
	for _, id := range []string{"a", "b", "c"} {
		if err := store.Create(ctx, "all-"+id, &Data{UserID: user}, time.Minute); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := store.Create(ctx, "other", &Data{UserID: other}, time.Minute); err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := store.DestroyAll(ctx, user)
	if err != nil {
		t.Fatalf("DestroyAll: %v", err)
	}
	if n != 3 {
		t.Errorf("removed %d sessions, want 3", n)
	}
	for _, id := range []string{"all-a", "all-b", "all-c"} {
		if got, _ := store.Get(ctx, id); got != nil {
			t.Errorf("session %s survived DestroyAll", id)
		}
	}
	if got, _ := store.Get(ctx, "other"); got == nil {
		t.Error("another user's session was removed")
	}
	if exists, _ := client.Exists(ctx, userPrefix+user.String()).Result(); exists != 0 {
		t.Error("expected the user index to be removed")
	}
}

func TestSessionExpiry(t *testing.T) {
	store := NewStore(testValkeyClient(t))
	ctx := context.Background()

	if err := store.Create(ctx, "jti-expire", &Data{UserID: uuid.New()}, 100*time.Millisecond); err != nil {
		t.Fatalf("Create: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	if got, _ := store.Get(ctx, "jti-expire"); got != nil {
		t.Error("expected session to expire")
	}
}
