// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"bizdir/internal/apperr"
	"bizdir/internal/models"
)

func TestUserStoreCreate(t *testing.T) {
	db := testDB(t)
	s := NewUserStore(db)
	ctx := context.Background()

	email := "test-create@store-test.local"
	t.Cleanup(func() { cleanUsers(t, db, email) })

	user, err := s.Create(ctx, email, "testpass123", "Test User", models.RoleBusinessOwner)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if user.ID == uuid.Nil {
		t.Error("expected non-nil UUID")
	}
	if user.Email != email {
		t.Errorf("email: got %q, want %q", user.Email, email)
	}
	if user.Role != models.RoleBusinessOwner {
		t.Errorf("role: got %q, want %q", user.Role, models.RoleBusinessOwner)
	}
	if !user.IsActive {
		t.Error("expected new user to be active")
	}
	if user.TOTPEnabled {
		t.Error("expected totp_enabled=false for new user")
	}
	if user.PasswordHash == "" || user.PasswordHash == "testpass123" {
		t.Error("expected a hashed password")
	}

	// Same email again is a conflict.
	_, err = s.Create(ctx, email, "testpass123", "Again", models.RoleUser)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("duplicate email: got %v, want conflict", err)
	}
}

func TestUserStoreFindByEmail(t *testing.T) {
	db := testDB(t)
	s := NewUserStore(db)
	ctx := context.Background()

	email := "test-findbyemail@store-test.local"
	t.Cleanup(func() { cleanUsers(t, db, email) })

	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		t.Fatalf("FindByEmail (not found): %v", err)
	}
	if user != nil {
		t.Error("expected nil for non-existent user")
	}

	created, err := s.Create(ctx, email, "pass", "Find Me", models.RoleUser)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Lookup is case-insensitive.
	user, err = s.FindByEmail(ctx, "Test-FindByEmail@store-test.local")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if user == nil || user.ID != created.ID {
		t.Fatalf("expected user %s, got %+v", created.ID, user)
	}
}

func TestUserStoreActiveAndTOTP(t *testing.T) {
	db := testDB(t)
	s := NewUserStore(db)
	ctx := context.Background()

	user := mustUser(t, db, "test-totp@store-test.local", models.RoleSystemAdmin)

	if err := s.SetActive(ctx, user.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if err := s.SetActive(ctx, uuid.New(), false); !errors.Is(err, ErrNoRows) {
		t.Errorf("SetActive unknown user: got %v, want ErrNoRows", err)
	}

	if err := s.SetTOTPSecret(ctx, user.ID, "JBSWY3DPEHPK3PXP"); err != nil {
		t.Fatalf("SetTOTPSecret: %v", err)
	}
	if err := s.EnableTOTP(ctx, user.ID); err != nil {
		t.Fatalf("EnableTOTP: %v", err)
	}

	got, _ := s.FindByID(ctx, user.ID)
	if got.IsActive {
		t.Error("expected inactive user")
	}
	if !got.RequiresTOTP() {
		t.Error("expected admin with enabled TOTP to require a code")
	}
}

func TestUserStoreCheckPassword(t *testing.T) {
	s := NewUserStore(nil)
	db := testDB(t)
	user := mustUser(t, db, "test-checkpass@store-test.local", models.RoleUser)

	if !s.CheckPassword(user, "password123") {
		t.Error("expected CheckPassword to return true for correct password")
	}
	if s.CheckPassword(user, "wrong-password") {
		t.Error("expected CheckPassword to return false for wrong password")
	}
	if s.CheckPassword(user, "") {
		t.Error("expected CheckPassword to return false for empty password")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind apperr.Kind
		code string
	}{
		{"email", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, apperr.KindConflict, "duplicate_email"},
		{"slug", &pgconn.PgError{Code: "23505", ConstraintName: "categories_slug_key"}, apperr.KindConflict, "duplicate_slug"},
		{"unknown unique", &pgconn.PgError{Code: "23505", ConstraintName: "x"}, apperr.KindConflict, "duplicate"},
		{"foreign key", &pgconn.PgError{Code: "23503"}, apperr.KindConflict, "still_referenced"},
		{"other pg", &pgconn.PgError{Code: "40001"}, apperr.KindInternal, ""},
		{"plain", errors.New("boom"), apperr.KindInternal, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("op", tt.err)
			if got := apperr.KindOf(err); got != tt.kind {
				t.Fatalf("kind: got %q, want %q", got, tt.kind)
			}
			var ae *apperr.Error
			if tt.code != "" && (!errors.As(err, &ae) || ae.Code != tt.code) {
				t.Errorf("code: got %v, want %q", err, tt.code)
			}
			if !errors.Is(err, tt.err) {
				t.Error("classified error must wrap the cause")
			}
		})
	}
}
