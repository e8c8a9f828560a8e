// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's permission level in the system.
type Role string

const (
	RoleSystemAdmin   Role = "system_admin"
	RoleBusinessOwner Role = "business_owner"
	RoleUser          Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystemAdmin, RoleBusinessOwner, RoleUser:
		return true
	}
	return false
}

// User represents a platform account with authentication and 2FA fields.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize the hash
	DisplayName  string    `json:"display_name"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	TOTPSecret   *string   `json:"-"` // Nullable; set during 2FA setup
	TOTPEnabled  bool      `json:"totp_enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin returns true if the user has the system admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleSystemAdmin
}

// RequiresTOTP returns true if a login must present a valid TOTP code.
// Only system admins can enrol in 2FA.
func (u *User) RequiresTOTP() bool {
	return u.IsAdmin() && u.TOTPEnabled && u.TOTPSecret != nil
}
