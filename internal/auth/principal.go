// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"context"

	"github.com/google/uuid"

	"bizdir/internal/models"
)

// Principal is the authenticated caller resolved from an access token.
type Principal struct {
	UserID uuid.UUID
	Role   models.Role
}

// IsAdmin reports whether the principal holds the privileged role.
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleSystemAdmin
}

// IsOwner reports whether the principal is a business owner.
func (p Principal) IsOwner() bool {
	return p.Role == models.RoleBusinessOwner
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom extracts the principal stored by WithPrincipal.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
