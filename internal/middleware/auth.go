// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"slices"
	"strings"

	"bizdir/internal/apperr"
	"bizdir/internal/auth"
	"bizdir/internal/models"
)

// Authenticate resolves a Bearer access token into an auth.Principal and
// stores it in the request context. Requests without an Authorization
// header pass through anonymously; a header that is present but invalid
// is rejected with 401 so clients learn to refresh.
func Authenticate(tokens *auth.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, raw, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
				writeError(w, http.StatusUnauthorized, "invalid_token", "Authorization header must be a Bearer token.")
				return
			}

			claims, err := tokens.Parse(strings.TrimSpace(raw), auth.TypeAccess)
			if err != nil {
				code, msg := apperr.Public(err)
				writeError(w, apperr.HTTPStatus(apperr.KindOf(err)), code, msg)
				return
			}

			ctx := auth.WithPrincipal(r.Context(), claims.Principal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
// Must be applied after Authenticate in the middleware chain.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.PrincipalFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "authentication_required", "Authentication required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole allows only principals holding one of roles. Anonymous
// requests get 401, other roles get 403.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication_required", "Authentication required.")
				return
			}
			if !slices.Contains(roles, p.Role) {
				writeError(w, http.StatusForbidden, "forbidden", "You do not have access to this resource.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
