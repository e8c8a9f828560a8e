// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package auth issues and verifies the JWT access/refresh pair, handles
// TOTP enrolment for system admins, and implements the account flows
// (register, login, refresh, logout) on top of the user store and the
// refresh-session store.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bizdir/internal/apperr"
	"bizdir/internal/models"
)

// Token types carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// minSecretLen is the shortest HMAC secret accepted.
const minSecretLen = 32

// Claims are the JWT claims of both token types. The token ID (jti) of a
// refresh token is the key of its server-side session.
type Claims struct {
	jwt.RegisteredClaims
	Role models.Role `json:"role"`
	Type string      `json:"typ"`
}

// Pair is what login and refresh hand back to clients.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`

	refreshID string
}

// RefreshID returns the jti of the refresh token.
func (p *Pair) RefreshID() string {
	return p.refreshID
}

// Tokens signs and verifies HS256 tokens.
type Tokens struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokens returns a token issuer. The secret must be at least 32 bytes.
func NewTokens(secret, issuer string, accessTTL, refreshTTL time.Duration) (*Tokens, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretLen)
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return &Tokens{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// RefreshTTL is the lifetime of refresh tokens and their sessions.
func (t *Tokens) RefreshTTL() time.Duration {
	return t.refreshTTL
}

// Issue creates a fresh access/refresh pair for a user.
func (t *Tokens) Issue(userID uuid.UUID, role models.Role) (*Pair, error) {
	access, _, err := t.sign(userID, role, TypeAccess, t.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, jti, err := t.sign(userID, role, TypeRefresh, t.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(t.accessTTL.Seconds()),
		refreshID:    jti,
	}, nil
}

func (t *Tokens) sign(userID uuid.UUID, role models.Role, typ string, ttl time.Duration) (string, string, error) {
	now := t.now()
	jti := uuid.NewString()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID.String(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
		Type: typ,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, jti, nil
}

// Parse verifies a token of the wanted type. Every failure is an
// Unauthorized error; expired tokens get their own code so clients know
// to refresh.
func (t *Tokens) Parse(raw, wantType string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apperr.Wrap(apperr.KindUnauthorized, "token_expired", "Token has expired.", err)
	case err != nil:
		return nil, apperr.Wrap(apperr.KindUnauthorized, "invalid_token", "Invalid token.", err)
	}
	if claims.Type != wantType {
		return nil, apperr.Unauthorized("invalid_token_type", "Wrong token type.")
	}
	if claims.ID == "" || !claims.Role.Valid() {
		return nil, apperr.Unauthorized("invalid_token", "Invalid token.")
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, apperr.Unauthorized("invalid_token", "Invalid token.")
	}
	return claims, nil
}

// Principal resolves the caller identity carried by claims.
func (c *Claims) Principal() Principal {
	id, _ := uuid.Parse(c.Subject)
	return Principal{UserID: id, Role: c.Role}
}
