// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdir/internal/apperr"
	"bizdir/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestTokens(t *testing.T) *Tokens {
	t.Helper()
	tk, err := NewTokens(testSecret, "bizdir-test", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)
	return tk
}

func TestNewTokensValidation(t *testing.T) {
	_, err := NewTokens("short", "x", time.Minute, time.Hour)
	assert.Error(t, err)

	_, err = NewTokens(testSecret, "x", 0, time.Hour)
	assert.Error(t, err)
}

func TestIssueAndParse(t *testing.T) {
	tk := newTestTokens(t)
	userID := uuid.New()

	pair, err := tk.Issue(userID, models.RoleBusinessOwner)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(900), pair.ExpiresIn)
	assert.NotEmpty(t, pair.RefreshID())

	access, err := tk.Parse(pair.AccessToken, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: userID, Role: models.RoleBusinessOwner}, access.Principal())

	refresh, err := tk.Parse(pair.RefreshToken, TypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshID(), refresh.ID)
	assert.NotEqual(t, access.ID, refresh.ID)
}

func TestParseRejects(t *testing.T) {
	tk := newTestTokens(t)
	pair, err := tk.Issue(uuid.New(), models.RoleUser)
	require.NoError(t, err)

	other, err := NewTokens(strings.Repeat("z", 32), "bizdir-test", time.Minute, time.Hour)
	require.NoError(t, err)
	foreign, err := other.Issue(uuid.New(), models.RoleUser)
	require.NoError(t, err)

	wrongIssuer, err := NewTokens(testSecret, "someone-else", time.Minute, time.Hour)
	require.NoError(t, err)
	otherIss, err := wrongIssuer.Issue(uuid.New(), models.RoleUser)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "x", Subject: uuid.NewString(), Issuer: "bizdir-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Role: models.RoleSystemAdmin, Type: TypeAccess,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		typ   string
		code  string
	}{
		{"garbage", "not.a.jwt", TypeAccess, "invalid_token"},
		{"refresh used as access", pair.RefreshToken, TypeAccess, "invalid_token_type"},
		{"access used as refresh", pair.AccessToken, TypeRefresh, "invalid_token_type"},
		{"foreign signature", foreign.AccessToken, TypeAccess, "invalid_token"},
		{"wrong issuer", otherIss.AccessToken, TypeAccess, "invalid_token"},
		{"alg none", none, TypeAccess, "invalid_token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tk.Parse(tt.token, tt.typ)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
			code, _ := apperr.Public(err)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestParseExpired(t *testing.T) {
	tk := newTestTokens(t)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tk.now = func() time.Time { return issued }
	pair, err := tk.Issue(uuid.New(), models.RoleUser)
	require.NoError(t, err)

	tk.now = func() time.Time { return issued.Add(16 * time.Minute) }
	_, err = tk.Parse(pair.AccessToken, TypeAccess)
	code, _ := apperr.Public(err)
	assert.Equal(t, "token_expired", code)

	// The refresh token outlives the access token.
	_, err = tk.Parse(pair.RefreshToken, TypeRefresh)
	assert.NoError(t, err)
}

func TestTOTPSetup(t *testing.T) {
	setup, err := NewTOTP("bizdir", "admin@bizdir.local")
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.URL, "otpauth://totp/")
	assert.NotEmpty(t, setup.QRCode)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	assert.True(t, ValidTOTP(code, setup.Secret))
	assert.False(t, ValidTOTP("", setup.Secret))
	assert.False(t, ValidTOTP("000000x", setup.Secret))
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)

	p := Principal{UserID: uuid.New(), Role: models.RoleSystemAdmin}
	got, ok := PrincipalFrom(WithPrincipal(context.Background(), p))
	require.True(t, ok)
	assert.Equal(t, p, got)
	assert.True(t, got.IsAdmin())
	assert.False(t, got.IsOwner())
}
