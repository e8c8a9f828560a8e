// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"

	"bizdir/internal/auth"
	"bizdir/internal/models"
)

// Auth handles registration, login, token rotation and admin 2FA.
type Auth struct {
	svc *auth.Service
}

// NewAuth creates a new Auth handler group.
func NewAuth(svc *auth.Service) *Auth {
	return &Auth{svc: svc}
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,max=72"`
	DisplayName string `json:"display_name" validate:"required,max=100"`
	Role        string `json:"role" validate:"omitempty,oneof=user business_owner"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	TOTPCode string `json:"totp_code" validate:"omitempty,len=6,numeric"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type totpRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

type loginResponse struct {
	*auth.Pair
	User *models.User `json:"user"`
}

// Register creates a user or business_owner account.
func (a *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := a.svc.Register(r.Context(), auth.RegisterParams{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        models.Role(req.Role),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("user registered", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusCreated, user)
}

// Login exchanges credentials (and a TOTP code for enrolled admins) for
// an access/refresh token pair.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	pair, user, err := a.svc.Login(r.Context(), req.Email, req.Password, req.TOTPCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Pair: pair, User: user})
}

// Refresh rotates a refresh token into a new pair.
func (a *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	pair, err := a.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Logout revokes one refresh session.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.svc.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll revokes every refresh session of the caller.
func (a *Auth) LogoutAll(w http.ResponseWriter, r *http.Request) {
	n, err := a.svc.LogoutAll(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"revoked": n})
}

// Me returns the caller's account.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	user, err := a.svc.Me(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// SetupTOTP starts 2FA enrolment and returns the secret and QR code.
func (a *Auth) SetupTOTP(w http.ResponseWriter, r *http.Request) {
	setup, err := a.svc.SetupTOTP(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setup)
}

// EnableTOTP confirms enrolment with a code from the authenticator app.
func (a *Auth) EnableTOTP(w http.ResponseWriter, r *http.Request) {
	var req totpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := principal(r)
	if err := a.svc.EnableTOTP(r.Context(), p, req.Code); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("2fa enabled", "user_id", p.UserID)
	writeJSON(w, http.StatusOK, map[string]bool{"totp_enabled": true})
}

// --- Admin user management ---

type activeRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// ListUsers returns every account. Admin only.
func (a *Auth) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.svc.ListUsers(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// SetUserActive activates or deactivates an account. Admin only.
func (a *Auth) SetUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req activeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := principal(r)
	if err := a.svc.SetUserActive(r.Context(), p, id, *req.IsActive); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("user activation changed", "user_id", id, "active", *req.IsActive, "by", p.UserID)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_active": *req.IsActive})
}
