// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"bizdir/internal/apperr"
	"bizdir/internal/models"
	"bizdir/internal/session"
)

// MinPasswordLen is the shortest password accepted at registration.
const MinPasswordLen = 8

// Users is the account storage the service needs.
type Users interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, email, password, displayName string, role models.Role) (*models.User, error)
	CheckPassword(user *models.User, password string) bool
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, id uuid.UUID) error
}

// Sessions stores refresh sessions keyed by refresh token ID.
type Sessions interface {
	Create(ctx context.Context, id string, data *session.Data, ttl time.Duration) error
	Consume(ctx context.Context, id string) (*session.Data, error)
	Destroy(ctx context.Context, id string) error
	DestroyAll(ctx context.Context, userID uuid.UUID) (int, error)
}

// Service implements the account flows.
type Service struct {
	users    Users
	sessions Sessions
	tokens   *Tokens
	issuer   string
}

// NewService wires the account flows. issuer labels TOTP enrolments.
func NewService(users Users, sessions Sessions, tokens *Tokens, issuer string) *Service {
	return &Service{users: users, sessions: sessions, tokens: tokens, issuer: issuer}
}

// Tokens exposes the token verifier used by the HTTP middleware.
func (s *Service) Tokens() *Tokens {
	return s.tokens
}

// RegisterParams is a self-service sign-up.
type RegisterParams struct {
	Email       string
	Password    string
	DisplayName string
	Role        models.Role
}

// Register creates a user or business owner account. System admins are
// never self-registered.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" {
		return nil, apperr.InvalidInput("email_required", "Email is required.")
	}
	if len(p.Password) < MinPasswordLen {
		return nil, apperr.InvalidInput("password_too_short",
			fmt.Sprintf("Password must be at least %d characters.", MinPasswordLen))
	}
	role := p.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleBusinessOwner {
		return nil, apperr.InvalidInput("invalid_role", "Role must be user or business_owner.")
	}
	name := strings.TrimSpace(p.DisplayName)
	if name == "" {
		name = email
	}

	return s.users.Create(ctx, email, p.Password, name, role)
}

// Login verifies credentials (and the TOTP code for enrolled admins) and
// opens a refresh session.
func (s *Service) Login(ctx context.Context, email, password, totpCode string) (*Pair, *models.User, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, nil, fmt.Errorf("login lookup: %w", err)
	}
	if user == nil || !s.users.CheckPassword(user, password) {
		return nil, nil, apperr.Unauthorized("invalid_credentials", "Invalid email or password.")
	}
	if !user.IsActive {
		return nil, nil, apperr.Forbidden("account_disabled", "This account has been disabled.")
	}
	if user.RequiresTOTP() {
		if totpCode == "" {
			return nil, nil, apperr.Unauthorized("totp_required", "A two-factor code is required.")
		}
		if !ValidTOTP(totpCode, *user.TOTPSecret) {
			return nil, nil, apperr.Unauthorized("invalid_totp", "Invalid two-factor code.")
		}
	}

	pair, err := s.openSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("user logged in", "user_id", user.ID, "role", user.Role)
	return pair, user, nil
}

// Refresh rotates a refresh token: the old session is consumed and a new
// pair with a new session is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Pair, error) {
	claims, err := s.tokens.Parse(refreshToken, TypeRefresh)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Consume(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	if sess == nil {
		return nil, apperr.Unauthorized("session_revoked", "Session has ended. Please sign in again.")
	}

	user, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("refresh lookup: %w", err)
	}
	if user == nil {
		return nil, apperr.Unauthorized("session_revoked", "Session has ended. Please sign in again.")
	}
	if !user.IsActive {
		return nil, apperr.Forbidden("account_disabled", "This account has been disabled.")
	}
	return s.openSession(ctx, user)
}

// Logout ends the session of one refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Parse(refreshToken, TypeRefresh)
	if err != nil {
		return err
	}
	return s.sessions.Destroy(ctx, claims.ID)
}

// LogoutAll ends every session of the caller.
func (s *Service) LogoutAll(ctx context.Context, p Principal) (int, error) {
	return s.sessions.DestroyAll(ctx, p.UserID)
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, p Principal) (*models.User, error) {
	user, err := s.users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user_not_found", "User not found.")
	}
	return user, nil
}

// SetupTOTP starts 2FA enrolment for a system admin. Calling it again
// before enabling replaces the pending secret.
func (s *Service) SetupTOTP(ctx context.Context, p Principal) (*TOTPSetup, error) {
	if !p.IsAdmin() {
		return nil, apperr.Forbidden("admin_only", "Only system admins can enrol in two-factor authentication.")
	}
	user, err := s.Me(ctx, p)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, apperr.InvalidOperation("totp_already_enabled", "Two-factor authentication is already enabled.")
	}

	setup, err := NewTOTP(s.issuer, user.Email)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetTOTPSecret(ctx, user.ID, setup.Secret); err != nil {
		return nil, err
	}
	return setup, nil
}

// EnableTOTP confirms enrolment with a code from the authenticator.
func (s *Service) EnableTOTP(ctx context.Context, p Principal, code string) error {
	if !p.IsAdmin() {
		return apperr.Forbidden("admin_only", "Only system admins can enrol in two-factor authentication.")
	}
	user, err := s.Me(ctx, p)
	if err != nil {
		return err
	}
	if user.TOTPEnabled {
		return apperr.InvalidOperation("totp_already_enabled", "Two-factor authentication is already enabled.")
	}
	if user.TOTPSecret == nil {
		return apperr.InvalidOperation("totp_not_setup", "Start two-factor setup first.")
	}
	if !ValidTOTP(code, *user.TOTPSecret) {
		return apperr.InvalidInput("invalid_totp", "Invalid two-factor code.")
	}
	return s.users.EnableTOTP(ctx, user.ID)
}

// ListUsers returns every account. Admin only.
func (s *Service) ListUsers(ctx context.Context, p Principal) ([]models.User, error) {
	if !p.IsAdmin() {
		return nil, apperr.Forbidden("admin_only", "Only system admins can list users.")
	}
	return s.users.List(ctx)
}

// SetUserActive activates or deactivates an account. Deactivation ends
// all of the user's sessions.
func (s *Service) SetUserActive(ctx context.Context, p Principal, id uuid.UUID, active bool) error {
	if !p.IsAdmin() {
		return apperr.Forbidden("admin_only", "Only system admins can manage users.")
	}
	if id == p.UserID && !active {
		return apperr.InvalidOperation("cannot_deactivate_self", "You cannot deactivate your own account.")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return apperr.NotFound("user_not_found", "User not found.")
	}
	if err := s.users.SetActive(ctx, id, active); err != nil {
		return err
	}

	if !active {
		n, err := s.sessions.DestroyAll(ctx, id)
		if err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		slog.Info("user deactivated", "user_id", id, "sessions_revoked", n)
	}
	return nil
}

func (s *Service) openSession(ctx context.Context, user *models.User) (*Pair, error) {
	pair, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	err = s.sessions.Create(ctx, pair.RefreshID(), &session.Data{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	}, s.tokens.RefreshTTL())
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return pair, nil
}
