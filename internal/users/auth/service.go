// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/ctxutil"
	"github.com/taibuivan/vidora/internal/platform/metrics"
	"github.com/taibuivan/vidora/internal/platform/sec"
	"github.com/taibuivan/vidora/internal/platform/validate"
)

// # Contracts & Types

// TokenIssuer defines the contract for minting and verifying session tokens.
// Satisfied by [*sec.TokenIssuer].
type TokenIssuer interface {
	IssueAccess(claims sec.Claims) (sec.IssuedToken, error)
	IssueRefresh(claims sec.Claims) (sec.IssuedToken, error)
	Verify(token string, kind sec.TokenKind) (*sec.TokenClaims, error)
}

// SessionPolicy holds the configurable revocation behaviour.
type SessionPolicy struct {
	// RevokeOnPasswordChange clears the active session after a password change.
	RevokeOnPasswordChange bool
	// RevokeOnReuse clears the active session when a stale refresh token is presented.
	RevokeOnReuse bool
}

// ServiceConfig carries the optional collaborators of [Service].
type ServiceConfig struct {
	Policy  SessionPolicy
	Locker  RefreshLocker
	Metrics *metrics.Metrics
}

// Service is the session manager: Login, Refresh, Logout and ChangePassword.
//
// # Invariant
//
// A user has at most one live refresh token: the one whose hash is stored on
// the user record. Login overwrites it, Refresh swaps it with a compare-and-set,
// Logout clears it.
type Service struct {
	credentials *CredentialStore
	issuer      TokenIssuer
	locker      RefreshLocker
	policy      SessionPolicy
	metrics     *metrics.Metrics
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(credentials *CredentialStore, issuer TokenIssuer, config ServiceConfig) *Service {
	return &Service{
		credentials: credentials,
		issuer:      issuer,
		locker:      config.Locker,
		policy:      config.Policy,
		metrics:     config.Metrics,
	}
}

// TokenPair is a freshly minted access/refresh token pair.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
// Either UserName or Email identifies the account.
type LoginInput struct {
	UserName string
	Email    string
	Password string
}

// LoginResult represents a successfully established session.
type LoginResult struct {
	TokenPair
	User PublicUser `json:"user"`
}

/*
Login validates user credentials and issues a session.

Description: Resolves the account by userName, then email; compares the
password in constant time; mints a token pair and persists the refresh hash
before anything is returned to the caller.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginResult: Tokens and the public user view
  - error: ValidationError, NotFound, InvalidCredentials or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginResult, error) {
	result, err := service.login(context, input)
	if err != nil {
		service.metrics.RecordLogin(metrics.OutcomeFailure)
		return nil, err
	}
	service.metrics.RecordLogin(metrics.OutcomeSuccess)
	return result, nil
}

func (service *Service) login(context context.Context, input LoginInput) (*LoginResult, error) {
	validator := &validate.Validator{}
	validator.Custom(FieldUserName, input.UserName == "" && input.Email == "", "Username or email is required").
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	user, err := service.credentials.FindByIdentifier(context, input.UserName, input.Email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
	}

	if !service.credentials.VerifyPassword(user, input.Password) {
		return nil, apperr.InvalidCredentials("Invalid user credentials")
	}

	pair, refreshHash, err := service.mintPair(user)
	if err != nil {
		return nil, err
	}

	// Persist before responding: the client must never hold a token the store does not know.
	if err := service.credentials.SetRefreshHash(context, user.ID, refreshHash); err != nil {
		return nil, fmt.Errorf("auth_service_login_persist_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "user_logged_in", slog.String("user_id", user.ID))

	return &LoginResult{TokenPair: *pair, User: user.Public()}, nil
}

// # Session Management

/*
Refresh implements refresh token rotation.

Description: The token is verified first (signature, kind, expiry). The stored
hash is then compared; a mismatch means the token was already rotated away and
is reported as REUSE_DETECTED. On a match a new pair is minted and the stored
hash swapped with a compare-and-set, so of two concurrent refreshes with the
same token exactly one wins.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *TokenPair: New session credentials
  - error: TokenExpired, TokenInvalid, SessionRevoked, ReuseDetected or internal failures
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (*TokenPair, error) {
	pair, err := service.refresh(context, refreshToken)
	if err != nil {
		result := string(apperr.CodeInternal)
		if appErr := apperr.As(err); appErr != nil {
			result = string(appErr.Code)
		}
		service.metrics.RecordRefresh(result)
		return nil, err
	}
	service.metrics.RecordRefresh(refreshRotated)
	return pair, nil
}

func (service *Service) refresh(context context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, apperr.Unauthorized("Refresh token is required")
	}

	claims, err := service.issuer.Verify(refreshToken, sec.KindRefresh)
	if err != nil {
		return nil, err
	}
	userID := claims.UserID()
	logger := ctxutil.GetLogger(context).With(slog.String("user_id", userID))

	if service.locker != nil {
		unlock, err := service.locker.Lock(context, userID)
		if errors.Is(err, ErrRefreshInFlight) {
			logger.WarnContext(context, "session_refresh_contended")
			return nil, apperr.ReuseDetected("Refresh token is already being used")
		}
		if err != nil {
			return nil, fmt.Errorf("auth_service_refresh_lock_failed: %w", err)
		}
		defer unlock()
	}

	user, err := service.credentials.FindByID(context, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.SessionRevoked("Session is no longer active")
		}
		return nil, fmt.Errorf("auth_service_refresh_lookup_failed: %w", err)
	}

	if user.RefreshTokenHash == "" {
		return nil, apperr.SessionRevoked("Session is no longer active")
	}

	if !sec.CheckRefreshTokenHash(refreshToken, user.RefreshTokenHash) {
		logger.WarnContext(context, "session_reuse_detected", slog.Bool("revoked", service.policy.RevokeOnReuse))
		if service.policy.RevokeOnReuse {
			if err := service.credentials.SetRefreshHash(context, userID, ""); err != nil {
				logger.ErrorContext(context, "session_reuse_revoke_failed", slog.Any("error", err))
			}
		}
		return nil, apperr.ReuseDetected("Refresh token has already been used")
	}

	pair, refreshHash, err := service.mintPair(user)
	if err != nil {
		return nil, err
	}

	swapped, err := service.credentials.RotateRefreshHash(context, userID, user.RefreshTokenHash, refreshHash)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_rotate_failed: %w", err)
	}
	if !swapped {
		logger.WarnContext(context, "session_rotation_lost_race")
		return nil, apperr.ReuseDetected("Refresh token has already been used")
	}

	logger.InfoContext(context, "session_rotated")
	return pair, nil
}

/*
Logout clears the user's session.

Description: Idempotent. An already-cleared session or a missing user is not
an error.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Storage failures
*/
func (service *Service) Logout(context context.Context, userID string) error {
	err := service.credentials.SetRefreshHash(context, userID, "")
	if err != nil && !apperr.IsNotFound(err) {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	service.metrics.RecordLogout()
	ctxutil.GetLogger(context).InfoContext(context, "user_logged_out", slog.String("user_id", userID))
	return nil
}

// # Password Management

// ChangePasswordInput carries a password change request.
type ChangePasswordInput struct {
	UserID          string
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

/*
ChangePassword verifies the current password and stores a new hash.

Description: With RevokeOnPasswordChange the active session is cleared too;
the access token already held keeps working until it expires.

Parameters:
  - context: context.Context
  - input: ChangePasswordInput

Returns:
  - error: ValidationError, NotFound, InvalidCredentials or storage failures
*/
func (service *Service) ChangePassword(context context.Context, input ChangePasswordInput) error {
	validator := &validate.Validator{}
	validator.Required(FieldOldPassword, input.CurrentPassword).
		Required(FieldNewPassword, input.NewPassword).
		Equal(FieldConfirmPassword, input.ConfirmPassword, input.NewPassword, "Passwords do not match")

	if err := validator.Err(); err != nil {
		return err
	}

	user, err := service.credentials.FindByID(context, input.UserID)
	if err != nil {
		return err
	}

	if !service.credentials.VerifyPassword(user, input.CurrentPassword) {
		return apperr.InvalidCredentials("Invalid old password")
	}

	if err := service.credentials.ChangePasswordHash(context, user.ID, input.NewPassword); err != nil {
		return err
	}

	if service.policy.RevokeOnPasswordChange {
		if err := service.credentials.SetRefreshHash(context, user.ID, ""); err != nil {
			return fmt.Errorf("auth_service_password_revoke_failed: %w", err)
		}
	}

	ctxutil.GetLogger(context).InfoContext(context, "password_changed",
		slog.String("user_id", user.ID),
		slog.Bool("sessions_revoked", service.policy.RevokeOnPasswordChange),
	)
	return nil
}

// # Helpers

// mintPair issues an access/refresh pair for user and hashes the refresh token.
func (service *Service) mintPair(user *User) (*TokenPair, string, error) {
	claims := sec.Claims{UserID: user.ID, UserName: user.UserName, Email: user.Email}

	access, err := service.issuer.IssueAccess(claims)
	if err != nil {
		return nil, "", fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	refresh, err := service.issuer.IssueRefresh(claims)
	if err != nil {
		return nil, "", fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	refreshHash, err := service.credentials.HashRefreshToken(refresh.Value)
	if err != nil {
		return nil, "", fmt.Errorf("auth_service_refresh_hash_failed: %w", err)
	}

	return &TokenPair{
		AccessToken:      access.Value,
		RefreshToken:     refresh.Value,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, refreshHash, nil
}
