// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/sec"
	"github.com/taibuivan/vidora/internal/users/auth"
)

type fixture struct {
	store      *auth.CredentialStore
	repository *auth.MemoryUserRepository
	issuer     *sec.TokenIssuer
	service    *auth.Service
	user       *auth.User
}

func newFixture(t *testing.T, config auth.ServiceConfig) *fixture {
	t.Helper()

	repository := auth.NewMemoryUserRepository()
	store := auth.NewCredentialStore(repository, bcrypt.MinCost)

	issuer, err := sec.NewTokenIssuer(sec.IssuerConfig{
		Issuer:        "vidora.test",
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
	require.NoError(t, err)

	user, err := store.Create(context.Background(), auth.CreateInput{
		FullName: "Bob",
		Email:    "bob@example.com",
		UserName: "bob",
		Password: "pw1",
		Avatar:   testAvatar,
	})
	require.NoError(t, err)

	return &fixture{
		store:      store,
		repository: repository,
		issuer:     issuer,
		service:    auth.NewService(store, issuer, config),
		user:       user,
	}
}

func (f *fixture) login(t *testing.T) *auth.LoginResult {
	t.Helper()
	result, err := f.service.Login(context.Background(), auth.LoginInput{UserName: "bob", Password: "pw1"})
	require.NoError(t, err)
	return result
}

func (f *fixture) storedHash(t *testing.T) string {
	t.Helper()
	user, err := f.repository.FindByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	return user.RefreshTokenHash
}

func TestService_Login(t *testing.T) {
	f := newFixture(t, auth.ServiceConfig{})
	ctx := context.Background()

	tests := []struct {
		name     string
		input    auth.LoginInput
		wantCode apperr.Code
	}{
		{"by_username", auth.LoginInput{UserName: "bob", Password: "pw1"}, ""},
		{"by_email", auth.LoginInput{Email: "BOB@example.com", Password: "pw1"}, ""},
		{"no_identifier", auth.LoginInput{Password: "pw1"}, apperr.CodeValidation},
		{"no_password", auth.LoginInput{UserName: "bob"}, apperr.CodeValidation},
		{"unknown_user", auth.LoginInput{UserName: "nobody", Password: "pw1"}, apperr.CodeNotFound},
		{"wrong_password", auth.LoginInput{UserName: "bob", Password: "pw2"}, apperr.CodeInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.service.Login(ctx, tt.input)
			if tt.wantCode != "" {
				assert.True(t, apperr.Is(err, tt.wantCode), "got %v", err)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, result.AccessToken)
			assert.NotEmpty(t, result.RefreshToken)
			assert.Equal(t, "bob", result.User.UserName)
			assert.Equal(t, testAvatar.URL, result.User.Avatar)

			claims, err := f.issuer.Verify(result.AccessToken, sec.KindAccess)
			require.NoError(t, err)
			assert.Equal(t, f.user.ID, claims.UserID())
		})
	}
}

/*
TestService_Login_PersistsRefreshHash verifies the stored hash matches the
returned refresh token by the time Login returns.
*/
func TestService_Login_PersistsRefreshHash(t *testing.T) {
	f := newFixture(t, auth.ServiceConfig{})

	result := f.login(t)

	assert.True(t, sec.CheckRefreshTokenHash(result.RefreshToken, f.storedHash(t)))
}

/*
TestService_Refresh_Rotation verifies that a refresh returns a new pair, the
new token is the only one accepted, and the old one is reported as reused.
*/
func TestService_Refresh_Rotation(t *testing.T) {
	f := newFixture(t, auth.ServiceConfig{})
	ctx := context.Background()

	first := f.login(t)

	second, err := f.service.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.True(t, sec.CheckRefreshTokenHash(second.RefreshToken, f.storedHash(t)))

	_, err = f.service.Refresh(ctx, first.RefreshToken)
	assert.True(t, apperr.Is(err, apperr.CodeReuseDetected), "got %v", err)

	// Default policy keeps the rotated session alive.
	third, err := f.service.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, third.RefreshToken)
}

func TestService_Refresh_RevokeOnReuse(t *testing.T) {
	f := newFixture(t, auth.ServiceConfig{Policy: auth.SessionPolicy{RevokeOnReuse: true}})
	ctx := context.Background()

	first := f.login(t)
	second, err := f.service.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)

	_, err = f.service.Refresh(ctx, first.RefreshToken)
	assert.True(t, apperr.Is(err, apperr.CodeReuseDetected))

	_, err = f.service.Refresh(ctx, second.RefreshToken)
	assert.True(t, apperr.Is(err, apperr.CodeSessionRevoked), "reuse must have cleared the session, got %v", err)
}

func TestService_Refresh_Failures(t *testing.T) {
	f := newFixture(t, auth.ServiceConfig{})
	ctx := context.Background()
	result := f.login(t)

	expiredIssuer, err := sec.NewTokenIssuer(sec.IssuerConfig{
		Issuer:        "vidora.test",
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Minute,
		Now:           func() time.Time { return time.Now().Add(-time.Hour) },
	})
	require.NoError(t, err)
	expired, err := expiredIssuer.IssueRefresh(sec.Claims{UserID: f.user.ID})
	require.NoError(t, err)

	ghost, err := f.issuer.IssueRefresh(sec.Claims{UserID: "ghost"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		wantCode apperr.Code
	}{
		{"missing", "", apperr.CodeUnauthorized},
		{"garbage", "not.a.jwt", apperr.CodeTokenInvalid},
		{"access_token_as_refresh", result.AccessToken, apperr.CodeTokenInvalid},
		{"expired", expired.Value, apperr.CodeTokenExpired},
		{"deleted_user", ghost.Value, apperr.CodeSessionRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Refresh(ctx, tt.token)
			assert.True(t, apperr.Is(err, tt.wantCode), "got %v", err)
		})
	}
}

/*
TestService_Refresh_Concurrent verifies that of many concurrent refreshes with
the same token exactly one rotates the session.
*/
func TestService_Refresh_Concurrent(t *testing.T) {
	f := newFixture(t, auth.ServiceConfig{})
	result := f.login(t)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes []*auth.TokenPair
		failures  []error
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pair, err := f.service.Refresh(context.Background(), result.RefreshToken)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			successes = append(successes, pair)
		}()
	}
	wg.Wait()

	require.Len(t, successes, 1)
	assert.Len(t, failures, workers-1)
	for _, err := range failures {
		assert.True(t, apperr.Is(err, apperr.CodeReuseDetected), "got %v", err)
	}
	assert.True(t, sec.CheckRefreshTokenHash(successes[0].RefreshToken, f.storedHash(t)))
}

type busyLocker struct{}

func (busyLocker) Lock(context.Context, string) (func(), error) {
	return nil, auth.ErrRefreshInFlight
}

type countingLocker struct {
	locks, releases int
}

func (locker *countingLocker) Lock(context.Context, string) (func(), error) {
	locker.locks++
	return func() { locker.releases++ }, nil
}

func TestService_Refresh_Locker(t *testing.T) {
	t.Run("contention_is_reuse", func(t *testing.T) {
		f := newFixture(t, auth.ServiceConfig{Locker: busyLocker{}})
		result := f.login(t)

		_, err := f.service.Refresh(context.Background(), result.RefreshToken)
		assert.True(t, apperr.Is(err, apperr.CodeReuseDetected))
		assert.True(t, sec.CheckRefreshTokenHash(result.RefreshToken, f.storedHash(t)), "session must be untouched")
	})

	t.Run("lock_released", func(t *testing.T) {
		locker := &countingLocker{}
		f := newFixture(t, auth.ServiceConfig{Locker: locker})
		result := f.login(t)

		_, err := f.service.Refresh(context.Background(), result.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, 1, locker.locks)
		assert.Equal(t, 1, locker.releases)
	})
}

func TestService_Logout(t *testing.T) {
	f := newFixture(t, auth.ServiceConfig{})
	ctx := context.Background()
	result := f.login(t)

	require.NoError(t, f.service.Logout(ctx, f.user.ID))
	assert.Empty(t, f.storedHash(t))

	_, err := f.service.Refresh(ctx, result.RefreshToken)
	assert.True(t, apperr.Is(err, apperr.CodeSessionRevoked))

	// Idempotent
	assert.NoError(t, f.service.Logout(ctx, f.user.ID))
	assert.NoError(t, f.service.Logout(ctx, "missing-user"))
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("mismatch_is_validation", func(t *testing.T) {
		f := newFixture(t, auth.ServiceConfig{})
		err := f.service.ChangePassword(ctx, auth.ChangePasswordInput{
			UserID: f.user.ID, CurrentPassword: "pw1", NewPassword: "a", ConfirmPassword: "b",
		})
		assert.True(t, apperr.Is(err, apperr.CodeValidation))
	})

	t.Run("wrong_current", func(t *testing.T) {
		f := newFixture(t, auth.ServiceConfig{})
		err := f.service.ChangePassword(ctx, auth.ChangePasswordInput{
			UserID: f.user.ID, CurrentPassword: "nope", NewPassword: "pw2", ConfirmPassword: "pw2",
		})
		assert.True(t, apperr.Is(err, apperr.CodeInvalidCredentials))
	})

	t.Run("missing_user", func(t *testing.T) {
		f := newFixture(t, auth.ServiceConfig{})
		err := f.service.ChangePassword(ctx, auth.ChangePasswordInput{
			UserID: "missing", CurrentPassword: "pw1", NewPassword: "pw2", ConfirmPassword: "pw2",
		})
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("session_kept_by_default", func(t *testing.T) {
		f := newFixture(t, auth.ServiceConfig{})
		result := f.login(t)

		require.NoError(t, f.service.ChangePassword(ctx, auth.ChangePasswordInput{
			UserID: f.user.ID, CurrentPassword: "pw1", NewPassword: "pw2", ConfirmPassword: "pw2",
		}))

		_, err := f.service.Login(ctx, auth.LoginInput{UserName: "bob", Password: "pw1"})
		assert.True(t, apperr.Is(err, apperr.CodeInvalidCredentials))

		_, err = f.service.Refresh(ctx, result.RefreshToken)
		assert.NoError(t, err)
	})

	t.Run("session_revoked_by_policy", func(t *testing.T) {
		f := newFixture(t, auth.ServiceConfig{Policy: auth.SessionPolicy{RevokeOnPasswordChange: true}})
		result := f.login(t)

		require.NoError(t, f.service.ChangePassword(ctx, auth.ChangePasswordInput{
			UserID: f.user.ID, CurrentPassword: "pw1", NewPassword: "pw2", ConfirmPassword: "pw2",
		}))

		_, err := f.service.Refresh(ctx, result.RefreshToken)
		assert.True(t, apperr.Is(err, apperr.CodeSessionRevoked))
	})
}

/*
TestService_BobScenario walks Login, Refresh, replay, Logout and a refresh
after logout, checking the distinct failure code at each step.
*/
func TestService_BobScenario(t *testing.T) {
	f := newFixture(t, auth.ServiceConfig{})
	ctx := context.Background()

	login := f.login(t)
	r1 := login.RefreshToken

	rotated, err := f.service.Refresh(ctx, r1)
	require.NoError(t, err)
	r2 := rotated.RefreshToken

	_, err = f.service.Refresh(ctx, r1)
	assert.True(t, apperr.Is(err, apperr.CodeReuseDetected), "replayed R1, got %v", err)

	require.NoError(t, f.service.Logout(ctx, f.user.ID))

	_, err = f.service.Refresh(ctx, r2)
	assert.True(t, apperr.Is(err, apperr.CodeSessionRevoked), "R2 after logout, got %v", err)
}
