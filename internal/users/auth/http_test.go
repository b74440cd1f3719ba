// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/constants"
	"github.com/taibuivan/vidora/internal/platform/middleware"
	"github.com/taibuivan/vidora/internal/platform/sec"
	"github.com/taibuivan/vidora/internal/users/auth"
)

func newRouter(f *fixture) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Authenticate(f.issuer))
	router.Mount("/auth", auth.NewHandler(f.service).Routes())
	return router
}

func do(router http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var request *http.Request
	if body == "" {
		request = httptest.NewRequest(method, path, nil)
	} else {
		request = httptest.NewRequest(method, path, strings.NewReader(body))
		request.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func cookieNamed(recorder *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func errorCode(t *testing.T, recorder *httptest.ResponseRecorder) apperr.Code {
	t.Helper()
	var body struct {
		Success bool        `json:"success"`
		Code    apperr.Code `json:"code"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Code
}

func TestHandler_LoginRefreshLogout(t *testing.T) {
	f := newFixture(t, auth.ServiceConfig{})
	router := newRouter(f)

	// Login
	login := do(router, http.MethodPost, "/auth/login", `{"email":"bob@example.com","password":"pw1"}`)
	require.Equal(t, http.StatusOK, login.Code, login.Body.String())

	var body struct {
		StatusCode int  `json:"statusCode"`
		Success    bool `json:"success"`
		Data       struct {
			AccessToken  string          `json:"accessToken"`
			RefreshToken string          `json:"refreshToken"`
			User         auth.PublicUser `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "bob", body.Data.User.UserName)
	assert.NotContains(t, login.Body.String(), "passwordHash")

	accessCookie := cookieNamed(login, constants.AccessTokenCookieName)
	refreshCookie := cookieNamed(login, constants.RefreshTokenCookieName)
	require.NotNil(t, accessCookie)
	require.NotNil(t, refreshCookie)
	assert.True(t, accessCookie.HttpOnly)
	assert.True(t, accessCookie.Secure)
	assert.Equal(t, body.Data.RefreshToken, refreshCookie.Value)

	// Refresh via cookie
	refreshed := do(router, http.MethodPost, "/auth/refresh", "", refreshCookie)
	require.Equal(t, http.StatusOK, refreshed.Code, refreshed.Body.String())
	newRefresh := cookieNamed(refreshed, constants.RefreshTokenCookieName)
	require.NotNil(t, newRefresh)
	assert.NotEqual(t, refreshCookie.Value, newRefresh.Value)

	// Replay of the old cookie
	replay := do(router, http.MethodPost, "/auth/refresh", "", refreshCookie)
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
	assert.Equal(t, apperr.CodeReuseDetected, errorCode(t, replay))

	// Logout with the access token cookie
	logout := do(router, http.MethodPost, "/auth/logout", "", accessCookie)
	require.Equal(t, http.StatusOK, logout.Code, logout.Body.String())
	cleared := cookieNamed(logout, constants.RefreshTokenCookieName)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	// Refresh via body after logout
	revoked := do(router, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+newRefresh.Value+`"}`)
	assert.Equal(t, http.StatusUnauthorized, revoked.Code)
	assert.Equal(t, apperr.CodeSessionRevoked, errorCode(t, revoked))
}

func TestHandler_LoginFailures(t *testing.T) {
	f := newFixture(t, auth.ServiceConfig{})
	router := newRouter(f)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   apperr.Code
	}{
		{"bad_json", `{`, http.StatusBadRequest, apperr.CodeValidation},
		{"no_identifier", `{"password":"pw1"}`, http.StatusBadRequest, apperr.CodeValidation},
		{"unknown_user", `{"userName":"nobody","password":"pw1"}`, http.StatusNotFound, apperr.CodeNotFound},
		{"wrong_password", `{"userName":"bob","password":"nope"}`, http.StatusUnauthorized, apperr.CodeInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := do(router, http.MethodPost, "/auth/login", tt.body)
			assert.Equal(t, tt.wantStatus, recorder.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, recorder))
		})
	}
}

func TestHandler_ProtectedRoutesRequireAuth(t *testing.T) {
	f := newFixture(t, auth.ServiceConfig{})
	router := newRouter(f)

	for _, path := range []string{"/auth/logout", "/auth/change-password"} {
		t.Run(path, func(t *testing.T) {
			recorder := do(router, http.MethodPost, path, "")
			assert.Equal(t, http.StatusUnauthorized, recorder.Code)
			assert.Equal(t, apperr.CodeUnauthorized, errorCode(t, recorder))
		})
	}
}

func TestHandler_ChangePassword(t *testing.T) {
	f := newFixture(t, auth.ServiceConfig{})
	router := newRouter(f)
	result := f.login(t)
	access := &http.Cookie{Name: constants.AccessTokenCookieName, Value: result.AccessToken}

	mismatch := do(router, http.MethodPost, "/auth/change-password",
		`{"oldPassword":"pw1","newPassword":"pw2","confirmPassword":"pw3"}`, access)
	assert.Equal(t, http.StatusBadRequest, mismatch.Code)

	ok := do(router, http.MethodPost, "/auth/change-password",
		`{"oldPassword":"pw1","newPassword":"pw2","confirmPassword":"pw2"}`, access)
	assert.Equal(t, http.StatusOK, ok.Code, ok.Body.String())

	login := do(router, http.MethodPost, "/auth/login", `{"userName":"bob","password":"pw2"}`)
	assert.Equal(t, http.StatusOK, login.Code)
}

// staleAccessToken mints an access token for bob that expired long ago,
// signed with the fixture's secrets.
func staleAccessToken(t *testing.T, f *fixture) string {
	t.Helper()
	stale, err := sec.NewTokenIssuer(sec.IssuerConfig{
		Issuer:        "vidora.test",
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Now:           func() time.Time { return time.Now().Add(-time.Hour) },
	})
	require.NoError(t, err)

	token, err := stale.IssueAccess(sec.Claims{UserID: f.user.ID, UserName: f.user.UserName})
	require.NoError(t, err)
	return token.Value
}

func TestHandler_ExpiredAccessTokenOnPublicRoutes(t *testing.T) {
	f := newFixture(t, auth.ServiceConfig{})
	router := newRouter(f)
	expired := staleAccessToken(t, f)

	withBearer := func(method, path, body string) *httptest.ResponseRecorder {
		request := httptest.NewRequest(method, path, strings.NewReader(body))
		request.Header.Set("Content-Type", "application/json")
		request.Header.Set("Authorization", "Bearer "+expired)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)
		return recorder
	}

	t.Run("refresh", func(t *testing.T) {
		result := f.login(t)
		recorder := withBearer(http.MethodPost, "/auth/refresh", `{"refreshToken":"`+result.RefreshToken+`"}`)
		assert.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	})

	t.Run("refresh_with_expired_cookie", func(t *testing.T) {
		result := f.login(t)
		recorder := do(router, http.MethodPost, "/auth/refresh", "",
			&http.Cookie{Name: constants.AccessTokenCookieName, Value: expired},
			&http.Cookie{Name: constants.RefreshTokenCookieName, Value: result.RefreshToken})
		assert.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	})

	t.Run("login", func(t *testing.T) {
		recorder := withBearer(http.MethodPost, "/auth/login", `{"userName":"bob","password":"pw1"}`)
		assert.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	})

	t.Run("protected_route_reports_expiry", func(t *testing.T) {
		recorder := withBearer(http.MethodPost, "/auth/logout", "")
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Equal(t, apperr.CodeTokenExpired, errorCode(t, recorder))
	})
}
