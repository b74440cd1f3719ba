// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/vidora/internal/api"
	"github.com/taibuivan/vidora/internal/platform/config"
	"github.com/taibuivan/vidora/internal/platform/metrics"
	"github.com/taibuivan/vidora/internal/platform/objstore"
	"github.com/taibuivan/vidora/internal/platform/sec"
	"github.com/taibuivan/vidora/internal/users/account"
	"github.com/taibuivan/vidora/internal/users/auth"
)

type nopStorage struct{}

func (nopStorage) Upload(context.Context, string) (objstore.Object, error) {
	return objstore.Object{URL: "https://cdn.test/media/x.png", StorageID: "media/x.png"}, nil
}

func (nopStorage) Delete(context.Context, string) error { return nil }

func newTestServer(t *testing.T, deps api.HealthDependencies) (http.Handler, *metrics.Metrics) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	issuer, err := sec.NewTokenIssuer(sec.IssuerConfig{
		Issuer:        "vidora.test",
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	m := metrics.New("vidora_test")
	credentials := auth.NewCredentialStore(auth.NewMemoryUserRepository(), bcrypt.MinCost)
	liveness, readiness := api.NewHealthHandlers(deps, logger)

	server := api.NewServer(&config.Config{ServerPort: "0", Environment: "test"}, logger, issuer, m, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(auth.NewService(credentials, issuer, auth.ServiceConfig{Metrics: m})),
		Account: account.NewHandler(account.NewService(credentials, objstore.NewInstrumented(nopStorage{}, m)), account.UploadConfig{
			TempDir:  t.TempDir(),
			MaxBytes: 1 << 20,
		}),
	})
	return server.Handler(), m
}

func get(handler http.Handler, path string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
	return recorder
}

func TestHealth(t *testing.T) {
	handler, _ := newTestServer(t, api.HealthDependencies{})

	recorder := get(handler, "/health")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"))
}

func TestReady(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	broken := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		deps       api.HealthDependencies
		wantStatus int
		wantReady  string
	}{
		{
			name:       "no dependencies",
			wantStatus: http.StatusOK,
			wantReady:  "ready",
		},
		{
			name: "all healthy",
			deps: api.HealthDependencies{
				Store: &api.HealthCheck{Name: "memory", Check: healthy},
				Cache: &api.HealthCheck{Name: "redis", Check: healthy},
			},
			wantStatus: http.StatusOK,
			wantReady:  "ready",
		},
		{
			name: "cache down",
			deps: api.HealthDependencies{
				Store: &api.HealthCheck{Name: "mongo", Check: healthy},
				Cache: &api.HealthCheck{Name: "redis", Check: broken},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantReady:  "degraded",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler, _ := newTestServer(t, tc.deps)
			recorder := get(handler, "/ready")
			assert.Equal(t, tc.wantStatus, recorder.Code)

			var body struct {
				StatusCode int `json:"statusCode"`
				Data       struct {
					Status string `json:"status"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
			assert.Equal(t, tc.wantStatus, body.StatusCode)
			assert.Equal(t, tc.wantReady, body.Data.Status)
		})
	}
}

func TestRoutes(t *testing.T) {
	handler, _ := newTestServer(t, api.HealthDependencies{})

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/api/v1/users/me", http.StatusUnauthorized},
		{"/api/v1/unknown", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.wantStatus, get(handler, tc.path).Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler, _ := newTestServer(t, api.HealthDependencies{})

	get(handler, "/api/v1/users/me")

	recorder := get(handler, "/metrics")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `vidora_test_http_requests_total{method="GET",route="/api/v1/users/me",status="401"} 1`)
}
