// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/vidora/internal/platform/constants"
	"github.com/taibuivan/vidora/internal/platform/respond"
)

// readinessTimeout bounds each dependency probe.
const readinessTimeout = 3 * time.Second

// HealthCheck probes a single dependency.
type HealthCheck struct {
	// Name labels the dependency in the response ("mongo", "postgres", "redis").
	Name string
	// Check returns nil when the dependency is reachable.
	Check func(ctx context.Context) error
}

// HealthDependencies holds the injectable dependency checkers for the /ready endpoint.
type HealthDependencies struct {
	// Store pings the configured user store.
	Store *HealthCheck

	// Cache pings Redis. Nil when the refresh lock is disabled.
	Cache *HealthCheck
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{dependencies: deps, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health.
func (handler *healthHandler) liveness(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, "Service is alive", map[string]string{constants.FieldStatus: "ok"})
}

type checkResult struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// readiness handles GET /ready.
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	results := make([]checkResult, 0, 2)
	isSystemReady := true

	for _, dependency := range []*HealthCheck{handler.dependencies.Store, handler.dependencies.Cache} {
		if dependency == nil || dependency.Check == nil {
			continue
		}

		result := checkResult{Name: dependency.Name, IsOK: true}
		if err := probe(request.Context(), dependency.Check); err != nil {
			result.IsOK = false
			result.Error = err.Error()
			isSystemReady = false
			handler.logger.Error("readiness_check_failed", slog.String("dependency", dependency.Name), slog.Any("error", err))
		}
		results = append(results, result)
	}

	status, httpStatus, message := "ready", http.StatusOK, "Service is ready"
	if !isSystemReady {
		status, httpStatus, message = "degraded", http.StatusServiceUnavailable, "Service is not ready"
	}

	respond.JSON(writer, httpStatus, respond.SuccessEnvelope{
		StatusCode: httpStatus,
		Success:    isSystemReady,
		Message:    message,
		Data: map[string]any{
			constants.FieldStatus: status,
			constants.FieldChecks: results,
		},
	})
}

func probe(ctx context.Context, check func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	return check(ctx)
}
