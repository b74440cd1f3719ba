// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/vidora/internal/platform/apperr"
)

/*
TestAppError_StatusMapping pins every code to its HTTP status.
*/
func TestAppError_StatusMapping(t *testing.T) {
	tests := []struct {
		err    *apperr.AppError
		code   apperr.Code
		status int
	}{
		{apperr.ValidationError("bad"), apperr.CodeValidation, http.StatusBadRequest},
		{apperr.Conflict("dup"), apperr.CodeConflict, http.StatusConflict},
		{apperr.NotFound("User"), apperr.CodeNotFound, http.StatusNotFound},
		{apperr.Unauthorized("no"), apperr.CodeUnauthorized, http.StatusUnauthorized},
		{apperr.InvalidCredentials("no"), apperr.CodeInvalidCredentials, http.StatusUnauthorized},
		{apperr.TokenExpired("old"), apperr.CodeTokenExpired, http.StatusUnauthorized},
		{apperr.TokenInvalid("bad"), apperr.CodeTokenInvalid, http.StatusUnauthorized},
		{apperr.SessionRevoked("gone"), apperr.CodeSessionRevoked, http.StatusUnauthorized},
		{apperr.ReuseDetected("replay"), apperr.CodeReuseDetected, http.StatusUnauthorized},
		{apperr.UploadFailed(errors.New("s3")), apperr.CodeUploadFailed, http.StatusInternalServerError},
		{apperr.Internal(errors.New("boom")), apperr.CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
		})
	}
}

/*
TestAppError_WrappedChain verifies typed errors survive fmt.Errorf wrapping.
*/
func TestAppError_WrappedChain(t *testing.T) {
	wrapped := fmt.Errorf("auth_service_refresh_failed: %w", apperr.ReuseDetected("replay"))

	require.NotNil(t, apperr.As(wrapped))
	assert.True(t, apperr.Is(wrapped, apperr.CodeReuseDetected))
	assert.False(t, apperr.Is(wrapped, apperr.CodeTokenInvalid))
	assert.False(t, apperr.Is(errors.New("plain"), apperr.CodeInternal))
	assert.Nil(t, apperr.As(errors.New("plain")))
}

func TestAppError_CauseIsHidden(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := apperr.Internal(cause)

	assert.Equal(t, "An unexpected error occurred", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestAppError_WithCauseCopies(t *testing.T) {
	base := apperr.NotFound("User")
	withCause := base.WithCause(errors.New("no rows"))

	assert.Nil(t, base.Cause)
	assert.NotNil(t, withCause.Cause)
	assert.Equal(t, base.Code, withCause.Code)
}
