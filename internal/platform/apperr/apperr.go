// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for Vidora.

It provides a single tagged error type that bridges low-level storage and crypto
failures and high-level HTTP responses.

Architecture:

  - AppError: A struct carrying a machine-readable Code from a closed set, a
    client-safe message and the HTTP status it maps to.
  - Propagation: Errors are returned as values. Services never collapse one
    typed failure into another; the boundary renders whatever reaches it.
  - Mapping: Every code has exactly one HTTP status.

The four refresh failures (TOKEN_EXPIRED, TOKEN_INVALID, SESSION_REVOKED,
REUSE_DETECTED) are deliberately distinct so a client can choose between
"log in again" and "force full re-authentication".
*/
package apperr

import (
	"errors"
	"net/http"
)

// # Error Codes

// Code identifies the kind of an [AppError]. The set is closed.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeConflict           Code = "CONFLICT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeTokenExpired       Code = "TOKEN_EXPIRED"
	CodeTokenInvalid       Code = "TOKEN_INVALID"
	CodeSessionRevoked     Code = "SESSION_REVOKED"
	CodeReuseDetected      Code = "REUSE_DETECTED"
	CodeUploadFailed       Code = "UPLOAD_FAILED"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// AppError is the canonical error type for the Vidora API.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., driver messages).
type AppError struct {
	// Code is a machine-readable error identifier.
	Code Code `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"message"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"errors,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause returns a copy of e carrying cause for server-side logging.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func newError(code Code, status int, msg string) *AppError {
	return &AppError{Code: code, Message: msg, HTTPStatus: status}
}

// # Client Errors (4xx)

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	err := newError(CodeValidation, http.StatusBadRequest, msg)
	err.Details = details
	return err
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return newError(CodeConflict, http.StatusConflict, msg)
}

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("User") // Returns "User not found"
func NotFound(resource string) *AppError {
	return newError(CodeNotFound, http.StatusNotFound, resource+" not found")
}

// Unauthorized creates a 401 [AppError] for a missing authentication context.
func Unauthorized(msg string) *AppError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, msg)
}

// InvalidCredentials creates a 401 [AppError] for a wrong password.
func InvalidCredentials(msg string) *AppError {
	return newError(CodeInvalidCredentials, http.StatusUnauthorized, msg)
}

// TokenExpired creates a 401 [AppError] for a well-formed token past its expiry.
func TokenExpired(msg string) *AppError {
	return newError(CodeTokenExpired, http.StatusUnauthorized, msg)
}

// TokenInvalid creates a 401 [AppError] for a bad signature, wrong token
// kind or malformed structure.
func TokenInvalid(msg string) *AppError {
	return newError(CodeTokenInvalid, http.StatusUnauthorized, msg)
}

// SessionRevoked creates a 401 [AppError] for a refresh attempt after logout.
func SessionRevoked(msg string) *AppError {
	return newError(CodeSessionRevoked, http.StatusUnauthorized, msg)
}

// ReuseDetected creates a 401 [AppError] for a refresh token that no longer
// matches the stored session hash.
func ReuseDetected(msg string) *AppError {
	return newError(CodeReuseDetected, http.StatusUnauthorized, msg)
}

// # Server Errors (5xx)

// UploadFailed creates a 500 [AppError] for an object-storage upload failure.
func UploadFailed(cause error) *AppError {
	err := newError(CodeUploadFailed, http.StatusInternalServerError, "Failed to upload file")
	err.Cause = cause
	return err
}

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	err := newError(CodeInternal, http.StatusInternalServerError, "An unexpected error occurred")
	err.Cause = cause
	return err
}

// # Helpers

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// Is reports whether err (or any error in its chain) is an [*AppError] with code.
func Is(err error, code Code) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}

// IsNotFound reports whether err is a NOT_FOUND [AppError].
func IsNotFound(err error) bool {
	return Is(err, CodeNotFound)
}
