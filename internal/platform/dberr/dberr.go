// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
//
// Both repository backends (pgx and the MongoDB driver) funnel their errors
// through [Wrap] so the services above see one vocabulary: NOT_FOUND,
// CONFLICT, or an opaque INTERNAL_ERROR.
package dberr

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/taibuivan/vidora/internal/platform/apperr"
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// Parameters:
//   - err: Error returned by the driver
//   - resource: Human-readable resource name used in the client message (e.g. "User")
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}

	// Already classified further down the stack
	if apperr.As(err) != nil {
		return err
	}

	// 1. Not Found mapping
	if IsNoRows(err) {
		return apperr.NotFound(resource).WithCause(err)
	}

	// 2. Unique index violations
	if IsUniqueViolation(err) {
		return apperr.Conflict(resource + " with email or username already exists").WithCause(err)
	}

	// 3. Unknown query errors become Internal Server Errors
	return apperr.Internal(err)
}

// IsNoRows reports whether err means the queried row or document does not exist.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, mongo.ErrNoDocuments)
}

// IsUniqueViolation reports whether err is a unique index violation in either backend.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return true
	}
	return mongo.IsDuplicateKeyError(err)
}
