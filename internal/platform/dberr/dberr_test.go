// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/dberr"
)

func TestWrap(t *testing.T) {
	mongoDuplicate := mongo.WriteException{
		WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}},
	}

	tests := []struct {
		name     string
		err      error
		wantCode apperr.Code
	}{
		{"pg_no_rows", pgx.ErrNoRows, apperr.CodeNotFound},
		{"mongo_no_documents", mongo.ErrNoDocuments, apperr.CodeNotFound},
		{"wrapped_no_rows", fmt.Errorf("query: %w", pgx.ErrNoRows), apperr.CodeNotFound},
		{"pg_unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, apperr.CodeConflict},
		{"mongo_duplicate", mongoDuplicate, apperr.CodeConflict},
		{"pg_other", &pgconn.PgError{Code: pgerrcode.SyntaxError}, apperr.CodeInternal},
		{"unknown", errors.New("socket closed"), apperr.CodeInternal},
		{"already_typed", apperr.SessionRevoked("gone"), apperr.CodeSessionRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dberr.Wrap(tt.err, "User")
			assert.True(t, apperr.Is(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, dberr.Wrap(nil, "User"))
}

func TestWrap_NotFoundMessage(t *testing.T) {
	err := dberr.Wrap(pgx.ErrNoRows, "User")
	assert.Equal(t, "User not found", err.Error())
}
