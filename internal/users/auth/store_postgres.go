// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/vidora/internal/platform/database/schema"
	"github.com/taibuivan/vidora/internal/platform/dberr"
	"github.com/taibuivan/vidora/internal/platform/postgres"
)

// # PostgreSQL Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
//
// # Error Mapping
//
// pgx.ErrNoRows and SQLSTATE 23505 are mapped to NOT_FOUND and CONFLICT via
// [dberr.Wrap] so storage details never leak past this type.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool, now: time.Now}
}

var (
	accountTable   = schema.UserAccount
	accountColumns = strings.Join(accountTable.Columns(), ", ")
)

/*
Insert persists a new user record into the users.account table.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: apperr.Conflict on unique violation, or connectivity errors
*/
func (repository *PostgresUserRepository) Insert(context context.Context, user *User) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		accountTable.Table, accountColumns,
	)

	coverURL, coverStorageID := coverColumns(user.CoverImage)

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.UserName,
		user.Email,
		user.FullName,
		user.PasswordHash,
		user.Avatar.URL,
		user.Avatar.StorageID,
		coverURL,
		coverStorageID,
		user.RefreshTokenHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_insert_failed: %w", dberr.Wrap(err, "User"))
	}

	return nil
}

/*
FindByID retrieves a user record by its primary key.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	return repository.findOne(context, accountTable.ID, id)
}

/*
FindByUserName retrieves a user record by their unique userName.
*/
func (repository *PostgresUserRepository) FindByUserName(context context.Context, userName string) (*User, error) {
	return repository.findOne(context, accountTable.UserName, userName)
}

/*
FindByEmail retrieves a user record by their unique email address.
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	return repository.findOne(context, accountTable.Email, email)
}

/*
UpdateFields builds a single UPDATE ... RETURNING from the allow-listed fields.

Parameters:
  - context: context.Context
  - id: string
  - fields: Fields

Returns:
  - *User: Updated entity
  - error: apperr.NotFound, apperr.Conflict or execution errors
*/
func (repository *PostgresUserRepository) UpdateFields(context context.Context, id string, fields Fields) (*User, error) {
	assignments := make([]string, 0, len(fields)+1)
	args := []any{id}

	set := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	for key, value := range fields {
		switch key {
		case FieldFullName:
			set(accountTable.FullName, value)
		case FieldEmail:
			set(accountTable.Email, value)
		case FieldUserName:
			set(accountTable.UserName, value)
		case FieldAvatar:
			avatar := value.(Asset)
			set(accountTable.AvatarURL, avatar.URL)
			set(accountTable.AvatarStorageID, avatar.StorageID)
		case FieldCoverImage:
			cover, _ := value.(*Asset)
			coverURL, coverStorageID := coverColumns(cover)
			set(accountTable.CoverURL, coverURL)
			set(accountTable.CoverStorageID, coverStorageID)
		}
	}
	set(accountTable.UpdatedAt, repository.now().UTC())

	query := fmt.Sprintf(
		`UPDATE %s SET %s WHERE %s = $1 RETURNING %s`,
		accountTable.Table, strings.Join(assignments, ", "), accountTable.ID, accountColumns,
	)

	user, err := scanUser(repository.pool.QueryRow(context, query, args...))
	if err != nil {
		return nil, fmt.Errorf("postgres_user_repo_update_failed: %w", dberr.Wrap(err, "User"))
	}

	return user, nil
}

/*
UpdatePassword updates only the password hash for a specific user.

Returns:
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, id, passwordHash string) error {
	return repository.setColumn(context, id, accountTable.PasswordHash, passwordHash)
}

/*
SetRefreshHash sets or clears the refresh token hash.

Returns:
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) SetRefreshHash(context context.Context, id, hash string) error {
	return repository.setColumn(context, id, accountTable.RefreshTokenHash, hash)
}

/*
SwapRefreshHash performs the rotation compare-and-set in one statement.

Description: The row-level lock taken by UPDATE serializes concurrent swaps;
the loser re-evaluates the WHERE clause against the winner's hash and
affects zero rows.

Returns:
  - bool: true if this call replaced the hash
  - error: Execution errors
*/
func (repository *PostgresUserRepository) SwapRefreshHash(context context.Context, id, expected, next string) (bool, error) {
	query := fmt.Sprintf(
		`UPDATE %s SET %s = $3, %s = $4 WHERE %s = $1 AND %s = $2`,
		accountTable.Table,
		accountTable.RefreshTokenHash, accountTable.UpdatedAt,
		accountTable.ID, accountTable.RefreshTokenHash,
	)

	tag, err := repository.pool.Exec(context, query, id, expected, next, repository.now().UTC())
	if err != nil {
		return false, fmt.Errorf("postgres_user_repo_swap_refresh_failed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Ping checks the pool.
func (repository *PostgresUserRepository) Ping(context context.Context) error {
	return postgres.Ping(context, repository.pool)
}

// # Helpers

func (repository *PostgresUserRepository) findOne(context context.Context, column, value string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, accountColumns, accountTable.Table, column)

	user, err := scanUser(repository.pool.QueryRow(context, query, value))
	if err != nil {
		return nil, dberr.Wrap(err, "User")
	}

	return user, nil
}

func (repository *PostgresUserRepository) setColumn(context context.Context, id, column, value string) error {
	query := fmt.Sprintf(
		`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1`,
		accountTable.Table, column, accountTable.UpdatedAt, accountTable.ID,
	)

	tag, err := repository.pool.Exec(context, query, id, value, repository.now().UTC())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_set_%s_failed: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "User")
	}

	return nil
}

// scanUser hydrates a [User] from a row selected with accountColumns.
func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	var coverURL, coverStorageID *string

	err := row.Scan(
		&user.ID,
		&user.UserName,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&user.Avatar.URL,
		&user.Avatar.StorageID,
		&coverURL,
		&coverStorageID,
		&user.RefreshTokenHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if coverURL != nil && *coverURL != "" {
		user.CoverImage = &Asset{URL: *coverURL}
		if coverStorageID != nil {
			user.CoverImage.StorageID = *coverStorageID
		}
	}

	return user, nil
}

// coverColumns maps an optional cover image to nullable column values.
func coverColumns(cover *Asset) (*string, *string) {
	if cover == nil {
		return nil, nil
	}
	return &cover.URL, &cover.StorageID
}
