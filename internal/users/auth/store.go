// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/sec"
	"github.com/taibuivan/vidora/internal/platform/validate"
	"github.com/taibuivan/vidora/pkg/ident"
	"github.com/taibuivan/vidora/pkg/uuid"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// Implementations return apperr NOT_FOUND for a missing record and CONFLICT
// for a unique index violation on userName or email.
type UserRepository interface {

	/*
		Insert persists a brand-new user record.

		Parameters:
		  - context: context.Context
		  - user: *User (ID and timestamps already assigned)

		Returns:
		  - error: apperr.Conflict on duplicate identity, or persistence failures
	*/
	Insert(context context.Context, user *User) error

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity including credential hashes
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByUserName returns the account with the given normalized userName.

		Parameters:
		  - context: context.Context
		  - userName: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByUserName(context context.Context, userName string) (*User, error)

	/*
		FindByEmail returns the account with the given normalized email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		UpdateFields applies an allow-listed partial update and returns the new state.

		Parameters:
		  - context: context.Context
		  - id: string
		  - fields: Fields (already validated and normalized)

		Returns:
		  - *User: Updated entity
		  - error: apperr.NotFound, apperr.Conflict or persistence failures
	*/
	UpdateFields(context context.Context, id string, fields Fields) (*User, error)

	/*
		UpdatePassword replaces only the user's password hash.

		Parameters:
		  - context: context.Context
		  - id: string
		  - passwordHash: string

		Returns:
		  - error: apperr.NotFound or persistence failures
	*/
	UpdatePassword(context context.Context, id, passwordHash string) error

	/*
		SetRefreshHash unconditionally sets (or clears, with "") the session hash.

		Parameters:
		  - context: context.Context
		  - id: string
		  - hash: string

		Returns:
		  - error: apperr.NotFound or persistence failures
	*/
	SetRefreshHash(context context.Context, id, hash string) error

	/*
		SwapRefreshHash replaces the session hash only if it still equals expected.

		Parameters:
		  - context: context.Context
		  - id: string
		  - expected: string (hash observed by the caller)
		  - next: string (replacement hash)

		Returns:
		  - bool: true if this call performed the swap
		  - error: Persistence failures
	*/
	SwapRefreshHash(context context.Context, id, expected, next string) (bool, error)

	/*
		Ping checks connectivity to the backing store.
	*/
	Ping(context context.Context) error
}

// # Credential Store

// CredentialStore owns identity records and password hashing.
type CredentialStore struct {
	repository UserRepository
	bcryptCost int
	now        func() time.Time
}

// NewCredentialStore wires a [CredentialStore] over repository using bcryptCost
// for both password and refresh-token hashes.
func NewCredentialStore(repository UserRepository, bcryptCost int) *CredentialStore {
	return &CredentialStore{
		repository: repository,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// CreateInput holds the data required to enroll a new account.
type CreateInput struct {
	FullName   string
	Email      string
	UserName   string
	Password   string
	Avatar     Asset
	CoverImage *Asset
}

/*
Create validates, hashes, and persists a brand new user account.

Description: Identifiers are normalized (trimmed, NFC, lowercased) before the
uniqueness pre-check; the repository's unique index is the final arbiter when
two registrations race.

Parameters:
  - context: context.Context
  - input: CreateInput

Returns:
  - *User: Created entity without credential hashes
  - error: apperr.ValidationError, apperr.Conflict or storage errors
*/
func (store *CredentialStore) Create(context context.Context, input CreateInput) (*User, error) {
	identity, err := store.checkCreate(context, input, true)
	if err != nil {
		return nil, err
	}

	passwordHash, err := sec.HashPassword(input.Password, store.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth_store_hash_failed: %w", err)
	}

	now := store.now().UTC()
	user := &User{
		ID:           uuid.New(),
		UserName:     identity.userName,
		Email:        identity.email,
		FullName:     identity.fullName,
		PasswordHash: passwordHash,
		Avatar:       input.Avatar,
		CoverImage:   input.CoverImage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := store.repository.Insert(context, user); err != nil {
		return nil, fmt.Errorf("auth_store_create_failed: %w", err)
	}

	return user.sanitized(), nil
}

/*
Precheck runs Create's validation and uniqueness pre-check without persisting.

Description: Callers use it to reject a registration before spending work on
media uploads. The avatar rule is skipped because the asset does not exist
yet. Create repeats every check.

Parameters:
  - context: context.Context
  - input: CreateInput (Avatar and CoverImage ignored)

Returns:
  - error: apperr.ValidationError, apperr.Conflict or storage errors
*/
func (store *CredentialStore) Precheck(context context.Context, input CreateInput) error {
	_, err := store.checkCreate(context, input, false)
	return err
}

// createIdentity holds the normalized identifiers of a new account.
type createIdentity struct {
	fullName string
	email    string
	userName string
}

func (store *CredentialStore) checkCreate(context context.Context, input CreateInput, requireAvatar bool) (createIdentity, error) {
	identity := createIdentity{
		fullName: ident.Clean(input.FullName),
		email:    ident.Normalize(input.Email),
		userName: ident.Normalize(input.UserName),
	}

	validator := &validate.Validator{}
	validator.Required(FieldFullName, identity.fullName).
		MaxLen(FieldFullName, identity.fullName, MaxFullNameLength).
		Required(FieldEmail, identity.email).
		Required(FieldUserName, identity.userName).
		MaxLen(FieldUserName, identity.userName, MaxUserNameLength).
		Required(FieldPassword, input.Password).
		Custom(FieldPassword, len(input.Password) > sec.MaxPasswordBytes, fmt.Sprintf("Maximum %d bytes", sec.MaxPasswordBytes)).
		Custom(FieldAvatar, requireAvatar && input.Avatar.URL == "", "Avatar file is required")

	if identity.email != "" {
		validator.Email(FieldEmail, identity.email)
	}

	if err := validator.Err(); err != nil {
		return createIdentity{}, err
	}

	// Pre-check both identifiers so the common case gets a clean 409.
	if err := store.ensureAvailable(context, "", identity.userName, identity.email); err != nil {
		return createIdentity{}, err
	}

	return identity, nil
}

/*
FindByIdentifier resolves a login handle.

Description: userName is tried first when supplied, then email. Both are
normalized the same way Create normalizes them.

Parameters:
  - context: context.Context
  - userName: string (may be empty)
  - email: string (may be empty)

Returns:
  - *User: Hydrated entity
  - error: apperr.NotFound or storage errors
*/
func (store *CredentialStore) FindByIdentifier(context context.Context, userName, email string) (*User, error) {
	userName = ident.Normalize(userName)
	email = ident.Normalize(email)

	if userName == "" && email == "" {
		return nil, apperr.ValidationError("Username or email is required")
	}

	if userName != "" {
		user, err := store.repository.FindByUserName(context, userName)
		if err == nil {
			return user, nil
		}
		if !apperr.IsNotFound(err) || email == "" {
			return nil, err
		}
	}

	return store.repository.FindByEmail(context, email)
}

// FindByID returns the user with the given ID or apperr.NotFound.
func (store *CredentialStore) FindByID(context context.Context, id string) (*User, error) {
	return store.repository.FindByID(context, id)
}

// VerifyPassword reports whether candidate matches the user's password hash.
// It never errors; a malformed hash simply does not match.
func (store *CredentialStore) VerifyPassword(user *User, candidate string) bool {
	if user == nil {
		return false
	}
	return sec.CheckPasswordHash(candidate, user.PasswordHash)
}

/*
UpdateFields applies a validated partial update.

Description: Only fullName, email, userName, avatar and coverImage may be
changed. Identifiers are normalized and re-checked for uniqueness. The avatar
can be replaced but never cleared.

Parameters:
  - context: context.Context
  - id: string
  - fields: Fields

Returns:
  - *User: Updated entity without credential hashes
  - error: apperr.ValidationError, apperr.NotFound, apperr.Conflict or storage errors
*/
func (store *CredentialStore) UpdateFields(context context.Context, id string, fields Fields) (*User, error) {
	if len(fields) == 0 {
		return nil, apperr.ValidationError("At least one field is required")
	}

	normalized := make(Fields, len(fields))
	validator := &validate.Validator{}

	for key, value := range fields {
		if !updatableFields[key] {
			validator.Custom(key, true, "Field cannot be updated")
			continue
		}

		switch key {
		case FieldFullName, FieldEmail, FieldUserName:
			text, ok := value.(string)
			if !ok {
				validator.Custom(key, true, "Must be a string")
				continue
			}
			if key == FieldFullName {
				text = ident.Clean(text)
			} else {
				text = ident.Normalize(text)
			}
			validator.Required(key, text)
			if key == FieldEmail && text != "" {
				validator.Email(key, text)
			}
			normalized[key] = text

		case FieldAvatar:
			asset, ok := value.(Asset)
			validator.Custom(key, !ok || asset.URL == "", "Avatar cannot be removed")
			normalized[key] = asset

		case FieldCoverImage:
			// A nil value (typed or not) clears the cover image.
			asset, ok := value.(*Asset)
			validator.Custom(key, !ok && value != nil, "Must be an asset")
			normalized[key] = asset
		}
	}

	if err := validator.Err(); err != nil {
		return nil, err
	}

	userName, _ := normalized[FieldUserName].(string)
	email, _ := normalized[FieldEmail].(string)
	if err := store.ensureAvailable(context, id, userName, email); err != nil {
		return nil, err
	}

	user, err := store.repository.UpdateFields(context, id, normalized)
	if err != nil {
		return nil, fmt.Errorf("auth_store_update_failed: %w", err)
	}

	return user.sanitized(), nil
}

/*
ChangePasswordHash hashes newPassword and persists it.

Returns:
  - error: apperr.ValidationError, apperr.NotFound or storage errors
*/
func (store *CredentialStore) ChangePasswordHash(context context.Context, id, newPassword string) error {
	validator := &validate.Validator{}
	validator.Required(FieldNewPassword, newPassword).
		Custom(FieldNewPassword, len(newPassword) > sec.MaxPasswordBytes, fmt.Sprintf("Maximum %d bytes", sec.MaxPasswordBytes))

	if err := validator.Err(); err != nil {
		return err
	}

	passwordHash, err := sec.HashPassword(newPassword, store.bcryptCost)
	if err != nil {
		return fmt.Errorf("auth_store_hash_failed: %w", err)
	}

	if err := store.repository.UpdatePassword(context, id, passwordHash); err != nil {
		return fmt.Errorf("auth_store_change_password_failed: %w", err)
	}
	return nil
}

// HashRefreshToken hashes a refresh token at the store's bcrypt cost.
func (store *CredentialStore) HashRefreshToken(token string) (string, error) {
	return sec.HashRefreshToken(token, store.bcryptCost)
}

// SetRefreshHash unconditionally sets or clears ("") the session hash.
func (store *CredentialStore) SetRefreshHash(context context.Context, id, hash string) error {
	return store.repository.SetRefreshHash(context, id, hash)
}

// RotateRefreshHash swaps the session hash from expected to next atomically.
// It reports false when another writer changed the hash first.
func (store *CredentialStore) RotateRefreshHash(context context.Context, id, expected, next string) (bool, error) {
	return store.repository.SwapRefreshHash(context, id, expected, next)
}

// Ping checks the backing repository.
func (store *CredentialStore) Ping(context context.Context) error {
	return store.repository.Ping(context)
}

type userLookup func(ctx context.Context, value string) (*User, error)

// ensureAvailable fails with a Conflict if userName or email belongs to a
// user other than selfID. Empty identifiers are skipped.
func (store *CredentialStore) ensureAvailable(context context.Context, selfID, userName, email string) error {
	lookups := []struct {
		value string
		find  userLookup
	}{
		{userName, store.repository.FindByUserName},
		{email, store.repository.FindByEmail},
	}

	for _, lookup := range lookups {
		if lookup.value == "" {
			continue
		}

		existing, err := lookup.find(context, lookup.value)
		if err == nil {
			if existing.ID != selfID {
				return apperr.Conflict("User with email or username already exists")
			}
			continue
		}
		if !apperr.IsNotFound(err) {
			return fmt.Errorf("auth_store_uniqueness_check_failed: %w", err)
		}
	}

	return nil
}
