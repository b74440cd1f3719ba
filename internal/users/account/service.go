// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/ctxutil"
	"github.com/taibuivan/vidora/internal/platform/objstore"
	"github.com/taibuivan/vidora/internal/users/auth"
)

// # Service Layer

// Service orchestrates registration, profile reads and edits, and media swaps.
type Service struct {
	credentials *auth.CredentialStore
	storage     objstore.Storage
	assets      *AssetReplacer
}

// NewService constructs a new [Service] over the credential store and object storage.
func NewService(credentials *auth.CredentialStore, storage objstore.Storage) *Service {
	return &Service{
		credentials: credentials,
		storage:     storage,
		assets:      NewAssetReplacer(credentials, storage),
	}
}

// # Registration

// RegisterInput carries the registration form. File paths point at temporary
// uploads owned by the service from the moment Register is called.
type RegisterInput struct {
	FullName       string
	Email          string
	UserName       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

/*
Register uploads the user's media and creates the account.

Description: The avatar is required and the cover image optional. The form
is validated and checked for identifier conflicts before anything is
uploaded. Temporary files are removed on every path. If the account cannot be
created the uploaded objects are deleted again.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - auth.PublicUser: The created profile
  - error: apperr.ValidationError, apperr.Conflict, apperr.UploadFailed or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (auth.PublicUser, error) {
	defer discard(input.AvatarPath, input.CoverImagePath)

	if input.AvatarPath == "" {
		return auth.PublicUser{}, apperr.ValidationError("Avatar file is required",
			apperr.FieldError{Field: auth.FieldAvatar, Message: "Avatar file is required"})
	}

	identity := auth.CreateInput{
		FullName: input.FullName,
		Email:    input.Email,
		UserName: input.UserName,
		Password: input.Password,
	}
	if err := service.credentials.Precheck(context, identity); err != nil {
		return auth.PublicUser{}, fmt.Errorf("account_service_register_failed: %w", err)
	}

	avatar, err := service.upload(context, input.AvatarPath)
	if err != nil {
		return auth.PublicUser{}, err
	}
	uploaded := []auth.Asset{avatar}

	var cover *auth.Asset
	if input.CoverImagePath != "" {
		asset, err := service.upload(context, input.CoverImagePath)
		if err != nil {
			service.assets.deleteBestEffort(context, avatar)
			return auth.PublicUser{}, err
		}
		cover = &asset
		uploaded = append(uploaded, asset)
	}

	identity.Avatar = avatar
	identity.CoverImage = cover

	user, err := service.credentials.Create(context, identity)
	if err != nil {
		for _, asset := range uploaded {
			service.assets.deleteBestEffort(context, asset)
		}
		return auth.PublicUser{}, fmt.Errorf("account_service_register_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "user_registered", slog.String("user_id", user.ID))

	return user.Public(), nil
}

func (service *Service) upload(context context.Context, localPath string) (auth.Asset, error) {
	object, err := service.storage.Upload(context, localPath)
	if err != nil {
		return auth.Asset{}, apperr.UploadFailed(err)
	}
	return auth.Asset{URL: object.URL, StorageID: object.StorageID}, nil
}

// # Profile Management

/*
GetProfile retrieves the public profile of a user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - auth.PublicUser: The user profile
  - error: apperr.NotFound or retrieval failures
*/
func (service *Service) GetProfile(context context.Context, userID string) (auth.PublicUser, error) {
	user, err := service.credentials.FindByID(context, userID)
	if err != nil {
		return auth.PublicUser{}, fmt.Errorf("account_service_get_profile_failed: %w", err)
	}
	return user.Public(), nil
}

// UpdateAccountInput defines the mutable subset of account fields. Nil
// pointers are left unchanged.
type UpdateAccountInput struct {
	FullName *string
	Email    *string
}

/*
UpdateAccount applies a partial set of changes to the account details.

Parameters:
  - context: context.Context
  - userID: string
  - input: UpdateAccountInput

Returns:
  - auth.PublicUser: The updated profile
  - error: apperr.ValidationError, apperr.Conflict, apperr.NotFound or storage errors
*/
func (service *Service) UpdateAccount(context context.Context, userID string, input UpdateAccountInput) (auth.PublicUser, error) {
	fields := auth.Fields{}
	if input.FullName != nil {
		fields[auth.FieldFullName] = *input.FullName
	}
	if input.Email != nil {
		fields[auth.FieldEmail] = *input.Email
	}

	user, err := service.credentials.UpdateFields(context, userID, fields)
	if err != nil {
		return auth.PublicUser{}, fmt.Errorf("account_service_update_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "user_account_updated", slog.String("user_id", userID))

	return user.Public(), nil
}

// # Media

/*
ReplaceAvatar swaps the user's avatar for the uploaded file.

Parameters:
  - context: context.Context
  - userID: string
  - localPath: string (temporary upload, removed on return)

Returns:
  - auth.Asset: The new avatar
  - error: apperr.ValidationError, apperr.UploadFailed, apperr.NotFound or storage errors
*/
func (service *Service) ReplaceAvatar(context context.Context, userID, localPath string) (auth.Asset, error) {
	asset, err := service.replace(context, userID, SlotAvatar, localPath)
	if err != nil {
		return auth.Asset{}, err
	}
	return *asset, nil
}

/*
ReplaceCoverImage swaps or clears the user's cover image.

Parameters:
  - context: context.Context
  - userID: string
  - localPath: string (empty clears the cover)

Returns:
  - *auth.Asset: The new cover, or nil when cleared
  - error: apperr.UploadFailed, apperr.NotFound or storage errors
*/
func (service *Service) ReplaceCoverImage(context context.Context, userID, localPath string) (*auth.Asset, error) {
	return service.replace(context, userID, SlotCoverImage, localPath)
}

func (service *Service) replace(context context.Context, userID string, slot Slot, localPath string) (*auth.Asset, error) {
	user, err := service.credentials.FindByID(context, userID)
	if err != nil {
		discard(localPath)
		return nil, fmt.Errorf("account_service_lookup_failed: %w", err)
	}
	return service.assets.Replace(context, user, slot, localPath)
}
