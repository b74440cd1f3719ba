// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/ctxutil"
	"github.com/taibuivan/vidora/internal/platform/objstore"
	"github.com/taibuivan/vidora/internal/users/auth"
)

// Slot names the user field an asset is stored under.
type Slot string

const (
	SlotAvatar     Slot = auth.FieldAvatar
	SlotCoverImage Slot = auth.FieldCoverImage
)

// AssetReplacer swaps a user's remote media without leaving dangling objects.
type AssetReplacer struct {
	credentials *auth.CredentialStore
	storage     objstore.Storage
}

// NewAssetReplacer constructs an [AssetReplacer].
func NewAssetReplacer(credentials *auth.CredentialStore, storage objstore.Storage) *AssetReplacer {
	return &AssetReplacer{credentials: credentials, storage: storage}
}

/*
Replace uploads localPath into slot and commits it to the user record.

Description: The local file is removed on every exit path. An upload failure
leaves the record and the previous remote asset untouched. On success the
previous asset is deleted best-effort before the commit. When the commit
fails the new upload is deleted only if the previous object still exists;
otherwise it is kept and logged so the record can be repointed to it. An
empty localPath clears the cover image and is rejected for the avatar.

Parameters:
  - context: context.Context
  - user: *auth.User (current state, used to find the previous asset)
  - slot: Slot
  - localPath: string (may be empty)

Returns:
  - *auth.Asset: The new asset, or nil when the cover was cleared
  - error: apperr.ValidationError, apperr.UploadFailed or storage errors
*/
func (replacer *AssetReplacer) Replace(context context.Context, user *auth.User, slot Slot, localPath string) (*auth.Asset, error) {
	defer discard(localPath)

	if slot != SlotAvatar && slot != SlotCoverImage {
		return nil, apperr.ValidationError("Unknown asset slot: " + string(slot))
	}

	previous := currentAsset(user, slot)

	if localPath == "" {
		if slot == SlotAvatar {
			return nil, apperr.ValidationError("Avatar file is required",
				apperr.FieldError{Field: auth.FieldAvatar, Message: "Avatar file is required"})
		}
		return nil, replacer.clearCover(context, user.ID, previous)
	}

	object, err := replacer.storage.Upload(context, localPath)
	if err != nil {
		return nil, apperr.UploadFailed(err)
	}
	asset := auth.Asset{URL: object.URL, StorageID: object.StorageID}

	previousRemoved := replacer.deleteBestEffort(context, previous)

	var value any = asset
	if slot == SlotCoverImage {
		value = &asset
	}

	if _, err := replacer.credentials.UpdateFields(context, user.ID, auth.Fields{string(slot): value}); err != nil {
		if previousRemoved {
			ctxutil.GetLogger(context).ErrorContext(context, "asset_commit_failed_upload_kept",
				slog.String("user_id", user.ID),
				slog.String("slot", string(slot)),
				slog.String("storage_id", asset.StorageID),
				slog.String("url", asset.URL),
				slog.Any("error", err),
			)
		} else {
			replacer.deleteBestEffort(context, asset)
		}
		return nil, fmt.Errorf("account_asset_commit_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "asset_replaced",
		slog.String("user_id", user.ID),
		slog.String("slot", string(slot)),
	)

	return &asset, nil
}

// clearCover removes the cover from the record, then deletes its object.
func (replacer *AssetReplacer) clearCover(context context.Context, userID string, previous auth.Asset) error {
	if previous.IsZero() {
		return nil
	}

	if _, err := replacer.credentials.UpdateFields(context, userID, auth.Fields{auth.FieldCoverImage: nil}); err != nil {
		return fmt.Errorf("account_cover_clear_failed: %w", err)
	}

	replacer.deleteBestEffort(context, previous)
	return nil
}

// deleteBestEffort removes asset from object storage, logging any failure.
// It reports whether an object was actually removed.
func (replacer *AssetReplacer) deleteBestEffort(context context.Context, asset auth.Asset) bool {
	if asset.StorageID == "" {
		return false
	}
	if err := replacer.storage.Delete(context, asset.StorageID); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "asset_delete_failed",
			slog.String("storage_id", asset.StorageID),
			slog.Any("error", err),
		)
		return false
	}
	return true
}

func currentAsset(user *auth.User, slot Slot) auth.Asset {
	if slot == SlotAvatar {
		return user.Avatar
	}
	if user.CoverImage != nil {
		return *user.CoverImage
	}
	return auth.Asset{}
}

// discard removes temporary upload files, ignoring errors.
func discard(paths ...string) {
	for _, path := range paths {
		if path != "" {
			_ = os.Remove(path)
		}
	}
}
