// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the credential and session lifecycle of a Vidora account.

# Architecture

  - CredentialStore: Owns identity records and password hashing. It is the only
    component that reaches the [UserRepository].
  - Service: The session manager (Login, Refresh, Logout, ChangePassword). It
    owns the one-active-refresh-token-per-user invariant.
  - Repositories: MongoDB (default), PostgreSQL and in-memory implementations of
    [UserRepository]. Only these build store-specific queries.
  - Handler: JSON + cookie transport for the session endpoints.
*/
package auth

import (
	"time"
)

// # Domain Entities

// Asset is a remote media object tied to a user record.
type Asset struct {
	URL       string `json:"url"       bson:"url"`
	StorageID string `json:"storageId" bson:"storageId"`
}

// IsZero reports whether the asset carries no remote object.
func (asset Asset) IsZero() bool {
	return asset.URL == "" && asset.StorageID == ""
}

// User is the persisted identity record.
//
// PasswordHash and RefreshTokenHash never leave the process; use [User.Public]
// for anything rendered to a client.
type User struct {
	ID               string    `bson:"_id"`
	UserName         string    `bson:"userName"`
	Email            string    `bson:"email"`
	FullName         string    `bson:"fullName"`
	PasswordHash     string    `bson:"passwordHash"`
	Avatar           Asset     `bson:"avatar"`
	CoverImage       *Asset    `bson:"coverImage,omitempty"`
	RefreshTokenHash string    `bson:"refreshTokenHash"`
	CreatedAt        time.Time `bson:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt"`
}

// PublicUser is the client-facing projection of [User].
type PublicUser struct {
	ID         string    `json:"id"`
	UserName   string    `json:"userName"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Public returns the client-safe view of the user.
func (user *User) Public() PublicUser {
	public := PublicUser{
		ID:        user.ID,
		UserName:  user.UserName,
		Email:     user.Email,
		FullName:  user.FullName,
		Avatar:    user.Avatar.URL,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	if user.CoverImage != nil {
		public.CoverImage = user.CoverImage.URL
	}
	return public
}

// sanitized returns a copy without credential material.
func (user *User) sanitized() *User {
	clone := *user
	clone.PasswordHash = ""
	clone.RefreshTokenHash = ""
	if user.CoverImage != nil {
		cover := *user.CoverImage
		clone.CoverImage = &cover
	}
	return &clone
}

// # Partial Updates

// Fields is an allow-listed partial update keyed by the Field* constants.
//
// Value types: string for FieldFullName, FieldEmail and FieldUserName;
// [Asset] for FieldAvatar; *[Asset] for FieldCoverImage (nil clears it).
type Fields map[string]any

// # Field Identifiers

// Global field names shared by validation, storage documents and JSON payloads.
const (
	FieldFullName        = "fullName"
	FieldEmail           = "email"
	FieldUserName        = "userName"
	FieldPassword        = "password"
	FieldAvatar          = "avatar"
	FieldCoverImage      = "coverImage"
	FieldOldPassword     = "oldPassword"
	FieldNewPassword     = "newPassword"
	FieldConfirmPassword = "confirmPassword"
)

// updatableFields is the allow-list accepted by UpdateFields.
var updatableFields = map[string]bool{
	FieldFullName:   true,
	FieldEmail:      true,
	FieldUserName:   true,
	FieldAvatar:     true,
	FieldCoverImage: true,
}
