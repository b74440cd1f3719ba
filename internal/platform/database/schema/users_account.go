// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the relational tables and columns so queries are built
// from one definition instead of repeated string literals.
package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table            string
	ID               string
	UserName         string
	Email            string
	FullName         string
	PasswordHash     string
	AvatarURL        string
	AvatarStorageID  string
	CoverURL         string
	CoverStorageID   string
	RefreshTokenHash string
	CreatedAt        string
	UpdatedAt        string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:            "users.account",
	ID:               "id",
	UserName:         "username",
	Email:            "email",
	FullName:         "fullname",
	PasswordHash:     "passwordhash",
	AvatarURL:        "avatarurl",
	AvatarStorageID:  "avatarstorageid",
	CoverURL:         "coverurl",
	CoverStorageID:   "coverstorageid",
	RefreshTokenHash: "refreshtokenhash",
	CreatedAt:        "createdat",
	UpdatedAt:        "updatedat",
}

// Columns returns all standard column names in scan order
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.UserName, t.Email, t.FullName, t.PasswordHash,
		t.AvatarURL, t.AvatarStorageID, t.CoverURL, t.CoverStorageID,
		t.RefreshTokenHash, t.CreatedAt, t.UpdatedAt,
	}
}
