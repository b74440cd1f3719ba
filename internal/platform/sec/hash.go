// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// HashPassword hashes a plain-text password using bcrypt at the given cost.
// A cost below [bcrypt.MinCost] falls back to [bcrypt.DefaultCost].
func HashPassword(plainTextPassword string, cost int) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plain-text password with its hashed version in
// constant time. A malformed hash simply fails the comparison.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}

// HashRefreshToken hashes a refresh token for storage on the user record.
//
// Signed tokens are longer than bcrypt's 72-byte input limit, so the token is
// first reduced to its hex SHA-256 digest (64 bytes) and the digest is bcrypted.
func HashRefreshToken(token string, cost int) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(digest(token)), cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash refresh token: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckRefreshTokenHash reports whether token matches a hash produced by
// [HashRefreshToken].
func CheckRefreshTokenHash(token, existingHash string) bool {
	if existingHash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(digest(token)))
	return err == nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
