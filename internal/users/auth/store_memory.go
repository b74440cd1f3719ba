// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/vidora/internal/platform/apperr"
)

// # In-Memory Repository

// MemoryUserRepository implements [UserRepository] in process memory.
//
// It backs STORE_DRIVER=memory and the package tests. Unique userName/email
// and the refresh-hash compare-and-set behave exactly like the durable stores.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*User
	now   func() time.Time
}

// NewMemoryUserRepository creates an empty in-memory repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[string]*User),
		now:   time.Now,
	}
}

// Insert stores a copy of user, enforcing userName and email uniqueness.
func (repository *MemoryUserRepository) Insert(_ context.Context, user *User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, exists := repository.users[user.ID]; exists {
		return apperr.Conflict("User already exists")
	}
	if repository.taken("", user.UserName, user.Email) {
		return apperr.Conflict("User with email or username already exists")
	}

	repository.users[user.ID] = clone(user)
	return nil
}

// FindByID returns a copy of the user with the given ID.
func (repository *MemoryUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	user, ok := repository.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	return clone(user), nil
}

// FindByUserName returns a copy of the user with the given userName.
func (repository *MemoryUserRepository) FindByUserName(_ context.Context, userName string) (*User, error) {
	return repository.findBy(func(user *User) bool { return user.UserName == userName })
}

// FindByEmail returns a copy of the user with the given email.
func (repository *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	return repository.findBy(func(user *User) bool { return user.Email == email })
}

// UpdateFields applies fields to the stored record.
func (repository *MemoryUserRepository) UpdateFields(_ context.Context, id string, fields Fields) (*User, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}

	updated := clone(user)
	for key, value := range fields {
		switch key {
		case FieldFullName:
			updated.FullName = value.(string)
		case FieldEmail:
			updated.Email = value.(string)
		case FieldUserName:
			updated.UserName = value.(string)
		case FieldAvatar:
			updated.Avatar = value.(Asset)
		case FieldCoverImage:
			updated.CoverImage = cloneAsset(value.(*Asset))
		}
	}

	if repository.taken(id, updated.UserName, updated.Email) {
		return nil, apperr.Conflict("User with email or username already exists")
	}

	updated.UpdatedAt = repository.now().UTC()
	repository.users[id] = updated
	return clone(updated), nil
}

// UpdatePassword replaces the stored password hash.
func (repository *MemoryUserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return repository.mutate(id, func(user *User) { user.PasswordHash = passwordHash })
}

// SetRefreshHash replaces the stored session hash unconditionally.
func (repository *MemoryUserRepository) SetRefreshHash(_ context.Context, id, hash string) error {
	return repository.mutate(id, func(user *User) { user.RefreshTokenHash = hash })
}

// SwapRefreshHash replaces the session hash only if it still equals expected.
func (repository *MemoryUserRepository) SwapRefreshHash(_ context.Context, id, expected, next string) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[id]
	if !ok || user.RefreshTokenHash != expected {
		return false, nil
	}

	user.RefreshTokenHash = next
	user.UpdatedAt = repository.now().UTC()
	return true, nil
}

// Ping always succeeds.
func (repository *MemoryUserRepository) Ping(context.Context) error {
	return nil
}

// # Helpers

func (repository *MemoryUserRepository) findBy(match func(*User) bool) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	for _, user := range repository.users {
		if match(user) {
			return clone(user), nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repository *MemoryUserRepository) mutate(id string, apply func(*User)) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[id]
	if !ok {
		return apperr.NotFound("User")
	}

	apply(user)
	user.UpdatedAt = repository.now().UTC()
	return nil
}

// taken reports whether userName or email belongs to a user other than selfID.
// Callers must hold the lock.
func (repository *MemoryUserRepository) taken(selfID, userName, email string) bool {
	for id, user := range repository.users {
		if id == selfID {
			continue
		}
		if user.UserName == userName || user.Email == email {
			return true
		}
	}
	return false
}

func clone(user *User) *User {
	copied := *user
	copied.CoverImage = cloneAsset(user.CoverImage)
	return &copied
}

func cloneAsset(asset *Asset) *Asset {
	if asset == nil {
		return nil
	}
	copied := *asset
	return &copied
}
