// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/vidora/internal/platform/constants"
	"github.com/taibuivan/vidora/pkg/uuid"
)

// ErrRefreshInFlight is returned by a [RefreshLocker] when another refresh for
// the same user currently holds the lock.
var ErrRefreshInFlight = errors.New("refresh already in flight")

// RefreshLocker serializes refreshes per user ahead of the store-level
// compare-and-set. Implementations must never block waiting for the lock.
type RefreshLocker interface {

	/*
		Lock acquires the per-user refresh lock.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - func(): Releases the lock; safe to call once
		  - error: ErrRefreshInFlight on contention, or connectivity errors
	*/
	Lock(context context.Context, userID string) (func(), error)
}

// releaseScript deletes the key only if it still carries this holder's token,
// so a lock that expired and was re-acquired elsewhere is never released.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRefreshLocker implements [RefreshLocker] with SET NX PX.
type RedisRefreshLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisRefreshLocker creates a Redis-backed [RefreshLocker].
func NewRedisRefreshLocker(client redis.UniversalClient, ttl time.Duration) *RedisRefreshLocker {
	return &RedisRefreshLocker{client: client, ttl: ttl}
}

/*
Lock acquires auth:refresh_lock:<userID> for at most the configured TTL.

Returns:
  - func(): Compare-and-delete release
  - error: ErrRefreshInFlight on contention, or Redis errors
*/
func (locker *RedisRefreshLocker) Lock(context context.Context, userID string) (func(), error) {
	key := constants.RedisPrefixRefreshLock + userID
	holder := uuid.New()

	acquired, err := locker.client.SetNX(context, key, holder, locker.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis_refresh_lock_failed: %w", err)
	}
	if !acquired {
		return nil, ErrRefreshInFlight
	}

	release := func() {
		// Release on a fresh context so a cancelled request still frees the key.
		releaseCtx, cancel := contextWithTimeout(2 * time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, locker.client, []string{key}, holder).Err()
	}

	return release, nil
}

func contextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
