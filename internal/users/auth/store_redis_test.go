// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/vidora/internal/users/auth"
)

// # Fakes

// keyspaceHook answers SET NX and the release script from an in-memory map
// so the locker runs without a Redis server.
type keyspaceHook struct {
	mu   sync.Mutex
	keys map[string]string
	err  error
}

func (hook *keyspaceHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("dial disabled")
	}
}

func (hook *keyspaceHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		hook.mu.Lock()
		defer hook.mu.Unlock()

		if hook.err != nil {
			cmd.SetErr(hook.err)
			return hook.err
		}

		args := cmd.Args()
		switch cmd.Name() {
		case "set":
			key, value := args[1].(string), args[2].(string)
			_, taken := hook.keys[key]
			if !taken {
				hook.keys[key] = value
			}
			cmd.(*redis.BoolCmd).SetVal(!taken)
		case "evalsha", "eval":
			key, holder := args[3].(string), args[4].(string)
			var removed int64
			if hook.keys[key] == holder {
				delete(hook.keys, key)
				removed = 1
			}
			cmd.(*redis.Cmd).SetVal(removed)
		default:
			err := errors.New("unsupported command " + cmd.Name())
			cmd.SetErr(err)
			return err
		}
		return nil
	}
}

func (hook *keyspaceHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (hook *keyspaceHook) held(key string) bool {
	hook.mu.Lock()
	defer hook.mu.Unlock()
	_, ok := hook.keys[key]
	return ok
}

func (hook *keyspaceHook) expire(key string) {
	hook.mu.Lock()
	defer hook.mu.Unlock()
	delete(hook.keys, key)
}

func newRedisLocker(t *testing.T) (*auth.RedisRefreshLocker, *keyspaceHook) {
	t.Helper()
	hook := &keyspaceHook{keys: map[string]string{}}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	client.AddHook(hook)
	t.Cleanup(func() { _ = client.Close() })
	return auth.NewRedisRefreshLocker(client, 5*time.Second), hook
}

// # Locker

func TestRedisRefreshLocker_Lock(t *testing.T) {
	ctx := context.Background()

	t.Run("contention_is_per_user", func(t *testing.T) {
		locker, hook := newRedisLocker(t)

		release, err := locker.Lock(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, hook.held("auth:refresh_lock:alice"))

		_, err = locker.Lock(ctx, "alice")
		assert.ErrorIs(t, err, auth.ErrRefreshInFlight)

		releaseBob, err := locker.Lock(ctx, "bob")
		require.NoError(t, err)
		releaseBob()

		release()
		assert.False(t, hook.held("auth:refresh_lock:alice"))

		again, err := locker.Lock(ctx, "alice")
		require.NoError(t, err)
		again()
	})

	t.Run("stale_release_keeps_new_holder", func(t *testing.T) {
		locker, hook := newRedisLocker(t)

		stale, err := locker.Lock(ctx, "alice")
		require.NoError(t, err)

		hook.expire("auth:refresh_lock:alice")

		current, err := locker.Lock(ctx, "alice")
		require.NoError(t, err)

		stale()
		assert.True(t, hook.held("auth:refresh_lock:alice"), "an expired holder must not release the new lock")

		current()
		assert.False(t, hook.held("auth:refresh_lock:alice"))
	})

	t.Run("redis_error", func(t *testing.T) {
		locker, hook := newRedisLocker(t)
		hook.err = errors.New("connection refused")

		release, err := locker.Lock(ctx, "alice")
		require.Error(t, err)
		assert.Nil(t, release)
		assert.NotErrorIs(t, err, auth.ErrRefreshInFlight)
	})
}

// TestRedisRefreshLocker_Concurrent verifies that exactly one of several
// simultaneous callers acquires the lock.
func TestRedisRefreshLocker_Concurrent(t *testing.T) {
	locker, _ := newRedisLocker(t)
	ctx := context.Background()

	const callers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired int
		releases []func()
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(ctx, "alice")
			if err != nil {
				return
			}
			mu.Lock()
			acquired++
			releases = append(releases, release)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, acquired)
	for _, release := range releases {
		release()
	}
}
