// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accountd/internal/auth"
	"github.com/holomush/accountd/pkg/errutil"
)

func newTestDenylist(t *testing.T) (*Denylist, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewDenylist(client), mr
}

func TestDenylist_RevokeThenIsRevoked(t *testing.T) {
	ctx := context.Background()
	d, mr := newTestDenylist(t)

	revoked, err := d.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, "token-a", time.Now().Add(time.Hour)))

	revoked, err = d.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = d.IsRevoked(ctx, "token-b")
	require.NoError(t, err)
	assert.False(t, revoked, "other tokens stay valid")

	assert.True(t, mr.Exists(DefaultKeyPrefix+auth.TokenFingerprint("token-a")))
}

func TestDenylist_StoresFingerprintNotToken(t *testing.T) {
	ctx := context.Background()
	d, mr := newTestDenylist(t)

	require.NoError(t, d.Revoke(ctx, "raw-bearer-token", time.Now().Add(time.Hour)))

	for _, key := range mr.Keys() {
		assert.NotContains(t, key, "raw-bearer-token")
	}
}

func TestDenylist_EntryExpiresWithToken(t *testing.T) {
	ctx := context.Background()
	d, mr := newTestDenylist(t)

	require.NoError(t, d.Revoke(ctx, "token", time.Now().Add(time.Minute)))
	mr.FastForward(2 * time.Minute)

	revoked, err := d.IsRevoked(ctx, "token")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestDenylist_RevokeDuringExpirySecond(t *testing.T) {
	ctx := context.Background()
	d, mr := newTestDenylist(t)

	// The token still verifies for the rest of its expiry second.
	until := time.Unix(1700000000, 0)
	d.now = func() time.Time { return until.Add(600 * time.Millisecond) }

	require.NoError(t, d.Revoke(ctx, "token", until))

	revoked, err := d.IsRevoked(ctx, "token")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(time.Second)
	revoked, err = d.IsRevoked(ctx, "token")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestDenylist_SkipsExpiredTokens(t *testing.T) {
	ctx := context.Background()
	d, mr := newTestDenylist(t)

	require.NoError(t, d.Revoke(ctx, "token", time.Now().Add(-time.Minute)))
	assert.Empty(t, mr.Keys())
}

func TestDenylist_CustomPrefix(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	d := NewDenylistWithPrefix(client, "test:")

	require.NoError(t, d.Revoke(ctx, "token", time.Now().Add(time.Hour)))
	assert.True(t, mr.Exists("test:"+auth.TokenFingerprint("token")))
}

func TestDenylist_ServerErrors(t *testing.T) {
	ctx := context.Background()
	d, mr := newTestDenylist(t)
	mr.Close()

	err := d.Revoke(ctx, "token", time.Now().Add(time.Hour))
	errutil.AssertErrorCode(t, err, "DENYLIST_REVOKE_FAILED")

	_, err = d.IsRevoked(ctx, "token")
	errutil.AssertErrorCode(t, err, "DENYLIST_LOOKUP_FAILED")
}

func TestDial(t *testing.T) {
	ctx := context.Background()

	t.Run("connects to a live server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := Dial(ctx, "redis://"+mr.Addr())
		require.NoError(t, err)
		assert.NoError(t, client.Close())
	})

	t.Run("rejects malformed url", func(t *testing.T) {
		_, err := Dial(ctx, "not a url")
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	})
}
