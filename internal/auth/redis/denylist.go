// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package redis provides a Redis-backed session denylist shared by every
// accountd instance.
package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/accountd/internal/auth"
)

// DefaultKeyPrefix namespaces denylist entries.
const DefaultKeyPrefix = "accountd:revoked:"

// Denylist implements auth.Denylist with one key per revoked token that
// expires together with the token.
type Denylist struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewDenylist creates a Denylist using DefaultKeyPrefix.
func NewDenylist(client goredis.UniversalClient) *Denylist {
	return NewDenylistWithPrefix(client, DefaultKeyPrefix)
}

// NewDenylistWithPrefix creates a Denylist with a custom key prefix.
func NewDenylistWithPrefix(client goredis.UniversalClient, prefix string) *Denylist {
	return &Denylist{client: client, prefix: prefix, now: time.Now}
}

// Revoke implements auth.Denylist. Tokens that already expired are not stored.
func (d *Denylist) Revoke(ctx context.Context, token string, until time.Time) error {
	ttl := auth.RevocationDeadline(until).Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, d.key(token), until.Unix(), ttl).Err(); err != nil {
		return oops.Code("DENYLIST_REVOKE_FAILED").
			With("operation", "redis set").
			Wrap(err)
	}
	return nil
}

// IsRevoked implements auth.Denylist.
func (d *Denylist) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(token)).Result()
	if err != nil {
		return false, oops.Code("DENYLIST_LOOKUP_FAILED").
			With("operation", "redis exists").
			Wrap(err)
	}
	return n > 0, nil
}

func (d *Denylist) key(token string) string {
	return d.prefix + auth.TokenFingerprint(token)
}

// Dial parses a redis:// URL and pings the server.
func Dial(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").
			With("operation", "parse redis url").
			Wrap(err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close() //nolint:errcheck // ping error takes precedence
		return nil, oops.Code("REDIS_CONNECT_FAILED").
			With("operation", "ping redis").
			Wrap(err)
	}
	return client, nil
}

// Compile-time interface check.
var _ auth.Denylist = (*Denylist)(nil)
