// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Denylist records removed session tokens until they would have expired.
//
// Sessions are stateless, so without a denylist removing a session only
// acknowledges it: the token keeps verifying until its expiry or until the
// account password changes.
type Denylist interface {
	// Revoke denies token while it would still verify. until is the
	// token's expiry; see RevocationDeadline.
	Revoke(ctx context.Context, token string, until time.Time) error

	// IsRevoked reports whether token has been denied.
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// NopDenylist never revokes anything.
type NopDenylist struct{}

// Revoke implements Denylist.
func (NopDenylist) Revoke(context.Context, string, time.Time) error { return nil }

// IsRevoked implements Denylist.
func (NopDenylist) IsRevoked(context.Context, string) (bool, error) { return false, nil }

// TokenFingerprint hashes a token for use as a denylist key so raw bearer
// tokens are never written to shared storage.
func TokenFingerprint(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// RevocationDeadline returns the first instant a token expiring at until is
// rejected on its own. Tokens carry whole-second expiries and verify through
// the whole expiry second, so a denial must last until the next second.
func RevocationDeadline(until time.Time) time.Time {
	return time.Unix(until.Unix()+1, 0)
}

// Compile-time interface check.
var _ Denylist = NopDenylist{}
