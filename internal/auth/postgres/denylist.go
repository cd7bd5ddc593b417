// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/accountd/internal/auth"
)

// Denylist implements auth.Denylist on the revoked_sessions table. Only token
// fingerprints are stored.
type Denylist struct {
	db Querier
}

// NewDenylist creates a new Denylist.
func NewDenylist(db Querier) *Denylist {
	return &Denylist{db: db}
}

// Revoke implements auth.Denylist. expires_at holds the revocation deadline,
// the first instant the token is rejected without the denylist.
func (d *Denylist) Revoke(ctx context.Context, token string, until time.Time) error {
	_, err := d.db.Exec(ctx, `
		INSERT INTO revoked_sessions (fingerprint, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (fingerprint) DO NOTHING
	`, auth.TokenFingerprint(token), auth.RevocationDeadline(until))
	if err != nil {
		return oops.Code("DENYLIST_REVOKE_FAILED").
			With("operation", "insert revoked session").
			Wrap(err)
	}
	return nil
}

// IsRevoked implements auth.Denylist.
func (d *Denylist) IsRevoked(ctx context.Context, token string) (bool, error) {
	var revoked bool
	err := d.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM revoked_sessions WHERE fingerprint = $1 AND expires_at > $2
		)
	`, auth.TokenFingerprint(token), time.Now()).Scan(&revoked)
	if err != nil {
		return false, oops.Code("DENYLIST_LOOKUP_FAILED").
			With("operation", "select revoked session").
			Wrap(err)
	}
	return revoked, nil
}

// PurgeExpired deletes entries whose tokens have expired anyway and returns
// how many were removed.
func (d *Denylist) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := d.db.Exec(ctx, `DELETE FROM revoked_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("DENYLIST_PURGE_FAILED").
			With("operation", "delete expired revoked sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.Denylist = (*Denylist)(nil)
