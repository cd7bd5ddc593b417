// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"runtime"

	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"
)

// BoundedVerifier runs key derivations on a limited number of concurrent
// slots so iterated hashing cannot starve other request handling.
// Waiting for a slot honors context cancellation; a derivation that has
// started always runs to completion.
type BoundedVerifier struct {
	inner CredentialVerifier
	slots *semaphore.Weighted
}

// NewBoundedVerifier wraps inner with at most concurrency simultaneous
// derivations. Non-positive concurrency defaults to GOMAXPROCS.
func NewBoundedVerifier(inner CredentialVerifier, concurrency int) (*BoundedVerifier, error) {
	if inner == nil {
		return nil, oops.Errorf("credential verifier is required")
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	return &BoundedVerifier{
		inner: inner,
		slots: semaphore.NewWeighted(int64(concurrency)),
	}, nil
}

// Verify checks a password against stored material once a slot is free.
func (b *BoundedVerifier) Verify(ctx context.Context, password string, creds Credentials) (bool, error) {
	if err := b.slots.Acquire(ctx, 1); err != nil {
		return false, oops.Code("VERIFICATION_CANCELLED").
			With("operation", "acquire hash slot").
			Wrap(err)
	}
	defer b.slots.Release(1)

	//nolint:wrapcheck // verifier errors carry their own codes and propagate unchanged
	return b.inner.Verify(password, creds.Salt, creds.Iterations, creds.DerivedKey)
}

// Derive produces fresh credentials once a slot is free.
func (b *BoundedVerifier) Derive(ctx context.Context, password string) (Credentials, error) {
	if err := b.slots.Acquire(ctx, 1); err != nil {
		return Credentials{}, oops.Code("VERIFICATION_CANCELLED").
			With("operation", "acquire hash slot").
			Wrap(err)
	}
	defer b.slots.Release(1)

	//nolint:wrapcheck // verifier errors carry their own codes and propagate unchanged
	return b.inner.Derive(password)
}
