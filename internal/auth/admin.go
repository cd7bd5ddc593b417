// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// adminHashPrefix marks a CouchDB-style hashed admin password:
// -pbkdf2-<derived key hex>,<salt>,<iterations>
const adminHashPrefix = "-pbkdf2-"

// AdminProvider is the origin of the administrative identity.
//
// Every method returns an error wrapping ErrNotFound when the identity in
// question is not the administrative identity. Any other error means the
// identity is the admin but was rejected.
type AdminProvider interface {
	// ValidatePassword checks the admin password for username.
	ValidatePassword(ctx context.Context, username, password string) error

	// CalculateSessionID issues a session token for the admin username.
	CalculateSessionID(ctx context.Context, username string) (string, error)

	// ValidateSession checks that token is a live admin session.
	ValidateSession(ctx context.Context, token string) error
}

// ConfigAdmin is an AdminProvider for a single admin defined in configuration.
// A ConfigAdmin with an empty username has no admin and reports every
// identity as not found.
type ConfigAdmin struct {
	username string
	creds    Credentials
	verifier *BoundedVerifier
	codec    *SessionCodec
}

// NewConfigAdmin creates the admin provider. creds must be set when username is.
func NewConfigAdmin(username string, creds Credentials, verifier *BoundedVerifier, codec *SessionCodec) (*ConfigAdmin, error) {
	if verifier == nil {
		return nil, oops.Errorf("credential verifier is required")
	}
	if codec == nil {
		return nil, oops.Errorf("session codec is required")
	}
	if username != "" {
		if err := ValidateUsername(username); err != nil {
			return nil, err
		}
		if creds.Salt == "" || creds.DerivedKey == "" {
			return nil, oops.Code("CONFIG_INVALID").
				With("username", username).
				Errorf("admin credentials are required")
		}
	}
	return &ConfigAdmin{
		username: username,
		creds:    creds,
		verifier: verifier,
		codec:    codec,
	}, nil
}

func (a *ConfigAdmin) isAdmin(username string) bool {
	return a.username != "" && username == a.username
}

// ValidatePassword implements AdminProvider.
func (a *ConfigAdmin) ValidatePassword(ctx context.Context, username, password string) error {
	if !a.isAdmin(username) {
		return oops.With("username", username).Wrap(ErrNotFound)
	}
	ok, err := a.verifier.Verify(ctx, password, a.creds)
	if err != nil {
		return err //nolint:wrapcheck // verifier errors propagate unchanged
	}
	if !ok {
		return kindError(KindUnauthorizedPassword).
			With("username", username).
			Errorf("invalid admin password")
	}
	return nil
}

// CalculateSessionID implements AdminProvider.
func (a *ConfigAdmin) CalculateSessionID(_ context.Context, username string) (string, error) {
	if !a.isAdmin(username) {
		return "", oops.With("username", username).Wrap(ErrNotFound)
	}
	return a.codec.Issue(a.username, a.creds.Salt), nil
}

// ValidateSession implements AdminProvider. Tokens that cannot be decoded or
// that claim another identity are not admin sessions.
func (a *ConfigAdmin) ValidateSession(_ context.Context, token string) error {
	name, _, err := DecodeSessionID(token)
	if err != nil || !a.isAdmin(name) {
		return oops.With("claimed", name).Wrap(ErrNotFound)
	}
	if !a.codec.Verify(token, a.username, a.creds.Salt) {
		return kindError(KindInvalidSession).
			With("username", name).
			Errorf("admin session invalid or expired")
	}
	return nil
}

// ParseAdminHash parses a "-pbkdf2-<derived>,<salt>,<iterations>" record.
func ParseAdminHash(record string) (Credentials, error) {
	rest, found := strings.CutPrefix(record, adminHashPrefix)
	if !found {
		return Credentials{}, oops.Code("CONFIG_INVALID").Errorf("admin password hash must start with %q", adminHashPrefix)
	}
	parts := strings.Split(rest, ",")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return Credentials{}, oops.Code("CONFIG_INVALID").Errorf("admin password hash must have derived key, salt and iterations")
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations < 1 {
		return Credentials{}, oops.Code("CONFIG_INVALID").
			With("iterations", parts[2]).
			Errorf("admin password hash has an invalid iteration count")
	}
	return Credentials{
		Scheme:     PasswordScheme,
		DerivedKey: strings.ToLower(parts[0]),
		Salt:       parts[1],
		Iterations: iterations,
	}, nil
}

// FormatAdminHash renders credentials in the form ParseAdminHash accepts.
func FormatAdminHash(creds Credentials) string {
	return fmt.Sprintf("%s%s,%s,%d", adminHashPrefix, creds.DerivedKey, creds.Salt, creds.Iterations)
}

// Compile-time interface check.
var _ AdminProvider = (*ConfigAdmin)(nil)
