// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha1" //nolint:gosec // G505: PBKDF2-SHA1 is required for compatibility with stored credentials
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters. DerivedKeyLength must stay at 20 bytes so previously
// issued credentials keep verifying; changing it needs a migration plan.
const (
	PasswordScheme    = "pbkdf2"
	DerivedKeyLength  = 20
	DefaultIterations = 10
	saltBytes         = 16
	maxIterations     = 1 << 24
)

// ErrEmptyPassword is returned when attempting to derive credentials for an empty password.
var ErrEmptyPassword = oops.Code(string(KindInvalidAccount)).Errorf("password cannot be empty")

// Credentials is the stored password hash material of an account.
type Credentials struct {
	Scheme     string
	Salt       string
	Iterations int
	DerivedKey string
}

// CredentialVerifier derives and verifies password credentials.
type CredentialVerifier interface {
	// Derive produces fresh credentials (new random salt) for the password.
	Derive(password string) (Credentials, error)

	// Verify checks the password against stored material.
	// Returns (true, nil) on match, (false, nil) on mismatch, or an error
	// coded VERIFICATION_FAILED when the parameters cannot be derived.
	Verify(password, salt string, iterations int, derivedKeyHex string) (bool, error)
}

// PBKDF2Hasher implements CredentialVerifier with PBKDF2-HMAC-SHA1.
type PBKDF2Hasher struct {
	iterations int
}

// NewPBKDF2Hasher creates a hasher that derives new credentials with the given
// iteration count. Non-positive values fall back to DefaultIterations.
func NewPBKDF2Hasher(iterations int) *PBKDF2Hasher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &PBKDF2Hasher{iterations: iterations}
}

// Derive produces fresh credentials for password.
func (h *PBKDF2Hasher) Derive(password string) (Credentials, error) {
	if password == "" {
		return Credentials{}, ErrEmptyPassword
	}

	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return Credentials{}, oops.Code(string(KindVerificationFailed)).
			With("operation", "generate salt").
			Wrap(err)
	}
	return h.DeriveWithSalt(password, hex.EncodeToString(raw))
}

// DeriveWithSalt produces credentials for password using a caller-chosen salt.
func (h *PBKDF2Hasher) DeriveWithSalt(password, salt string) (Credentials, error) {
	if password == "" {
		return Credentials{}, ErrEmptyPassword
	}
	if salt == "" {
		return Credentials{}, oops.Code(string(KindVerificationFailed)).Errorf("salt cannot be empty")
	}
	return Credentials{
		Scheme:     PasswordScheme,
		Salt:       salt,
		Iterations: h.iterations,
		DerivedKey: deriveKeyHex(password, salt, h.iterations),
	}, nil
}

// AdminSalt returns the salt for an admin configured with a plaintext
// password: HMAC-SHA256(secret, "admin:"+username), hex encoded and cut to
// the length of a random salt. Every process sharing secret derives the same
// salt, so admin tokens survive restarts and validate across instances.
func AdminSalt(secret, username string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("admin:" + username))
	return hex.EncodeToString(mac.Sum(nil)[:saltBytes])
}

// Verify checks password against the stored salt, iteration count and
// hex-encoded derived key.
func (h *PBKDF2Hasher) Verify(password, salt string, iterations int, derivedKeyHex string) (bool, error) {
	if salt == "" {
		return false, oops.Code(string(KindVerificationFailed)).Errorf("salt cannot be empty")
	}
	if iterations < 1 || iterations > maxIterations {
		return false, oops.Code(string(KindVerificationFailed)).
			With("iterations", iterations).
			Errorf("invalid iteration count %d", iterations)
	}
	expected, err := hex.DecodeString(strings.ToLower(derivedKeyHex))
	if err != nil {
		return false, oops.Code(string(KindVerificationFailed)).
			With("operation", "decode derived key").
			Wrap(err)
	}
	if len(expected) != DerivedKeyLength {
		return false, oops.Code(string(KindVerificationFailed)).
			With("length", len(expected)).
			Errorf("derived key must be %d bytes", DerivedKeyLength)
	}

	computed := pbkdf2.Key([]byte(password), []byte(salt), iterations, DerivedKeyLength, sha1.New)

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// The salt is mixed in as its hex string bytes, the same way CouchDB does.
func deriveKeyHex(password, salt string, iterations int) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, DerivedKeyLength, sha1.New)
	return hex.EncodeToString(key)
}

// Compile-time interface check.
var _ CredentialVerifier = (*PBKDF2Hasher)(nil)
