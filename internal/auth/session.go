// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // G505: HMAC-SHA1 keeps tokens compatible with CouchDB AuthSession cookies
	"crypto/subtle"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
)

// SessionTimeout is the fixed lifetime of a session from issuance.
// The expiry is baked into the token and never extended.
const SessionTimeout = 1209600 * time.Second // 14 days

// Session is a resolved bearer session. Account is nil for the admin identity
// and when no account payload was requested on removal.
type Session struct {
	ID      string
	Account *AccountView
}

// SessionCodec derives and verifies stateless session tokens.
//
// A token is base64url(name ":" HEX(expiry) ":" HMAC-SHA1(secret+salt, name ":" HEX(expiry))),
// so it can only be reproduced by someone holding the process secret and
// the identity's current salt.
type SessionCodec struct {
	secret  string
	timeout time.Duration
	now     func() time.Time
}

// CodecOption configures a SessionCodec.
type CodecOption func(*SessionCodec)

// WithClock overrides the time source used for issuance and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *SessionCodec) { c.now = now }
}

// WithTimeout overrides SessionTimeout.
func WithTimeout(d time.Duration) CodecOption {
	return func(c *SessionCodec) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewSessionCodec creates a codec bound to the process-wide secret.
func NewSessionCodec(secret string, opts ...CodecOption) (*SessionCodec, error) {
	if secret == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("session secret cannot be empty")
	}
	c := &SessionCodec{
		secret:  secret,
		timeout: SessionTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DeriveSessionID computes the token for name and salt expiring at expiry
// (epoch seconds). It is a pure function of its inputs.
func DeriveSessionID(name, salt, secret string, expiry int64) string {
	data := name + ":" + strings.ToUpper(strconv.FormatInt(expiry, 16))

	mac := hmac.New(sha1.New, []byte(secret+salt))
	mac.Write([]byte(data)) //nolint:errcheck // hash.Hash writes never fail

	var buf bytes.Buffer
	buf.WriteString(data)
	buf.WriteByte(':')
	buf.Write(mac.Sum(nil))

	return base64.RawURLEncoding.EncodeToString(buf.Bytes())
}

// DecodeSessionID recovers the claimed identity name and expiry from a token
// without checking its signature.
func DecodeSessionID(token string) (name string, expiry int64, err error) {
	if token == "" {
		return "", 0, oops.Code("MALFORMED_SESSION").Errorf("session token cannot be empty")
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", 0, oops.Code("MALFORMED_SESSION").
			With("operation", "decode base64").
			Wrap(err)
	}

	parts := bytes.SplitN(raw, []byte(":"), 3)
	if len(parts) != 3 || len(parts[0]) == 0 || len(parts[2]) != sha1.Size {
		return "", 0, oops.Code("MALFORMED_SESSION").Errorf("session token has an invalid layout")
	}

	expiry, err = strconv.ParseInt(string(parts[1]), 16, 64)
	if err != nil {
		return "", 0, oops.Code("MALFORMED_SESSION").
			With("operation", "parse expiry").
			Wrap(err)
	}

	return string(parts[0]), expiry, nil
}

// Issue derives a token for name and salt expiring one timeout from now.
func (c *SessionCodec) Issue(name, salt string) string {
	expiry := c.now().Add(c.timeout).Unix()
	return DeriveSessionID(name, salt, c.secret, expiry)
}

// Verify reports whether token was issued for name with the given current
// salt and has not expired. Malformed tokens simply fail verification.
func (c *SessionCodec) Verify(token, name, salt string) bool {
	claimed, expiry, err := DecodeSessionID(token)
	if err != nil || claimed != name {
		return false
	}
	if c.now().Unix() > expiry {
		return false
	}
	expected := DeriveSessionID(name, salt, c.secret, expiry)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 1
}

// Expiry returns the expiry encoded in token.
func (c *SessionCodec) Expiry(token string) (time.Time, error) {
	_, expiry, err := DecodeSessionID(token)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(expiry, 0), nil
}
