// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// SessionService issues and validates sessions for stored accounts.
// It reports raw outcomes (ACCOUNT_NOT_FOUND, UNAUTHORIZED_PASSWORD,
// INVALID_SESSION); the Resolver coarsens them for callers.
type SessionService struct {
	accounts *AccountService
	codec    *SessionCodec
	denylist Denylist
	logger   *slog.Logger
}

// NewSessionService creates a SessionService. A nil denylist disables revocation.
func NewSessionService(accounts *AccountService, codec *SessionCodec, denylist Denylist, logger *slog.Logger) (*SessionService, error) {
	if accounts == nil {
		return nil, oops.Errorf("account service is required")
	}
	if codec == nil {
		return nil, oops.Errorf("session codec is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	if denylist == nil {
		denylist = NopDenylist{}
	}
	return &SessionService{
		accounts: accounts,
		codec:    codec,
		denylist: denylist,
		logger:   logger,
	}, nil
}

// Add verifies the credentials and issues a token bound to the account's
// current salt.
func (s *SessionService) Add(ctx context.Context, username, password string, includeProfile bool) (*Session, error) {
	account, err := s.accounts.VerifyCredentials(ctx, username, password)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:      s.codec.Issue(account.Username, account.Credentials.Salt),
		Account: account.View(includeProfile),
	}, nil
}

// Find validates token against the current salt of the account it claims.
func (s *SessionService) Find(ctx context.Context, token string, includeProfile bool) (*Session, error) {
	account, err := s.validate(ctx, token)
	if err != nil {
		return nil, err
	}
	return &Session{ID: token, Account: account.View(includeProfile)}, nil
}

// Remove validates token and denies it for the rest of its lifetime.
func (s *SessionService) Remove(ctx context.Context, token string, includeProfile bool) (*Session, error) {
	account, err := s.validate(ctx, token)
	if err != nil {
		return nil, err
	}

	expiry, err := s.codec.Expiry(token)
	if err != nil {
		return nil, err
	}
	if err := s.denylist.Revoke(ctx, token, expiry); err != nil {
		return nil, oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "revoke session").
			With("username", account.Username).
			Wrap(err)
	}

	s.logger.DebugContext(ctx, "session removed", "username", account.Username)

	return &Session{ID: token, Account: account.View(includeProfile)}, nil
}

func (s *SessionService) validate(ctx context.Context, token string) (*Account, error) {
	name, _, err := DecodeSessionID(token)
	if err != nil {
		return nil, kindError(KindInvalidSession).Errorf("session token is malformed")
	}

	account, err := s.accounts.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	if !s.codec.Verify(token, account.Username, account.Credentials.Salt) {
		return nil, kindError(KindInvalidSession).
			With("username", name).
			Errorf("session invalid or expired")
	}

	revoked, err := s.denylist.IsRevoked(ctx, token)
	if err != nil {
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "check denylist").
			Wrap(err)
	}
	if revoked {
		return nil, kindError(KindInvalidSession).
			With("username", name).
			Errorf("session has been removed")
	}

	return account, nil
}
