// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/accountd/pkg/errutil"
)

// AccountProperties describes a new account.
type AccountProperties struct {
	ID       string
	Username string
	Password string
	Roles    []string
	Profile  map[string]any
}

// AccountChange describes a mutation of an existing account. Empty fields
// are left untouched; a non-nil Profile replaces the stored profile.
type AccountChange struct {
	Username string
	Password string
	Profile  map[string]any
}

// dummyCredentials are verified against when a username does not exist so
// lookups of unknown users cost the same as wrong passwords. They match no
// password.
var dummyCredentials = Credentials{
	Scheme:     PasswordScheme,
	Salt:       "00000000000000000000000000000000",
	Iterations: DefaultIterations,
	DerivedKey: "0000000000000000000000000000000000000000",
}

// AccountService resolves, verifies and mutates stored accounts.
type AccountService struct {
	store    DocumentStore
	verifier *BoundedVerifier
	events   *Events
	logger   *slog.Logger
}

// NewAccountService creates an AccountService using the default logger.
func NewAccountService(store DocumentStore, verifier *BoundedVerifier, events *Events) (*AccountService, error) {
	return NewAccountServiceWithLogger(store, verifier, events, slog.Default())
}

// NewAccountServiceWithLogger creates an AccountService with an explicit logger.
// events may be nil when no listeners are needed.
func NewAccountServiceWithLogger(store DocumentStore, verifier *BoundedVerifier, events *Events, logger *slog.Logger) (*AccountService, error) {
	if store == nil {
		return nil, oops.Errorf("document store is required")
	}
	if verifier == nil {
		return nil, oops.Errorf("credential verifier is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &AccountService{
		store:    store,
		verifier: verifier,
		events:   events,
		logger:   logger,
	}, nil
}

// Add creates an account. A username collision in the store surfaces
// USERNAME_EXISTS.
func (s *AccountService) Add(ctx context.Context, props AccountProperties, includeProfile bool) (*AccountView, error) {
	if err := ValidateUsername(props.Username); err != nil {
		return nil, err
	}

	creds, err := s.verifier.Derive(ctx, props.Password)
	if err != nil {
		return nil, err //nolint:wrapcheck // verifier errors carry their own codes
	}

	account, err := NewAccount(props.ID, props.Username, creds, props.Roles, props.Profile)
	if err != nil {
		return nil, err
	}

	rev, err := s.store.Put(ctx, account.Document())
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, kindError(KindUsernameExists).
				With("username", props.Username).
				Errorf("username %q already exists", props.Username)
		}
		return nil, oops.Code("ACCOUNT_ADD_FAILED").
			With("operation", "put user document").
			With("username", props.Username).
			Wrap(err)
	}
	account.Rev = rev

	s.logger.InfoContext(ctx, "account created", "account_id", account.ID, "username", account.Username)
	s.events.emit(EventSignup, account.View(true))

	return account.View(includeProfile), nil
}

// Resolve looks an account up by username.
func (s *AccountService) Resolve(ctx context.Context, username string) (*Account, error) {
	doc, err := s.store.Get(ctx, UserKey(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, kindError(KindAccountNotFound).
				With("username", username).
				Wrap(err)
		}
		return nil, oops.Code("ACCOUNT_RESOLVE_FAILED").
			With("operation", "get user document").
			With("username", username).
			Wrap(err)
	}
	return AccountFromDocument(doc)
}

// VerifyCredentials resolves username and checks password against its stored
// credentials. A mismatch surfaces UNAUTHORIZED_PASSWORD; verifier failures
// propagate unchanged.
func (s *AccountService) VerifyCredentials(ctx context.Context, username, password string) (*Account, error) {
	account, err := s.Resolve(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Spend the same derivation work as for a real account.
			_, _ = s.verifier.Verify(ctx, password, dummyCredentials) //nolint:errcheck // result is irrelevant
		}
		return nil, err
	}

	ok, err := s.verifier.Verify(ctx, password, account.Credentials)
	if err != nil {
		return nil, err //nolint:wrapcheck // verifier errors propagate unchanged
	}
	if !ok {
		return nil, kindError(KindUnauthorizedPassword).
			With("username", username).
			Errorf("invalid password")
	}
	return account, nil
}

// Update applies change to the account stored under username. A new password
// gets a fresh salt, which revokes every session issued before the change.
func (s *AccountService) Update(ctx context.Context, username string, change AccountChange, includeProfile bool) (*AccountView, error) {
	account, err := s.Resolve(ctx, username)
	if err != nil {
		return nil, err
	}

	if change.Password != "" {
		creds, err := s.verifier.Derive(ctx, change.Password)
		if err != nil {
			return nil, err //nolint:wrapcheck // verifier errors carry their own codes
		}
		account.Credentials = creds
	}
	if change.Profile != nil {
		account.Profile = change.Profile
	}
	account.UpdatedAt = time.Now().UTC()

	if change.Username != "" && change.Username != account.Username {
		if err := s.rename(ctx, account, change.Username); err != nil {
			return nil, err
		}
	} else {
		rev, err := s.store.Put(ctx, account.Document())
		if err != nil {
			return nil, s.writeError(err, "put user document", username)
		}
		account.Rev = rev
	}

	s.logger.InfoContext(ctx, "account updated",
		"account_id", account.ID,
		"username", account.Username,
		"password_changed", change.Password != "",
	)
	s.events.emit(EventUpdate, account.View(true))

	return account.View(includeProfile), nil
}

// rename moves the account to the key of newUsername. The new key is
// claimed first so a collision leaves the old document untouched.
func (s *AccountService) rename(ctx context.Context, account *Account, newUsername string) error {
	if err := ValidateUsername(newUsername); err != nil {
		return err
	}

	oldKey, oldRev := UserKey(account.Username), account.Rev

	moved := *account
	moved.Username = newUsername
	moved.Rev = ""

	rev, err := s.store.Put(ctx, moved.Document())
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return kindError(KindUsernameExists).
				With("username", newUsername).
				Errorf("username %q already exists", newUsername)
		}
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "put renamed user document").
			With("username", newUsername).
			Wrap(err)
	}

	if err := s.store.Remove(ctx, oldKey, oldRev); err != nil {
		if rollbackErr := s.store.Remove(ctx, UserKey(newUsername), rev); rollbackErr != nil {
			errutil.LogError(s.logger, "failed to roll back account rename", rollbackErr)
		}
		return s.writeError(err, "remove previous user document", account.Username)
	}

	account.Username = newUsername
	account.Rev = rev
	return nil
}

// Remove deletes the account stored under username and returns its final
// projection.
func (s *AccountService) Remove(ctx context.Context, username string, includeProfile bool) (*AccountView, error) {
	account, err := s.Resolve(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := s.store.Remove(ctx, UserKey(username), account.Rev); err != nil {
		return nil, s.writeError(err, "remove user document", username)
	}

	s.logger.InfoContext(ctx, "account removed", "account_id", account.ID, "username", username)
	s.events.emit(EventRemove, account.View(true))

	return account.View(includeProfile), nil
}

func (s *AccountService) writeError(err error, operation, username string) error {
	switch {
	case errors.Is(err, ErrConflict):
		return kindError(KindAccountUpdateConflict).
			With("username", username).
			Errorf("account %q was modified concurrently", username)
	case errors.Is(err, ErrNotFound):
		return kindError(KindAccountNotFound).
			With("username", username).
			Wrap(err)
	default:
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", operation).
			With("username", username).
			Wrap(err)
	}
}
