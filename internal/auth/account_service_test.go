// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accountd/internal/auth"
	"github.com/holomush/accountd/internal/auth/mocks"
	"github.com/holomush/accountd/pkg/errutil"
)

func TestNewAccountService(t *testing.T) {
	verifier, err := auth.NewBoundedVerifier(auth.NewPBKDF2Hasher(1), 1)
	require.NoError(t, err)

	_, err = auth.NewAccountService(nil, verifier, nil)
	require.Error(t, err)

	_, err = auth.NewAccountService(mocks.NewMockDocumentStore(t), nil, nil)
	require.Error(t, err)

	_, err = auth.NewAccountServiceWithLogger(mocks.NewMockDocumentStore(t), verifier, nil, nil)
	require.Error(t, err)
}

func TestAccountService_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the account and emits signup", func(t *testing.T) {
		s := newStack(t)
		var got []auth.AccountEvent
		s.events.On(auth.EventSignup, func(e auth.AccountEvent, v auth.AccountView) {
			got = append(got, e)
			assert.Equal(t, "alice", v.Username)
		})

		view, err := s.accounts.Add(ctx, auth.AccountProperties{
			Username: "alice",
			Password: "hunter2",
			Roles:    []string{"reader"},
			Profile:  map[string]any{"color": "blue"},
		}, true)
		require.NoError(t, err)
		assert.Equal(t, "alice", view.Username)
		assert.Equal(t, []string{"id:" + view.ID, "reader"}, view.Roles)
		assert.Equal(t, map[string]any{"color": "blue"}, view.Profile)
		assert.Equal(t, []auth.AccountEvent{auth.EventSignup}, got)
		assert.Equal(t, 1, s.store.Len())
	})

	t.Run("duplicate username", func(t *testing.T) {
		s := newStack(t)
		_, err := s.accounts.Add(ctx, auth.AccountProperties{Username: "alice", Password: "a"}, false)
		require.NoError(t, err)

		_, err = s.accounts.Add(ctx, auth.AccountProperties{Username: "alice", Password: "b"}, false)
		errutil.AssertErrorCode(t, err, "USERNAME_EXISTS")
		assert.Equal(t, 1, s.store.Len())
	})

	t.Run("empty password", func(t *testing.T) {
		s := newStack(t)
		_, err := s.accounts.Add(ctx, auth.AccountProperties{Username: "alice"}, false)
		errutil.AssertErrorCode(t, err, "INVALID_ACCOUNT")
	})

	t.Run("store failure is internal", func(t *testing.T) {
		store := mocks.NewMockDocumentStore(t)
		store.On("Put", ctx, mock.AnythingOfType("*auth.UserDocument")).Return("", errors.New("disk full"))
		verifier, err := auth.NewBoundedVerifier(auth.NewPBKDF2Hasher(1), 1)
		require.NoError(t, err)
		svc, err := auth.NewAccountService(store, verifier, nil)
		require.NoError(t, err)

		_, err = svc.Add(ctx, auth.AccountProperties{Username: "alice", Password: "pw"}, false)
		errutil.AssertErrorCode(t, err, "ACCOUNT_ADD_FAILED")
		_, class := auth.Classify(err)
		assert.Equal(t, auth.ClassInternal, class)
	})
}

func TestAccountService_VerifyCredentials(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	_, err := s.accounts.Add(ctx, auth.AccountProperties{Username: "alice", Password: "hunter2"}, false)
	require.NoError(t, err)

	account, err := s.accounts.VerifyCredentials(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)

	_, err = s.accounts.VerifyCredentials(ctx, "alice", "wrong")
	errutil.AssertErrorCode(t, err, "UNAUTHORIZED_PASSWORD")

	_, err = s.accounts.VerifyCredentials(ctx, "bob", "hunter2")
	errutil.AssertErrorCode(t, err, "ACCOUNT_NOT_FOUND")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestAccountService_VerifyCredentials_UnknownUserStillHashes(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMockDocumentStore(t)
	store.On("Get", ctx, "org.couchdb.user:ghost").Return(nil, oops.Wrap(auth.ErrNotFound))

	inner := mocks.NewMockCredentialVerifier(t)
	inner.On("Verify", "pw", mock.Anything, auth.DefaultIterations, mock.Anything).Return(false, nil).Once()

	verifier, err := auth.NewBoundedVerifier(inner, 1)
	require.NoError(t, err)
	svc, err := auth.NewAccountService(store, verifier, nil)
	require.NoError(t, err)

	_, err = svc.VerifyCredentials(ctx, "ghost", "pw")
	errutil.AssertErrorCode(t, err, "ACCOUNT_NOT_FOUND")
}

func TestAccountService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("password change rotates the salt", func(t *testing.T) {
		s := newStack(t)
		_, err := s.accounts.Add(ctx, auth.AccountProperties{Username: "alice", Password: "old"}, false)
		require.NoError(t, err)
		before, err := s.accounts.Resolve(ctx, "alice")
		require.NoError(t, err)

		_, err = s.accounts.Update(ctx, "alice", auth.AccountChange{Password: "new"}, false)
		require.NoError(t, err)

		after, err := s.accounts.Resolve(ctx, "alice")
		require.NoError(t, err)
		assert.NotEqual(t, before.Credentials.Salt, after.Credentials.Salt)
		assert.NotEqual(t, before.Rev, after.Rev)

		_, err = s.accounts.VerifyCredentials(ctx, "alice", "new")
		assert.NoError(t, err)
		_, err = s.accounts.VerifyCredentials(ctx, "alice", "old")
		errutil.AssertErrorCode(t, err, "UNAUTHORIZED_PASSWORD")
	})

	t.Run("profile change keeps the salt", func(t *testing.T) {
		s := newStack(t)
		_, err := s.accounts.Add(ctx, auth.AccountProperties{Username: "alice", Password: "pw"}, false)
		require.NoError(t, err)
		before, err := s.accounts.Resolve(ctx, "alice")
		require.NoError(t, err)

		view, err := s.accounts.Update(ctx, "alice", auth.AccountChange{Profile: map[string]any{"a": 1}}, true)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": 1}, view.Profile)

		after, err := s.accounts.Resolve(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, before.Credentials.Salt, after.Credentials.Salt)
	})

	t.Run("rename moves the document and keeps the id", func(t *testing.T) {
		s := newStack(t)
		created, err := s.accounts.Add(ctx, auth.AccountProperties{Username: "alice", Password: "pw"}, false)
		require.NoError(t, err)

		view, err := s.accounts.Update(ctx, "alice", auth.AccountChange{Username: "alicia"}, false)
		require.NoError(t, err)
		assert.Equal(t, "alicia", view.Username)
		assert.Equal(t, created.ID, view.ID)
		assert.Equal(t, 1, s.store.Len())

		_, err = s.accounts.Resolve(ctx, "alice")
		errutil.AssertErrorCode(t, err, "ACCOUNT_NOT_FOUND")
	})

	t.Run("rename onto an existing username", func(t *testing.T) {
		s := newStack(t)
		_, err := s.accounts.Add(ctx, auth.AccountProperties{Username: "alice", Password: "pw"}, false)
		require.NoError(t, err)
		_, err = s.accounts.Add(ctx, auth.AccountProperties{Username: "bob", Password: "pw"}, false)
		require.NoError(t, err)

		_, err = s.accounts.Update(ctx, "alice", auth.AccountChange{Username: "bob"}, false)
		errutil.AssertErrorCode(t, err, "USERNAME_EXISTS")
		assert.Equal(t, 2, s.store.Len())
	})

	t.Run("concurrent modification", func(t *testing.T) {
		ctx := context.Background()
		store := mocks.NewMockDocumentStore(t)
		account, err := auth.NewAccount("acct-1", "alice", testCreds, nil, nil)
		require.NoError(t, err)
		doc := account.Document()
		doc.Rev = "1-a"
		store.On("Get", ctx, "org.couchdb.user:alice").Return(doc, nil)
		store.On("Put", ctx, mock.AnythingOfType("*auth.UserDocument")).Return("", oops.Wrap(auth.ErrConflict))

		verifier, err := auth.NewBoundedVerifier(auth.NewPBKDF2Hasher(1), 1)
		require.NoError(t, err)
		svc, err := auth.NewAccountService(store, verifier, nil)
		require.NoError(t, err)

		_, err = svc.Update(ctx, "alice", auth.AccountChange{Profile: map[string]any{}}, false)
		errutil.AssertErrorCode(t, err, "ACCOUNT_UPDATE_CONFLICT")
	})

	t.Run("emits update", func(t *testing.T) {
		s := newStack(t)
		_, err := s.accounts.Add(ctx, auth.AccountProperties{Username: "alice", Password: "pw"}, false)
		require.NoError(t, err)
		var events []auth.AccountEvent
		s.events.On(auth.EventUpdate, func(e auth.AccountEvent, _ auth.AccountView) { events = append(events, e) })

		_, err = s.accounts.Update(ctx, "alice", auth.AccountChange{Password: "pw2"}, false)
		require.NoError(t, err)
		assert.Equal(t, []auth.AccountEvent{auth.EventUpdate}, events)
	})
}

func TestAccountService_Remove(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	created, err := s.accounts.Add(ctx, auth.AccountProperties{Username: "alice", Password: "pw"}, false)
	require.NoError(t, err)

	var removed []string
	s.events.On(auth.EventRemove, func(_ auth.AccountEvent, v auth.AccountView) { removed = append(removed, v.ID) })

	view, err := s.accounts.Remove(ctx, "alice", false)
	require.NoError(t, err)
	assert.Equal(t, created.ID, view.ID)
	assert.Equal(t, []string{created.ID}, removed)
	assert.Zero(t, s.store.Len())

	_, err = s.accounts.Remove(ctx, "alice", false)
	errutil.AssertErrorCode(t, err, "ACCOUNT_NOT_FOUND")
}
