// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/holomush/accountd/internal/auth"
)

// testingT is the subset of *testing.T the constructors need.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockDocumentStore is a mock for auth.DocumentStore.
type MockDocumentStore struct {
	mock.Mock
}

// NewMockDocumentStore creates a MockDocumentStore that asserts its
// expectations when the test ends.
func NewMockDocumentStore(t testingT) *MockDocumentStore {
	m := &MockDocumentStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Get implements auth.DocumentStore.
func (m *MockDocumentStore) Get(ctx context.Context, key string) (*auth.UserDocument, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.UserDocument), args.Error(1)
}

// Put implements auth.DocumentStore.
func (m *MockDocumentStore) Put(ctx context.Context, doc *auth.UserDocument) (string, error) {
	args := m.Called(ctx, doc)
	return args.String(0), args.Error(1)
}

// Remove implements auth.DocumentStore.
func (m *MockDocumentStore) Remove(ctx context.Context, key, rev string) error {
	args := m.Called(ctx, key, rev)
	return args.Error(0)
}

// MockAdminProvider is a mock for auth.AdminProvider.
type MockAdminProvider struct {
	mock.Mock
}

// NewMockAdminProvider creates a MockAdminProvider that asserts its
// expectations when the test ends.
func NewMockAdminProvider(t testingT) *MockAdminProvider {
	m := &MockAdminProvider{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// ValidatePassword implements auth.AdminProvider.
func (m *MockAdminProvider) ValidatePassword(ctx context.Context, username, password string) error {
	args := m.Called(ctx, username, password)
	return args.Error(0)
}

// CalculateSessionID implements auth.AdminProvider.
func (m *MockAdminProvider) CalculateSessionID(ctx context.Context, username string) (string, error) {
	args := m.Called(ctx, username)
	return args.String(0), args.Error(1)
}

// ValidateSession implements auth.AdminProvider.
func (m *MockAdminProvider) ValidateSession(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// MockDenylist is a mock for auth.Denylist.
type MockDenylist struct {
	mock.Mock
}

// NewMockDenylist creates a MockDenylist that asserts its expectations when
// the test ends.
func NewMockDenylist(t testingT) *MockDenylist {
	m := &MockDenylist{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Revoke implements auth.Denylist.
func (m *MockDenylist) Revoke(ctx context.Context, token string, until time.Time) error {
	args := m.Called(ctx, token, until)
	return args.Error(0)
}

// IsRevoked implements auth.Denylist.
func (m *MockDenylist) IsRevoked(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

// MockCredentialVerifier is a mock for auth.CredentialVerifier.
type MockCredentialVerifier struct {
	mock.Mock
}

// NewMockCredentialVerifier creates a MockCredentialVerifier that asserts its
// expectations when the test ends.
func NewMockCredentialVerifier(t testingT) *MockCredentialVerifier {
	m := &MockCredentialVerifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Derive implements auth.CredentialVerifier.
func (m *MockCredentialVerifier) Derive(password string) (auth.Credentials, error) {
	args := m.Called(password)
	return args.Get(0).(auth.Credentials), args.Error(1)
}

// Verify implements auth.CredentialVerifier.
func (m *MockCredentialVerifier) Verify(password, salt string, iterations int, derivedKeyHex string) (bool, error) {
	args := m.Called(password, salt, iterations, derivedKeyHex)
	return args.Bool(0), args.Error(1)
}

var (
	_ auth.DocumentStore      = (*MockDocumentStore)(nil)
	_ auth.AdminProvider      = (*MockAdminProvider)(nil)
	_ auth.Denylist           = (*MockDenylist)(nil)
	_ auth.CredentialVerifier = (*MockCredentialVerifier)(nil)
)
