// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides an in-process auth.DocumentStore for development
// and tests.
package memory

import (
	"context"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/accountd/internal/auth"
	"github.com/holomush/accountd/internal/store"
)

// DocumentStore keeps user documents in a map guarded by a RWMutex.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]auth.UserDocument
}

// NewDocumentStore creates an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]auth.UserDocument)}
}

// Get implements auth.DocumentStore.
func (s *DocumentStore) Get(_ context.Context, key string) (*auth.UserDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[key]
	if !ok {
		return nil, oops.With("key", key).Wrap(auth.ErrNotFound)
	}
	return cloneDocument(&doc), nil
}

// Put implements auth.DocumentStore.
func (s *DocumentStore) Put(_ context.Context, doc *auth.UserDocument) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.docs[doc.ID]
	switch {
	case exists && doc.Rev != current.Rev:
		return "", oops.With("key", doc.ID).With("rev", doc.Rev).Wrap(auth.ErrConflict)
	case !exists && doc.Rev != "":
		return "", oops.With("key", doc.ID).With("rev", doc.Rev).Wrap(auth.ErrConflict)
	}

	rev, err := store.NextRevision(doc.Rev)
	if err != nil {
		return "", err //nolint:wrapcheck // revision errors carry their own code
	}

	stored := cloneDocument(doc)
	stored.Rev = rev
	s.docs[doc.ID] = *stored
	return rev, nil
}

// Remove implements auth.DocumentStore.
func (s *DocumentStore) Remove(_ context.Context, key, rev string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.docs[key]
	if !ok {
		return oops.With("key", key).Wrap(auth.ErrNotFound)
	}
	if current.Rev != rev {
		return oops.With("key", key).With("rev", rev).Wrap(auth.ErrConflict)
	}
	delete(s.docs, key)
	return nil
}

// Len returns the number of stored documents.
func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func cloneDocument(doc *auth.UserDocument) *auth.UserDocument {
	c := *doc
	c.Roles = append([]string(nil), doc.Roles...)
	if doc.Profile != nil {
		c.Profile = make(map[string]any, len(doc.Profile))
		for k, v := range doc.Profile {
			c.Profile[k] = v
		}
	}
	return &c
}

// Compile-time interface check.
var _ auth.DocumentStore = (*DocumentStore)(nil)
