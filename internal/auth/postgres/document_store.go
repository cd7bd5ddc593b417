// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres provides PostgreSQL-backed implementations of the auth
// storage interfaces.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/holomush/accountd/internal/auth"
	"github.com/holomush/accountd/internal/store"
)

// Querier is the subset of *pgxpool.Pool used by this package.
// pgxmock.PgxPoolIface satisfies it in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DocumentStore implements auth.DocumentStore on the user_documents table.
// Conflicts are detected by the primary key on insert and by comparing the
// revision column on update and delete.
type DocumentStore struct {
	db Querier
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(db Querier) *DocumentStore {
	return &DocumentStore{db: db}
}

// Get implements auth.DocumentStore.
func (s *DocumentStore) Get(ctx context.Context, key string) (*auth.UserDocument, error) {
	var (
		rev  string
		body []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT rev, body FROM user_documents WHERE key = $1
	`, key).Scan(&rev, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("key", key).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("DOCUMENT_GET_FAILED").
			With("operation", "select user document").
			With("key", key).
			Wrap(err)
	}

	var doc auth.UserDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, oops.Code("DOCUMENT_INVALID").
			With("operation", "unmarshal user document").
			With("key", key).
			Wrap(err)
	}
	doc.ID = key
	doc.Rev = rev
	return &doc, nil
}

// Put implements auth.DocumentStore.
func (s *DocumentStore) Put(ctx context.Context, doc *auth.UserDocument) (string, error) {
	rev, err := store.NextRevision(doc.Rev)
	if err != nil {
		return "", oops.With("key", doc.ID).Wrap(auth.ErrConflict)
	}

	stored := *doc
	stored.Rev = ""
	body, err := json.Marshal(&stored)
	if err != nil {
		return "", oops.Code("DOCUMENT_PUT_FAILED").
			With("operation", "marshal user document").
			With("key", doc.ID).
			Wrap(err)
	}

	if doc.Rev == "" {
		_, err = s.db.Exec(ctx, `
			INSERT INTO user_documents (key, rev, body, updated_at)
			VALUES ($1, $2, $3, $4)
		`, doc.ID, rev, body, time.Now())
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return "", oops.With("key", doc.ID).Wrap(auth.ErrConflict)
			}
			return "", oops.Code("DOCUMENT_PUT_FAILED").
				With("operation", "insert user document").
				With("key", doc.ID).
				Wrap(err)
		}
		return rev, nil
	}

	result, err := s.db.Exec(ctx, `
		UPDATE user_documents SET rev = $3, body = $4, updated_at = $5
		WHERE key = $1 AND rev = $2
	`, doc.ID, doc.Rev, rev, body, time.Now())
	if err != nil {
		return "", oops.Code("DOCUMENT_PUT_FAILED").
			With("operation", "update user document").
			With("key", doc.ID).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return "", oops.With("key", doc.ID).With("rev", doc.Rev).Wrap(auth.ErrConflict)
	}
	return rev, nil
}

// Remove implements auth.DocumentStore.
func (s *DocumentStore) Remove(ctx context.Context, key, rev string) error {
	result, err := s.db.Exec(ctx, `
		DELETE FROM user_documents WHERE key = $1 AND rev = $2
	`, key, rev)
	if err != nil {
		return oops.Code("DOCUMENT_REMOVE_FAILED").
			With("operation", "delete user document").
			With("key", key).
			Wrap(err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	// Nothing deleted: tell a missing key apart from a stale revision.
	var current string
	err = s.db.QueryRow(ctx, `SELECT rev FROM user_documents WHERE key = $1`, key).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return oops.With("key", key).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return oops.Code("DOCUMENT_REMOVE_FAILED").
			With("operation", "select user document revision").
			With("key", key).
			Wrap(err)
	}
	return oops.With("key", key).With("rev", rev).Wrap(auth.ErrConflict)
}

// Compile-time interface check.
var _ auth.DocumentStore = (*DocumentStore)(nil)
