// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Document key and role conventions shared with CouchDB _users databases.
const (
	UserKeyPrefix = "org.couchdb.user:"
	UserDocType   = "user"
	IDRolePrefix  = "id:"
)

// MaxUsernameLength bounds usernames so keys stay reasonable.
const MaxUsernameLength = 255

// Account is a stored user identity.
type Account struct {
	ID          string
	Username    string
	Credentials Credentials
	Roles       []string
	Profile     map[string]any
	Rev         string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AccountView is an account projection safe to hand to callers. It never
// carries credential material.
type AccountView struct {
	ID        string         `json:"id"`
	Username  string         `json:"username"`
	Roles     []string       `json:"roles"`
	Profile   map[string]any `json:"profile,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// UserDocument is the stored shape of an account.
type UserDocument struct {
	ID             string         `json:"_id"`
	Rev            string         `json:"_rev,omitempty"`
	Type           string         `json:"type"`
	Name           string         `json:"name"`
	Roles          []string       `json:"roles"`
	PasswordScheme string         `json:"password_scheme"`
	Salt           string         `json:"salt"`
	Iterations     int            `json:"iterations"`
	DerivedKey     string         `json:"derived_key"`
	Profile        map[string]any `json:"profile,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// DocumentStore is a key-document store with per-key conflict detection.
type DocumentStore interface {
	// Get retrieves the document stored under key.
	// Returns an error wrapping ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (*UserDocument, error)

	// Put stores doc under doc.ID and returns the new revision. An empty
	// doc.Rev creates the document; a non-empty doc.Rev must match the
	// current revision. Collisions return an error wrapping ErrConflict.
	Put(ctx context.Context, doc *UserDocument) (string, error)

	// Remove deletes the document at key if its revision matches rev.
	Remove(ctx context.Context, key, rev string) error
}

// UserKey returns the document key for username.
func UserKey(username string) string {
	return UserKeyPrefix + username
}

// NewAccountID returns a fresh stable account id.
func NewAccountID() string {
	return strings.ToLower(ulid.Make().String())
}

// ValidateUsername checks that username can be used as a document key and
// inside a session token.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return oops.Code(string(KindInvalidAccount)).Errorf("username cannot be empty")
	}
	if len(username) > MaxUsernameLength {
		return oops.Code(string(KindInvalidAccount)).
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if strings.Contains(username, ":") {
		return oops.Code(string(KindInvalidAccount)).Errorf("username cannot contain ':'")
	}
	return nil
}

// NewAccount creates a validated Account. An empty id gets a generated one.
// The id role marker is always the first role.
func NewAccount(id, username string, creds Credentials, roles []string, profile map[string]any) (*Account, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if creds.Salt == "" || creds.DerivedKey == "" {
		return nil, oops.Code(string(KindInvalidAccount)).Errorf("credentials cannot be empty")
	}
	if id == "" {
		id = NewAccountID()
	}

	allRoles := []string{IDRolePrefix + id}
	for _, r := range roles {
		if strings.HasPrefix(r, IDRolePrefix) {
			continue
		}
		allRoles = append(allRoles, r)
	}

	now := time.Now().UTC()
	return &Account{
		ID:          id,
		Username:    username,
		Credentials: creds,
		Roles:       allRoles,
		Profile:     profile,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// View projects the account, including the profile only when asked.
func (a *Account) View(includeProfile bool) *AccountView {
	v := &AccountView{
		ID:        a.ID,
		Username:  a.Username,
		Roles:     append([]string(nil), a.Roles...),
		CreatedAt: a.CreatedAt,
	}
	if includeProfile {
		v.Profile = a.Profile
		if v.Profile == nil {
			v.Profile = map[string]any{}
		}
	}
	return v
}

// Document converts the account to its stored shape.
func (a *Account) Document() *UserDocument {
	return &UserDocument{
		ID:             UserKey(a.Username),
		Rev:            a.Rev,
		Type:           UserDocType,
		Name:           a.Username,
		Roles:          a.Roles,
		PasswordScheme: a.Credentials.Scheme,
		Salt:           a.Credentials.Salt,
		Iterations:     a.Credentials.Iterations,
		DerivedKey:     a.Credentials.DerivedKey,
		Profile:        a.Profile,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// AccountFromDocument rebuilds an account from its stored shape. The id is
// recovered from the id role marker.
func AccountFromDocument(doc *UserDocument) (*Account, error) {
	if doc == nil {
		return nil, oops.Code("DOCUMENT_INVALID").Errorf("document cannot be nil")
	}
	var id string
	for _, r := range doc.Roles {
		if rest, found := strings.CutPrefix(r, IDRolePrefix); found {
			id = rest
			break
		}
	}
	if id == "" {
		return nil, oops.Code("DOCUMENT_INVALID").
			With("key", doc.ID).
			Errorf("document has no id role")
	}
	return &Account{
		ID:       id,
		Username: doc.Name,
		Credentials: Credentials{
			Scheme:     doc.PasswordScheme,
			Salt:       doc.Salt,
			Iterations: doc.Iterations,
			DerivedKey: doc.DerivedKey,
		},
		Roles:     doc.Roles,
		Profile:   doc.Profile,
		Rev:       doc.Rev,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}
