// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth resolves callers to either the administrative identity or a
// stored account.
//
// # Domain Types
//
// Accounts are created with NewAccount, which validates the username and
// always places the id role marker first. They persist as UserDocument
// values under UserKey(username) in a DocumentStore.
//
// Sessions are never stored. A token is derived from the identity name, its
// current salt, the process secret and an expiry, so changing a password
// ends every session issued before the change.
//
// # Services
//
//   - AccountService - signup, lookup, credential checks and mutations
//   - SessionService - issue, validate and remove user sessions
//   - ConfigAdmin - the single administrative identity from configuration
//   - Resolver - precedence between the admin identity and stored accounts
//
// Errors carry a Kind as their oops code; Classify maps any error to a Kind
// and Class, and unknown codes classify as internal.
package auth
