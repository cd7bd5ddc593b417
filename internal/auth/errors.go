// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned by a DocumentStore when a write collides with an
// existing document key or a stale revision.
var ErrConflict = errors.New("document update conflict")

// Kind is the stable symbolic name of an error outcome. Kinds are carried as
// oops error codes.
type Kind string

// Error kinds produced by the core.
const (
	KindUsernameExists        Kind = "USERNAME_EXISTS"
	KindUnauthorizedPassword  Kind = "UNAUTHORIZED_PASSWORD"
	KindInvalidCredentials    Kind = "INVALID_CREDENTIALS"
	KindInvalidSession        Kind = "INVALID_SESSION"
	KindForbiddenAdminAccount Kind = "FORBIDDEN_ADMIN_ACCOUNT"
	KindNoAdminAccount        Kind = "NO_ADMIN_ACCOUNT"
	KindAccountIDConflict     Kind = "ACCOUNT_ID_CONFLICT"
	KindAccountUpdateConflict Kind = "ACCOUNT_UPDATE_CONFLICT"
	KindAccountNotFound       Kind = "ACCOUNT_NOT_FOUND"
	KindInvalidAccount        Kind = "INVALID_ACCOUNT"
	KindVerificationFailed    Kind = "VERIFICATION_FAILED"
	KindInternal              Kind = "INTERNAL"
)

// Class groups kinds by the kind of response a transport should produce.
// It is deliberately not a transport status code.
type Class int

// Error classes.
const (
	ClassInternal Class = iota
	ClassBadRequest
	ClassUnauthorized
	ClassForbidden
	ClassNotFound
	ClassConflict
)

func (c Class) String() string {
	switch c {
	case ClassBadRequest:
		return "bad_request"
	case ClassUnauthorized:
		return "unauthorized"
	case ClassForbidden:
		return "forbidden"
	case ClassNotFound:
		return "not_found"
	case ClassConflict:
		return "conflict"
	default:
		return "internal"
	}
}

var kindClasses = map[Kind]Class{
	KindUsernameExists:        ClassConflict,
	KindUnauthorizedPassword:  ClassUnauthorized,
	KindInvalidCredentials:    ClassUnauthorized,
	KindInvalidSession:        ClassUnauthorized,
	KindForbiddenAdminAccount: ClassForbidden,
	KindNoAdminAccount:        ClassNotFound,
	KindAccountIDConflict:     ClassConflict,
	KindAccountUpdateConflict: ClassConflict,
	KindAccountNotFound:       ClassNotFound,
	KindInvalidAccount:        ClassBadRequest,
	KindVerificationFailed:    ClassInternal,
	KindInternal:              ClassInternal,
}

var kindMessages = map[Kind]string{
	KindUsernameExists:        "an account with that username already exists",
	KindUnauthorizedPassword:  "invalid password",
	KindInvalidCredentials:    "invalid username or password",
	KindInvalidSession:        "session invalid or expired",
	KindForbiddenAdminAccount: "not allowed for the admin account",
	KindNoAdminAccount:        "the admin identity has no account",
	KindAccountIDConflict:     "account id does not match the session",
	KindAccountUpdateConflict: "account was modified concurrently",
	KindAccountNotFound:       "account not found",
	KindInvalidAccount:        "invalid account properties",
	KindVerificationFailed:    "password verification failed",
}

// Classify maps any error produced by the core to its kind and class.
// Errors without a known code classify as KindInternal.
func Classify(err error) (Kind, Class) {
	if err == nil {
		return "", ClassInternal
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return KindInternal, ClassInternal
	}
	kind := Kind(fmt.Sprint(oopsErr.Code()))
	class, known := kindClasses[kind]
	if !known {
		return KindInternal, ClassInternal
	}
	return kind, class
}

// Message returns the user-facing message for a kind. Internal errors get a
// generic message so store or driver details never leak.
func (k Kind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return "internal error"
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, _ := Classify(err)
	return err != nil && k == kind
}

func kindError(kind Kind) oops.OopsErrorBuilder {
	return oops.Code(string(kind))
}
