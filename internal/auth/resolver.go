// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/accountd/pkg/errutil"
)

const tracerName = "github.com/holomush/accountd/internal/auth"

// Identity labels used in logs and metrics.
const (
	identityAdmin = "admin"
	identityUser  = "user"
)

// outcomeKind tags the result of trying the administrative identity.
type outcomeKind int

const (
	// outcomeFallthrough: the identity is not the admin; try the user path.
	outcomeFallthrough outcomeKind = iota
	// outcomeAdmin: the identity is the admin and was accepted.
	outcomeAdmin
	// outcomeFatal: the identity is the admin and was rejected, or the
	// provider failed. Never falls through.
	outcomeFatal
)

type adminOutcome struct {
	kind outcomeKind
	err  error
}

// classifyAdmin turns an admin provider result into an outcome. Only
// ErrNotFound is recovered; it is the routing signal for the user path.
func classifyAdmin(err error) adminOutcome {
	switch {
	case err == nil:
		return adminOutcome{kind: outcomeAdmin}
	case errors.Is(err, ErrNotFound):
		return adminOutcome{kind: outcomeFallthrough}
	default:
		return adminOutcome{kind: outcomeFatal, err: err}
	}
}

// Resolver decides whether a caller is the administrative identity or a
// stored account. The admin identity always takes precedence.
type Resolver struct {
	admins   AdminProvider
	accounts *AccountService
	sessions *SessionService
	metrics  *Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewResolver creates a Resolver using the default logger.
func NewResolver(admins AdminProvider, accounts *AccountService, sessions *SessionService, metrics *Metrics) (*Resolver, error) {
	return NewResolverWithLogger(admins, accounts, sessions, metrics, slog.Default())
}

// NewResolverWithLogger creates a Resolver with an explicit logger.
// metrics may be nil.
func NewResolverWithLogger(admins AdminProvider, accounts *AccountService, sessions *SessionService, metrics *Metrics, logger *slog.Logger) (*Resolver, error) {
	if admins == nil {
		return nil, oops.Errorf("admin provider is required")
	}
	if accounts == nil {
		return nil, oops.Errorf("account service is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session service is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Resolver{
		admins:   admins,
		accounts: accounts,
		sessions: sessions,
		metrics:  metrics,
		tracer:   otel.Tracer(tracerName),
		logger:   logger,
	}, nil
}

// SignUp creates a stored account. The admin identity is not involved.
func (r *Resolver) SignUp(ctx context.Context, props AccountProperties, includeProfile bool) (view *AccountView, err error) {
	ctx, done := r.begin(ctx, "signup")
	defer func() { done(identityUser, err) }()

	return r.accounts.Add(ctx, props, includeProfile)
}

// CreateSession authenticates username/password and issues a session.
func (r *Resolver) CreateSession(ctx context.Context, username, password string, includeProfile bool) (session *Session, err error) {
	ctx, done := r.begin(ctx, "create_session")
	identity := identityAdmin
	defer func() { done(identity, err) }()

	outcome := classifyAdmin(r.admins.ValidatePassword(ctx, username, password))
	switch outcome.kind {
	case outcomeFatal:
		return nil, outcome.err
	case outcomeAdmin:
		if includeProfile {
			return nil, forbiddenAdmin()
		}
		token, err := r.admins.CalculateSessionID(ctx, username)
		if err != nil {
			return nil, oops.Code("ADMIN_SESSION_FAILED").
				With("operation", "calculate admin session id").
				Wrap(err)
		}
		return &Session{ID: token}, nil
	}

	identity = identityUser
	session, err = r.sessions.Add(ctx, username, password, includeProfile)
	if err != nil {
		if IsKind(err, KindAccountNotFound) || IsKind(err, KindUnauthorizedPassword) {
			return nil, kindError(KindInvalidCredentials).Errorf("invalid username or password")
		}
		return nil, err
	}
	return session, nil
}

// FindSession validates a presented token.
func (r *Resolver) FindSession(ctx context.Context, token string, includeProfile bool) (session *Session, err error) {
	ctx, done := r.begin(ctx, "find_session")
	identity := identityAdmin
	defer func() { done(identity, err) }()

	outcome := classifyAdmin(r.admins.ValidateSession(ctx, token))
	switch outcome.kind {
	case outcomeFatal:
		return nil, outcome.err
	case outcomeAdmin:
		if includeProfile {
			return nil, forbiddenAdmin()
		}
		return &Session{ID: token}, nil
	}

	identity = identityUser
	session, err = r.sessions.Find(ctx, token, includeProfile)
	if err != nil {
		return nil, coarsenSessionError(err)
	}
	return session, nil
}

// RemoveSession validates a presented token and ends the session. It
// returns nil when no payload was requested.
func (r *Resolver) RemoveSession(ctx context.Context, token string, includeProfile bool) (session *Session, err error) {
	ctx, done := r.begin(ctx, "remove_session")
	identity := identityAdmin
	defer func() { done(identity, err) }()

	outcome := classifyAdmin(r.admins.ValidateSession(ctx, token))
	switch outcome.kind {
	case outcomeFatal:
		return nil, outcome.err
	case outcomeAdmin:
		if includeProfile {
			return nil, forbiddenAdmin()
		}
		return nil, nil
	}

	identity = identityUser
	session, err = r.sessions.Remove(ctx, token, includeProfile)
	if err != nil {
		return nil, coarsenSessionError(err)
	}
	if !includeProfile {
		return nil, nil
	}
	return session, nil
}

// GetAccount returns the account behind a session.
func (r *Resolver) GetAccount(ctx context.Context, token string, includeProfile bool) (view *AccountView, err error) {
	ctx, done := r.begin(ctx, "get_account")
	identity := identityAdmin
	defer func() { done(identity, err) }()

	outcome := classifyAdmin(r.admins.ValidateSession(ctx, token))
	switch outcome.kind {
	case outcomeFatal:
		return nil, outcome.err
	case outcomeAdmin:
		return nil, kindError(KindNoAdminAccount).Errorf("the admin identity has no account")
	}

	identity = identityUser
	session, err := r.sessions.Find(ctx, token, includeProfile)
	if err != nil {
		return nil, coarsenSessionError(err)
	}
	return session.Account, nil
}

// UpdateAccount changes the account behind a session. id must match the
// session's account.
func (r *Resolver) UpdateAccount(ctx context.Context, token, id string, change AccountChange, includeProfile bool) (view *AccountView, err error) {
	ctx, done := r.begin(ctx, "update_account")
	var identity string
	defer func() { done(identity, err) }()

	session, identity, err := r.userSession(ctx, token)
	if err != nil {
		return nil, err
	}

	if session.Account.ID != id {
		return nil, kindError(KindAccountIDConflict).
			With("account_id", session.Account.ID).
			Errorf("account id %q does not match the session account %q", id, session.Account.ID)
	}
	return r.accounts.Update(ctx, session.Account.Username, change, includeProfile)
}

// RemoveAccount deletes the account behind a session. It returns nil when no
// payload was requested.
func (r *Resolver) RemoveAccount(ctx context.Context, token string, includeProfile bool) (view *AccountView, err error) {
	ctx, done := r.begin(ctx, "remove_account")
	var identity string
	defer func() { done(identity, err) }()

	session, identity, err := r.userSession(ctx, token)
	if err != nil {
		return nil, err
	}

	view, err = r.accounts.Remove(ctx, session.Account.Username, includeProfile)
	if err != nil {
		return nil, err
	}
	if !includeProfile {
		return nil, nil
	}
	return view, nil
}

// userSession resolves a token that must belong to a stored account; an
// admin session is forbidden.
func (r *Resolver) userSession(ctx context.Context, token string) (*Session, string, error) {
	outcome := classifyAdmin(r.admins.ValidateSession(ctx, token))
	switch outcome.kind {
	case outcomeFatal:
		return nil, identityAdmin, outcome.err
	case outcomeAdmin:
		return nil, identityAdmin, forbiddenAdmin()
	}

	session, err := r.sessions.Find(ctx, token, false)
	if err != nil {
		return nil, identityUser, coarsenSessionError(err)
	}
	return session, identityUser, nil
}

// begin starts a span for operation and returns a completion func that
// ends it, records metrics and logs unexpected failures.
func (r *Resolver) begin(ctx context.Context, operation string) (context.Context, func(identity string, err error)) {
	started := time.Now()
	ctx, span := r.tracer.Start(ctx, "auth."+operation)

	return ctx, func(identity string, err error) {
		defer span.End()
		span.SetAttributes(attribute.String("auth.identity", identity))
		r.metrics.observe(operation, identity, err, started)

		if err == nil {
			return
		}
		kind, class := Classify(err)
		span.SetAttributes(attribute.String("auth.error_kind", string(kind)))
		if class == ClassInternal {
			span.SetStatus(codes.Error, err.Error())
			errutil.LogError(r.logger, operation+" failed", err)
			return
		}
		r.logger.DebugContext(ctx, "resolution rejected",
			"operation", operation,
			"identity", identity,
			"kind", string(kind),
		)
	}
}

func forbiddenAdmin() error {
	return kindError(KindForbiddenAdminAccount).Errorf("not allowed for the admin account")
}

// coarsenSessionError hides which user-session check failed.
func coarsenSessionError(err error) error {
	if IsKind(err, KindAccountNotFound) || IsKind(err, KindInvalidSession) {
		return kindError(KindInvalidSession).Errorf("session invalid or expired")
	}
	return err
}
