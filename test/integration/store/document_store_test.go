// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/accountd/internal/auth"
	"github.com/holomush/accountd/internal/auth/postgres"
	"github.com/holomush/accountd/internal/store"
)

var _ = Describe("PostgreSQL document store", func() {
	var (
		ctx  context.Context
		docs *postgres.DocumentStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		cleanupDatabase(ctx, env.pool)
		docs = postgres.NewDocumentStore(env.pool)
	})

	newDoc := func(name string) *auth.UserDocument {
		return &auth.UserDocument{
			ID:    auth.UserKey(name),
			Type:  auth.UserDocType,
			Name:  name,
			Roles: []string{auth.IDRolePrefix + "acct-" + name},
			Salt:  "salt",
		}
	}

	It("round-trips a document and advances its revision", func() {
		rev, err := docs.Put(ctx, newDoc("alice"))
		Expect(err).NotTo(HaveOccurred())
		gen, err := store.RevisionGeneration(rev)
		Expect(err).NotTo(HaveOccurred())
		Expect(gen).To(Equal(1))

		got, err := docs.Get(ctx, auth.UserKey("alice"))
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Rev).To(Equal(rev))
		Expect(got.Name).To(Equal("alice"))

		got.Salt = "rotated"
		next, err := docs.Put(ctx, got)
		Expect(err).NotTo(HaveOccurred())
		gen, err = store.RevisionGeneration(next)
		Expect(err).NotTo(HaveOccurred())
		Expect(gen).To(Equal(2))
	})

	It("rejects a second document under the same key", func() {
		_, err := docs.Put(ctx, newDoc("alice"))
		Expect(err).NotTo(HaveOccurred())

		_, err = docs.Put(ctx, newDoc("alice"))
		Expect(errors.Is(err, auth.ErrConflict)).To(BeTrue())
	})

	It("rejects writes and removals with a stale revision", func() {
		rev, err := docs.Put(ctx, newDoc("alice"))
		Expect(err).NotTo(HaveOccurred())

		doc := newDoc("alice")
		doc.Rev = rev
		_, err = docs.Put(ctx, doc)
		Expect(err).NotTo(HaveOccurred())

		_, err = docs.Put(ctx, doc)
		Expect(errors.Is(err, auth.ErrConflict)).To(BeTrue())

		err = docs.Remove(ctx, auth.UserKey("alice"), rev)
		Expect(errors.Is(err, auth.ErrConflict)).To(BeTrue())
	})

	It("reports missing keys as not found", func() {
		_, err := docs.Get(ctx, auth.UserKey("nobody"))
		Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())

		err = docs.Remove(ctx, auth.UserKey("nobody"), "1-x")
		Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
	})

	It("serves the account flow end to end", func() {
		verifier, err := auth.NewBoundedVerifier(auth.NewPBKDF2Hasher(auth.DefaultIterations), 2)
		Expect(err).NotTo(HaveOccurred())
		codec, err := auth.NewSessionCodec("integration-secret")
		Expect(err).NotTo(HaveOccurred())
		accounts, err := auth.NewAccountServiceWithLogger(docs, verifier, nil, slog.Default())
		Expect(err).NotTo(HaveOccurred())
		sessions, err := auth.NewSessionService(accounts, codec, postgres.NewDenylist(env.pool), slog.Default())
		Expect(err).NotTo(HaveOccurred())
		admins, err := auth.NewConfigAdmin("", auth.Credentials{}, verifier, codec)
		Expect(err).NotTo(HaveOccurred())
		resolver, err := auth.NewResolver(admins, accounts, sessions, nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = resolver.SignUp(ctx, auth.AccountProperties{Username: "alice", Password: "hunter2"}, false)
		Expect(err).NotTo(HaveOccurred())

		session, err := resolver.CreateSession(ctx, "alice", "hunter2", false)
		Expect(err).NotTo(HaveOccurred())

		found, err := resolver.FindSession(ctx, session.ID, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(found.Account.Username).To(Equal("alice"))

		_, err = resolver.RemoveSession(ctx, session.ID, false)
		Expect(err).NotTo(HaveOccurred())

		_, err = resolver.FindSession(ctx, session.ID, false)
		Expect(auth.IsKind(err, auth.KindInvalidSession)).To(BeTrue())
	})
})

var _ = Describe("PostgreSQL denylist", func() {
	var (
		ctx      context.Context
		denylist *postgres.Denylist
	)

	BeforeEach(func() {
		ctx = context.Background()
		cleanupDatabase(ctx, env.pool)
		denylist = postgres.NewDenylist(env.pool)
	})

	It("revokes idempotently and purges expired entries", func() {
		Expect(denylist.Revoke(ctx, "live", time.Now().Add(time.Hour))).To(Succeed())
		Expect(denylist.Revoke(ctx, "live", time.Now().Add(time.Hour))).To(Succeed())
		Expect(denylist.Revoke(ctx, "stale", time.Now().Add(-time.Hour))).To(Succeed())

		revoked, err := denylist.IsRevoked(ctx, "live")
		Expect(err).NotTo(HaveOccurred())
		Expect(revoked).To(BeTrue())

		revoked, err = denylist.IsRevoked(ctx, "stale")
		Expect(err).NotTo(HaveOccurred())
		Expect(revoked).To(BeFalse())

		purged, err := denylist.PurgeExpired(ctx, time.Now())
		Expect(err).NotTo(HaveOccurred())
		Expect(purged).To(Equal(int64(1)))
	})
})
