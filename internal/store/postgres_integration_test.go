// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/DjCaptainPlus/WarpBook/internal/entity"
	"github.com/DjCaptainPlus/WarpBook/internal/property"
	"github.com/DjCaptainPlus/WarpBook/internal/store"
	"github.com/DjCaptainPlus/WarpBook/internal/warp"
)

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("warpbook_test"),
		postgres.WithUsername("warpbook"),
		postgres.WithPassword("warpbook"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	Expect(err).NotTo(HaveOccurred())

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())
	return container, dsn
}

var _ = Describe("PostgresStore", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		dsn       string
		s         *store.PostgresStore
	)

	BeforeAll(func() {
		ctx = context.Background()
		container, dsn = startPostgres(ctx)
	})

	AfterAll(func() {
		Expect(container.Terminate(ctx)).To(Succeed())
	})

	Context("before migrating", func() {
		It("reports the schema as missing", func() {
			var err error
			s, err = store.Open(ctx, dsn)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			_, err = s.Get(ctx, property.World(), "anything")
			Expect(err).To(MatchError(ContainSubstring("properties")))
		})
	})

	Context("after migrating", func() {
		BeforeAll(func() {
			m, err := store.NewMigrator(dsn)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Up()).To(Succeed())
			Expect(m.Close()).To(Succeed())

			s, err = store.Open(ctx, dsn)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterAll(func() {
			s.Close()
		})

		It("round-trips every value kind", func() {
			alice := property.Entity("Alice")
			for key, v := range map[string]property.Value{
				"setting:flag":   property.Bool(true),
				"setting:mode":   property.String("select"),
				"setting:radius": property.Number(-12.75),
			} {
				Expect(s.Set(ctx, alice, key, v)).To(Succeed())
				got, err := s.Get(ctx, alice, key)
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(Equal(v))
			}
		})

		It("overwrites and deletes", func() {
			world := property.World()
			Expect(s.Set(ctx, world, "global_warp:spawn", property.String("a"))).To(Succeed())
			Expect(s.Set(ctx, world, "global_warp:spawn", property.String("b"))).To(Succeed())
			Expect(s.Get(ctx, world, "global_warp:spawn")).To(Equal(property.String("b")))

			Expect(property.Delete(ctx, s, world, "global_warp:spawn")).To(Succeed())
			Expect(property.Exists(ctx, s, world, "global_warp:spawn")).To(BeFalse())
		})

		It("lists keys by prefix in byte order within one scope", func() {
			bob := property.Entity("Bob")
			for _, key := range []string{"warp:b", "warp:A", "warp_x", "warp:a", "player:last_warp"} {
				Expect(s.Set(ctx, bob, key, property.String(key))).To(Succeed())
			}
			Expect(s.Set(ctx, property.Entity("Carol"), "warp:c", property.String("c"))).To(Succeed())

			Expect(s.ListKeys(ctx, bob, "warp:")).To(Equal([]string{"warp:A", "warp:a", "warp:b"}))
			Expect(s.ListKeys(ctx, bob, "")).To(HaveLen(5))
		})

		It("treats LIKE wildcards in prefixes literally", func() {
			dave := property.Entity("Dave")
			Expect(s.Set(ctx, dave, "a%b", property.Bool(true))).To(Succeed())
			Expect(s.Set(ctx, dave, "axb", property.Bool(true))).To(Succeed())
			Expect(s.ListKeys(ctx, dave, "a%")).To(Equal([]string{"a%b"}))
		})

		It("enumerates entity scopes", func() {
			scopes, err := s.Scopes(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(scopes).To(ContainElements(property.Entity("Alice"), property.Entity("Bob"), property.Entity("Carol")))
			Expect(scopes).NotTo(ContainElement(property.World()))
		})

		It("backs a warp registry", func() {
			warps, err := warp.NewRegistry(warp.Config{Store: s})
			Expect(err).NotTo(HaveOccurred())

			w, err := warp.New(entity.Vec3{X: 1.5, Y: 64, Z: -9}, "minecraft:overworld", "base camp", true, "Erin", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(warps.Create(ctx, "Erin", w, warp.ScopePrivate)).To(Succeed())

			got, err := warps.Get(ctx, "Erin", "base_camp")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(w))
		})
	})
})
