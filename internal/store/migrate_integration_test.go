// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/DjCaptainPlus/WarpBook/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		m         *store.Migrator
	)

	BeforeAll(func() {
		ctx = context.Background()
		var dsn string
		container, dsn = startPostgres(ctx)

		var err error
		m, err = store.NewMigrator(dsn)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		Expect(m.Close()).To(Succeed())
		Expect(container.Terminate(ctx)).To(Succeed())
	})

	version := func() uint {
		v, dirty, err := m.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(dirty).To(BeFalse())
		return v
	}

	It("starts empty", func() {
		Expect(version()).To(BeZero())
		Expect(m.PendingMigrations()).To(Equal([]uint{1, 2}))
	})

	It("applies, steps and rolls back", func() {
		Expect(m.Up()).To(Succeed())
		Expect(version()).To(Equal(uint(2)))
		Expect(m.Up()).To(Succeed(), "a second Up is a no-op")

		Expect(m.Steps(-1)).To(Succeed())
		Expect(version()).To(Equal(uint(1)))
		Expect(m.AppliedMigrations()).To(Equal([]uint{1}))

		Expect(m.Steps(1)).To(Succeed())
		Expect(version()).To(Equal(uint(2)))

		Expect(m.Down()).To(Succeed())
		Expect(version()).To(BeZero())
	})

	It("forces a version", func() {
		Expect(m.Up()).To(Succeed())
		Expect(m.Force(1)).To(Succeed())
		Expect(version()).To(Equal(uint(1)))
	})
})
