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

	"github.com/holomush/accounts/internal/store"
)

var _ = Describe("Store", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("accounts_test"),
			postgres.WithUsername("accounts"),
			postgres.WithPassword("accounts"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		_ = container.Terminate(ctx)
	})

	Describe("Connect", func() {
		It("pings a running database", func() {
			pool, err := store.Connect(ctx, connStr, store.ConnectOptions{Retries: 1})
			Expect(err).NotTo(HaveOccurred())
			defer pool.Close()
			Expect(pool.Ping(ctx)).To(Succeed())
		})
	})

	Describe("Migrator", func() {
		It("runs the full up/down cycle", func() {
			migrator, err := store.NewMigrator(connStr)
			Expect(err).NotTo(HaveOccurred())
			defer migrator.Close()

			version, dirty, err := migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(BeZero())
			Expect(dirty).To(BeFalse())

			pending, err := migrator.PendingMigrations()
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).NotTo(BeEmpty())

			Expect(migrator.Up()).To(Succeed())
			latest, _, err := migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(latest).To(Equal(pending[len(pending)-1]))

			Expect(migrator.Steps(-1)).To(Succeed())
			version, _, err = migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(Equal(latest - 1))

			Expect(migrator.Steps(1)).To(Succeed())
			Expect(migrator.Down()).To(Succeed())
			version, _, err = migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(BeZero())

			Expect(migrator.Up()).To(Succeed())
		})

		It("creates the account tables", func() {
			pool, err := store.Connect(ctx, connStr, store.ConnectOptions{})
			Expect(err).NotTo(HaveOccurred())
			defer pool.Close()

			var n int
			err = pool.QueryRow(ctx, `
				SELECT COUNT(*) FROM information_schema.tables
				WHERE table_name IN ('users', 'access_tokens')
			`).Scan(&n)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
		})
	})
})
