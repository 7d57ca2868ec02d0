// Package pgtest starts a throwaway PostgreSQL for integration suites and
// applies the workflow schema to it.
package pgtest

import (
	"context"
	"time"

	"orderflow/internal/adapters/out/postgres/migrations"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Tables lists every table the workflow writes, for TRUNCATE between tests.
const Tables = "orders, order_requirements, order_deliveries, order_negotiations, order_audit_entries, outbox_messages, reviews"

// Start runs postgres:15-alpine, migrates it and opens a GORM connection.
func Start(ctx context.Context) (*postgres.PostgresContainer, *gorm.DB, error) {
	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return container, nil, err
	}

	sqlDB, err := migrations.Open(ctx, dsn)
	if err != nil {
		return container, nil, err
	}
	defer sqlDB.Close()
	if err = migrations.Up(ctx, sqlDB); err != nil {
		return container, nil, err
	}

	db, err := gorm.Open(gorm_postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return container, nil, err
	}
	return container, db, nil
}
