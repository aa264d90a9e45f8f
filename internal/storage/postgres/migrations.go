package postgres

import (
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/rds/*.sql
var rdsMigrations embed.FS

const migrationsDir = "migrations/rds"

// MigrationManager applies the embedded schema migrations with goose.
type MigrationManager struct {
	logger *logrus.Logger
	pool   *pgxpool.Pool
}

func NewMigrationManager(logger *logrus.Logger, pool *pgxpool.Pool) *MigrationManager {
	return &MigrationManager{
		logger: logger.WithField("pkg", "postgres.MigrationManager").Logger,
		pool:   pool,
	}
}

func (m *MigrationManager) Migrate() error {
	m.logger.Info("Starting database migration...")
	goose.SetLogger(m.logger)
	goose.SetBaseFS(rdsMigrations)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(m.pool)
	defer func() {
		_ = db.Close()
	}()
	if err := goose.Up(db, migrationsDir, goose.WithAllowMissing()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	m.logger.Info("Database migration completed successfully")
	return nil
}
