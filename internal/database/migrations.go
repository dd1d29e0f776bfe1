package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func newMigrationProvider(db *sql.DB, migrationsDir string) (*goose.Provider, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(migrationsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, nil
}

// RunMigrations applies every pending migration in migrationsDir
func RunMigrations(ctx context.Context, db *sql.DB, migrationsDir string, logger *zap.Logger) error {
	provider, err := newMigrationProvider(db, migrationsDir)
	if err != nil {
		return err
	}

	logger.Info("Checking for pending migrations", zap.String("dir", migrationsDir))

	results, err := provider.Up(ctx)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, res := range results {
		logger.Info("Applied migration",
			zap.Int64("version", res.Source.Version),
			zap.String("file", res.Source.Path),
			zap.Duration("duration", res.Duration),
		)
	}

	logger.Info("Migrations completed", zap.Int("applied", len(results)))
	return nil
}

// MigrationStatus is one migration file and whether it has been applied
type MigrationStatus struct {
	Version int64
	File    string
	Applied bool
}

// GetMigrationStatus lists every migration with its applied state
func GetMigrationStatus(ctx context.Context, db *sql.DB, migrationsDir string) ([]MigrationStatus, error) {
	provider, err := newMigrationProvider(db, migrationsDir)
	if err != nil {
		return nil, err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}

	out := make([]MigrationStatus, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, MigrationStatus{
			Version: st.Source.Version,
			File:    st.Source.Path,
			Applied: st.State == goose.StateApplied,
		})
	}
	return out, nil
}
