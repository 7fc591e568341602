package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// SchemaVersion describes where the split schema stands after migrating
type SchemaVersion struct {
	Version uint
	Dirty   bool
	Changed bool
}

func migrationSource(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", errors.New("migrations path cannot be empty")
	}
	if strings.Contains(dir, "://") {
		return dir, nil
	}
	return "file://" + dir, nil
}

// RunMigrations brings bill_split_states and split_outbox up to the latest schema.
// A dirty schema is reported as an error and left for manual repair.
func RunMigrations(logger *slog.Logger, databaseURL, migrationsPath string) (SchemaVersion, error) {
	var sv SchemaVersion

	sourceURL, err := migrationSource(migrationsPath)
	if err != nil {
		return sv, err
	}
	if strings.TrimSpace(databaseURL) == "" {
		return sv, errors.New("database URL cannot be empty")
	}

	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return sv, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			logger.Warn("Closing migrator failed", "source_error", sourceErr, "db_error", dbErr)
		}
	}()

	switch err := m.Up(); {
	case err == nil:
		sv.Changed = true
	case errors.Is(err, migrate.ErrNoChange):
	default:
		return sv, fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return sv, fmt.Errorf("failed to read schema version: %w", err)
	}
	sv.Version, sv.Dirty = version, dirty
	if dirty {
		return sv, fmt.Errorf("schema version %d is dirty", version)
	}

	logger.Info("Split schema ready", "version", sv.Version, "changed", sv.Changed)
	return sv, nil
}
