// Package migration applies embedded golang-migrate schemas for the
// persisted index backends.
package migration

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"

	"github.com/futig/news-rag/internal/entity"
)

// Up applies every pending migration. A database left dirty by an
// interrupted run is forced back to the previous clean version and retried.
// A database whose schema is newer than the embedded migrations is rejected.
func Up(m *migrate.Migrate, latest uint) error {
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("get current migration version: %w", err)
	}
	if err == nil && !dirty && version > latest {
		return fmt.Errorf("%w: schema version %d, this build supports up to %d", entity.ErrUnsupportedFormat, version, latest)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		var dirtyErr migrate.ErrDirty
		if !errors.As(err, &dirtyErr) {
			return fmt.Errorf("run migrations: %w", err)
		}

		forceVersion := max(dirtyErr.Version-1, 0)
		if forceVersion == 0 {
			forceVersion = -1
		}
		if ferr := m.Force(forceVersion); ferr != nil {
			return fmt.Errorf("force clean migration version %d: %w", forceVersion, ferr)
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("rerun migrations after dirty state: %w", err)
		}
	}

	return nil
}
