package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/listenupapp/doujinshelf/internal/errors"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// CurrentVersion is the schema version this build writes.
const CurrentVersion = 0.26

// migration is one rung of the upgrade ladder. step is the version times
// one hundred, so 0.23 is step 23.
type migration struct {
	step int
	name string
	sql  string
}

func (m migration) version() float64 {
	return float64(m.step) / 100
}

func loadMigrations() ([]migration, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	migrations := make([]migration, 0, len(names))
	for _, name := range names {
		prefix, _, _ := strings.Cut(name, "_")
		step, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s: bad version prefix: %w", name, err)
		}
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		migrations = append(migrations, migration{step: step, name: strings.TrimSuffix(name, ".sql"), sql: string(data)})
	}
	return migrations, nil
}

func toStep(version float64) int {
	return int(math.Round(version * 100))
}

// readVersion returns the stored schema version, or 0 for an empty database.
func readVersion(ctx context.Context, db *sql.DB) (float64, error) {
	var exists int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='version'",
	).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check version table: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}

	var version float64
	err = db.QueryRowContext(ctx, "SELECT version FROM version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// migrate applies every rung above from in one transaction and records
// CurrentVersion.
func migrate(ctx context.Context, db *sql.DB, from float64) error {
	if toStep(from) > toStep(CurrentVersion) {
		return errors.Consistencyf("database schema %.2f is newer than supported %.2f", from, CurrentVersion)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current := toStep(from)
	for _, m := range migrations {
		if m.step <= current {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		current = m.step
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM version"); err != nil {
		return fmt.Errorf("clear version: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO version (version) VALUES (?)", float64(current)/100); err != nil {
		return fmt.Errorf("record version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

// SchemaVersion returns the schema version recorded in the database.
func (s *Store) SchemaVersion(ctx context.Context) (float64, error) {
	return readVersion(ctx, s.db)
}
