// Package sqlite implements store.Store on a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/store"
	"github.com/listenupapp/doujinshelf/internal/validation"

	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for the gallery library.
type Store struct {
	db        *sql.DB
	logger    *slog.Logger
	validator *validation.Validator

	// writeSem is the single write queue. Holding it means owning the
	// only writer, either for one call or for a whole Tx.
	writeSem chan struct{}

	mu      sync.RWMutex
	emitter store.EventEmitter
}

var _ store.Store = (*Store)(nil)

// Open creates or opens the SQLite store at the given path.
// Older schemas are backed up and upgraded in place before use.
func Open(path string, logger *slog.Logger) (*Store, error) {
	return OpenContext(context.Background(), path, logger)
}

// OpenContext is Open with a context for the upgrade.
func OpenContext(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	// The version is read before any pragma touches the file so a backup
	// is a byte copy of what the previous build left behind.
	version, err := readVersion(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	needsUpgrade := version > 0 && toStep(version) < toStep(CurrentVersion)
	if needsUpgrade {
		backupPath, err := backupDatabase(path)
		if err != nil {
			db.Close()
			return nil, errors.Wrap(err, errors.CodeIO, "backup before upgrade")
		}
		logger.Info("database backed up before upgrade",
			"from", version,
			"to", CurrentVersion,
			"backup", backupPath,
		)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec pragma journal_mode: %w", err)
	}

	if toStep(version) != toStep(CurrentVersion) {
		if err := migrate(ctx, db, version); err != nil {
			db.Close()
			return nil, err
		}
		if version > 0 {
			logger.Info("database schema upgraded", "from", version, "to", CurrentVersion)
		}
	}

	return NewWithDB(db, logger), nil
}

// NewWithDB wraps an already prepared database. No migrations run.
func NewWithDB(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		db:        db,
		logger:    logger,
		validator: validation.New(),
		writeSem:  make(chan struct{}, 1),
		emitter:   store.NewNoopEmitter(),
	}
}

// SetEmitter sets the listener for committed changes.
func (s *Store) SetEmitter(emitter store.EventEmitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if emitter == nil {
		emitter = store.NewNoopEmitter()
	}
	s.emitter = emitter
}

func (s *Store) emit(events []store.Event) {
	s.mu.RLock()
	emitter := s.emitter
	s.mu.RUnlock()
	for _, e := range events {
		emitter.Emit(e)
	}
}

// Analyze refreshes query planner statistics. Run it on shutdown.
func (s *Store) Analyze(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	if _, err := s.db.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.writeSem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errors.Cancelled(ctx.Err())
	}
}

func (s *Store) release() {
	<-s.writeSem
}

// write runs fn in its own transaction on the write queue and emits the
// collected events after commit.
func (s *Store) write(ctx context.Context, fn func(o *ops) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	o := &ops{q: tx, v: s.validator}
	if err := fn(o); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.emit(o.events)
	return nil
}

// read returns ops bound to the pool for snapshot reads.
func (s *Store) read() *ops {
	return &ops{q: s.db, v: s.validator}
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ops carries the statement-level implementation shared by Store and Tx.
type ops struct {
	q      querier
	v      *validation.Validator
	events []store.Event
}

func (o *ops) record(e store.Event) {
	o.events = append(o.events, e)
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// parseNullableTime parses an optional time string.
func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullTimeString returns a sql.NullString from a *time.Time.
func nullTimeString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
