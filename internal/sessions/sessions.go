// Package sessions persists remote adapter sessions (cookies, user agent,
// last use) in a badger key-value store under session:<adapter>.
package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/remote"
)

const sessionPrefix = "session:"

// Store wraps a badger database holding sessions.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ remote.SessionStore = (*Store)(nil)

// Open opens or creates the session database in dir.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	return open(badger.DefaultOptions(dir), logger)
}

// OpenInMemory opens a session database that lives only as long as the
// process.
func OpenInMemory(logger *slog.Logger) (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), logger)
}

func open(opts badger.Options, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Cookies must survive a crash right after login
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "open session store")
	}
	logger.Debug("session store opened", "dir", opts.Dir, "in_memory", opts.InMemory)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Shutdown implements do.Shutdowner.
func (s *Store) Shutdown() error {
	return s.Close()
}

// Load returns the saved session of adapter name.
func (s *Store) Load(_ context.Context, name string) (remote.Session, bool, error) {
	var sess remote.Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &sess)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return remote.Session{}, false, nil
	}
	if err != nil {
		return remote.Session{}, false, errors.Wrapf(err, errors.CodeIO, "load session %s", name)
	}
	return sess, true, nil
}

// Save stores the session of adapter name.
func (s *Store) Save(_ context.Context, name string, sess remote.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(name), data)
	})
	if err != nil {
		return errors.Wrapf(err, errors.CodeIO, "save session %s", name)
	}
	return nil
}

// Delete forgets the session of adapter name.
func (s *Store) Delete(_ context.Context, name string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(name))
	})
	if err != nil {
		return errors.Wrapf(err, errors.CodeIO, "delete session %s", name)
	}
	return nil
}

// Names lists adapters with a saved session.
func (s *Store) Names(_ context.Context) ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(sessionPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), sessionPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "list sessions")
	}
	return names, nil
}

func key(name string) []byte {
	return []byte(sessionPrefix + name)
}
