package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/store"
)

// Tx is a logical transaction holding the store's write queue.
type Tx struct {
	s  *Store
	tx *sql.Tx
	o  *ops

	mu     sync.Mutex
	closed bool
}

var _ store.Tx = (*Tx)(nil)

// Begin starts a logical transaction. It waits for the write queue.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.release()
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{s: s, tx: tx, o: &ops{q: tx, v: s.validator}}, nil
}

// do runs fn unless the transaction already ended.
func (t *Tx) do(fn func(o *ops) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return store.ErrTxClosed
	}
	return fn(t.o)
}

// End commits and releases the write queue.
func (t *Tx) End() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return store.ErrTxClosed
	}
	t.closed = true
	defer t.s.release()

	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	t.s.emit(t.o.events)
	return nil
}

// Rollback discards the transaction and releases the write queue.
func (t *Tx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return store.ErrTxClosed
	}
	t.closed = true
	defer t.s.release()
	return t.tx.Rollback()
}

// AddGallery inserts g within the transaction.
func (t *Tx) AddGallery(ctx context.Context, g *domain.Gallery, force bool) (int64, error) {
	var id int64
	err := t.do(func(o *ops) error {
		var err error
		id, err = o.addGallery(ctx, g, force)
		return err
	})
	return id, err
}

// ModifyGallery applies a patch within the transaction.
func (t *Tx) ModifyGallery(ctx context.Context, id int64, patch store.Patch) (*domain.Gallery, error) {
	var g *domain.Gallery
	err := t.do(func(o *ops) error {
		var err error
		g, err = o.modifyGallery(ctx, id, patch)
		return err
	})
	return g, err
}

// UpdateGallery rewrites g within the transaction.
func (t *Tx) UpdateGallery(ctx context.Context, g *domain.Gallery) error {
	return t.do(func(o *ops) error { return o.updateGallery(ctx, g) })
}

// DeleteGallery removes a gallery within the transaction.
func (t *Tx) DeleteGallery(ctx context.Context, id int64) error {
	return t.do(func(o *ops) error { return o.deleteGallery(ctx, id) })
}

// GetGallery reads through the transaction, seeing its uncommitted writes.
func (t *Tx) GetGallery(ctx context.Context, id int64) (*domain.Gallery, error) {
	var g *domain.Gallery
	err := t.do(func(o *ops) error {
		var err error
		g, err = o.getGallery(ctx, id)
		return err
	})
	return g, err
}

// UpsertHashes stores page digests within the transaction.
func (t *Tx) UpsertHashes(ctx context.Context, galleryID int64, chapter int, hashes []domain.PageHash) error {
	return t.do(func(o *ops) error { return o.upsertHashes(ctx, galleryID, chapter, hashes) })
}

// AddToList adds members within the transaction.
func (t *Tx) AddToList(ctx context.Context, listID int64, galleryIDs ...int64) error {
	return t.do(func(o *ops) error { return o.addToList(ctx, listID, galleryIDs) })
}
