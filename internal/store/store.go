// Package store defines the persistence interface for the gallery library.
package store

import (
	"context"

	"github.com/listenupapp/doujinshelf/internal/domain"
)

// Store defines the interface for all persistence operations.
//
// Writes outside a transaction are serialized on a single write queue;
// Begin holds that queue until End or Rollback.
type Store interface {
	// Lifecycle
	Close() error
	Analyze(ctx context.Context) error
	Begin(ctx context.Context) (Tx, error)
	SetEmitter(emitter EventEmitter)

	// Galleries
	AddGallery(ctx context.Context, g *domain.Gallery, force bool) (int64, error)
	ModifyGallery(ctx context.Context, id int64, patch Patch) (*domain.Gallery, error)
	UpdateGallery(ctx context.Context, g *domain.Gallery) error
	DeleteGallery(ctx context.Context, id int64) error
	GetGallery(ctx context.Context, id int64) (*domain.Gallery, error)
	GetGalleryByPath(ctx context.Context, path string) (*domain.Gallery, error)
	ListGalleries(ctx context.Context, filter GalleryFilter) ([]*domain.Gallery, error)
	CountGalleries(ctx context.Context) (int, error)

	// Chapters and hashes
	ReconcileChapter(ctx context.Context, galleryID int64, chapter, pages int) error
	UpsertHashes(ctx context.Context, galleryID int64, chapter int, hashes []domain.PageHash) error
	GetHashes(ctx context.Context, galleryID int64, chapter int) (map[int]string, error)
	InvalidateHashes(ctx context.Context, galleryID int64, chapter int) error
	ChapterHashes(ctx context.Context, chapter int) (map[int64]map[int]string, error)

	// Lists
	CreateList(ctx context.Context, l *domain.GalleryList) (int64, error)
	UpdateList(ctx context.Context, l *domain.GalleryList) error
	GetList(ctx context.Context, id int64) (*domain.GalleryList, error)
	ListLists(ctx context.Context) ([]*domain.GalleryList, error)
	DeleteList(ctx context.Context, id int64) error
	AddToList(ctx context.Context, listID int64, galleryIDs ...int64) error
	RemoveFromList(ctx context.Context, listID int64, galleryIDs ...int64) error
	ListMembers(ctx context.Context, listID int64) ([]int64, error)
	ScanList(ctx context.Context, listID int64) (ScanListResult, error)
}

// Tx is a logical transaction. Operations after End or Rollback fail with
// ErrTxClosed.
type Tx interface {
	AddGallery(ctx context.Context, g *domain.Gallery, force bool) (int64, error)
	ModifyGallery(ctx context.Context, id int64, patch Patch) (*domain.Gallery, error)
	UpdateGallery(ctx context.Context, g *domain.Gallery) error
	DeleteGallery(ctx context.Context, id int64) error
	GetGallery(ctx context.Context, id int64) (*domain.Gallery, error)
	UpsertHashes(ctx context.Context, galleryID int64, chapter int, hashes []domain.PageHash) error
	AddToList(ctx context.Context, listID int64, galleryIDs ...int64) error

	// End commits.
	End() error
	Rollback() error
}

// GalleryFilter narrows ListGalleries. Nil fields match everything.
type GalleryFilter struct {
	View *domain.View
	Exed *bool
	IDs  []int64
}

// ScanListResult reports how an auto list changed.
type ScanListResult struct {
	Added   int
	Removed int
}
