package sqlite

import (
	"context"
	"fmt"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/store"
)

// UpsertHashes stores page digests for one chapter. An existing digest for
// the same (gallery, chapter, page) is replaced.
func (s *Store) UpsertHashes(ctx context.Context, galleryID int64, chapter int, hashes []domain.PageHash) error {
	return s.write(ctx, func(o *ops) error { return o.upsertHashes(ctx, galleryID, chapter, hashes) })
}

func (o *ops) upsertHashes(ctx context.Context, galleryID int64, chapter int, hashes []domain.PageHash) error {
	chapterID, err := o.chapterID(ctx, galleryID, chapter)
	if err != nil {
		return err
	}
	for _, h := range hashes {
		_, err := o.q.ExecContext(ctx, `
			INSERT INTO hashes (hash, series_id, chapter_id, page) VALUES (?, ?, ?, ?)
			ON CONFLICT (series_id, chapter_id, page) DO UPDATE SET hash = excluded.hash`,
			h.Digest, galleryID, chapterID, h.Page,
		)
		if err != nil {
			return fmt.Errorf("upsert hash page %d: %w", h.Page, err)
		}
	}
	o.record(store.Event{Type: store.EventHashesUpdated, GalleryID: galleryID})
	return nil
}

// GetHashes returns page index -> digest for one chapter. A chapter without
// hashes yields an empty map.
func (s *Store) GetHashes(ctx context.Context, galleryID int64, chapter int) (map[int]string, error) {
	o := s.read()
	chapterID, err := o.chapterID(ctx, galleryID, chapter)
	if err != nil {
		return nil, err
	}
	rows, err := o.q.QueryContext(ctx,
		`SELECT page, hash FROM hashes WHERE chapter_id = ? ORDER BY page`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("load hashes: %w", err)
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var (
			page   int
			digest string
		)
		if err := rows.Scan(&page, &digest); err != nil {
			return nil, err
		}
		out[page] = digest
	}
	return out, rows.Err()
}

// InvalidateHashes drops every digest of a chapter.
func (s *Store) InvalidateHashes(ctx context.Context, galleryID int64, chapter int) error {
	return s.write(ctx, func(o *ops) error {
		chapterID, err := o.chapterID(ctx, galleryID, chapter)
		if err != nil {
			return err
		}
		if _, err := o.q.ExecContext(ctx, `DELETE FROM hashes WHERE chapter_id = ?`, chapterID); err != nil {
			return fmt.Errorf("invalidate hashes: %w", err)
		}
		o.record(store.Event{Type: store.EventHashesUpdated, GalleryID: galleryID})
		return nil
	})
}

// ChapterHashes returns gallery id -> page -> digest for the given chapter
// number across the whole library.
func (s *Store) ChapterHashes(ctx context.Context, chapter int) (map[int64]map[int]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT h.series_id, h.page, h.hash
		FROM hashes h
		JOIN chapters c ON c.chapter_id = h.chapter_id
		WHERE c.chapter_number = ?
		ORDER BY h.series_id, h.page`, chapter)
	if err != nil {
		return nil, fmt.Errorf("load chapter hashes: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]map[int]string)
	for rows.Next() {
		var (
			id     int64
			page   int
			digest string
		)
		if err := rows.Scan(&id, &page, &digest); err != nil {
			return nil, err
		}
		if out[id] == nil {
			out[id] = make(map[int]string)
		}
		out[id][page] = digest
	}
	return out, rows.Err()
}
