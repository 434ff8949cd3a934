package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/store"
)

// chapterColumns must match the scan order in scanChapter.
const chapterColumns = `chapter_id, series_id, chapter_title, chapter_number, chapter_path, pages, in_archive`

// idChunk bounds the number of ids bound into one IN clause.
const idChunk = 500

func scanChapter(scanner interface{ Scan(dest ...any) error }) (domain.Chapter, error) {
	var (
		c         domain.Chapter
		inArchive int
	)
	err := scanner.Scan(&c.ID, &c.GalleryID, &c.Title, &c.Number, &c.Path, &c.Pages, &inArchive)
	c.InArchive = inArchive != 0
	return c, err
}

func (o *ops) insertChapter(ctx context.Context, c *domain.Chapter) error {
	res, err := o.q.ExecContext(ctx, `
		INSERT INTO chapters (series_id, chapter_title, chapter_number, chapter_path, pages, in_archive)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.GalleryID, c.Title, c.Number, c.Path, c.Pages, boolInt(c.InArchive),
	)
	if err != nil {
		return fmt.Errorf("insert chapter %d: %w", c.Number, err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

// loadChapters returns chapters per gallery id, ordered by number.
func (o *ops) loadChapters(ctx context.Context, ids []int64) (map[int64][]domain.Chapter, error) {
	out := make(map[int64][]domain.Chapter, len(ids))
	for start := 0; start < len(ids); start += idChunk {
		chunk := ids[start:min(start+idChunk, len(ids))]
		rows, err := o.q.QueryContext(ctx,
			`SELECT `+chapterColumns+` FROM chapters
			WHERE series_id IN (`+placeholders(len(chunk))+`)
			ORDER BY series_id, chapter_number`,
			int64Args(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("load chapters: %w", err)
		}
		for rows.Next() {
			c, err := scanChapter(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out[c.GalleryID] = append(out[c.GalleryID], c)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// syncChapters makes the stored chapters match g.Chapters by number.
// Changed chapters keep their id but lose their hashes.
func (o *ops) syncChapters(ctx context.Context, g *domain.Gallery, existing []domain.Chapter) error {
	byNumber := make(map[int]domain.Chapter, len(existing))
	for _, c := range existing {
		byNumber[c.Number] = c
	}

	for i := range g.Chapters {
		c := &g.Chapters[i]
		c.GalleryID = g.ID
		old, ok := byNumber[c.Number]
		if !ok {
			if err := o.insertChapter(ctx, c); err != nil {
				return err
			}
			continue
		}
		delete(byNumber, c.Number)
		c.ID = old.ID
		if old.Path == c.Path && old.Pages == c.Pages && old.InArchive == c.InArchive && old.Title == c.Title {
			continue
		}
		if _, err := o.q.ExecContext(ctx, `
			UPDATE chapters SET chapter_title = ?, chapter_path = ?, pages = ?, in_archive = ?
			WHERE chapter_id = ?`,
			c.Title, c.Path, c.Pages, boolInt(c.InArchive), c.ID,
		); err != nil {
			return fmt.Errorf("update chapter %d: %w", c.Number, err)
		}
		if old.Path != c.Path || old.Pages != c.Pages {
			if _, err := o.q.ExecContext(ctx, `DELETE FROM hashes WHERE chapter_id = ?`, c.ID); err != nil {
				return fmt.Errorf("invalidate hashes: %w", err)
			}
		}
	}

	for _, stale := range byNumber {
		if _, err := o.q.ExecContext(ctx, `DELETE FROM chapters WHERE chapter_id = ?`, stale.ID); err != nil {
			return fmt.Errorf("delete chapter %d: %w", stale.Number, err)
		}
	}
	return nil
}

// chapterID resolves (gallery, chapter number) to a row id. An unknown
// chapter is a consistency failure.
func (o *ops) chapterID(ctx context.Context, galleryID int64, number int) (int64, error) {
	var id int64
	err := o.q.QueryRowContext(ctx,
		`SELECT chapter_id FROM chapters WHERE series_id = ? AND chapter_number = ?`,
		galleryID, number,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, errors.Consistencyf("gallery %d has no chapter %d", galleryID, number)
	}
	if err != nil {
		return 0, fmt.Errorf("find chapter: %w", err)
	}
	return id, nil
}

// ReconcileChapter records the on-disk page count for a chapter and drops
// its hashes so they are regenerated.
func (s *Store) ReconcileChapter(ctx context.Context, galleryID int64, chapter, pages int) error {
	if pages < 0 {
		return errors.Validation("page count must not be negative")
	}
	return s.write(ctx, func(o *ops) error {
		id, err := o.chapterID(ctx, galleryID, chapter)
		if err != nil {
			return err
		}
		if _, err := o.q.ExecContext(ctx, `UPDATE chapters SET pages = ? WHERE chapter_id = ?`, pages, id); err != nil {
			return fmt.Errorf("update pages: %w", err)
		}
		if _, err := o.q.ExecContext(ctx, `DELETE FROM hashes WHERE chapter_id = ?`, id); err != nil {
			return fmt.Errorf("invalidate hashes: %w", err)
		}
		o.record(store.Event{Type: store.EventGalleryUpdated, GalleryID: galleryID})
		return nil
	})
}
