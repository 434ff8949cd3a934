package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/store"
)

// galleryColumns is the ordered list of columns selected in gallery queries.
// Must match the scan order in scanGallery.
const galleryColumns = `series_id, title, artist, info, type, status, language, rating,
	pub_date, date_added, last_read, times_read, fav, link, view,
	is_archive, path_in_archive, series_path, exed`

// scanGallery scans a sql.Row (or sql.Rows via its Scan method) into a
// domain.Gallery. Chapters and tags are loaded separately.
func scanGallery(scanner interface{ Scan(dest ...any) error }) (*domain.Gallery, error) {
	var g domain.Gallery

	var (
		pubDate   sql.NullString
		dateAdded string
		lastRead  sql.NullString
		fav       int
		view      int
		isArchive int
		exed      int
	)

	err := scanner.Scan(
		&g.ID,
		&g.Title,
		&g.Artist,
		&g.Info,
		&g.Type,
		&g.Status,
		&g.Language,
		&g.Rating,
		&pubDate,
		&dateAdded,
		&lastRead,
		&g.TimesRead,
		&fav,
		&g.Link,
		&view,
		&isArchive,
		&g.PathInArchive,
		&g.Path,
		&exed,
	)
	if err != nil {
		return nil, err
	}

	g.Favorite = fav != 0
	g.View = domain.View(view)
	g.IsArchive = isArchive != 0
	g.Exed = exed != 0

	if g.PubDate, err = parseNullableTime(pubDate); err != nil {
		return nil, err
	}
	if g.DateAdded, err = parseTime(dateAdded); err != nil {
		return nil, err
	}
	if g.LastRead, err = parseNullableTime(lastRead); err != nil {
		return nil, err
	}
	return &g, nil
}

// AddGallery inserts a new gallery with its chapters and tags and returns
// its id. Returns store.ErrAlreadyExists when a gallery with the same
// case-folded title and normalized path exists, unless force is set.
func (s *Store) AddGallery(ctx context.Context, g *domain.Gallery, force bool) (int64, error) {
	var id int64
	err := s.write(ctx, func(o *ops) error {
		var err error
		id, err = o.addGallery(ctx, g, force)
		return err
	})
	return id, err
}

func (o *ops) addGallery(ctx context.Context, g *domain.Gallery, force bool) (int64, error) {
	if g.DateAdded.IsZero() {
		g.DateAdded = time.Now()
	}
	if err := o.v.Validate(g); err != nil {
		return 0, err
	}

	titleKey := domain.TitleKey(g.Title)
	pathKey := domain.PathKey(g.Path)

	if !force {
		var count int
		err := o.q.QueryRowContext(ctx, `
			SELECT COUNT(1) FROM series
			WHERE title_key = ? AND path_key = ? AND path_in_archive = ?`,
			titleKey, pathKey, g.PathInArchive,
		).Scan(&count)
		if err != nil {
			return 0, fmt.Errorf("check duplicate: %w", err)
		}
		if count > 0 {
			return 0, errors.Duplicatef("gallery %q already exists", g.Title)
		}
	}

	res, err := o.q.ExecContext(ctx, `
		INSERT INTO series (
			title, title_key, artist, info, type, status, language, rating,
			pub_date, date_added, last_read, times_read, fav, link, view,
			is_archive, path_in_archive, series_path, path_key, exed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.Title,
		titleKey,
		g.Artist,
		g.Info,
		g.Type,
		g.Status,
		g.Language,
		g.Rating,
		nullTimeString(g.PubDate),
		formatTime(g.DateAdded),
		nullTimeString(g.LastRead),
		g.TimesRead,
		boolInt(g.Favorite),
		g.Link,
		int(g.View),
		boolInt(g.IsArchive),
		g.PathInArchive,
		g.Path,
		pathKey,
		boolInt(g.Exed),
	)
	if err != nil {
		return 0, fmt.Errorf("insert gallery: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("gallery id: %w", err)
	}
	g.ID = id

	for i := range g.Chapters {
		g.Chapters[i].GalleryID = id
		if err := o.insertChapter(ctx, &g.Chapters[i]); err != nil {
			return 0, err
		}
	}
	if err := o.writeTags(ctx, id, g.Tags); err != nil {
		return 0, err
	}

	o.record(store.Event{Type: store.EventGalleryAdded, GalleryID: id})
	return id, nil
}

// ModifyGallery applies a patch and returns the updated gallery.
// Returns store.ErrNotFound when the gallery no longer exists.
func (s *Store) ModifyGallery(ctx context.Context, id int64, patch store.Patch) (*domain.Gallery, error) {
	var g *domain.Gallery
	err := s.write(ctx, func(o *ops) error {
		var err error
		g, err = o.modifyGallery(ctx, id, patch)
		return err
	})
	return g, err
}

func (o *ops) modifyGallery(ctx context.Context, id int64, patch store.Patch) (*domain.Gallery, error) {
	g, err := o.getGallery(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(g)
	if err := o.v.Validate(g); err != nil {
		return nil, err
	}
	if err := o.writeScalars(ctx, g); err != nil {
		return nil, err
	}
	if patch.ReplaceTags != nil || len(patch.AddTags) > 0 {
		if err := o.writeTags(ctx, id, g.Tags); err != nil {
			return nil, err
		}
	}
	o.record(store.Event{Type: store.EventGalleryUpdated, GalleryID: id})
	return g, nil
}

// UpdateGallery rewrites every field of an existing gallery, including its
// tag set and chapters. Chapters whose path or page count changed lose
// their hashes.
func (s *Store) UpdateGallery(ctx context.Context, g *domain.Gallery) error {
	return s.write(ctx, func(o *ops) error { return o.updateGallery(ctx, g) })
}

func (o *ops) updateGallery(ctx context.Context, g *domain.Gallery) error {
	if err := o.v.Validate(g); err != nil {
		return err
	}
	existing, err := o.loadChapters(ctx, []int64{g.ID})
	if err != nil {
		return err
	}
	if err := o.writeScalars(ctx, g); err != nil {
		return err
	}
	if err := o.syncChapters(ctx, g, existing[g.ID]); err != nil {
		return err
	}
	if err := o.writeTags(ctx, g.ID, g.Tags); err != nil {
		return err
	}
	o.record(store.Event{Type: store.EventGalleryUpdated, GalleryID: g.ID})
	return nil
}

// writeScalars updates the series row. A missing row is a consistency
// failure: the gallery was deleted under the caller.
func (o *ops) writeScalars(ctx context.Context, g *domain.Gallery) error {
	res, err := o.q.ExecContext(ctx, `
		UPDATE series SET
			title = ?, title_key = ?, artist = ?, info = ?, type = ?, status = ?,
			language = ?, rating = ?, pub_date = ?, last_read = ?, times_read = ?,
			fav = ?, link = ?, view = ?, is_archive = ?, path_in_archive = ?,
			series_path = ?, path_key = ?, exed = ?
		WHERE series_id = ?`,
		g.Title,
		domain.TitleKey(g.Title),
		g.Artist,
		g.Info,
		g.Type,
		g.Status,
		g.Language,
		g.Rating,
		nullTimeString(g.PubDate),
		nullTimeString(g.LastRead),
		g.TimesRead,
		boolInt(g.Favorite),
		g.Link,
		int(g.View),
		boolInt(g.IsArchive),
		g.PathInArchive,
		g.Path,
		domain.PathKey(g.Path),
		boolInt(g.Exed),
		g.ID,
	)
	if err != nil {
		return fmt.Errorf("update gallery: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update gallery: %w", err)
	}
	if n == 0 {
		return errors.NotFoundf("gallery %d no longer exists", g.ID)
	}
	return nil
}

// DeleteGallery removes a gallery; chapters, hashes, tag links and list
// memberships go with it.
func (s *Store) DeleteGallery(ctx context.Context, id int64) error {
	return s.write(ctx, func(o *ops) error { return o.deleteGallery(ctx, id) })
}

func (o *ops) deleteGallery(ctx context.Context, id int64) error {
	res, err := o.q.ExecContext(ctx, `DELETE FROM series WHERE series_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete gallery: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete gallery: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	o.record(store.Event{Type: store.EventGalleryDeleted, GalleryID: id})
	return nil
}

// GetGallery retrieves a gallery with chapters and tags.
// Returns store.ErrNotFound if the gallery does not exist.
func (s *Store) GetGallery(ctx context.Context, id int64) (*domain.Gallery, error) {
	return s.read().getGallery(ctx, id)
}

func (o *ops) getGallery(ctx context.Context, id int64) (*domain.Gallery, error) {
	row := o.q.QueryRowContext(ctx,
		`SELECT `+galleryColumns+` FROM series WHERE series_id = ?`, id)
	g, err := scanGallery(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := o.hydrate(ctx, []*domain.Gallery{g}); err != nil {
		return nil, err
	}
	return g, nil
}

// GetGalleryByPath finds a gallery by case-normalized path.
// Returns store.ErrNotFound if none matches.
func (s *Store) GetGalleryByPath(ctx context.Context, path string) (*domain.Gallery, error) {
	o := s.read()
	row := o.q.QueryRowContext(ctx,
		`SELECT `+galleryColumns+` FROM series WHERE path_key = ? ORDER BY series_id LIMIT 1`,
		domain.PathKey(path))
	g, err := scanGallery(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := o.hydrate(ctx, []*domain.Gallery{g}); err != nil {
		return nil, err
	}
	return g, nil
}

// ListGalleries returns galleries ordered by id.
func (s *Store) ListGalleries(ctx context.Context, filter store.GalleryFilter) ([]*domain.Gallery, error) {
	return s.read().listGalleries(ctx, filter)
}

func (o *ops) listGalleries(ctx context.Context, filter store.GalleryFilter) ([]*domain.Gallery, error) {
	var (
		where []string
		args  []any
	)
	if filter.View != nil {
		where = append(where, "view = ?")
		args = append(args, int(*filter.View))
	}
	if filter.Exed != nil {
		where = append(where, "exed = ?")
		args = append(args, boolInt(*filter.Exed))
	}
	if len(filter.IDs) > 0 {
		where = append(where, "series_id IN ("+placeholders(len(filter.IDs))+")")
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}

	query := `SELECT ` + galleryColumns + ` FROM series`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY series_id ASC`

	rows, err := o.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var galleries []*domain.Gallery
	for rows.Next() {
		g, err := scanGallery(rows)
		if err != nil {
			return nil, err
		}
		galleries = append(galleries, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if galleries == nil {
		return []*domain.Gallery{}, nil
	}
	if err := o.hydrate(ctx, galleries); err != nil {
		return nil, err
	}
	return galleries, nil
}

// CountGalleries returns the number of galleries.
func (s *Store) CountGalleries(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM series`).Scan(&n)
	return n, err
}

// hydrate loads chapters and tags for galleries in two queries each.
func (o *ops) hydrate(ctx context.Context, galleries []*domain.Gallery) error {
	ids := make([]int64, len(galleries))
	for i, g := range galleries {
		ids[i] = g.ID
	}
	chapters, err := o.loadChapters(ctx, ids)
	if err != nil {
		return err
	}
	tagSets, err := o.loadTags(ctx, ids)
	if err != nil {
		return err
	}
	for _, g := range galleries {
		g.Chapters = chapters[g.ID]
		g.Tags = tagSets[g.ID]
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
