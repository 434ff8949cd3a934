package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/query"
	"github.com/listenupapp/doujinshelf/internal/store"
)

// listColumns must match the scan order in scanList.
const listColumns = `list_id, list_name, list_filter, type, enforce, regex, l_case, strict`

func scanList(scanner interface{ Scan(dest ...any) error }) (*domain.GalleryList, error) {
	var (
		l                             domain.GalleryList
		typ, enforce, regex, lc, strt int
	)
	if err := scanner.Scan(&l.ID, &l.Name, &l.Filter, &typ, &enforce, &regex, &lc, &strt); err != nil {
		return nil, err
	}
	l.Type = domain.ListType(typ)
	l.Enforce = enforce != 0
	l.Regex = regex != 0
	l.Case = lc != 0
	l.Strict = strt != 0
	return &l, nil
}

// CreateList inserts a list and returns its id.
func (s *Store) CreateList(ctx context.Context, l *domain.GalleryList) (int64, error) {
	if err := s.validator.Validate(l); err != nil {
		return 0, err
	}
	if err := validateFilter(l); err != nil {
		return 0, err
	}
	err := s.write(ctx, func(o *ops) error {
		res, err := o.q.ExecContext(ctx, `
			INSERT INTO list (list_name, list_filter, type, enforce, regex, l_case, strict)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			l.Name, l.Filter, int(l.Type),
			boolInt(l.Enforce), boolInt(l.Regex), boolInt(l.Case), boolInt(l.Strict),
		)
		if err != nil {
			return fmt.Errorf("insert list: %w", err)
		}
		l.ID, err = res.LastInsertId()
		if err != nil {
			return err
		}
		o.record(store.Event{Type: store.EventListChanged, ListID: l.ID})
		return nil
	})
	return l.ID, err
}

// UpdateList rewrites a list's name, filter and flags.
func (s *Store) UpdateList(ctx context.Context, l *domain.GalleryList) error {
	if err := s.validator.Validate(l); err != nil {
		return err
	}
	if err := validateFilter(l); err != nil {
		return err
	}
	return s.write(ctx, func(o *ops) error {
		res, err := o.q.ExecContext(ctx, `
			UPDATE list SET list_name = ?, list_filter = ?, type = ?, enforce = ?, regex = ?, l_case = ?, strict = ?
			WHERE list_id = ?`,
			l.Name, l.Filter, int(l.Type),
			boolInt(l.Enforce), boolInt(l.Regex), boolInt(l.Case), boolInt(l.Strict),
			l.ID,
		)
		if err != nil {
			return fmt.Errorf("update list: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		o.record(store.Event{Type: store.EventListChanged, ListID: l.ID})
		return nil
	})
}

func validateFilter(l *domain.GalleryList) error {
	if l.Type != domain.ListAuto {
		return nil
	}
	_, err := query.Parse(l.Filter, queryOptions(l))
	return err
}

func queryOptions(l *domain.GalleryList) query.Options {
	return query.Options{Case: l.Case, Strict: l.Strict, Regex: l.Regex}
}

// GetList retrieves a list by id.
// Returns store.ErrNotFound if the list does not exist.
func (s *Store) GetList(ctx context.Context, id int64) (*domain.GalleryList, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+listColumns+` FROM list WHERE list_id = ?`, id)
	l, err := scanList(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return l, err
}

// ListLists returns all lists ordered by name.
func (s *Store) ListLists(ctx context.Context) ([]*domain.GalleryList, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+listColumns+` FROM list ORDER BY list_name, list_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lists := []*domain.GalleryList{}
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

// DeleteList removes a list. Its galleries are untouched.
func (s *Store) DeleteList(ctx context.Context, id int64) error {
	return s.write(ctx, func(o *ops) error {
		res, err := o.q.ExecContext(ctx, `DELETE FROM list WHERE list_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete list: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		o.record(store.Event{Type: store.EventListChanged, ListID: id})
		return nil
	})
}

// AddToList adds galleries to a list. Existing members are ignored.
func (s *Store) AddToList(ctx context.Context, listID int64, galleryIDs ...int64) error {
	return s.write(ctx, func(o *ops) error { return o.addToList(ctx, listID, galleryIDs) })
}

func (o *ops) addToList(ctx context.Context, listID int64, galleryIDs []int64) error {
	for _, id := range galleryIDs {
		_, err := o.q.ExecContext(ctx,
			`INSERT OR IGNORE INTO series_list_map (list_id, series_id) VALUES (?, ?)`, listID, id)
		if err != nil {
			return mapListError(err)
		}
	}
	o.record(store.Event{Type: store.EventListChanged, ListID: listID})
	return nil
}

// RemoveFromList drops galleries from a list.
func (s *Store) RemoveFromList(ctx context.Context, listID int64, galleryIDs ...int64) error {
	return s.write(ctx, func(o *ops) error { return o.removeFromList(ctx, listID, galleryIDs) })
}

func (o *ops) removeFromList(ctx context.Context, listID int64, galleryIDs []int64) error {
	for _, id := range galleryIDs {
		_, err := o.q.ExecContext(ctx,
			`DELETE FROM series_list_map WHERE list_id = ? AND series_id = ?`, listID, id)
		if err != nil {
			return fmt.Errorf("remove from list: %w", err)
		}
	}
	o.record(store.Event{Type: store.EventListChanged, ListID: listID})
	return nil
}

// mapListError turns foreign key failures into consistency errors.
func mapListError(err error) error {
	if isConstraint(err, "FOREIGN KEY constraint failed") {
		return errors.Wrap(err, errors.CodeConsistency, "list or gallery does not exist")
	}
	return fmt.Errorf("add to list: %w", err)
}

// ListMembers returns the gallery ids in a list, ascending.
func (s *Store) ListMembers(ctx context.Context, listID int64) ([]int64, error) {
	return s.read().listMembers(ctx, listID)
}

func (o *ops) listMembers(ctx context.Context, listID int64) ([]int64, error) {
	rows, err := o.q.QueryContext(ctx,
		`SELECT series_id FROM series_list_map WHERE list_id = ? ORDER BY series_id`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ScanList re-evaluates an auto list's filter against the library. Matching
// galleries are added; with enforce set, members that no longer match are
// removed. Regular lists are left alone.
func (s *Store) ScanList(ctx context.Context, listID int64) (store.ScanListResult, error) {
	var result store.ScanListResult

	l, err := s.GetList(ctx, listID)
	if err != nil {
		return result, err
	}
	if l.Type != domain.ListAuto {
		return result, nil
	}
	q, err := query.Parse(l.Filter, queryOptions(l))
	if err != nil {
		return result, err
	}

	err = s.write(ctx, func(o *ops) error {
		galleries, err := o.listGalleries(ctx, store.GalleryFilter{})
		if err != nil {
			return err
		}
		members, err := o.listMembers(ctx, listID)
		if err != nil {
			return err
		}

		var add, remove []int64
		for _, g := range galleries {
			isMember := slices.Contains(members, g.ID)
			matches := !q.Empty() && q.Match(g)
			switch {
			case matches && !isMember:
				add = append(add, g.ID)
			case !matches && isMember && l.Enforce:
				remove = append(remove, g.ID)
			}
		}
		if len(add) > 0 {
			if err := o.addToList(ctx, listID, add); err != nil {
				return err
			}
		}
		if len(remove) > 0 {
			if err := o.removeFromList(ctx, listID, remove); err != nil {
				return err
			}
		}
		result = store.ScanListResult{Added: len(add), Removed: len(remove)}
		return nil
	})
	return result, err
}
