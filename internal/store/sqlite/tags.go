package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/listenupapp/doujinshelf/internal/tags"
)

// writeTags replaces the tag set of a gallery.
func (o *ops) writeTags(ctx context.Context, galleryID int64, t tags.Tags) error {
	if _, err := o.q.ExecContext(ctx, `DELETE FROM series_tags_map WHERE series_id = ?`, galleryID); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	for _, ns := range t.Namespaces() {
		nsID, err := o.upsertName(ctx, "namespaces", "namespace_id", "namespace", ns)
		if err != nil {
			return err
		}
		for _, tag := range t[ns] {
			tagID, err := o.upsertName(ctx, "tags", "tag_id", "tag", tag)
			if err != nil {
				return err
			}
			mappingID, err := o.mapping(ctx, nsID, tagID)
			if err != nil {
				return err
			}
			if _, err := o.q.ExecContext(ctx,
				`INSERT OR IGNORE INTO series_tags_map (series_id, tags_mappings_id) VALUES (?, ?)`,
				galleryID, mappingID,
			); err != nil {
				return fmt.Errorf("link tag: %w", err)
			}
		}
	}
	return nil
}

// upsertName finds or creates a row in a (id, unique name) table.
// table and columns are constants supplied by callers in this file.
func (o *ops) upsertName(ctx context.Context, table, idCol, nameCol, value string) (int64, error) {
	if _, err := o.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO `+table+` (`+nameCol+`) VALUES (?)`, value,
	); err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}
	var id int64
	err := o.q.QueryRowContext(ctx,
		`SELECT `+idCol+` FROM `+table+` WHERE `+nameCol+` = ?`, value,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("find %s: %w", table, err)
	}
	return id, nil
}

func (o *ops) mapping(ctx context.Context, nsID, tagID int64) (int64, error) {
	if _, err := o.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO tags_mappings (namespace_id, tag_id) VALUES (?, ?)`, nsID, tagID,
	); err != nil {
		return 0, fmt.Errorf("insert mapping: %w", err)
	}
	var id int64
	err := o.q.QueryRowContext(ctx,
		`SELECT tags_mappings_id FROM tags_mappings WHERE namespace_id = ? AND tag_id = ?`, nsID, tagID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("find mapping: %w", err)
	}
	return id, nil
}

// loadTags returns the tag set per gallery id. Every id gets a non-nil set.
func (o *ops) loadTags(ctx context.Context, ids []int64) (map[int64]tags.Tags, error) {
	out := make(map[int64]tags.Tags, len(ids))
	for _, id := range ids {
		out[id] = tags.New()
	}
	for start := 0; start < len(ids); start += idChunk {
		chunk := ids[start:min(start+idChunk, len(ids))]
		rows, err := o.q.QueryContext(ctx, `
			SELECT m.series_id, n.namespace, t.tag
			FROM series_tags_map m
			JOIN tags_mappings tm ON tm.tags_mappings_id = m.tags_mappings_id
			JOIN namespaces n ON n.namespace_id = tm.namespace_id
			JOIN tags t ON t.tag_id = tm.tag_id
			WHERE m.series_id IN (`+placeholders(len(chunk))+`)`,
			int64Args(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("load tags: %w", err)
		}
		if err := scanTagRows(rows, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanTagRows(rows *sql.Rows, out map[int64]tags.Tags) error {
	defer rows.Close()
	for rows.Next() {
		var (
			id      int64
			ns, tag string
		)
		if err := rows.Scan(&id, &ns, &tag); err != nil {
			return err
		}
		out[id].Add(ns, tag)
	}
	return rows.Err()
}
