package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/Nomadcxx/javorganize/internal/metadata"
)

// ErrItemNotFound is returned when an update targets a path the catalog does not hold.
var ErrItemNotFound = errors.New("catalog item not found")

// FindItemByPath returns the catalog item stored at exactly path, or nil if none.
func (m *MediaDB) FindItemByPath(path string) (*metadata.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row := m.db.QueryRow(`
		SELECT id, path, genres, video
		FROM catalog_items
		WHERE path = ?
	`, filepath.Clean(path))

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find item %s: %w", path, err)
	}
	return item, nil
}

// UpdateItemPath records the new location of a relocated item and updates
// item.Path. Any other row already at newPath described the file that was
// just overwritten and is removed in the same transaction.
func (m *MediaDB) UpdateItemPath(item *metadata.Item, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	newPath = filepath.Clean(newPath)
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("update item path: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM catalog_items
		WHERE path = ? AND id <> ?
	`, newPath, item.ID); err != nil {
		return fmt.Errorf("drop replaced item at %s: %w", newPath, err)
	}

	res, err := tx.Exec(`
		UPDATE catalog_items
		SET path = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, newPath, item.ID)
	if err != nil {
		return fmt.Errorf("update item path: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrItemNotFound, item.ID)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update item path: %w", err)
	}

	item.Path = newPath
	return nil
}

// UpsertItem inserts an item or replaces the tags and metadata of the item at
// the same path. item.ID is set on return.
func (m *MediaDB) UpsertItem(item *metadata.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	genres, err := json.Marshal(nonNil(item.Genres))
	if err != nil {
		return err
	}
	var video sql.NullString
	if item.Video != nil {
		b, err := json.Marshal(item.Video)
		if err != nil {
			return err
		}
		video = sql.NullString{String: string(b), Valid: true}
	}

	item.Path = filepath.Clean(item.Path)
	err = m.db.QueryRow(`
		INSERT INTO catalog_items (path, genres, video)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			genres = excluded.genres,
			video = excluded.video,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`, item.Path, string(genres), video).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("upsert item %s: %w", item.Path, err)
	}
	return nil
}

// ListItems returns catalog items ordered by path. A limit <= 0 returns all.
func (m *MediaDB) ListItems(limit int) ([]metadata.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := m.db.Query(`
		SELECT id, path, genres, video
		FROM catalog_items
		ORDER BY path
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []metadata.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// CountItems returns the number of catalog items.
func (m *MediaDB) CountItems() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int
	err := m.db.QueryRow("SELECT COUNT(*) FROM catalog_items").Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*metadata.Item, error) {
	var (
		item   metadata.Item
		genres string
		video  sql.NullString
	)
	if err := s.Scan(&item.ID, &item.Path, &genres, &video); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(genres), &item.Genres); err != nil {
		return nil, fmt.Errorf("decode genres of %s: %w", item.Path, err)
	}
	if video.Valid && video.String != "" {
		item.Video = &metadata.Video{}
		if err := json.Unmarshal([]byte(video.String), item.Video); err != nil {
			return nil, fmt.Errorf("decode video of %s: %w", item.Path, err)
		}
	}
	return &item, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
