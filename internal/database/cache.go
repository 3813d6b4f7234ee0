package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Nomadcxx/javorganize/internal/metadata"
)

// LoadCachedFields returns the cached record for v's provider and number, or
// nil when nothing is cached.
func (m *MediaDB) LoadCachedFields(v *metadata.Video) (*metadata.Video, error) {
	if v == nil {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var raw string
	err := m.db.QueryRow("SELECT video FROM metadata_cache WHERE cache_key = ?", v.Key()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cache %s: %w", v.Key(), err)
	}

	var cached metadata.Video
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, fmt.Errorf("decode cache %s: %w", v.Key(), err)
	}
	return &cached, nil
}

// SaveCachedVideo stores v in the cache, replacing any previous record.
func (m *MediaDB) SaveCachedVideo(v *metadata.Video) error {
	if strings.TrimSpace(v.Num) == "" {
		return errors.New("cannot cache a video without a number")
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, err = m.db.Exec(`
		INSERT INTO metadata_cache (cache_key, provider, num, video)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			video = excluded.video,
			updated_at = CURRENT_TIMESTAMP
	`, v.Key(), v.Provider, strings.ToUpper(strings.TrimSpace(v.Num)), string(raw))
	return err
}

// CountCached returns the number of cached records.
func (m *MediaDB) CountCached() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int
	err := m.db.QueryRow("SELECT COUNT(*) FROM metadata_cache").Scan(&n)
	return n, err
}
