// Package prefs persists client preferences between sessions. Realtime and
// cache state is deliberately not stored here; it is rebuilt fresh on start.
package prefs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"feedme-console/internal/dto"
	"feedme-console/internal/model"

	_ "modernc.org/sqlite"
)

var ErrSavedSearchNotFound = errors.New("prefs: saved search not found")

const searchHistoryLimit = 50

const schemaSQL = `
CREATE TABLE IF NOT EXISTS preferences (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS search_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	query       TEXT NOT NULL,
	searched_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS saved_searches (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	params     TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

// Store is a SQLite-backed preference store.
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("prefs: db path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("prefs: create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("prefs: open db: %w", err)
	}

	store := &Store{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) init() error {
	if _, err := s.db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("prefs: set busy timeout: %w", err)
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("prefs: create schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns the persisted preferences, falling back to defaults for
// anything missing or unreadable.
func (s *Store) Load() (model.Preferences, error) {
	prefs := model.DefaultPreferences()
	row := s.db.QueryRow("SELECT value FROM preferences WHERE key = 'ui'")
	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return prefs, nil
		}
		return prefs, fmt.Errorf("prefs: load: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		// A corrupt row is not worth failing startup over.
		return model.DefaultPreferences(), nil
	}
	return prefs, nil
}

// Save persists the preferences wholesale.
func (s *Store) Save(prefs model.Preferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("prefs: marshal: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT INTO preferences (key, value) VALUES ('ui', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		string(raw),
	)
	if err != nil {
		return fmt.Errorf("prefs: save: %w", err)
	}
	return nil
}

// AddSearchHistory records a search input and trims the history to its cap.
func (s *Store) AddSearchHistory(query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.Exec("INSERT INTO search_history (query, searched_at) VALUES (?, ?)", query, now); err != nil {
		return fmt.Errorf("prefs: add search history: %w", err)
	}
	_, err := s.db.Exec(
		"DELETE FROM search_history WHERE id NOT IN (SELECT id FROM search_history ORDER BY id DESC LIMIT ?)",
		searchHistoryLimit,
	)
	if err != nil {
		return fmt.Errorf("prefs: trim search history: %w", err)
	}
	return nil
}

// SearchHistory returns the most recent searches, newest first.
func (s *Store) SearchHistory(limit int) ([]model.SearchHistoryEntry, error) {
	if limit <= 0 || limit > searchHistoryLimit {
		limit = searchHistoryLimit
	}
	rows, err := s.db.Query("SELECT id, query, searched_at FROM search_history ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("prefs: search history: %w", err)
	}
	defer rows.Close()

	var out []model.SearchHistoryEntry
	for rows.Next() {
		var entry model.SearchHistoryEntry
		var ts string
		if err := rows.Scan(&entry.ID, &entry.Query, &ts); err != nil {
			return nil, fmt.Errorf("prefs: scan search history: %w", err)
		}
		entry.SearchedAt, _ = time.Parse(time.RFC3339, ts)
		out = append(out, entry)
	}
	return out, rows.Err()
}

// SaveSearch stores a named, reusable parameter set. Saving under an
// existing name replaces it.
func (s *Store) SaveSearch(name string, params dto.ConversationListParams) (*model.SavedSearch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("prefs: saved search name cannot be empty")
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("prefs: marshal search params: %w", err)
	}
	now := time.Now().UTC()
	res, err := s.db.Exec(
		"INSERT INTO saved_searches (name, params, created_at) VALUES (?, ?, ?) ON CONFLICT(name) DO UPDATE SET params = excluded.params",
		name, string(raw), now.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("prefs: save search: %w", err)
	}
	id, _ := res.LastInsertId()
	return &model.SavedSearch{ID: id, Name: name, Params: string(raw), CreatedAt: now}, nil
}

// SavedSearches lists all saved searches by name.
func (s *Store) SavedSearches() ([]model.SavedSearch, error) {
	rows, err := s.db.Query("SELECT id, name, params, created_at FROM saved_searches ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("prefs: saved searches: %w", err)
	}
	defer rows.Close()

	var out []model.SavedSearch
	for rows.Next() {
		var search model.SavedSearch
		var ts string
		if err := rows.Scan(&search.ID, &search.Name, &search.Params, &ts); err != nil {
			return nil, fmt.Errorf("prefs: scan saved search: %w", err)
		}
		search.CreatedAt, _ = time.Parse(time.RFC3339, ts)
		out = append(out, search)
	}
	return out, rows.Err()
}

// DeleteSavedSearch removes one saved search by id.
func (s *Store) DeleteSavedSearch(id int64) error {
	res, err := s.db.Exec("DELETE FROM saved_searches WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("prefs: delete saved search: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrSavedSearchNotFound
	}
	return nil
}
