// Package cache persists per-tree scan results between runs so unchanged
// tree files are not rescanned.
package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/hooklint/hooklint/internal/types"
)

// Entry is the cached outcome of scanning one tree file.
type Entry struct {
	// Key is the tree content hash joined with the corpus fingerprint.
	Key      string          `json:"key"`
	Findings []types.Finding `json:"findings"`
}

type DB struct {
	// Path relative to the scan root -> cached entry
	Entries map[string]Entry `json:"entries"`
}

// Lookup returns the cached findings of path when key still matches.
func (db DB) Lookup(path, key string) ([]types.Finding, bool) {
	e, ok := db.Entries[path]
	if !ok || e.Key != key {
		return nil, false
	}
	return e.Findings, true
}

func defaultPath(root string) string {
	// Prefer .git so the cache is never committed by accident.
	gitDir := filepath.Join(root, ".git")
	if st, err := os.Stat(gitDir); err == nil && st.IsDir() {
		return filepath.Join(gitDir, "hooklintcache.json")
	}
	return filepath.Join(root, ".hooklintcache.json")
}

func Load(root string) (DB, error) {
	var db DB
	f, err := os.ReadFile(defaultPath(root))
	if err != nil {
		return DB{Entries: map[string]Entry{}}, err
	}
	if err := json.Unmarshal(f, &db); err != nil {
		return DB{Entries: map[string]Entry{}}, err
	}
	if db.Entries == nil {
		db.Entries = map[string]Entry{}
	}
	return db, nil
}

func Save(root string, db DB) error {
	if db.Entries == nil {
		return errors.New("empty cache")
	}
	b, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(defaultPath(root), b, 0644)
}
