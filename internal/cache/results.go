package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hooklint/hooklint/internal/types"
)

// LastScan is the reported outcome of the most recent scan of a root, kept
// so `hooklint last` can show it again without rescanning.
type LastScan struct {
	Root         string          `json:"root"`
	Time         time.Time       `json:"timestamp"`
	Corpus       string          `json:"corpus_fingerprint,omitempty"`
	FilesScanned int             `json:"files_scanned"`
	Findings     []types.Finding `json:"findings"`
}

func lastScanPath(root string) string {
	if st, err := os.Stat(filepath.Join(root, ".git")); err == nil && st.IsDir() {
		return filepath.Join(root, ".git", "hooklint_last_scan.json")
	}
	return filepath.Join(root, ".hooklint_last_scan.json")
}

// SaveLastScan overwrites the last scan record of s.Root.
func SaveLastScan(s LastScan) error {
	if s.Findings == nil {
		s.Findings = []types.Finding{}
	}
	if s.Time.IsZero() {
		s.Time = time.Now().UTC()
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(lastScanPath(s.Root), b, 0o644)
}

// LoadLastScan reads the last scan record of root.
func LoadLastScan(root string) (LastScan, error) {
	var s LastScan
	b, err := os.ReadFile(lastScanPath(root))
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("last scan %s: %w", lastScanPath(root), err)
	}
	return s, nil
}
