// Package audit appends one JSONL record per scan so a repository keeps a
// history of how many antipatterns each run found.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hooklint/hooklint/internal/types"
)

// topN bounds the findings kept verbatim in a record.
const topN = 10

// Record is one line of the audit log.
type Record struct {
	ID           string         `json:"scan_id"`
	Time         time.Time      `json:"timestamp"`
	Root         string         `json:"root"`
	Corpus       string         `json:"corpus_fingerprint,omitempty"`
	Total        int            `json:"total_findings"`
	New          int            `json:"new_findings"`
	Baselined    int            `json:"baselined_count"`
	BySeverity   map[string]int `json:"severity_counts"`
	FilesScanned int            `json:"files_scanned"`
	FilesCached  int            `json:"files_cached"`
	FileErrors   int            `json:"file_errors"`
	Duration     string         `json:"duration"`
	Baseline     string         `json:"baseline_file,omitempty"`
	Top          []Entry        `json:"top_findings,omitempty"`
}

// Entry is a finding reduced to what a history listing needs.
type Entry struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Scan describes a finished scan. New is the subset of Findings that the
// baseline does not cover.
type Scan struct {
	Root         string
	Corpus       string
	Findings     []types.Finding
	New          []types.Finding
	FilesScanned int
	FilesCached  int
	FileErrors   int
	Duration     time.Duration
	Baseline     string
}

// NewRecord summarizes s with a fresh scan ID. Findings are expected in
// report order, so the kept entries are the most severe new ones.
func NewRecord(s Scan) Record {
	r := Record{
		ID:           uuid.NewString(),
		Time:         time.Now().UTC(),
		Root:         s.Root,
		Corpus:       s.Corpus,
		Total:        len(s.Findings),
		New:          len(s.New),
		Baselined:    len(s.Findings) - len(s.New),
		BySeverity:   map[string]int{},
		FilesScanned: s.FilesScanned,
		FilesCached:  s.FilesCached,
		FileErrors:   s.FileErrors,
		Duration:     s.Duration.Round(time.Millisecond).String(),
		Baseline:     s.Baseline,
	}
	for _, f := range s.Findings {
		r.BySeverity[string(f.Severity)]++
	}
	for _, f := range s.New {
		if len(r.Top) == topN {
			break
		}
		r.Top = append(r.Top, Entry{Rule: f.RuleKey, Severity: string(f.Severity), File: f.Primary.File, Line: f.Primary.Line})
	}
	return r
}

// Log is an append-only JSONL file under .git when the root is a repository,
// otherwise at the root.
type Log struct {
	path string
}

func Open(root string) *Log {
	if st, err := os.Stat(filepath.Join(root, ".git")); err == nil && st.IsDir() {
		return &Log{path: filepath.Join(root, ".git", "hooklint_audit.jsonl")}
	}
	return &Log{path: filepath.Join(root, ".hooklint_audit.jsonl")}
}

func (l *Log) Path() string { return l.path }

// Append writes r as one line. A missing ID is filled in.
func (l *Log) Append(r Record) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(r); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}

// History returns up to limit records, newest first; limit <= 0 returns all.
// A missing log is an empty history. Lines that do not decode are skipped.
func (l *Log) History(limit int) ([]Record, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64<<10), 4<<20)
	for sc.Scan() {
		var r Record
		if json.Unmarshal(sc.Bytes(), &r) == nil {
			out = append(out, r)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
