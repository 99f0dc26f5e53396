package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooklint/hooklint/internal/types"
)

func finding(rule string, sev types.Severity, line int) types.Finding {
	return types.Finding{RuleKey: rule, Severity: sev, Primary: types.Location{File: "signals.py", Line: line}}
}

func TestNewRecord(t *testing.T) {
	var all []types.Finding
	for i := 0; i < 12; i++ {
		all = append(all, finding(fmt.Sprintf("r%d", i), types.SevWarning, i+1))
	}
	all = append(all, finding("signal-self-trigger", types.SevCritical, 40))

	rec := NewRecord(Scan{
		Root:         "/repo",
		Corpus:       "00ff",
		Findings:     all,
		New:          all[:11],
		FilesScanned: 3,
		FileErrors:   1,
		Duration:     2*time.Second + 400*time.Microsecond,
		Baseline:     ".hooklint-baseline.json",
	})
	assert.Equal(t, 13, rec.Total)
	assert.Equal(t, 11, rec.New)
	assert.Equal(t, 2, rec.Baselined)
	assert.Equal(t, map[string]int{"warning": 12, "critical": 1}, rec.BySeverity)
	assert.Len(t, rec.Top, topN)
	assert.Equal(t, Entry{Rule: "r0", Severity: "warning", File: "signals.py", Line: 1}, rec.Top[0])
	assert.Equal(t, "2s", rec.Duration)
	assert.Equal(t, "00ff", rec.Corpus)
	_, err := uuid.Parse(rec.ID)
	assert.NoError(t, err)
}

func TestLog_AppendAndHistory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	l := Open(dir)
	assert.Equal(t, filepath.Join(dir, ".git", "hooklint_audit.jsonl"), l.Path())

	hist, err := l.History(0)
	require.NoError(t, err)
	assert.Empty(t, hist)

	for i := 1; i <= 3; i++ {
		require.NoError(t, l.Append(Record{Root: dir, Total: i}))
	}

	hist, err = l.History(0)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, 3, hist[0].Total, "newest first")
	assert.NotEmpty(t, hist[2].ID)
	assert.NotEqual(t, hist[0].ID, hist[1].ID)

	hist, err = l.History(2)
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestLog_SkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	l := Open(dir)
	assert.Equal(t, filepath.Join(dir, ".hooklint_audit.jsonl"), l.Path())

	require.NoError(t, l.Append(Record{Total: 1}))
	f, err := os.OpenFile(l.Path(), os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, l.Append(Record{Total: 2}))

	hist, err := l.History(0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, []int{2, 1}, []int{hist[0].Total, hist[1].Total})
}
