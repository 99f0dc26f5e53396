package report

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooklint/hooklint/internal/types"
)

func fnd(rule string, sev types.Severity, file string, line int) types.Finding {
	return types.Finding{
		RuleKey:  rule,
		Severity: sev,
		Category: types.CatAntipattern,
		Primary:  types.Location{File: file, Line: line},
		Message:  rule + " at " + file,
	}
}

func TestFindings_OrderAndDedupe(t *testing.T) {
	r := New(
		fnd("bulk-signal-bypass", types.SevWarning, "b.py", 3),
		fnd("handler-without-sender", types.SevInfo, "a.py", 1),
		fnd("signal-self-trigger", types.SevCritical, "z.py", 9),
		fnd("bulk-signal-bypass", types.SevWarning, "a.py", 7),
		fnd("bulk-signal-bypass", types.SevWarning, "b.py", 3),
		fnd("premature-m2m-access", types.SevWarning, "a.py", 7),
	)
	got := r.Findings()
	require.Len(t, got, 5)
	keys := make([]string, len(got))
	for i, f := range got {
		keys[i] = f.RuleKey + "@" + f.Primary.String()
	}
	assert.Equal(t, []string{
		"signal-self-trigger@z.py:9",
		"bulk-signal-bypass@a.py:7",
		"premature-m2m-access@a.py:7",
		"bulk-signal-bypass@b.py:3",
		"handler-without-sender@a.py:1",
	}, keys)
	assert.Equal(t, map[types.Severity]int{types.SevCritical: 1, types.SevWarning: 3, types.SevInfo: 1}, r.Counts())
}

func TestMerge_EqualsSingleReport(t *testing.T) {
	a := []types.Finding{fnd("x", types.SevInfo, "a.py", 2), fnd("y", types.SevCritical, "a.py", 5)}
	b := []types.Finding{fnd("x", types.SevInfo, "b.py", 1), fnd("y", types.SevCritical, "a.py", 5)}

	ab := New(a...)
	ab.Merge(New(b...))
	ba := New(b...)
	ba.Merge(New(a...))
	all := New(append(append([]types.Finding{}, a...), b...)...)

	assert.Equal(t, all.Findings(), ab.Findings())
	assert.Equal(t, all.Findings(), ba.Findings())
	assert.Len(t, ab.Findings(), 3)
}

func TestShouldFail(t *testing.T) {
	fs := []types.Finding{fnd("x", types.SevWarning, "a.py", 1)}
	assert.True(t, ShouldFail(fs, "warning"))
	assert.True(t, ShouldFail(fs, "medium"))
	assert.True(t, ShouldFail(fs, "info"))
	assert.False(t, ShouldFail(fs, "critical"))
	assert.False(t, ShouldFail(fs, "high"))
	assert.True(t, ShouldFail(fs, "bogus"))
	assert.False(t, ShouldFail(nil, "info"))
}

func TestFilterMinSeverity(t *testing.T) {
	fs := []types.Finding{fnd("a", types.SevInfo, "a.py", 1), fnd("b", types.SevCritical, "a.py", 2)}
	assert.Len(t, FilterMinSeverity(fs, types.SevWarning), 1)
	assert.Len(t, FilterMinSeverity(fs, ""), 2)
}

func TestBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	old := fnd("bulk-signal-bypass", types.SevWarning, "a.py", 3)
	require.NoError(t, SaveBaseline(path, []types.Finding{old}))

	base, err := LoadBaseline(path)
	require.NoError(t, err)
	assert.Len(t, base.Keys(), 1)

	moved := old
	moved.Primary.Line = 40
	fresh := fnd("signal-self-trigger", types.SevCritical, "a.py", 3)
	got := FilterNewFindings([]types.Finding{moved, fresh}, base)
	require.Len(t, got, 1)
	assert.Equal(t, "signal-self-trigger", got[0].RuleKey)

	_, err = LoadBaseline(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestPrintText(t *testing.T) {
	var buf bytes.Buffer
	PrintText(&buf, nil, PrintOptions{Duration: 1200 * time.Millisecond, FilesScanned: 10})
	out := buf.String()
	assert.Contains(t, out, "No signal antipatterns found")
	assert.Contains(t, out, "Trees scanned: 10")

	buf.Reset()
	f := fnd("signal-trigger-cycle", types.SevCritical, "signals.py", 12)
	f.Secondary = []types.Location{{File: "models.py", Line: 4}}
	PrintText(&buf, []types.Finding{f}, PrintOptions{NoColor: true})
	out = buf.String()
	assert.Contains(t, out, "signals.py:12 critical [signal-trigger-cycle]")
	assert.Contains(t, out, "see models.py:4")
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	fs := []types.Finding{fnd("bulk-signal-bypass", types.SevWarning, "a.py", 1)}
	require.NoError(t, PrintTable(&buf, fs, PrintOptions{NoColor: true, FilesScanned: 2, FilesCached: 1}))
	out := buf.String()
	assert.Contains(t, out, "bulk-signal-bypass")
	assert.Contains(t, out, "a.py:1")
	assert.Contains(t, out, "(1 from cache)")
	assert.Contains(t, out, "warning: 1")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, []types.Finding{fnd("x", types.SevInfo, "a.py", 1)}))
	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0]["rule_key"])
	assert.Contains(t, got[0], "primary_location")
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "no findings", Summary(nil))
	assert.Equal(t, "1 critical, 2 info", Summary([]types.Finding{
		fnd("a", types.SevInfo, "a.py", 1), fnd("b", types.SevInfo, "a.py", 2), fnd("c", types.SevCritical, "a.py", 3),
	}))
}
