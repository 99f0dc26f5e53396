package report

import (
	"sort"

	"github.com/hooklint/hooklint/internal/types"
)

// Report aggregates findings. It deduplicates on (rule key, primary location)
// and always exposes findings in a fixed order: severity descending, then
// file, line, column, rule key and message. It performs no I/O.
type Report struct {
	findings []types.Finding
}

// New returns a report holding fs.
func New(fs ...types.Finding) *Report {
	r := &Report{}
	r.Add(fs...)
	return r
}

// Add appends findings.
func (r *Report) Add(fs ...types.Finding) {
	r.findings = append(r.findings, fs...)
}

// Merge folds other into r. Merging is concatenation; order and duplicates
// are resolved when findings are read.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.findings = append(r.findings, other.findings...)
}

// Findings returns the deduplicated, ordered findings.
func (r *Report) Findings() []types.Finding {
	out := make([]types.Finding, len(r.findings))
	copy(out, r.findings)
	Sort(out)
	return dedupe(out)
}

func (r *Report) Len() int { return len(r.Findings()) }

// Counts tallies findings by severity.
func (r *Report) Counts() map[types.Severity]int {
	return CountBySeverity(r.Findings())
}

// CountBySeverity tallies fs by severity.
func CountBySeverity(fs []types.Finding) map[types.Severity]int {
	out := map[types.Severity]int{}
	for _, f := range fs {
		out[f.Severity]++
	}
	return out
}

// Sort orders findings in report order in place.
func Sort(fs []types.Finding) {
	sort.SliceStable(fs, func(i, j int) bool { return less(fs[i], fs[j]) })
}

func less(a, b types.Finding) bool {
	if ra, rb := a.Severity.Rank(), b.Severity.Rank(); ra != rb {
		return ra > rb
	}
	if a.Primary.Less(b.Primary) {
		return true
	}
	if b.Primary.Less(a.Primary) {
		return false
	}
	if a.RuleKey != b.RuleKey {
		return a.RuleKey < b.RuleKey
	}
	return a.Message < b.Message
}

type dedupeKey struct {
	rule string
	loc  types.Location
}

// dedupe keeps the first finding of each (rule, primary location) pair of an
// already sorted slice.
func dedupe(fs []types.Finding) []types.Finding {
	seen := make(map[dedupeKey]bool, len(fs))
	out := fs[:0]
	for _, f := range fs {
		k := dedupeKey{rule: f.RuleKey, loc: f.Primary}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}
	return out
}

// FilterMinSeverity drops findings ranked below min. An empty min keeps all.
func FilterMinSeverity(fs []types.Finding, min types.Severity) []types.Finding {
	if min == "" {
		return fs
	}
	var out []types.Finding
	for _, f := range fs {
		if f.Severity.Rank() >= min.Rank() {
			out = append(out, f)
		}
	}
	return out
}

// ShouldFail reports whether any finding reaches the failOn threshold
// (info|warning|critical, or low|medium|high). Unknown values mean warning.
func ShouldFail(findings []types.Finding, failOn string) bool {
	th, err := types.ParseSeverity(failOn)
	if err != nil {
		th = types.SevWarning
	}
	for _, f := range findings {
		if f.Severity.Rank() >= th.Rank() {
			return true
		}
	}
	return false
}
