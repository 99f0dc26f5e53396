package types

import "fmt"

// Severity is the ordered risk level of a rule: info < warning < critical.
type Severity string

const (
	SevInfo     Severity = "info"
	SevWarning  Severity = "warning"
	SevCritical Severity = "critical"
)

// Rank orders severities; unknown values rank below info.
func (s Severity) Rank() int {
	switch s {
	case SevInfo:
		return 1
	case SevWarning:
		return 2
	case SevCritical:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool { return s.Rank() > 0 }

// ParseSeverity accepts the canonical names plus the low/medium/high aliases
// used by other scanners' --fail-on flags.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "info", "low":
		return SevInfo, nil
	case "warning", "warn", "medium":
		return SevWarning, nil
	case "critical", "high":
		return SevCritical, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Category classifies what kind of problem a rule reports.
type Category string

const (
	CatAntipattern Category = "antipattern"
	CatStyle       Category = "style"
	CatCorrectness Category = "correctness"
)

func (c Category) Valid() bool {
	switch c {
	case CatAntipattern, CatStyle, CatCorrectness:
		return true
	}
	return false
}

// Location is a source span in the scanned program.
type Location struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
	EndColumn int    `json:"end_column,omitempty"`
}

func (l Location) String() string {
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Less orders locations by file, line, then column.
func (l Location) Less(o Location) bool {
	if l.File != o.File {
		return l.File < o.File
	}
	if l.Line != o.Line {
		return l.Line < o.Line
	}
	return l.Column < o.Column
}

// Finding is one reported instance of a rule at a source location. Findings
// are values: once emitted they are only filtered and sorted.
type Finding struct {
	RuleKey   string     `json:"rule_key"`
	Severity  Severity   `json:"severity"`
	Category  Category   `json:"category"`
	Primary   Location   `json:"primary_location"`
	Secondary []Location `json:"secondary_locations"`
	Message   string     `json:"message"`
}
