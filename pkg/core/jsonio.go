package core

import (
	"encoding/json"
	"fmt"
	"io"
)

// MarshalFindings writes findings as indented JSON, the same shape
// `hooklint scan --json` prints.
func MarshalFindings(w io.Writer, findings []Finding) error {
	if findings == nil {
		findings = []Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}

// UnmarshalFindings reads the output of MarshalFindings back. Findings with a
// severity hooklint does not know are rejected.
func UnmarshalFindings(r io.Reader) ([]Finding, error) {
	var fs []Finding
	if err := json.NewDecoder(r).Decode(&fs); err != nil {
		return nil, fmt.Errorf("decode findings: %w", err)
	}
	for i, f := range fs {
		if !f.Severity.Valid() {
			return nil, fmt.Errorf("finding %d (%s): unknown severity %q", i, f.RuleKey, f.Severity)
		}
	}
	return fs, nil
}
