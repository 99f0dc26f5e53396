package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooklint/hooklint/internal/types"
)

type sarifDoc struct {
	Version string `json:"version"`
	Runs    []struct {
		Tool struct {
			Driver struct {
				Name    string `json:"name"`
				Version string `json:"version"`
				Rules   []struct {
					ID                   string `json:"id"`
					DefaultConfiguration struct {
						Level string `json:"level"`
					} `json:"defaultConfiguration"`
				} `json:"rules"`
			} `json:"driver"`
		} `json:"tool"`
		Results []struct {
			RuleID  string `json:"ruleId"`
			Level   string `json:"level"`
			Message struct {
				Text string `json:"text"`
			} `json:"message"`
			Locations []struct {
				PhysicalLocation struct {
					ArtifactLocation struct {
						URI string `json:"uri"`
					} `json:"artifactLocation"`
					Region struct {
						StartLine int `json:"startLine"`
					} `json:"region"`
				} `json:"physicalLocation"`
			} `json:"locations"`
			RelatedLocations []json.RawMessage `json:"relatedLocations"`
		} `json:"results"`
	} `json:"runs"`
}

func TestWriteSARIF(t *testing.T) {
	rules := []RuleMeta{
		{Key: "signal-trigger-cycle", Title: "Signal handlers trigger each other", Severity: types.SevCritical, Category: types.CatCorrectness},
		{Key: "bulk-signal-bypass", Title: "Bulk bypass", Severity: types.SevWarning, Category: types.CatAntipattern},
	}
	f := types.Finding{
		RuleKey:   "signal-trigger-cycle",
		Severity:  types.SevCritical,
		Primary:   types.Location{File: "signals.py", Line: 12, Column: 5},
		Secondary: []types.Location{{File: "models.py", Line: 4}},
		Message:   "trigger cycle Profile:delete -> User:delete -> Profile:delete",
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSARIF(&buf, "0.1.0", rules, []types.Finding{f}))

	var doc sarifDoc
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "2.1.0", doc.Version)
	require.Len(t, doc.Runs, 1)
	run := doc.Runs[0]
	assert.Equal(t, "hooklint", run.Tool.Driver.Name)
	assert.Equal(t, "0.1.0", run.Tool.Driver.Version)
	require.Len(t, run.Tool.Driver.Rules, 2)
	assert.Equal(t, "error", run.Tool.Driver.Rules[0].DefaultConfiguration.Level)

	require.Len(t, run.Results, 1)
	res := run.Results[0]
	assert.Equal(t, "signal-trigger-cycle", res.RuleID)
	assert.Equal(t, "error", res.Level)
	assert.Equal(t, "signals.py", res.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, 12, res.Locations[0].PhysicalLocation.Region.StartLine)
	assert.Len(t, res.RelatedLocations, 1)
}

func TestWriteSARIF_UnknownRuleIsDeclared(t *testing.T) {
	var buf bytes.Buffer
	f := types.Finding{RuleKey: "local-rule", Severity: types.SevInfo, Primary: types.Location{File: "a.py", Line: 1}, Message: "m"}
	require.NoError(t, WriteSARIF(&buf, "", nil, []types.Finding{f}))

	var doc sarifDoc
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Runs[0].Tool.Driver.Rules, 1)
	assert.Equal(t, "note", doc.Runs[0].Results[0].Level)
}
