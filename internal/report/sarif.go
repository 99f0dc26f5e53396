package report

import (
	"io"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/hooklint/hooklint/internal/types"
)

const informationURI = "https://github.com/hooklint/hooklint"

// RuleMeta is the rule information carried into tool.driver.rules.
type RuleMeta struct {
	Key         string
	Title       string
	Severity    types.Severity
	Category    types.Category
	Remediation string
}

func sevToLevel(s types.Severity) string {
	switch s {
	case types.SevCritical:
		return "error"
	case types.SevWarning:
		return "warning"
	default:
		return "note"
	}
}

func sarifLocation(l types.Location) *sarif.Location {
	region := sarif.NewRegion().WithStartLine(l.Line)
	if l.Column > 0 {
		region = region.WithStartColumn(l.Column)
	}
	if l.EndLine > 0 {
		region = region.WithEndLine(l.EndLine)
	}
	if l.EndColumn > 0 {
		region = region.WithEndColumn(l.EndColumn)
	}
	return sarif.NewLocation().WithPhysicalLocation(
		sarif.NewPhysicalLocation().
			WithArtifactLocation(sarif.NewArtifactLocation().WithUri(l.File)).
			WithRegion(region),
	)
}

// WriteSARIF writes findings as a SARIF 2.1.0 log. Every rule in rules is
// listed in the driver, including rules without results; secondary locations
// become related locations.
func WriteSARIF(w io.Writer, version string, rules []RuleMeta, findings []types.Finding) error {
	doc, err := sarif.New(sarif.Version210)
	if err != nil {
		return err
	}
	run := sarif.NewRunWithInformationURI("hooklint", informationURI)
	if version != "" {
		v := version
		run.Tool.Driver.Version = &v
	}

	known := map[string]bool{}
	for _, r := range rules {
		desc := r.Title
		if desc == "" {
			desc = r.Key
		}
		rule := run.AddRule(r.Key).
			WithDescription(desc).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: sevToLevel(r.Severity)})
		props := sarif.Properties{"category": string(r.Category)}
		if r.Remediation != "" {
			props["remediation"] = r.Remediation
		}
		rule.WithProperties(props)
		known[r.Key] = true
	}

	for _, f := range findings {
		if !known[f.RuleKey] {
			run.AddRule(f.RuleKey).WithDescription(f.RuleKey)
			known[f.RuleKey] = true
		}
		result := sarif.NewRuleResult(f.RuleKey).
			WithMessage(sarif.NewTextMessage(f.Message)).
			WithLevel(sevToLevel(f.Severity)).
			WithLocations([]*sarif.Location{sarifLocation(f.Primary)})
		for _, s := range f.Secondary {
			result.RelatedLocations = append(result.RelatedLocations, sarifLocation(s))
		}
		run.AddResult(result)
	}
	doc.AddRun(run)
	return doc.PrettyWrite(w)
}
