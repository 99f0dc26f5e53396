package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/hooklint/hooklint/internal/types"
)

type PrintOptions struct {
	NoColor      bool
	Duration     time.Duration
	FilesScanned int
	FilesCached  int
	FileErrors   int
}

var sevStyles = map[types.Severity]lipgloss.Style{
	types.SevCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	types.SevWarning:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	types.SevInfo:     lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
}

func severityLabel(s types.Severity, noColor bool) string {
	if noColor {
		return string(s)
	}
	if st, ok := sevStyles[s]; ok {
		return st.Render(string(s))
	}
	return string(s)
}

// PrintTable renders findings as a table followed by a summary footer.
func PrintTable(w io.Writer, findings []types.Finding, opts PrintOptions) error {
	if len(findings) == 0 {
		fmt.Fprintln(w, "No signal antipatterns found ✅")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("SEVERITY", "RULE", "LOCATION", "MESSAGE")
		for _, f := range findings {
			row := []string{severityLabel(f.Severity, opts.NoColor), f.RuleKey, f.Primary.String(), f.Message}
			if err := table.Append(row); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	printFooter(w, findings, opts)
	return nil
}

// PrintText renders one line per finding, with secondary locations indented
// below it.
func PrintText(w io.Writer, findings []types.Finding, opts PrintOptions) {
	if len(findings) == 0 {
		fmt.Fprintln(w, "No signal antipatterns found ✅")
	} else {
		fmt.Fprintf(w, "Findings: %d\n", len(findings))
		for _, f := range findings {
			fmt.Fprintf(w, "%s %s [%s] %s\n", f.Primary, severityLabel(f.Severity, opts.NoColor), f.RuleKey, f.Message)
			for _, s := range f.Secondary {
				fmt.Fprintf(w, "    see %s\n", s)
			}
		}
	}
	printFooter(w, findings, opts)
}

func printFooter(w io.Writer, findings []types.Finding, opts PrintOptions) {
	if opts.Duration <= 0 && opts.FilesScanned <= 0 {
		return
	}
	c := CountBySeverity(findings)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Findings: %d (critical: %d, warning: %d, info: %d)\n",
		len(findings), c[types.SevCritical], c[types.SevWarning], c[types.SevInfo])
	if opts.Duration > 0 {
		fmt.Fprintf(w, "Scan duration: %.2fs\n", opts.Duration.Seconds())
	}
	if opts.FilesScanned > 0 {
		line := fmt.Sprintf("Trees scanned: %d", opts.FilesScanned)
		if opts.FilesCached > 0 {
			line += fmt.Sprintf(" (%d from cache)", opts.FilesCached)
		}
		fmt.Fprintln(w, line)
	}
	if opts.FileErrors > 0 {
		fmt.Fprintf(w, "Trees skipped after errors: %d\n", opts.FileErrors)
	}
}

// WriteJSON writes findings as an indented JSON array. A nil slice is written
// as [] so consumers never see null.
func WriteJSON(w io.Writer, findings []types.Finding) error {
	if findings == nil {
		findings = []types.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}

// Summary is a one-line count used by the CI-oriented outputs.
func Summary(findings []types.Finding) string {
	c := CountBySeverity(findings)
	parts := []string{}
	for _, s := range []types.Severity{types.SevCritical, types.SevWarning, types.SevInfo} {
		if c[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c[s], s))
		}
	}
	if len(parts) == 0 {
		return "no findings"
	}
	return strings.Join(parts, ", ")
}
