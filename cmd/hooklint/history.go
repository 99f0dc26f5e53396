package hooklint

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/hooklint/hooklint/internal/audit"
)

var flagHistoryLimit int

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent scans from the audit log",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	cmd.Flags().StringVarP(&flagPath, "path", "p", ".", "scan root whose audit log to read")
	cmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "number of scans to show (0 for all)")
	rootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(flagPath)
	if err != nil {
		return err
	}
	recs, err := audit.Open(s.root).History(flagHistoryLimit)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if flagJSON {
		if recs == nil {
			recs = []audit.Record{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}
	if len(recs) == 0 {
		_, _ = fmt.Fprintln(w, "No scans recorded.")
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("WHEN", "FILES", "FINDINGS", "NEW", "CRITICAL", "WARNING", "INFO", "DURATION")
	for _, r := range recs {
		row := []string{
			r.Time.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(r.FilesScanned),
			strconv.Itoa(r.Total),
			strconv.Itoa(r.New),
			strconv.Itoa(r.BySeverity["critical"]),
			strconv.Itoa(r.BySeverity["warning"]),
			strconv.Itoa(r.BySeverity["info"]),
			r.Duration,
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
