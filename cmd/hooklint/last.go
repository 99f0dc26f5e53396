package hooklint

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/hooklint/hooklint/internal/cache"
	"github.com/hooklint/hooklint/internal/engine"
)

func init() {
	cmd := &cobra.Command{
		Use:   "last",
		Short: "Print the findings of the most recent scan without rescanning",
		Args:  cobra.NoArgs,
		RunE:  runLast,
	}
	cmd.Flags().StringVarP(&flagPath, "path", "p", ".", "scan root")
	cmd.Flags().BoolVar(&flagText, "text", false, "output in plain text format")
	rootCmd.AddCommand(cmd)
}

func runLast(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(flagPath)
	if err != nil {
		return err
	}
	last, err := cache.LoadLastScan(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("no scan recorded for %s; run hooklint scan first", s.root)
	}
	if err != nil {
		return err
	}
	corpus, err := s.corpus(s.logger(), "", "")
	if err != nil {
		return err
	}
	if last.Corpus != "" && last.Corpus != corpus.Fingerprint() && !flagJSON && !flagSARIF {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "note: rules changed since the scan of %s\n", last.Time.Local().Format("2006-01-02 15:04"))
	}
	res := engine.Result{Findings: last.Findings, FilesScanned: last.FilesScanned}
	return writeFindings(cmd.OutOrStdout(), s, corpus, res, last.Findings)
}
