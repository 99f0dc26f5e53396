package hooklint

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hooklint/hooklint/internal/engine"
	"github.com/hooklint/hooklint/internal/report"
)

func init() {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage baselines",
	}

	var path, output string
	update := &cobra.Command{
		Use:   "update",
		Short: "Accept every current finding into the baseline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(path)
			if err != nil {
				return err
			}
			log := s.logger()
			corpus, err := s.corpus(log, pickString("", s.local.Enable, s.global.Enable), pickString("", s.local.Disable, s.global.Disable))
			if err != nil {
				return err
			}
			cfg := engine.Config{
				Root:            s.root,
				IncludeGlobs:    pickString("", s.local.Include, s.global.Include),
				ExcludeGlobs:    pickString("", s.local.Exclude, s.global.Exclude),
				MaxBytes:        pickInt64(0, s.local.MaxBytes, s.global.MaxBytes),
				Threads:         pickInt(flagThreads, s.local.Threads, s.global.Threads),
				DefaultExcludes: s.defaultExcludes(cmd.Flags().Changed("default-excludes")),
				NoCache:         pickBool(flagNoCache, s.local.NoCache, s.global.NoCache),
				Project:         pickBool(false, s.local.Project, s.global.Project),
				Corpus:          corpus,
				Version:         version,
				Logger:          log,
			}
			results, err := engine.Scan(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			p := output
			if !filepath.IsAbs(p) {
				p = filepath.Join(s.root, p)
			}
			if err := report.SaveBaseline(p, results); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Baseline updated: %d findings in %s\n", len(results), p)
			return nil
		},
	}
	update.Flags().StringVarP(&path, "path", "p", ".", "scan root")
	update.Flags().StringVar(&output, "output", defaultBaseline, "baseline file relative to the scan root")

	rootCmd.AddCommand(cmd)
	cmd.AddCommand(update)
}
