package hooklint

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hooklint/hooklint/internal/audit"
	"github.com/hooklint/hooklint/internal/cache"
	"github.com/hooklint/hooklint/internal/engine"
	"github.com/hooklint/hooklint/internal/report"
	"github.com/hooklint/hooklint/internal/rules"
	"github.com/hooklint/hooklint/internal/types"
)

const defaultBaseline = ".hooklint-baseline.json"

var (
	flagPath        string
	flagInclude     string
	flagExclude     string
	flagMaxBytes    int64
	flagEnable      string
	flagDisable     string
	flagMinSeverity string
	flagProject     bool
	flagTable       bool
	flagText        bool
	flagBaseline    string
	flagNoAudit     bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan parser dumps for signal antipatterns",
		RunE:  runScan,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagPath, "path", "p", ".", "root to search for *.ast.json trees")
	cmd.Flags().StringVar(&flagInclude, "include", "", "comma-separated include globs (default **/*.ast.json)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "comma-separated exclude globs")
	cmd.Flags().Int64Var(&flagMaxBytes, "max-bytes", 8<<20, "skip tree files larger than this")
	cmd.Flags().StringVar(&flagEnable, "enable", "", "only run these rules (comma-separated keys)")
	cmd.Flags().StringVar(&flagDisable, "disable", "", "disable these rules (comma-separated keys)")
	cmd.Flags().StringVar(&flagMinSeverity, "min-severity", "", "hide findings below info|warning|critical")
	cmd.Flags().BoolVar(&flagProject, "project", false, "scan all trees together so models resolve across files")
	cmd.Flags().BoolVar(&flagTable, "table", false, "output in table format (default)")
	cmd.Flags().BoolVar(&flagText, "text", false, "output in plain text format")
	cmd.Flags().StringVar(&flagBaseline, "baseline", defaultBaseline, "baseline file relative to the scan root")
	cmd.Flags().BoolVar(&flagNoAudit, "no-audit", false, "do not append a record to the audit log")
	for _, name := range []string{"enable", "disable"} {
		_ = cmd.RegisterFlagCompletionFunc(name, completeRuleList)
	}
}

func runScan(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(flagPath)
	if err != nil {
		return err
	}
	log := s.logger()
	l, g := s.local, s.global

	corpus, err := s.corpus(log, pickString(flagEnable, l.Enable, g.Enable), pickString(flagDisable, l.Disable, g.Disable))
	if err != nil {
		return err
	}
	minSev := types.Severity("")
	if v := pickString(flagMinSeverity, l.MinSeverity, g.MinSeverity); v != "" {
		if minSev, err = types.ParseSeverity(v); err != nil {
			return fmt.Errorf("min-severity: %w", err)
		}
	}

	cfg := engine.Config{
		Root:            s.root,
		IncludeGlobs:    pickString(flagInclude, l.Include, g.Include),
		ExcludeGlobs:    pickString(flagExclude, l.Exclude, g.Exclude),
		MaxBytes:        maxBytes(cmd, l.MaxBytes, g.MaxBytes),
		Threads:         pickInt(flagThreads, l.Threads, g.Threads),
		DefaultExcludes: s.defaultExcludes(cmd.Flags().Changed("default-excludes")),
		NoCache:         pickBool(flagNoCache, l.NoCache, g.NoCache),
		Project:         pickBool(flagProject, l.Project, g.Project),
		Corpus:          corpus,
		Version:         version,
		Logger:          log,
	}
	machine := flagJSON || flagSARIF
	stderr := cmd.ErrOrStderr()
	if !machine {
		_, _ = fmt.Fprintf(stderr, "Scanning %s with %d rules...\n", s.root, corpus.Len())
	}

	total, _ := engine.CountTargets(cfg)
	progressed := 0
	if total > 0 && !machine && term.IsTerminal(int(os.Stderr.Fd())) {
		cfg.Progress = func() {
			progressed++
			if progressed%10 == 0 || progressed == total {
				pct := float64(progressed) / float64(total) * 100
				_, _ = fmt.Fprintf(stderr, "\r[%d/%d] %.0f%%", progressed, total, pct)
			}
		}
	}
	res, err := engine.ScanWithStats(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("scan error: %w", err)
	}
	if cfg.Progress != nil {
		_, _ = fmt.Fprintln(stderr)
	}
	for _, fe := range res.FileErrors {
		_, _ = fmt.Fprintln(stderr, "warning:", fe.Error())
	}

	findings := report.FilterMinSeverity(res.Findings, minSev)
	baselinePath := flagBaseline
	if !filepath.IsAbs(baselinePath) {
		baselinePath = filepath.Join(s.root, baselinePath)
	}
	baseline, _ := report.LoadBaseline(baselinePath)
	newFindings := report.FilterNewFindings(findings, baseline)
	if newFindings == nil {
		newFindings = []types.Finding{}
	}

	if err := writeFindings(cmd.OutOrStdout(), s, corpus, res, newFindings); err != nil {
		return err
	}

	last := cache.LastScan{Root: s.root, Corpus: corpus.Fingerprint(), FilesScanned: res.FilesScanned, Findings: newFindings}
	if err := cache.SaveLastScan(last); err != nil {
		log.Debug("last scan not saved", "error", err)
	}
	if !flagNoAudit {
		rec := audit.NewRecord(audit.Scan{
			Root:         s.root,
			Corpus:       corpus.Fingerprint(),
			Findings:     findings,
			New:          newFindings,
			FilesScanned: res.FilesScanned,
			FilesCached:  res.FilesCached,
			FileErrors:   len(res.FileErrors),
			Duration:     res.Duration,
			Baseline:     flagBaseline,
		})
		if err := audit.Open(s.root).Append(rec); err != nil {
			log.Debug("audit record not written", "error", err)
		}
	}

	if report.ShouldFail(newFindings, s.failOn()) {
		return exitError{code: 1}
	}
	return nil
}

func writeFindings(w io.Writer, s settings, corpus *rules.Corpus, res engine.Result, fs []types.Finding) error {
	opts := report.PrintOptions{
		NoColor:      s.noColor(),
		Duration:     res.Duration,
		FilesScanned: res.FilesScanned,
		FilesCached:  res.FilesCached,
		FileErrors:   len(res.FileErrors),
	}
	switch {
	case flagSARIF:
		if err := report.WriteSARIF(w, version, ruleMetas(corpus), fs); err != nil {
			return fmt.Errorf("sarif error: %w", err)
		}
		return nil
	case flagJSON:
		return report.WriteJSON(w, fs)
	case flagText:
		report.PrintText(w, fs, opts)
		return nil
	default:
		return report.PrintTable(w, fs, opts)
	}
}

// maxBytes prefers config over the flag default; an explicit flag wins.
func maxBytes(cmd *cobra.Command, local, global *int64) int64 {
	if cmd.Flags().Changed("max-bytes") {
		return flagMaxBytes
	}
	if v := pickInt64(0, local, global); v != 0 {
		return v
	}
	return flagMaxBytes
}
