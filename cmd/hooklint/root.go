package hooklint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	flagJSON            bool
	flagSARIF           bool
	flagThreads         int
	flagFailOn          string
	flagNoColor         bool
	flagNoCache         bool
	flagDefaultExcludes bool
	flagLogLevel        string
	flagRulesDirs       []string

	version = "0.1.0"
)

// rootCmd is the base Cobra command for the hooklint CLI.
var rootCmd = &cobra.Command{
	Use:           "hooklint",
	Short:         "Find ORM signal antipatterns",
	Long:          "hooklint runs a rule corpus over parser dumps of your models and signal handlers and reports bulk bypasses, premature relation access and handler trigger cycles.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries a process exit code without printing anything.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// Execute runs the hooklint CLI. It should be called by the main package.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var ee exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit JSON")
	rootCmd.PersistentFlags().BoolVar(&flagSARIF, "sarif", false, "emit SARIF 2.1.0")
	rootCmd.PersistentFlags().IntVar(&flagThreads, "threads", 0, "worker count (0 = GOMAXPROCS)")
	rootCmd.PersistentFlags().StringVar(&flagFailOn, "fail-on", "", "fail on info|warning|critical (default warning)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "disable incremental scan cache")
	rootCmd.PersistentFlags().BoolVar(&flagDefaultExcludes, "default-excludes", true, "skip virtualenvs, node_modules, build output and similar directories")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "trace|debug|info|warn|error (env HOOKLINT_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringSliceVar(&flagRulesDirs, "rules", nil, "extra rule directories loaded after the built-in rules")
}
