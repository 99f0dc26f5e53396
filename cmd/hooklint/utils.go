package hooklint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/term"

	"github.com/hooklint/hooklint/internal/config"
	"github.com/hooklint/hooklint/internal/logging"
	"github.com/hooklint/hooklint/internal/report"
	"github.com/hooklint/hooklint/internal/rules"
)

// settings holds both config layers for one root; flags are applied on top.
type settings struct {
	root   string
	local  config.FileConfig
	global config.FileConfig
}

// loadSettings reads the global and local config for path. Missing files are
// fine; a file that exists but does not parse is an error.
func loadSettings(path string) (settings, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	s := settings{root: abs}
	if s.global, err = config.LoadGlobal(); err != nil && !errors.Is(err, config.ErrNotFound) {
		return s, fmt.Errorf("global config: %w", err)
	}
	if s.local, err = config.LoadLocal(abs); err != nil && !errors.Is(err, config.ErrNotFound) {
		return s, fmt.Errorf("local config: %w", err)
	}
	return s, nil
}

func (s settings) logger() hclog.Logger {
	return logging.New("hooklint", pickString(flagLogLevel, s.local.LogLevel, s.global.LogLevel))
}

func (s settings) failOn() string {
	if v := pickString(flagFailOn, s.local.FailOn, s.global.FailOn); v != "" {
		return v
	}
	return "warning"
}

func (s settings) noColor() bool {
	if pickBool(flagNoColor, s.local.NoColor, s.global.NoColor) {
		return true
	}
	return os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stdout.Fd()))
}

// rulesDirs resolves relative config entries against the scan root.
func (s settings) rulesDirs() []string {
	if len(flagRulesDirs) > 0 {
		return flagRulesDirs
	}
	dirs := s.local.RulesDirs
	base := s.root
	if len(dirs) == 0 {
		dirs = s.global.RulesDirs
		base = ""
	}
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if base != "" && !filepath.IsAbs(d) {
			d = filepath.Join(base, d)
		}
		out = append(out, d)
	}
	return out
}

// corpus loads the built-in and extra rules and applies enable/disable.
func (s settings) corpus(log hclog.Logger, enable, disable string) (*rules.Corpus, error) {
	c, err := rules.LoadBuiltin(rules.Options{Version: version, Logger: log}, s.rulesDirs()...)
	if err != nil {
		return nil, err
	}
	return c.Filter(splitList(enable), splitList(disable))
}

func ruleMetas(c *rules.Corpus) []report.RuleMeta {
	var out []report.RuleMeta
	for _, r := range c.Rules() {
		out = append(out, report.RuleMeta{
			Key:         r.Key,
			Title:       r.Title,
			Severity:    r.Severity,
			Category:    r.Category,
			Remediation: r.Remediation,
		})
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func pickString(cli string, local, global *string) string {
	if cli != "" {
		return cli
	}
	if local != nil && *local != "" {
		return *local
	}
	if global != nil && *global != "" {
		return *global
	}
	return ""
}

func pickInt(cli int, local, global *int) int {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickInt64(cli int64, local, global *int64) int64 {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickBool(cli bool, local, global *bool) bool {
	if cli {
		return true
	}
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return false
}

// defaultExcludes lets the config decide unless the flag was set explicitly.
func (s settings) defaultExcludes(flagChanged bool) bool {
	if flagChanged {
		return flagDefaultExcludes
	}
	if s.local.DefaultExcludes != nil {
		return *s.local.DefaultExcludes
	}
	if s.global.DefaultExcludes != nil {
		return *s.global.DefaultExcludes
	}
	return flagDefaultExcludes
}
