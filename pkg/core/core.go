package core

import (
	"context"

	"github.com/hooklint/hooklint/internal/engine"
	"github.com/hooklint/hooklint/internal/rules"
	"github.com/hooklint/hooklint/internal/types"
)

// Re-export selected internal types as a stable public API surface.
type Config = engine.Config
type Result = engine.Result
type Finding = types.Finding
type Location = types.Location
type Corpus = rules.Corpus

// Version is checked against the requires range of each rule.
const Version = "0.1.0"

// LoadRules loads the built-in rules followed by the rules of extraDirs.
func LoadRules(extraDirs ...string) (*Corpus, error) {
	return rules.LoadBuiltin(rules.Options{Version: Version}, extraDirs...)
}

// Scan is the stable entrypoint for other programs. A nil cfg.Corpus runs
// the built-in rules.
func Scan(ctx context.Context, cfg Config) ([]Finding, error) {
	res, err := ScanWithStats(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return res.Findings, nil
}

// ScanWithStats is Scan with file counts, timing and per-file errors.
func ScanWithStats(ctx context.Context, cfg Config) (Result, error) {
	if cfg.Corpus == nil {
		c, err := LoadRules()
		if err != nil {
			return Result{}, err
		}
		cfg.Corpus = c
	}
	if cfg.Version == "" {
		cfg.Version = Version
	}
	return engine.ScanWithStats(ctx, cfg)
}

// RuleKeys returns the keys of the built-in rules in load order.
func RuleKeys() []string {
	c, err := LoadRules()
	if err != nil {
		return nil
	}
	return c.Keys()
}
