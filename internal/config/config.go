package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML configuration shape for hooklint. Unset
// fields are nil so callers can tell "not configured" from a zero value.
type FileConfig struct {
	Include         *string  `yaml:"include"`
	Exclude         *string  `yaml:"exclude"`
	MaxBytes        *int64   `yaml:"max_bytes"`
	Threads         *int     `yaml:"threads"`
	Enable          *string  `yaml:"enable"`
	Disable         *string  `yaml:"disable"`
	MinSeverity     *string  `yaml:"min_severity"`
	FailOn          *string  `yaml:"fail_on"`
	RulesDirs       []string `yaml:"rules_dirs"`
	Project         *bool    `yaml:"project"`
	NoColor         *bool    `yaml:"no_color"`
	DefaultExcludes *bool    `yaml:"default_excludes"`
	LogLevel        *string  `yaml:"log_level"`
	NoCache         *bool    `yaml:"no_cache"`
}

// ErrNotFound is returned by LoadLocal and LoadGlobal when there is no file
// to load. Any other error means a file exists but is unusable.
var ErrNotFound = errors.New("config not found")

// LocalNames are the repo-local config files in search order.
var LocalNames = []string{".hooklint.yml", ".hooklint.yaml", "hooklint.yml", "hooklint.yaml"}

// LoadFile reads a YAML config file from the provided path. Unknown keys are
// rejected so a typo does not silently fall back to defaults.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadLocal searches for a repo-local config file in the given root.
func LoadLocal(repoRoot string) (FileConfig, error) {
	for _, name := range LocalNames {
		p := filepath.Join(repoRoot, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return FileConfig{}, ErrNotFound
}

// GlobalPath returns $XDG_CONFIG_HOME/hooklint/config.yml, falling back to
// ~/.config.
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return "", errors.New("no config dir")
	}
	return filepath.Join(base, "hooklint", "config.yml"), nil
}

// LoadGlobal loads the global config file.
func LoadGlobal() (FileConfig, error) {
	p, err := GlobalPath()
	if err != nil {
		return FileConfig{}, ErrNotFound
	}
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return FileConfig{}, ErrNotFound
}

// Starter is the file written by "hooklint config init".
const Starter = `# hooklint configuration
# include: "**/*.ast.json"
# exclude: "migrations/**"
# max_bytes: 8388608
# threads: 0
# enable: ""
# disable: "handler-without-sender"
# min_severity: info
fail_on: warning
# rules_dirs: [".hooklint/rules"]
# project: false
default_excludes: true
# log_level: warn
`

// WriteStarter writes Starter to path unless a file already exists there.
func WriteStarter(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(Starter), 0o644)
}
