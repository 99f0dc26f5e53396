// Package logging builds the hclog loggers used across hooklint. Output goes
// to stderr so reports on stdout stay machine-readable.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// EnvLevel overrides the level when neither a flag nor the config file set one.
const EnvLevel = "HOOKLINT_LOG_LEVEL"

// New returns a logger named name. level wins over the environment; both
// empty means warn.
func New(name, level string) hclog.Logger {
	return NewWithOutput(name, level, os.Stderr)
}

func NewWithOutput(name, level string, w io.Writer) hclog.Logger {
	if level == "" {
		level = os.Getenv(EnvLevel)
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:        name,
		DisableTime: true,
		Output:      w,
		Level:       ParseLevel(level),
	})
}

// ParseLevel maps a level name to hclog; unknown names mean warn.
func ParseLevel(s string) hclog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "INFO":
		return hclog.Info
	case "ERROR":
		return hclog.Error
	case "OFF":
		return hclog.Off
	default:
		return hclog.Warn
	}
}
