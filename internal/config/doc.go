// Package config loads hooklint configuration from local and global YAML
// files. The CLI applies precedence (flags over local over global) when it
// maps them into engine configuration.
package config
