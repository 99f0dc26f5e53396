package engine

import "strings"

// Directories that never hold parser dumps worth scanning.
var defaultExcludeDirs = map[string]bool{
	".git":          true,
	"node_modules":  true,
	"vendor":        true,
	"dist":          true,
	"build":         true,
	".venv":         true,
	"venv":          true,
	"env":           true,
	"__pycache__":   true,
	".tox":          true,
	".nox":          true,
	".mypy_cache":   true,
	".pytest_cache": true,
	"site-packages": true,
	"htmlcov":       true,
}

func isDefaultDirExcluded(name string) bool {
	return defaultExcludeDirs[name] || strings.HasPrefix(name, ".git") || strings.HasSuffix(name, ".egg-info")
}
