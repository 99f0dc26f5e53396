package engine

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hooklint/hooklint/internal/ignore"
)

// Walk traverses cfg.Root and invokes handle for each eligible tree file in
// lexical order. Paths are relative to the root with forward slashes.
func Walk(ctx context.Context, cfg Config, ign ignore.Matcher, handle func(rel string, data []byte)) error {
	return filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			return nil
		}
		rel, ok := eligible(cfg, ign, p, d)
		if !ok {
			if d.IsDir() && p != cfg.Root && skipDir(cfg, d) {
				return filepath.SkipDir
			}
			return nil
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		handle(rel, b)
		return nil
	})
}

func skipDir(cfg Config, d fs.DirEntry) bool {
	return cfg.DefaultExcludes && isDefaultDirExcluded(d.Name())
}

// eligible applies every file filter short of reading the content.
func eligible(cfg Config, ign ignore.Matcher, p string, d fs.DirEntry) (string, bool) {
	if d.IsDir() {
		return "", false
	}
	rel, err := filepath.Rel(cfg.Root, p)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if !allowedByGlobs(rel, cfg) || ign.Match(rel) {
		return "", false
	}
	if cfg.MaxBytes > 0 {
		if info, err := d.Info(); err == nil && info.Size() > cfg.MaxBytes {
			return "", false
		}
	}
	return rel, true
}

// CountTargets estimates the number of tree files a scan of cfg will read.
func CountTargets(cfg Config) (int, error) {
	ign, _ := ignore.Load(filepath.Join(cfg.Root, IgnoreFile))
	count := 0
	err := filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if _, ok := eligible(cfg, ign, p, d); ok {
			count++
		} else if d.IsDir() && p != cfg.Root && skipDir(cfg, d) {
			return filepath.SkipDir
		}
		return nil
	})
	return count, err
}
