package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	doublestar "github.com/bmatcuk/doublestar/v4"
	xxhash "github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/hooklint/hooklint/internal/cache"
	"github.com/hooklint/hooklint/internal/ignore"
	"github.com/hooklint/hooklint/internal/report"
	"github.com/hooklint/hooklint/internal/rules"
	"github.com/hooklint/hooklint/internal/syntax"
	"github.com/hooklint/hooklint/internal/types"
)

// DefaultInclude selects the parser dumps a project scan reads.
const DefaultInclude = "**/*.ast.json"

// IgnoreFile is read from the scan root.
const IgnoreFile = ".hooklintignore"

// Config controls a project scan: which tree files are read, how many are
// scanned at once, and which rules run.
type Config struct {
	Root            string
	IncludeGlobs    string
	ExcludeGlobs    string
	MaxBytes        int64
	Threads         int
	DefaultExcludes bool
	NoCache         bool
	// Project merges every tree into one scan so models declared in one
	// file resolve in another. The cache is not used in this mode.
	Project  bool
	Corpus   *rules.Corpus
	// Version of the scanning binary. Cached findings from another version
	// are rescanned.
	Version string
	Logger  hclog.Logger
	// Progress is called once per tree file, never concurrently.
	Progress func()
}

// FileError is a tree file that could not be scanned. Other files are
// unaffected.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e FileError) Unwrap() error { return e.Err }

// Diagnostics aggregates what the scans learned besides findings.
type Diagnostics struct {
	Faults   []Fault `json:"faults,omitempty"`
	Models   int     `json:"models"`
	Bindings int     `json:"bindings"`
	Edges    int     `json:"edges"`
	Cycles   int     `json:"cycles"`
}

func (d *Diagnostics) add(o Outcome) {
	d.Faults = append(d.Faults, o.Faults...)
	d.Models += o.Models
	d.Bindings += o.Bindings
	d.Edges += o.Edges
	d.Cycles += o.Cycles
}

// Result contains findings and basic scan statistics.
type Result struct {
	Findings     []types.Finding
	FilesScanned int
	FilesCached  int
	Duration     time.Duration
	FileErrors   []FileError
	Diagnostics  Diagnostics
}

// Scan runs a scan and returns only findings (without stats).
func Scan(ctx context.Context, cfg Config) ([]types.Finding, error) {
	res, err := ScanWithStats(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return res.Findings, nil
}

type treeFile struct {
	rel  string
	data []byte
}

// ScanWithStats discovers tree files under cfg.Root and scans them. Each file
// is an independent scan unless cfg.Project is set; results meet only at the
// report. A cancelled context returns the context error and no findings.
func ScanWithStats(ctx context.Context, cfg Config) (Result, error) {
	var result Result
	if cfg.Corpus == nil {
		return result, errors.New("scan: no rule corpus")
	}
	if cfg.Threads <= 0 {
		cfg.Threads = runtime.GOMAXPROCS(0)
	}
	log := cfg.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	started := time.Now()

	ign, _ := ignore.Load(filepath.Join(cfg.Root, IgnoreFile))
	var files []treeFile
	err := Walk(ctx, cfg, ign, func(rel string, data []byte) {
		files = append(files, treeFile{rel: rel, data: data})
	})
	if err != nil {
		return result, err
	}
	log.Debug("tree files discovered", "root", cfg.Root, "count", len(files))

	if cfg.Project {
		err = scanProject(ctx, cfg, log, files, &result)
	} else {
		err = scanFiles(ctx, cfg, log, files, &result)
	}
	if err != nil {
		return Result{}, err
	}
	sort.Slice(result.FileErrors, func(i, j int) bool { return result.FileErrors[i].Path < result.FileErrors[j].Path })
	if n := len(result.Diagnostics.Faults); n > 0 {
		log.Debug("matcher faults", "count", n)
	}
	result.Duration = time.Since(started)
	return result, nil
}

func scanFiles(ctx context.Context, cfg Config, log hclog.Logger, files []treeFile, result *Result) error {
	var db cache.DB
	if !cfg.NoCache {
		db, _ = cache.Load(cfg.Root)
	}
	fingerprint := cfg.Corpus.Fingerprint()

	var (
		mu      sync.Mutex
		merged  = report.New()
		updated = map[string]cache.Entry{}
		tickMu  sync.Mutex
	)
	tick := func() {
		tickMu.Lock()
		progress(cfg)
		tickMu.Unlock()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Threads)
	for _, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			key := fastHash(f.data) + ":" + fingerprint + ":" + cfg.Version
			if !cfg.NoCache {
				if fs, ok := db.Lookup(f.rel, key); ok {
					mu.Lock()
					merged.Add(fs...)
					result.FilesCached++
					result.FilesScanned++
					mu.Unlock()
					tick()
					return nil
				}
			}

			out, err := scanOne(gctx, cfg, log, f)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				log.Warn("tree file skipped", "path", f.rel, "error", err)
				mu.Lock()
				result.FileErrors = append(result.FileErrors, FileError{Path: f.rel, Err: err})
				mu.Unlock()
				tick()
				return nil
			}
			mu.Lock()
			merged.Merge(report.New(out.Findings...))
			result.Diagnostics.add(out)
			result.FilesScanned++
			if !cfg.NoCache {
				updated[f.rel] = cache.Entry{Key: key, Findings: out.Findings}
			}
			mu.Unlock()
			tick()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	result.Findings = merged.Findings()

	if !cfg.NoCache && len(updated) > 0 {
		if db.Entries == nil {
			db.Entries = map[string]cache.Entry{}
		}
		for k, v := range updated {
			db.Entries[k] = v
		}
		if err := cache.Save(cfg.Root, db); err != nil {
			log.Debug("cache not saved", "error", err)
		}
	}
	return nil
}

func scanOne(ctx context.Context, cfg Config, log hclog.Logger, f treeFile) (Outcome, error) {
	tree, err := syntax.DecodeBytes(f.rel, f.data)
	if err != nil {
		return Outcome{}, err
	}
	return ScanTree(ctx, tree, cfg.Corpus, log.Named("scan").With("tree", f.rel))
}

// scanProject decodes every tree and scans their modules as one Project.
func scanProject(ctx context.Context, cfg Config, log hclog.Logger, files []treeFile, result *Result) error {
	var trees []*syntax.Node
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		tree, err := syntax.DecodeBytes(f.rel, f.data)
		if err == nil {
			err = syntax.Validate(tree)
		}
		if err != nil {
			log.Warn("tree file skipped", "path", f.rel, "error", err)
			result.FileErrors = append(result.FileErrors, FileError{Path: f.rel, Err: err})
			continue
		}
		trees = append(trees, tree)
		result.FilesScanned++
		progress(cfg)
	}
	if len(trees) == 0 {
		return nil
	}
	out, err := ScanTree(ctx, syntax.NewProject(filepath.Base(cfg.Root), trees...), cfg.Corpus, log.Named("scan"))
	if err != nil {
		return fmt.Errorf("project scan: %w", err)
	}
	result.Findings = out.Findings
	result.Diagnostics.add(out)
	return nil
}

func progress(cfg Config) {
	if cfg.Progress != nil {
		cfg.Progress()
	}
}

func fastHash(b []byte) string {
	if len(b) == 0 {
		return "0000000000000000"
	}
	sum := xxhash.Sum64(b)
	var buf [16]byte
	const hex = "0123456789abcdef"
	for i := 15; i >= 0; i-- {
		buf[i] = hex[sum&0xF]
		sum >>= 4
	}
	return string(buf[:])
}

// allowedByGlobs reports whether relPath passes the include/exclude globs.
// Include globs default to DefaultInclude; exclude globs are subtracted last.
func allowedByGlobs(relPath string, cfg Config) bool {
	rp := strings.ReplaceAll(relPath, "\\", "/")
	includes := parseGlobsList(cfg.IncludeGlobs)
	if len(includes) == 0 {
		includes = []string{DefaultInclude}
	}
	if !matchAnyGlob(rp, includes) {
		return false
	}
	excludes := parseGlobsList(cfg.ExcludeGlobs)
	if len(excludes) > 0 && matchAnyGlob(rp, excludes) {
		return false
	}
	return true
}

func parseGlobsList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p, trimGlobPrefix(p))
		}
	}
	return out
}

func matchAnyGlob(pathToMatch string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, pathToMatch); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, filepath.Base(pathToMatch)); ok {
			return true
		}
	}
	return false
}

// trimGlobPrefix lets "./x" and "**/x" globs match files at the root.
func trimGlobPrefix(g string) string {
	s := strings.TrimPrefix(g, "./")
	for strings.HasPrefix(s, "**/") {
		s = strings.TrimPrefix(s, "**/")
	}
	return s
}
