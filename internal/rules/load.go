package rules

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"

	"github.com/hooklint/hooklint/internal/frontmatter"
	"github.com/hooklint/hooklint/internal/match"
	"github.com/hooklint/hooklint/internal/types"
)

//go:embed builtin/*.md
var builtinFS embed.FS

// Source is one rule document.
type Source struct {
	Name string
	Data []byte
}

// Options tune corpus loading.
type Options struct {
	// Version is the running engine version checked against each rule's
	// requires range. Empty skips the check.
	Version string
	Logger  hclog.Logger
}

// header mirrors the frontmatter of a rule document. Unknown fields are
// ignored.
type header struct {
	Key         string    `yaml:"key"`
	Title       string    `yaml:"title"`
	Severity    string    `yaml:"severity"`
	Type        string    `yaml:"type"`
	Effect      string    `yaml:"effect"`
	Message     string    `yaml:"message"`
	Remediation string    `yaml:"remediation"`
	Requires    string    `yaml:"requires"`
	MatcherSpec yaml.Node `yaml:"matcher_spec"`
}

// Load parses sources in order into a corpus. Any malformed rule, duplicate
// key or unknown matcher primitive fails the whole load.
func Load(sources []Source, opts Options) (*Corpus, error) {
	log := opts.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	var running *semver.Version
	if opts.Version != "" {
		v, err := semver.ParseTolerant(opts.Version)
		if err != nil {
			return nil, fmt.Errorf("engine version %q: %w", opts.Version, err)
		}
		running = &v
	}

	seen := map[string]string{}
	var out []*Rule
	for _, src := range sources {
		r, err := parse(src)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[r.Key]; dup {
			return nil, &CorpusError{Source: src.Name, Key: r.Key, Reason: "duplicate key, first defined in " + prev}
		}
		seen[r.Key] = src.Name
		if r.Requires != "" {
			rng, err := semver.ParseRange(r.Requires)
			if err != nil {
				return nil, &CorpusError{Source: src.Name, Key: r.Key, Reason: fmt.Sprintf("requires %q: %v", r.Requires, err), Err: err}
			}
			if running != nil && !rng(*running) {
				log.Info("rule skipped", "rule", r.Key, "requires", r.Requires, "version", opts.Version)
				continue
			}
		}
		out = append(out, r)
	}
	return newCorpus(out), nil
}

func parse(src Source) (*Rule, error) {
	var h header
	body, err := frontmatter.Parse(src.Data, &h)
	if err != nil {
		return nil, &CorpusError{Source: src.Name, Reason: err.Error(), Err: err}
	}
	bad := func(format string, a ...any) error {
		return &CorpusError{Source: src.Name, Key: h.Key, Reason: fmt.Sprintf(format, a...)}
	}
	if h.Key == "" {
		return nil, bad("missing key")
	}
	if !keyRe.MatchString(h.Key) {
		return nil, bad("invalid key %q", h.Key)
	}
	if h.Severity == "" {
		return nil, bad("missing severity")
	}
	sev := types.Severity(h.Severity)
	if !sev.Valid() {
		return nil, bad("invalid severity %q", h.Severity)
	}
	cat := types.Category(h.Type)
	if cat == "" {
		cat = types.CatAntipattern
	}
	if !cat.Valid() {
		return nil, bad("invalid type %q", h.Type)
	}
	eff := Effect(h.Effect)
	if eff == "" {
		eff = EffectReport
	}
	if !eff.Valid() {
		return nil, bad("invalid effect %q", h.Effect)
	}
	m, err := match.Compile(&h.MatcherSpec)
	if err != nil {
		return nil, &CorpusError{Source: src.Name, Key: h.Key, Reason: err.Error(), Err: err}
	}
	if _, graph := m.(match.CycleMatcher); graph && eff != EffectReport {
		return nil, bad("trigger-cycle rules can only report")
	}
	return &Rule{
		Key:         h.Key,
		Title:       h.Title,
		Severity:    sev,
		Category:    cat,
		Effect:      eff,
		Matcher:     m,
		Message:     strings.TrimSpace(h.Message),
		Remediation: strings.TrimSpace(h.Remediation),
		Requires:    h.Requires,
		Body:        string(body),
		Source:      src.Name,
	}, nil
}

// ReadFS collects the *.md documents of dir in file-name order.
func ReadFS(fsys fs.FS, dir string) ([]Source, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	out := make([]Source, 0, len(names))
	for _, n := range names {
		p := path.Join(dir, n)
		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, err
		}
		out = append(out, Source{Name: p, Data: b})
	}
	return out, nil
}

// ReadDir collects the *.md documents of a directory on disk.
func ReadDir(dir string) ([]Source, error) {
	srcs, err := ReadFS(os.DirFS(dir), ".")
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", dir, err)
	}
	for i := range srcs {
		srcs[i].Name = path.Join(dir, srcs[i].Name)
	}
	return srcs, nil
}

// BuiltinSources returns the embedded rule documents.
func BuiltinSources() []Source {
	srcs, err := ReadFS(builtinFS, "builtin")
	if err != nil {
		panic(fmt.Sprintf("embedded rules: %v", err))
	}
	return srcs
}

// LoadBuiltin loads the embedded corpus followed by the rules of extraDirs.
func LoadBuiltin(opts Options, extraDirs ...string) (*Corpus, error) {
	srcs := BuiltinSources()
	for _, d := range extraDirs {
		more, err := ReadDir(d)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, more...)
	}
	return Load(srcs, opts)
}
