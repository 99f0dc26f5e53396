package rules

import (
	"fmt"
	"regexp"
	"strings"

	xxhash "github.com/cespare/xxhash/v2"

	"github.com/hooklint/hooklint/internal/match"
	"github.com/hooklint/hooklint/internal/types"
)

// Effect is what the engine does when a rule's matcher fires.
type Effect string

const (
	// EffectReport emits a finding at the matched node.
	EffectReport Effect = "report"
	// EffectBind records the matched registration in the trigger graph.
	EffectBind Effect = "bind"
	// EffectTrigger records the save/delete the matched call causes.
	EffectTrigger Effect = "trigger"
	// EffectCascade is EffectTrigger plus the on_delete cascade edge that
	// leads from the deleted model back to the handler's sender.
	EffectCascade Effect = "cascade"
)

func (e Effect) Valid() bool {
	switch e {
	case EffectReport, EffectBind, EffectTrigger, EffectCascade:
		return true
	}
	return false
}

// Rule is one loaded rule definition. A Corpus owns its rules and only hands
// out copies, so changing a returned Rule never reaches a running scan.
type Rule struct {
	Key         string
	Title       string
	Severity    types.Severity
	Category    types.Category
	Effect      Effect
	Matcher     match.Matcher
	Message     string
	Remediation string
	Requires    string
	Body        string
	Source      string
}

// IsGraph reports whether the rule is evaluated against trigger-graph cycles
// instead of syntax nodes.
func (r *Rule) IsGraph() bool {
	_, ok := r.Matcher.(match.CycleMatcher)
	return ok
}

// Render fills {name} placeholders of the rule message. Missing values are
// left as written.
func (r *Rule) Render(vars map[string]string) string {
	msg := r.Message
	if msg == "" {
		msg = r.Title
	}
	if msg == "" {
		msg = r.Key
	}
	if len(vars) == 0 {
		return msg
	}
	pairs := make([]string, 0, 2*len(vars))
	for k, v := range vars {
		if v != "" {
			pairs = append(pairs, "{"+k+"}", v)
		}
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// CorpusError is a fatal problem with the rule corpus. No scan may start.
type CorpusError struct {
	Source string
	Key    string
	Reason string
	Err    error
}

func (e *CorpusError) Error() string {
	var b strings.Builder
	b.WriteString("rule corpus")
	if e.Source != "" {
		b.WriteString(": " + e.Source)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, " [%s]", e.Key)
	}
	b.WriteString(": " + e.Reason)
	return b.String()
}

func (e *CorpusError) Unwrap() error { return e.Err }

var keyRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Corpus is an ordered, immutable set of rules with unique keys.
type Corpus struct {
	rules []*Rule
	byKey map[string]*Rule
}

func newCorpus(rs []*Rule) *Corpus {
	c := &Corpus{rules: rs, byKey: make(map[string]*Rule, len(rs))}
	for _, r := range rs {
		c.byKey[r.Key] = r
	}
	return c
}

// NewCorpus builds a corpus from copies of already constructed rules,
// enforcing the same key and matcher requirements as Load.
func NewCorpus(rs ...*Rule) (*Corpus, error) {
	seen := map[string]bool{}
	out := make([]*Rule, 0, len(rs))
	for _, r := range rs {
		switch {
		case r == nil:
			continue
		case r.Key == "":
			return nil, &CorpusError{Source: r.Source, Reason: "missing key"}
		case !r.Severity.Valid():
			return nil, &CorpusError{Source: r.Source, Key: r.Key, Reason: fmt.Sprintf("invalid severity %q", r.Severity)}
		case r.Matcher == nil:
			return nil, &CorpusError{Source: r.Source, Key: r.Key, Reason: "empty matcher"}
		case seen[r.Key]:
			return nil, &CorpusError{Source: r.Source, Key: r.Key, Reason: "duplicate key"}
		}
		seen[r.Key] = true
		cp := *r
		if cp.Effect == "" {
			cp.Effect = EffectReport
		}
		out = append(out, &cp)
	}
	return newCorpus(out), nil
}

// Rules returns copies of the rules in load order.
func (c *Corpus) Rules() []*Rule {
	out := make([]*Rule, len(c.rules))
	for i, r := range c.rules {
		cp := *r
		out[i] = &cp
	}
	return out
}

// Rule returns a copy of the rule with key, or nil.
func (c *Corpus) Rule(key string) *Rule {
	r, ok := c.byKey[key]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

// Keys returns rule keys in load order.
func (c *Corpus) Keys() []string {
	out := make([]string, len(c.rules))
	for i, r := range c.rules {
		out[i] = r.Key
	}
	return out
}

func (c *Corpus) Len() int { return len(c.rules) }

// Filter returns a corpus restricted to enable (all rules when empty) minus
// disable. Unknown keys are an error so typos do not silently widen a scan.
func (c *Corpus) Filter(enable, disable []string) (*Corpus, error) {
	check := func(keys []string) (map[string]bool, error) {
		set := map[string]bool{}
		for _, k := range keys {
			k = strings.TrimSpace(k)
			if k == "" {
				continue
			}
			if c.byKey[k] == nil {
				return nil, fmt.Errorf("unknown rule %q", k)
			}
			set[k] = true
		}
		return set, nil
	}
	en, err := check(enable)
	if err != nil {
		return nil, err
	}
	dis, err := check(disable)
	if err != nil {
		return nil, err
	}
	var kept []*Rule
	for _, r := range c.rules {
		if (len(en) == 0 || en[r.Key]) && !dis[r.Key] {
			kept = append(kept, r)
		}
	}
	return newCorpus(kept), nil
}

// Fingerprint hashes everything about the corpus that can change findings.
func (c *Corpus) Fingerprint() string {
	h := xxhash.New()
	for _, r := range c.rules {
		_, _ = h.WriteString(r.Key)
		_, _ = h.WriteString("\x00" + string(r.Severity) + "\x00" + string(r.Category) + "\x00" + string(r.Effect))
		_, _ = h.WriteString("\x00" + r.Matcher.String() + "\x00" + r.Message + "\n")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
