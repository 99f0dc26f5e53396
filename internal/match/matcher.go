package match

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hooklint/hooklint/internal/graph"
	"github.com/hooklint/hooklint/internal/syntax"
)

// Matcher is a compiled predicate over one syntax node and its lexical
// context. Match must be total: unexpected shapes are a no-match.
type Matcher interface {
	Match(n *syntax.Node, ctx *Context) bool
	// Kinds reports the node kinds Match can accept. A nil set means any kind.
	Kinds() KindSet
	String() string
}

// CycleMatcher is implemented by graph-level matchers evaluated against the
// cycles of the trigger graph after traversal.
type CycleMatcher interface {
	MatchCycle(c graph.Cycle) bool
}

// KindSet is the node-kind pre-filter of a matcher. nil accepts every kind;
// an empty non-nil set accepts none.
type KindSet map[syntax.Kind]struct{}

func kinds(ks ...syntax.Kind) KindSet {
	s := make(KindSet, len(ks))
	for _, k := range ks {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether the set admits k.
func (s KindSet) Has(k syntax.Kind) bool {
	if s == nil {
		return true
	}
	_, ok := s[k]
	return ok
}

// List returns the kinds in sorted order; nil for the universal set.
func (s KindSet) List() []syntax.Kind {
	if s == nil {
		return nil
	}
	out := make([]syntax.Kind, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func intersect(a, b KindSet) KindSet {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	out := KindSet{}
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func union(a, b KindSet) KindSet {
	if a == nil || b == nil {
		return nil
	}
	out := KindSet{}
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

type allOf []Matcher

// AllOf matches when every child matches.
func AllOf(ms ...Matcher) Matcher { return allOf(ms) }

func (m allOf) Match(n *syntax.Node, ctx *Context) bool {
	for _, c := range m {
		if !c.Kinds().Has(n.Kind) || !c.Match(n, ctx) {
			return false
		}
	}
	return len(m) > 0
}

func (m allOf) Kinds() KindSet {
	var ks KindSet
	for _, c := range m {
		ks = intersect(ks, c.Kinds())
	}
	return ks
}

func (m allOf) String() string { return "all-of" + list(m) }

type anyOf []Matcher

// AnyOf matches when at least one child matches.
func AnyOf(ms ...Matcher) Matcher { return anyOf(ms) }

func (m anyOf) Match(n *syntax.Node, ctx *Context) bool {
	for _, c := range m {
		if c.Kinds().Has(n.Kind) && c.Match(n, ctx) {
			return true
		}
	}
	return false
}

func (m anyOf) Kinds() KindSet {
	if len(m) == 0 {
		return KindSet{}
	}
	ks := KindSet{}
	for _, c := range m {
		ks = union(ks, c.Kinds())
	}
	return ks
}

func (m anyOf) String() string { return "any-of" + list(m) }

type not struct{ inner Matcher }

// Not negates a matcher. The result accepts any node kind.
func Not(m Matcher) Matcher { return not{inner: m} }

func (m not) Match(n *syntax.Node, ctx *Context) bool {
	return !(m.inner.Kinds().Has(n.Kind) && m.inner.Match(n, ctx))
}

func (m not) Kinds() KindSet  { return nil }
func (m not) String() string { return "not(" + m.inner.String() + ")" }

func list(ms []Matcher) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = m.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Compare operators accepted by argument-count.
var compareOps = map[string]func(a, b int) bool{
	"==": func(a, b int) bool { return a == b },
	"!=": func(a, b int) bool { return a != b },
	"<":  func(a, b int) bool { return a < b },
	"<=": func(a, b int) bool { return a <= b },
	">":  func(a, b int) bool { return a > b },
	">=": func(a, b int) bool { return a >= b },
}

func validOp(op string) bool {
	_, ok := compareOps[op]
	return ok
}

func quoteAll(ss []string) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(q, ", ")
}
