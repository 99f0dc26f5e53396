package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/hooklint/hooklint/internal/graph"
	"github.com/hooklint/hooklint/internal/match"
	"github.com/hooklint/hooklint/internal/report"
	"github.com/hooklint/hooklint/internal/rules"
	"github.com/hooklint/hooklint/internal/syntax"
	"github.com/hooklint/hooklint/internal/types"
)

// Fault is a matcher that panicked on one node. It counts as no-match.
type Fault struct {
	Rule   string         `json:"rule"`
	Loc    types.Location `json:"location"`
	Reason string         `json:"reason"`
}

// Outcome is the result of scanning one tree.
type Outcome struct {
	Findings []types.Finding
	Faults   []Fault
	Models   int
	Bindings int
	Edges    int
	Cycles   int
}

// bulkCalls skip per-instance save signals.
var bulkCalls = map[string]bool{"bulk_create": true, "bulk_update": true, "update": true}

// ScanTree runs every rule of corpus over tree: one declaration pre-pass,
// then a single pre-order traversal, then cycle detection on the trigger
// graph. Malformed trees fail with *syntax.ScanError. Cancellation is honored
// between modules; a cancelled scan returns no findings.
func ScanTree(ctx context.Context, tree *syntax.Node, corpus *rules.Corpus, log hclog.Logger) (Outcome, error) {
	if err := syntax.Validate(tree); err != nil {
		return Outcome{}, err
	}
	if corpus == nil {
		return Outcome{}, fmt.Errorf("scan: nil corpus")
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	s := &scan{
		corpus:  corpus,
		log:     log,
		builder: graph.NewBuilder(),
	}
	for _, r := range corpus.Rules() {
		if r.IsGraph() {
			s.graphRules = append(s.graphRules, r)
		} else {
			s.nodeRules = append(s.nodeRules, nodeRule{rule: r, kinds: r.Matcher.Kinds()})
		}
	}

	modules := syntax.Modules(tree)
	s.index = buildIndex(modules, s.builder, log)
	for _, mod := range modules {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		s.walkModule(mod)
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	cycles := s.builder.Cycles()
	s.reportCycles(cycles)
	s.enrichBypasses()

	rep := report.New(s.findings...)
	return Outcome{
		Findings: rep.Findings(),
		Faults:   s.faults,
		Models:   len(s.builder.Models()),
		Bindings: len(s.builder.Bindings()),
		Edges:    len(s.builder.Edges()),
		Cycles:   len(cycles),
	}, nil
}

type nodeRule struct {
	rule  *rules.Rule
	kinds match.KindSet
}

type bypass struct {
	finding int
	model   string
}

type scan struct {
	corpus     *rules.Corpus
	log        hclog.Logger
	builder    *graph.Builder
	index      *index
	nodeRules  []nodeRule
	graphRules []*rules.Rule

	findings []types.Finding
	faults   []Fault
	bypasses []bypass

	// lexical context of the node being visited
	mctx match.Context
}

func (s *scan) walkModule(mod *syntax.Node) {
	s.mctx = match.Context{
		File:    mod.Loc.File,
		Imports: s.index.imports[mod],
		Models:  s.builder,
	}
	s.visit(mod)
}

func (s *scan) visit(n *syntax.Node) {
	if n == nil {
		return
	}
	saved := s.mctx
	switch n.Kind {
	case syntax.KindClassDef:
		s.mctx.Class = n
	case syntax.KindFunctionDef:
		s.mctx.Function = n
		if h, ok := s.index.handlers[n]; ok {
			s.mctx.Handler = h
		}
	}

	for _, nr := range s.nodeRules {
		if nr.kinds.Has(n.Kind) {
			s.run(nr.rule, n)
		}
	}

	s.mctx.Ancestors = append(s.mctx.Ancestors, n)
	for _, c := range n.Children {
		s.visit(c)
	}
	s.mctx = saved
}

// run evaluates one rule at n in isolation: a panic in the matcher or its
// effect is logged, recorded as a fault and treated as no-match.
func (s *scan) run(r *rules.Rule, n *syntax.Node) {
	findings, bypasses := len(s.findings), len(s.bypasses)
	defer func() {
		if p := recover(); p != nil {
			s.findings, s.bypasses = s.findings[:findings], s.bypasses[:bypasses]
			loc := n.Location(s.mctx.File)
			s.faults = append(s.faults, Fault{Rule: r.Key, Loc: loc, Reason: fmt.Sprint(p)})
			s.log.Debug("matcher fault", "rule", r.Key, "location", loc.String(), "panic", p)
		}
	}()
	if r.Matcher.Match(n, &s.mctx) {
		s.apply(r, n)
	}
}

func (s *scan) apply(r *rules.Rule, n *syntax.Node) {
	ctx := &s.mctx
	switch r.Effect {
	case rules.EffectBind:
		reg, ok := match.ParseRegistration(n, ctx)
		if !ok || reg.Sender == "" {
			return
		}
		handler := reg.Handler
		if handler == "" && ctx.Function != nil {
			handler = ctx.Function.Name
		}
		for _, sig := range reg.Signals {
			s.builder.RecordBinding(reg.Sender, sig, handler, reg.Loc)
		}
	case rules.EffectTrigger, rules.EffectCascade:
		for _, tr := range match.ResolveTriggers(n, ctx) {
			s.builder.RecordTrigger(tr.Edge)
			if tr.Cascade != nil && r.Effect == rules.EffectCascade {
				s.builder.RecordTrigger(*tr.Cascade)
			}
		}
	default:
		f := types.Finding{
			RuleKey:  r.Key,
			Severity: r.Severity,
			Category: r.Category,
			Primary:  n.Location(ctx.File),
			Message:  r.Render(messageVars(n, ctx)),
		}
		s.findings = append(s.findings, f)
		if n.Kind == syntax.KindCall && bulkCalls[n.CalleeName()] {
			if model, ok := match.ManagedModel(n.Receiver()); ok && model != "" {
				s.bypasses = append(s.bypasses, bypass{finding: len(s.findings) - 1, model: model})
			}
		}
	}
}

// reportCycles emits one finding per (graph rule, cycle). The primary
// location is the first handler edge; every other edge and the bindings of
// the handlers involved are secondary locations.
func (s *scan) reportCycles(cycles []graph.Cycle) {
	for _, r := range s.graphRules {
		cm := r.Matcher.(match.CycleMatcher)
		for _, c := range cycles {
			if !cm.MatchCycle(c) {
				continue
			}
			primary := -1
			for i, e := range c.Edges {
				if e.Kind == graph.EdgeHandler {
					primary = i
					break
				}
			}
			if primary < 0 {
				continue
			}
			var secondary []types.Location
			seen := map[types.Location]bool{c.Edges[primary].Loc: true}
			add := func(l types.Location) {
				if !seen[l] {
					seen[l] = true
					secondary = append(secondary, l)
				}
			}
			for _, l := range c.Locations() {
				add(l)
			}
			for _, e := range c.Edges {
				if e.Kind != graph.EdgeHandler {
					continue
				}
				for _, b := range s.builder.BindingsFor(e.From) {
					if b.Signal == e.Signal {
						add(b.Loc)
					}
				}
			}
			s.findings = append(s.findings, types.Finding{
				RuleKey:   r.Key,
				Severity:  r.Severity,
				Category:  r.Category,
				Primary:   c.Edges[primary].Loc,
				Secondary: secondary,
				Message: r.Render(map[string]string{
					"path":   c.Path(),
					"models": strings.Join(c.Models(), ", "),
					"model":  c.Edges[primary].From,
					"signal": string(c.Edges[primary].Signal),
				}),
			})
		}
	}
}

// enrichBypasses attaches the save handlers a bulk call skips as secondary
// locations. Findings are copied, never mutated in place.
func (s *scan) enrichBypasses() {
	for _, bp := range s.bypasses {
		var locs []types.Location
		for _, b := range s.builder.BindingsFor(bp.model) {
			if b.Signal.Phase() == graph.PhaseSave {
				locs = append(locs, b.Loc)
			}
		}
		if len(locs) == 0 {
			continue
		}
		sort.SliceStable(locs, func(i, j int) bool { return locs[i].Less(locs[j]) })
		f := s.findings[bp.finding]
		f.Secondary = append(append([]types.Location{}, f.Secondary...), locs...)
		s.findings[bp.finding] = f
	}
}

func messageVars(n *syntax.Node, ctx *match.Context) map[string]string {
	vars := map[string]string{}
	if n.Kind == syntax.KindCall {
		vars["call"] = n.CalleeName()
		if m, ok := match.ManagedModel(n.Receiver()); ok && m != "" {
			vars["model"] = m
		} else if chain := n.Receiver().Chain(); len(chain) > 0 {
			vars["model"] = chain[len(chain)-1]
		}
		if reg, ok := match.ParseRegistration(n, ctx); ok {
			vars["signal"] = joinSignals(reg.Signals)
			vars["handler"] = reg.Handler
			if reg.Handler == "" && ctx.Function != nil {
				vars["handler"] = ctx.Function.Name
			}
			vars["sender"] = reg.Sender
			return vars
		}
	}
	if d := n.Dotted(); d != "" {
		vars["path"] = d
	}
	if h := ctx.Handler; h != nil {
		vars["handler"] = h.Name
		vars["sender"] = strings.Join(h.Senders(), ", ")
		var sigs []graph.SignalKind
		for _, r := range h.Registrations {
			sigs = append(sigs, r.Signals...)
		}
		vars["signal"] = joinSignals(sigs)
	}
	return vars
}

func joinSignals(sigs []graph.SignalKind) string {
	seen := map[graph.SignalKind]bool{}
	var parts []string
	for _, s := range sigs {
		if !seen[s] {
			seen[s] = true
			parts = append(parts, string(s))
		}
	}
	return strings.Join(parts, "/")
}
