package graph

import (
	"sort"
	"strings"

	"github.com/hooklint/hooklint/internal/types"
)

// SignalKind names an ORM lifecycle signal.
type SignalKind string

const (
	PreSave    SignalKind = "pre_save"
	PostSave   SignalKind = "post_save"
	PreDelete  SignalKind = "pre_delete"
	PostDelete SignalKind = "post_delete"
	M2MChanged SignalKind = "m2m_changed"
	PreInit    SignalKind = "pre_init"
	PostInit   SignalKind = "post_init"
)

// Signals lists every known signal kind in a stable order.
var Signals = []SignalKind{PreSave, PostSave, PreDelete, PostDelete, M2MChanged, PreInit, PostInit}

// ParseSignal maps a signal name to its kind.
func ParseSignal(s string) (SignalKind, bool) {
	for _, k := range Signals {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Phase is the lifecycle event a signal fires around.
type Phase string

const (
	PhaseSave   Phase = "save"
	PhaseDelete Phase = "delete"
	PhaseM2M    Phase = "m2m"
	PhaseInit   Phase = "init"
)

func (s SignalKind) Phase() Phase {
	switch s {
	case PreSave, PostSave:
		return PhaseSave
	case PreDelete, PostDelete:
		return PhaseDelete
	case M2MChanged:
		return PhaseM2M
	case PreInit, PostInit:
		return PhaseInit
	}
	return ""
}

// EdgeKind distinguishes handler-caused triggers from ORM delete cascades.
type EdgeKind string

const (
	EdgeHandler EdgeKind = "handler"
	EdgeCascade EdgeKind = "cascade"
)

// Vertex is a (model, lifecycle phase) pair: "Profile being deleted".
type Vertex struct {
	Model string
	Phase Phase
}

func (v Vertex) String() string { return v.Model + ":" + string(v.Phase) }

// TriggerEdge records that work attached to Signal on From causes the Via
// lifecycle event on To. Cascade edges carry no signal: deleting From deletes
// To through an on_delete=CASCADE relation.
type TriggerEdge struct {
	From   string
	To     string
	Signal SignalKind
	Via    Phase
	Kind   EdgeKind
	Loc    types.Location
}

// Source is the vertex the edge leaves.
func (e TriggerEdge) Source() Vertex {
	if e.Kind == EdgeCascade {
		return Vertex{Model: e.From, Phase: PhaseDelete}
	}
	return Vertex{Model: e.From, Phase: e.Signal.Phase()}
}

// Target is the vertex the edge enters.
func (e TriggerEdge) Target() Vertex {
	return Vertex{Model: e.To, Phase: e.Via}
}

// Binding is a handler attached to a signal of a sender model.
type Binding struct {
	Model   string
	Signal  SignalKind
	Handler string
	Loc     types.Location
}

// Cycle is a closed walk of trigger edges; Edges[0] leaves the cycle's first
// visited vertex.
type Cycle struct {
	Edges []TriggerEdge
}

func (c Cycle) Len() int { return len(c.Edges) }

// IsSelfLoop reports a one-edge cycle: a handler re-triggering its own sender.
func (c Cycle) IsSelfLoop() bool { return len(c.Edges) == 1 }

// HasHandlerEdge reports whether any edge was caused by a handler. Cycles made
// only of cascades are resolved by the ORM and never recurse.
func (c Cycle) HasHandlerEdge() bool {
	for _, e := range c.Edges {
		if e.Kind == EdgeHandler {
			return true
		}
	}
	return false
}

// Models returns the models along the cycle in walk order.
func (c Cycle) Models() []string {
	out := make([]string, 0, len(c.Edges))
	for _, e := range c.Edges {
		out = append(out, e.From)
	}
	return out
}

// Path renders the cycle as "A:delete -> B:delete -> A:delete".
func (c Cycle) Path() string {
	if len(c.Edges) == 0 {
		return ""
	}
	parts := []string{c.Edges[0].Source().String()}
	for _, e := range c.Edges {
		parts = append(parts, e.Target().String())
	}
	return strings.Join(parts, " -> ")
}

// Locations returns the location of every edge in walk order.
func (c Cycle) Locations() []types.Location {
	out := make([]types.Location, 0, len(c.Edges))
	for _, e := range c.Edges {
		out = append(out, e.Loc)
	}
	return out
}

// Builder owns the model declarations, handler bindings and trigger edges of
// one scan. Records are append-only; it is not safe for concurrent use and is
// discarded when the scan ends.
type Builder struct {
	models     map[string]*ModelDeclaration
	modelOrder []string
	bindings   []Binding
	edges      []TriggerEdge
	edgeSeen   map[edgeKey]bool
}

type edgeKey struct {
	src, dst Vertex
	kind     EdgeKind
	loc      types.Location
}

func NewBuilder() *Builder {
	return &Builder{
		models:   map[string]*ModelDeclaration{},
		edgeSeen: map[edgeKey]bool{},
	}
}

// DeclareModel registers a model. The first declaration of a name wins.
func (b *Builder) DeclareModel(m *ModelDeclaration) {
	if m == nil || m.Name == "" {
		return
	}
	if _, ok := b.models[m.Name]; ok {
		return
	}
	b.models[m.Name] = m
	b.modelOrder = append(b.modelOrder, m.Name)
}

// Model returns the declaration of name, or nil.
func (b *Builder) Model(name string) *ModelDeclaration {
	return b.models[name]
}

// Models returns declarations in declaration order.
func (b *Builder) Models() []*ModelDeclaration {
	out := make([]*ModelDeclaration, 0, len(b.modelOrder))
	for _, n := range b.modelOrder {
		out = append(out, b.models[n])
	}
	return out
}

// RecordBinding appends a handler binding.
func (b *Builder) RecordBinding(model string, sig SignalKind, handler string, loc types.Location) {
	b.bindings = append(b.bindings, Binding{Model: model, Signal: sig, Handler: handler, Loc: loc})
}

// Bindings returns every recorded binding in record order.
func (b *Builder) Bindings() []Binding {
	out := make([]Binding, len(b.bindings))
	copy(out, b.bindings)
	return out
}

// BindingsFor returns the bindings whose sender is model.
func (b *Builder) BindingsFor(model string) []Binding {
	var out []Binding
	for _, bd := range b.bindings {
		if bd.Model == model {
			out = append(out, bd)
		}
	}
	return out
}

// RecordTrigger appends an edge. An identical edge at the same location is
// recorded once, so overlapping rules do not fabricate parallel edges.
func (b *Builder) RecordTrigger(e TriggerEdge) {
	if e.From == "" || e.To == "" {
		return
	}
	if e.Kind == "" {
		e.Kind = EdgeHandler
	}
	k := edgeKey{src: e.Source(), dst: e.Target(), kind: e.Kind, loc: e.Loc}
	if b.edgeSeen[k] {
		return
	}
	b.edgeSeen[k] = true
	b.edges = append(b.edges, e)
}

// Edges returns the edge log in append order.
func (b *Builder) Edges() []TriggerEdge {
	out := make([]TriggerEdge, len(b.edges))
	copy(out, b.edges)
	return out
}

// CascadeField reports whether deleting from cascades to to: to declares a
// to-one relation targeting from with on_delete=CASCADE. The field is
// returned for its location.
func (b *Builder) CascadeField(from, to string) (Field, bool) {
	m := b.models[to]
	if m == nil {
		return Field{}, false
	}
	for _, name := range m.order {
		f := m.Fields[name]
		if f.Kind == FieldRelationToOne && f.Cascade && f.Target == from {
			return f, true
		}
	}
	return Field{}, false
}

type visitState int

const (
	unvisited visitState = iota
	inProgress
	done
)

// Cycles runs a depth-first traversal over the trigger graph and returns one
// cycle per back edge. Vertices are visited in the order they first appear in
// the edge log and out-edges in append order, and cycles are ordered by the
// visit index of their first vertex, so unchanged input yields the same
// sequence on every call.
func (b *Builder) Cycles() []Cycle {
	var order []Vertex
	seen := map[Vertex]bool{}
	adj := map[Vertex][]int{}
	note := func(v Vertex) {
		if !seen[v] {
			seen[v] = true
			order = append(order, v)
		}
	}
	for i, e := range b.edges {
		note(e.Source())
		note(e.Target())
		adj[e.Source()] = append(adj[e.Source()], i)
	}

	state := map[Vertex]visitState{}
	visitIdx := map[Vertex]int{}
	type found struct {
		cycle Cycle
		first int
		seq   int
	}
	var (
		path      []Vertex
		pathEdges []TriggerEdge
		out       []found
	)

	var visit func(v Vertex)
	visit = func(v Vertex) {
		state[v] = inProgress
		visitIdx[v] = len(visitIdx)
		path = append(path, v)
		for _, i := range adj[v] {
			e := b.edges[i]
			w := e.Target()
			switch state[w] {
			case unvisited:
				pathEdges = append(pathEdges, e)
				visit(w)
				pathEdges = pathEdges[:len(pathEdges)-1]
			case inProgress:
				start := len(path) - 1
				for start >= 0 && path[start] != w {
					start--
				}
				if start < 0 {
					continue
				}
				edges := make([]TriggerEdge, 0, len(pathEdges)-start+1)
				edges = append(edges, pathEdges[start:]...)
				edges = append(edges, e)
				out = append(out, found{cycle: Cycle{Edges: edges}, first: visitIdx[w], seq: len(out)})
			}
		}
		path = path[:len(path)-1]
		state[v] = done
	}
	for _, v := range order {
		if state[v] == unvisited {
			visit(v)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].first != out[j].first {
			return out[i].first < out[j].first
		}
		return out[i].seq < out[j].seq
	})
	cycles := make([]Cycle, len(out))
	for i, f := range out {
		cycles[i] = f.cycle
	}
	return cycles
}
