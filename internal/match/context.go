package match

import (
	"github.com/hooklint/hooklint/internal/graph"
	"github.com/hooklint/hooklint/internal/syntax"
)

// Models resolves model declarations for field-aware primitives. A
// *graph.Builder satisfies it.
type Models interface {
	Model(name string) *graph.ModelDeclaration
	CascadeField(from, to string) (graph.Field, bool)
}

// Handler describes the signal registrations of the enclosing function.
type Handler struct {
	Name          string
	Registrations []Registration
	Instance      string // name of the instance parameter
}

// HasSignal reports whether the handler is bound to any of kinds. An empty
// kinds list matches every handler.
func (h *Handler) HasSignal(kinds ...graph.SignalKind) bool {
	if h == nil {
		return false
	}
	if len(kinds) == 0 {
		return len(h.Registrations) > 0
	}
	for _, r := range h.Registrations {
		for _, s := range r.Signals {
			for _, k := range kinds {
				if s == k {
					return true
				}
			}
		}
	}
	return false
}

// Senders returns the distinct sender models in registration order.
func (h *Handler) Senders() []string {
	if h == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, r := range h.Registrations {
		if r.Sender != "" && !seen[r.Sender] {
			seen[r.Sender] = true
			out = append(out, r.Sender)
		}
	}
	return out
}

// Bound returns (sender, signal) pairs restricted to kinds (all when empty).
func (h *Handler) Bound(kinds ...graph.SignalKind) []Binding {
	if h == nil {
		return nil
	}
	want := map[graph.SignalKind]bool{}
	for _, k := range kinds {
		want[k] = true
	}
	var out []Binding
	for _, r := range h.Registrations {
		if r.Sender == "" {
			continue
		}
		for _, s := range r.Signals {
			if len(want) == 0 || want[s] {
				out = append(out, Binding{Sender: r.Sender, Signal: s})
			}
		}
	}
	return out
}

// Binding is one (sender, signal) pair of a handler.
type Binding struct {
	Sender string
	Signal graph.SignalKind
}

// Context is the bounded lexical context a matcher sees at one node.
type Context struct {
	File      string
	Imports   map[string]string // local alias -> imported name
	Models    Models
	Class     *syntax.Node
	Function  *syntax.Node
	Handler   *Handler
	Ancestors []*syntax.Node // root first, parent last
}

// Resolve maps a local name through import aliases.
func (c *Context) Resolve(name string) string {
	if c == nil || c.Imports == nil {
		return name
	}
	if orig, ok := c.Imports[name]; ok && orig != "" {
		return orig
	}
	return name
}

func (c *Context) model(name string) *graph.ModelDeclaration {
	if c == nil || c.Models == nil {
		return nil
	}
	return c.Models.Model(name)
}
