package match

import (
	"fmt"
	"strings"

	"github.com/hooklint/hooklint/internal/graph"
	"github.com/hooklint/hooklint/internal/syntax"
)

var callKinds = kinds(syntax.KindCall)

type callName struct {
	names map[string]bool
	order []string
}

// CallNameIs matches calls whose callee ends in name.
func CallNameIs(name string) Matcher { return CallNameIn(name) }

// CallNameIn matches calls whose callee ends in one of names. Plain function
// calls are resolved through import aliases first.
func CallNameIn(names ...string) Matcher {
	m := callName{names: map[string]bool{}}
	for _, n := range names {
		if !m.names[n] {
			m.names[n] = true
			m.order = append(m.order, n)
		}
	}
	return m
}

func (m callName) Match(n *syntax.Node, ctx *Context) bool {
	name := n.CalleeName()
	if name == "" {
		return false
	}
	if m.names[name] {
		return true
	}
	if f := n.Callee(); f != nil && f.Kind == syntax.KindName {
		resolved := ctx.Resolve(name)
		if i := strings.LastIndex(resolved, "."); i >= 0 {
			resolved = resolved[i+1:]
		}
		return m.names[resolved]
	}
	return false
}

func (m callName) Kinds() KindSet { return callKinds }

func (m callName) String() string {
	if len(m.order) == 1 {
		return fmt.Sprintf("call-name-is(%q)", m.order[0])
	}
	return "call-name-in(" + quoteAll(m.order) + ")"
}

type receiverType struct{ kind string }

// ReceiverTypeIs matches method calls whose receiver is heuristically of the
// given kind: queryset, manager, model or instance.
func ReceiverTypeIs(kind string) Matcher { return receiverType{kind: kind} }

func validReceiver(kind string) bool {
	switch kind {
	case ReceiverQuerySet, ReceiverManager, ReceiverModel, ReceiverInstance:
		return true
	}
	return false
}

func (m receiverType) Match(n *syntax.Node, ctx *Context) bool {
	recv := n.Receiver()
	if recv == nil {
		return false
	}
	switch m.kind {
	case ReceiverQuerySet:
		return IsQuerySet(recv)
	case ReceiverManager:
		return IsManager(recv)
	case ReceiverModel:
		return !IsQuerySet(recv) && isModelName(recv, ctx)
	case ReceiverInstance:
		if ctx == nil {
			return false
		}
		path, ok := InstancePath(recv, ctx.Handler)
		return ok && len(path) == 0
	}
	return false
}

func (m receiverType) Kinds() KindSet { return callKinds }
func (m receiverType) String() string { return fmt.Sprintf("receiver-type-is(%s)", m.kind) }

type withinHandler struct{ signals []graph.SignalKind }

// WithinHandlerOf matches any node inside a function registered as a handler
// of one of signals. No signals means any signal.
func WithinHandlerOf(signals ...graph.SignalKind) Matcher {
	return withinHandler{signals: signals}
}

func (m withinHandler) Match(_ *syntax.Node, ctx *Context) bool {
	return ctx != nil && ctx.Handler.HasSignal(m.signals...)
}

func (m withinHandler) Kinds() KindSet { return nil }

func (m withinHandler) String() string {
	if len(m.signals) == 0 {
		return "within-handler-of(any)"
	}
	parts := make([]string, len(m.signals))
	for i, s := range m.signals {
		parts[i] = string(s)
	}
	return "within-handler-of(" + strings.Join(parts, ", ") + ")"
}

type argCount struct {
	op string
	n  int
}

// ArgumentCount compares the number of positional and keyword arguments of a
// call against n. Unknown operators never match.
func ArgumentCount(op string, n int) Matcher { return argCount{op: op, n: n} }

func (m argCount) Match(n *syntax.Node, _ *Context) bool {
	cmp, ok := compareOps[m.op]
	if !ok {
		return false
	}
	return cmp(len(n.Args())+len(n.Keywords()), m.n)
}

func (m argCount) Kinds() KindSet { return callKinds }
func (m argCount) String() string { return fmt.Sprintf("argument-count(%s %d)", m.op, m.n) }

type hasKeyword struct{ name string }

// HasKeyword matches calls passing the named keyword argument.
func HasKeyword(name string) Matcher { return hasKeyword{name: name} }

func (m hasKeyword) Match(n *syntax.Node, _ *Context) bool {
	for _, kw := range n.Keywords() {
		if kw.Name == m.name {
			return true
		}
	}
	return false
}

func (m hasKeyword) Kinds() KindSet { return callKinds }
func (m hasKeyword) String() string { return fmt.Sprintf("has-keyword(%q)", m.name) }

type registersHandler struct{}

// RegistersHandler matches receiver decorators and signal.connect calls.
func RegistersHandler() Matcher { return registersHandler{} }

func (registersHandler) Match(n *syntax.Node, ctx *Context) bool {
	_, ok := ParseRegistration(n, ctx)
	return ok
}

func (registersHandler) Kinds() KindSet { return callKinds }
func (registersHandler) String() string { return "registers-handler" }

type instanceFieldKind struct{ kind graph.FieldKind }

// InstanceFieldKindIs matches attribute accesses on the handler's instance
// parameter that resolve to a field of the given kind on a sender model.
func InstanceFieldKindIs(kind graph.FieldKind) Matcher { return instanceFieldKind{kind: kind} }

var attrKinds = kinds(syntax.KindAttribute)

func (m instanceFieldKind) Match(n *syntax.Node, ctx *Context) bool {
	if ctx == nil || ctx.Handler == nil {
		return false
	}
	path, ok := InstancePath(n, ctx.Handler)
	if !ok || len(path) == 0 {
		return false
	}
	for _, sender := range ctx.Handler.Senders() {
		if f, _, ok := ResolvePath(ctx.Models, sender, path); ok && f.Kind == m.kind {
			return true
		}
	}
	return false
}

func (m instanceFieldKind) Kinds() KindSet { return attrKinds }
func (m instanceFieldKind) String() string { return fmt.Sprintf("instance-field-kind-is(%s)", m.kind) }

type pkGuard struct{}

// PKGuarded matches nodes that only run once the handler instance has a
// primary key, as far as the if statements of the same function tell.
func PKGuarded() Matcher { return pkGuard{} }

func (pkGuard) Match(n *syntax.Node, ctx *Context) bool { return guardedByPK(n, ctx) }
func (pkGuard) Kinds() KindSet                          { return nil }
func (pkGuard) String() string                          { return "pk-guarded" }

type cascadingDelete struct{}

// DeletesCascadingRelation matches <instance>.<relation...>.delete() where
// the relation targets a model whose deletion cascades back to the sender.
func DeletesCascadingRelation() Matcher { return cascadingDelete{} }

func (cascadingDelete) Match(n *syntax.Node, ctx *Context) bool {
	if ctx == nil || ctx.Handler == nil || ctx.Models == nil || n.CalleeName() != "delete" {
		return false
	}
	path, ok := InstancePath(n.Receiver(), ctx.Handler)
	if !ok || len(path) == 0 {
		return false
	}
	for _, sender := range ctx.Handler.Senders() {
		f, _, ok := ResolvePath(ctx.Models, sender, path)
		if !ok || f.Kind != graph.FieldRelationToOne || f.Target == "" {
			continue
		}
		if _, ok := ctx.Models.CascadeField(f.Target, sender); ok {
			return true
		}
	}
	return false
}

func (cascadingDelete) Kinds() KindSet { return callKinds }
func (cascadingDelete) String() string { return "deletes-cascading-relation" }

// Cycle shapes accepted by trigger-cycle.
const (
	CycleSelf  = "self"
	CycleMulti = "multi"
	CycleAny   = "any"
)

type triggerCycle struct{ shape string }

// TriggerCycle matches cycles of the trigger graph that contain at least one
// handler edge: self-loops, longer cycles, or both.
func TriggerCycle(shape string) Matcher { return triggerCycle{shape: shape} }

func (triggerCycle) Match(*syntax.Node, *Context) bool { return false }
func (triggerCycle) Kinds() KindSet                    { return KindSet{} }
func (m triggerCycle) String() string                  { return fmt.Sprintf("trigger-cycle(%s)", m.shape) }

func (m triggerCycle) MatchCycle(c graph.Cycle) bool {
	if c.Len() == 0 || !c.HasHandlerEdge() {
		return false
	}
	switch m.shape {
	case CycleSelf:
		return c.IsSelfLoop()
	case CycleMulti:
		return !c.IsSelfLoop()
	case CycleAny:
		return true
	}
	return false
}
