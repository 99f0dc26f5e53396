package match

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hooklint/hooklint/internal/graph"
)

// ErrUnknownPrimitive is wrapped by SpecError when a matcher names a
// primitive the engine does not implement.
var ErrUnknownPrimitive = errors.New("unknown primitive")

// SpecError reports a malformed matcher specification. Path locates the
// offending node, e.g. "all-of[1].not".
type SpecError struct {
	Path   string
	Line   int
	Reason string
	Err    error
}

func (e *SpecError) Error() string {
	var b strings.Builder
	b.WriteString("matcher")
	if e.Path != "" {
		b.WriteString(" " + e.Path)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	b.WriteString(": " + e.Reason)
	return b.String()
}

func (e *SpecError) Unwrap() error { return e.Err }

// Compile turns a matcher_spec YAML node into a Matcher. A graph-level
// trigger-cycle primitive is only accepted as the whole matcher.
func Compile(node *yaml.Node) (Matcher, error) {
	if node != nil && node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node == nil || node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") {
		return nil, &SpecError{Reason: "empty matcher"}
	}
	prim, arg, err := single(node, "")
	if err != nil {
		return nil, err
	}
	if prim == "trigger-cycle" {
		shape := strings.TrimSpace(arg.Value)
		if arg.Kind != yaml.ScalarNode || shape == "" {
			shape = CycleAny
		}
		switch shape {
		case CycleSelf, CycleMulti, CycleAny:
			return TriggerCycle(shape), nil
		}
		return nil, &SpecError{Path: prim, Line: arg.Line, Reason: fmt.Sprintf("trigger-cycle: unknown shape %q", shape)}
	}
	return compile(node, "")
}

func single(node *yaml.Node, path string) (string, *yaml.Node, error) {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return "", nil, &SpecError{Path: path, Line: node.Line, Reason: "expected a single-key mapping {primitive: argument}"}
	}
	return node.Content[0].Value, node.Content[1], nil
}

func join(path, elem string) string {
	if path == "" {
		return elem
	}
	return path + "." + elem
}

func compile(node *yaml.Node, path string) (Matcher, error) {
	prim, arg, err := single(node, path)
	if err != nil {
		return nil, err
	}
	here := join(path, prim)
	bad := func(format string, a ...any) error {
		return &SpecError{Path: here, Line: arg.Line, Reason: fmt.Sprintf(format, a...)}
	}

	switch prim {
	case "all-of", "any-of":
		if arg.Kind != yaml.SequenceNode || len(arg.Content) == 0 {
			return nil, bad("expected a non-empty list of matchers")
		}
		children := make([]Matcher, 0, len(arg.Content))
		for i, c := range arg.Content {
			m, err := compile(c, fmt.Sprintf("%s[%d]", here, i))
			if err != nil {
				return nil, err
			}
			children = append(children, m)
		}
		if prim == "all-of" {
			return AllOf(children...), nil
		}
		return AnyOf(children...), nil

	case "not":
		m, err := compile(arg, here)
		if err != nil {
			return nil, err
		}
		return Not(m), nil

	case "call-name-is":
		if arg.Kind != yaml.ScalarNode || arg.Value == "" {
			return nil, bad("expected a call name")
		}
		return CallNameIs(arg.Value), nil

	case "call-name-in":
		names, err := strings1(arg)
		if err != nil || len(names) == 0 {
			return nil, bad("expected a list of call names")
		}
		return CallNameIn(names...), nil

	case "receiver-type-is":
		if arg.Kind != yaml.ScalarNode || !validReceiver(arg.Value) {
			return nil, bad("expected one of queryset, manager, model, instance; got %q", arg.Value)
		}
		return ReceiverTypeIs(arg.Value), nil

	case "within-handler-of":
		names, err := strings1(arg)
		if err != nil {
			return nil, bad("expected a signal kind or list of kinds")
		}
		var sigs []graph.SignalKind
		for _, n := range names {
			if n == "any" {
				sigs = nil
				break
			}
			k, ok := graph.ParseSignal(n)
			if !ok {
				return nil, bad("unknown signal kind %q", n)
			}
			sigs = append(sigs, k)
		}
		return WithinHandlerOf(sigs...), nil

	case "argument-count":
		var ac struct {
			Op string `yaml:"op"`
			N  *int   `yaml:"n"`
		}
		if err := arg.Decode(&ac); err != nil || ac.N == nil {
			return nil, bad("expected {op, n}")
		}
		if ac.Op == "" {
			ac.Op = "=="
		}
		if !validOp(ac.Op) {
			return nil, bad("unknown comparison %q", ac.Op)
		}
		return ArgumentCount(ac.Op, *ac.N), nil

	case "has-keyword":
		if arg.Kind != yaml.ScalarNode || arg.Value == "" {
			return nil, bad("expected a keyword name")
		}
		return HasKeyword(arg.Value), nil

	case "registers-handler":
		return RegistersHandler(), nil

	case "instance-field-kind-is":
		k := graph.FieldKind(arg.Value)
		if arg.Kind != yaml.ScalarNode || !k.Valid() {
			return nil, bad("expected relation-to-one, relation-to-many or scalar; got %q", arg.Value)
		}
		return InstanceFieldKindIs(k), nil

	case "pk-guarded":
		return PKGuarded(), nil

	case "deletes-cascading-relation":
		return DeletesCascadingRelation(), nil

	case "trigger-cycle":
		return nil, bad("trigger-cycle is graph-level and must be the whole matcher")
	}
	return nil, &SpecError{Path: here, Line: node.Content[0].Line, Reason: strconv.Quote(prim) + ": " + ErrUnknownPrimitive.Error(), Err: ErrUnknownPrimitive}
}

// strings1 accepts a scalar or a sequence of scalars.
func strings1(n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Value == "" {
			return nil, nil
		}
		return []string{n.Value}, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			if c.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: expected a scalar", c.Line)
			}
			out = append(out, c.Value)
		}
		return out, nil
	}
	return nil, fmt.Errorf("line %d: expected a scalar or list", n.Line)
}
