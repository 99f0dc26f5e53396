// Package syntaxtest builds small syntax trees for tests.
package syntaxtest

import (
	"strings"

	"github.com/hooklint/hooklint/internal/syntax"
)

// Name is an identifier reference.
func Name(id string) *syntax.Node {
	return &syntax.Node{Kind: syntax.KindName, Name: id}
}

// Attr builds an attribute chain from dotted text: "self.instance.user".
func Attr(dotted string) *syntax.Node {
	parts := strings.Split(dotted, ".")
	n := Name(parts[0])
	for _, p := range parts[1:] {
		n.Role = syntax.RoleObject
		n = &syntax.Node{Kind: syntax.KindAttribute, Name: p, Children: []*syntax.Node{n}}
	}
	return n
}

// Lit is a literal with its source text.
func Lit(text string) *syntax.Node {
	return &syntax.Node{Kind: syntax.KindLiteral, Value: text}
}

// Kw is a keyword argument.
func Kw(name string, value *syntax.Node) *syntax.Node {
	value.Role = syntax.RoleValue
	return &syntax.Node{Kind: syntax.KindKeyword, Name: name, Children: []*syntax.Node{value}}
}

// Call builds fn(args...). Keyword nodes become keyword arguments, anything
// else a positional argument.
func Call(fn *syntax.Node, args ...*syntax.Node) *syntax.Node {
	fn.Role = syntax.RoleFunc
	n := &syntax.Node{Kind: syntax.KindCall, Children: []*syntax.Node{fn}}
	for _, a := range args {
		if a.Kind != syntax.KindKeyword {
			a.Role = syntax.RoleArg
		}
		n.Children = append(n.Children, a)
	}
	return n
}

// Invoke is Call(Attr(dotted), args...).
func Invoke(dotted string, args ...*syntax.Node) *syntax.Node {
	return Call(Attr(dotted), args...)
}

// Method builds recv.name(args...) for an arbitrary receiver expression.
func Method(recv *syntax.Node, name string, args ...*syntax.Node) *syntax.Node {
	recv.Role = syntax.RoleObject
	return Call(&syntax.Node{Kind: syntax.KindAttribute, Name: name, Children: []*syntax.Node{recv}}, args...)
}

// List is a list display.
func List(items ...*syntax.Node) *syntax.Node {
	return &syntax.Node{Kind: syntax.KindList, Children: items}
}

// Assign is target = value.
func Assign(target string, value *syntax.Node) *syntax.Node {
	t := Name(target)
	t.Role = syntax.RoleTarget
	value.Role = syntax.RoleValue
	return &syntax.Node{Kind: syntax.KindAssign, Children: []*syntax.Node{t, value}}
}

// Import is "from module import names"; "name as alias" is accepted.
func Import(module string, names ...string) *syntax.Node {
	n := &syntax.Node{Kind: syntax.KindImport, Name: module}
	for _, name := range names {
		a := &syntax.Node{Kind: syntax.KindAlias, Name: name}
		if orig, alias, ok := strings.Cut(name, " as "); ok {
			a.Name, a.Value = orig, alias
		}
		n.Children = append(n.Children, a)
	}
	return n
}

// Decorator wraps a decorator expression.
func Decorator(expr *syntax.Node) *syntax.Node {
	return &syntax.Node{Kind: syntax.KindDecorator, Role: syntax.RoleDecorator, Children: []*syntax.Node{expr}}
}

// Func builds a function definition. Decorator nodes among body are attached
// as decorators; everything else is a body statement.
func Func(name string, params []string, body ...*syntax.Node) *syntax.Node {
	n := &syntax.Node{Kind: syntax.KindFunctionDef, Name: name}
	for _, b := range body {
		if b.Kind == syntax.KindDecorator {
			n.Children = append(n.Children, b)
		}
	}
	for _, p := range params {
		n.Children = append(n.Children, &syntax.Node{Kind: syntax.KindParam, Role: syntax.RoleParam, Name: p})
	}
	for _, b := range body {
		if b.Kind != syntax.KindDecorator {
			b.Role = syntax.RoleBody
			n.Children = append(n.Children, b)
		}
	}
	return n
}

// Class builds a class definition with the given base expressions.
func Class(name string, bases []string, body ...*syntax.Node) *syntax.Node {
	n := &syntax.Node{Kind: syntax.KindClassDef, Name: name}
	for _, b := range bases {
		e := Attr(b)
		e.Role = syntax.RoleBase
		n.Children = append(n.Children, e)
	}
	for _, b := range body {
		b.Role = syntax.RoleBody
		n.Children = append(n.Children, b)
	}
	return n
}

// If builds "if test: body".
func If(test *syntax.Node, body ...*syntax.Node) *syntax.Node {
	test.Role = syntax.RoleTest
	n := &syntax.Node{Kind: syntax.KindIf, Children: []*syntax.Node{test}}
	for _, b := range body {
		b.Role = syntax.RoleBody
		n.Children = append(n.Children, b)
	}
	return n
}

// IfElse builds "if test: body else: orelse".
func IfElse(test *syntax.Node, body []*syntax.Node, orelse ...*syntax.Node) *syntax.Node {
	n := If(test, body...)
	for _, o := range orelse {
		o.Role = syntax.RoleOrElse
		n.Children = append(n.Children, o)
	}
	return n
}

// Not builds "not operand".
func Not(operand *syntax.Node) *syntax.Node {
	return &syntax.Node{Kind: syntax.KindUnaryOp, Name: "not", Children: []*syntax.Node{operand}}
}

// Compare builds "left op right", e.g. Compare(Attr("instance.pk"), "is", Name("None")).
func Compare(left *syntax.Node, op string, right *syntax.Node) *syntax.Node {
	return &syntax.Node{Kind: syntax.KindCompare, Name: op, Children: []*syntax.Node{left, right}}
}

// BoolOp joins operands with op, "and" or "or".
func BoolOp(op string, operands ...*syntax.Node) *syntax.Node {
	return &syntax.Node{Kind: syntax.KindBoolOp, Name: op, Children: operands}
}

// Raise builds "raise exc".
func Raise(exc *syntax.Node) *syntax.Node {
	n := &syntax.Node{Kind: syntax.KindRaise}
	if exc != nil {
		exc.Role = syntax.RoleValue
		n.Children = append(n.Children, exc)
	}
	return n
}

// Return builds "return value".
func Return(value *syntax.Node) *syntax.Node {
	n := &syntax.Node{Kind: syntax.KindReturn}
	if value != nil {
		value.Role = syntax.RoleValue
		n.Children = append(n.Children, value)
	}
	return n
}

// Module builds a module for file and numbers its lines.
func Module(file string, body ...*syntax.Node) *syntax.Node {
	n := &syntax.Node{Kind: syntax.KindModule, Name: strings.TrimSuffix(file, ".py"), Loc: syntax.Loc{File: file, Line: 1}}
	for _, b := range body {
		b.Role = syntax.RoleBody
		n.Children = append(n.Children, b)
	}
	Lines(n)
	return n
}

// Lines numbers the tree: every statement and decorator without a line gets
// the next one in pre-order, and other nodes inherit their statement's line.
func Lines(root *syntax.Node) {
	next := root.Loc.Line
	var walk func(n *syntax.Node, inherited int)
	walk = func(n *syntax.Node, inherited int) {
		if n.Loc.Line == 0 {
			if n.Role == syntax.RoleBody || n.Role == syntax.RoleOrElse || n.Kind == syntax.KindDecorator {
				next++
				n.Loc.Line = next
			} else {
				n.Loc.Line = inherited
			}
		} else if n.Loc.Line > next {
			next = n.Loc.Line
		}
		for _, c := range n.Children {
			if c != nil {
				walk(c, n.Loc.Line)
			}
		}
	}
	walk(root, root.Loc.Line)
}
