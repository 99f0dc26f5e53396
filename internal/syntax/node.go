package syntax

import (
	"strings"

	"github.com/hooklint/hooklint/internal/types"
)

// Kind tags a syntax node. The set is open: kinds the engine does not know are
// walked but never matched.
type Kind string

const (
	KindProject     Kind = "Project"
	KindModule      Kind = "Module"
	KindImport      Kind = "Import"
	KindAlias       Kind = "Alias"
	KindClassDef    Kind = "ClassDef"
	KindFunctionDef Kind = "FunctionDef"
	KindParam       Kind = "Param"
	KindDecorator   Kind = "Decorator"
	KindAssign      Kind = "Assign"
	KindIf          Kind = "If"
	KindReturn      Kind = "Return"
	KindRaise       Kind = "Raise"
	KindCall        Kind = "Call"
	KindKeyword     Kind = "Keyword"
	KindAttribute   Kind = "Attribute"
	KindName        Kind = "Name"
	KindLiteral     Kind = "Literal"
	KindCompare     Kind = "Compare"
	KindBoolOp      Kind = "BoolOp"
	KindUnaryOp     Kind = "UnaryOp"
	KindList        Kind = "List"
	KindExpr        Kind = "Expr"
)

// Role names the position a child occupies in its parent.
type Role string

const (
	RoleBase      Role = "base"
	RoleDecorator Role = "decorator"
	RoleParam     Role = "param"
	RoleBody      Role = "body"
	RoleOrElse    Role = "orelse"
	RoleTest      Role = "test"
	RoleFunc      Role = "func"
	RoleArg       Role = "arg"
	RoleValue     Role = "value"
	RoleTarget    Role = "target"
	RoleObject    Role = "object"
)

// Loc is the source span of a node.
type Loc struct {
	File      string `json:"file,omitempty"`
	Line      int    `json:"line"`
	Column    int    `json:"column,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
	EndColumn int    `json:"end_column,omitempty"`
}

// Node is one element of the tree handed over by the external parser. The
// engine treats it as read-only.
//
// Layout by kind:
//
//	Module      Name=module path, Loc.File set, statements as body
//	Import      Name=imported module, Alias children (Name=original, Value=asname)
//	ClassDef    Name, base expressions (role base), body statements
//	FunctionDef Name, decorators, Param children, body statements
//	Call        callee (role func), positional args (role arg), Keyword children
//	Keyword     Name=keyword, the value as its single child
//	Attribute   Name=attribute, the object expression (role object)
//	Name        Name=identifier
//	Literal     Value=source text of the literal
//	Assign      targets (role target), value (role value)
//	If          test, body, orelse
//	Compare     Name=operator ("is", "is not", "==", ...), left then right operand
//	BoolOp      Name="and" or "or", the operands
//	UnaryOp     Name=operator ("not", "-"), the operand as its single child
type Node struct {
	Kind     Kind    `json:"kind"`
	Role     Role    `json:"role,omitempty"`
	Name     string  `json:"name,omitempty"`
	Value    string  `json:"value,omitempty"`
	Type     string  `json:"type,omitempty"` // declared type when the parser resolved one
	Loc      Loc     `json:"loc"`
	Children []*Node `json:"children,omitempty"`
}

// Location converts the node span into a report location. File comes from the
// enclosing module when the node itself does not carry one.
func (n *Node) Location(file string) types.Location {
	if n == nil {
		return types.Location{File: file}
	}
	f := n.Loc.File
	if f == "" {
		f = file
	}
	return types.Location{
		File:      f,
		Line:      n.Loc.Line,
		Column:    n.Loc.Column,
		EndLine:   n.Loc.EndLine,
		EndColumn: n.Loc.EndColumn,
	}
}

// Child returns the first child with the given role, or nil.
func (n *Node) Child(role Role) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c != nil && c.Role == role {
			return c
		}
	}
	return nil
}

// ChildrenWith returns the children with the given role in source order.
func (n *Node) ChildrenWith(role Role) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c != nil && c.Role == role {
			out = append(out, c)
		}
	}
	return out
}

// ChildrenOf returns the children of the given kind in source order.
func (n *Node) ChildrenOf(kind Kind) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c != nil && c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Callee returns the function expression of a Call.
func (n *Node) Callee() *Node {
	if n == nil || n.Kind != KindCall {
		return nil
	}
	return n.Child(RoleFunc)
}

// CalleeName is the last name component of a call's function expression:
// "bulk_create" for Post.objects.bulk_create(...).
func (n *Node) CalleeName() string {
	f := n.Callee()
	if f == nil {
		return ""
	}
	switch f.Kind {
	case KindName, KindAttribute:
		return f.Name
	}
	return ""
}

// Receiver returns the object a method call is made on, or nil for plain
// function calls.
func (n *Node) Receiver() *Node {
	f := n.Callee()
	if f == nil || f.Kind != KindAttribute {
		return nil
	}
	return f.Child(RoleObject)
}

// Args returns positional arguments of a Call.
func (n *Node) Args() []*Node {
	if n == nil || n.Kind != KindCall {
		return nil
	}
	return n.ChildrenWith(RoleArg)
}

// Keywords returns keyword arguments of a Call.
func (n *Node) Keywords() []*Node {
	if n == nil || n.Kind != KindCall {
		return nil
	}
	return n.ChildrenOf(KindKeyword)
}

// Keyword returns the value expression of the named keyword argument.
func (n *Node) Keyword(name string) *Node {
	for _, kw := range n.Keywords() {
		if kw.Name == name {
			return kw.KeywordValue()
		}
	}
	return nil
}

// KeywordValue returns the value of a Keyword node.
func (n *Node) KeywordValue() *Node {
	if n == nil || n.Kind != KindKeyword {
		return nil
	}
	if v := n.Child(RoleValue); v != nil {
		return v
	}
	for _, c := range n.Children {
		if c != nil {
			return c
		}
	}
	return nil
}

// Object returns the object expression of an Attribute.
func (n *Node) Object() *Node {
	if n == nil || n.Kind != KindAttribute {
		return nil
	}
	if o := n.Child(RoleObject); o != nil {
		return o
	}
	for _, c := range n.Children {
		if c != nil {
			return c
		}
	}
	return nil
}

// Chain flattens a pure Name/Attribute expression into its components:
// self.instance.user -> [self instance user]. It returns nil when the
// expression contains anything else (calls, subscripts).
func (n *Node) Chain() []string {
	var rev []string
	cur := n
	for cur != nil {
		switch cur.Kind {
		case KindName:
			if cur.Name == "" {
				return nil
			}
			rev = append(rev, cur.Name)
			out := make([]string, len(rev))
			for i := range rev {
				out[i] = rev[len(rev)-1-i]
			}
			return out
		case KindAttribute:
			if cur.Name == "" {
				return nil
			}
			rev = append(rev, cur.Name)
			cur = cur.Object()
		default:
			return nil
		}
	}
	return nil
}

// Dotted renders a Name/Attribute chain as "a.b.c", or "" when not a chain.
func (n *Node) Dotted() string {
	return strings.Join(n.Chain(), ".")
}

// Params returns the parameter names of a FunctionDef in order.
func (n *Node) Params() []string {
	if n == nil || n.Kind != KindFunctionDef {
		return nil
	}
	var out []string
	for _, c := range n.ChildrenOf(KindParam) {
		out = append(out, c.Name)
	}
	return out
}

// Decorators returns the decorator expressions of a FunctionDef or ClassDef.
// Decorator wrapper nodes are unwrapped to their expression.
func (n *Node) Decorators() []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		switch {
		case c.Kind == KindDecorator:
			for _, e := range c.Children {
				if e != nil {
					out = append(out, e)
					break
				}
			}
		case c.Role == RoleDecorator:
			out = append(out, c)
		}
	}
	return out
}

// Body returns the statements of a Module, ClassDef, FunctionDef or If body.
// Module children without an explicit role count as body statements.
func (n *Node) Body() []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		if c.Role == RoleBody || (c.Role == "" && (n.Kind == KindModule || n.Kind == KindProject)) {
			out = append(out, c)
		}
	}
	return out
}

// Inspect walks the subtree in pre-order, calling fn for each node. Returning
// false from fn skips the node's children.
func Inspect(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Inspect(c, fn)
	}
}
