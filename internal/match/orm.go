package match

import (
	"strings"
	"unicode"

	"github.com/hooklint/hooklint/internal/graph"
	"github.com/hooklint/hooklint/internal/syntax"
	"github.com/hooklint/hooklint/internal/types"
)

// Registration binds a handler to signal kinds of a sender model. Handler is
// empty for decorator registrations: the decorated function is the handler.
type Registration struct {
	Signals []graph.SignalKind
	Sender  string
	Handler string
	Loc     types.Location
}

// ParseRegistration recognizes the two handler binding forms:
//
//	@receiver(post_save, sender=Post)            # also a list of signals
//	post_save.connect(handler, sender=Post)
//
// Anything else, including registrations of unknown signals, is not a match.
func ParseRegistration(n *syntax.Node, ctx *Context) (Registration, bool) {
	if n == nil || n.Kind != syntax.KindCall {
		return Registration{}, false
	}
	var reg Registration
	name := ctx.Resolve(n.CalleeName())
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	switch name {
	case "receiver":
		args := n.Args()
		if len(args) == 0 {
			return Registration{}, false
		}
		reg.Signals = signalsOf(args[0], ctx)
	case "connect":
		reg.Signals = signalsOf(n.Receiver(), ctx)
		if h := firstNonNil(n.Keyword("receiver"), firstArg(n)); h != nil {
			if chain := h.Chain(); len(chain) > 0 {
				reg.Handler = chain[len(chain)-1]
			}
		}
		if reg.Handler == "" {
			return Registration{}, false
		}
	default:
		return Registration{}, false
	}
	if len(reg.Signals) == 0 {
		return Registration{}, false
	}
	reg.Sender = modelRef(n.Keyword("sender"), "")
	reg.Loc = n.Location(ctx.fileName())
	return reg, true
}

func (c *Context) fileName() string {
	if c == nil {
		return ""
	}
	return c.File
}

func firstArg(n *syntax.Node) *syntax.Node {
	if args := n.Args(); len(args) > 0 {
		return args[0]
	}
	return nil
}

func firstNonNil(nodes ...*syntax.Node) *syntax.Node {
	for _, n := range nodes {
		if n != nil {
			return n
		}
	}
	return nil
}

func signalsOf(expr *syntax.Node, ctx *Context) []graph.SignalKind {
	if expr == nil {
		return nil
	}
	if expr.Kind == syntax.KindList {
		var out []graph.SignalKind
		for _, e := range expr.Children {
			out = append(out, signalsOf(e, ctx)...)
		}
		return out
	}
	chain := expr.Chain()
	if len(chain) == 0 {
		return nil
	}
	name := chain[len(chain)-1]
	if len(chain) == 1 {
		name = ctx.Resolve(name)
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}
	}
	if k, ok := graph.ParseSignal(name); ok {
		return []graph.SignalKind{k}
	}
	return nil
}

// modelRef extracts a model name from a sender/target expression: Post,
// blog.Post, "blog.Post" or "self" (resolved to self).
func modelRef(expr *syntax.Node, self string) string {
	if expr == nil {
		return ""
	}
	if expr.Kind == syntax.KindLiteral {
		s := strings.Trim(expr.Value, `"'`)
		if s == "self" {
			return self
		}
		if i := strings.LastIndex(s, "."); i >= 0 {
			s = s[i+1:]
		}
		return s
	}
	chain := expr.Chain()
	if len(chain) == 0 {
		return ""
	}
	return chain[len(chain)-1]
}

// InstanceParam picks the instance parameter of a handler: a parameter named
// "instance", else the one after sender (skipping self on methods).
func InstanceParam(fn *syntax.Node) string {
	params := fn.Params()
	for _, p := range params {
		if p == "instance" {
			return p
		}
	}
	if len(params) > 0 && params[0] == "self" {
		params = params[1:]
	}
	if len(params) >= 2 {
		return params[1]
	}
	return "instance"
}

var (
	toOneFields  = map[string]bool{"ForeignKey": true, "OneToOneField": true, "ParentalKey": true}
	toManyFields = map[string]bool{"ManyToManyField": true, "ParentalManyToManyField": true, "GenericRelation": true}
)

// IsModelClass reports whether a ClassDef looks like an ORM model.
func IsModelClass(cls *syntax.Node) bool {
	if cls == nil || cls.Kind != syntax.KindClassDef {
		return false
	}
	if strings.EqualFold(cls.Type, "model") {
		return true
	}
	for _, b := range cls.ChildrenWith(syntax.RoleBase) {
		chain := b.Chain()
		if len(chain) == 0 {
			continue
		}
		last := chain[len(chain)-1]
		if strings.HasSuffix(last, "Model") || last == "AbstractUser" || last == "AbstractBaseUser" {
			return true
		}
	}
	return false
}

// ParseModel extracts the declaration of a model class: one field per
// assignment in the class body whose value constructs a model field, or
// whose Type the parser resolved to a field kind.
func ParseModel(cls *syntax.Node, file string) (*graph.ModelDeclaration, bool) {
	if !IsModelClass(cls) || cls.Name == "" {
		return nil, false
	}
	m := graph.NewModel(cls.Name, cls.Location(file))
	for _, stmt := range cls.Body() {
		if stmt.Kind != syntax.KindAssign {
			continue
		}
		target := stmt.Child(syntax.RoleTarget)
		if target == nil || target.Kind != syntax.KindName || target.Name == "" {
			continue
		}
		f, ok := parseField(target.Name, stmt, cls.Name, file)
		if ok {
			m.AddField(f)
		}
	}
	return m, true
}

func parseField(name string, assign *syntax.Node, self, file string) (graph.Field, bool) {
	f := graph.Field{Name: name, Loc: assign.Location(file)}
	value := assign.Child(syntax.RoleValue)
	if value != nil && value.Kind == syntax.KindCall {
		ctor := value.CalleeName()
		switch {
		case toOneFields[ctor]:
			f.Kind = graph.FieldRelationToOne
		case toManyFields[ctor]:
			f.Kind = graph.FieldRelationToMany
		case strings.HasSuffix(ctor, "Field"):
			f.Kind = graph.FieldScalar
		}
		if f.Kind == graph.FieldRelationToOne || f.Kind == graph.FieldRelationToMany {
			f.Target = modelRef(firstNonNil(value.Keyword("to"), firstArg(value)), self)
			if od := value.Keyword("on_delete"); od != nil {
				chain := od.Chain()
				f.Cascade = len(chain) > 0 && chain[len(chain)-1] == "CASCADE"
			}
		}
	}
	if f.Kind == "" {
		if k := graph.FieldKind(assign.Type); k.Valid() {
			f.Kind = k
		}
	}
	return f, f.Kind != ""
}

// Receiver kinds understood by receiver-type-is.
const (
	ReceiverQuerySet = "queryset"
	ReceiverManager  = "manager"
	ReceiverModel    = "model"
	ReceiverInstance = "instance"
)

// ManagedModel traces a queryset expression back to a `<Model>.objects`
// access and returns the model name. Calls are followed through their
// receivers: Post.objects.filter(x=1).exclude(y=2) -> Post.
func ManagedModel(expr *syntax.Node) (string, bool) {
	for cur := expr; cur != nil; {
		switch cur.Kind {
		case syntax.KindCall:
			cur = cur.Receiver()
		case syntax.KindAttribute:
			if cur.Name == "objects" {
				chain := cur.Object().Chain()
				if len(chain) == 0 {
					return "", true
				}
				return chain[len(chain)-1], true
			}
			cur = cur.Object()
		default:
			return "", false
		}
	}
	return "", false
}

func looksLikeQuerySetName(name string) bool {
	n := strings.ToLower(name)
	return n == "qs" || n == "queryset" || strings.HasSuffix(n, "_qs") || strings.HasSuffix(n, "_queryset")
}

func declaredAs(expr *syntax.Node, names ...string) bool {
	if expr == nil || expr.Type == "" {
		return false
	}
	t := expr.Type
	if i := strings.LastIndex(t, "."); i >= 0 {
		t = t[i+1:]
	}
	for _, n := range names {
		if strings.EqualFold(t, n) {
			return true
		}
	}
	return false
}

// IsQuerySet reports whether expr evaluates to a manager or queryset by
// naming convention, a traced `.objects` access, or a declared type.
func IsQuerySet(expr *syntax.Node) bool {
	if expr == nil {
		return false
	}
	if declaredAs(expr, "QuerySet", "Manager") {
		return true
	}
	if _, ok := ManagedModel(expr); ok {
		return true
	}
	for cur := expr; cur != nil; {
		switch cur.Kind {
		case syntax.KindName:
			return looksLikeQuerySetName(cur.Name) || declaredAs(cur, "QuerySet", "Manager")
		case syntax.KindCall:
			cur = cur.Receiver()
		default:
			return false
		}
	}
	return false
}

// IsManager reports a bare manager access such as Post.objects.
func IsManager(expr *syntax.Node) bool {
	if expr == nil {
		return false
	}
	if declaredAs(expr, "Manager") {
		return true
	}
	return expr.Kind == syntax.KindAttribute && expr.Name == "objects"
}

func isModelName(expr *syntax.Node, ctx *Context) bool {
	if expr == nil {
		return false
	}
	if declaredAs(expr, "Model") {
		return true
	}
	chain := expr.Chain()
	if len(chain) == 0 {
		return false
	}
	name := chain[len(chain)-1]
	if ctx.model(name) != nil {
		return true
	}
	r := []rune(name)
	return len(chain) == 1 && len(r) > 0 && unicode.IsUpper(r[0])
}

// InstancePath returns the attribute path following the handler's instance
// parameter: instance.user.profile -> [user profile], self.instance -> [].
// ok is false when expr is not rooted at the instance.
func InstancePath(expr *syntax.Node, h *Handler) ([]string, bool) {
	if h == nil || h.Instance == "" {
		return nil, false
	}
	chain := expr.Chain()
	switch {
	case len(chain) >= 1 && chain[0] == h.Instance:
		return chain[1:], true
	case len(chain) >= 2 && chain[0] == "self" && chain[1] == h.Instance:
		return chain[2:], true
	}
	return nil, false
}

// ResolvePath follows relation fields from model along path and returns the
// last field and the model it belongs to.
func ResolvePath(models Models, model string, path []string) (graph.Field, string, bool) {
	if models == nil || len(path) == 0 {
		return graph.Field{}, "", false
	}
	cur := model
	var f graph.Field
	for i, name := range path {
		m := models.Model(cur)
		if m == nil {
			return graph.Field{}, "", false
		}
		var ok bool
		f, ok = m.Field(name)
		if !ok {
			return graph.Field{}, "", false
		}
		if i < len(path)-1 {
			if f.Kind == graph.FieldScalar || f.Target == "" {
				return graph.Field{}, "", false
			}
			cur = f.Target
		}
	}
	return f, cur, true
}

// guardedByPK reports whether n only runs once the instance has a primary
// key: in the branch of an enclosing if that requires one, or after an
// earlier if of an enclosing block that returns when the key is missing.
func guardedByPK(n *syntax.Node, ctx *Context) bool {
	if ctx == nil || ctx.Function == nil {
		return false
	}
	inst := "instance"
	if ctx.Handler != nil && ctx.Handler.Instance != "" {
		inst = ctx.Handler.Instance
	}
	scopes := []*syntax.Node{ctx.Function}
	for i, a := range ctx.Ancestors {
		if a == ctx.Function {
			scopes = ctx.Ancestors[i:]
			break
		}
	}
	for i, a := range scopes {
		branch := n
		if i+1 < len(scopes) {
			branch = scopes[i+1]
		}
		if a.Kind == syntax.KindIf {
			ifTrue, ifFalse := pkTest(a.Child(syntax.RoleTest), inst)
			if (branch.Role == syntax.RoleBody && ifTrue) || (branch.Role == syntax.RoleOrElse && ifFalse) {
				return true
			}
		}
		if earlyReturn(a, branch, inst) {
			return true
		}
	}
	return false
}

// earlyReturn reports whether a statement before branch in the same block of
// a returns when the instance has no primary key.
func earlyReturn(a, branch *syntax.Node, inst string) bool {
	at := -1
	for i, c := range a.Children {
		if c == branch {
			at = i
			break
		}
	}
	for _, stmt := range a.Children[:max(at, 0)] {
		if stmt == nil || stmt.Kind != syntax.KindIf || stmt.Role != branch.Role || !exits(stmt) {
			continue
		}
		if _, ifFalse := pkTest(stmt.Child(syntax.RoleTest), inst); ifFalse {
			return true
		}
	}
	return false
}

// pkTest reports whether the instance has a primary key when test is true
// and when it is false. Tests it cannot read imply neither.
func pkTest(test *syntax.Node, inst string) (ifTrue, ifFalse bool) {
	if test == nil {
		return false, false
	}
	switch test.Kind {
	case syntax.KindAttribute:
		return isPK(test, inst), false
	case syntax.KindUnaryOp:
		if test.Name != "not" {
			return false, false
		}
		t, f := pkTest(operand(test, 0), inst)
		return f, t
	case syntax.KindCompare:
		left, right := operand(test, 0), operand(test, 1)
		if !isPK(left, inst) {
			left, right = right, left
		}
		if !isPK(left, inst) || operand(test, 2) != nil {
			return false, false
		}
		if !isNone(right) {
			return true, false
		}
		switch test.Name {
		case "is", "==":
			return false, true
		case "is not", "!=":
			return true, false
		}
	case syntax.KindBoolOp:
		and := test.Name == "and"
		if (!and && test.Name != "or") || operand(test, 0) == nil {
			return false, false
		}
		// an "and" holds when every operand holds, an "or" when any does
		ifTrue, ifFalse = !and, and
		for i := 0; operand(test, i) != nil; i++ {
			t, f := pkTest(operand(test, i), inst)
			if and {
				ifTrue, ifFalse = ifTrue || t, ifFalse && f
			} else {
				ifTrue, ifFalse = ifTrue && t, ifFalse || f
			}
		}
		return ifTrue, ifFalse
	}
	return false, false
}

// operand returns the i-th non-nil child of n.
func operand(n *syntax.Node, i int) *syntax.Node {
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		if i == 0 {
			return c
		}
		i--
	}
	return nil
}

func isPK(x *syntax.Node, inst string) bool {
	if x == nil || x.Kind != syntax.KindAttribute || (x.Name != "pk" && x.Name != "id") {
		return false
	}
	chain := x.Object().Chain()
	return len(chain) > 0 && chain[len(chain)-1] == inst
}

func isNone(x *syntax.Node) bool {
	if x == nil {
		return false
	}
	return (x.Kind == syntax.KindLiteral && x.Value == "None") || (x.Kind == syntax.KindName && x.Name == "None")
}

// exits reports whether the body of an if ends by leaving the function.
func exits(ifNode *syntax.Node) bool {
	var last *syntax.Node
	for _, c := range ifNode.Children {
		if c != nil && c.Role == syntax.RoleBody {
			last = c
		}
	}
	return last != nil && (last.Kind == syntax.KindReturn || last.Kind == syntax.KindRaise)
}

// Trigger is a lifecycle event a handler body causes on another model,
// paired with the cascade edge that closes a recursive delete, if any.
type Trigger struct {
	Edge    graph.TriggerEdge
	Cascade *graph.TriggerEdge
}

var triggerPhases = map[string]graph.Phase{
	"save":             graph.PhaseSave,
	"create":           graph.PhaseSave,
	"get_or_create":    graph.PhaseSave,
	"update_or_create": graph.PhaseSave,
	"delete":           graph.PhaseDelete,
}

// ResolveTriggers maps a save/delete call inside a handler to trigger edges:
// one per (sender, signal) binding of the handler. The call's target is the
// sender itself (instance.save()), the model reached through relation fields
// (instance.user.delete()), or a managed model (Tag.objects.create()).
func ResolveTriggers(n *syntax.Node, ctx *Context) []Trigger {
	if n == nil || n.Kind != syntax.KindCall || ctx == nil || ctx.Handler == nil {
		return nil
	}
	via, ok := triggerPhases[n.CalleeName()]
	if !ok {
		return nil
	}
	recv := n.Receiver()
	if recv == nil {
		return nil
	}
	loc := n.Location(ctx.File)
	var out []Trigger
	for _, b := range ctx.Handler.Bound() {
		target := ""
		if path, ok := InstancePath(recv, ctx.Handler); ok {
			if len(path) == 0 {
				target = b.Sender
			} else if f, _, ok := ResolvePath(ctx.Models, b.Sender, path); ok && f.Kind == graph.FieldRelationToOne {
				target = f.Target
			}
		} else if m, ok := ManagedModel(recv); ok && m != "" {
			target = m
		}
		if target == "" {
			continue
		}
		tr := Trigger{Edge: graph.TriggerEdge{
			From:   b.Sender,
			To:     target,
			Signal: b.Signal,
			Via:    via,
			Kind:   graph.EdgeHandler,
			Loc:    loc,
		}}
		if via == graph.PhaseDelete && ctx.Models != nil {
			if f, ok := ctx.Models.CascadeField(target, b.Sender); ok {
				tr.Cascade = &graph.TriggerEdge{
					From: target,
					To:   b.Sender,
					Via:  graph.PhaseDelete,
					Kind: graph.EdgeCascade,
					Loc:  f.Loc,
				}
			}
		}
		out = append(out, tr)
	}
	return out
}
