package syntax_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hooklint/hooklint/internal/syntax"
	st "github.com/hooklint/hooklint/internal/syntax/syntaxtest"
)

func TestCallAccessors(t *testing.T) {
	call := st.Invoke("instance.user.delete", st.Lit("1"), st.Kw("using", st.Lit("'default'")))

	assert.Equal(t, "delete", call.CalleeName())
	assert.Equal(t, "instance.user", call.Receiver().Dotted())
	assert.Len(t, call.Args(), 1)
	assert.Len(t, call.Keywords(), 1)
	assert.Equal(t, "'default'", call.Keyword("using").Value)
	assert.Nil(t, call.Keyword("missing"))

	plain := st.Call(st.Name("save"))
	assert.Equal(t, "save", plain.CalleeName())
	assert.Nil(t, plain.Receiver())
}

func TestChain_StopsAtCalls(t *testing.T) {
	assert.Equal(t, []string{"self", "instance", "user"}, st.Attr("self.instance.user").Chain())
	nested := &syntax.Node{Kind: syntax.KindAttribute, Name: "tags", Children: []*syntax.Node{st.Invoke("Post.objects.first")}}
	assert.Nil(t, nested.Chain())
	assert.Equal(t, "", nested.Dotted())
}

func TestFunctionParts(t *testing.T) {
	dec := st.Decorator(st.Invoke("receiver", st.Name("post_save")))
	fn := st.Func("on_save", []string{"sender", "instance", "created"},
		dec,
		st.Return(nil),
	)
	assert.Equal(t, []string{"sender", "instance", "created"}, fn.Params())
	if assert.Len(t, fn.Decorators(), 1) {
		assert.Equal(t, "receiver", fn.Decorators()[0].CalleeName())
	}
	if assert.Len(t, fn.Body(), 1) {
		assert.Equal(t, syntax.KindReturn, fn.Body()[0].Kind)
	}
	assert.Nil(t, st.Name("x").Params())
}

func TestLocationFallsBackToModuleFile(t *testing.T) {
	stmt := st.Invoke("post.save")
	mod := st.Module("blog/views.py", stmt)

	loc := stmt.Location(mod.Loc.File)
	assert.Equal(t, "blog/views.py", loc.File)
	assert.Equal(t, 2, loc.Line)

	var nilNode *syntax.Node
	assert.Equal(t, "x.py", nilNode.Location("x.py").File)
}

func TestInspect_SkipsChildren(t *testing.T) {
	mod := st.Module("a.py",
		st.Func("f", nil, st.Invoke("a.save")),
		st.Invoke("b.save"),
	)
	var calls []string
	syntax.Inspect(mod, func(n *syntax.Node) bool {
		if n.Kind == syntax.KindFunctionDef {
			return false
		}
		if n.Kind == syntax.KindCall {
			calls = append(calls, n.Receiver().Dotted())
		}
		return true
	})
	assert.Equal(t, []string{"b"}, calls)
}
