package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hooklint/hooklint/internal/ignore"
	"github.com/hooklint/hooklint/internal/rules"
	"github.com/hooklint/hooklint/internal/syntax"
	sx "github.com/hooklint/hooklint/internal/syntax/syntaxtest"
	"github.com/hooklint/hooklint/internal/types"
)

func builtin(t *testing.T) *rules.Corpus {
	t.Helper()
	c, err := rules.LoadBuiltin(rules.Options{})
	require.NoError(t, err)
	return c
}

func receiver(signal, sender string) *syntax.Node {
	return sx.Decorator(sx.Call(sx.Name("receiver"), sx.Name(signal), sx.Kw("sender", sx.Name(sender))))
}

var handlerParams = []string{"sender", "instance", "**kwargs"}

func imports() []*syntax.Node {
	return []*syntax.Node{
		sx.Import("django.db", "models"),
		sx.Import("django.dispatch", "receiver"),
		sx.Import("django.db.models.signals", "pre_save", "post_save", "pre_delete", "post_delete"),
	}
}

// bulkModule: Post.objects.bulk_create(posts) with a post_save handler on Post.
func bulkModule() *syntax.Node {
	body := append(imports(),
		sx.Class("Post", []string{"models.Model"},
			sx.Assign("title", sx.Invoke("models.CharField", sx.Kw("max_length", sx.Lit("200"))))),
		sx.Func("index_post", handlerParams,
			receiver("post_save", "Post"),
			sx.Invoke("search.index", sx.Name("instance"))),
		sx.Func("import_posts", []string{"rows"},
			sx.Invoke("Post.objects.bulk_create", sx.Name("rows"))),
	)
	return sx.Module("blog/signals.py", body...)
}

// m2mModule reads instance.tags in a post_save handler, optionally behind a
// primary-key check.
func m2mModule(guarded bool) *syntax.Node {
	read := sx.Invoke("instance.tags.all")
	stmt := read
	if guarded {
		stmt = sx.If(sx.Attr("instance.pk"), read)
	}
	body := append(imports(),
		sx.Class("Tag", []string{"models.Model"},
			sx.Assign("name", sx.Invoke("models.CharField"))),
		sx.Class("Article", []string{"models.Model"},
			sx.Assign("tags", sx.Invoke("models.ManyToManyField", sx.Name("Tag")))),
		sx.Func("sync_tags", handlerParams,
			receiver("post_save", "Article"),
			stmt),
	)
	return sx.Module("news/signals.py", body...)
}

func profileModelsModule() *syntax.Node {
	body := append(imports(),
		sx.Class("User", []string{"models.Model"},
			sx.Assign("email", sx.Invoke("models.EmailField"))),
		sx.Class("Profile", []string{"models.Model"},
			sx.Assign("user", sx.Invoke("models.OneToOneField", sx.Name("User"), sx.Kw("on_delete", sx.Attr("models.CASCADE"))))),
	)
	return sx.Module("accounts/models.py", body...)
}

// profileSignalsModule deletes the profile's user from a delete handler on
// Profile: call is the dotted callee, e.g. "self.instance.user.delete".
func profileSignalsModule(signal, call string) *syntax.Node {
	body := append(imports(),
		sx.Func("delete_user", handlerParams,
			receiver(signal, "Profile"),
			sx.Invoke(call)),
	)
	return sx.Module("accounts/signals.py", body...)
}

// selfTriggerModule saves the instance again from its own post_save handler.
func selfTriggerModule() *syntax.Node {
	body := append(imports(),
		sx.Class("Order", []string{"models.Model"},
			sx.Assign("total", sx.Invoke("models.IntegerField"))),
		sx.Func("recompute_total", handlerParams,
			receiver("post_save", "Order"),
			sx.Invoke("instance.save")),
	)
	return sx.Module("shop/signals.py", body...)
}

func writeTree(t *testing.T, dir, rel string, tree *syntax.Node) {
	t.Helper()
	b, err := json.Marshal(tree)
	require.NoError(t, err)
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, b, 0o644))
}

func ruleCounts(fs []types.Finding) map[string]int {
	m := map[string]int{}
	for _, f := range fs {
		m[f.RuleKey]++
	}
	return m
}

func loadIgnore(t *testing.T, dir string) ignore.Matcher {
	t.Helper()
	m, err := ignore.Load(filepath.Join(dir, IgnoreFile))
	require.NoError(t, err)
	return m
}
