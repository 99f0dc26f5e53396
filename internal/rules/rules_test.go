package rules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooklint/hooklint/internal/match"
	"github.com/hooklint/hooklint/internal/types"
)

func doc(key, severity, extra string) Source {
	data := "---\n"
	if key != "" {
		data += "key: " + key + "\n"
	}
	if severity != "" {
		data += "severity: " + severity + "\n"
	}
	if extra == "" {
		extra = "matcher_spec:\n  call-name-is: save\n"
	}
	data += extra + "---\nbody of " + key + "\n"
	return Source{Name: key + ".md", Data: []byte(data)}
}

func TestBuiltinCorpus(t *testing.T) {
	c, err := Load(BuiltinSources(), Options{Version: "0.1.0"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"bulk-signal-bypass",
		"handler-recursive-delete",
		"handler-saves-model",
		"handler-without-sender",
		"premature-m2m-access",
		"signal-handler-registration",
		"signal-self-trigger",
		"signal-trigger-cycle",
	}, c.Keys())

	bulk := c.Rule("bulk-signal-bypass")
	require.NotNil(t, bulk)
	assert.Equal(t, types.SevWarning, bulk.Severity)
	assert.Equal(t, EffectReport, bulk.Effect)
	assert.Contains(t, bulk.Body, "bulk_create")

	assert.True(t, c.Rule("signal-trigger-cycle").IsGraph())
	assert.False(t, bulk.IsGraph())
	assert.Equal(t, EffectBind, c.Rule("signal-handler-registration").Effect)
	assert.Equal(t, EffectCascade, c.Rule("handler-recursive-delete").Effect)
	assert.Equal(t, EffectTrigger, c.Rule("handler-saves-model").Effect)
}

func TestLoad_PreservesOrder(t *testing.T) {
	c, err := Load([]Source{doc("zeta", "info", ""), doc("alpha", "critical", ""), doc("mid", "warning", "")}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, c.Keys())
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, "body of alpha\n", c.Rule("alpha").Body)
	assert.Equal(t, types.CatAntipattern, c.Rule("alpha").Category)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string][]Source{
		"duplicate key":     {doc("a", "info", ""), doc("a", "warning", "")},
		"missing key":       {doc("", "info", "")},
		"missing severity":  {doc("a", "", "")},
		"bad severity":      {doc("a", "urgent", "")},
		"bad type":          {doc("a", "info", "type: opinion\nmatcher_spec:\n  call-name-is: save\n")},
		"bad effect":        {doc("a", "info", "effect: explode\nmatcher_spec:\n  call-name-is: save\n")},
		"no matcher":        {doc("a", "info", "message: hi\n")},
		"unknown primitive": {doc("a", "info", "matcher_spec:\n  all-of:\n    - calls-network: true\n")},
		"cycle binding":     {doc("a", "info", "effect: bind\nmatcher_spec:\n  trigger-cycle: any\n")},
		"bad requires":      {doc("a", "info", "requires: \"not a range\"\nmatcher_spec:\n  call-name-is: save\n")},
		"no frontmatter":    {{Name: "x.md", Data: []byte("# just prose\n")}},
		"bad key":           {doc("Has Space", "info", "")},
	}
	for name, srcs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(srcs, Options{})
			var ce *CorpusError
			require.ErrorAs(t, err, &ce)
			assert.NotEmpty(t, ce.Reason)
		})
	}

	_, err := Load(cases["unknown primitive"], Options{})
	assert.True(t, errors.Is(err, match.ErrUnknownPrimitive))
	assert.Contains(t, err.Error(), "a.md")
}

func TestLoad_UnknownFieldsIgnored(t *testing.T) {
	c, err := Load([]Source{doc("a", "info", "owner: platform\ntags: [x]\nmatcher_spec:\n  call-name-is: save\n")}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, c.Keys())
}

func TestLoad_Requires(t *testing.T) {
	srcs := []Source{
		doc("old", "info", "requires: \"<0.1.0\"\nmatcher_spec:\n  call-name-is: save\n"),
		doc("new", "info", "requires: \">=0.1.0 <2.0.0\"\nmatcher_spec:\n  call-name-is: save\n"),
	}
	c, err := Load(srcs, Options{Version: "v0.3.1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, c.Keys())

	c, err = Load(srcs, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "new"}, c.Keys())

	_, err = Load(srcs, Options{Version: "banana"})
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	c, err := Load([]Source{doc("a", "info", ""), doc("b", "info", ""), doc("c", "info", "")}, Options{})
	require.NoError(t, err)

	f, err := c.Filter([]string{"c", "a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, f.Keys())

	f, err = c.Filter(nil, []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, f.Keys())
	assert.Equal(t, []string{"a", "b", "c"}, c.Keys(), "filtering never changes the source corpus")

	_, err = c.Filter([]string{"nope"}, nil)
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	a, err := Load([]Source{doc("a", "info", ""), doc("b", "warning", "")}, Options{})
	require.NoError(t, err)
	b, err := Load([]Source{doc("a", "info", ""), doc("b", "warning", "")}, Options{})
	require.NoError(t, err)
	c, err := Load([]Source{doc("a", "info", ""), doc("b", "critical", "")}, Options{})
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.Len(t, a.Fingerprint(), 16)
}

func TestRender(t *testing.T) {
	r := &Rule{Key: "k", Message: "{call}() on {model}"}
	assert.Equal(t, "bulk_create() on Post", r.Render(map[string]string{"call": "bulk_create", "model": "Post"}))
	assert.Equal(t, "{call}() on Post", r.Render(map[string]string{"model": "Post", "call": ""}))
	assert.Equal(t, "Title", (&Rule{Key: "k", Title: "Title"}).Render(nil))
}

func TestLoadBuiltin_ExtraDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "local.md"), doc("local-rule", "warning", "").Data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	c, err := LoadBuiltin(Options{}, dir)
	require.NoError(t, err)
	keys := c.Keys()
	assert.Equal(t, "local-rule", keys[len(keys)-1])
	assert.Equal(t, filepath.Join(dir, "local.md"), c.Rule("local-rule").Source)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dup.md"), doc("bulk-signal-bypass", "info", "").Data, 0o644))
	_, err = LoadBuiltin(Options{}, dir)
	var ce *CorpusError
	assert.ErrorAs(t, err, &ce)
}

func TestCorpus_ReturnsCopies(t *testing.T) {
	c, err := Load(BuiltinSources(), Options{})
	require.NoError(t, err)
	fp := c.Fingerprint()

	first := c.Rules()[0]
	first.Severity = "bogus"
	first.Effect = EffectBind
	first.Matcher = match.CallNameIs("save")
	c.Rule("signal-self-trigger").Severity = types.SevInfo

	assert.Equal(t, types.SevWarning, c.Rules()[0].Severity)
	assert.Equal(t, EffectReport, c.Rules()[0].Effect)
	assert.Equal(t, types.SevCritical, c.Rule("signal-self-trigger").Severity)
	assert.Equal(t, fp, c.Fingerprint())
}

func TestNewCorpus_LeavesInputsAlone(t *testing.T) {
	r := &Rule{Key: "k", Severity: types.SevInfo, Matcher: match.CallNameIs("save")}
	c, err := NewCorpus(r)
	require.NoError(t, err)
	assert.Equal(t, Effect(""), r.Effect)
	assert.Equal(t, EffectReport, c.Rule("k").Effect)

	r.Severity = types.SevCritical
	assert.Equal(t, types.SevInfo, c.Rule("k").Severity)
}
