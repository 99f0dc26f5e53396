package hooklint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooklint/hooklint/internal/audit"
	"github.com/hooklint/hooklint/internal/syntax"
	sx "github.com/hooklint/hooklint/internal/syntax/syntaxtest"
	"github.com/hooklint/hooklint/internal/types"
)

func resetFlags() {
	flagJSON, flagSARIF, flagNoColor, flagNoCache = false, false, false, false
	flagThreads, flagFailOn, flagLogLevel, flagRulesDirs = 0, "", "", nil
	flagDefaultExcludes = true
	flagPath, flagInclude, flagExclude, flagEnable, flagDisable, flagMinSeverity = ".", "", "", "", "", ""
	flagMaxBytes, flagProject, flagTable, flagText, flagNoAudit = 8<<20, false, false, false, false
	flagBaseline, flagHistoryLimit = defaultBaseline, 20
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	resetFlags()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTree(t *testing.T, dir, rel string, tree *syntax.Node) {
	t.Helper()
	b, err := json.Marshal(tree)
	require.NoError(t, err)
	p := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, b, 0o644))
}

func bulkTree() *syntax.Node {
	return sx.Module("blog/views.py",
		sx.Func("import_posts", []string{"rows"},
			sx.Invoke("Post.objects.bulk_create", sx.Name("rows"))))
}

func selfTriggerTree() *syntax.Node {
	return sx.Module("shop/signals.py",
		sx.Import("django.dispatch", "receiver"),
		sx.Func("recompute", []string{"sender", "instance", "**kwargs"},
			sx.Decorator(sx.Call(sx.Name("receiver"), sx.Name("post_save"), sx.Kw("sender", sx.Name("Order")))),
			sx.Invoke("instance.save")))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 2
}

func TestScan_JSONAndExitCode(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "blog/views.ast.json", bulkTree())
	writeTree(t, dir, "shop/signals.ast.json", selfTriggerTree())

	out, err := run(t, "scan", "--json", "-p", dir)
	assert.Equal(t, 1, exitCode(err), "warning findings fail by default")

	var fs []types.Finding
	require.NoError(t, json.Unmarshal([]byte(out), &fs))
	require.Len(t, fs, 2)
	assert.Equal(t, "signal-self-trigger", fs[0].RuleKey)
	assert.Equal(t, "bulk-signal-bypass", fs[1].RuleKey)

	_, err = os.Stat(filepath.Join(dir, ".hooklint_audit.jsonl"))
	assert.NoError(t, err, "audit record written")

	out, err = run(t, "history", "--json", "-p", dir)
	require.NoError(t, err)
	var recs []audit.Record
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].Total)
	assert.Equal(t, 1, recs[0].BySeverity["critical"])
}

func TestLast_ReplaysPreviousScan(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "last", "-p", dir)
	require.Error(t, err)

	writeTree(t, dir, "shop/signals.ast.json", selfTriggerTree())
	_, err = run(t, "scan", "--json", "--no-audit", "-p", dir)
	require.Equal(t, 1, exitCode(err))

	out, err := run(t, "last", "--json", "-p", dir)
	require.NoError(t, err)
	var fs []types.Finding
	require.NoError(t, json.Unmarshal([]byte(out), &fs))
	require.Len(t, fs, 1)
	assert.Equal(t, "signal-self-trigger", fs[0].RuleKey)
}

func TestHistory_Empty(t *testing.T) {
	out, err := run(t, "history", "-p", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scans recorded.")
}

func TestScan_SARIF(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "blog/views.ast.json", bulkTree())

	out, err := run(t, "scan", "--sarif", "--fail-on", "critical", "--no-audit", "-p", dir)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "2.1.0", doc["version"])
}

func TestScan_MinSeverityAndTable(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "blog/views.ast.json", bulkTree())

	out, err := run(t, "scan", "--min-severity", "critical", "--no-audit", "-p", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No signal antipatterns found")
	assert.Contains(t, out, "Trees scanned: 1")
}

func TestScan_UnknownRule(t *testing.T) {
	_, err := run(t, "scan", "--enable", "no-such-rule", "-p", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestBaselineUpdate_SilencesExistingFindings(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "blog/views.ast.json", bulkTree())

	out, err := run(t, "baseline", "update", "-p", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 findings")

	out, err = run(t, "scan", "--json", "--no-audit", "-p", dir)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestRulesListAndShow(t *testing.T) {
	out, err := run(t, "rules", "list", "--json")
	require.NoError(t, err)
	var metas []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &metas))
	assert.Len(t, metas, 8)

	out, err = run(t, "rules", "show", "bulk-signal-bypass")
	require.NoError(t, err)
	assert.Contains(t, out, "bulk-signal-bypass  [warning, antipattern, report]")
	assert.Contains(t, out, "matcher: all-of(")
	assert.Contains(t, out, "visits: Call\n")

	out, err = run(t, "rules", "show", "signal-trigger-cycle")
	require.NoError(t, err)
	assert.Contains(t, out, "visits: trigger-graph cycles\n")

	_, err = run(t, "rules", "show", "nope")
	assert.Error(t, err)
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		out, err := run(t, "completion", shell)
		require.NoError(t, err, shell)
		assert.Contains(t, out, "hooklint", shell)
	}
	_, err := run(t, "completion", "tcsh")
	assert.Error(t, err)

	cases := []struct {
		name string
		args []string
		want string
		not  string
	}{
		{"rule key", []string{"rules", "show", "bulk"}, "bulk-signal-bypass\tBulk operation bypasses model signals\n:4\n", "signal-self-trigger"},
		{"second key in a list", []string{"scan", "--enable", "bulk-signal-bypass,signal-s"}, "bulk-signal-bypass,signal-self-trigger\t", "bulk-signal-bypass,bulk-signal-bypass"},
		{"list keeps space off", []string{"scan", "--disable", "handler-w"}, "handler-without-sender\t", ":4\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := run(t, append([]string{"__complete"}, tc.args...)...)
			require.NoError(t, err)
			assert.Contains(t, out, tc.want)
			assert.NotContains(t, out, tc.not)
		})
	}
}

func TestRulesNewAndCheck(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "rules")
	out, err := run(t, "rules", "new", "handler-saves-order", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "handler-saves-order.md")

	out, err = run(t, "rules", "check", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "OK: 1 rules")

	_, err = run(t, "rules", "new", "handler-saves-order", "--dir", dir)
	assert.Error(t, err, "refuses to overwrite")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dup.md"), []byte("---\nkey: bulk-signal-bypass\nseverity: info\nmatcher_spec:\n  registers-handler: {}\n---\n"), 0o644))
	_, err = run(t, "rules", "check", dir)
	assert.Error(t, err, "duplicates a built-in key")
}

func TestConfigInit(t *testing.T) {
	p := filepath.Join(t.TempDir(), ".hooklint.yml")
	out, err := run(t, "config", "init", "--output", p)
	require.NoError(t, err)
	assert.Contains(t, out, p)
	_, err = os.Stat(p)
	assert.NoError(t, err)
}

func TestPickHelpers(t *testing.T) {
	l, g := "local", "global"
	assert.Equal(t, "cli", pickString("cli", &l, &g))
	assert.Equal(t, "local", pickString("", &l, &g))
	assert.Equal(t, "global", pickString("", nil, &g))
	f := false
	tr := true
	assert.False(t, pickBool(false, &f, &tr), "local wins over global")
	assert.True(t, pickBool(true, &f, nil))
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
}
