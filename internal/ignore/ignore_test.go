package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnoreMatch(t *testing.T) {
	dir := t.TempDir()
	ig := filepath.Join(dir, ".hooklintignore")
	content := "fixtures/\n*.generated.ast.json\n# comment\n\nlegacy/signals.ast.json\n"
	require.NoError(t, os.WriteFile(ig, []byte(content), 0644))

	m, err := Load(ig)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())

	cases := map[string]bool{
		"fixtures/blog/models.ast.json":     true,
		"app/fixtures/x.ast.json":           true,
		"blog/models.generated.ast.json":    true,
		"legacy/signals.ast.json":           true,
		"blog/signals.ast.json":             false,
		`windows\fixtures\models.ast.json`:  true,
	}
	for p, want := range cases {
		assert.Equal(t, want, m.Match(p), p)
	}
}

func TestLoad_Missing(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
	assert.False(t, m.Match("anything"))
}
