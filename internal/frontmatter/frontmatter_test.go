package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type header struct {
	Key      string `yaml:"key"`
	Severity string `yaml:"severity"`
}

func TestRoundtrip(t *testing.T) {
	body := "# Bulk writes\n\nSkip signals.\n"
	data, err := Write(header{Key: "bulk-signal-bypass", Severity: "warning"}, body)
	require.NoError(t, err)

	var h header
	got, err := Parse(data, &h)
	require.NoError(t, err)
	assert.Equal(t, "bulk-signal-bypass", h.Key)
	assert.Equal(t, "warning", h.Severity)
	assert.Equal(t, body, string(got))
}

func TestSplit_CRLFAndBOM(t *testing.T) {
	data := []byte("\xef\xbb\xbf---\r\nkey: a\r\n---\r\nbody\r\n")
	h, body, err := Split(data)
	require.NoError(t, err)
	assert.Equal(t, "key: a\n", string(h))
	assert.Equal(t, "body\n", string(body))
}

func TestSplit_EmptyHeader(t *testing.T) {
	h, body, err := Split([]byte("---\n---\ntext"))
	require.NoError(t, err)
	assert.Empty(t, h)
	assert.Equal(t, "text", string(body))
}

func TestSplit_Errors(t *testing.T) {
	_, _, err := Split([]byte("no delimiter"))
	assert.ErrorIs(t, err, ErrNoOpening)

	_, _, err = Split([]byte("---\nkey: a\n"))
	assert.ErrorIs(t, err, ErrNoClosing)
}

func TestParse_Node(t *testing.T) {
	var n yaml.Node
	_, err := Parse([]byte("---\nmatcher_spec:\n  call-name-is: save\n---\n"), &n)
	require.NoError(t, err)
	assert.Equal(t, yaml.DocumentNode, n.Kind)
}

func TestParse_BadYAML(t *testing.T) {
	var h header
	_, err := Parse([]byte("---\nkey: [unterminated\n---\n"), &h)
	assert.Error(t, err)
}
