// Package frontmatter reads and writes rule documents: Markdown with a YAML
// header between --- delimiters.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoOpening = errors.New("frontmatter: missing opening --- delimiter")
	ErrNoClosing = errors.New("frontmatter: missing closing --- delimiter")
)

// Split separates a document into its raw YAML header and Markdown body.
// A UTF-8 byte order mark and CRLF line endings are tolerated.
func Split(data []byte) (header []byte, body []byte, err error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	const delim = "---\n"
	if !bytes.HasPrefix(data, []byte(delim)) {
		return nil, nil, ErrNoOpening
	}
	rest := data[len(delim):]
	var idx int
	if bytes.HasPrefix(rest, []byte("---")) {
		idx = 0
	} else if i := bytes.Index(rest, []byte("\n---")); i >= 0 {
		idx = i + 1
	} else {
		return nil, nil, ErrNoClosing
	}
	header = rest[:idx]
	tail := rest[idx+3:]
	if len(tail) > 0 && tail[0] == '\n' {
		tail = tail[1:]
	}
	return header, tail, nil
}

// Parse decodes the header into v and returns the body. v receives the YAML
// document node when it is a *yaml.Node.
func Parse(data []byte, v any) (body []byte, err error) {
	header, body, err := Split(data)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(header, v); err != nil {
		return nil, fmt.Errorf("frontmatter: %w", err)
	}
	return body, nil
}

// Write marshals v as the header and appends body.
func Write(v any, body string) ([]byte, error) {
	fm, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("frontmatter: marshal: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n")
	if body != "" {
		buf.WriteString(body)
	}
	return buf.Bytes(), nil
}
