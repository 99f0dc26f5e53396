package syntax

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ScanError reports a tree the engine refuses to scan: nil, unrooted, or
// structurally broken. It is fatal for one scan only.
type ScanError struct {
	File   string
	Stage  string
	Reason string
}

func (e *ScanError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("scan %s: %s: %s", e.File, e.Stage, e.Reason)
	}
	return fmt.Sprintf("scan: %s: %s", e.Stage, e.Reason)
}

// IsScanError reports whether err wraps a *ScanError.
func IsScanError(err error) bool {
	var se *ScanError
	return errors.As(err, &se)
}

// Decode reads one JSON-encoded tree.
func Decode(r io.Reader) (*Node, error) {
	var n Node
	dec := json.NewDecoder(r)
	if err := dec.Decode(&n); err != nil {
		return nil, &ScanError{Stage: "decode", Reason: err.Error()}
	}
	return &n, nil
}

// LoadFile decodes the tree stored at path.
func LoadFile(path string) (*Node, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(path, b)
}

// DecodeBytes decodes a tree read from name. Modules that do not record their
// source file inherit name so findings stay attributable.
func DecodeBytes(name string, data []byte) (*Node, error) {
	n, err := Decode(bytes.NewReader(data))
	if err != nil {
		var se *ScanError
		if errors.As(err, &se) {
			se.File = name
		}
		return nil, err
	}
	fillModuleFiles(n, name)
	return n, nil
}

func fillModuleFiles(root *Node, fallback string) {
	switch root.Kind {
	case KindModule:
		if root.Loc.File == "" {
			root.Loc.File = fallback
		}
	case KindProject:
		for _, m := range root.Children {
			if m != nil && m.Kind == KindModule && m.Loc.File == "" {
				m.Loc.File = fallback
			}
		}
	}
}

// Validate checks the structural requirements the engine relies on: a
// Project or Module root, and a source file on every module.
func Validate(root *Node) error {
	if root == nil {
		return &ScanError{Stage: "validate", Reason: "nil tree"}
	}
	switch root.Kind {
	case KindModule:
		if root.Loc.File == "" {
			return &ScanError{Stage: "validate", Reason: "module without source file"}
		}
	case KindProject:
		for i, m := range root.Children {
			if m == nil {
				return &ScanError{File: root.Name, Stage: "validate", Reason: fmt.Sprintf("nil module at index %d", i)}
			}
			if m.Kind != KindModule {
				return &ScanError{File: root.Name, Stage: "validate", Reason: fmt.Sprintf("project child %d is %q, want Module", i, m.Kind)}
			}
			if m.Loc.File == "" {
				return &ScanError{File: root.Name, Stage: "validate", Reason: fmt.Sprintf("module %d without source file", i)}
			}
		}
	default:
		return &ScanError{Stage: "validate", Reason: fmt.Sprintf("unrooted tree: root kind %q", root.Kind)}
	}
	return nil
}

// Modules returns the modules of a validated tree in order.
func Modules(root *Node) []*Node {
	if root == nil {
		return nil
	}
	if root.Kind == KindModule {
		return []*Node{root}
	}
	return root.ChildrenOf(KindModule)
}

// NewProject joins modules from several trees into one Project root so a
// single scan can resolve models across files.
func NewProject(name string, trees ...*Node) *Node {
	p := &Node{Kind: KindProject, Name: name}
	for _, t := range trees {
		p.Children = append(p.Children, Modules(t)...)
	}
	return p
}
