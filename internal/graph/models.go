package graph

import "github.com/hooklint/hooklint/internal/types"

// FieldKind classifies a declared model field.
type FieldKind string

const (
	FieldScalar         FieldKind = "scalar"
	FieldRelationToOne  FieldKind = "relation-to-one"
	FieldRelationToMany FieldKind = "relation-to-many"
)

func (k FieldKind) Valid() bool {
	switch k {
	case FieldScalar, FieldRelationToOne, FieldRelationToMany:
		return true
	}
	return false
}

// Field is one declared field of a model.
type Field struct {
	Name    string
	Kind    FieldKind
	Target  string // related model for relation fields
	Cascade bool   // on_delete=CASCADE
	Loc     types.Location
}

// ModelDeclaration is an ORM model type found in the scanned tree.
type ModelDeclaration struct {
	Name   string
	Loc    types.Location
	Fields map[string]Field
	order  []string
}

// NewModel returns an empty declaration.
func NewModel(name string, loc types.Location) *ModelDeclaration {
	return &ModelDeclaration{Name: name, Loc: loc, Fields: map[string]Field{}}
}

// AddField records a field; redeclaring a name keeps the first declaration.
func (m *ModelDeclaration) AddField(f Field) {
	if _, ok := m.Fields[f.Name]; ok {
		return
	}
	m.Fields[f.Name] = f
	m.order = append(m.order, f.Name)
}

// Field looks up a declared field by name.
func (m *ModelDeclaration) Field(name string) (Field, bool) {
	if m == nil {
		return Field{}, false
	}
	f, ok := m.Fields[name]
	return f, ok
}

// FieldNames returns field names in declaration order.
func (m *ModelDeclaration) FieldNames() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}
