package config

import (
	"github.com/hashicorp/hcl/v2"
)

// Model is the unified, format-agnostic representation of a field model:
// the mesh it is defined over and the fields defined on it.
type Model struct {
	Region   string
	Nodes    []*Node
	Elements []*Element
	Nodesets []*Nodeset
	Fields   []*FieldDefinition
}

// Node is a mesh node with the values stored at it, keyed by field name.
type Node struct {
	ID            int
	Values        map[string][]float64
	MeshLocations map[string]MeshLocation
}

// MeshLocation is an element identifier and chart coordinates.
type MeshLocation struct {
	Element int       `cty:"element"`
	Xi      []float64 `cty:"xi"`
}

// Element is a mesh element given by its shape name and node identifiers in
// local node order.
type Element struct {
	ID    int
	Shape string
	Nodes []int
}

// Nodeset is a named group of node identifiers.
type Nodeset struct {
	Name  string
	Nodes []int
}

// FieldDefinition is the format-agnostic representation of a `field` block.
// Arguments hold every attribute except the type, unevaluated, since they
// may refer to other fields.
type FieldDefinition struct {
	Name      string
	Type      string
	Arguments map[string]hcl.Expression
	DefRange  hcl.Range
}

// FindField returns the definition with the given name or nil.
func (m *Model) FindField(name string) *FieldDefinition {
	for _, def := range m.Fields {
		if def.Name == name {
			return def
		}
	}
	return nil
}
