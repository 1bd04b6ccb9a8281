// Package schema holds the HCL decoding structures of field model files.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// Node represents a `node` block. Values and mesh locations are kept as
// expressions so the loader can convert them with a typed target.
type Node struct {
	ID            string         `hcl:"id,label"`
	Values        hcl.Expression `hcl:"values,optional"`
	MeshLocations hcl.Expression `hcl:"mesh_locations,optional"`
}

// Element represents an `element` block.
type Element struct {
	ID    string `hcl:"id,label"`
	Shape string `hcl:"shape"`
	Nodes []int  `hcl:"nodes"`
}

// Nodeset represents a `nodeset` block, a named group of nodes.
type Nodeset struct {
	Name  string `hcl:"name,label"`
	Nodes []int  `hcl:"nodes,optional"`
}

// Field represents a `field` block. Every attribute other than `type` is an
// operator argument and stays in the remaining body.
type Field struct {
	Name     string    `hcl:"name,label"`
	Type     string    `hcl:"type"`
	Body     hcl.Body  `hcl:",remain"`
	DefRange hcl.Range `hcl:",def_range"`
}

// ModelFile represents the top-level structure of a model file.
type ModelFile struct {
	Region   string     `hcl:"region,optional"`
	Nodes    []*Node    `hcl:"node,block"`
	Elements []*Element `hcl:"element,block"`
	Nodesets []*Nodeset `hcl:"nodeset,block"`
	Fields   []*Field   `hcl:"field,block"`
}
