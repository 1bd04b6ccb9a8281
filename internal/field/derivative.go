package field

import (
	"fmt"

	"github.com/vk/fieldengine/internal/mesh"
)

// DerivativeKind identifies what a derivative is taken with respect to.
type DerivativeKind int

const (
	// DerivativeMesh is with respect to element chart coordinates.
	DerivativeMesh DerivativeKind = iota
	// DerivativeParameters is with respect to a node-value field's parameters.
	DerivativeParameters
)

// Derivative identifies one derivative that fields can evaluate. Instances are
// owned by the module and compared by identity.
type Derivative struct {
	kind       DerivativeKind
	mesh       *mesh.Mesh
	field      *Field
	order      int
	lower      *Derivative
	cacheIndex int
}

type meshDerivativeKey struct {
	mesh  *mesh.Mesh
	order int
}

// MeshDerivative returns the derivative of the given order with respect to
// the chart coordinates of elements in m.
func (m *Module) MeshDerivative(msh *mesh.Mesh, order int) (*Derivative, error) {
	if msh == nil || msh != m.region.Mesh(msh.Dimension()) {
		return nil, fmt.Errorf("%w: mesh is not from this module's region", ErrArgument)
	}
	if order < 1 || order > maxDerivativeOrder {
		return nil, fmt.Errorf("%w: derivative order %d outside 1..%d", ErrArgument, order, maxDerivativeOrder)
	}
	key := meshDerivativeKey{mesh: msh, order: order}
	if d, ok := m.meshDerivatives[key]; ok {
		return d, nil
	}
	d := &Derivative{kind: DerivativeMesh, mesh: msh, order: order, cacheIndex: m.nextDerivativeIndex}
	m.nextDerivativeIndex++
	if order > 1 {
		lower, err := m.MeshDerivative(msh, order-1)
		if err != nil {
			return nil, err
		}
		d.lower = lower
	}
	m.meshDerivatives[key] = d
	return d, nil
}

// ParameterDerivative returns the first derivative with respect to the node
// parameters of a node-value field.
func (m *Module) ParameterDerivative(f *Field) (*Derivative, error) {
	if f == nil || f.module != m {
		return nil, fmt.Errorf("%w: field is not from this module", ErrArgument)
	}
	if f.Kind() != KindNodeValue {
		return nil, fmt.Errorf("%w: parameter derivatives need a node_value field, %q is %s", ErrArgument, f.name, f.Kind())
	}
	if d, ok := m.parameterDerivatives[f]; ok {
		return d, nil
	}
	d := &Derivative{kind: DerivativeParameters, field: f, order: 1, cacheIndex: m.nextDerivativeIndex}
	m.nextDerivativeIndex++
	m.parameterDerivatives[f] = d
	return d, nil
}

const maxDerivativeOrder = 3

func (d *Derivative) Kind() DerivativeKind { return d.kind }

func (d *Derivative) Order() int { return d.order }

// Lower returns the derivative of one lower order, or nil for order 1.
func (d *Derivative) Lower() *Derivative { return d.lower }

// Mesh returns the mesh of a mesh derivative.
func (d *Derivative) Mesh() *mesh.Mesh { return d.mesh }

// Field returns the parameter field of a parameter derivative.
func (d *Derivative) Field() *Field { return d.field }

// TermCount returns the number of derivative terms per component at loc.
// Mesh derivatives have dimension^order terms at an element of the mesh.
// Parameter derivatives have one term per field parameter: components times
// local nodes at an element, components at a node.
func (d *Derivative) TermCount(loc *Location) (int, error) {
	switch d.kind {
	case DerivativeMesh:
		if loc.kind != LocationElementXi || loc.element.Dimension() != d.mesh.Dimension() {
			return 0, fmt.Errorf("%w: mesh derivative needs a %d-D element location", ErrNotDefined, d.mesh.Dimension())
		}
		terms := 1
		for i, end := 0, d.order; i < end; i++ {
			terms *= d.mesh.Dimension()
		}
		return terms, nil
	case DerivativeParameters:
		switch loc.kind {
		case LocationElementXi:
			return d.field.componentCount * loc.element.NodeCount(), nil
		case LocationNode:
			return d.field.componentCount, nil
		}
		return 0, fmt.Errorf("%w: parameter derivative needs a node or element location", ErrNotDefined)
	}
	return 0, fmt.Errorf("%w: unknown derivative kind %d", ErrGeneral, d.kind)
}

// termDirections decodes a mesh derivative term index into its chart
// direction tuple. Terms are row-major over the tuple.
func (d *Derivative) termDirections(term int, dirs []int) []int {
	dirs = dirs[:0]
	dim := d.mesh.Dimension()
	for i, end := 0, d.order; i < end; i++ {
		dirs = append(dirs, 0)
	}
	for i := d.order - 1; i >= 0; i-- {
		dirs[i] = term % dim
		term /= dim
	}
	return dirs
}
