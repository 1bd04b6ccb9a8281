package field

import (
	"slices"

	"github.com/vk/fieldengine/internal/mesh"
)

// LocationKind tags the variant held by a Location.
type LocationKind int

const (
	LocationTime LocationKind = iota
	LocationNode
	LocationElementXi
	LocationFieldValues
)

func (k LocationKind) String() string {
	switch k {
	case LocationNode:
		return "node"
	case LocationElementXi:
		return "element_xi"
	case LocationFieldValues:
		return "field_values"
	default:
		return "time"
	}
}

// Location is the point a cache evaluates fields at. Every variant carries a
// time. It is owned by its cache and must be treated as read-only.
type Location struct {
	kind            LocationKind
	time            float64
	node            *mesh.Node
	element         *mesh.Element
	topLevelElement *mesh.Element
	xi              []float64
	basis           *basisState
	field           *Field
	values          []float64
}

func (l *Location) Kind() LocationKind { return l.kind }

func (l *Location) Time() float64 { return l.time }

// Node returns the node of a node location, otherwise nil.
func (l *Location) Node() *mesh.Node {
	if l.kind != LocationNode {
		return nil
	}
	return l.node
}

// Element returns the element of an element location or the optional host
// element of a node location.
func (l *Location) Element() *mesh.Element {
	if l.kind != LocationElementXi && l.kind != LocationNode {
		return nil
	}
	return l.element
}

// TopLevelElement returns the optional top-level element of an element location.
func (l *Location) TopLevelElement() *mesh.Element {
	if l.kind != LocationElementXi {
		return nil
	}
	return l.topLevelElement
}

// Xi returns the chart coordinates of an element location.
func (l *Location) Xi() []float64 {
	if l.kind != LocationElementXi {
		return nil
	}
	return l.xi
}

// Field returns the substituted field of a field-values location.
func (l *Location) Field() *Field {
	if l.kind != LocationFieldValues {
		return nil
	}
	return l.field
}

// Values returns the substituted values of a field-values location.
func (l *Location) Values() []float64 {
	if l.kind != LocationFieldValues {
		return nil
	}
	return l.values
}

// BasisWeights returns the linear basis values of the element at xi.
func (l *Location) BasisWeights() []float64 {
	if l.kind != LocationElementXi || l.basis == nil {
		return nil
	}
	return l.basis.weights()
}

// basisState memoizes basis values for an element shape at one xi.
type basisState struct {
	shape    mesh.Shape
	xi       []float64
	computed []float64
}

func newBasisState(shape mesh.Shape, xi []float64) *basisState {
	return &basisState{shape: shape, xi: slices.Clone(xi)}
}

func (b *basisState) matches(shape mesh.Shape, xi []float64) bool {
	return b.shape == shape && slices.Equal(b.xi, xi)
}

func (b *basisState) weights() []float64 {
	if b.computed == nil {
		b.computed = make([]float64, b.shape.NodeCount())
		b.shape.Basis(b.xi, b.computed)
	}
	return b.computed
}
