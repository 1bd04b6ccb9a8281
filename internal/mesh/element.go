package mesh

import (
	"fmt"
	"sort"
)

// Element is a mesh cell with a shape and one node per local basis function.
type Element struct {
	id    int
	shape Shape
	nodes []*Node
	mesh  *Mesh
}

// ID returns the element identifier, unique within its mesh.
func (e *Element) ID() int {
	return e.id
}

// Shape returns the element shape.
func (e *Element) Shape() Shape {
	return e.shape
}

// Dimension returns the number of xi coordinates of the element.
func (e *Element) Dimension() int {
	return e.shape.dimension
}

// NodeCount returns the number of local nodes.
func (e *Element) NodeCount() int {
	return len(e.nodes)
}

// Node returns the local node at index, or nil if out of range.
func (e *Element) Node(index int) *Node {
	if index < 0 || index >= len(e.nodes) {
		return nil
	}
	return e.nodes[index]
}

// Mesh returns the mesh the element belongs to.
func (e *Element) Mesh() *Mesh {
	return e.mesh
}

// Mesh holds the elements of one dimension in a region.
type Mesh struct {
	region    *Region
	dimension int
	elements  map[int]*Element
	ordered   []*Element
}

func newMesh(region *Region, dimension int) *Mesh {
	return &Mesh{
		region:    region,
		dimension: dimension,
		elements:  make(map[int]*Element),
	}
}

// Dimension returns the dimension of every element in the mesh.
func (m *Mesh) Dimension() int {
	return m.dimension
}

// Size returns the number of elements.
func (m *Mesh) Size() int {
	return len(m.ordered)
}

// FindElementByID returns the element with the identifier or nil.
func (m *Mesh) FindElementByID(id int) *Element {
	return m.elements[id]
}

// CreateElementIterator returns an iterator over the elements in identifier order.
func (m *Mesh) CreateElementIterator() *ElementIterator {
	return &ElementIterator{elements: m.ordered}
}

func (m *Mesh) addElement(id int, shape Shape, nodes []*Node) (*Element, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: element identifier must be positive, got %d", ErrArgument, id)
	}
	if _, exists := m.elements[id]; exists {
		return nil, fmt.Errorf("%w: element %d already exists in %d-D mesh", ErrArgument, id, m.dimension)
	}
	e := &Element{id: id, shape: shape, nodes: nodes, mesh: m}
	m.elements[id] = e
	i := sort.Search(len(m.ordered), func(i int) bool { return m.ordered[i].id > id })
	m.ordered = append(m.ordered, nil)
	copy(m.ordered[i+1:], m.ordered[i:])
	m.ordered[i] = e
	return e, nil
}

// ElementIterator walks a snapshot of a mesh's elements.
type ElementIterator struct {
	elements []*Element
	pos      int
}

// Next returns the next element, or nil when exhausted. The element is not owned by the caller.
func (it *ElementIterator) Next() *Element {
	if it.pos >= len(it.elements) {
		return nil
	}
	e := it.elements[it.pos]
	it.pos++
	return e
}
