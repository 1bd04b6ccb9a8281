package mesh

import (
	"errors"
	"fmt"
)

// ErrArgument is returned for nil, unknown or malformed arguments.
var ErrArgument = errors.New("invalid argument")

// MasterNodesetName is the name under which the region's full nodeset is found.
const MasterNodesetName = "nodes"

// Region owns the nodes, meshes, nodesets and stored values of a domain.
type Region struct {
	name          string
	nodes         *Nodeset
	nodesByID     map[int]*Node
	meshes        [3]*Mesh
	groups        map[string]*Nodeset
	store         *Store
	modifyCounter int
}

// NewRegion creates an empty region.
func NewRegion(name string) *Region {
	r := &Region{
		name:      name,
		nodesByID: make(map[int]*Node),
		groups:    make(map[string]*Nodeset),
	}
	r.nodes = newNodeset(r, MasterNodesetName, true)
	for d := range r.meshes {
		r.meshes[d] = newMesh(r, d+1)
	}
	r.store = newStore(r)
	return r
}

// Name returns the region name.
func (r *Region) Name() string {
	return r.name
}

// ModifyCounter returns a counter that changes whenever nodes, elements,
// nodesets or stored values change.
func (r *Region) ModifyCounter() int {
	return r.modifyCounter
}

// MarkModified records an external change to data the region serves.
func (r *Region) MarkModified() {
	r.modifyCounter++
}

// Nodes returns the master nodeset holding every node in the region.
func (r *Region) Nodes() *Nodeset {
	return r.nodes
}

// Store returns the stored-value store of the region.
func (r *Region) Store() *Store {
	return r.store
}

// CreateNode adds a node with a positive identifier unique in the region.
func (r *Region) CreateNode(id int) (*Node, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: node identifier must be positive, got %d", ErrArgument, id)
	}
	if _, exists := r.nodesByID[id]; exists {
		return nil, fmt.Errorf("%w: node %d already exists", ErrArgument, id)
	}
	n := &Node{id: id}
	r.nodesByID[id] = n
	r.nodes.insert(n)
	r.MarkModified()
	return n, nil
}

// FindNodeByID returns the node with the identifier or nil.
func (r *Region) FindNodeByID(id int) *Node {
	return r.nodesByID[id]
}

// Mesh returns the mesh of the given dimension, or nil outside 1..3.
func (r *Region) Mesh(dimension int) *Mesh {
	if dimension < 1 || dimension > len(r.meshes) {
		return nil
	}
	return r.meshes[dimension-1]
}

// CreateElement adds an element to the mesh matching the shape's dimension.
// Nodes are given by identifier in local node order.
func (r *Region) CreateElement(id int, shape Shape, nodeIDs []int) (*Element, error) {
	if !shape.IsValid() {
		return nil, fmt.Errorf("%w: invalid element shape", ErrArgument)
	}
	if len(nodeIDs) != shape.NodeCount() {
		return nil, fmt.Errorf("%w: %s element %d needs %d nodes, got %d",
			ErrArgument, shape, id, shape.NodeCount(), len(nodeIDs))
	}
	nodes := make([]*Node, len(nodeIDs))
	for i, nodeID := range nodeIDs {
		n := r.nodesByID[nodeID]
		if n == nil {
			return nil, fmt.Errorf("%w: element %d references unknown node %d", ErrArgument, id, nodeID)
		}
		nodes[i] = n
	}
	e, err := r.Mesh(shape.Dimension()).addElement(id, shape, nodes)
	if err != nil {
		return nil, err
	}
	r.MarkModified()
	return e, nil
}

// CreateNodesetGroup creates an empty named subset of the master nodeset.
func (r *Region) CreateNodesetGroup(name string) (*Nodeset, error) {
	if name == "" || name == MasterNodesetName {
		return nil, fmt.Errorf("%w: invalid nodeset name %q", ErrArgument, name)
	}
	if _, exists := r.groups[name]; exists {
		return nil, fmt.Errorf("%w: nodeset %q already exists", ErrArgument, name)
	}
	ns := newNodeset(r, name, false)
	r.groups[name] = ns
	return ns, nil
}

// FindNodesetByName returns the named group, the master nodeset for
// MasterNodesetName, or nil.
func (r *Region) FindNodesetByName(name string) *Nodeset {
	if name == MasterNodesetName {
		return r.nodes
	}
	return r.groups[name]
}
