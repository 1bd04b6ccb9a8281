package mesh

import (
	"fmt"
	"sort"
)

// Node is a point in the domain identified by a positive integer.
type Node struct {
	id int
}

// ID returns the node identifier.
func (n *Node) ID() int {
	return n.id
}

// Nodeset is an ordered set of nodes. The region owns one master nodeset
// holding every node; groups are named subsets of it.
type Nodeset struct {
	name   string
	region *Region
	master bool
	nodes  []*Node
	index  map[*Node]struct{}
}

func newNodeset(region *Region, name string, master bool) *Nodeset {
	return &Nodeset{
		name:   name,
		region: region,
		master: master,
		index:  make(map[*Node]struct{}),
	}
}

// Name returns the nodeset name. The master nodeset is named "nodes".
func (ns *Nodeset) Name() string {
	return ns.name
}

// Size returns the number of nodes in the set.
func (ns *Nodeset) Size() int {
	return len(ns.nodes)
}

// Contains reports whether node is a member.
func (ns *Nodeset) Contains(node *Node) bool {
	_, ok := ns.index[node]
	return ok
}

// CreateIterator returns an iterator over the members in identifier order.
// Membership changes after creation are not seen by the iterator.
func (ns *Nodeset) CreateIterator() *NodeIterator {
	return &NodeIterator{nodes: ns.nodes}
}

// AddNode adds a region node to a nodeset group.
func (ns *Nodeset) AddNode(node *Node) error {
	if node == nil {
		return fmt.Errorf("%w: nil node", ErrArgument)
	}
	if ns.master {
		return fmt.Errorf("%w: cannot add to master nodeset directly", ErrArgument)
	}
	if !ns.region.nodes.Contains(node) {
		return fmt.Errorf("%w: node %d is not in region %q", ErrArgument, node.id, ns.region.name)
	}
	if ns.Contains(node) {
		return nil
	}
	ns.insert(node)
	ns.region.MarkModified()
	return nil
}

// RemoveNode removes node from a nodeset group.
func (ns *Nodeset) RemoveNode(node *Node) error {
	if ns.master {
		return fmt.Errorf("%w: cannot remove from master nodeset directly", ErrArgument)
	}
	if !ns.Contains(node) {
		return fmt.Errorf("%w: node is not in nodeset %q", ErrArgument, ns.name)
	}
	delete(ns.index, node)
	for i, n := range ns.nodes {
		if n == node {
			// Copy on write so live iterators keep their snapshot.
			nodes := make([]*Node, 0, len(ns.nodes)-1)
			nodes = append(nodes, ns.nodes[:i]...)
			ns.nodes = append(nodes, ns.nodes[i+1:]...)
			break
		}
	}
	ns.region.MarkModified()
	return nil
}

func (ns *Nodeset) insert(node *Node) {
	ns.index[node] = struct{}{}
	i := sort.Search(len(ns.nodes), func(i int) bool { return ns.nodes[i].id > node.id })
	nodes := make([]*Node, 0, len(ns.nodes)+1)
	nodes = append(nodes, ns.nodes[:i]...)
	nodes = append(nodes, node)
	ns.nodes = append(nodes, ns.nodes[i:]...)
}

// NodeIterator walks a snapshot of a nodeset.
type NodeIterator struct {
	nodes []*Node
	pos   int
}

// Next returns the next node, or nil when exhausted. The node is not owned by the caller.
func (it *NodeIterator) Next() *Node {
	if it.pos >= len(it.nodes) {
		return nil
	}
	n := it.nodes[it.pos]
	it.pos++
	return n
}
