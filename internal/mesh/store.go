package mesh

import (
	"fmt"
	"slices"
)

// Location is a stored element and xi pair.
type Location struct {
	Element *Element
	Xi      []float64
}

type storedField struct {
	components int
	values     map[*Node][]float64
	locations  map[*Node]Location
}

// Store holds per-node values for named stored fields.
type Store struct {
	region *Region
	fields map[string]*storedField
}

func newStore(region *Region) *Store {
	return &Store{region: region, fields: make(map[string]*storedField)}
}

// DefineField declares a stored field. A name can only be defined once
// until it is removed.
func (s *Store) DefineField(name string, components int) error {
	if name == "" || components < 0 {
		return fmt.Errorf("%w: invalid stored field %q with %d components", ErrArgument, name, components)
	}
	if _, ok := s.fields[name]; ok {
		return fmt.Errorf("%w: stored field %q is already defined", ErrArgument, name)
	}
	s.fields[name] = &storedField{
		components: components,
		values:     make(map[*Node][]float64),
		locations:  make(map[*Node]Location),
	}
	return nil
}

// RenameField moves a stored field and its values to a new name.
func (s *Store) RenameField(oldName, newName string) error {
	f, ok := s.fields[oldName]
	if !ok {
		return fmt.Errorf("%w: stored field %q is not defined", ErrArgument, oldName)
	}
	if newName == "" {
		return fmt.Errorf("%w: empty stored field name", ErrArgument)
	}
	if _, ok := s.fields[newName]; ok {
		return fmt.Errorf("%w: stored field %q is already defined", ErrArgument, newName)
	}
	delete(s.fields, oldName)
	s.fields[newName] = f
	return nil
}

// RemoveField drops a stored field and all of its values.
func (s *Store) RemoveField(name string) {
	if _, ok := s.fields[name]; !ok {
		return
	}
	delete(s.fields, name)
	s.region.MarkModified()
}

// Components returns the component count of a stored field.
func (s *Store) Components(name string) (int, bool) {
	f, ok := s.fields[name]
	if !ok {
		return 0, false
	}
	return f.components, true
}

// SetValues stores a copy of values for the node.
func (s *Store) SetValues(name string, node *Node, values []float64) error {
	f, err := s.lookup(name, node)
	if err != nil {
		return err
	}
	if len(values) != f.components {
		return fmt.Errorf("%w: stored field %q expects %d values, got %d", ErrArgument, name, f.components, len(values))
	}
	f.values[node] = slices.Clone(values)
	s.region.MarkModified()
	return nil
}

// Values returns the stored values at node. The slice must not be modified.
func (s *Store) Values(name string, node *Node) ([]float64, bool) {
	f, ok := s.fields[name]
	if !ok {
		return nil, false
	}
	v, ok := f.values[node]
	return v, ok
}

// IsDefined reports whether values or a location are stored for the node.
func (s *Store) IsDefined(name string, node *Node) bool {
	f, ok := s.fields[name]
	if !ok {
		return false
	}
	if _, ok := f.values[node]; ok {
		return true
	}
	_, ok = f.locations[node]
	return ok
}

// SetMeshLocation stores an element location for the node.
func (s *Store) SetMeshLocation(name string, node *Node, element *Element, xi []float64) error {
	f, err := s.lookup(name, node)
	if err != nil {
		return err
	}
	if element == nil {
		return fmt.Errorf("%w: nil element", ErrArgument)
	}
	if len(xi) != element.Dimension() {
		return fmt.Errorf("%w: element %d expects %d xi, got %d", ErrArgument, element.id, element.Dimension(), len(xi))
	}
	f.locations[node] = Location{Element: element, Xi: slices.Clone(xi)}
	s.region.MarkModified()
	return nil
}

// MeshLocation returns the stored element location at node.
func (s *Store) MeshLocation(name string, node *Node) (Location, bool) {
	f, ok := s.fields[name]
	if !ok {
		return Location{}, false
	}
	loc, ok := f.locations[node]
	return loc, ok
}

func (s *Store) lookup(name string, node *Node) (*storedField, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil node", ErrArgument)
	}
	f, ok := s.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: stored field %q is not defined", ErrArgument, name)
	}
	if !s.region.nodes.Contains(node) {
		return nil, fmt.Errorf("%w: node %d is not in region %q", ErrArgument, node.id, s.region.name)
	}
	return f, nil
}
