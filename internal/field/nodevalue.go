package field

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/vk/fieldengine/internal/mesh"
)

// nodeValueOperator reads values stored per node and interpolates them over
// elements with the linear Lagrange basis.
type nodeValueOperator struct {
	storedData
}

func (op *nodeValueOperator) kind() Kind { return KindNodeValue }

func (op *nodeValueOperator) TypeName() string { return KindNodeValue.String() }

func (op *nodeValueOperator) ValueType() ValueType { return ValueTypeReal }

// elementValues returns the stored values of every local node of element.
func (op *nodeValueOperator) elementValues(store *mesh.Store, element *mesh.Element) ([][]float64, error) {
	nodal := make([][]float64, element.NodeCount())
	for n := range nodal {
		v, ok := store.Values(op.storeName, element.Node(n))
		if !ok {
			return nil, fmt.Errorf("%w: no values at node %d of element %d", ErrNotDefined, element.Node(n).ID(), element.ID())
		}
		nodal[n] = v
	}
	return nodal, nil
}

func (op *nodeValueOperator) Evaluate(c *Cache, f *Field, vc ValueCache) error {
	values := vc.(*RealValueCache).Values
	store := f.module.region.Store()
	loc := &c.location
	switch loc.kind {
	case LocationNode:
		v, ok := store.Values(op.storeName, loc.node)
		if !ok {
			return fmt.Errorf("%w: no values at node %d", ErrNotDefined, loc.node.ID())
		}
		copy(values, v)
		return nil
	case LocationElementXi:
		nodal, err := op.elementValues(store, loc.element)
		if err != nil {
			return err
		}
		weights := loc.BasisWeights()
		clear(values)
		for n, v := range nodal {
			floats.AddScaled(values, weights[n], v)
		}
		return nil
	}
	return fmt.Errorf("%w: node values at %s location", ErrNotDefined, loc.kind)
}

func (op *nodeValueOperator) EvaluateDerivative(c *Cache, f *Field, dvc *DerivativeValueCache, d *Derivative) error {
	if _, err := f.evaluateReal(c); err != nil {
		return err
	}
	clear(dvc.Values)
	loc := &c.location
	switch d.kind {
	case DerivativeMesh:
		nodal, err := op.elementValues(f.module.region.Store(), loc.element)
		if err != nil {
			return err
		}
		shape := loc.element.Shape()
		basis := make([]float64, shape.NodeCount())
		column := make([]float64, len(nodal))
		var dirs []int
		for term, end := 0, dvc.termCount; term < end; term++ {
			dirs = d.termDirections(term, dirs)
			shape.BasisDerivative(loc.xi, dirs, basis)
			for comp, end := 0, f.componentCount; comp < end; comp++ {
				for n, v := range nodal {
					column[n] = v[comp]
				}
				dvc.Values[comp*dvc.termCount+term] = floats.Dot(basis, column)
			}
		}
	case DerivativeParameters:
		if d.field != f {
			return nil
		}
		if loc.kind == LocationNode {
			for comp, end := 0, f.componentCount; comp < end; comp++ {
				dvc.Component(comp)[comp] = 1
			}
			return nil
		}
		weights := loc.BasisWeights()
		nodeCount := loc.element.NodeCount()
		for comp, end := 0, f.componentCount; comp < end; comp++ {
			copy(dvc.Component(comp)[comp*nodeCount:(comp+1)*nodeCount], weights)
		}
	}
	return nil
}

func (op *nodeValueOperator) IsDefinedAtLocation(c *Cache, f *Field) bool {
	store := f.module.region.Store()
	loc := &c.location
	switch loc.kind {
	case LocationNode:
		_, ok := store.Values(op.storeName, loc.node)
		return ok
	case LocationElementXi:
		_, err := op.elementValues(store, loc.element)
		return err == nil
	}
	return false
}

// Assign writes the values to the node store. Values at element locations
// cannot be inverted onto nodes.
func (op *nodeValueOperator) Assign(c *Cache, f *Field, vc ValueCache) AssignResult {
	loc := &c.location
	if loc.kind != LocationNode {
		return AssignFail
	}
	if c.assignInCacheOnly {
		return AssignAll
	}
	if err := f.module.region.Store().SetValues(op.storeName, loc.node, vc.(*RealValueCache).Values); err != nil {
		f.module.logger.Debug("Node value assignment failed.", "field", f.name, "error", err)
		return AssignFail
	}
	f.module.setChanged(f, ChangeResult)
	return AssignAll
}

func (op *nodeValueOperator) CommandString(f *Field) string {
	s := fmt.Sprintf("components %d", f.componentCount)
	if f.componentNames != nil {
		names := make([]string, f.componentCount)
		for i := range names {
			names[i] = commandToken(f.ComponentName(i))
		}
		s += " component_names " + strings.Join(names, " ")
	}
	return s
}

// CreateNodeValue creates a field stored per node under its name, with
// components values at each node where it is set.
func (m *Module) CreateNodeValue(name string, components int) (*Field, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: node_value fields need a name", ErrArgument)
	}
	if components < 1 {
		return nil, fmt.Errorf("%w: node_value field %q needs at least one component", ErrArgument, name)
	}
	if _, exists := m.fields[name]; exists {
		return nil, fmt.Errorf("%w: field %q already exists", ErrArgument, name)
	}
	if err := m.region.Store().DefineField(name, components); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArgument, err)
	}
	return m.addField(name, components, nil, nil, &nodeValueOperator{storedData: storedData{storeName: name}})
}
