package field

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/vk/fieldengine/internal/mesh"
)

// nodesetOperator reduces its first source field over the nodes of a
// nodeset. Members are visited in a child cache so the caller's location is
// untouched. An optional second source is an element map: a mesh-location
// field that, at an element location, restricts the reduction to nodes
// mapped into that element.
type nodesetOperator struct {
	baseOperator
	variant Kind
	nodeset *mesh.Nodeset
}

func (op *nodesetOperator) kind() Kind { return op.variant }

func (op *nodesetOperator) TypeName() string { return op.variant.String() }

func (op *nodesetOperator) elementMap(f *Field) *Field {
	if len(f.sourceFields) > 1 {
		return f.sourceFields[1]
	}
	return nil
}

// visitMembers calls fn with the source values at every member where the
// source is defined and returns how many members were visited.
func (op *nodesetOperator) visitMembers(c *Cache, f *Field, fn func(values []float64)) (int, error) {
	source := f.sourceFields[0]
	elementMap := op.elementMap(f)
	var element *mesh.Element
	if elementMap != nil && c.location.kind == LocationElementXi {
		element = c.location.element
	}
	child := c.ChildCache(f)
	count := 0
	it := op.nodeset.CreateIterator()
	for node := it.Next(); node != nil; node = it.Next() {
		if err := child.SetNode(node, nil); err != nil {
			return 0, err
		}
		if element != nil {
			mapped, _, err := elementMap.EvaluateMeshLocation(child)
			if errors.Is(err, ErrNotDefined) {
				continue
			}
			if err != nil {
				return 0, err
			}
			if mapped != element {
				continue
			}
		}
		svc, err := source.evaluateReal(child)
		if errors.Is(err, ErrNotDefined) {
			continue
		}
		if err != nil {
			return 0, err
		}
		fn(svc.Values)
		count++
	}
	return count, nil
}

func (op *nodesetOperator) Evaluate(c *Cache, f *Field, vc ValueCache) error {
	values := vc.(*RealValueCache).Values
	clear(values)
	var visit func([]float64)
	count := 0
	switch op.variant {
	case KindNodesetSum, KindNodesetMean:
		visit = func(sv []float64) { floats.Add(values, sv) }
	case KindNodesetSumSquares, KindNodesetMeanSquares:
		square := make([]float64, len(values))
		visit = func(sv []float64) {
			floats.MulTo(square, sv, sv)
			floats.Add(values, square)
		}
	case KindNodesetMinimum, KindNodesetMaximum:
		visit = func(sv []float64) {
			if count == 0 {
				copy(values, sv)
			} else if op.variant == KindNodesetMinimum {
				for i, v := range sv {
					values[i] = math.Min(values[i], v)
				}
			} else {
				for i, v := range sv {
					values[i] = math.Max(values[i], v)
				}
			}
			count++
		}
	}
	n, err := op.visitMembers(c, f, visit)
	if err != nil {
		return err
	}
	switch op.variant {
	case KindNodesetMean, KindNodesetMeanSquares:
		if n == 0 {
			return fmt.Errorf("%w: source not defined on any member of nodeset %q", ErrNotDefined, op.nodeset.Name())
		}
		floats.Scale(1/float64(n), values)
	case KindNodesetMinimum, KindNodesetMaximum:
		if n == 0 {
			return fmt.Errorf("%w: source not defined on any member of nodeset %q", ErrNotDefined, op.nodeset.Name())
		}
	}
	return nil
}

// EvaluateDerivative gives zero mesh derivatives: the reduction does not vary
// with the xi of the caller's location.
func (op *nodesetOperator) EvaluateDerivative(c *Cache, f *Field, dvc *DerivativeValueCache, d *Derivative) error {
	if d.kind != DerivativeMesh {
		return fmt.Errorf("%w: parameter derivative of %s", ErrNotDefined, op.variant)
	}
	if _, err := f.evaluateReal(c); err != nil {
		return err
	}
	clear(dvc.Values)
	return nil
}

// IsDefinedAtLocation is true as soon as the source is defined at any member.
// Sums are always defined: with no defined member they are zero.
func (op *nodesetOperator) IsDefinedAtLocation(c *Cache, f *Field) bool {
	if op.variant == KindNodesetSum || op.variant == KindNodesetSumSquares {
		return true
	}
	source := f.sourceFields[0]
	elementMap := op.elementMap(f)
	var element *mesh.Element
	if elementMap != nil && c.location.kind == LocationElementXi {
		element = c.location.element
	}
	// Probed in the shared working cache; Evaluate keeps member values in
	// the child cache.
	probe := c.WorkingCache()
	it := op.nodeset.CreateIterator()
	for node := it.Next(); node != nil; node = it.Next() {
		if probe.SetNode(node, nil) != nil {
			return false
		}
		if element != nil {
			mapped, _, err := elementMap.EvaluateMeshLocation(probe)
			if err != nil || mapped != element {
				continue
			}
		}
		if source.IsDefinedAtLocation(probe) {
			return true
		}
	}
	return false
}

func (op *nodesetOperator) CommandString(f *Field) string {
	s := fmt.Sprintf("field %s nodeset %s", commandToken(f.sourceFields[0].name), commandToken(op.nodeset.Name()))
	if elementMap := op.elementMap(f); elementMap != nil {
		s += " element_map " + commandToken(elementMap.name)
	}
	return s
}

// Nodeset returns the nodeset of a nodeset reduction field, otherwise nil.
func (f *Field) Nodeset() *mesh.Nodeset {
	if op, ok := f.op.(*nodesetOperator); ok {
		return op.nodeset
	}
	return nil
}

// ElementMapField returns the element map of a nodeset reduction field, or nil.
func (f *Field) ElementMapField() *Field {
	if op, ok := f.op.(*nodesetOperator); ok {
		return op.elementMap(f)
	}
	return nil
}

// SetElementMapField sets or, with nil, clears the mesh-location field that
// maps nodes to elements for a nodeset reduction field.
func (f *Field) SetElementMapField(elementMap *Field) error {
	op, ok := f.op.(*nodesetOperator)
	if !ok {
		return fmt.Errorf("%w: field %q is not a nodeset reduction", ErrArgument, f.name)
	}
	if elementMap != nil {
		if err := f.module.checkSource(elementMap, "element map"); err != nil {
			return err
		}
		if elementMap.ValueType() != ValueTypeMeshLocation {
			return fmt.Errorf("%w: element map field %q is not mesh-location-valued", ErrArgument, elementMap.name)
		}
		if elementMap.DependsOn(f) {
			return fmt.Errorf("%w: element map field %q depends on %q", ErrArgument, elementMap.name, f.name)
		}
	}
	old := op.elementMap(f)
	if old == elementMap {
		return nil
	}
	f.sourceFields = f.sourceFields[:1]
	if elementMap != nil {
		f.sourceFields = append(f.sourceFields, elementMap.Access())
	}
	if old != nil {
		_ = old.Release()
	}
	f.module.setChanged(f, ChangeDefinition)
	return nil
}

// NumberOfSumSquareTerms returns the number of members contributing terms to
// a sum-of-squares or mean-of-squares field at the cache location.
func (f *Field) NumberOfSumSquareTerms(c *Cache) (int, error) {
	op, err := f.sumSquaresOperator(c)
	if err != nil {
		return 0, err
	}
	return op.visitMembers(c, f, func([]float64) {})
}

// SumSquareTerms returns one row of component values per contributing member,
// concatenated. The squares of the terms sum to the field value for
// sum-of-squares. For mean-of-squares each term is scaled by 1/sqrt(n) so the
// squares sum to the mean, and no contributing member is not defined.
func (f *Field) SumSquareTerms(c *Cache) ([]float64, error) {
	op, err := f.sumSquaresOperator(c)
	if err != nil {
		return nil, err
	}
	var terms []float64
	n, err := op.visitMembers(c, f, func(sv []float64) { terms = append(terms, sv...) })
	if err != nil {
		return nil, err
	}
	if op.variant == KindNodesetMeanSquares {
		if n == 0 {
			return nil, fmt.Errorf("%w: source not defined on any member of nodeset %q", ErrNotDefined, op.nodeset.Name())
		}
		floats.Scale(1/math.Sqrt(float64(n)), terms)
	}
	return terms, nil
}

func (f *Field) sumSquaresOperator(c *Cache) (*nodesetOperator, error) {
	if err := f.checkCache(c); err != nil {
		return nil, err
	}
	op, ok := f.op.(*nodesetOperator)
	if !ok || (op.variant != KindNodesetSumSquares && op.variant != KindNodesetMeanSquares) {
		return nil, fmt.Errorf("%w: field %q is not a sum-of-squares field", ErrArgument, f.name)
	}
	c.syncRegion()
	return op, nil
}

// CreateNodesetSum creates a field summing source over the nodeset.
func (m *Module) CreateNodesetSum(name string, source *Field, nodeset *mesh.Nodeset) (*Field, error) {
	return m.createNodesetOperator(KindNodesetSum, name, source, nodeset)
}

// CreateNodesetMean creates a field averaging source over the members where
// it is defined.
func (m *Module) CreateNodesetMean(name string, source *Field, nodeset *mesh.Nodeset) (*Field, error) {
	return m.createNodesetOperator(KindNodesetMean, name, source, nodeset)
}

// CreateNodesetSumSquares creates a field summing the squares of source
// components over the nodeset.
func (m *Module) CreateNodesetSumSquares(name string, source *Field, nodeset *mesh.Nodeset) (*Field, error) {
	return m.createNodesetOperator(KindNodesetSumSquares, name, source, nodeset)
}

// CreateNodesetMeanSquares creates a field averaging the squares of source
// components over the members where it is defined.
func (m *Module) CreateNodesetMeanSquares(name string, source *Field, nodeset *mesh.Nodeset) (*Field, error) {
	return m.createNodesetOperator(KindNodesetMeanSquares, name, source, nodeset)
}

// CreateNodesetMinimum creates a field with the component-wise minimum of source.
func (m *Module) CreateNodesetMinimum(name string, source *Field, nodeset *mesh.Nodeset) (*Field, error) {
	return m.createNodesetOperator(KindNodesetMinimum, name, source, nodeset)
}

// CreateNodesetMaximum creates a field with the component-wise maximum of source.
func (m *Module) CreateNodesetMaximum(name string, source *Field, nodeset *mesh.Nodeset) (*Field, error) {
	return m.createNodesetOperator(KindNodesetMaximum, name, source, nodeset)
}

func (m *Module) createNodesetOperator(variant Kind, name string, source *Field, nodeset *mesh.Nodeset) (*Field, error) {
	if err := m.checkNumericSource(source); err != nil {
		return nil, err
	}
	if nodeset == nil || m.region.FindNodesetByName(nodeset.Name()) != nodeset {
		return nil, fmt.Errorf("%w: nodeset is not in the module region", ErrArgument)
	}
	op := &nodesetOperator{variant: variant, nodeset: nodeset}
	return m.addField(name, source.componentCount, []*Field{source}, nil, op)
}
