package field

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/vk/fieldengine/internal/mesh"
)

// Field is a named node of the evaluation graph. Its sources are fixed at
// creation and always created before it, so the graph is acyclic.
type Field struct {
	module           *Module
	name             string
	componentCount   int
	componentNames   []string
	coordinateSystem CoordinateSystem
	sourceFields     []*Field
	sourceValues     []float64
	op               Operator
	cacheIndex       int
	changeFlags      ChangeFlag
	accessCount      int
	managed          bool
	removed          bool
	computeCount     int
}

func (f *Field) Name() string { return f.name }

func (f *Field) Module() *Module { return f.module }

func (f *Field) ComponentCount() int { return f.componentCount }

func (f *Field) Operator() Operator { return f.op }

func (f *Field) ValueType() ValueType { return f.op.ValueType() }

// IsNumerical reports whether the field produces real values.
func (f *Field) IsNumerical() bool { return f.op.ValueType() == ValueTypeReal }

// Kind returns the operator variant, KindCustom for user-supplied operators.
func (f *Field) Kind() Kind {
	if k, ok := f.op.(kinded); ok {
		return k.kind()
	}
	return KindCustom
}

// SourceFields returns a copy of the source field list.
func (f *Field) SourceFields() []*Field { return slices.Clone(f.sourceFields) }

// SourceField returns the source at index or nil.
func (f *Field) SourceField(index int) *Field {
	if index < 0 || index >= len(f.sourceFields) {
		return nil
	}
	return f.sourceFields[index]
}

// SourceValues returns a copy of the constant source values.
func (f *Field) SourceValues() []float64 { return slices.Clone(f.sourceValues) }

// ComputeCount returns how many times the operator computed a value for the
// field. Value-cache hits do not count.
func (f *Field) ComputeCount() int { return f.computeCount }

func (f *Field) CoordinateSystem() CoordinateSystem { return f.coordinateSystem }

// SetCoordinateSystem sets the coordinate system tag of a numeric field.
func (f *Field) SetCoordinateSystem(cs CoordinateSystem) error {
	if cs < RectangularCartesian || cs > NotApplicable {
		return fmt.Errorf("%w: invalid coordinate system %d", ErrArgument, cs)
	}
	if !f.IsNumerical() && cs != NotApplicable {
		return fmt.Errorf("%w: non-numeric field %q only has coordinate system %s", ErrArgument, f.name, NotApplicable)
	}
	if f.coordinateSystem != cs {
		f.coordinateSystem = cs
		f.module.setChanged(f, ChangeDefinition)
	}
	return nil
}

// ComponentName returns the name of the component at 0-based index. Unnamed
// components are named by their 1-based number.
func (f *Field) ComponentName(index int) string {
	if index < len(f.componentNames) && f.componentNames[index] != "" {
		return f.componentNames[index]
	}
	return strconv.Itoa(index + 1)
}

// SetComponentName names the component at 0-based index of a node-value field.
func (f *Field) SetComponentName(index int, name string) error {
	if f.Kind() != KindNodeValue {
		return fmt.Errorf("%w: only node_value fields have settable component names", ErrArgument)
	}
	if index < 0 || index >= f.componentCount || name == "" {
		return fmt.Errorf("%w: component %d of field %q", ErrArgument, index, f.name)
	}
	if f.componentNames == nil {
		f.componentNames = make([]string, f.componentCount)
	}
	f.componentNames[index] = name
	f.module.setChanged(f, ChangeDefinition)
	return nil
}

// SetName renames the field. Names are unique within the module.
func (f *Field) SetName(name string) error {
	return f.module.renameField(f, name)
}

// CommandString returns a deterministic command reproducing the field.
func (f *Field) CommandString() string {
	args := f.op.CommandString(f)
	if args == "" {
		return f.op.TypeName()
	}
	return f.op.TypeName() + " " + args
}

// Access takes a reference to the field.
func (f *Field) Access() *Field {
	f.accessCount++
	return f
}

// Release drops a reference. An unmanaged field without references is
// removed from its module and releases its sources.
func (f *Field) Release() error {
	if f.accessCount <= 0 {
		return fmt.Errorf("%w: field %q has no references", ErrArgument, f.name)
	}
	f.accessCount--
	if f.accessCount == 0 && !f.managed && !f.removed {
		f.module.removeField(f)
	}
	return nil
}

// AccessCount returns the number of references held on the field.
func (f *Field) AccessCount() int { return f.accessCount }

func (f *Field) IsManaged() bool { return f.managed }

// SetManaged keeps the field alive in its module without external references.
func (f *Field) SetManaged(managed bool) {
	f.managed = managed
	if !managed && f.accessCount == 0 && !f.removed {
		f.module.removeField(f)
	}
}

// DependsOn reports whether other is f or one of its direct or indirect sources.
func (f *Field) DependsOn(other *Field) bool {
	if f == other {
		return true
	}
	for _, src := range f.sourceFields {
		if src.DependsOn(other) {
			return true
		}
	}
	return false
}

func (f *Field) checkCache(c *Cache) error {
	if f.removed {
		return fmt.Errorf("%w: field %q has been destroyed", ErrArgument, f.name)
	}
	if c == nil || c.released {
		return fmt.Errorf("%w: missing or released cache", ErrArgument)
	}
	if c.module != f.module {
		return fmt.Errorf("%w: cache is from another module", ErrArgument)
	}
	return nil
}

// Evaluate returns the field's value cache at the cache location, computing
// it only if the value cache is stale. The returned cache is owned by c and
// valid until its location changes.
func (f *Field) Evaluate(c *Cache) (ValueCache, error) {
	if err := f.checkCache(c); err != nil {
		return nil, err
	}
	c.syncRegion()
	vc := c.valueCache(f)
	if c.isValid(vc) {
		return vc, nil
	}
	if loc := &c.location; loc.kind == LocationFieldValues && loc.field == f {
		copy(vc.(*RealValueCache).Values, loc.values)
	} else {
		f.computeCount++
		if err := f.op.Evaluate(c, f, vc); err != nil {
			return nil, fmt.Errorf("evaluating %q: %w", f.name, err)
		}
	}
	vc.stamp(c.locationCounter)
	return vc, nil
}

// EvaluateReal evaluates a real field and copies its values into out.
func (f *Field) EvaluateReal(c *Cache, out []float64) error {
	if !f.IsNumerical() {
		return fmt.Errorf("%w: field %q is not real-valued", ErrArgument, f.name)
	}
	if len(out) < f.componentCount {
		return fmt.Errorf("%w: field %q needs %d values, got room for %d", ErrArgument, f.name, f.componentCount, len(out))
	}
	vc, err := f.Evaluate(c)
	if err != nil {
		return err
	}
	copy(out, vc.(*RealValueCache).Values)
	return nil
}

// evaluateReal evaluates a real source field inside an operator.
func (f *Field) evaluateReal(c *Cache) (*RealValueCache, error) {
	if !f.IsNumerical() {
		return nil, fmt.Errorf("%w: field %q is not real-valued", ErrArgument, f.name)
	}
	vc, err := f.Evaluate(c)
	if err != nil {
		return nil, err
	}
	return vc.(*RealValueCache), nil
}

// EvaluateString evaluates a string field.
func (f *Field) EvaluateString(c *Cache) (string, error) {
	if f.ValueType() != ValueTypeString {
		return "", fmt.Errorf("%w: field %q is not string-valued", ErrArgument, f.name)
	}
	vc, err := f.Evaluate(c)
	if err != nil {
		return "", err
	}
	return vc.(*StringValueCache).Value, nil
}

// EvaluateMeshLocation evaluates a mesh-location field.
func (f *Field) EvaluateMeshLocation(c *Cache) (*mesh.Element, []float64, error) {
	if f.ValueType() != ValueTypeMeshLocation {
		return nil, nil, fmt.Errorf("%w: field %q is not mesh-location-valued", ErrArgument, f.name)
	}
	vc, err := f.Evaluate(c)
	if err != nil {
		return nil, nil, err
	}
	mvc := vc.(*MeshLocationValueCache)
	return mvc.Element, slices.Clone(mvc.Xi), nil
}

// EvaluateDerivative returns the derivative d of the field at the cache
// location. The term count is fixed by d and the location.
func (f *Field) EvaluateDerivative(c *Cache, d *Derivative) (*DerivativeValueCache, error) {
	if err := f.checkCache(c); err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: nil derivative", ErrArgument)
	}
	if !f.IsNumerical() {
		return nil, fmt.Errorf("%w: field %q is not real-valued", ErrArgument, f.name)
	}
	c.syncRegion()
	terms, err := d.TermCount(&c.location)
	if err != nil {
		return nil, err
	}
	dvc := c.valueCache(f).(*RealValueCache).DerivativeCache(d)
	if c.isValid(dvc) {
		return dvc, nil
	}
	dvc.resize(f.componentCount, terms)
	if err := f.op.EvaluateDerivative(c, f, dvc, d); err != nil {
		return nil, fmt.Errorf("evaluating derivative of %q: %w", f.name, err)
	}
	dvc.stamp(c.locationCounter)
	return dvc, nil
}

// EvaluateDerivativeTree evaluates the field value and every derivative from
// order 1 up to d, returning the value cache holding them.
func (f *Field) EvaluateDerivativeTree(c *Cache, d *Derivative) (*RealValueCache, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil derivative", ErrArgument)
	}
	vc, err := f.evaluateReal(c)
	if err != nil {
		return nil, err
	}
	var chain []*Derivative
	for lower := d; lower != nil; lower = lower.lower {
		chain = append(chain, lower)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if _, err := f.EvaluateDerivative(c, chain[i]); err != nil {
			return nil, err
		}
	}
	return vc, nil
}

// IsDefinedAtLocation reports whether the field has a value at the cache
// location without necessarily computing it.
func (f *Field) IsDefinedAtLocation(c *Cache) bool {
	if f.checkCache(c) != nil {
		return false
	}
	c.syncRegion()
	if vc := c.existingValueCache(f); vc != nil && c.isValid(vc) {
		return true
	}
	if loc := &c.location; loc.kind == LocationFieldValues && loc.field == f {
		return true
	}
	return f.op.IsDefinedAtLocation(c, f)
}

// Assign sets the field to values at the cache location, writing through its
// sources down to stored values. A failed assignment returns ErrGeneral.
func (f *Field) Assign(c *Cache, values []float64) (AssignResult, error) {
	if err := f.checkCache(c); err != nil {
		return AssignFail, err
	}
	if !f.IsNumerical() {
		return AssignFail, fmt.Errorf("%w: field %q is not real-valued", ErrArgument, f.name)
	}
	if len(values) != f.componentCount {
		return AssignFail, fmt.Errorf("%w: field %q has %d components, got %d values", ErrArgument, f.name, f.componentCount, len(values))
	}
	c.syncRegion()
	vc := c.valueCache(f).(*RealValueCache)
	copy(vc.Values, values)
	return f.assignResult(c, f.assignValueCache(c, vc))
}

// AssignString sets a string field at the cache location.
func (f *Field) AssignString(c *Cache, value string) (AssignResult, error) {
	if err := f.checkCache(c); err != nil {
		return AssignFail, err
	}
	if f.ValueType() != ValueTypeString {
		return AssignFail, fmt.Errorf("%w: field %q is not string-valued", ErrArgument, f.name)
	}
	c.syncRegion()
	vc := c.valueCache(f).(*StringValueCache)
	vc.Value = value
	return f.assignResult(c, f.assignValueCache(c, vc))
}

// AssignMeshLocation sets a mesh-location field at the cache location.
func (f *Field) AssignMeshLocation(c *Cache, element *mesh.Element, xi []float64) (AssignResult, error) {
	if err := f.checkCache(c); err != nil {
		return AssignFail, err
	}
	if f.ValueType() != ValueTypeMeshLocation {
		return AssignFail, fmt.Errorf("%w: field %q is not mesh-location-valued", ErrArgument, f.name)
	}
	if element == nil || len(xi) != element.Dimension() || !c.ownsElement(element) {
		return AssignFail, fmt.Errorf("%w: invalid mesh location for field %q", ErrArgument, f.name)
	}
	c.syncRegion()
	vc := c.valueCache(f).(*MeshLocationValueCache)
	vc.Element = element
	vc.Xi = append(vc.Xi[:0], xi...)
	return f.assignResult(c, f.assignValueCache(c, vc))
}

func (f *Field) assignResult(c *Cache, result AssignResult) (AssignResult, error) {
	if result == AssignFail {
		return result, fmt.Errorf("%w: cannot assign %q at %s location", ErrGeneral, f.name, c.location.kind)
	}
	return result, nil
}

// assignValueCache pushes the values already written into vc down through the
// operator. The value cache stays valid only when every value was set and
// assignment is to the cache only.
func (f *Field) assignValueCache(c *Cache, vc ValueCache) AssignResult {
	result := f.op.Assign(c, f, vc)
	if result == AssignAll && c.assignInCacheOnly {
		vc.stamp(c.locationCounter)
		if rvc, ok := vc.(*RealValueCache); ok {
			rvc.resetDerivatives()
		}
	} else {
		vc.reset()
	}
	if c.assignInCacheOnly && result != AssignFail {
		f.module.invalidateDependents(c, f)
	}
	return result
}
