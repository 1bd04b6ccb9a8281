package field

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// compositeOperator builds each output component from one component of a
// source field or from one owned constant. A source field number of -1
// selects the constant at the matching source value number.
type compositeOperator struct {
	variant            Kind
	sourceFieldNumbers []int
	sourceValueNumbers []int
}

func (op *compositeOperator) kind() Kind { return op.variant }

func (op *compositeOperator) TypeName() string { return op.variant.String() }

func (op *compositeOperator) ValueType() ValueType { return ValueTypeReal }

func (op *compositeOperator) Evaluate(c *Cache, f *Field, vc ValueCache) error {
	values := vc.(*RealValueCache).Values
	sourceNumber := -1
	var sourceValues []float64
	for i, end := 0, f.componentCount; i < end; i++ {
		if op.sourceFieldNumbers[i] < 0 {
			values[i] = f.sourceValues[op.sourceValueNumbers[i]]
			continue
		}
		if sourceNumber != op.sourceFieldNumbers[i] {
			sourceNumber = op.sourceFieldNumbers[i]
			svc, err := f.sourceFields[sourceNumber].evaluateReal(c)
			if err != nil {
				return err
			}
			sourceValues = svc.Values
		}
		values[i] = sourceValues[op.sourceValueNumbers[i]]
	}
	return nil
}

func (op *compositeOperator) EvaluateDerivative(c *Cache, f *Field, dvc *DerivativeValueCache, d *Derivative) error {
	sourceNumber := -1
	var source *DerivativeValueCache
	for i, end := 0, f.componentCount; i < end; i++ {
		terms := dvc.Component(i)
		if op.sourceFieldNumbers[i] < 0 {
			clear(terms)
			continue
		}
		if sourceNumber != op.sourceFieldNumbers[i] {
			sourceNumber = op.sourceFieldNumbers[i]
			var err error
			source, err = f.sourceFields[sourceNumber].EvaluateDerivative(c, d)
			if err != nil {
				return err
			}
		}
		copy(terms, source.Component(op.sourceValueNumbers[i]))
	}
	return nil
}

func (op *compositeOperator) IsDefinedAtLocation(c *Cache, f *Field) bool {
	for _, src := range f.sourceFields {
		if !src.IsDefinedAtLocation(c) {
			return false
		}
	}
	return true
}

// Assign reads each source's current values, overwrites the components this
// field maps to and assigns the source. Constants take their new values only
// when not assigning in the cache alone.
func (op *compositeOperator) Assign(c *Cache, f *Field, vc ValueCache) AssignResult {
	values := vc.(*RealValueCache).Values
	result := AssignAll
	for sourceNumber, src := range f.sourceFields {
		svc, err := src.evaluateReal(c)
		if err != nil {
			return AssignFail
		}
		for i, end := 0, f.componentCount; i < end; i++ {
			if op.sourceFieldNumbers[i] == sourceNumber {
				svc.Values[op.sourceValueNumbers[i]] = values[i]
			}
		}
		sourceResult := src.assignValueCache(c, svc)
		if sourceResult == AssignFail {
			return AssignFail
		}
		result = Weakest(result, sourceResult)
	}
	if !c.assignInCacheOnly {
		changed := false
		for i, end := 0, f.componentCount; i < end; i++ {
			if op.sourceFieldNumbers[i] < 0 {
				f.sourceValues[op.sourceValueNumbers[i]] = values[i]
				changed = true
			}
		}
		if changed {
			f.module.setChanged(f, ChangeResult)
		}
	}
	return result
}

// CommandString lists the source tokens. A source consumed whole and in
// order is written as its name, single components as name.component and
// constants in %g format.
func (op *compositeOperator) CommandString(f *Field) string {
	var tokens []string
	for i := 0; i < f.componentCount; i++ {
		if op.sourceFieldNumbers[i] < 0 {
			tokens = append(tokens, strconv.FormatFloat(f.sourceValues[op.sourceValueNumbers[i]], 'g', 6, 64))
			continue
		}
		sourceNumber := op.sourceFieldNumbers[i]
		src := f.sourceFields[sourceNumber]
		whole := true
		for j := 0; whole && j < src.componentCount; j++ {
			whole = i+j < f.componentCount &&
				op.sourceFieldNumbers[i+j] == sourceNumber &&
				op.sourceValueNumbers[i+j] == j
		}
		if whole {
			tokens = append(tokens, commandToken(src.name))
			i += src.componentCount - 1
			continue
		}
		tokens = append(tokens, commandToken(src.name+"."+src.ComponentName(op.sourceValueNumbers[i])))
	}
	return strings.Join(tokens, " ")
}

// commandToken quotes names that would not survive as one command token.
func commandToken(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"'") {
		return strconv.Quote(s)
	}
	return s
}

// SourceComponentIndex returns the 0-based source component of output
// component index of a component field.
func (f *Field) SourceComponentIndex(index int) (int, error) {
	op, ok := f.op.(*compositeOperator)
	if !ok || f.Kind() != KindComponent {
		return 0, fmt.Errorf("%w: field %q is not a component field", ErrArgument, f.name)
	}
	if index < 0 || index >= f.componentCount {
		return 0, fmt.Errorf("%w: component %d out of range", ErrArgument, index)
	}
	return op.sourceValueNumbers[index], nil
}

// SetSourceComponentIndex changes the source component, 0-based, selected by
// output component index of a component field.
func (f *Field) SetSourceComponentIndex(index, sourceComponent int) error {
	op, ok := f.op.(*compositeOperator)
	if !ok || f.Kind() != KindComponent {
		return fmt.Errorf("%w: field %q is not a component field", ErrArgument, f.name)
	}
	if index < 0 || index >= f.componentCount ||
		sourceComponent < 0 || sourceComponent >= f.sourceFields[0].componentCount {
		return fmt.Errorf("%w: component %d of source component %d out of range", ErrArgument, index, sourceComponent)
	}
	if op.sourceValueNumbers[index] != sourceComponent {
		op.sourceValueNumbers[index] = sourceComponent
		f.module.setChanged(f, ChangeDefinition)
	}
	return nil
}

// CreateComposite creates a field whose component i is component
// sourceValueNumbers[i] of sources[sourceFieldNumbers[i]], or the constant
// values[sourceValueNumbers[i]] when sourceFieldNumbers[i] is -1.
//
// Sources must be numeric, distinct, and first used in order. Constants must
// be used in order from 0. Every source and constant must be used.
func (m *Module) CreateComposite(name string, components int, sources []*Field, values []float64, sourceFieldNumbers, sourceValueNumbers []int) (*Field, error) {
	if err := m.validateComposite(components, sources, values, sourceFieldNumbers, sourceValueNumbers); err != nil {
		m.logger.Debug("Composite validation failed.", "field", name, "error", err)
		return nil, err
	}
	return m.createComposite(KindComposite, name, components, sources, values, sourceFieldNumbers, sourceValueNumbers)
}

func (m *Module) createComposite(variant Kind, name string, components int, sources []*Field, values []float64, sourceFieldNumbers, sourceValueNumbers []int) (*Field, error) {
	op := &compositeOperator{
		variant:            variant,
		sourceFieldNumbers: slices.Clone(sourceFieldNumbers),
		sourceValueNumbers: slices.Clone(sourceValueNumbers),
	}
	return m.addField(name, components, sources, values, op)
}

func (m *Module) validateComposite(components int, sources []*Field, values []float64, sourceFieldNumbers, sourceValueNumbers []int) error {
	if components < 1 {
		return fmt.Errorf("%w: composite needs at least one component", ErrArgument)
	}
	if len(sourceFieldNumbers) != components || len(sourceValueNumbers) != components {
		return fmt.Errorf("%w: composite needs %d source field and value numbers", ErrArgument, components)
	}
	var errs *multierror.Error
	for i, src := range sources {
		if err := m.checkSource(src, "source"); err != nil {
			return err
		}
		if !src.IsNumerical() {
			return fmt.Errorf("%w: source field %q is not numerical", ErrArgument, src.name)
		}
		if slices.Index(sources, src) < i {
			errs = multierror.Append(errs, fmt.Errorf("source field %q is repeated", src.name))
		}
	}
	if errs != nil {
		return fmt.Errorf("%w: %w", ErrArgument, errs)
	}
	nextField, nextValue := 0, 0
	for i, end := 0, components; i < end; i++ {
		fieldNumber, valueNumber := sourceFieldNumbers[i], sourceValueNumbers[i]
		switch {
		case fieldNumber == -1:
			if valueNumber != nextValue {
				errs = multierror.Append(errs, fmt.Errorf("component %d: source value number %d out of order, expected %d", i+1, valueNumber, nextValue))
			} else if valueNumber >= len(values) {
				errs = multierror.Append(errs, fmt.Errorf("component %d: source value number %d out of range", i+1, valueNumber))
			}
			nextValue++
		case fieldNumber >= 0 && fieldNumber < len(sources):
			if fieldNumber > nextField {
				errs = multierror.Append(errs, fmt.Errorf("component %d: source fields not used in order", i+1))
				continue
			}
			if fieldNumber == nextField {
				nextField++
			}
			src := sources[fieldNumber]
			if valueNumber < 0 || valueNumber >= src.componentCount {
				errs = multierror.Append(errs, fmt.Errorf("component %d: component %d is out of range for field %q", i+1, valueNumber, src.name))
			}
		default:
			errs = multierror.Append(errs, fmt.Errorf("component %d: invalid source field number %d", i+1, fieldNumber))
		}
	}
	if nextField < len(sources) {
		errs = multierror.Append(errs, fmt.Errorf("not all source fields used"))
	}
	if nextValue < len(values) {
		errs = multierror.Append(errs, fmt.Errorf("not all source values used"))
	}
	if errs != nil {
		return fmt.Errorf("%w: %w", ErrArgument, errs)
	}
	return nil
}

// CreateIdentity creates a field with the same components as source.
func (m *Module) CreateIdentity(name string, source *Field) (*Field, error) {
	if err := m.checkNumericSource(source); err != nil {
		return nil, err
	}
	fieldNumbers := make([]int, source.componentCount)
	valueNumbers := make([]int, source.componentCount)
	for i := range valueNumbers {
		valueNumbers[i] = i
	}
	return m.createValidComposite(KindIdentity, name, source.componentCount, []*Field{source}, nil, fieldNumbers, valueNumbers)
}

// CreateComponent creates a scalar field selecting one component of source.
// The component number starts at 1.
func (m *Module) CreateComponent(name string, source *Field, component int) (*Field, error) {
	return m.createComponents(name, source, []int{component})
}

// CreateComponentMultiple creates a field selecting components of source in
// the given order. Component numbers start at 1 and may repeat.
func (m *Module) CreateComponentMultiple(name string, source *Field, components []int) (*Field, error) {
	if len(components) == 0 {
		return nil, fmt.Errorf("%w: no components selected", ErrArgument)
	}
	return m.createComponents(name, source, components)
}

func (m *Module) createComponents(name string, source *Field, components []int) (*Field, error) {
	if err := m.checkNumericSource(source); err != nil {
		return nil, err
	}
	fieldNumbers := make([]int, len(components))
	valueNumbers := make([]int, len(components))
	for i, component := range components {
		if component < 1 || component > source.componentCount {
			return nil, fmt.Errorf("%w: component %d of %d-component field %q", ErrArgument, component, source.componentCount, source.name)
		}
		valueNumbers[i] = component - 1
	}
	return m.createValidComposite(KindComponent, name, len(components), []*Field{source}, nil, fieldNumbers, valueNumbers)
}

// CreateConcatenate joins the components of sources in order. A source listed
// more than once is referenced once.
func (m *Module) CreateConcatenate(name string, sources []*Field) (*Field, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no source fields", ErrArgument)
	}
	var merged []*Field
	var fieldNumbers, valueNumbers []int
	for _, src := range sources {
		if err := m.checkNumericSource(src); err != nil {
			return nil, err
		}
		number := slices.Index(merged, src)
		if number < 0 {
			number = len(merged)
			merged = append(merged, src)
		}
		for j, end := 0, src.componentCount; j < end; j++ {
			fieldNumbers = append(fieldNumbers, number)
			valueNumbers = append(valueNumbers, j)
		}
	}
	return m.createValidComposite(KindConcatenate, name, len(fieldNumbers), merged, nil, fieldNumbers, valueNumbers)
}

// CreateConstant creates a field with the given constant components.
func (m *Module) CreateConstant(name string, values []float64) (*Field, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: constant needs at least one value", ErrArgument)
	}
	fieldNumbers := make([]int, len(values))
	valueNumbers := make([]int, len(values))
	for i := range values {
		fieldNumbers[i] = -1
		valueNumbers[i] = i
	}
	return m.createValidComposite(KindConstant, name, len(values), nil, values, fieldNumbers, valueNumbers)
}

func (m *Module) createValidComposite(variant Kind, name string, components int, sources []*Field, values []float64, sourceFieldNumbers, sourceValueNumbers []int) (*Field, error) {
	if err := m.validateComposite(components, sources, values, sourceFieldNumbers, sourceValueNumbers); err != nil {
		return nil, err
	}
	return m.createComposite(variant, name, components, sources, values, sourceFieldNumbers, sourceValueNumbers)
}

func (m *Module) checkNumericSource(src *Field) error {
	if err := m.checkSource(src, "source"); err != nil {
		return err
	}
	if !src.IsNumerical() {
		return fmt.Errorf("%w: source field %q is not numerical", ErrArgument, src.name)
	}
	return nil
}
