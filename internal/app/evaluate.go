package app

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vk/fieldengine/internal/field"
	"github.com/vk/fieldengine/internal/fieldref"
	"github.com/vk/fieldengine/internal/mesh"
)

// Result is the value of one field reference at the configured location.
type Result struct {
	Field      string    `json:"field" yaml:"field"`
	Defined    bool      `json:"defined" yaml:"defined"`
	Values     []float64 `json:"values,omitempty" yaml:"values,omitempty"`
	Text       string    `json:"text,omitempty" yaml:"text,omitempty"`
	Element    int       `json:"element,omitempty" yaml:"element,omitempty"`
	Xi         []float64 `json:"xi,omitempty" yaml:"xi,omitempty"`
	Derivative []float64 `json:"derivative,omitempty" yaml:"derivative,omitempty"`
}

// Evaluate evaluates the configured fields at the configured location. A
// field that is not defined there gives a result with Defined unset.
func (a *App) Evaluate() ([]Result, error) {
	refs, err := a.fieldRefs()
	if err != nil {
		return nil, err
	}

	c := a.module.CreateCache()
	defer c.Release()
	element, err := a.locate(c)
	if err != nil {
		return nil, fmt.Errorf("setting location: %w", err)
	}
	d, err := a.derivative(element)
	if err != nil {
		return nil, fmt.Errorf("selecting derivative: %w", err)
	}
	a.logger.Debug("Evaluating fields.", "count", len(refs), "location", c.Location().Kind().String())

	results := make([]Result, 0, len(refs))
	for _, ref := range refs {
		f := a.module.FindFieldByName(ref.Name)
		if f == nil {
			return nil, fmt.Errorf("unknown field %q", ref.Name)
		}
		r, err := evaluateRef(c, f, ref, d)
		if err != nil {
			return nil, fmt.Errorf("evaluating %q: %w", ref, err)
		}
		results = append(results, r)
	}
	return results, nil
}

func (a *App) fieldRefs() ([]fieldref.Ref, error) {
	if len(a.config.Fields) > 0 {
		return fieldref.ParseAll(a.config.Fields)
	}
	fields := a.module.Fields()
	refs := make([]fieldref.Ref, len(fields))
	for i, f := range fields {
		refs[i] = fieldref.Whole(f.Name())
	}
	return refs, nil
}

// locate moves the cache to the configured location and returns the element
// it is in, if any.
func (a *App) locate(c *field.Cache) (*mesh.Element, error) {
	loc := a.config.Location
	region := a.module.Region()
	c.SetTime(loc.Time)

	var element *mesh.Element
	if loc.Element > 0 {
		element = findElement(region, loc.Element, len(loc.Xi))
		if element == nil {
			return nil, fmt.Errorf("unknown element %d", loc.Element)
		}
	}

	switch {
	case loc.Node > 0:
		node := region.FindNodeByID(loc.Node)
		if node == nil {
			return nil, fmt.Errorf("unknown node %d", loc.Node)
		}
		return element, c.SetNode(node, element)
	case element != nil && len(loc.Xi) > 0:
		return element, c.SetMeshLocation(element, loc.Xi, nil)
	case element != nil:
		return element, c.SetElement(element)
	}
	return nil, nil
}

// findElement looks the element up in the mesh matching the number of chart
// coordinates, or in the highest dimensional mesh holding it.
func findElement(region *mesh.Region, id, dimension int) *mesh.Element {
	if dimension > 0 {
		m := region.Mesh(dimension)
		if m == nil {
			return nil
		}
		return m.FindElementByID(id)
	}
	for d := 3; d >= 1; d-- {
		if e := region.Mesh(d).FindElementByID(id); e != nil {
			return e
		}
	}
	return nil
}

func (a *App) derivative(element *mesh.Element) (*field.Derivative, error) {
	loc := a.config.Location
	switch {
	case loc.DerivativeOrder > 0:
		if element == nil {
			return nil, errors.New("mesh derivatives need an element")
		}
		return a.module.MeshDerivative(element.Mesh(), loc.DerivativeOrder)
	case loc.Parameters != "":
		f := a.module.FindFieldByName(loc.Parameters)
		if f == nil {
			return nil, fmt.Errorf("unknown field %q", loc.Parameters)
		}
		return a.module.ParameterDerivative(f)
	}
	return nil, nil
}

func evaluateRef(c *field.Cache, f *field.Field, ref fieldref.Ref, d *field.Derivative) (Result, error) {
	r := Result{Field: ref.String()}
	if ref.HasComponent() && (!f.IsNumerical() || ref.Component >= f.ComponentCount()) {
		return r, fmt.Errorf("field %q has no component %d", f.Name(), ref.Component)
	}
	if !f.IsDefinedAtLocation(c) {
		return r, nil
	}

	switch f.ValueType() {
	case field.ValueTypeString:
		text, err := f.EvaluateString(c)
		if err != nil {
			return r, err
		}
		r.Text = text
	case field.ValueTypeMeshLocation:
		element, xi, err := f.EvaluateMeshLocation(c)
		if err != nil {
			return r, err
		}
		r.Element = element.ID()
		r.Xi = xi
	default:
		values := make([]float64, f.ComponentCount())
		if err := f.EvaluateReal(c, values); err != nil {
			return r, err
		}
		r.Values = selectComponent(values, ref)
		if d != nil {
			dvc, err := f.EvaluateDerivative(c, d)
			switch {
			case errors.Is(err, field.ErrNotDefined):
				// values without a derivative
			case err != nil:
				return r, err
			case ref.HasComponent():
				r.Derivative = slices.Clone(dvc.Component(ref.Component))
			default:
				r.Derivative = slices.Clone(dvc.Values)
			}
		}
	}
	r.Defined = true
	return r, nil
}

func selectComponent(values []float64, ref fieldref.Ref) []float64 {
	if ref.HasComponent() {
		return values[ref.Component : ref.Component+1]
	}
	return values
}
