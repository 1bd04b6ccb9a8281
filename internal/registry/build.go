package registry

import (
	"context"
	"fmt"

	"github.com/vk/fieldengine/internal/field"
	"github.com/vk/fieldengine/internal/fieldref"
	"github.com/vk/fieldengine/internal/mesh"
)

// BuildContext is handed to a BuildFunc to create one field.
type BuildContext struct {
	Ctx    context.Context
	Module *field.Module
	Name   string
	Args   *Arguments
}

// Field resolves a reference to a field created earlier.
func (bc *BuildContext) Field(ref fieldref.Ref) (*field.Field, error) {
	f := bc.Module.FindFieldByName(ref.Name)
	if f == nil {
		return nil, fmt.Errorf("unknown field %q", ref.Name)
	}
	if ref.HasComponent() && ref.Component >= f.ComponentCount() {
		return nil, fmt.Errorf("field %q has no component %d", ref.Name, ref.Component)
	}
	return f, nil
}

// SourceField resolves an argument that must name one whole field, such as
// `source = field.coordinates`.
func (bc *BuildContext) SourceField(arg string) (*field.Field, error) {
	refs, err := bc.Args.Refs(arg)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("argument %q: no field referenced", arg)
	}
	f, err := bc.Field(refs[0])
	if err != nil {
		return nil, fmt.Errorf("argument %q: %w", arg, err)
	}
	if len(refs) == 1 && !refs[0].HasComponent() {
		return f, nil
	}
	if len(refs) != f.ComponentCount() {
		return nil, fmt.Errorf("argument %q: must refer to every component of field %q", arg, f.Name())
	}
	for i, ref := range refs {
		if ref.Name != f.Name() || ref.Component != i {
			return nil, fmt.Errorf("argument %q: must refer to every component of field %q in order", arg, f.Name())
		}
	}
	return f, nil
}

// Nodeset resolves an argument naming a nodeset of the module's region.
func (bc *BuildContext) Nodeset(arg string) (*mesh.Nodeset, error) {
	name, err := bc.Args.String(arg)
	if err != nil {
		return nil, err
	}
	ns := bc.Module.Region().FindNodesetByName(name)
	if ns == nil {
		return nil, fmt.Errorf("argument %q: unknown nodeset %q", arg, name)
	}
	return ns, nil
}

// Mesh resolves an argument giving a mesh dimension.
func (bc *BuildContext) Mesh(arg string) (*mesh.Mesh, error) {
	dim, err := bc.Args.Int(arg)
	if err != nil {
		return nil, err
	}
	m := bc.Module.Region().Mesh(dim)
	if m == nil {
		return nil, fmt.Errorf("argument %q: no %d-D mesh", arg, dim)
	}
	return m, nil
}

// SourceFields resolves an argument listing whole fields, such as
// `sources = [field.a, field.b]`. Each field's components must appear
// together and in order.
func (bc *BuildContext) SourceFields(arg string) ([]*field.Field, error) {
	refs, err := bc.Args.Refs(arg)
	if err != nil {
		return nil, err
	}
	var fields []*field.Field
	for i := 0; i < len(refs); {
		f, err := bc.Field(refs[i])
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", arg, err)
		}
		if !refs[i].HasComponent() {
			fields = append(fields, f)
			i++
			continue
		}
		for c, end := 0, f.ComponentCount(); c < end; c++ {
			if i+c >= len(refs) || refs[i+c].Name != f.Name() || refs[i+c].Component != c {
				return nil, fmt.Errorf("argument %q: must refer to every component of field %q in order", arg, f.Name())
			}
		}
		fields = append(fields, f)
		i += f.ComponentCount()
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("argument %q: no field referenced", arg)
	}
	return fields, nil
}
