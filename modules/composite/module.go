package composite

import (
	"fmt"
	"slices"

	"github.com/vk/fieldengine/internal/field"
	"github.com/vk/fieldengine/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the field types that rearrange source components.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterOperator("composite", &registry.RegisteredOperator{
		Description: "Components taken from source fields and constants.",
		Arguments:   []string{"sources"},
		Required:    []string{"sources"},
		Build:       buildComposite,
	})
	r.RegisterOperator("identity", &registry.RegisteredOperator{
		Description: "Every component of one source field.",
		Arguments:   []string{"source"},
		Required:    []string{"source"},
		Build: func(bc *registry.BuildContext) (*field.Field, error) {
			source, err := bc.SourceField("source")
			if err != nil {
				return nil, err
			}
			return bc.Module.CreateIdentity(bc.Name, source)
		},
	})
	r.RegisterOperator("component", &registry.RegisteredOperator{
		Description: "Selected components of one source field.",
		Arguments:   []string{"source"},
		Required:    []string{"source"},
		Build:       buildComponent,
	})
	r.RegisterOperator("concatenate", &registry.RegisteredOperator{
		Description: "The components of several source fields in order.",
		Arguments:   []string{"sources"},
		Required:    []string{"sources"},
		Build: func(bc *registry.BuildContext) (*field.Field, error) {
			sources, err := bc.SourceFields("sources")
			if err != nil {
				return nil, err
			}
			return bc.Module.CreateConcatenate(bc.Name, sources)
		},
	})
}

// buildComposite maps each source item to one or more components. Fields are
// numbered by first use and constants in order of appearance.
func buildComposite(bc *registry.BuildContext) (*field.Field, error) {
	items, err := bc.Args.Items("sources")
	if err != nil {
		return nil, err
	}
	var (
		sources                    []*field.Field
		values                     []float64
		fieldNumbers, valueNumbers []int
	)
	for i, item := range items {
		if item.IsConstant {
			fieldNumbers = append(fieldNumbers, -1)
			valueNumbers = append(valueNumbers, len(values))
			values = append(values, item.Constant)
			continue
		}
		f, err := bc.Field(item.Ref)
		if err != nil {
			return nil, fmt.Errorf("argument %q item %d: %w", "sources", i, err)
		}
		number := slices.Index(sources, f)
		if number < 0 {
			number = len(sources)
			sources = append(sources, f)
		}
		if item.Ref.HasComponent() {
			fieldNumbers = append(fieldNumbers, number)
			valueNumbers = append(valueNumbers, item.Ref.Component)
			continue
		}
		for j, end := 0, f.ComponentCount(); j < end; j++ {
			fieldNumbers = append(fieldNumbers, number)
			valueNumbers = append(valueNumbers, j)
		}
	}
	return bc.Module.CreateComposite(bc.Name, len(fieldNumbers), sources, values, fieldNumbers, valueNumbers)
}

// buildComponent accepts one or more component references of a single field,
// such as `source = field.coordinates[0]` or
// `source = [field.coordinates[2], field.coordinates[0]]`.
func buildComponent(bc *registry.BuildContext) (*field.Field, error) {
	refs, err := bc.Args.Refs("source")
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("argument %q: no field referenced", "source")
	}
	source, err := bc.Field(refs[0])
	if err != nil {
		return nil, fmt.Errorf("argument %q: %w", "source", err)
	}
	var components []int
	for _, ref := range refs {
		if ref.Name != source.Name() {
			return nil, fmt.Errorf("argument %q: components of %q and %q cannot be mixed", "source", source.Name(), ref.Name)
		}
		if !ref.HasComponent() {
			for j, end := 0, source.ComponentCount(); j < end; j++ {
				components = append(components, j+1)
			}
			continue
		}
		if _, err := bc.Field(ref); err != nil {
			return nil, fmt.Errorf("argument %q: %w", "source", err)
		}
		components = append(components, ref.Component+1)
	}
	if len(components) == 1 {
		return bc.Module.CreateComponent(bc.Name, source, components[0])
	}
	return bc.Module.CreateComponentMultiple(bc.Name, source, components)
}
