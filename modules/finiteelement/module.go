package finiteelement

import (
	"fmt"

	"github.com/vk/fieldengine/internal/field"
	"github.com/vk/fieldengine/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the field types whose values are stored at mesh nodes.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterOperator("node_value", &registry.RegisteredOperator{
		Description: "Values stored at nodes and interpolated over elements.",
		Arguments:   []string{"components", "component_names"},
		Required:    []string{"components"},
		Build:       buildNodeValue,
	})
	r.RegisterOperator("stored_mesh_location", &registry.RegisteredOperator{
		Description: "An element and chart coordinates stored at nodes.",
		Arguments:   []string{"mesh"},
		Required:    []string{"mesh"},
		Build:       buildStoredMeshLocation,
	})
}

func buildNodeValue(bc *registry.BuildContext) (*field.Field, error) {
	components, err := bc.Args.Int("components")
	if err != nil {
		return nil, err
	}
	var names []string
	if bc.Args.Has("component_names") {
		if names, err = bc.Args.Strings("component_names"); err != nil {
			return nil, err
		}
		if len(names) != components {
			return nil, fmt.Errorf("argument %q: %d names for %d components", "component_names", len(names), components)
		}
	}

	f, err := bc.Module.CreateNodeValue(bc.Name, components)
	if err != nil {
		return nil, err
	}
	for i, name := range names {
		if err := f.SetComponentName(i, name); err != nil {
			_ = f.Release()
			return nil, err
		}
	}
	return f, nil
}

func buildStoredMeshLocation(bc *registry.BuildContext) (*field.Field, error) {
	host, err := bc.Mesh("mesh")
	if err != nil {
		return nil, err
	}
	return bc.Module.CreateStoredMeshLocation(bc.Name, host)
}
