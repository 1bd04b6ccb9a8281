package nodesetops

import (
	"github.com/vk/fieldengine/internal/field"
	"github.com/vk/fieldengine/internal/mesh"
	"github.com/vk/fieldengine/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

type reduction struct {
	typeName    string
	description string
	create      func(m *field.Module, name string, source *field.Field, ns *mesh.Nodeset) (*field.Field, error)
}

var reductions = []reduction{
	{"nodeset_sum", "Sum of the source over a nodeset.", (*field.Module).CreateNodesetSum},
	{"nodeset_mean", "Mean of the source over a nodeset.", (*field.Module).CreateNodesetMean},
	{"nodeset_sum_squares", "Sum of squares of the source over a nodeset.", (*field.Module).CreateNodesetSumSquares},
	{"nodeset_mean_squares", "Mean of squares of the source over a nodeset.", (*field.Module).CreateNodesetMeanSquares},
	{"nodeset_minimum", "Componentwise minimum of the source over a nodeset.", (*field.Module).CreateNodesetMinimum},
	{"nodeset_maximum", "Componentwise maximum of the source over a nodeset.", (*field.Module).CreateNodesetMaximum},
}

// Register registers the nodeset reduction field types.
func (m *Module) Register(r *registry.Registry) {
	for _, red := range reductions {
		r.RegisterOperator(red.typeName, &registry.RegisteredOperator{
			Description: red.description,
			Arguments:   []string{"source", "nodeset", "element_map"},
			Required:    []string{"source", "nodeset"},
			Build:       red.build,
		})
	}
}

func (red reduction) build(bc *registry.BuildContext) (*field.Field, error) {
	source, err := bc.SourceField("source")
	if err != nil {
		return nil, err
	}
	ns, err := bc.Nodeset("nodeset")
	if err != nil {
		return nil, err
	}
	f, err := red.create(bc.Module, bc.Name, source, ns)
	if err != nil {
		return nil, err
	}
	if !bc.Args.Has("element_map") {
		return f, nil
	}

	elementMap, err := bc.SourceField("element_map")
	if err == nil {
		err = f.SetElementMapField(elementMap)
	}
	if err != nil {
		_ = f.Release()
		return nil, err
	}
	return f, nil
}
