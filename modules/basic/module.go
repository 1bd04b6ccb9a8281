package basic

import (
	"github.com/vk/fieldengine/internal/field"
	"github.com/vk/fieldengine/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the field types that need no source fields.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterOperator("constant", &registry.RegisteredOperator{
		Description: "Constant real components.",
		Arguments:   []string{"values"},
		Required:    []string{"values"},
		Build: func(bc *registry.BuildContext) (*field.Field, error) {
			values, err := bc.Args.Floats("values")
			if err != nil {
				return nil, err
			}
			return bc.Module.CreateConstant(bc.Name, values)
		},
	})
	r.RegisterOperator("string_constant", &registry.RegisteredOperator{
		Description: "A constant string.",
		Arguments:   []string{"value"},
		Required:    []string{"value"},
		Build: func(bc *registry.BuildContext) (*field.Field, error) {
			value, err := bc.Args.String("value")
			if err != nil {
				return nil, err
			}
			return bc.Module.CreateStringConstant(bc.Name, value)
		},
	})
	r.RegisterOperator("time_value", &registry.RegisteredOperator{
		Description: "The time of the evaluation location.",
		Build: func(bc *registry.BuildContext) (*field.Field, error) {
			return bc.Module.CreateTimeValue(bc.Name)
		},
	})
}
