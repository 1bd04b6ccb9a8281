package testutil

import "github.com/vk/fieldengine/internal/registry"

// SimpleModule is a test helper for easily creating a mock module that
// registers a single field type.
type SimpleModule struct {
	TypeName string
	Operator *registry.RegisteredOperator
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	if m.TypeName != "" && m.Operator != nil {
		r.RegisterOperator(m.TypeName, m.Operator)
	}
}
