package registry

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/vk/fieldengine/internal/field"
)

// Module is the interface that all operator modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// BuildFunc creates the field described by a build context.
type BuildFunc func(bc *BuildContext) (*field.Field, error)

// RegisteredOperator describes how to build fields of one type.
type RegisteredOperator struct {
	Description string
	// Arguments lists every argument the type accepts.
	Arguments []string
	// Required lists the arguments that must be present.
	Required []string
	Build    BuildFunc
}

// CommonArguments are accepted by every field type.
var CommonArguments = []string{"coordinate_system"}

// Registry holds the registered operators of a single application instance.
type Registry struct {
	operators map[string]*RegisteredOperator
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		operators: make(map[string]*RegisteredOperator),
	}
}

// RegisterOperator registers the builder of a field type. Registering a type
// twice, or requiring an argument that is not accepted, is a programming
// error and panics.
func (r *Registry) RegisterOperator(typeName string, op *RegisteredOperator) {
	if _, exists := r.operators[typeName]; exists {
		panic(fmt.Sprintf("operator with type '%s' already registered", typeName))
	}
	if op == nil || op.Build == nil {
		panic(fmt.Sprintf("operator '%s' has no build function", typeName))
	}
	for _, name := range op.Required {
		if !slices.Contains(op.Arguments, name) {
			panic(fmt.Sprintf("operator '%s' requires undeclared argument '%s'", typeName, name))
		}
	}
	slog.Debug("Registering operator.", "type", typeName)
	r.operators[typeName] = op
}

// Lookup returns the operator registered for the type.
func (r *Registry) Lookup(typeName string) (*RegisteredOperator, bool) {
	op, ok := r.operators[typeName]
	return op, ok
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.operators))
	for name := range r.operators {
		types = append(types, name)
	}
	slices.Sort(types)
	return types
}

// accepts reports whether the operator takes the named argument.
func (op *RegisteredOperator) accepts(name string) bool {
	return slices.Contains(op.Arguments, name) || slices.Contains(CommonArguments, name)
}
