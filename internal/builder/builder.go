package builder

import (
	"context"
	"fmt"

	"github.com/vk/fieldengine/internal/config"
	"github.com/vk/fieldengine/internal/ctxlog"
	"github.com/vk/fieldengine/internal/field"
	"github.com/vk/fieldengine/internal/registry"
)

// Builder transforms a configuration model into a field module.
//
// # Error Conditions
//
// Build returns an error when:
//   - The mesh is inconsistent (duplicate identifiers, unknown nodes, bad shapes)
//   - A field has an unknown type or arguments its type does not accept
//   - Field references form a cycle or name an undefined field
//   - An operator rejects its arguments
//   - A stored value does not fit the field it is assigned to
type Builder interface {
	Build(ctx context.Context, model *config.Model, conv config.Converter) (*field.Module, error)
}

// DefaultBuilder builds modules with the operators of a registry.
type DefaultBuilder struct {
	registry *registry.Registry
}

// New creates a builder using the operators registered in r.
func New(r *registry.Registry) *DefaultBuilder {
	return &DefaultBuilder{registry: r}
}

// Build implements the Builder interface.
func (b *DefaultBuilder) Build(ctx context.Context, model *config.Model, conv config.Converter) (*field.Module, error) {
	logger := ctxlog.FromContext(ctx).With("region", model.Region)
	logger.Debug("Builder started.",
		"nodes", len(model.Nodes),
		"elements", len(model.Elements),
		"fields", len(model.Fields),
	)

	if err := b.registry.ValidateModel(ctx, model); err != nil {
		return nil, err
	}

	region, err := buildRegion(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("building mesh: %w", err)
	}

	order, err := fieldOrder(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("ordering fields: %w", err)
	}

	module, err := field.NewModule(ctx, region)
	if err != nil {
		return nil, err
	}
	if err := b.createFields(ctx, module, model, conv, order); err != nil {
		return nil, err
	}
	if err := assignStoredValues(ctx, module, model); err != nil {
		return nil, fmt.Errorf("assigning stored values: %w", err)
	}

	logger.Info("Field module built.", "fields", len(module.Fields()))
	return module, nil
}
