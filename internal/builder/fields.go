package builder

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/fieldengine/internal/config"
	"github.com/vk/fieldengine/internal/ctxlog"
	"github.com/vk/fieldengine/internal/field"
	"github.com/vk/fieldengine/internal/fieldref"
	"github.com/vk/fieldengine/internal/registry"
)

// createFields creates the model's fields in the given order. A failed field
// stops construction since later fields may depend on it.
func (b *DefaultBuilder) createFields(ctx context.Context, module *field.Module, model *config.Model, conv config.Converter, order []string) error {
	logger := ctxlog.FromContext(ctx)
	tokens := make(map[string][]string, len(order))

	for _, name := range order {
		def := model.FindField(name)
		op, ok := b.registry.Lookup(def.Type)
		if !ok {
			return fmt.Errorf("%s: field %q: unknown type %q", def.DefRange, def.Name, def.Type)
		}

		evalCtx, err := fieldEvalContext(conv, tokens)
		if err != nil {
			return err
		}
		bc := &registry.BuildContext{
			Ctx:    ctx,
			Module: module,
			Name:   def.Name,
			Args:   registry.NewArguments(ctx, def.Arguments, conv, evalCtx),
		}
		f, err := op.Build(bc)
		if err != nil {
			return fmt.Errorf("%s: field %q: %w", def.DefRange, def.Name, err)
		}
		// The module owns managed fields; drop the creation reference.
		f.SetManaged(true)
		if err := f.Release(); err != nil {
			return fmt.Errorf("%s: field %q: %w", def.DefRange, def.Name, err)
		}

		if bc.Args.Has("coordinate_system") {
			if err := applyCoordinateSystem(f, bc.Args); err != nil {
				return fmt.Errorf("%s: field %q: %w", def.DefRange, def.Name, err)
			}
		}

		tokens[def.Name] = componentTokens(f)
		logger.Debug("Field created.", "field", f.Name(), "type", def.Type, "components", f.ComponentCount())
	}
	return nil
}

// fieldEvalContext exposes each created field as a list of its component
// references, so `field.coordinates` evaluates to
// ["coordinates[0]", "coordinates[1]", ...].
func fieldEvalContext(conv config.Converter, tokens map[string][]string) (*hcl.EvalContext, error) {
	val := cty.MapValEmpty(cty.List(cty.String))
	if len(tokens) > 0 {
		var err error
		val, err = conv.ToCtyValue(tokens)
		if err != nil {
			return nil, fmt.Errorf("building field variables: %w", err)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{fieldVariable: val},
	}, nil
}

func componentTokens(f *field.Field) []string {
	tokens := make([]string, f.ComponentCount())
	for i := range tokens {
		tokens[i] = fieldref.Component(f.Name(), i).String()
	}
	return tokens
}

func applyCoordinateSystem(f *field.Field, args *registry.Arguments) error {
	name, err := args.String("coordinate_system")
	if err != nil {
		return err
	}
	cs, err := field.ParseCoordinateSystem(name)
	if err != nil {
		return err
	}
	return f.SetCoordinateSystem(cs)
}
