package registry

import (
	"context"
	"fmt"
	"slices"

	"github.com/hashicorp/go-multierror"

	"github.com/vk/fieldengine/internal/config"
	"github.com/vk/fieldengine/internal/ctxlog"
)

// ValidateModel checks every field definition against the registry: the type
// must be registered, every argument accepted, and every required argument
// present. All problems are reported together.
func (r *Registry) ValidateModel(ctx context.Context, model *config.Model) error {
	logger := ctxlog.FromContext(ctx)
	var errs *multierror.Error

	for _, def := range model.Fields {
		op, ok := r.Lookup(def.Type)
		if !ok {
			errs = multierror.Append(errs, fmt.Errorf("field %q: unknown type %q", def.Name, def.Type))
			continue
		}

		names := make([]string, 0, len(def.Arguments))
		for name := range def.Arguments {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			if !op.accepts(name) {
				errs = multierror.Append(errs, fmt.Errorf("field %q: type %q does not accept argument %q", def.Name, def.Type, name))
			}
		}
		for _, name := range op.Required {
			if _, ok := def.Arguments[name]; !ok {
				errs = multierror.Append(errs, fmt.Errorf("field %q: missing required argument %q", def.Name, name))
			}
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		logger.Debug("Model validation failed.", "problems", len(errs.Errors))
		return fmt.Errorf("model validation failed: %w", err)
	}
	logger.Debug("Model validation passed.", "fields", len(model.Fields))
	return nil
}
