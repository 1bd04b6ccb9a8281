package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific model loader.
type Loader interface {
	// Load reads every model file under the given paths, translates them into
	// the format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter is the interface for format-specific expression evaluation and
// type conversion. It is the bridge between field arguments in the model and
// the Go types operator builders consume.
type Converter interface {
	// Value evaluates an argument expression in evalCtx.
	Value(ctx context.Context, expr hcl.Expression, evalCtx *hcl.EvalContext) (cty.Value, error)

	// Decode converts val into the Go value target points to.
	Decode(ctx context.Context, val cty.Value, target any) error

	// ToCtyValue converts a native Go value into its equivalent cty.Value.
	ToCtyValue(v any) (cty.Value, error)
}
