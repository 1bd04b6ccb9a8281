package registry

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/fieldengine/internal/config"
	"github.com/vk/fieldengine/internal/fieldref"
)

// Arguments gives typed access to the unevaluated arguments of a field
// definition. Expressions are evaluated in a context where `field.<name>`
// is the list of component references of every field created so far.
type Arguments struct {
	ctx     context.Context
	exprs   map[string]hcl.Expression
	conv    config.Converter
	evalCtx *hcl.EvalContext
}

// NewArguments binds argument expressions to a converter and evaluation
// context.
func NewArguments(ctx context.Context, exprs map[string]hcl.Expression, conv config.Converter, evalCtx *hcl.EvalContext) *Arguments {
	return &Arguments{ctx: ctx, exprs: exprs, conv: conv, evalCtx: evalCtx}
}

// Has reports whether the argument is present.
func (a *Arguments) Has(name string) bool {
	_, ok := a.exprs[name]
	return ok
}

// Value evaluates the argument.
func (a *Arguments) Value(name string) (cty.Value, error) {
	expr, ok := a.exprs[name]
	if !ok {
		return cty.NilVal, fmt.Errorf("missing argument %q", name)
	}
	val, err := a.conv.Value(a.ctx, expr, a.evalCtx)
	if err != nil {
		return cty.NilVal, fmt.Errorf("argument %q: %w", name, err)
	}
	return val, nil
}

// Decode evaluates the argument into the Go value target points to.
func (a *Arguments) Decode(name string, target any) error {
	val, err := a.Value(name)
	if err != nil {
		return err
	}
	if err := a.conv.Decode(a.ctx, val, target); err != nil {
		return fmt.Errorf("argument %q: %w", name, err)
	}
	return nil
}

func (a *Arguments) Int(name string) (int, error) {
	var v int
	err := a.Decode(name, &v)
	return v, err
}

func (a *Arguments) String(name string) (string, error) {
	var v string
	err := a.Decode(name, &v)
	return v, err
}

func (a *Arguments) Floats(name string) ([]float64, error) {
	var v []float64
	err := a.Decode(name, &v)
	return v, err
}

func (a *Arguments) Strings(name string) ([]string, error) {
	var v []string
	err := a.Decode(name, &v)
	return v, err
}

// SourceItem is one entry of a source list: a field component or a constant.
type SourceItem struct {
	Ref        fieldref.Ref
	Constant   float64
	IsConstant bool
}

// Items evaluates a source list argument. Nested lists are flattened, so
// `[field.a, 2, field.b[1]]` lists every component of a, the constant 2 and
// component 1 of b.
func (a *Arguments) Items(name string) ([]SourceItem, error) {
	val, err := a.Value(name)
	if err != nil {
		return nil, err
	}
	var items []SourceItem
	if err := flattenItems(val, &items); err != nil {
		return nil, fmt.Errorf("argument %q: %w", name, err)
	}
	return items, nil
}

// Refs evaluates an argument that may only list field components.
func (a *Arguments) Refs(name string) ([]fieldref.Ref, error) {
	items, err := a.Items(name)
	if err != nil {
		return nil, err
	}
	refs := make([]fieldref.Ref, len(items))
	for i, item := range items {
		if item.IsConstant {
			return nil, fmt.Errorf("argument %q: item %d is a constant, expected a field reference", name, i)
		}
		refs[i] = item.Ref
	}
	return refs, nil
}

func flattenItems(val cty.Value, items *[]SourceItem) error {
	if val.IsNull() {
		return fmt.Errorf("null source item")
	}
	ty := val.Type()
	switch {
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			if err := flattenItems(elem, items); err != nil {
				return err
			}
		}
		return nil
	case ty == cty.Number:
		f, _ := val.AsBigFloat().Float64()
		*items = append(*items, SourceItem{Constant: f, IsConstant: true})
		return nil
	case ty == cty.String:
		ref, err := fieldref.Parse(val.AsString())
		if err != nil {
			return err
		}
		*items = append(*items, SourceItem{Ref: ref})
		return nil
	}
	return fmt.Errorf("unsupported source item of type %s", ty.FriendlyName())
}
