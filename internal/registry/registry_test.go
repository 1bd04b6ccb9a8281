package registry

import (
	"context"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/fieldengine/internal/config"
	"github.com/vk/fieldengine/internal/field"
	"github.com/vk/fieldengine/internal/fieldref"
	hclconv "github.com/vk/fieldengine/internal/hcl"
	"github.com/vk/fieldengine/internal/mesh"
)

func noopBuild(*BuildContext) (*field.Field, error) { return nil, nil }

func parseExpr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.Pos{Line: 1, Column: 1})
	require.False(t, diags.HasErrors(), diags.Error())
	return expr
}

func exprs(t *testing.T, args map[string]string) map[string]hcl.Expression {
	t.Helper()
	out := make(map[string]hcl.Expression, len(args))
	for name, src := range args {
		out[name] = parseExpr(t, src)
	}
	return out
}

func TestRegisterOperator(t *testing.T) {
	r := New()
	r.RegisterOperator("b", &RegisteredOperator{Build: noopBuild})
	r.RegisterOperator("a", &RegisteredOperator{Arguments: []string{"x"}, Required: []string{"x"}, Build: noopBuild})
	assert.Equal(t, []string{"a", "b"}, r.Types())

	op, ok := r.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, op.Required)
	_, ok = r.Lookup("c")
	assert.False(t, ok)

	assert.Panics(t, func() { r.RegisterOperator("a", &RegisteredOperator{Build: noopBuild}) })
	assert.Panics(t, func() { r.RegisterOperator("c", &RegisteredOperator{}) })
	assert.Panics(t, func() {
		r.RegisterOperator("d", &RegisteredOperator{Required: []string{"y"}, Build: noopBuild})
	})
}

func TestValidateModel(t *testing.T) {
	r := New()
	r.RegisterOperator("component", &RegisteredOperator{
		Arguments: []string{"source"},
		Required:  []string{"source"},
		Build:     noopBuild,
	})

	valid := &config.Model{Fields: []*config.FieldDefinition{
		{Name: "x", Type: "component", Arguments: exprs(t, map[string]string{"source": "field.g[0]", "coordinate_system": `"rectangular_cartesian"`})},
	}}
	assert.NoError(t, r.ValidateModel(context.Background(), valid))

	invalid := &config.Model{Fields: []*config.FieldDefinition{
		{Name: "a", Type: "mystery"},
		{Name: "b", Type: "component", Arguments: exprs(t, map[string]string{"sauce": "1"})},
	}}
	err := r.ValidateModel(context.Background(), invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "a": unknown type "mystery"`)
	assert.Contains(t, err.Error(), `type "component" does not accept argument "sauce"`)
	assert.Contains(t, err.Error(), `field "b": missing required argument "source"`)
}

func TestArguments(t *testing.T) {
	conv := hclconv.NewConverter()
	fields, err := conv.ToCtyValue(map[string][]string{
		"g": {"g[0]", "g[1]"},
		"h": {"h[0]"},
	})
	require.NoError(t, err)
	evalCtx := &hcl.EvalContext{Variables: map[string]cty.Value{"field": fields}}
	args := NewArguments(context.Background(), exprs(t, map[string]string{
		"components": "3",
		"name":       `"boundary"`,
		"values":     "[1, 2.5]",
		"names":      `["x", "y"]`,
		"sources":    "[field.g, 2.5, [field.h[0]]]",
		"bad":        "[true]",
		"unknown":    "field.missing",
	}), conv, evalCtx)

	assert.True(t, args.Has("components"))
	assert.False(t, args.Has("nothing"))

	n, err := args.Int("components")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	s, err := args.String("name")
	require.NoError(t, err)
	assert.Equal(t, "boundary", s)
	floats, err := args.Floats("values")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5}, floats)
	names, err := args.Strings("names")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, names)

	items, err := args.Items("sources")
	require.NoError(t, err)
	assert.Equal(t, []SourceItem{
		{Ref: fieldref.Component("g", 0)},
		{Ref: fieldref.Component("g", 1)},
		{Constant: 2.5, IsConstant: true},
		{Ref: fieldref.Component("h", 0)},
	}, items)

	_, err = args.Refs("sources")
	assert.ErrorContains(t, err, "item 2 is a constant")
	_, err = args.Items("bad")
	assert.ErrorContains(t, err, "unsupported source item")
	_, err = args.Value("unknown")
	assert.ErrorContains(t, err, `argument "unknown"`)
	_, err = args.Int("name")
	assert.Error(t, err)
	_, err = args.Value("nothing")
	assert.ErrorContains(t, err, `missing argument "nothing"`)
}

func TestBuildContext(t *testing.T) {
	region := mesh.NewRegion("test")
	_, err := region.CreateNodesetGroup("boundary")
	require.NoError(t, err)
	m, err := field.NewModule(context.Background(), region)
	require.NoError(t, err)
	_, err = m.CreateNodeValue("g", 2)
	require.NoError(t, err)
	_, err = m.CreateNodeValue("h", 1)
	require.NoError(t, err)

	conv := hclconv.NewConverter()
	fields, err := conv.ToCtyValue(map[string][]string{"g": {"g[0]", "g[1]"}, "h": {"h[0]"}})
	require.NoError(t, err)
	evalCtx := &hcl.EvalContext{Variables: map[string]cty.Value{"field": fields}}
	bc := &BuildContext{
		Ctx:    context.Background(),
		Module: m,
		Name:   "new",
		Args: NewArguments(context.Background(), exprs(t, map[string]string{
			"whole":     "field.g",
			"single":    "field.h[0]",
			"partial":   "field.g[1]",
			"reordered": "[field.g[1], field.g[0]]",
			"mixed":     "[field.g[0], field.h[0]]",
			"nodeset":   `"boundary"`,
			"missing":   `"interior"`,
			"master":    `"nodes"`,
			"mesh":      "2",
			"nomesh":    "4",
			"concat":    "[field.g, field.h, field.g]",
		}), conv, evalCtx),
	}

	g, err := bc.SourceField("whole")
	require.NoError(t, err)
	assert.Equal(t, "g", g.Name())
	h, err := bc.SourceField("single")
	require.NoError(t, err)
	assert.Equal(t, "h", h.Name())
	for _, arg := range []string{"partial", "reordered", "mixed"} {
		_, err := bc.SourceField(arg)
		assert.ErrorContains(t, err, "every component", arg)
	}

	sources, err := bc.SourceFields("concat")
	require.NoError(t, err)
	require.Len(t, sources, 3)
	assert.Equal(t, []string{"g", "h", "g"}, []string{sources[0].Name(), sources[1].Name(), sources[2].Name()})
	_, err = bc.SourceFields("reordered")
	assert.ErrorContains(t, err, "every component")

	_, err = bc.Field(fieldref.Component("g", 2))
	assert.ErrorContains(t, err, "no component 2")
	_, err = bc.Field(fieldref.Whole("zzz"))
	assert.ErrorContains(t, err, "unknown field")

	ns, err := bc.Nodeset("nodeset")
	require.NoError(t, err)
	assert.Equal(t, "boundary", ns.Name())
	master, err := bc.Nodeset("master")
	require.NoError(t, err)
	assert.Same(t, region.Nodes(), master)
	_, err = bc.Nodeset("missing")
	assert.ErrorContains(t, err, "unknown nodeset")

	msh, err := bc.Mesh("mesh")
	require.NoError(t, err)
	assert.Equal(t, 2, msh.Dimension())
	_, err = bc.Mesh("nomesh")
	assert.ErrorContains(t, err, "no 4-D mesh")
}
