package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/fieldengine/internal/config"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"mesh.hcl": `
region = "square"

node "1" {
  values = { coordinates = [0, 0], temperature = [1] }
}
node "2" {
  values         = { coordinates = [1, 0] }
  mesh_locations = { host = { element = 1, xi = [0.5, 0.25] } }
}
element "1" {
  shape = "square"
  nodes = [1, 2, 3, 4]
}
nodeset "boundary" {
  nodes = [1, 2]
}
`,
		"fields/fields.hcl": `
field "coordinates" {
  type       = "node_value"
  components = 2
}
field "x" {
  type   = "component"
  source = field.coordinates[0]
}
`,
		"notes.txt": "ignored",
	})

	model, conv, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, conv)

	assert.Equal(t, "square", model.Region)
	require.Len(t, model.Nodes, 2)
	assert.Equal(t, 1, model.Nodes[0].ID)
	assert.Equal(t, map[string][]float64{"coordinates": {0, 0}, "temperature": {1}}, model.Nodes[0].Values)
	assert.Nil(t, model.Nodes[0].MeshLocations)
	assert.Equal(t, map[string]config.MeshLocation{"host": {Element: 1, Xi: []float64{0.5, 0.25}}}, model.Nodes[1].MeshLocations)

	require.Len(t, model.Elements, 1)
	assert.Equal(t, &config.Element{ID: 1, Shape: "square", Nodes: []int{1, 2, 3, 4}}, model.Elements[0])
	assert.Equal(t, []*config.Nodeset{{Name: "boundary", Nodes: []int{1, 2}}}, model.Nodesets)

	require.Len(t, model.Fields, 2)
	x := model.FindField("x")
	require.NotNil(t, x)
	assert.Equal(t, "component", x.Type)
	require.Contains(t, x.Arguments, "source")
	assert.NotContains(t, x.Arguments, "type")
	assert.Len(t, x.Arguments["source"].Variables(), 1)
	assert.Nil(t, model.FindField("missing"))
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		errText string
	}{
		{name: "syntax error", content: `field "a" {`, errText: "failed to parse"},
		{name: "unknown block", content: `runner "a" {}`, errText: "failed to decode"},
		{name: "missing type", content: `field "a" {}`, errText: "failed to decode"},
		{name: "bad node id", content: `node "x" {}`, errText: "positive integer"},
		{name: "bad element id", content: "element \"0\" {\n shape = \"line\"\n nodes = [1, 2]\n}", errText: "positive integer"},
		{name: "duplicate field", content: "field \"a\" { type = \"time_value\" }\nfield \"a\" { type = \"time_value\" }", errText: `duplicate field "a"`},
		{name: "nested block in field", content: "field \"a\" {\n type = \"constant\"\n inner {}\n}", errText: "field \"a\""},
		{name: "bad values type", content: `node "1" { values = { g = "text" } }`, errText: "node 1 values"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeFiles(t, map[string]string{"main.hcl": tc.content})
			_, _, err := NewLoader().Load(context.Background(), dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errText)
		})
	}
}

func TestLoadPaths(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.hcl":   `field "a" { type = "time_value" }`,
		"b.hcl":   `field "b" { type = "time_value" }`,
		"doc.txt": "",
	})

	model, _, err := NewLoader().Load(context.Background(), filepath.Join(dir, "a.hcl"), dir)
	require.NoError(t, err)
	assert.Len(t, model.Fields, 2, "a file listed twice loads once")
	assert.Equal(t, DefaultRegionName, model.Region)

	_, _, err = NewLoader().Load(context.Background(), filepath.Join(dir, "doc.txt"))
	assert.ErrorContains(t, err, ".hcl extension")
	_, _, err = NewLoader().Load(context.Background(), filepath.Join(dir, "missing"))
	assert.ErrorContains(t, err, "error accessing model path")
	_, _, err = NewLoader().Load(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "no .hcl model files")
}

func TestConverter(t *testing.T) {
	ctx := context.Background()
	conv := NewConverter()

	val, err := conv.ToCtyValue(map[string][]string{"g": {"g[0]", "g[1]"}})
	require.NoError(t, err)
	evalCtx := &hcl.EvalContext{Variables: map[string]cty.Value{"field": val}}

	expr := parseExpr(t, `field.g[1]`)
	got, err := conv.Value(ctx, expr, evalCtx)
	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("g[1]"), got)

	var numbers []float64
	require.NoError(t, conv.Decode(ctx, cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.StringVal("2.5")}), &numbers))
	assert.Equal(t, []float64{1, 2.5}, numbers)

	var n int
	assert.Error(t, conv.Decode(ctx, cty.StringVal("x"), &n))
	assert.Error(t, conv.Decode(ctx, cty.NullVal(cty.Number), &n))
	assert.Error(t, conv.Decode(ctx, cty.NumberIntVal(1), n))

	_, err = conv.Value(ctx, parseExpr(t, `field.missing`), evalCtx)
	assert.Error(t, err)

	nilVal, err := conv.ToCtyValue(nil)
	require.NoError(t, err)
	assert.Equal(t, cty.NilVal, nilVal)
}
