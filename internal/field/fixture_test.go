package field

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/vk/fieldengine/internal/mesh"
)

// fixture is a region with four nodes and one square element:
//
//	3 --- 4
//	|     |
//	1 --- 2
type fixture struct {
	region  *mesh.Region
	module  *Module
	nodes   []*mesh.Node
	element *mesh.Element
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	region := mesh.NewRegion("test")
	fx := &fixture{region: region}
	for id := 1; id <= 4; id++ {
		n, err := region.CreateNode(id)
		require.NoError(t, err)
		fx.nodes = append(fx.nodes, n)
	}
	e, err := region.CreateElement(1, mesh.ShapeSquare, []int{1, 2, 3, 4})
	require.NoError(t, err)
	fx.element = e
	fx.module, err = NewModule(context.Background(), region)
	require.NoError(t, err)
	return fx
}

// node returns the node with the 1-based identifier.
func (fx *fixture) node(id int) *mesh.Node {
	return fx.nodes[id-1]
}

// nodeValue creates a node_value field and stores values per node, keyed by
// node identifier.
func (fx *fixture) nodeValue(t *testing.T, name string, components int, values map[int][]float64) *Field {
	t.Helper()
	f, err := fx.module.CreateNodeValue(name, components)
	require.NoError(t, err)
	for id, v := range values {
		require.NoError(t, fx.region.Store().SetValues(name, fx.node(id), v))
	}
	return f
}

// nodeset creates a nodeset group holding the nodes with the given identifiers.
func (fx *fixture) nodeset(t *testing.T, name string, ids ...int) *mesh.Nodeset {
	t.Helper()
	ns, err := fx.region.CreateNodesetGroup(name)
	require.NoError(t, err)
	for _, id := range ids {
		require.NoError(t, ns.AddNode(fx.node(id)))
	}
	return ns
}

func evaluateReal(t *testing.T, f *Field, c *Cache) []float64 {
	t.Helper()
	out := make([]float64, f.ComponentCount())
	require.NoError(t, f.EvaluateReal(c, out))
	return out
}

var approx = cmpopts.EquateApprox(0, 1e-12)

func requireValues(t *testing.T, want, got []float64) {
	t.Helper()
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

// recordingOperator is a custom operator returning fixed values and a fixed
// assignment result.
type recordingOperator struct {
	values   []float64
	assigned []float64
	result   AssignResult
}

func (op *recordingOperator) TypeName() string { return "recording" }

func (op *recordingOperator) ValueType() ValueType { return ValueTypeReal }

func (op *recordingOperator) Evaluate(c *Cache, f *Field, vc ValueCache) error {
	copy(vc.(*RealValueCache).Values, op.values)
	return nil
}

func (op *recordingOperator) EvaluateDerivative(*Cache, *Field, *DerivativeValueCache, *Derivative) error {
	return ErrNotDefined
}

func (op *recordingOperator) IsDefinedAtLocation(*Cache, *Field) bool { return true }

func (op *recordingOperator) Assign(c *Cache, f *Field, vc ValueCache) AssignResult {
	op.assigned = append([]float64(nil), vc.(*RealValueCache).Values...)
	return op.result
}

func (op *recordingOperator) CommandString(*Field) string { return "" }
