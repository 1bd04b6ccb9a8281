package field

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/fieldengine/internal/mesh"
)

func TestFieldNames(t *testing.T) {
	fx := newFixture(t)
	k1, err := fx.module.CreateConstant("", []float64{1})
	require.NoError(t, err)
	assert.Equal(t, "temp1", k1.Name())
	_, err = fx.module.CreateConstant("temp2", []float64{2})
	require.NoError(t, err)
	k3, err := fx.module.CreateConstant("", []float64{3})
	require.NoError(t, err)
	assert.Equal(t, "temp3", k3.Name(), "generated names skip taken ones")

	_, err = fx.module.CreateConstant("temp1", []float64{1})
	assert.ErrorIs(t, err, ErrArgument)

	require.NoError(t, k1.SetName("one"))
	assert.Same(t, k1, fx.module.FindFieldByName("one"))
	assert.Nil(t, fx.module.FindFieldByName("temp1"))
	assert.ErrorIs(t, k1.SetName("temp2"), ErrArgument)
	assert.ErrorIs(t, k1.SetName(""), ErrArgument)
	require.NoError(t, k1.SetName("one"))

	names := make([]string, 0, 3)
	for _, f := range fx.module.Fields() {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"one", "temp2", "temp3"}, names)
}

func TestReferenceCounting(t *testing.T) {
	fx := newFixture(t)
	g := fx.nodeValue(t, "g", 1, nil)
	h, err := fx.module.CreateIdentity("h", g)
	require.NoError(t, err)
	assert.Equal(t, 2, g.AccessCount())
	assert.Equal(t, 1, h.AccessCount())

	require.NoError(t, h.Release())
	assert.Nil(t, fx.module.FindFieldByName("h"))
	assert.Equal(t, 1, g.AccessCount(), "removal releases sources")

	_, err = h.Evaluate(fx.module.CreateCache())
	assert.ErrorIs(t, err, ErrArgument)

	g.SetManaged(true)
	assert.True(t, g.IsManaged())
	require.NoError(t, g.Release())
	assert.Same(t, g, fx.module.FindFieldByName("g"), "managed fields outlive their references")
	assert.ErrorIs(t, g.Release(), ErrArgument)

	g.SetManaged(false)
	assert.Nil(t, fx.module.FindFieldByName("g"))
}

func TestReleaseCascade(t *testing.T) {
	fx := newFixture(t)
	g := fx.nodeValue(t, "g", 1, nil)
	h, err := fx.module.CreateIdentity("h", g)
	require.NoError(t, err)
	sum, err := fx.module.CreateNodesetSum("sum", h, fx.region.Nodes())
	require.NoError(t, err)
	require.NoError(t, g.Release())
	require.NoError(t, h.Release())
	assert.Len(t, fx.module.Fields(), 3)

	var removed []string
	fx.module.AddCallback(func(e ChangeEvent) {
		for _, f := range e.Fields() {
			if e.Flags(f)&ChangeRemove != 0 {
				removed = append(removed, f.Name())
			}
		}
	})
	require.NoError(t, sum.Release())
	assert.Empty(t, fx.module.Fields())
	assert.Equal(t, []string{"sum", "h", "g"}, removed)
}

func TestChangeNotifications(t *testing.T) {
	fx := newFixture(t)
	g := fx.nodeValue(t, "g", 1, nil)
	h, err := fx.module.CreateIdentity("h", g)
	require.NoError(t, err)
	k, err := fx.module.CreateConstant("k", []float64{1})
	require.NoError(t, err)

	var events []ChangeEvent
	remove := fx.module.AddCallback(func(e ChangeEvent) { events = append(events, e) })
	var order []int
	fx.module.AddCallback(func(ChangeEvent) { order = append(order, 1) })
	fx.module.AddCallback(func(ChangeEvent) { order = append(order, 2) })

	c := fx.module.CreateCache()
	require.NoError(t, c.SetNode(fx.node(1), nil))

	fx.module.BeginChange()
	fx.module.BeginChange()
	_, err = g.Assign(c, []float64{5})
	require.NoError(t, err)
	require.NoError(t, fx.module.EndChange())
	assert.Empty(t, events, "nested change still open")
	require.NoError(t, fx.module.EndChange())

	require.Len(t, events, 1)
	event := events[0]
	assert.Equal(t, []*Field{g, h}, event.Fields())
	assert.Equal(t, ChangeResult, event.Flags(g))
	assert.Equal(t, ChangeResult, event.Flags(h), "dependents are notified")
	assert.Zero(t, event.Flags(k))
	assert.Equal(t, "result", event.Summary().String())
	assert.Equal(t, []int{1, 2}, order)

	assert.ErrorIs(t, fx.module.EndChange(), ErrArgument)

	remove()
	_, err = fx.module.CreateConstant("", []float64{2})
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, []int{1, 2, 1, 2}, order)
}

func TestChangeFlagString(t *testing.T) {
	assert.Equal(t, "none", ChangeFlag(0).String())
	assert.Equal(t, "add|result", (ChangeAdd | ChangeResult).String())
}

func TestModuleList(t *testing.T) {
	fx := newFixture(t)
	g := fx.nodeValue(t, "coordinates", 3, nil)
	_, err := fx.module.CreateComponent("x", g, 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, fx.module.List(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"NAME", "COMPONENTS", "COMMAND"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"coordinates", "3", "node_value", "components", "3"}, strings.Fields(lines[1]))
	assert.True(t, strings.HasPrefix(strings.Fields(lines[2])[2], "component"))
}

func TestCoordinateSystem(t *testing.T) {
	fx := newFixture(t)
	g := fx.nodeValue(t, "g", 3, nil)
	assert.Equal(t, RectangularCartesian, g.CoordinateSystem())

	cs, err := ParseCoordinateSystem("Spherical_Polar")
	require.NoError(t, err)
	require.NoError(t, g.SetCoordinateSystem(cs))
	assert.Equal(t, "spherical_polar", g.CoordinateSystem().String())

	_, err = ParseCoordinateSystem("polar")
	assert.ErrorIs(t, err, ErrArgument)
	assert.ErrorIs(t, g.SetCoordinateSystem(CoordinateSystem(9)), ErrArgument)
}

func TestStatusOf(t *testing.T) {
	testCases := []struct {
		err  error
		want Status
	}{
		{nil, StatusOK},
		{fmt.Errorf("wrapped: %w", ErrArgument), StatusErrorArgument},
		{mesh.ErrArgument, StatusErrorArgument},
		{fmt.Errorf("evaluating %q: %w", "g", ErrNotDefined), StatusErrorNotDefined},
		{ErrGeneral, StatusErrorGeneral},
		{fmt.Errorf("other"), StatusErrorGeneral},
	}
	for _, tc := range testCases {
		t.Run(tc.want.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, StatusOf(tc.err))
		})
	}
}

func TestWeakest(t *testing.T) {
	assert.Equal(t, AssignFail, Weakest(AssignAll, AssignFail))
	assert.Equal(t, AssignPartial, Weakest(AssignPartial, AssignAll))
	assert.Equal(t, AssignAll, Weakest(AssignAll, AssignAll))
}

func TestNewModuleErrors(t *testing.T) {
	_, err := NewModule(context.Background(), nil)
	assert.ErrorIs(t, err, ErrArgument)
}

func TestCustomOperator(t *testing.T) {
	fx := newFixture(t)
	op := &recordingOperator{values: []float64{4, 2}, result: AssignAll}
	g := fx.nodeValue(t, "g", 1, nil)
	f, err := fx.module.CreateFieldCustom("custom", 2, []*Field{g}, nil, op)
	require.NoError(t, err)
	assert.Equal(t, KindCustom, f.Kind())
	assert.Equal(t, "recording", f.CommandString())
	assert.True(t, f.DependsOn(g))
	assert.False(t, g.DependsOn(f))

	c := fx.module.CreateCache()
	requireValues(t, []float64{4, 2}, evaluateReal(t, f, c))

	_, err = fx.module.CreateFieldCustom("", 1, nil, nil, nil)
	assert.ErrorIs(t, err, ErrArgument)
	_, err = fx.module.CreateFieldCustom("", 1, []*Field{nil}, nil, op)
	assert.ErrorIs(t, err, ErrArgument)
}
