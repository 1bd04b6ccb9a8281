package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeValidation(t *testing.T) {
	fx := newFixture(t)
	s := fx.nodeValue(t, "s", 3, nil)
	u := fx.nodeValue(t, "u", 1, nil)
	label, err := fx.module.CreateStringConstant("label", "x")
	require.NoError(t, err)

	testCases := []struct {
		name         string
		components   int
		sources      []*Field
		values       []float64
		fieldNumbers []int
		valueNumbers []int
	}{
		{
			name:         "source values not consecutive",
			components:   3,
			values:       []float64{1, 2, 3},
			fieldNumbers: []int{-1, -1, -1},
			valueNumbers: []int{0, 2, 1},
		},
		{
			name:         "component out of range",
			components:   1,
			sources:      []*Field{s},
			fieldNumbers: []int{0},
			valueNumbers: []int{4},
		},
		{
			name:         "repeated source",
			components:   2,
			sources:      []*Field{s, s},
			fieldNumbers: []int{0, 1},
			valueNumbers: []int{0, 0},
		},
		{
			name:         "sources not first used in order",
			components:   2,
			sources:      []*Field{s, u},
			fieldNumbers: []int{1, 0},
			valueNumbers: []int{0, 0},
		},
		{
			name:         "unused source",
			components:   1,
			sources:      []*Field{s, u},
			fieldNumbers: []int{0},
			valueNumbers: []int{0},
		},
		{
			name:         "unused value",
			components:   1,
			values:       []float64{1, 2},
			fieldNumbers: []int{-1},
			valueNumbers: []int{0},
		},
		{
			name:         "non-numerical source",
			components:   1,
			sources:      []*Field{label},
			fieldNumbers: []int{0},
			valueNumbers: []int{0},
		},
		{
			name:         "no components",
			components:   0,
			fieldNumbers: []int{},
			valueNumbers: []int{},
		},
		{
			name:         "invalid source field number",
			components:   1,
			fieldNumbers: []int{-2},
			valueNumbers: []int{0},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := fx.module.CreateComposite("", tc.components, tc.sources, tc.values, tc.fieldNumbers, tc.valueNumbers)
			require.ErrorIs(t, err, ErrArgument)
			assert.Nil(t, f)
			assert.Equal(t, StatusErrorArgument, StatusOf(err))
		})
	}

	t.Run("component of 3-component field out of range", func(t *testing.T) {
		_, err := fx.module.CreateComponent("", s, 5)
		assert.ErrorIs(t, err, ErrArgument)
		_, err = fx.module.CreateComponent("", s, 0)
		assert.ErrorIs(t, err, ErrArgument)
	})

	t.Run("reuse of earlier source is allowed", func(t *testing.T) {
		f, err := fx.module.CreateComposite("", 3, []*Field{s, u}, nil, []int{0, 1, 0}, []int{2, 0, 0})
		require.NoError(t, err)
		assert.Equal(t, KindComposite, f.Kind())
	})
}

func TestCompositeRoundTrip(t *testing.T) {
	fx := newFixture(t)
	s := fx.nodeValue(t, "s", 3, map[int][]float64{1: {10, 20, 30}})
	composite, err := fx.module.CreateComposite("c", 3, []*Field{s}, nil, []int{0, 0, 0}, []int{2, 0, 1})
	require.NoError(t, err)

	c := fx.module.CreateCache()
	require.NoError(t, c.SetNode(fx.node(1), nil))
	requireValues(t, []float64{30, 10, 20}, evaluateReal(t, composite, c))

	result, err := composite.Assign(c, []float64{30, 10, 20})
	require.NoError(t, err)
	assert.Equal(t, AssignAll, result)
	requireValues(t, []float64{10, 20, 30}, evaluateReal(t, s, c))

	// Output component 0 maps to source component 2.
	result, err = composite.Assign(c, []float64{99, 10, 20})
	require.NoError(t, err)
	assert.Equal(t, AssignAll, result)
	requireValues(t, []float64{10, 20, 99}, evaluateReal(t, s, c))
	requireValues(t, []float64{99, 10, 20}, evaluateReal(t, composite, c))
}

func TestCompositeMixedSources(t *testing.T) {
	fx := newFixture(t)
	coords := fx.nodeValue(t, "coordinates", 2, map[int][]float64{1: {1, 2}})
	temp := fx.nodeValue(t, "temperature", 1, map[int][]float64{1: {300}})
	mix, err := fx.module.CreateComposite("mix", 3, []*Field{coords, temp}, []float64{2.5}, []int{0, -1, 1}, []int{1, 0, 0})
	require.NoError(t, err)

	c := fx.module.CreateCache()
	require.NoError(t, c.SetNode(fx.node(1), nil))
	requireValues(t, []float64{2, 2.5, 300}, evaluateReal(t, mix, c))
	assert.True(t, mix.IsDefinedAtLocation(c))

	require.NoError(t, c.SetNode(fx.node(2), nil))
	assert.False(t, mix.IsDefinedAtLocation(c))
	_, err = mix.Evaluate(c)
	assert.ErrorIs(t, err, ErrNotDefined)
	assert.Equal(t, StatusErrorNotDefined, StatusOf(err))

	result, err := mix.Assign(c, []float64{1, 2, 3})
	assert.Equal(t, AssignFail, result)
	assert.ErrorIs(t, err, ErrGeneral)
}

func TestConstantAssign(t *testing.T) {
	fx := newFixture(t)
	k, err := fx.module.CreateConstant("k", []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, KindConstant, k.Kind())

	c := fx.module.CreateCache()
	result, err := k.Assign(c, []float64{5, 6})
	require.NoError(t, err)
	assert.Equal(t, AssignAll, result)
	assert.Equal(t, []float64{5, 6}, k.SourceValues())
	requireValues(t, []float64{5, 6}, evaluateReal(t, k, c))

	c.SetAssignInCacheOnly(true)
	result, err = k.Assign(c, []float64{7, 8})
	require.NoError(t, err)
	assert.Equal(t, AssignAll, result)
	assert.Equal(t, []float64{5, 6}, k.SourceValues(), "constants untouched in cache-only mode")
	requireValues(t, []float64{7, 8}, evaluateReal(t, k, c))
	requireValues(t, []float64{5, 6}, evaluateReal(t, k, fx.module.CreateCache()))
}

func TestCompositeAssignInCacheOnly(t *testing.T) {
	fx := newFixture(t)
	s := fx.nodeValue(t, "s", 2, map[int][]float64{1: {1, 2}})
	first, err := fx.module.CreateComponent("first", s, 1)
	require.NoError(t, err)
	second, err := fx.module.CreateComponent("second", s, 2)
	require.NoError(t, err)

	c := fx.module.CreateCache()
	c.SetAssignInCacheOnly(true)
	require.NoError(t, c.SetNode(fx.node(1), nil))
	requireValues(t, []float64{2}, evaluateReal(t, second, c))

	result, err := first.Assign(c, []float64{9})
	require.NoError(t, err)
	assert.Equal(t, AssignAll, result)
	requireValues(t, []float64{9, 2}, evaluateReal(t, s, c))
	requireValues(t, []float64{9}, evaluateReal(t, first, c))

	stored, ok := fx.region.Store().Values("s", fx.node(1))
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, stored, "store untouched in cache-only mode")
}

func TestCompositeAssignPartial(t *testing.T) {
	fx := newFixture(t)
	recorder := &recordingOperator{values: []float64{4}, result: AssignPartial}
	custom, err := fx.module.CreateFieldCustom("custom", 1, nil, nil, recorder)
	require.NoError(t, err)
	assert.Equal(t, KindCustom, custom.Kind())
	s := fx.nodeValue(t, "s", 1, map[int][]float64{1: {1}})
	joined, err := fx.module.CreateConcatenate("joined", []*Field{custom, s})
	require.NoError(t, err)

	c := fx.module.CreateCache()
	require.NoError(t, c.SetNode(fx.node(1), nil))
	result, err := joined.Assign(c, []float64{5, 6})
	require.NoError(t, err)
	assert.Equal(t, AssignPartial, result)
	assert.Equal(t, []float64{5}, recorder.assigned)
	requireValues(t, []float64{6}, evaluateReal(t, s, c))

	recorder.result = AssignFail
	result, err = joined.Assign(c, []float64{5, 6})
	assert.Equal(t, AssignFail, result)
	assert.ErrorIs(t, err, ErrGeneral)
}

func TestConcatenateDeduplicates(t *testing.T) {
	fx := newFixture(t)
	a := fx.nodeValue(t, "a", 2, map[int][]float64{1: {1, 2}})
	b := fx.nodeValue(t, "b", 1, map[int][]float64{1: {3}})
	f, err := fx.module.CreateConcatenate("", []*Field{a, b, a})
	require.NoError(t, err)
	assert.Equal(t, 5, f.ComponentCount())
	assert.Equal(t, []*Field{a, b}, f.SourceFields())

	c := fx.module.CreateCache()
	require.NoError(t, c.SetNode(fx.node(1), nil))
	requireValues(t, []float64{1, 2, 3, 1, 2}, evaluateReal(t, f, c))
}

func TestComponentMultipleAndSourceIndex(t *testing.T) {
	fx := newFixture(t)
	s := fx.nodeValue(t, "s", 3, map[int][]float64{1: {10, 20, 30}})
	multi, err := fx.module.CreateComponentMultiple("", s, []int{3, 3, 1})
	require.NoError(t, err)
	single, err := fx.module.CreateComponent("", s, 2)
	require.NoError(t, err)

	c := fx.module.CreateCache()
	require.NoError(t, c.SetNode(fx.node(1), nil))
	requireValues(t, []float64{30, 30, 10}, evaluateReal(t, multi, c))
	requireValues(t, []float64{20}, evaluateReal(t, single, c))

	index, err := single.SourceComponentIndex(0)
	require.NoError(t, err)
	assert.Equal(t, 1, index)
	require.NoError(t, single.SetSourceComponentIndex(0, 2))
	requireValues(t, []float64{30}, evaluateReal(t, single, c))
	assert.ErrorIs(t, single.SetSourceComponentIndex(0, 3), ErrArgument)

	k, err := fx.module.CreateConstant("", []float64{1})
	require.NoError(t, err)
	assert.ErrorIs(t, k.SetSourceComponentIndex(0, 0), ErrArgument)
}

func TestCompositeCommandString(t *testing.T) {
	fx := newFixture(t)
	coords := fx.nodeValue(t, "coordinates", 2, nil)
	require.NoError(t, coords.SetComponentName(0, "x"))
	require.NoError(t, coords.SetComponentName(1, "y"))
	temp := fx.nodeValue(t, "temperature", 1, nil)

	newField := func(f *Field, err error) *Field {
		t.Helper()
		require.NoError(t, err)
		return f
	}
	testCases := []struct {
		name  string
		field *Field
		want  string
	}{
		{"identity", newField(fx.module.CreateIdentity("", coords)), "identity coordinates"},
		{"component", newField(fx.module.CreateComponent("", coords, 2)), "component coordinates.y"},
		{"concatenate", newField(fx.module.CreateConcatenate("", []*Field{coords, temp})), "concatenate coordinates temperature"},
		{"constant", newField(fx.module.CreateConstant("", []float64{1, 2.5, 1e-7})), "constant 1 2.5 1e-07"},
		{
			"composite with constant",
			newField(fx.module.CreateComposite("", 3, []*Field{coords, temp}, []float64{2.5}, []int{0, -1, 1}, []int{1, 0, 0})),
			"composite coordinates.y 2.5 temperature",
		},
		{
			"composite whole field compacted",
			newField(fx.module.CreateComposite("", 3, []*Field{coords}, []float64{0}, []int{0, 0, -1}, []int{0, 1, 0})),
			"composite coordinates 0",
		},
		{
			"unnamed component numbered from one",
			newField(fx.module.CreateComposite("", 1, []*Field{newField(fx.module.CreateIdentity("pair", coords))}, nil, []int{0}, []int{1})),
			"composite pair.2",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.field.CommandString())
		})
	}
}

func TestCompositeDerivatives(t *testing.T) {
	fx := newFixture(t)
	// g = 1 + x + 2y + xy over the unit square.
	g := fx.nodeValue(t, "g", 1, map[int][]float64{1: {1}, 2: {2}, 3: {3}, 4: {5}})
	withConstant, err := fx.module.CreateComposite("", 2, []*Field{g}, []float64{7}, []int{0, -1}, []int{0, 0})
	require.NoError(t, err)
	first, err := fx.module.MeshDerivative(fx.region.Mesh(2), 1)
	require.NoError(t, err)
	second, err := fx.module.MeshDerivative(fx.region.Mesh(2), 2)
	require.NoError(t, err)
	assert.Same(t, first, second.Lower())

	c := fx.module.CreateCache()
	require.NoError(t, c.SetMeshLocation(fx.element, []float64{0.5, 0.5}, nil))

	vc, err := withConstant.EvaluateDerivativeTree(c, second)
	require.NoError(t, err)
	requireValues(t, []float64{2.75, 7}, vc.Values)

	dvc, err := withConstant.EvaluateDerivative(c, first)
	require.NoError(t, err)
	assert.Equal(t, 2, dvc.TermCount())
	requireValues(t, []float64{1.5, 2.5, 0, 0}, dvc.Values)

	dvc, err = withConstant.EvaluateDerivative(c, second)
	require.NoError(t, err)
	assert.Equal(t, 4, dvc.TermCount())
	requireValues(t, []float64{0, 1, 1, 0, 0, 0, 0, 0}, dvc.Values)

	require.NoError(t, c.SetNode(fx.node(1), nil))
	_, err = withConstant.EvaluateDerivative(c, first)
	assert.ErrorIs(t, err, ErrNotDefined)
}
