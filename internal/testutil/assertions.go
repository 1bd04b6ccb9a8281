package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/vk/fieldengine/internal/field"
)

// AssertFieldCreated checks the log output within a HarnessResult to confirm
// that the builder created the named field.
func AssertFieldCreated(t *testing.T, result *HarnessResult, name string) {
	t.Helper()

	expectedLogSubstring := fmt.Sprintf("msg=\"Field created.\" field=%s ", name)

	require.True(t,
		strings.Contains(result.LogOutput, expectedLogSubstring),
		"expected log output for field %q was not found in logs", name,
	)
}

// RequireValues compares float vectors within a small tolerance.
func RequireValues(t *testing.T, want, got []float64) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		require.FailNow(t, "values mismatch (-want +got)", diff)
	}
}

// EvaluateAtNode evaluates the named field at a node of the module's region.
func EvaluateAtNode(t *testing.T, m *field.Module, name string, nodeID int) []float64 {
	t.Helper()
	f := m.FindFieldByName(name)
	require.NotNil(t, f, "field %q", name)
	node := m.Region().FindNodeByID(nodeID)
	require.NotNil(t, node, "node %d", nodeID)

	c := m.CreateCache()
	defer c.Release()
	require.NoError(t, c.SetNode(node, nil))
	values := make([]float64, f.ComponentCount())
	require.NoError(t, f.EvaluateReal(c, values))
	return values
}
