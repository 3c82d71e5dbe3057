package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return scenario
}

func TestLoadScenario_ResolvesShapes(t *testing.T) {
	scenario := loadTestScenario(t, "products")

	assert.Equal(t, "products", scenario.Name)
	assert.Equal(t, filepath.Join("testdata", "shapes"), scenario.Shapes)
	require.Len(t, scenario.Setup, 2)
	require.Len(t, scenario.Flow, 6)
	assert.Equal(t, OpCompile, scenario.Flow[0].Op)
	assert.Equal(t, "https://example.org/products/p1", scenario.Flow[3].Resource)
}

func TestRun_Products(t *testing.T) {
	result, err := Run(loadTestScenario(t, "products"))
	require.NoError(t, err)

	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
	require.Len(t, result.Trace, 6)
	assert.Equal(t, "https://example.org/products/", result.Trace[0].Target)
	assert.Equal(t, "CONFLICTING_CONSTRAINT", result.Trace[1].Error)
	assert.Equal(t, "MALFORMED_INPUT", result.Trace[2].Error)
	assert.Empty(t, result.Trace[3].Error)
	assert.Equal(t, CodeNotFound, result.Trace[5].Error)
}

func TestRunWithGolden_Lifecycle(t *testing.T) {
	result, err := RunWithGolden(t, loadTestScenario(t, "lifecycle"))
	require.NoError(t, err)
	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
}

func TestRun_Deterministic(t *testing.T) {
	scenario := loadTestScenario(t, "lifecycle")

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalTrace(scenario.Name, first)
	require.NoError(t, err)
	b, err := MarshalTrace(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_FailedExpectations(t *testing.T) {
	scenario := loadTestScenario(t, "lifecycle")
	scenario.Flow[2].Expect = nil
	scenario.Flow[1].Expect = &ExpectClause{Contains: []string{"Initech"}}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], `does not contain "Initech"`)
	assert.Contains(t, result.Errors[1], "unexpected error ILLEGAL_STATE")
}

func TestRun_FailedAssertions(t *testing.T) {
	scenario := loadTestScenario(t, "lifecycle")
	scenario.Assertions = []Assertion{
		{Type: AssertMemberCount, Count: 1},
		{Type: AssertTraceCount, Op: OpDelete, Count: 2},
		{Type: AssertDescriptionContains, Resource: "https://example.org/orgs/acme", Shape: "Organization", Contains: []string{"x"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Assertion failed: member_count")
	assert.Contains(t, result.Errors[1], "1 occurrences")
	assert.Contains(t, result.Errors[2], "not found")
}

func TestRun_SetupFailure(t *testing.T) {
	scenario := loadTestScenario(t, "products")
	scenario.Setup = append(scenario.Setup, ResourceStep{
		Resource:   "https://example.org/products/p3",
		Shape:      "Product",
		Properties: map[string]any{"colour": "red"},
	})

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup step 2")
}

func TestRun_BadShapes(t *testing.T) {
	scenario := loadTestScenario(t, "lifecycle")
	scenario.Shapes = t.TempDir()

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load shapes")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing name", "description: d\nshapes: .\nflow: [{op: describe, resource: r, shape: S}]\n", "name is required"},
		{"missing description", "name: n\nshapes: .\nflow: [{op: describe, resource: r, shape: S}]\n", "description is required"},
		{"missing shapes", "name: n\ndescription: d\nflow: [{op: describe, resource: r, shape: S}]\n", "shapes directory is required"},
		{"shapes not found", "name: n\ndescription: d\nshapes: nowhere\nflow: [{op: describe, resource: r, shape: S}]\n", "shapes directory not found"},
		{"empty flow", "name: n\ndescription: d\nshapes: .\nflow: []\n", "flow list is required"},
		{"unknown op", "name: n\ndescription: d\nshapes: .\nflow: [{op: explode}]\n", `unknown op "explode"`},
		{"create without container", "name: n\ndescription: d\nshapes: .\nflow: [{op: create, resource: r, shape: S}]\n", "container is required"},
		{"compile without query", "name: n\ndescription: d\nshapes: .\nflow: [{op: compile}]\n", "query document is required"},
		{"unknown field", "name: n\ndescription: d\nshapes: .\nflows: []\n", "failed to parse YAML"},
		{"step out of range", "name: n\ndescription: d\nshapes: .\nflow: [{op: describe, resource: r, shape: S}]\nassertions: [{type: statement_contains, step: 2, contains: [x]}]\n", "step must be between 1 and 1"},
		{"unknown assertion", "name: n\ndescription: d\nshapes: .\nflow: [{op: describe, resource: r, shape: S}]\nassertions: [{type: final_state}]\n", `unknown assertion type "final_state"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scenario.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "2 occurrences of delete",
		Actual:   "1 occurrences",
		Trace:    []TraceEvent{{Step: 1, Op: OpDelete, Target: "https://example.org/a"}, {Step: 2, Op: OpRetrieve, Target: "https://example.org/a", Error: CodeNotFound}},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "[1] delete https://example.org/a ok")
	assert.Contains(t, msg, "[2] retrieve https://example.org/a NOT_FOUND")
}

func TestResultEvent(t *testing.T) {
	result := NewResult()
	result.Trace = append(result.Trace, TraceEvent{Step: 1, Op: OpCompile})

	event, ok := result.Event(1)
	assert.True(t, ok)
	assert.Equal(t, OpCompile, event.Op)

	_, ok = result.Event(0)
	assert.False(t, ok)
	_, ok = result.Event(2)
	assert.False(t, ok)
}
