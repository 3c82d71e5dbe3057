package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shapesDir = filepath.Join("testdata", "shapes")

func runCompileCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--shapes", shapesDir}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestCompileTemplate(t *testing.T) {
	out, err := runCompileCmd(t, "text", filepath.Join("testdata", "queries", "cheap.yaml"))
	require.NoError(t, err)

	assert.Contains(t, out, "SELECT DISTINCT ?m")
	assert.Contains(t, out, "<https://example.org/products/> <http://www.w3.org/ns/ldp#contains> ?m .")
	assert.Contains(t, out, "?m a <https://schema.org/Product> .")
	assert.Contains(t, out, "<https://schema.org/addressCountry>")
	assert.Contains(t, out, `IN ("FR")`)
	assert.Contains(t, out, "ORDER BY ASC(")
	assert.Contains(t, out, "LIMIT 5")
}

func TestCompileTableJSON(t *testing.T) {
	out, err := runCompileCmd(t, "json", filepath.Join("testdata", "queries", "table.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   CompileResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Product", resp.Data.Shape)
	assert.Empty(t, resp.Data.Member)
	require.Len(t, resp.Data.Columns, 1)
	assert.Equal(t, "n", resp.Data.Columns[0].Label)
	assert.Equal(t, "count:name", resp.Data.Columns[0].Expr)
	assert.Contains(t, resp.Data.Text, "COUNT(")
	assert.Empty(t, resp.Data.Fingerprint)
}

func TestCompileMembershipFlags(t *testing.T) {
	out, err := runCompileCmd(t, "text",
		"--membership", "https://schema.org/isPartOf", "--reverse", "--page-size", "7",
		filepath.Join("testdata", "queries", "table.yaml"))
	require.NoError(t, err)

	assert.Contains(t, out, "<https://example.org/products/> ^<https://schema.org/isPartOf> ?m .")
	assert.NotContains(t, out, "ldp#contains")
}

func TestCompileRecordsStatement(t *testing.T) {
	db := filepath.Join(t.TempDir(), "catalog.db")
	query := filepath.Join("testdata", "queries", "cheap.yaml")

	out, err := runCompileCmd(t, "json", "--db", db, query)
	require.NoError(t, err)
	var first struct {
		Data CompileResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.Len(t, first.Data.Fingerprint, 64)
	assert.True(t, first.Data.Recorded)

	out, err = runCompileCmd(t, "json", "--db", db, query)
	require.NoError(t, err)
	var second struct {
		Data CompileResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.Equal(t, first.Data.Fingerprint, second.Data.Fingerprint)
	assert.False(t, second.Data.Recorded)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode string
		wantExit int
	}{
		{"missing query file", []string{"testdata/queries/missing.yaml"}, ErrCodeNotFound, ExitCommandError},
		{"conflicting fragments", []string{"testdata/queries/conflict.yaml"}, ErrCodeConflict, ExitFailure},
		{"unknown shape", []string{"testdata/queries/unknown.yaml"}, ErrCodeUnknownShape, ExitFailure},
		{"unknown path", []string{"testdata/queries/badpath.yaml"}, ErrCodeMalformed, ExitFailure},
		{"missing shapes", []string{"--shapes", "/nonexistent", "testdata/queries/cheap.yaml"}, ErrCodeNotFound, ExitCommandError},
		{"broken shapes", []string{"--shapes", "testdata/broken", "testdata/queries/cheap.yaml"}, "E1", ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCompileCmd(t, "json", tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Contains(t, resp.Error.Code, tt.wantCode)
		})
	}
}

func TestCompileTextError(t *testing.T) {
	out, err := runCompileCmd(t, "text", filepath.Join("testdata", "queries", "conflict.yaml"))
	require.Error(t, err)
	assert.Contains(t, out, "Error [E202]")
}
