package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const widget = "https://example.org/products/p1"

func runDescribeCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewDescribeCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--shapes", shapesDir}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestDescribeConstruct(t *testing.T) {
	out, err := runDescribeCmd(t, "text", "Product", widget)
	require.NoError(t, err)

	assert.Contains(t, out, "CONSTRUCT {")
	assert.Contains(t, out, "<https://example.org/products/p1> <https://schema.org/name> ?v")
	assert.Contains(t, out, "OPTIONAL {")
}

func TestDescribeExtractsData(t *testing.T) {
	out, err := runDescribeCmd(t, "text", "--data", filepath.Join("testdata", "data", "products.nq"), "Product", widget)
	require.NoError(t, err)

	assert.Contains(t, out, `<https://example.org/products/p1> <https://schema.org/name> "Widget" .`)
	assert.Contains(t, out, "<https://example.org/products/p1> <https://schema.org/manufacturer> <https://example.org/orgs/acme> .")
	assert.NotContains(t, out, "Gadget")
	assert.NotContains(t, out, "Acme")
}

func TestDescribeJSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "catalog.db")
	out, err := runDescribeCmd(t, "json", "--db", db, "--data", filepath.Join("testdata", "data", "products.nq"), "Product", widget)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   DescribeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, widget, resp.Data.Resource)
	assert.Contains(t, resp.Data.Text, "CONSTRUCT")
	assert.Len(t, resp.Data.Fingerprint, 64)
	assert.Len(t, resp.Data.Description, 3)
}

func TestDescribeUnknownResourceIsEmpty(t *testing.T) {
	out, err := runDescribeCmd(t, "json", "--data", filepath.Join("testdata", "data", "products.nq"), "Product", "https://example.org/products/p9")
	require.NoError(t, err)

	var resp struct {
		Data DescribeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Empty(t, resp.Data.Description)
}

func TestDescribeErrors(t *testing.T) {
	badData := filepath.Join(t.TempDir(), "bad.nq")
	require.NoError(t, os.WriteFile(badData, []byte("<https://example.org/a> not a quad\n"), 0o644))

	tests := []struct {
		name     string
		args     []string
		wantCode string
		wantExit int
	}{
		{"unknown shape", []string{"Gizmo", widget}, ErrCodeUnknownShape, ExitFailure},
		{"missing data", []string{"--data", "testdata/data/missing.nq", "Product", widget}, ErrCodeNotFound, ExitCommandError},
		{"malformed data", []string{"--data", badData, "Product", widget}, ErrCodeMalformed, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runDescribeCmd(t, "json", tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}
