package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHistoryCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func seedCatalog(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "catalog.db")
	_, err := runCompileCmd(t, "text", "--db", db, filepath.Join("testdata", "queries", "cheap.yaml"))
	require.NoError(t, err)
	_, err = runCompileCmd(t, "text", "--db", db, filepath.Join("testdata", "queries", "table.yaml"))
	require.NoError(t, err)
	_, err = runDescribeCmd(t, "text", "--db", db, "Product", widget)
	require.NoError(t, err)
	return db
}

func TestHistoryText(t *testing.T) {
	db := seedCatalog(t)

	out, err := runHistoryCmd(t, "text", "--db", db)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "SEQ")
	assert.Contains(t, lines[1], "construct")
	assert.True(t, strings.HasPrefix(lines[1], "3 "))
	assert.True(t, strings.HasPrefix(lines[3], "1 "))
}

func TestHistoryJSONFiltersContainer(t *testing.T) {
	db := seedCatalog(t)

	out, err := runHistoryCmd(t, "json", "--db", db, "--container", "https://example.org/products/", "--limit", "1")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   []HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, int64(2), resp.Data[0].Seq)
	assert.Equal(t, "select", resp.Data[0].Kind)
	require.Len(t, resp.Data[0].Columns, 1)
	assert.Equal(t, "n", resp.Data[0].Columns[0].Label)
}

func TestHistoryEmpty(t *testing.T) {
	db := seedCatalog(t)

	out, err := runHistoryCmd(t, "text", "--db", db, "--container", "https://example.org/none/")
	require.NoError(t, err)
	assert.Contains(t, out, "No statements recorded")
}

func TestHistoryMissingCatalog(t *testing.T) {
	out, err := runHistoryCmd(t, "text", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestHistoryRequiresDB(t *testing.T) {
	_, err := runHistoryCmd(t, "text")
	require.Error(t, err)
}
