package client

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRender verifies sorting, flattening and value formatting.
func TestRender(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	require.NoError(t, Render(&out, map[string]any{
		"total":      1500.0,
		"population": 1234567.0,
		"running":    true,
		"children":   []any{"a", "b"},
		"breakdown":  map[string]any{"a": 2.5},
		"name":       "",
	}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	require.True(t, strings.HasPrefix(lines[0], "breakdown.a"))
	require.Contains(t, lines[0], "2.50")
	require.Contains(t, lines[1], "a, b")
	require.Contains(t, lines[2], "-")
	require.Contains(t, lines[3], "1,234,567")
	require.Contains(t, lines[4], "true")
	require.Contains(t, lines[5], "1.50 kJ")
}

// TestFormatValue covers the remaining value kinds.
func TestFormatValue(t *testing.T) {
	t.Parallel()

	require.Equal(t, "-", FormatValue("x", nil))
	require.Equal(t, "-", FormatValue("x", []any{}))
	require.Equal(t, "n1", FormatValue("failed", []any{map[string]any{"id": "n1"}}))
	require.Equal(t, "3", FormatValue("seq", 3.0))
}

// TestRunWithoutServer verifies a missing address is reported before any call.
func TestRunWithoutServer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	err := Run(context.Background(), "status", &Options{ConfigPath: dir + "/absent.yaml"}, Status())
	require.Error(t, err)
}
