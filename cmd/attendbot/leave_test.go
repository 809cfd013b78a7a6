package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendbot/internal/calendar"
)

func TestLeaveFromFlags(t *testing.T) {
	l, err := leaveFromFlags("2025-01-15", "")
	require.NoError(t, err)
	assert.Equal(t, l.Start, l.End)

	_, err = leaveFromFlags("2025-01-16", "2025-01-15")
	assert.ErrorIs(t, err, calendar.ErrInvalidLeave)

	_, err = leaveFromFlags("", "")
	assert.Error(t, err)
	_, err = leaveFromFlags("15/01/2025", "")
	assert.Error(t, err)
}

func TestLeaveAddRemove(t *testing.T) {
	dir := t.TempDir()
	leaves := filepath.Join(dir, "leaves.yaml")
	cfgPath := filepath.Join(dir, "config.json")
	cfg := `{"logging":{"level":"error"},"storage":{"driver":"file","path":"` + leaves + `"},
"site":{"toggle":{"value":"#t"},"clocked_in_label":"Out","clocked_out_label":"In"}}`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	ctx := context.Background()

	require.NoError(t, leaveCmd(ctx, []string{"add", "-config", cfgPath, "-from", "2025-01-15", "-to", "2025-01-16", "-reason", "trip"}))
	b, err := os.ReadFile(leaves)
	require.NoError(t, err)
	assert.Contains(t, string(b), "2025-01-15")
	assert.Contains(t, string(b), "trip")

	require.NoError(t, leaveCmd(ctx, []string{"list", "-config", cfgPath}))

	err = leaveCmd(ctx, []string{"remove", "-config", cfgPath, "-from", "2025-02-01"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no leave")

	require.NoError(t, leaveCmd(ctx, []string{"remove", "-config", cfgPath, "-from", "2025-01-15", "-to", "2025-01-16"}))
	b, err = os.ReadFile(leaves)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "2025-01-15")

	audit, err := os.ReadFile(strings.TrimSuffix(leaves, ".yaml") + ".audit.jsonl")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(audit)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], `"error"`)
}

func TestLeaveRequiresStorage(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"site":{"toggle":{"value":"#t"},"clocked_in_label":"Out","clocked_out_label":"In"}}`), 0o644))
	err := leaveCmd(context.Background(), []string{"list", "-config", cfgPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage disabled")
}

func TestLeaveNeedsOnlyStorageSection(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	leaves := filepath.Join(dir, "leaves.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"storage":{"driver":"file","path":"`+leaves+`"}}`), 0o644))
	ctx := context.Background()
	require.NoError(t, leaveCmd(ctx, []string{"add", "-config", cfgPath, "-from", "2025-03-03"}))
	require.NoError(t, leaveCmd(ctx, []string{"list", "-config", cfgPath}))

	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"storage":{"driver":"mongo","path":"x"}}`), 0o644))
	err := leaveCmd(ctx, []string{"list", "-config", cfgPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage.driver")
}
