package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendbot/internal/calendar"
	logx "attendbot/pkg/logx"
)

func sampleLeaves(t *testing.T) []calendar.Leave {
	t.Helper()
	d := func(s string) calendar.Date {
		v, err := calendar.ParseDate(s)
		require.NoError(t, err)
		return v
	}
	return []calendar.Leave{
		{Start: d("2025-01-15"), End: d("2025-01-16"), Type: "annual", Reason: "family trip"},
		{Start: d("2025-03-03"), End: d("2025-03-03"), Type: "sick"},
	}
}

func openStore(t *testing.T, driver, name string) Store {
	t.Helper()
	st, err := Open(Config{Driver: driver, Path: filepath.Join(t.TempDir(), name)}, logx.Nop())
	require.NoError(t, err)
	require.NotNil(t, st)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		assert.NoError(t, err)
		assert.Nil(t, st)
	}
	_, err := Open(Config{Driver: "mysql", Path: "x"}, logx.Nop())
	assert.Error(t, err)
}

func TestLeaveRoundTrip(t *testing.T) {
	tests := []struct {
		driver string
		name   string
	}{
		{driver: "file", name: "leaves.json"},
		{driver: "file", name: "leaves.yaml"},
		{driver: "sqlite", name: "attendbot.db"},
	}
	for _, tt := range tests {
		t.Run(tt.driver+"/"+tt.name, func(t *testing.T) {
			st := openStore(t, tt.driver, tt.name)
			ctx := context.Background()

			got, err := st.LoadLeaves(ctx)
			require.NoError(t, err)
			assert.Empty(t, got, "a fresh store is empty")

			want := sampleLeaves(t)
			require.NoError(t, st.SaveLeaves(ctx, want))
			got, err = st.LoadLeaves(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			require.NoError(t, st.SaveLeaves(ctx, want[:1]))
			got, err = st.LoadLeaves(ctx)
			require.NoError(t, err)
			assert.Equal(t, want[:1], got)

			require.NoError(t, st.AppendAudit(ctx, AuditEntry{Actor: "cli", Action: "leave.add", Target: want[0].String()}))
		})
	}
}

func TestFileStoreWritesRecordShape(t *testing.T) {
	st := openStore(t, "file", "leaves.json")
	require.NoError(t, st.SaveLeaves(context.Background(), sampleLeaves(t)[:1]))

	b, err := os.ReadFile(st.Path())
	require.NoError(t, err)
	var raw []map[string]string
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, []map[string]string{{
		"startDate": "2025-01-15",
		"endDate":   "2025-01-16",
		"type":      "annual",
		"reason":    "family trip",
	}}, raw)

	entries, err := os.ReadDir(filepath.Dir(st.Path()))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file left behind: %s", e.Name())
	}
}

func TestFileStoreReadsHandEditedDocuments(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"wrapped.json": `{"leaves":[{"startDate":"2025-01-15","endDate":"2025-01-16"}]}`,
		"list.yaml":    "- startDate: 2025-01-15\n  endDate: 2025-01-16\n  type: annual\n",
		"wrapped.yml":  "leaves:\n  - startDate: 2025-01-15\n    endDate: 2025-01-16\n",
		"empty.json":   "  \n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
			require.NoError(t, err)
			defer st.Close()

			got, err := st.LoadLeaves(context.Background())
			require.NoError(t, err)
			if name == "empty.json" {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, "2025-01-15", got[0].Start.String())
			assert.Equal(t, "2025-01-16", got[0].End.String())
		})
	}
}

func TestFileStoreRejectsInvalidEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leaves.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"startDate":"2025-01-16","endDate":"2025-01-15"}]`), 0o600))
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()

	_, err = st.LoadLeaves(context.Background())
	assert.ErrorIs(t, err, calendar.ErrInvalidLeave)

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))
	_, err = st.LoadLeaves(context.Background())
	assert.Error(t, err)
}

func TestFileStoreAuditIsJSONLines(t *testing.T) {
	st := openStore(t, "file", "leaves.json")
	ctx := context.Background()
	require.NoError(t, st.AppendAudit(ctx, AuditEntry{Action: "leave.add", Target: "2025-01-15"}))
	require.NoError(t, st.AppendAudit(ctx, AuditEntry{Action: "leave.remove", Target: "2025-01-15", Error: "not found"}))

	f, err := os.Open(filepath.Join(filepath.Dir(st.Path()), "leaves.audit.jsonl"))
	require.NoError(t, err)
	defer f.Close()
	var actions []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e AuditEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		assert.False(t, e.At.IsZero())
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{"leave.add", "leave.remove"}, actions)
}

func TestSQLiteStoreHasNoWatchPath(t *testing.T) {
	st := openStore(t, "sqlite", "attendbot.db")
	assert.Empty(t, st.Path())
	assert.NoError(t, WatchLeaves(context.Background(), st, logx.Nop(), func() {}))
}
