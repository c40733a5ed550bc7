package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	tests := []struct {
		name   string
		dbPath func(t *testing.T) string
	}{
		{
			name: "creates database file",
			dbPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "history.db")
			},
		},
		{
			name: "creates nested parent directories",
			dbPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "nested", "dir", "history.db")
			},
		},
		{
			name: "handles in-memory database",
			dbPath: func(t *testing.T) string {
				return ":memory:"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(tt.dbPath(t))
			require.NoError(t, err)
			require.NotNil(t, store)
			defer store.Close()
		})
	}
}

func TestApplyMigrations_IsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	first, err := NewStore(dbPath)
	require.NoError(t, err)
	first.Close()

	second, err := NewStore(dbPath)
	require.NoError(t, err)
	defer second.Close()

	var version int
	row := second.db.QueryRow(`SELECT COUNT(*) FROM schema_version`)
	require.NoError(t, row.Scan(&version))
	assert.Equal(t, len(migrations), version)
}

func TestRecordRunAndRecentRuns(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	started := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

	id, err := store.RecordRun(ctx, Entry{
		TargetModel:    "llama3:8b",
		SuiteName:      "core",
		VariantTags:    []string{"fp16", "q4_0"},
		StartedAt:      started,
		EndedAt:        started.Add(5 * time.Minute),
		ExitCode:       0,
		PulledOnDemand: []string{"llama3:8b-q4_0"},
	})
	require.NoError(t, err)
	assert.NotZero(t, id)

	entries, err := store.RecentRuns(ctx, "llama3:8b", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "llama3:8b", entries[0].TargetModel)
	assert.Equal(t, "core", entries[0].SuiteName)
	assert.Equal(t, []string{"fp16", "q4_0"}, entries[0].VariantTags)
	assert.Equal(t, 0, entries[0].ExitCode)
	assert.Equal(t, []string{"llama3:8b-q4_0"}, entries[0].PulledOnDemand)
}

func TestRecentRuns_OrderedNewestFirstAndFilteredByTarget(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	_, err = store.RecordRun(ctx, Entry{TargetModel: "a", SuiteName: "core", StartedAt: base, EndedAt: base, ExitCode: 0})
	require.NoError(t, err)
	_, err = store.RecordRun(ctx, Entry{TargetModel: "b", SuiteName: "core", StartedAt: base.Add(time.Hour), EndedAt: base, ExitCode: 0})
	require.NoError(t, err)
	_, err = store.RecordRun(ctx, Entry{TargetModel: "a", SuiteName: "core", StartedAt: base.Add(2 * time.Hour), EndedAt: base, ExitCode: 1})
	require.NoError(t, err)

	entries, err := store.RecentRuns(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].ExitCode, "newest run for target a should come first")
	assert.Equal(t, 0, entries[1].ExitCode)

	all, err := store.RecentRuns(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
