package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/beacon.report/internal/monitoring"
	"github.com/banshee-data/beacon.report/internal/scanner/l1records"
	"github.com/banshee-data/beacon.report/internal/scanner/l4registration"
	"github.com/banshee-data/beacon.report/internal/testutil"
	"github.com/banshee-data/beacon.report/internal/timeutil"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(testutil.TempDBPath(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func canonicalResult(t *testing.T) *l4registration.Result {
	t.Helper()
	records, err := l1records.Parse(testutil.CanonicalReader())
	require.NoError(t, err)
	res, err := l4registration.Reconstruct(context.Background(), records, l4registration.Options{})
	require.NoError(t, err)
	return res
}

func TestOpen_Migrates(t *testing.T) {
	db := openTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, db.MigrateUp())

	for _, table := range []string{"scanner_runs", "scanner_placements", "run_beacons"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := testutil.TempDBPath(t)
	db, err := Open(path)
	require.NoError(t, err)
	store := NewRunStore(db)
	run := RunFromResult("first", canonicalResult(t))
	require.NoError(t, store.SaveRun(context.Background(), run))
	require.NoError(t, db.Close())

	db2, err := Open(path)
	require.NoError(t, err)
	defer db2.Close()
	got, err := NewRunStore(db2).GetRun(context.Background(), run.RunID)
	require.NoError(t, err)
	assert.Equal(t, testutil.CanonicalBeaconCount, got.BeaconCount)
}

func TestRunStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewRunStore(openTestDB(t))
	res := canonicalResult(t)

	run := RunFromResult("canonical.txt", res)
	require.NoError(t, store.SaveRun(ctx, run))
	require.NotEmpty(t, run.RunID)
	require.NotZero(t, run.CreatedAt)

	got, err := store.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	if diff := cmp.Diff(run, got); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
	assert.Equal(t, testutil.CanonicalMaxDistance, got.MaxDistance)
	assert.Len(t, got.Beacons, testutil.CanonicalBeaconCount)
}

func TestRunStore_ListRuns(t *testing.T) {
	ctx := context.Background()
	store := NewRunStore(openTestDB(t))
	clock := timeutil.NewMockClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	store.SetClock(clock)
	res := canonicalResult(t)

	for _, src := range []string{"a", "b", "c"} {
		run := RunFromResult(src, res)
		require.NoError(t, store.SaveRun(ctx, run))
		assert.Equal(t, clock.Now().UnixNano(), run.CreatedAt)
		clock.Advance(time.Minute)
	}

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{runs[0].Source, runs[1].Source, runs[2].Source})
	assert.Empty(t, runs[0].Beacons, "summaries carry no beacons")

	limited, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRunStore_DeleteRun(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewRunStore(db)

	run := RunFromResult("x", canonicalResult(t))
	require.NoError(t, store.SaveRun(ctx, run))
	require.NoError(t, store.DeleteRun(ctx, run.RunID))

	_, err := store.GetRun(ctx, run.RunID)
	assert.True(t, errors.Is(err, ErrRunNotFound), "err = %v", err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM run_beacons`).Scan(&n))
	assert.Zero(t, n)

	err = store.DeleteRun(ctx, run.RunID)
	assert.True(t, errors.Is(err, ErrRunNotFound), "err = %v", err)
}

func TestRunStore_DuplicateID(t *testing.T) {
	ctx := context.Background()
	store := NewRunStore(openTestDB(t))
	res := canonicalResult(t)

	run := RunFromResult("x", res)
	run.RunID = "fixed"
	require.NoError(t, store.SaveRun(ctx, run))

	dup := RunFromResult("y", res)
	dup.RunID = "fixed"
	assert.Error(t, store.SaveRun(ctx, dup))

	// The failed transaction left the original intact.
	got, err := store.GetRun(ctx, "fixed")
	require.NoError(t, err)
	assert.Equal(t, "x", got.Source)
	assert.Len(t, got.Placements, 5)
}

func TestOpenWithClock(t *testing.T) {
	original := monitoring.Logf
	defer monitoring.SetLogger(original)
	var logs []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logs = append(logs, fmt.Sprintf(format, v...))
	})

	clock := timeutil.NewMockClock(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC))
	db, err := OpenWithClock(testutil.TempDBPath(t), clock)
	require.NoError(t, err)
	defer db.Close()

	// The mock clock does not move during migration.
	assert.Contains(t, logs, "run store migrated to version 2 in 0s")

	// Stores inherit the database clock.
	run := RunFromResult("canonical.txt", canonicalResult(t))
	require.NoError(t, NewRunStore(db).SaveRun(context.Background(), run))
	assert.Equal(t, clock.Now().UnixNano(), run.CreatedAt)
}
