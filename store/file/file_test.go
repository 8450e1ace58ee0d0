package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/dtr"
	"github.com/warp/attendance-engine/store/file"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) (*file.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dtr_records.json")
	store, err := file.New(path, dtr.BandedSchedule(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func record(date string) dtr.DeductionRecord {
	d, err := dtr.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return dtr.DeductionRecord{
		Date:      d,
		Morning:   dtr.Entry(dtr.NewClock(8, 15), dtr.NewClock(12, 1)),
		Afternoon: dtr.Entry(dtr.NewClock(13, 0), dtr.NewClock(17, 30)),
	}
}

func collect(seq func(func(dtr.DeductionRecord) bool)) []dtr.DeductionRecord {
	var out []dtr.DeductionRecord
	for rec := range seq {
		out = append(out, rec)
	}
	return out
}

func mustDate(t *testing.T, s string) dtr.Date {
	t.Helper()
	d, err := dtr.ParseDate(s)
	require.NoError(t, err)
	return d
}

// =============================================================================
// SAVE AND CONFLICT
// =============================================================================

func TestStore_SaveThenQuery_ReturnsComputedRecord(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record("2024-05-01"), false))

	seq, err := store.Query(ctx, mustDate(t, "2024-05-01"), mustDate(t, "2024-05-01"))
	require.NoError(t, err)
	got := collect(seq)

	require.Len(t, got, 1)
	assert.Equal(t, "2024-05-01", got[0].Date.String())
	assert.True(t, got[0].Computed.Workday)
	assert.Equal(t, dtr.Minutes(0), got[0].Computed.Lateness)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestStore_SaveExistingDate_ConflictThenConfirm(t *testing.T) {
	// GIVEN: A record for 2024-05-01 already exists
	// WHEN: Saving the same date without confirmation
	// THEN: ConflictError carrying the existing record; after a
	//       confirmed retry the store holds the new values

	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record("2024-05-01"), false))

	updated := record("2024-05-01")
	updated.Morning = dtr.Entry(dtr.NewClock(8, 40), dtr.NewClock(12, 1))

	err := store.Save(ctx, updated, false)
	require.Error(t, err)
	var conflict *dtr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "2024-05-01", conflict.Date.String())
	assert.Equal(t, dtr.Minutes(0), conflict.Existing.Computed.Lateness)

	// Conflict must not change state.
	rec, err := store.Get(ctx, mustDate(t, "2024-05-01"))
	require.NoError(t, err)
	assert.Equal(t, dtr.Minutes(0), rec.Computed.Lateness)

	// Confirmed retry overwrites.
	require.NoError(t, store.Save(ctx, updated, true))
	rec, err = store.Get(ctx, mustDate(t, "2024-05-01"))
	require.NoError(t, err)
	assert.Equal(t, dtr.Minutes(10), rec.Computed.Lateness, "08:40 against 08:30 expected in")

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "still exactly one record per date")
}

func TestStore_SaveInvalidEntry_NothingPersisted(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()

	bad := record("2024-05-01")
	bad.Afternoon = dtr.Entry(dtr.NewClock(17, 0), dtr.NewClock(13, 0))

	err := store.Save(ctx, bad, false)
	assert.True(t, dtr.IsValidation(err))

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "backing file must not be created for rejected input")
}

// =============================================================================
// EDIT
// =============================================================================

func TestStore_Edit_RecomputesAndBumpsModified(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record("2024-05-01"), false))
	saved, err := store.Get(ctx, mustDate(t, "2024-05-01"))
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	morning := dtr.Entry(dtr.NewClock(8, 50), dtr.NewClock(12, 1))
	afternoon := dtr.Entry(dtr.NewClock(13, 0), dtr.NewClock(17, 30))
	edited, err := store.Edit(ctx, mustDate(t, "2024-05-01"), morning, afternoon)
	require.NoError(t, err)

	assert.Equal(t, dtr.Minutes(20), edited.Computed.Lateness)
	assert.Equal(t, saved.CreatedAt, edited.CreatedAt)
	assert.True(t, edited.ModifiedAt.After(saved.ModifiedAt))
}

func TestStore_Edit_Idempotent(t *testing.T) {
	// Editing with the same actual times twice yields identical
	// computed results both times.

	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record("2024-05-01"), false))

	morning := dtr.Entry(dtr.NewClock(8, 35), dtr.NewClock(12, 1))
	afternoon := dtr.Entry(dtr.NewClock(13, 10), dtr.NewClock(17, 30))

	first, err := store.Edit(ctx, mustDate(t, "2024-05-01"), morning, afternoon)
	require.NoError(t, err)
	second, err := store.Edit(ctx, mustDate(t, "2024-05-01"), morning, afternoon)
	require.NoError(t, err)

	assert.Equal(t, first.Computed, second.Computed)
}

func TestStore_EditMissingDate_NotFound(t *testing.T) {
	store, _ := newTestStore(t)

	morning := dtr.Entry(dtr.NewClock(8, 15), dtr.NewClock(12, 1))
	_, err := store.Edit(context.Background(), mustDate(t, "2024-05-01"), morning, dtr.Excluded())

	assert.True(t, dtr.IsNotFound(err))
}

// =============================================================================
// DELETE
// =============================================================================

func TestStore_DeleteBatch_IgnoresMissing(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record("2024-05-01"), false))
	require.NoError(t, store.Save(ctx, record("2024-05-02"), false))
	require.NoError(t, store.Save(ctx, record("2024-05-03"), false))

	removed, err := store.Delete(ctx,
		mustDate(t, "2024-05-01"),
		mustDate(t, "2024-05-03"),
		mustDate(t, "2024-06-15")) // not present
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_DeleteNonExistent_NoOp(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record("2024-05-01"), false))

	removed, err := store.Delete(ctx, mustDate(t, "2024-06-15"))
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "store size unchanged")
}

// =============================================================================
// QUERY AND ORDERING
// =============================================================================

func TestStore_QueryRange_InclusiveAscending(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, d := range []string{"2024-05-03", "2024-05-01", "2024-05-02", "2024-05-07"} {
		require.NoError(t, store.Save(ctx, record(d), false))
	}

	seq, err := store.Query(ctx, mustDate(t, "2024-05-01"), mustDate(t, "2024-05-03"))
	require.NoError(t, err)
	got := collect(seq)

	require.Len(t, got, 3)
	assert.Equal(t, "2024-05-01", got[0].Date.String())
	assert.Equal(t, "2024-05-02", got[1].Date.String())
	assert.Equal(t, "2024-05-03", got[2].Date.String())
}

func TestStore_QueryEmptyRange_EmptySequence(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record("2024-05-01"), false))

	seq, err := store.Query(ctx, mustDate(t, "2024-06-01"), mustDate(t, "2024-06-30"))
	require.NoError(t, err)
	assert.Empty(t, collect(seq))
}

func TestStore_Query_Restartable(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record("2024-05-01"), false))
	require.NoError(t, store.Save(ctx, record("2024-05-02"), false))

	seq, err := store.Query(ctx, mustDate(t, "2024-05-01"), mustDate(t, "2024-05-02"))
	require.NoError(t, err)

	assert.Len(t, collect(seq), 2)
	assert.Len(t, collect(seq), 2, "sequence can be ranged over again")
}

// =============================================================================
// PERSISTENCE AND RECOVERY
// =============================================================================

func TestStore_RoundTrip_ReloadEqual(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record("2024-05-01"), false))
	require.NoError(t, store.Save(ctx, record("2024-05-02"), false))
	half := record("2024-05-03")
	half.Afternoon = dtr.Excluded()
	require.NoError(t, store.Save(ctx, half, false))

	all, err := store.All(ctx)
	require.NoError(t, err)
	before := collect(all)

	reloaded, err := file.New(path, dtr.BandedSchedule(), nil)
	require.NoError(t, err)
	defer reloaded.Close()

	all, err = reloaded.All(ctx)
	require.NoError(t, err)
	after := collect(all)

	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Date, after[i].Date)
		assert.Equal(t, before[i].Morning, after[i].Morning)
		assert.Equal(t, before[i].Afternoon, after[i].Afternoon)
		assert.True(t, before[i].Computed.Points.Equal(after[i].Computed.Points))
		assert.Equal(t, before[i].Computed.Lateness, after[i].Computed.Lateness)
	}
}

func TestStore_CorruptBackingFile_StartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtr_records.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store, err := file.New(path, dtr.BandedSchedule(), nil)
	require.NoError(t, err, "corrupt file is recoverable, not fatal")
	defer store.Close()

	n, err := store.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// The store remains usable.
	require.NoError(t, store.Save(context.Background(), record("2024-05-01"), false))
}

func TestStore_MissingBackingFile_StartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")

	store, err := file.New(path, dtr.BandedSchedule(), nil)
	require.NoError(t, err)
	defer store.Close()

	n, err := store.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStore_PersistLeavesNoTempFiles(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record("2024-05-01"), false))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(path), entries[0].Name())
}

func TestStore_PersistFailure_LeavesCacheUnchanged(t *testing.T) {
	// GIVEN: A store with one saved record
	// WHEN: The backing path is occupied by a directory, so the atomic
	//       rename fails
	// THEN: Save returns a PersistenceError and neither the cache nor
	//       the record count changes

	store, path := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record("2024-05-01"), false))

	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))

	err := store.Save(ctx, record("2024-05-02"), false)
	var perr *dtr.PersistenceError
	require.ErrorAs(t, err, &perr)

	_, err = store.Get(ctx, mustDate(t, "2024-05-02"))
	assert.ErrorIs(t, err, dtr.ErrNotFound, "failed save must not land in the cache")

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
