package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/dtr"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:", dtr.BandedSchedule(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func record(t *testing.T, date string) dtr.DeductionRecord {
	t.Helper()
	d, err := dtr.ParseDate(date)
	require.NoError(t, err)
	return dtr.DeductionRecord{
		Date:      d,
		Morning:   dtr.Entry(dtr.NewClock(8, 15), dtr.NewClock(12, 1)),
		Afternoon: dtr.Entry(dtr.NewClock(13, 0), dtr.NewClock(17, 30)),
	}
}

func mustDate(t *testing.T, s string) dtr.Date {
	t.Helper()
	d, err := dtr.ParseDate(s)
	require.NoError(t, err)
	return d
}

func collect(seq func(func(dtr.DeductionRecord) bool)) []dtr.DeductionRecord {
	var out []dtr.DeductionRecord
	for rec := range seq {
		out = append(out, rec)
	}
	return out
}

// =============================================================================
// STORE CONTRACT
// =============================================================================

func TestSQLiteStore_SaveGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := record(t, "2024-05-01")
	require.NoError(t, store.Save(ctx, rec, false))

	got, err := store.Get(ctx, mustDate(t, "2024-05-01"))
	require.NoError(t, err)

	assert.Equal(t, "2024-05-01", got.Date.String())
	assert.Equal(t, rec.Morning, got.Morning)
	assert.Equal(t, rec.Afternoon, got.Afternoon)
	assert.True(t, got.Computed.Workday)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.ModifiedAt.IsZero())
}

func TestSQLiteStore_SaveConflictThenConfirm(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record(t, "2024-05-01"), false))

	updated := record(t, "2024-05-01")
	updated.Morning = dtr.Entry(dtr.NewClock(8, 45), dtr.NewClock(12, 1))

	err := store.Save(ctx, updated, false)
	var conflict *dtr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "2024-05-01", conflict.Date.String())

	require.NoError(t, store.Save(ctx, updated, true))
	got, err := store.Get(ctx, mustDate(t, "2024-05-01"))
	require.NoError(t, err)
	assert.Equal(t, dtr.Minutes(15), got.Computed.Lateness)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_GetMissing_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), mustDate(t, "2024-05-01"))
	assert.True(t, dtr.IsNotFound(err))
}

func TestSQLiteStore_Edit_Recomputes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record(t, "2024-05-01"), false))

	morning := dtr.Entry(dtr.NewClock(8, 50), dtr.NewClock(12, 1))
	afternoon := dtr.Entry(dtr.NewClock(13, 0), dtr.NewClock(17, 30))
	edited, err := store.Edit(ctx, mustDate(t, "2024-05-01"), morning, afternoon)
	require.NoError(t, err)

	assert.Equal(t, dtr.Minutes(20), edited.Computed.Lateness)

	got, err := store.Get(ctx, mustDate(t, "2024-05-01"))
	require.NoError(t, err)
	assert.Equal(t, dtr.Minutes(20), got.Computed.Lateness)
}

func TestSQLiteStore_EditMissing_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Edit(context.Background(), mustDate(t, "2024-05-01"),
		dtr.Entry(dtr.NewClock(8, 15), dtr.NewClock(12, 1)), dtr.Excluded())
	assert.True(t, dtr.IsNotFound(err))
}

func TestSQLiteStore_DeleteBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record(t, "2024-05-01"), false))
	require.NoError(t, store.Save(ctx, record(t, "2024-05-02"), false))

	removed, err := store.Delete(ctx,
		mustDate(t, "2024-05-01"),
		mustDate(t, "2024-06-15")) // not present, ignored
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_QueryRange_InclusiveAscending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, d := range []string{"2024-05-07", "2024-05-01", "2024-05-02"} {
		require.NoError(t, store.Save(ctx, record(t, d), false))
	}

	seq, err := store.Query(ctx, mustDate(t, "2024-05-01"), mustDate(t, "2024-05-02"))
	require.NoError(t, err)
	got := collect(seq)

	require.Len(t, got, 2)
	assert.Equal(t, "2024-05-01", got[0].Date.String())
	assert.Equal(t, "2024-05-02", got[1].Date.String())
}

func TestSQLiteStore_All_Restartable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, record(t, "2024-05-01"), false))
	require.NoError(t, store.Save(ctx, record(t, "2024-05-02"), false))

	seq, err := store.All(ctx)
	require.NoError(t, err)

	assert.Len(t, collect(seq), 2)
	assert.Len(t, collect(seq), 2)
}
