package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/dtr"
	"github.com/warp/attendance-engine/store/memory"
)

func mustDate(t *testing.T, s string) dtr.Date {
	t.Helper()
	d, err := dtr.ParseDate(s)
	require.NoError(t, err)
	return d
}

func record(t *testing.T, date string) dtr.DeductionRecord {
	t.Helper()
	morningIn, _ := dtr.ParseClock("08:30")
	morningOut, _ := dtr.ParseClock("12:01")
	afternoonIn, _ := dtr.ParseClock("13:00")
	afternoonOut, _ := dtr.ParseClock("17:30")
	return dtr.DeductionRecord{
		Date:      mustDate(t, date),
		Morning:   dtr.TimeEntry{In: &morningIn, Out: &morningOut, Included: true},
		Afternoon: dtr.TimeEntry{In: &afternoonIn, Out: &afternoonOut, Included: true},
	}
}

func collect(seq func(func(dtr.DeductionRecord) bool)) []dtr.DeductionRecord {
	var out []dtr.DeductionRecord
	seq(func(rec dtr.DeductionRecord) bool {
		out = append(out, rec)
		return true
	})
	return out
}

func TestMemoryStore_SaveConflictEdit(t *testing.T) {
	ctx := context.Background()
	store := memory.New(dtr.BandedSchedule())

	// GIVEN a saved record
	require.NoError(t, store.Save(ctx, record(t, "2024-05-01"), false))

	// WHEN the same date is saved again without confirmation
	err := store.Save(ctx, record(t, "2024-05-01"), false)

	// THEN the conflict carries the occupying record
	var conflict *dtr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "2024-05-01", conflict.Date.String())

	// AND an edit recomputes the figures
	rec := record(t, "2024-05-01")
	in, _ := dtr.ParseClock("08:50")
	rec.Morning.In = &in
	edited, err := store.Edit(ctx, rec.Date, rec.Morning, rec.Afternoon)
	require.NoError(t, err)
	assert.Equal(t, dtr.Minutes(20), edited.Computed.Lateness)
}

func TestMemoryStore_QueryOrderedAndRestartable(t *testing.T) {
	ctx := context.Background()
	store := memory.New(dtr.BandedSchedule())
	for _, d := range []string{"2024-05-03", "2024-05-01", "2024-05-02"} {
		require.NoError(t, store.Save(ctx, record(t, d), false))
	}

	seq, err := store.Query(ctx, mustDate(t, "2024-05-01"), mustDate(t, "2024-05-02"))
	require.NoError(t, err)

	first := collect(seq)
	require.Len(t, first, 2)
	assert.Equal(t, "2024-05-01", first[0].Date.String())
	assert.Equal(t, "2024-05-02", first[1].Date.String())

	// Restartable: same results on a second pass.
	assert.Equal(t, first, collect(seq))

	removed, err := store.Delete(ctx, mustDate(t, "2024-05-01"), mustDate(t, "2024-06-15"))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
