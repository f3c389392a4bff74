package timeline

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kontor/internal/core"
)

func period(year int, month time.Month) core.Period {
	return core.MustPeriod(year, month)
}

func credit(ownerID int64, p core.Period, limit int64) Snapshot[Credit] {
	return Snapshot[Credit]{OwnerID: ownerID, Period: p, Value: Credit{Limit: decimal.NewFromInt(limit)}}
}

func TestTimelineInsertKeepsOrderAndUniqueness(t *testing.T) {
	tl := New[Credit](7)

	require.NoError(t, tl.Insert(credit(7, period(2024, time.March), 3)))
	require.NoError(t, tl.Insert(credit(7, period(2023, time.December), 1)))
	require.NoError(t, tl.Insert(credit(7, period(2024, time.January), 2)))
	require.NoError(t, tl.Insert(credit(7, period(2024, time.January), 20)))

	assert.Equal(t, 3, tl.Len())
	assert.Equal(t, []core.Period{
		period(2023, time.December),
		period(2024, time.January),
		period(2024, time.March),
	}, tl.Periods())

	jan, ok := tl.Get(period(2024, time.January))
	require.True(t, ok)
	assert.True(t, jan.Value.Limit.Equal(decimal.NewFromInt(20)), "last write must win")
}

func TestTimelineInsertRejectsForeignAndInvalid(t *testing.T) {
	tl := New[Credit](7)

	err := tl.Insert(credit(8, period(2024, time.January), 1))
	assert.True(t, errors.Is(err, ErrForeignSnapshot))

	err = tl.Insert(Snapshot[Credit]{OwnerID: 7, Period: core.Period{Year: 2024, Month: 13}})
	assert.True(t, errors.Is(err, core.ErrInvalidPeriod))
	assert.Equal(t, 0, tl.Len())
}

func TestTimelineLookups(t *testing.T) {
	tl := New[Credit](1)
	_, ok := tl.First()
	assert.False(t, ok)
	_, ok = tl.Last()
	assert.False(t, ok)
	_, _, ok = tl.Bounds()
	assert.False(t, ok)

	dec := credit(1, period(2023, time.December), 1)
	jan := credit(1, period(2024, time.January), 2)
	mar := credit(1, period(2024, time.March), 3)
	for _, s := range []Snapshot[Credit]{mar, dec, jan} {
		require.NoError(t, tl.Insert(s))
	}

	first, _ := tl.First()
	last, _ := tl.Last()
	assert.Equal(t, dec.Period, first.Period)
	assert.Equal(t, mar.Period, last.Period)

	next, ok := tl.SuccessorOf(dec)
	require.True(t, ok)
	assert.Equal(t, jan.Period, next.Period)

	_, ok = tl.SuccessorOf(jan)
	assert.False(t, ok, "february is missing")
	assert.False(t, tl.Contiguous())

	figures, ok := tl.FiguresAt(period(2024, time.March))
	require.True(t, ok)
	assert.True(t, figures.Credit.Equal(decimal.NewFromInt(3)))
}

func TestTimelineSnapshotsAreCopies(t *testing.T) {
	tl := New[Credit](1)
	require.NoError(t, tl.Insert(credit(1, period(2024, time.January), 1)))

	snaps := tl.Snapshots()
	snaps[0].Value.Limit = decimal.NewFromInt(99)
	periods := tl.Periods()
	periods[0] = period(1999, time.January)

	got, _ := tl.First()
	assert.True(t, got.Value.Limit.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, period(2024, time.January), got.Period)
}

func TestResolveWindow(t *testing.T) {
	cases := []struct {
		status   time.Time
		from, to core.Period
	}{
		{time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), period(2023, time.January), period(2025, time.May)},
		{time.Date(2024, 1, 31, 18, 0, 0, 0, time.UTC), period(2023, time.January), period(2024, time.December)},
		{time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), period(2023, time.January), period(2025, time.November)},
		{time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC), period(2022, time.January), period(2024, time.January)},
	}
	for _, tc := range cases {
		w := ResolveWindow(tc.status)
		assert.Equal(t, tc.from, w.From, "from for %s", tc.status)
		assert.Equal(t, tc.to, w.To, "to for %s", tc.status)
	}

	w := ResolveWindow(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 29, w.Months())
	assert.True(t, w.Contains(period(2023, time.January)))
	assert.True(t, w.Contains(period(2025, time.May)))
	assert.False(t, w.Contains(period(2022, time.December)))
	assert.False(t, w.Contains(period(2025, time.June)))
}
