package timeline

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsurePopulatedEmptyTimeline(t *testing.T) {
	tl := New[Credit](1)
	called := false
	err := EnsurePopulated(tl, func(s Snapshot[Credit]) Snapshot[Credit] {
		called = true
		return s
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, 0, tl.Len())
}

func TestEnsurePopulatedCarriesPreviousMonth(t *testing.T) {
	tl := New[Credit](1)
	require.NoError(t, tl.Insert(credit(1, period(2023, time.November), 10)))
	require.NoError(t, tl.Insert(credit(1, period(2024, time.February), 40)))
	require.NoError(t, tl.Insert(credit(1, period(2024, time.April), 60)))

	require.NoError(t, EnsurePopulated(tl, CarryForward[Credit]()))

	want := map[string]int64{
		"2023-11": 10, "2023-12": 10, "2024-01": 10,
		"2024-02": 40, "2024-03": 40, "2024-04": 60,
	}
	assert.Equal(t, len(want), tl.Len())
	assert.True(t, tl.Contiguous())
	for _, s := range tl.Snapshots() {
		assert.True(t, s.Value.Limit.Equal(decimal.NewFromInt(want[s.Period.String()])), "value at %s", s.Period)
	}
}

func TestEnsurePopulatedIsIdempotent(t *testing.T) {
	tl := New[Credit](1)
	require.NoError(t, tl.Insert(credit(1, period(2023, time.January), 5)))
	require.NoError(t, tl.Insert(credit(1, period(2023, time.July), 9)))
	require.NoError(t, EnsurePopulated(tl, CarryForward[Credit]()))
	before := tl.Snapshots()

	calls := 0
	builder := func(s Snapshot[Credit]) Snapshot[Credit] {
		calls++
		return CarryForward[Credit]()(s)
	}
	require.NoError(t, EnsurePopulated(tl, builder))

	assert.Zero(t, calls, "contiguous timeline must not call the builder")
	assert.Equal(t, before, tl.Snapshots())
}

func TestEnsurePopulatedRejectsNonAdvancingBuilder(t *testing.T) {
	builders := map[string]NextValueBuilder[Credit]{
		"same period": func(s Snapshot[Credit]) Snapshot[Credit] { return s },
		"backwards": func(s Snapshot[Credit]) Snapshot[Credit] {
			s.Period = s.Period.AddMonths(-1)
			return s
		},
		"skips a month": func(s Snapshot[Credit]) Snapshot[Credit] {
			s.Period = s.Period.AddMonths(2)
			return s
		},
		"other owner": func(s Snapshot[Credit]) Snapshot[Credit] {
			return Snapshot[Credit]{OwnerID: s.OwnerID + 1, Period: s.Period.Next(), Value: s.Value}
		},
	}
	for name, builder := range builders {
		t.Run(name, func(t *testing.T) {
			tl := New[Credit](1)
			require.NoError(t, tl.Insert(credit(1, period(2024, time.January), 1)))
			require.NoError(t, tl.Insert(credit(1, period(2024, time.June), 1)))

			err := EnsurePopulated(tl, builder)
			assert.True(t, errors.Is(err, ErrBuilderNotAdvancing), "got %v", err)
			assert.Equal(t, 2, tl.Len(), "rejected snapshots must not be inserted")
		})
	}
}

func TestEnsurePopulatedSingleSnapshot(t *testing.T) {
	tl := New[Credit](1)
	require.NoError(t, tl.Insert(credit(1, period(2024, time.January), 1)))
	require.NoError(t, EnsurePopulated(tl, CarryForward[Credit]()))
	assert.Equal(t, 1, tl.Len())
}
