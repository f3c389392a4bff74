package timeline

import (
	"fmt"
	"slices"

	"kontor/internal/core"
)

// Timeline is the ordered, period-unique sequence of snapshots of one owner.
//
// Snapshots are indexed by period and the periods are kept in a sorted slice,
// so lookups never depend on iterator state. A Timeline is not safe for
// concurrent writes; it is populated by one goroutine and read-only afterwards.
type Timeline[V Metric] struct {
	ownerID  int64
	byPeriod map[core.Period]Snapshot[V]
	periods  []core.Period
}

// New creates an empty timeline for the given owner.
func New[V Metric](ownerID int64) *Timeline[V] {
	return &Timeline[V]{
		ownerID:  ownerID,
		byPeriod: make(map[core.Period]Snapshot[V]),
	}
}

func (t *Timeline[V]) OwnerID() int64 {
	return t.ownerID
}

// Insert adds s, replacing any snapshot already stored for the same period.
func (t *Timeline[V]) Insert(s Snapshot[V]) error {
	if s.OwnerID != t.ownerID {
		return fmt.Errorf("%w: snapshot owner %d, timeline owner %d", ErrForeignSnapshot, s.OwnerID, t.ownerID)
	}
	if err := s.Period.Validate(); err != nil {
		return err
	}
	if _, exists := t.byPeriod[s.Period]; !exists {
		i, _ := slices.BinarySearchFunc(t.periods, s.Period, core.Period.Compare)
		t.periods = slices.Insert(t.periods, i, s.Period)
	}
	t.byPeriod[s.Period] = s
	return nil
}

// Get returns the snapshot stored for p.
func (t *Timeline[V]) Get(p core.Period) (Snapshot[V], bool) {
	s, ok := t.byPeriod[p]
	return s, ok
}

// First returns the earliest snapshot, false when the timeline is empty.
func (t *Timeline[V]) First() (Snapshot[V], bool) {
	if len(t.periods) == 0 {
		return Snapshot[V]{}, false
	}
	return t.byPeriod[t.periods[0]], true
}

// Last returns the latest snapshot, false when the timeline is empty.
func (t *Timeline[V]) Last() (Snapshot[V], bool) {
	if len(t.periods) == 0 {
		return Snapshot[V]{}, false
	}
	return t.byPeriod[t.periods[len(t.periods)-1]], true
}

// SuccessorOf returns the snapshot of the calendar month right after s, if any.
func (t *Timeline[V]) SuccessorOf(s Snapshot[V]) (Snapshot[V], bool) {
	return t.Get(s.Period.Next())
}

func (t *Timeline[V]) Len() int {
	return len(t.periods)
}

// Periods returns the stored periods in ascending order.
func (t *Timeline[V]) Periods() []core.Period {
	return slices.Clone(t.periods)
}

// Snapshots returns the stored snapshots in ascending period order.
func (t *Timeline[V]) Snapshots() []Snapshot[V] {
	out := make([]Snapshot[V], len(t.periods))
	for i, p := range t.periods {
		out[i] = t.byPeriod[p]
	}
	return out
}

// Bounds returns the first and last period, false when the timeline is empty.
func (t *Timeline[V]) Bounds() (core.Period, core.Period, bool) {
	if len(t.periods) == 0 {
		return core.Period{}, core.Period{}, false
	}
	return t.periods[0], t.periods[len(t.periods)-1], true
}

// Contiguous reports whether every month between first and last is present.
func (t *Timeline[V]) Contiguous() bool {
	for i := 1; i < len(t.periods); i++ {
		if t.periods[i-1].Next() != t.periods[i] {
			return false
		}
	}
	return true
}

// FiguresAt returns the numeric projection of the snapshot stored for p.
func (t *Timeline[V]) FiguresAt(p core.Period) (core.Figures, bool) {
	s, ok := t.byPeriod[p]
	if !ok {
		return core.Figures{}, false
	}
	return s.Value.Figures(), true
}
