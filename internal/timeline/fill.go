package timeline

import "fmt"

// NextValueBuilder synthesizes the snapshot of the month following its input.
type NextValueBuilder[V Metric] func(Snapshot[V]) Snapshot[V]

// CarryForward returns the builder that copies a snapshot's value into the next month.
func CarryForward[V Metric]() NextValueBuilder[V] {
	return func(s Snapshot[V]) Snapshot[V] {
		return Snapshot[V]{OwnerID: s.OwnerID, Period: s.Period.Next(), Value: s.Value}
	}
}

// EnsurePopulated walks the timeline from its first to its last month and
// inserts a snapshot built by next for every month that is missing.
//
// The builder must return a snapshot of the same owner dated exactly one month
// after its input; anything else is rejected before it reaches the timeline.
func EnsurePopulated[V Metric](tl *Timeline[V], next NextValueBuilder[V]) error {
	cursor, ok := tl.First()
	if !ok {
		return nil
	}
	last, _ := tl.Last()

	for cursor.Period != last.Period {
		successor, ok := tl.SuccessorOf(cursor)
		if !ok {
			built := next(cursor)
			if built.Period != cursor.Period.Next() || built.OwnerID != cursor.OwnerID {
				return fmt.Errorf("%w: %v produced %v for owner %d", ErrBuilderNotAdvancing, cursor.Period, built.Period, built.OwnerID)
			}
			if err := tl.Insert(built); err != nil {
				return err
			}
			successor = built
		}
		cursor = successor
	}
	return nil
}
