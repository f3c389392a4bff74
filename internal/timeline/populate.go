package timeline

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kontor/internal/core"
)

// Strategy encapsulates what differs between owner kinds when a timeline is
// populated: how a zero value is made and how a value is carried forward.
type Strategy[V Metric] interface {
	// Kind is the owner kind the strategy serves.
	Kind() core.OwnerKind
	// Structural kinds carry no numeric history; only month presence matters.
	Structural() bool
	// Zero builds the value used when no history is available.
	Zero(owner core.Owner) V
	// Carry builds the value of a month synthesized after one holding prev.
	Carry(prev V) V
}

// BudgetStrategy populates budget accounts.
type BudgetStrategy struct{}

func (BudgetStrategy) Kind() core.OwnerKind { return core.KindBudget }
func (BudgetStrategy) Structural() bool     { return false }

func (BudgetStrategy) Zero(core.Owner) Budget {
	return Budget{Income: decimal.Zero, Expenses: decimal.Zero}
}

func (BudgetStrategy) Carry(prev Budget) Budget { return prev }

// CreditStrategy populates credit accounts.
type CreditStrategy struct{}

func (CreditStrategy) Kind() core.OwnerKind { return core.KindCredit }
func (CreditStrategy) Structural() bool     { return false }

func (CreditStrategy) Zero(core.Owner) Credit { return Credit{Limit: decimal.Zero} }

func (CreditStrategy) Carry(prev Credit) Credit { return prev }

// ContactStrategy populates contact accounts, which only record presence.
type ContactStrategy struct{}

func (ContactStrategy) Kind() core.OwnerKind { return core.KindContact }
func (ContactStrategy) Structural() bool     { return true }

func (ContactStrategy) Zero(owner core.Owner) Presence {
	return Presence{CreatedAt: owner.CreatedAt, UpdatedAt: owner.UpdatedAt}
}

func (ContactStrategy) Carry(prev Presence) Presence { return prev }

// PopulateBudget populates a budget account timeline.
func PopulateBudget(owner *core.Owner, raw []Snapshot[Budget], statusDate time.Time) (*Timeline[Budget], error) {
	return Populate[Budget](owner, raw, statusDate, BudgetStrategy{})
}

// PopulateCredit populates a credit account timeline.
func PopulateCredit(owner *core.Owner, raw []Snapshot[Credit], statusDate time.Time) (*Timeline[Credit], error) {
	return Populate[Credit](owner, raw, statusDate, CreditStrategy{})
}

// PopulateContact populates a contact account timeline. Contacts have no
// recorded history, so no snapshots are taken.
func PopulateContact(owner *core.Owner, statusDate time.Time) (*Timeline[Presence], error) {
	return Populate[Presence](owner, []Snapshot[Presence]{}, statusDate, ContactStrategy{})
}

// Populate produces the dense timeline of owner over the analysis window of
// statusDate. raw may be unsorted and may contain months outside the window.
//
// For value-bearing kinds the window start takes the snapshot recorded for
// that month, else the latest earlier snapshot carried forward, else zero.
// Snapshots inside the window are inserted as recorded and the window end
// carries the last known value when nothing was recorded for it. Structural
// kinds get a presence snapshot at both ends. The interior is gap-filled.
func Populate[V Metric](owner *core.Owner, raw []Snapshot[V], statusDate time.Time, s Strategy[V]) (*Timeline[V], error) {
	if owner == nil {
		return nil, ErrNilOwner
	}
	if owner.Kind != s.Kind() {
		return nil, fmt.Errorf("%w: owner %d is %q, strategy is %q", ErrKindMismatch, owner.ID, owner.Kind, s.Kind())
	}
	if raw == nil && !s.Structural() {
		return nil, fmt.Errorf("%w: owner %d", ErrNilSnapshots, owner.ID)
	}
	for _, r := range raw {
		if r.OwnerID != owner.ID {
			return nil, fmt.Errorf("%w: snapshot owner %d, expected %d", ErrForeignSnapshot, r.OwnerID, owner.ID)
		}
		if err := r.Period.Validate(); err != nil {
			return nil, fmt.Errorf("owner %d: %w", owner.ID, err)
		}
	}

	w := ResolveWindow(statusDate)
	tl := New[V](owner.ID)
	zeroAt := func(p core.Period) Snapshot[V] {
		return Snapshot[V]{OwnerID: owner.ID, Period: p, Value: s.Zero(*owner)}
	}

	if s.Structural() || len(raw) == 0 {
		if err := tl.Insert(zeroAt(w.From)); err != nil {
			return nil, err
		}
		if err := tl.Insert(zeroAt(w.To)); err != nil {
			return nil, err
		}
	} else {
		if err := tl.Insert(seedWindowStart(raw, w.From, s, zeroAt)); err != nil {
			return nil, err
		}
		for _, r := range raw {
			if r.Period.After(w.From) && !r.Period.After(w.To) {
				if err := tl.Insert(r); err != nil {
					return nil, err
				}
			}
		}
		last, _ := tl.Last()
		if last.Period.Before(w.To) {
			carried := Snapshot[V]{OwnerID: owner.ID, Period: w.To, Value: s.Carry(last.Value)}
			if err := tl.Insert(carried); err != nil {
				return nil, err
			}
		}
	}

	next := func(prev Snapshot[V]) Snapshot[V] {
		return Snapshot[V]{OwnerID: prev.OwnerID, Period: prev.Period.Next(), Value: s.Carry(prev.Value)}
	}
	if err := EnsurePopulated(tl, next); err != nil {
		return nil, fmt.Errorf("fill owner %d: %w", owner.ID, err)
	}
	return tl, nil
}

// seedWindowStart picks the snapshot for the first window month. Among equal
// periods the one encountered last wins, matching Insert's replace semantics.
func seedWindowStart[V Metric](raw []Snapshot[V], from core.Period, s Strategy[V], zeroAt func(core.Period) Snapshot[V]) Snapshot[V] {
	var (
		exact, before       Snapshot[V]
		hasExact, hasBefore bool
	)
	for _, r := range raw {
		switch {
		case r.Period == from:
			exact, hasExact = r, true
		case r.Period.Before(from):
			if !hasBefore || !r.Period.Before(before.Period) {
				before, hasBefore = r, true
			}
		}
	}

	switch {
	case hasExact:
		return exact
	case hasBefore:
		return Snapshot[V]{OwnerID: before.OwnerID, Period: from, Value: s.Carry(before.Value)}
	default:
		return zeroAt(from)
	}
}
