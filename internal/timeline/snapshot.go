// Package timeline builds dense monthly timelines out of sparse snapshots.
//
// A Timeline holds at most one Snapshot per calendar month for a single owner.
// Populate seeds the boundaries of the analysis window around a status date and
// EnsurePopulated fills every missing month in between by carrying values forward.
package timeline

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"kontor/internal/core"
)

var (
	ErrNilOwner            = errors.New("owner is nil")
	ErrNilSnapshots        = errors.New("snapshot list is nil")
	ErrForeignSnapshot     = errors.New("snapshot belongs to another owner")
	ErrKindMismatch        = errors.New("owner kind does not match strategy")
	ErrBuilderNotAdvancing = errors.New("next-value builder did not advance exactly one month")
)

// Metric is the value a snapshot carries for one month.
type Metric interface {
	// Figures projects the value onto the numeric totals used by calculations.
	Figures() core.Figures
	// Header names the columns Record produces.
	Header() []string
	// Record renders the value for tabular exports.
	Record() []string
}

// Snapshot is one owner's recorded or synthesized value for one month.
type Snapshot[V Metric] struct {
	OwnerID int64
	Period  core.Period
	Value   V
}

// Budget is the income/expense pair recorded for a budget account.
type Budget struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

func (b Budget) Figures() core.Figures {
	return core.Figures{Income: b.Income, Expenses: b.Expenses}
}

func (Budget) Header() []string { return []string{"income", "expenses", "balance"} }

func (b Budget) Record() []string {
	return []string{b.Income.StringFixed(2), b.Expenses.StringFixed(2), b.Income.Sub(b.Expenses).StringFixed(2)}
}

// Credit is the credit limit recorded for a contact or financial account.
type Credit struct {
	Limit decimal.Decimal
}

func (c Credit) Figures() core.Figures {
	return core.Figures{Credit: c.Limit}
}

func (Credit) Header() []string { return []string{"credit"} }

func (c Credit) Record() []string { return []string{c.Limit.StringFixed(2)} }

// Presence marks that a structural owner exists in a month. It carries the
// owner's audit stamps and no numeric payload.
type Presence struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Presence) Figures() core.Figures { return core.Figures{} }

func (Presence) Header() []string { return []string{"created_at", "updated_at"} }

func (p Presence) Record() []string {
	return []string{formatStamp(p.CreatedAt), formatStamp(p.UpdatedAt)}
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
