package calc

import (
	"time"

	"kontor/internal/core"
)

// Series is the read-only view of a populated timeline the cascade needs.
// Every *timeline.Timeline satisfies it.
type Series interface {
	Bounds() (first, last core.Period, ok bool)
	FiguresAt(p core.Period) (core.Figures, bool)
}

// Input pairs an owner with its populated timeline. Series is nil when
// population was skipped or failed for the owner.
type Input struct {
	Owner  core.Owner
	Series Series
}

// OwnerResult holds the totals of one owner as of a status date.
//
// Budget owners sum monthly figures over each range. Credit owners report the
// closing value of each range. Contact owners carry no figures and count the
// months they were active instead.
type OwnerResult struct {
	OwnerID      int64
	Kind         core.OwnerKind
	Category     core.Category
	StatusDate   core.Date
	Populated    bool
	Current      core.Figures
	YearToDate   core.Figures
	PreviousYear core.Figures
	Forecast     core.Figures
	ActiveMonths int
}

// Evaluate computes the result of a single owner. It only reads the series.
func Evaluate(in Input, status core.Date) OwnerResult {
	res := OwnerResult{
		OwnerID:    in.Owner.ID,
		Kind:       in.Owner.Kind,
		Category:   in.Owner.Category,
		StatusDate: status,
	}
	if in.Series == nil {
		return res
	}
	first, last, ok := in.Series.Bounds()
	if !ok {
		return res
	}
	res.Populated = true

	p := status.Period()
	yearStart := core.Period{Year: p.Year, Month: 1}
	prevStart := core.Period{Year: p.Year - 1, Month: 1}
	prevEnd := core.Period{Year: p.Year - 1, Month: 12}

	r := ranger{series: in.Series, first: first, last: last}
	switch in.Owner.Kind {
	case core.KindBudget:
		res.Current = r.sum(p, p)
		res.YearToDate = r.sum(yearStart, p)
		res.PreviousYear = r.sum(prevStart, prevEnd)
		res.Forecast = r.sum(p.Next(), last)
	case core.KindCredit:
		res.Current = r.closing(p, p)
		res.YearToDate = r.closing(yearStart, p)
		res.PreviousYear = r.closing(prevStart, prevEnd)
		res.Forecast = r.closing(p.Next(), last)
	case core.KindContact:
		res.ActiveMonths = r.activeMonths(first, p, in.Owner.CreatedAt.UTC())
	}
	return res
}

type ranger struct {
	series      Series
	first, last core.Period
}

// clamp narrows [from, to] to the series bounds; ok is false when nothing is left.
func (r ranger) clamp(from, to core.Period) (core.Period, core.Period, bool) {
	if from.Before(r.first) {
		from = r.first
	}
	if to.After(r.last) {
		to = r.last
	}
	return from, to, !from.After(to)
}

func (r ranger) sum(from, to core.Period) core.Figures {
	var total core.Figures
	from, to, ok := r.clamp(from, to)
	if !ok {
		return total
	}
	for p := from; !p.After(to); p = p.Next() {
		if f, ok := r.series.FiguresAt(p); ok {
			total = total.Add(f)
		}
	}
	return total
}

func (r ranger) closing(from, to core.Period) core.Figures {
	_, to, ok := r.clamp(from, to)
	if !ok {
		return core.Figures{}
	}
	f, _ := r.series.FiguresAt(to)
	return f
}

// activeMonths counts the present months in [from, to] whose last day is not
// before createdAt.
func (r ranger) activeMonths(from, to core.Period, createdAt time.Time) int {
	from, to, ok := r.clamp(from, to)
	if !ok {
		return 0
	}
	n := 0
	for p := from; !p.After(to); p = p.Next() {
		if _, ok := r.series.FiguresAt(p); !ok {
			continue
		}
		if !createdAt.IsZero() && p.LastDay().Before(core.DateOf(createdAt).Time) {
			continue
		}
		n++
	}
	return n
}
