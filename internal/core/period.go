package core

import (
	"fmt"
	"time"
)

// Period is a single calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// NewPeriod creates a period, rejecting months outside 1..12.
func NewPeriod(year int, month time.Month) (Period, error) {
	p := Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// MustPeriod is NewPeriod for constant inputs; it panics on an invalid month.
func MustPeriod(year int, month time.Month) Period {
	p, err := NewPeriod(year, month)
	if err != nil {
		panic(err)
	}
	return p
}

// PeriodOf returns the month t falls in.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses the "2006-01" form produced by String.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return PeriodOf(t), nil
}

func (p Period) Validate() error {
	if p.Month < time.January || p.Month > time.December {
		return fmt.Errorf("%w: month %d", ErrInvalidPeriod, int(p.Month))
	}
	return nil
}

// FirstDay returns midnight UTC of the first day of the month.
func (p Period) FirstDay() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// LastDay returns midnight UTC of the last day of the month.
func (p Period) LastDay() time.Time {
	return time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, time.UTC)
}

// AddMonths shifts the period by n months (n may be negative).
func (p Period) AddMonths(n int) Period {
	idx := p.index() + n
	return Period{Year: floorDiv(idx, 12), Month: time.Month(idx-floorDiv(idx, 12)*12) + 1}
}

// Next is the following calendar month.
func (p Period) Next() Period {
	return p.AddMonths(1)
}

// Compare returns -1, 0 or +1 ordering by year, then month.
func (p Period) Compare(o Period) int {
	switch {
	case p.Year < o.Year:
		return -1
	case p.Year > o.Year:
		return 1
	case p.Month < o.Month:
		return -1
	case p.Month > o.Month:
		return 1
	}
	return 0
}

func (p Period) Before(o Period) bool { return p.Compare(o) < 0 }
func (p Period) After(o Period) bool  { return p.Compare(o) > 0 }
func (p Period) Equal(o Period) bool  { return p.Compare(o) == 0 }

// MonthsUntil returns the number of months from p to o, negative when o is earlier.
func (p Period) MonthsUntil(o Period) int {
	return o.index() - p.index()
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) index() int {
	return p.Year*12 + int(p.Month) - 1
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
