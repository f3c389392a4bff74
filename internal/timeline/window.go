package timeline

import (
	"time"

	"kontor/internal/core"
)

// lookAheadMonths is how far past the status month a window reaches.
const lookAheadMonths = 11

// Window is the inclusive [From, To] analysis range of a report.
type Window struct {
	From core.Period
	To   core.Period
}

// ResolveWindow computes the analysis window for a status date: from January of
// the previous year through the month eleven months after the status month.
func ResolveWindow(statusDate time.Time) Window {
	status := core.PeriodOf(statusDate)
	return Window{
		From: core.Period{Year: statusDate.Year() - 1, Month: time.January},
		To:   status.AddMonths(lookAheadMonths),
	}
}

// Contains reports whether p lies within the window, bounds included.
func (w Window) Contains(p core.Period) bool {
	return !p.Before(w.From) && !p.After(w.To)
}

// Months is the number of calendar months the window spans.
func (w Window) Months() int {
	return w.From.MonthsUntil(w.To) + 1
}
