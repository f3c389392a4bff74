// Package calc runs the calculation cascade over populated owner timelines:
// per-owner totals first, then one aggregate per account category.
package calc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"kontor/internal/core"
)

var ErrDuplicateOwner = errors.New("duplicate owner in calculation input")

// CategoryResult aggregates the owner results of one category.
type CategoryResult struct {
	Category     core.Category
	StatusDate   core.Date
	Owners       int
	Populated    int
	Current      core.Figures
	YearToDate   core.Figures
	PreviousYear core.Figures
	Forecast     core.Figures
	ActiveMonths int
}

// Result is the output of one cascade run.
type Result struct {
	StatusDate core.Date
	Owners     map[int64]OwnerResult
	// Categories holds one entry per category seen in the input, ordered by number.
	Categories []CategoryResult
}

// Category returns the result of the category with the given number.
func (r *Result) Category(number int) (CategoryResult, bool) {
	for _, c := range r.Categories {
		if c.Category.Number == number {
			return c, true
		}
	}
	return CategoryResult{}, false
}

// Options configures a Calculator.
type Options struct {
	// Workers bounds how many owners or categories are evaluated at once (default: GOMAXPROCS)
	Workers int
}

// Calculator runs the cascade. It holds no per-run state and may be shared.
type Calculator struct {
	workers int
}

func New(opts Options) *Calculator {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Calculator{workers: workers}
}

// Calculate evaluates every input as of statusDate, then groups the owner
// results by category number and aggregates each group. The status date is
// truncated to a calendar day once and the same value feeds both phases.
func (c *Calculator) Calculate(ctx context.Context, inputs []Input, statusDate time.Time) (*Result, error) {
	status := core.DateOf(statusDate)

	seen := make(map[int64]struct{}, len(inputs))
	for _, in := range inputs {
		if _, dup := seen[in.Owner.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateOwner, in.Owner.ID)
		}
		seen[in.Owner.ID] = struct{}{}
	}

	ownerResults := make([]OwnerResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ownerResults[i] = Evaluate(in, status)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluate owners: %w", err)
	}

	groups := groupByCategory(ownerResults)
	categoryResults := make([]CategoryResult, len(groups))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			categoryResults[i] = Aggregate(group.category, status, group.results)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("aggregate categories: %w", err)
	}

	owners := make(map[int64]OwnerResult, len(ownerResults))
	for _, r := range ownerResults {
		owners[r.OwnerID] = r
	}

	slog.DebugContext(ctx, "Calculation cascade complete",
		"status_date", status.String(),
		"owners", len(owners),
		"categories", len(categoryResults))

	return &Result{StatusDate: status, Owners: owners, Categories: categoryResults}, nil
}

// Aggregate reduces the owner results of one category. The caller guarantees
// that results were evaluated for the same status date.
func Aggregate(category core.Category, status core.Date, results []OwnerResult) CategoryResult {
	agg := CategoryResult{Category: category, StatusDate: status, Owners: len(results)}
	for _, r := range results {
		if r.Populated {
			agg.Populated++
		}
		agg.Current = agg.Current.Add(r.Current)
		agg.YearToDate = agg.YearToDate.Add(r.YearToDate)
		agg.PreviousYear = agg.PreviousYear.Add(r.PreviousYear)
		agg.Forecast = agg.Forecast.Add(r.Forecast)
		agg.ActiveMonths += r.ActiveMonths
	}
	return agg
}

type categoryGroup struct {
	category core.Category
	results  []OwnerResult
}

// groupByCategory keys groups by category number. The first owner seen for a
// number supplies the category name.
func groupByCategory(results []OwnerResult) []categoryGroup {
	index := make(map[int]int)
	var groups []categoryGroup
	for _, r := range results {
		i, ok := index[r.Category.Number]
		if !ok {
			i = len(groups)
			index[r.Category.Number] = i
			groups = append(groups, categoryGroup{category: r.Category})
		}
		groups[i].results = append(groups[i].results, r)
	}
	sort.Slice(groups, func(a, b int) bool {
		return groups[a].category.Number < groups[b].category.Number
	})
	return groups
}
