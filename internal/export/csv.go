// Package export renders populated timelines and calculation results as CSV,
// Markdown and XLSX, and reads snapshot imports from CSV.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"kontor/internal/core"
	"kontor/internal/timeline"
)

var ErrMalformedRow = errors.New("malformed import row")

// WriteTimelineCSV writes one row per month of tl, preceded by a header of
// period and the metric columns.
func WriteTimelineCSV[V timeline.Metric](w io.Writer, tl *timeline.Timeline[V]) error {
	var zero V
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"period"}, zero.Header()...)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, s := range tl.Snapshots() {
		if err := cw.Write(append([]string{s.Period.String()}, s.Value.Record()...)); err != nil {
			return fmt.Errorf("write csv row %s: %w", s.Period, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ImportBatch holds the snapshots read from one import file.
type ImportBatch struct {
	Budgets []timeline.Snapshot[timeline.Budget]
	Credits []timeline.Snapshot[timeline.Credit]
}

// Len returns the number of snapshots in the batch.
func (b ImportBatch) Len() int { return len(b.Budgets) + len(b.Credits) }

// ReadSnapshotCSV reads snapshot rows for owners of the given kind:
//
//	budget: owner_id,period,income,expenses
//	credit: owner_id,period,limit
//
// A leading header row starting with owner_id is skipped. Amounts accept a
// dot or comma decimal separator.
func ReadSnapshotCSV(r io.Reader, kind core.OwnerKind) (ImportBatch, error) {
	var want int
	switch kind {
	case core.KindBudget:
		want = 4
	case core.KindCredit:
		want = 3
	default:
		return ImportBatch{}, fmt.Errorf("%w: %q has no snapshots to import", core.ErrInvalidKind, kind)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var batch ImportBatch
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ImportBatch{}, fmt.Errorf("read line %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "owner_id") {
			continue
		}
		if len(rec) != want {
			return ImportBatch{}, fmt.Errorf("%w: line %d has %d fields, want %d", ErrMalformedRow, line, len(rec), want)
		}

		ownerID, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		if err != nil || ownerID <= 0 {
			return ImportBatch{}, fmt.Errorf("%w: line %d: bad owner id %q", ErrMalformedRow, line, rec[0])
		}
		period, err := core.ParsePeriod(strings.TrimSpace(rec[1]))
		if err != nil {
			return ImportBatch{}, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, err)
		}

		amounts := make([]decimal.Decimal, 0, want-2)
		for _, field := range rec[2:] {
			a, err := core.ParseAmount(field)
			if err != nil {
				return ImportBatch{}, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, err)
			}
			amounts = append(amounts, a)
		}

		switch kind {
		case core.KindBudget:
			batch.Budgets = append(batch.Budgets, timeline.Snapshot[timeline.Budget]{
				OwnerID: ownerID,
				Period:  period,
				Value:   timeline.Budget{Income: amounts[0], Expenses: amounts[1]},
			})
		case core.KindCredit:
			batch.Credits = append(batch.Credits, timeline.Snapshot[timeline.Credit]{
				OwnerID: ownerID,
				Period:  period,
				Value:   timeline.Credit{Limit: amounts[0]},
			})
		}
	}
	return batch, nil
}
