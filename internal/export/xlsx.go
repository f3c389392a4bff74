package export

import (
	"dario.cat/mergo"
	"github.com/xuri/excelize/v2"

	"kontor/internal/calc"
	"kontor/internal/core"
	"kontor/internal/services"
	"kontor/internal/timeline"
)

const (
	sheetTotals   = "Totals"
	sheetBudgets  = "Budgets"
	sheetCredits  = "Credits"
	sheetFailures = "Failures"
)

// WorkbookXLSX renders a report as a workbook: category totals, then one
// month grid per value-bearing kind, then the owners that failed.
func WorkbookXLSX(report *services.Report) ([]byte, error) {
	xlsx := excelize.NewFile()
	defer xlsx.Close()

	_ = xlsx.SetAppProps(&excelize.AppProperties{
		Application: "kontor",
		DocSecurity: 2,
	})

	first := xlsx.GetSheetName(xlsx.GetActiveSheetIndex())
	if err := xlsx.SetSheetName(first, sheetTotals); err != nil {
		return nil, err
	}
	writeTotalsSheet(xlsx, sheetTotals, report.Result)

	months := windowMonths(report.Window)
	if _, err := xlsx.NewSheet(sheetBudgets); err != nil {
		return nil, err
	}
	writeMonthGrid(xlsx, sheetBudgets, months, report, func(tl *services.OwnerTimeline, p core.Period) (float64, bool) {
		if tl.Budget == nil {
			return 0, false
		}
		s, ok := tl.Budget.Get(p)
		return s.Value.Figures().Balance().InexactFloat64(), ok
	})

	if _, err := xlsx.NewSheet(sheetCredits); err != nil {
		return nil, err
	}
	writeMonthGrid(xlsx, sheetCredits, months, report, func(tl *services.OwnerTimeline, p core.Period) (float64, bool) {
		if tl.Credit == nil {
			return 0, false
		}
		s, ok := tl.Credit.Get(p)
		return s.Value.Limit.InexactFloat64(), ok
	})

	if len(report.Failures) > 0 {
		if _, err := xlsx.NewSheet(sheetFailures); err != nil {
			return nil, err
		}
		writeFailures(xlsx, sheetFailures, report.Failures)
	}

	buf, err := xlsx.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTotalsSheet(xlsx *excelize.File, sheet string, res *calc.Result) {
	_ = xlsx.SetColWidth(sheet, "A", "A", 10)
	_ = xlsx.SetColWidth(sheet, "B", "B", 40)
	_ = xlsx.SetColWidth(sheet, "C", "M", 15)

	header := []any{"Category", "Name", "Owners", "Populated",
		"Current", "Year to date", "Previous year", "Forecast",
		"Credit", "Credit YTD", "Credit prev. year", "Credit forecast", "Active months"}
	_ = xlsx.SetSheetRow(sheet, cell(1, 1), &header)
	style, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), fontBold(), thinBorder("bottom")))
	_ = xlsx.SetCellStyle(sheet, cell(1, 1), cell(len(header), 1), style)

	numStyle, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), numberFormat()))
	row := 2
	for _, c := range res.Categories {
		values := []any{
			c.Category.Number, c.Category.Name, c.Owners, c.Populated,
			c.Current.Balance().InexactFloat64(),
			c.YearToDate.Balance().InexactFloat64(),
			c.PreviousYear.Balance().InexactFloat64(),
			c.Forecast.Balance().InexactFloat64(),
			c.Current.Credit.InexactFloat64(),
			c.YearToDate.Credit.InexactFloat64(),
			c.PreviousYear.Credit.InexactFloat64(),
			c.Forecast.Credit.InexactFloat64(),
			c.ActiveMonths,
		}
		_ = xlsx.SetSheetRow(sheet, cell(1, row), &values)
		_ = xlsx.SetCellStyle(sheet, cell(5, row), cell(12, row), numStyle)
		row++
	}

	if row > 2 {
		_ = xlsx.SetCellValue(sheet, cell(2, row), "Total")
		for col := 3; col <= len(header); col++ {
			if col == 4 {
				continue
			}
			_ = xlsx.SetCellFormula(sheet, cell(col, row), "SUM("+cell(col, 2)+":"+cell(col, row-1)+")")
		}
		style, _ = xlsx.NewStyle(mergeStyles(defaultStyle(), fontBold(), numberFormat(), thickBorder("top")))
		_ = xlsx.SetCellStyle(sheet, cell(1, row), cell(len(header), row), style)
	}
}

func writeMonthGrid(xlsx *excelize.File, sheet string, months []core.Period, report *services.Report, value func(*services.OwnerTimeline, core.Period) (float64, bool)) {
	_ = xlsx.SetColWidth(sheet, "A", "A", 8)
	_ = xlsx.SetColWidth(sheet, "B", "B", 40)

	_ = xlsx.SetCellValue(sheet, cell(1, 1), "Owner")
	_ = xlsx.SetCellValue(sheet, cell(2, 1), "Name")
	for i, p := range months {
		_ = xlsx.SetCellValue(sheet, cell(3+i, 1), p.String())
	}
	style, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), fontBold(), thinBorder("bottom"), textAlignment("right")))
	_ = xlsx.SetCellStyle(sheet, cell(1, 1), cell(2+len(months), 1), style)

	numStyle, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), numberFormat()))
	row := 2
	for _, owner := range report.Owners {
		tl, ok := report.Timelines[owner.ID]
		if !ok {
			continue
		}
		wrote := false
		for i, p := range months {
			if v, ok := value(tl, p); ok {
				_ = xlsx.SetCellValue(sheet, cell(3+i, row), v)
				wrote = true
			}
		}
		if !wrote {
			continue
		}
		_ = xlsx.SetCellInt(sheet, cell(1, row), int(owner.ID))
		_ = xlsx.SetCellValue(sheet, cell(2, row), owner.Name)
		_ = xlsx.SetCellStyle(sheet, cell(3, row), cell(2+len(months), row), numStyle)
		row++
	}
	_ = xlsx.SetPanes(sheet, &excelize.Panes{Freeze: true, XSplit: 2, YSplit: 1, TopLeftCell: "C2", ActivePane: "bottomRight"})
}

func writeFailures(xlsx *excelize.File, sheet string, failures []services.OwnerFailure) {
	_ = xlsx.SetColWidth(sheet, "B", "C", 50)
	header := []any{"Owner", "Name", "Error"}
	_ = xlsx.SetSheetRow(sheet, "A1", &header)
	style, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), fontBold(), thinBorder("bottom")))
	_ = xlsx.SetCellStyle(sheet, "A1", "C1", style)
	for i, f := range failures {
		values := []any{f.OwnerID, f.OwnerName, f.Err.Error()}
		_ = xlsx.SetSheetRow(sheet, cell(1, i+2), &values)
	}
}

func windowMonths(w timeline.Window) []core.Period {
	months := make([]core.Period, 0, w.Months())
	for p := w.From; !p.After(w.To); p = p.Next() {
		months = append(months, p)
	}
	return months
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func defaultStyle() *excelize.Style {
	return &excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#FFFFFF"},
			Pattern: 1,
		},
	}
}

func numberFormat() *excelize.Style {
	f := "#,##0.00"
	return &excelize.Style{CustomNumFmt: &f}
}

func fontBold() *excelize.Style {
	return &excelize.Style{Font: &excelize.Font{Bold: true}}
}

func textAlignment(a string) *excelize.Style {
	return &excelize.Style{Alignment: &excelize.Alignment{Horizontal: a}}
}

func thinBorder(where ...string) *excelize.Style {
	return border(1, where...)
}

func thickBorder(where ...string) *excelize.Style {
	return border(2, where...)
}

func border(style int, where ...string) *excelize.Style {
	s := &excelize.Style{}
	for _, w := range where {
		s.Border = append(s.Border, excelize.Border{Type: w, Color: "#000000", Style: style})
	}
	return s
}

// mergeStyles folds ext[1:] into ext[0], later styles winning.
func mergeStyles(ext ...*excelize.Style) *excelize.Style {
	if len(ext) == 0 {
		return nil
	}
	for _, e := range ext[1:] {
		_ = mergo.Merge(ext[0], e, mergo.WithOverride)
	}
	return ext[0]
}
