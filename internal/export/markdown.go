package export

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"kontor/internal/calc"
	"kontor/internal/core"
	"kontor/internal/timeline"
)

// WriteTimelineMarkdown renders tl as a titled pipe table.
func WriteTimelineMarkdown[V timeline.Metric](w io.Writer, owner core.Owner, tl *timeline.Timeline[V]) error {
	var zero V
	header := append([]string{"period"}, zero.Header()...)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s (%s, category %d)\n\n", owner.Name, owner.Kind, owner.Category.Number)
	writeRow(&b, header)
	writeRule(&b, len(header))
	for _, s := range tl.Snapshots() {
		writeRow(&b, append([]string{s.Period.String()}, s.Value.Record()...))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteTotalsMarkdown renders one row per category result, formatting
// numbers for the given language.
func WriteTotalsMarkdown(w io.Writer, res *calc.Result, tag language.Tag) error {
	p := message.NewPrinter(tag)

	var b strings.Builder
	fmt.Fprintf(&b, "# Totals as of %s\n\n", res.StatusDate)
	header := []string{"category", "name", "owners", "current", "year to date", "previous year", "forecast", "credit", "active months"}
	writeRow(&b, header)
	writeRule(&b, len(header))

	for _, c := range res.Categories {
		writeRow(&b, totalsRow(p, fmt.Sprint(c.Category.Number), c.Category.Name, c))
	}
	writeRow(&b, totalsRow(p, "", "**total**", sumCategories(res)))

	_, err := io.WriteString(w, b.String())
	return err
}

func totalsRow(p *message.Printer, number, name string, c calc.CategoryResult) []string {
	return []string{
		number,
		name,
		p.Sprint(c.Owners),
		amount(p, c.Current.Balance()),
		amount(p, c.YearToDate.Balance()),
		amount(p, c.PreviousYear.Balance()),
		amount(p, c.Forecast.Balance()),
		amount(p, c.Current.Credit),
		p.Sprint(c.ActiveMonths),
	}
}

func sumCategories(res *calc.Result) calc.CategoryResult {
	var total calc.CategoryResult
	for _, c := range res.Categories {
		total.Owners += c.Owners
		total.Populated += c.Populated
		total.Current = total.Current.Add(c.Current)
		total.YearToDate = total.YearToDate.Add(c.YearToDate)
		total.PreviousYear = total.PreviousYear.Add(c.PreviousYear)
		total.Forecast = total.Forecast.Add(c.Forecast)
		total.ActiveMonths += c.ActiveMonths
	}
	return total
}

// amount renders d with two decimals in the printer's locale. The digits come
// from the decimal itself; only the separators are taken from the printer.
func amount(p *message.Printer, d decimal.Decimal) string {
	group, point := separators(p)
	digits, neg := strings.CutPrefix(d.Round(2).StringFixed(2), "-")
	whole, frac, _ := strings.Cut(digits, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(group)
		}
		b.WriteRune(r)
	}
	b.WriteString(point)
	b.WriteString(frac)
	return b.String()
}

// separators returns the grouping and decimal separators of p's locale.
func separators(p *message.Printer) (group, point string) {
	sample := []rune(p.Sprintf("%.2f", 1234567.5))
	if len(sample) < 4 {
		return "", "."
	}
	if !unicode.IsDigit(sample[1]) {
		group = string(sample[1])
	}
	return group, string(sample[len(sample)-3])
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(strings.ReplaceAll(c, "|", `\|`))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

func writeRule(b *strings.Builder, n int) {
	b.WriteString("|")
	for i := 0; i < n; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
}
