package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"

	"kontor/internal/amqp"
	"kontor/internal/core"
	"kontor/internal/export"
	"kontor/internal/log"
	"kontor/internal/services"
	"kontor/internal/storage"
)

var errMessagingDisabled = errors.New("messaging is disabled: set AMQP_URL to publish requests")

// recalculatePublisher is the part of the AMQP client the request command needs.
type recalculatePublisher interface {
	PublishRecalculate(ctx context.Context, req *amqp.RecalculateRequest) error
}

type runner struct {
	repo    *storage.SQLiteRepository
	reports *services.ReportService
	stdout  io.Writer
	stderr  io.Writer
	logger  *log.Logger
	now     func() time.Time
}

func (r *runner) addCategory(ctx context.Context, number int, name string) error {
	c := core.Category{Number: number, Name: name}
	if err := r.repo.UpsertCategory(ctx, c); err != nil {
		return err
	}
	fmt.Fprintf(r.stdout, "category %d %s\n", c.Number, c.Name)
	return nil
}

func (r *runner) addOwner(ctx context.Context, kind, name string, category int) error {
	k, err := core.ParseOwnerKind(kind)
	if err != nil {
		return err
	}
	o, err := r.repo.CreateOwner(ctx, core.Owner{Kind: k, Name: name, Category: core.Category{Number: category}})
	if err != nil {
		return err
	}
	fmt.Fprintf(r.stdout, "owner %d %s (%s, category %d)\n", o.ID, o.Name, o.Kind, o.Category.Number)
	return nil
}

func (r *runner) listOwners(ctx context.Context) error {
	owners, err := r.repo.ListOwners(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(r.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tNAME\tCATEGORY")
	for _, o := range owners {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d %s\n", o.ID, o.Kind, o.Name, o.Category.Number, o.Category.Name)
	}
	return tw.Flush()
}

func (r *runner) importFile(ctx context.Context, kind, path string) error {
	k, err := core.ParseOwnerKind(kind)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.importSnapshots(ctx, k, f)
}

func (r *runner) importSnapshots(ctx context.Context, kind core.OwnerKind, in io.Reader) error {
	batch, err := export.ReadSnapshotCSV(in, kind)
	if err != nil {
		return err
	}
	for _, s := range batch.Budgets {
		if err := r.reports.RecordBudget(ctx, s); err != nil {
			return err
		}
	}
	for _, s := range batch.Credits {
		if err := r.reports.RecordCredit(ctx, s); err != nil {
			return err
		}
	}
	r.logger.InfoContext(ctx, "Snapshots imported",
		log.FieldOperation, log.OpImport,
		log.FieldOwnerKind, string(kind),
		log.FieldCount, batch.Len())
	fmt.Fprintf(r.stdout, "imported %d %s snapshots\n", batch.Len(), kind)
	return nil
}

// timeline writes the populated timeline of one owner. A population failure
// is reported on stderr and is not a command error.
func (r *runner) timeline(ctx context.Context, ownerID int64, date, format string) error {
	status, err := r.statusDate(date)
	if err != nil {
		return err
	}
	tl, err := r.reports.OwnerTimeline(ctx, ownerID, status.Time)
	if err != nil {
		var failure services.OwnerFailure
		if errors.As(err, &failure) {
			fmt.Fprintf(r.stderr, "computation failed for owner %s\n", failure.OwnerName)
			return nil
		}
		return err
	}

	switch {
	case tl.Budget != nil && format == "md":
		return export.WriteTimelineMarkdown(r.stdout, tl.Owner, tl.Budget)
	case tl.Budget != nil:
		return export.WriteTimelineCSV(r.stdout, tl.Budget)
	case tl.Credit != nil && format == "md":
		return export.WriteTimelineMarkdown(r.stdout, tl.Owner, tl.Credit)
	case tl.Credit != nil:
		return export.WriteTimelineCSV(r.stdout, tl.Credit)
	case tl.Contact != nil && format == "md":
		return export.WriteTimelineMarkdown(r.stdout, tl.Owner, tl.Contact)
	case tl.Contact != nil:
		return export.WriteTimelineCSV(r.stdout, tl.Contact)
	}
	return fmt.Errorf("owner %d has no timeline", ownerID)
}

func (r *runner) totals(ctx context.Context, date, format, out, lang string) error {
	status, err := r.statusDate(date)
	if err != nil {
		return err
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("language %q: %w", lang, err)
	}
	report, err := r.reports.Report(ctx, status.Time)
	if err != nil {
		return err
	}
	for _, f := range report.Failures {
		fmt.Fprintf(r.stderr, "computation failed for owner %s\n", f.OwnerName)
	}

	w := r.stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "xlsx":
		data, err := export.WorkbookXLSX(report)
		if err != nil {
			return fmt.Errorf("render workbook: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	default:
		if err := export.WriteTotalsMarkdown(w, report.Result, tag); err != nil {
			return err
		}
	}
	if f, ok := w.(*os.File); ok && f != os.Stdout {
		return f.Close()
	}
	return nil
}

func (r *runner) request(ctx context.Context, publisher recalculatePublisher, date string) error {
	status, err := r.statusDate(date)
	if err != nil {
		return err
	}
	req := amqp.NewRecalculateRequest(status, amqp.SourceCLI)
	if err := publisher.PublishRecalculate(ctx, req); err != nil {
		return fmt.Errorf("publish recalculation request: %w", err)
	}
	r.logger.InfoContext(ctx, "Recalculation requested",
		log.FieldOperation, log.OpPublish,
		log.FieldRequestID, req.RequestID.String(),
		log.FieldStatusDate, req.StatusDate)
	fmt.Fprintf(r.stdout, "requested %s for %s\n", req.RequestID, req.StatusDate)
	return nil
}

// statusDate parses date, defaulting to today.
func (r *runner) statusDate(date string) (core.Date, error) {
	if date == "" {
		return core.DateOf(r.now()), nil
	}
	return core.ParseDate(date)
}
