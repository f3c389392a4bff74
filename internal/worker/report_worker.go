// Package worker turns recalculation requests into published reports.
package worker

import (
	"context"
	"fmt"
	"time"

	"kontor/internal/amqp"
	"kontor/internal/core"
	"kontor/internal/log"
	"kontor/internal/services"
)

// ReportBuilder builds reports and drops stale ones.
type ReportBuilder interface {
	Report(ctx context.Context, statusDate time.Time) (*services.Report, error)
	Invalidate()
}

// ResultPublisher announces finished reports.
type ResultPublisher interface {
	PublishReportReady(ctx context.Context, msg *amqp.ReportReady) error
}

// ReportWorker handles recalculation requests from the queue and the scheduler.
type ReportWorker struct {
	reports   ReportBuilder
	publisher ResultPublisher
	logger    *log.Logger
	now       func() time.Time
}

// NewReportWorker creates a worker. publisher may be nil, in which case
// reports are built but not announced.
func NewReportWorker(reports ReportBuilder, publisher ResultPublisher, logger *log.Logger) *ReportWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReportWorker{
		reports:   reports,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentWorker),
		now:       time.Now,
	}
}

// HandleRecalculate rebuilds the report for the requested status date and
// publishes its summary. Per-owner failures are part of the summary; only
// storage and publish errors are returned.
func (w *ReportWorker) HandleRecalculate(ctx context.Context, req *amqp.RecalculateRequest) error {
	date, err := req.Date()
	if err != nil {
		return fmt.Errorf("request %s: %w", req.RequestID, err)
	}

	logger := w.logger.WithFields(log.NewFields().
		WithRequestID(req.RequestID.String()).
		WithStatusDate(date))
	ctx = log.WithContext(ctx, logger)
	logger.InfoContext(ctx, "Processing recalculation request", "source", req.Source)

	w.reports.Invalidate()
	report, err := w.reports.Report(ctx, date.Time)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	failures := make([]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		failures = append(failures, f.Error())
	}

	if w.publisher == nil {
		logger.WarnContext(ctx, "AMQP publisher not available, skipping report ready message")
		return nil
	}
	if err := w.publisher.PublishReportReady(ctx, amqp.NewReportReady(req.RequestID, report.Result, failures)); err != nil {
		return fmt.Errorf("publish report ready: %w", err)
	}

	logger.InfoContext(ctx, "Recalculation complete",
		"categories", len(report.Result.Categories),
		"failures", len(failures))
	return nil
}

// RunScheduled recalculates the report for the current day.
func (w *ReportWorker) RunScheduled(ctx context.Context) error {
	return w.HandleRecalculate(ctx, amqp.NewRecalculateRequest(core.DateOf(w.now()), amqp.SourceSchedule))
}
