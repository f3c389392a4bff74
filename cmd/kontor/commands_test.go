package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kontor/internal/amqp"
	"kontor/internal/log"
	"kontor/internal/services"
	"kontor/internal/storage"
)

func newTestRunner(t *testing.T) (*runner, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "kontor.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	logger := log.New(log.Config{Output: io.Discard, Component: log.ComponentCLI})
	var stdout, stderr bytes.Buffer
	return &runner{
		repo:    repo,
		reports: services.NewReportService(repo, services.ReportServiceConfig{Workers: 2}).WithLogger(logger),
		stdout:  &stdout,
		stderr:  &stderr,
		logger:  logger,
		now:     func() time.Time { return time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC) },
	}, &stdout, &stderr
}

func TestImportAndTimeline(t *testing.T) {
	r, stdout, stderr := newTestRunner(t)
	ctx := context.Background()

	if err := r.addCategory(ctx, 10, "Costs"); err != nil {
		t.Fatal(err)
	}
	if err := r.addOwner(ctx, "budget", "Rent", 10); err != nil {
		t.Fatal(err)
	}

	csv := "owner_id,period,income,expenses\n1,2024-03,100,40\n"
	if err := r.importSnapshots(ctx, "budget", strings.NewReader(csv)); err != nil {
		t.Fatalf("importSnapshots() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "imported 1 budget snapshots") {
		t.Errorf("stdout = %q", stdout.String())
	}

	stdout.Reset()
	if err := r.timeline(ctx, 1, "", "csv"); err != nil {
		t.Fatalf("timeline() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if lines[0] != "period,income,expenses,balance" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 30 {
		t.Errorf("got %d lines, want header plus 29 months", len(lines))
	}
	if !strings.Contains(stdout.String(), "2024-03,100.00,40.00,60.00") {
		t.Errorf("recorded month missing from output:\n%s", stdout.String())
	}
	if stderr.Len() != 0 {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestTotalsMarkdown(t *testing.T) {
	r, stdout, _ := newTestRunner(t)
	ctx := context.Background()

	if err := r.addCategory(ctx, 10, "Costs"); err != nil {
		t.Fatal(err)
	}
	if err := r.addOwner(ctx, "contact", "ACME", 10); err != nil {
		t.Fatal(err)
	}
	stdout.Reset()

	if err := r.totals(ctx, "2024-06-15", "md", "", "en"); err != nil {
		t.Fatalf("totals() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "# Totals as of 2024-06-15") || !strings.Contains(stdout.String(), "Costs") {
		t.Errorf("unexpected totals:\n%s", stdout.String())
	}

	if err := r.totals(ctx, "15/06/2024", "md", "", "en"); err == nil {
		t.Error("expected an error for a malformed date")
	}
}

func TestTotalsWorkbookFile(t *testing.T) {
	r, _, _ := newTestRunner(t)
	out := filepath.Join(t.TempDir(), "totals.xlsx")

	if err := r.totals(context.Background(), "", "xlsx", out, "de"); err != nil {
		t.Fatalf("totals() error = %v", err)
	}
}

func TestAddOwnerRejectsUnknownCategory(t *testing.T) {
	r, _, _ := newTestRunner(t)
	err := r.addOwner(context.Background(), "budget", "Rent", 99)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("addOwner() error = %v, want ErrNotFound", err)
	}
}

type fakePublisher struct {
	got *amqp.RecalculateRequest
	err error
}

func (f *fakePublisher) PublishRecalculate(_ context.Context, req *amqp.RecalculateRequest) error {
	f.got = req
	return f.err
}

func TestRequest(t *testing.T) {
	r, stdout, _ := newTestRunner(t)
	pub := &fakePublisher{}

	if err := r.request(context.Background(), pub, ""); err != nil {
		t.Fatalf("request() error = %v", err)
	}
	if pub.got == nil || pub.got.StatusDate != "2024-06-15" || pub.got.Source != amqp.SourceCLI {
		t.Errorf("published %+v", pub.got)
	}
	if !strings.Contains(stdout.String(), pub.got.RequestID.String()) {
		t.Errorf("stdout = %q", stdout.String())
	}

	pub.err = amqp.ErrCircuitOpen
	if err := r.request(context.Background(), pub, "2024-01-31"); !errors.Is(err, amqp.ErrCircuitOpen) {
		t.Errorf("request() error = %v, want ErrCircuitOpen", err)
	}
}
