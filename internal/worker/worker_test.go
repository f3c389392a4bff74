package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kontor/internal/amqp"
	"kontor/internal/calc"
	"kontor/internal/core"
	"kontor/internal/services"
	"kontor/internal/timeline"
)

type fakeReports struct {
	calls       []time.Time
	invalidated int
	err         error
}

func (f *fakeReports) Report(_ context.Context, statusDate time.Time) (*services.Report, error) {
	f.calls = append(f.calls, statusDate)
	if f.err != nil {
		return nil, f.err
	}
	return &services.Report{
		StatusDate: core.DateOf(statusDate),
		Result: &calc.Result{
			StatusDate: core.DateOf(statusDate),
			Owners:     map[int64]calc.OwnerResult{},
			Categories: []calc.CategoryResult{{Category: core.Category{Number: 10, Name: "Costs"}, Owners: 1}},
		},
		Failures: []services.OwnerFailure{{OwnerID: 3, OwnerName: "Broken", Err: timeline.ErrForeignSnapshot}},
	}, nil
}

func (f *fakeReports) Invalidate() { f.invalidated++ }

type fakePublisher struct {
	sent []*amqp.ReportReady
	err  error
}

func (f *fakePublisher) PublishReportReady(_ context.Context, msg *amqp.ReportReady) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestHandleRecalculatePublishesSummary(t *testing.T) {
	reports, publisher := &fakeReports{}, &fakePublisher{}
	w := NewReportWorker(reports, publisher, nil)

	req := amqp.NewRecalculateRequest(core.NewDate(2024, 6, 15), amqp.SourceCLI)
	require.NoError(t, w.HandleRecalculate(context.Background(), req))

	require.Len(t, reports.calls, 1)
	assert.Equal(t, core.NewDate(2024, 6, 15).Time, reports.calls[0])
	assert.Equal(t, 1, reports.invalidated)

	require.Len(t, publisher.sent, 1)
	msg := publisher.sent[0]
	assert.Equal(t, req.RequestID, msg.RequestID)
	assert.Equal(t, "2024-06-15", msg.StatusDate)
	assert.Equal(t, []string{"computation failed for owner Broken: " + timeline.ErrForeignSnapshot.Error()}, msg.Failures)
	require.Len(t, msg.Categories, 1)
	assert.Equal(t, 10, msg.Categories[0].Number)
}

func TestHandleRecalculateErrors(t *testing.T) {
	req := amqp.NewRecalculateRequest(core.NewDate(2024, 6, 15), amqp.SourceCLI)

	storageErr := errors.New("disk gone")
	err := NewReportWorker(&fakeReports{err: storageErr}, &fakePublisher{}, nil).HandleRecalculate(context.Background(), req)
	assert.ErrorIs(t, err, storageErr)

	publishErr := errors.New("circuit breaker is open")
	err = NewReportWorker(&fakeReports{}, &fakePublisher{err: publishErr}, nil).HandleRecalculate(context.Background(), req)
	assert.ErrorIs(t, err, publishErr)

	bad := &amqp.RecalculateRequest{RequestID: req.RequestID, StatusDate: "yesterday"}
	assert.Error(t, NewReportWorker(&fakeReports{}, nil, nil).HandleRecalculate(context.Background(), bad))
}

func TestHandleRecalculateWithoutPublisher(t *testing.T) {
	reports := &fakeReports{}
	w := NewReportWorker(reports, nil, nil)
	require.NoError(t, w.HandleRecalculate(context.Background(), amqp.NewRecalculateRequest(core.NewDate(2024, 1, 1), amqp.SourceCLI)))
	assert.Len(t, reports.calls, 1)
}

func TestRunScheduledUsesToday(t *testing.T) {
	reports, publisher := &fakeReports{}, &fakePublisher{}
	w := NewReportWorker(reports, publisher, nil)
	w.now = func() time.Time { return time.Date(2024, 6, 15, 2, 0, 0, 0, time.UTC) }

	require.NoError(t, w.RunScheduled(context.Background()))
	require.Len(t, publisher.sent, 1)
	assert.Equal(t, "2024-06-15", publisher.sent[0].StatusDate)
}

func TestScheduler(t *testing.T) {
	_, err := NewScheduler("every night", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Error(t, ValidateSchedule("61 * * * *"))
	assert.NoError(t, ValidateSchedule("0 2 * * *"))

	s, err := NewScheduler("0 2 * * *", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.True(t, s.Next().IsZero())

	require.NoError(t, s.Start(context.Background()))
	next := s.Next()
	assert.True(t, next.After(time.Now()))
	assert.Equal(t, 2, next.UTC().Hour())
	assert.Equal(t, 0, next.Minute())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
