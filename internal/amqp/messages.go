package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"kontor/internal/calc"
	"kontor/internal/core"
)

var ErrInvalidMessage = errors.New("invalid message")

// Request sources
const (
	SourceCLI      = "cli"
	SourceSchedule = "schedule"
)

// RecalculateRequest asks the worker to rebuild the report of a status date.
type RecalculateRequest struct {
	RequestID   uuid.UUID `json:"request_id"`
	StatusDate  string    `json:"status_date"`
	Source      string    `json:"source,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRecalculateRequest creates a request with a fresh ID.
func NewRecalculateRequest(statusDate core.Date, source string) *RecalculateRequest {
	return &RecalculateRequest{
		RequestID:   uuid.New(),
		StatusDate:  statusDate.String(),
		Source:      source,
		RequestedAt: time.Now().UTC(),
	}
}

// Date parses the requested status date.
func (m *RecalculateRequest) Date() (core.Date, error) {
	return core.ParseDate(m.StatusDate)
}

// ToJSON converts the message to JSON bytes
func (m *RecalculateRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecalculateRequestFromJSON decodes and validates a request.
func RecalculateRequestFromJSON(data []byte) (*RecalculateRequest, error) {
	var msg RecalculateRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if msg.RequestID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing request_id", ErrInvalidMessage)
	}
	if _, err := msg.Date(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return &msg, nil
}

// CategoryTotal is the published summary of one category result.
type CategoryTotal struct {
	Number       int             `json:"number"`
	Name         string          `json:"name"`
	Owners       int             `json:"owners"`
	Populated    int             `json:"populated"`
	Current      decimal.Decimal `json:"current"`
	YearToDate   decimal.Decimal `json:"year_to_date"`
	PreviousYear decimal.Decimal `json:"previous_year"`
	Forecast     decimal.Decimal `json:"forecast"`
	Credit       decimal.Decimal `json:"credit"`
	ActiveMonths int             `json:"active_months"`
}

// ReportReady announces a finished report.
type ReportReady struct {
	RequestID   uuid.UUID       `json:"request_id"`
	StatusDate  string          `json:"status_date"`
	GeneratedAt time.Time       `json:"generated_at"`
	Owners      int             `json:"owners"`
	Failures    []string        `json:"failures"`
	Categories  []CategoryTotal `json:"categories"`
}

// NewReportReady summarises res. Balances are income minus expenses; credit
// is the current closing limit.
func NewReportReady(requestID uuid.UUID, res *calc.Result, failures []string) *ReportReady {
	msg := &ReportReady{
		RequestID:   requestID,
		StatusDate:  res.StatusDate.String(),
		GeneratedAt: time.Now().UTC(),
		Owners:      len(res.Owners),
		Failures:    failures,
		Categories:  make([]CategoryTotal, 0, len(res.Categories)),
	}
	if msg.Failures == nil {
		msg.Failures = []string{}
	}
	for _, c := range res.Categories {
		msg.Categories = append(msg.Categories, CategoryTotal{
			Number:       c.Category.Number,
			Name:         c.Category.Name,
			Owners:       c.Owners,
			Populated:    c.Populated,
			Current:      c.Current.Balance(),
			YearToDate:   c.YearToDate.Balance(),
			PreviousYear: c.PreviousYear.Balance(),
			Forecast:     c.Forecast.Balance(),
			Credit:       c.Current.Credit,
			ActiveMonths: c.ActiveMonths,
		})
	}
	return msg
}

// ToJSON converts the message to JSON bytes
func (m *ReportReady) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportReadyFromJSON(data []byte) (*ReportReady, error) {
	var msg ReportReady
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return &msg, nil
}
