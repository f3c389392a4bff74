package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	KindBudget  OwnerKind = "budget"
	KindCredit  OwnerKind = "credit"
	KindContact OwnerKind = "contact"
)

type (
	// OwnerKind tells which metric an owner's snapshots carry.
	OwnerKind string

	// Date is a calendar day without a time of day.
	Date struct {
		time.Time
	}

	// Category groups owners for aggregate reporting (an account group).
	Category struct {
		Number int
		Name   string
	}

	// Owner is an account-like entity owning one timeline per report.
	Owner struct {
		ID        int64
		Kind      OwnerKind
		Name      string
		Category  Category
		CreatedAt time.Time
		UpdatedAt time.Time
	}
)

var (
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrInvalidKind     = errors.New("invalid owner kind")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidCategory = errors.New("invalid category")
)

// ParseOwnerKind maps a user-supplied string onto a known kind.
func ParseOwnerKind(s string) (OwnerKind, error) {
	k := OwnerKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

func (k OwnerKind) Valid() bool {
	switch k {
	case KindBudget, KindCredit, KindContact:
		return true
	}
	return false
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Period returns the month the date falls in.
func (d Date) Period() Period {
	return PeriodOf(d.Time)
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (c Category) Validate() error {
	if c.Number <= 0 {
		return fmt.Errorf("%w: number must be positive, got %d", ErrInvalidCategory, c.Number)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCategory, ErrEmptyName)
	}
	return nil
}

func (o Owner) Validate() error {
	if !o.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, o.Kind)
	}
	if len(strings.TrimSpace(o.Name)) == 0 {
		return ErrEmptyName
	}
	if len(o.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	return o.Category.Validate()
}
