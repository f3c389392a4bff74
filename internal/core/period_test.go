package core

import (
	"errors"
	"testing"
	"time"
)

func TestNewPeriodRejectsInvalidMonth(t *testing.T) {
	for _, m := range []time.Month{0, 13, -1} {
		if _, err := NewPeriod(2024, m); !errors.Is(err, ErrInvalidPeriod) {
			t.Fatalf("month %d: expected ErrInvalidPeriod, got %v", m, err)
		}
	}
	if _, err := NewPeriod(2024, time.December); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestPeriodBoundaries(t *testing.T) {
	cases := []struct {
		p     Period
		first string
		last  string
	}{
		{MustPeriod(2024, time.February), "2024-02-01", "2024-02-29"},
		{MustPeriod(2023, time.February), "2023-02-01", "2023-02-28"},
		{MustPeriod(2023, time.December), "2023-12-01", "2023-12-31"},
		{MustPeriod(2025, time.April), "2025-04-01", "2025-04-30"},
	}
	for _, tc := range cases {
		if got := tc.p.FirstDay().Format("2006-01-02"); got != tc.first {
			t.Errorf("%v first day = %s, want %s", tc.p, got, tc.first)
		}
		if got := tc.p.LastDay().Format("2006-01-02"); got != tc.last {
			t.Errorf("%v last day = %s, want %s", tc.p, got, tc.last)
		}
	}
}

func TestPeriodArithmetic(t *testing.T) {
	cases := []struct {
		p    Period
		n    int
		want Period
	}{
		{MustPeriod(2023, time.December), 1, MustPeriod(2024, time.January)},
		{MustPeriod(2024, time.January), -1, MustPeriod(2023, time.December)},
		{MustPeriod(2024, time.June), 11, MustPeriod(2025, time.May)},
		{MustPeriod(2024, time.June), -18, MustPeriod(2022, time.December)},
		{MustPeriod(2024, time.June), 0, MustPeriod(2024, time.June)},
	}
	for _, tc := range cases {
		if got := tc.p.AddMonths(tc.n); got != tc.want {
			t.Errorf("%v + %d = %v, want %v", tc.p, tc.n, got, tc.want)
		}
		if got := tc.p.MonthsUntil(tc.want); got != tc.n {
			t.Errorf("%v months until %v = %d, want %d", tc.p, tc.want, got, tc.n)
		}
	}
	if MustPeriod(2023, time.December).Next() != MustPeriod(2024, time.January) {
		t.Fatalf("Next should roll over the year")
	}
}

func TestPeriodOrdering(t *testing.T) {
	a := MustPeriod(2023, time.December)
	b := MustPeriod(2024, time.January)
	c := MustPeriod(2024, time.February)

	if !a.Before(b) || !b.Before(c) || !c.After(a) {
		t.Fatalf("ordering broken")
	}
	if a.Compare(a) != 0 || !a.Equal(MustPeriod(2023, time.December)) {
		t.Fatalf("equality broken")
	}
	if b.Compare(a) != 1 || a.Compare(b) != -1 {
		t.Fatalf("compare broken")
	}
}

func TestParsePeriodRoundTrip(t *testing.T) {
	p, err := ParsePeriod("2022-06")
	if err != nil || p != MustPeriod(2022, time.June) {
		t.Fatalf("unexpected parse: %v err=%v", p, err)
	}
	if p.String() != "2022-06" {
		t.Fatalf("unexpected string %q", p.String())
	}
	if _, err := ParsePeriod("2022-6-1"); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestPeriodOf(t *testing.T) {
	if got := PeriodOf(time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC)); got != MustPeriod(2024, time.June) {
		t.Fatalf("unexpected period %v", got)
	}
}
