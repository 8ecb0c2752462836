package contracts

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Period is a reporting window relative to "now"
type Period string

const (
	PeriodYTD      Period = "ytd"
	PeriodOneYear  Period = "1y"
	PeriodTwoYears Period = "2y"
	PeriodAll      Period = "all"
)

// ErrInvalidPeriod is wrapped by ParsePeriod for unknown values
var ErrInvalidPeriod = errors.New("invalid period")

// AllPeriods lists every supported period
func AllPeriods() []Period {
	return []Period{PeriodYTD, PeriodOneYear, PeriodTwoYears, PeriodAll}
}

// ParsePeriod parses a query value; empty means all
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return PeriodAll, nil
	case PeriodYTD, PeriodOneYear, PeriodTwoYears, PeriodAll:
		return p, nil
	default:
		return "", fmt.Errorf("%w %q (expected ytd, 1y, 2y or all)", ErrInvalidPeriod, s)
	}
}

// Range returns the inclusive [start, end] window. For PeriodAll start is zero.
func (p Period) Range(now time.Time) (time.Time, time.Time) {
	end := DateOnly(now)

	switch p {
	case PeriodYTD:
		return time.Date(end.Year(), 1, 1, 0, 0, 0, 0, time.UTC), end
	case PeriodOneYear:
		return end.AddDate(-1, 0, 0), end
	case PeriodTwoYears:
		return end.AddDate(-2, 0, 0), end
	default:
		return time.Time{}, end
	}
}

// Contains reports whether t falls in [start, end] for this period
func (p Period) Contains(t, now time.Time) bool {
	start, end := p.Range(now)
	d := DateOnly(t)
	if p == PeriodAll {
		return true
	}
	return !d.Before(start) && !d.After(end)
}
