package retainer

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var monthPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// Period is a calendar month with inclusive bounds.
type Period struct {
	Month string    `json:"-"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MonthOf returns the calendar month containing t in loc.
func MonthOf(t time.Time, loc *time.Location) Period {
	t = t.In(loc)
	return monthPeriod(t.Year(), t.Month(), loc)
}

// ParseMonth parses a YYYY-MM month in loc.
func ParseMonth(s string, loc *time.Location) (Period, error) {
	m := monthPattern.FindStringSubmatch(s)
	if m == nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return monthPeriod(year, time.Month(month), loc), nil
}

func monthPeriod(year int, month time.Month, loc *time.Location) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	next := start.AddDate(0, 1, 0)
	return Period{
		Month: fmt.Sprintf("%04d-%02d", year, int(month)),
		Start: start,
		End:   next.Add(-time.Nanosecond),
	}
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}
