package shared

import (
	"fmt"
	"time"
)

// Period is a calendar month in "YYYY-MM" form, the unit of financial closing.
type Period string

const periodLayout = "2006-01"

// PeriodOf returns the period containing the supplied date.
func PeriodOf(t time.Time) Period {
	return Period(t.UTC().Format(periodLayout))
}

// ParsePeriod validates a "YYYY-MM" string.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(periodLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: period must be YYYY-MM, got %q", ErrValidation, s)
	}
	return PeriodOf(t), nil
}

// Start returns midnight UTC on the first day of the period.
func (p Period) Start() time.Time {
	t, _ := time.Parse(periodLayout, string(p))
	return t
}

// Next returns the following calendar month.
func (p Period) Next() Period {
	return PeriodOf(p.Start().AddDate(0, 1, 0))
}

// postingDateLayouts are every date shape the upstream modules emit. Invoice and
// expense payloads carry date-only strings, payment webhooks carry full RFC3339.
var postingDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParsePostingDate is the single parser for effective dates feeding the period
// extractor. An unparseable date is an error; it never silently bypasses the
// lock check.
func ParsePostingDate(s string) (time.Time, error) {
	for _, layout := range postingDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable effective date %q", ErrValidation, s)
}

// FiscalYearPeriods lists the 12 periods of the fiscal year beginning in
// startMonth of the supplied calendar year.
func FiscalYearPeriods(year int, startMonth time.Month) []Period {
	out := make([]Period, 0, 12)
	cursor := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		out = append(out, PeriodOf(cursor))
		cursor = cursor.AddDate(0, 1, 0)
	}
	return out
}
