package types

import "time"

// Period is a calendar month in "YYYY-MM" form. Usage counters reset at the
// period boundary by starting a fresh zeroed row, never by mutating old rows.
type Period string

const periodLayout = "2006-01"

func PeriodOf(t time.Time) Period {
	return Period(t.UTC().Format(periodLayout))
}

func CurrentPeriod() Period {
	return PeriodOf(time.Now())
}

// Bounds returns the half-open [start, end) interval of the period in UTC.
func (p Period) Bounds() (time.Time, time.Time, error) {
	start, err := time.Parse(periodLayout, string(p))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 1, 0), nil
}
