package utils

import "time"

// DateLayout is the canonical day format for practice-date bookkeeping.
const DateLayout = "2006-01-02"

// NowRFC3339 returns the current time in RFC3339 format
func NowRFC3339() string {
	return time.Now().Format(time.RFC3339)
}

// ParseRFC3339 parses a time string in RFC3339 format
func ParseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// UTCDate formats a timestamp as its UTC calendar day.
// All daily statistics and streaks are keyed on UTC days.
func UTCDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// UTCDateOffset returns the UTC day n days before t.
func UTCDateOffset(t time.Time, n int) string {
	return t.UTC().AddDate(0, 0, -n).Format(DateLayout)
}
