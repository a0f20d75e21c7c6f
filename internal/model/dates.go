package model

import "time"

const (
	// DateLayout is the stored calendar-day format (no timezone).
	DateLayout = "2006-01-02"
	// ClockLayout is the stored time-of-day format.
	ClockLayout = "15:04"
	// DateTimeLayout is the stored completion-timestamp format.
	DateTimeLayout = "2006-01-02 15:04"
)

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func ValidDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// CompareDates orders two YYYY-MM-DD strings: -1, 0 or 1.
// The fixed-width layout makes lexicographic order calendar order.
func CompareDates(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// AddDays shifts a date string by a number of days.
// Malformed input is returned unchanged.
func AddDays(date string, days int) string {
	t, err := ParseDate(date)
	if err != nil {
		return date
	}
	return FormatDate(t.AddDate(0, 0, days))
}

// DaysBetween returns to minus from in whole days; 0 on malformed input.
func DaysBetween(from, to string) int {
	a, err := ParseDate(from)
	if err != nil {
		return 0
	}
	b, err := ParseDate(to)
	if err != nil {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}

func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeLayout)
}

// DateOfTimestamp extracts the calendar day from a stored completion
// timestamp ("2006-01-02 15:04" or a bare date).
func DateOfTimestamp(s string) string {
	if len(s) < len(DateLayout) {
		return ""
	}
	day := s[:len(DateLayout)]
	if !ValidDate(day) {
		return ""
	}
	return day
}
