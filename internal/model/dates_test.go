package model

import "testing"

func TestCompareDatesOrdersCalendarDays(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"2024-01-01", "2024-01-02", -1},
		{"2024-02-01", "2024-01-31", 1},
		{"2024-06-15", "2024-06-15", 0},
		{"2023-12-31", "2024-01-01", -1},
	}
	for _, c := range cases {
		if got := CompareDates(c.a, c.b); got != c.want {
			t.Fatalf("CompareDates(%s, %s) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestAddDaysCrossesMonthAndYear(t *testing.T) {
	if got := AddDays("2024-01-31", 1); got != "2024-02-01" {
		t.Fatalf("AddDays month boundary: got %s", got)
	}
	if got := AddDays("2023-12-31", 1); got != "2024-01-01" {
		t.Fatalf("AddDays year boundary: got %s", got)
	}
	if got := AddDays("2024-03-10", -10); got != "2024-02-29" {
		t.Fatalf("AddDays leap February: got %s", got)
	}
}

func TestAddDaysReturnsMalformedInputUnchanged(t *testing.T) {
	if got := AddDays("not-a-date", 3); got != "not-a-date" {
		t.Fatalf("expected passthrough, got %s", got)
	}
}

func TestDaysBetween(t *testing.T) {
	if got := DaysBetween("2024-01-01", "2024-01-04"); got != 3 {
		t.Fatalf("DaysBetween = %d, want 3", got)
	}
	if got := DaysBetween("2024-01-04", "2024-01-01"); got != -3 {
		t.Fatalf("DaysBetween reversed = %d, want -3", got)
	}
	if got := DaysBetween("bogus", "2024-01-01"); got != 0 {
		t.Fatalf("DaysBetween malformed = %d, want 0", got)
	}
}

func TestDateOfTimestamp(t *testing.T) {
	if got := DateOfTimestamp("2024-05-09 14:30"); got != "2024-05-09" {
		t.Fatalf("timestamp day: got %s", got)
	}
	if got := DateOfTimestamp("2024-05-09"); got != "2024-05-09" {
		t.Fatalf("bare date: got %s", got)
	}
	if got := DateOfTimestamp("nonsense here"); got != "" {
		t.Fatalf("malformed: got %q", got)
	}
	if got := DateOfTimestamp(""); got != "" {
		t.Fatalf("empty: got %q", got)
	}
}
