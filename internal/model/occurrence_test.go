package model

import "testing"

func TestSplitOccurrenceID(t *testing.T) {
	series, date, ok := SplitOccurrenceID("abc::2024-03-05")
	if !ok || series != "abc" || date != "2024-03-05" {
		t.Fatalf("split failed: %q %q %v", series, date, ok)
	}

	// Series IDs may themselves contain the separator; the date is always
	// the final segment.
	series, date, ok = SplitOccurrenceID("a::b::2024-03-05")
	if !ok || series != "a::b" || date != "2024-03-05" {
		t.Fatalf("nested separator: %q %q %v", series, date, ok)
	}

	for _, bad := range []string{"plain-id", "::2024-03-05", "abc::not-a-date", ""} {
		if _, _, ok := SplitOccurrenceID(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestNewOccurrenceInheritsBaseFields(t *testing.T) {
	base := Task{
		ID:       "s1",
		Title:    "Water plants",
		Note:     "the ones on the balcony",
		Date:     "2024-01-01",
		Time:     "09:00",
		Priority: PriorityHigh,
		Sort:     3,
		Repeat:   &RepeatRule{Enabled: true, Type: RepeatDaily},
	}
	occ := NewOccurrence(base, "2024-01-05")
	if occ.ID != "s1::2024-01-05" {
		t.Fatalf("id: %s", occ.ID)
	}
	if occ.OriginalID != "s1" || occ.OriginalDate != "2024-01-05" || occ.Date != "2024-01-05" {
		t.Fatalf("identity fields: %+v", occ)
	}
	if occ.Title != base.Title || occ.Time != base.Time || occ.Priority != base.Priority || occ.Sort != base.Sort {
		t.Fatalf("inherited fields: %+v", occ)
	}
	if occ.Completed || occ.CompletedTime != "" {
		t.Fatalf("fresh occurrence should be incomplete")
	}
}

func TestNewOccurrencePreservesMultiDaySpan(t *testing.T) {
	base := Task{
		ID:      "s1",
		Date:    "2024-01-01",
		EndDate: "2024-01-03",
		Repeat:  &RepeatRule{Enabled: true, Type: RepeatWeekly},
	}
	occ := NewOccurrence(base, "2024-01-08")
	if occ.EndDate != "2024-01-10" {
		t.Fatalf("span not preserved: endDate=%s", occ.EndDate)
	}
}

func TestNewOccurrenceMergesModification(t *testing.T) {
	title := "moved standup"
	clock := "10:30"
	base := Task{
		ID:    "s1",
		Title: "standup",
		Date:  "2024-01-01",
		Time:  "09:00",
		Repeat: &RepeatRule{
			Enabled: true,
			Type:    RepeatDaily,
			InstanceMods: map[string]InstanceModification{
				"2024-01-05": {Title: &title, Time: &clock, Date: "2024-01-06"},
			},
		},
	}
	occ := NewOccurrence(base, "2024-01-05")
	if occ.Title != title || occ.Time != clock {
		t.Fatalf("overrides not applied: %+v", occ)
	}
	if occ.Date != "2024-01-06" {
		t.Fatalf("date shift not applied: %s", occ.Date)
	}
	if occ.OriginalDate != "2024-01-05" || occ.ID != "s1::2024-01-05" {
		t.Fatalf("identity must stay keyed to the rule date: %+v", occ)
	}

	// A neighboring occurrence is untouched.
	other := NewOccurrence(base, "2024-01-04")
	if other.Title != "standup" || other.Time != "09:00" || other.Date != "2024-01-04" {
		t.Fatalf("modification leaked: %+v", other)
	}
}

func TestNewOccurrenceDateShiftMovesSpan(t *testing.T) {
	base := Task{
		ID:      "s1",
		Date:    "2024-01-01",
		EndDate: "2024-01-02",
		Repeat: &RepeatRule{
			Enabled: true,
			Type:    RepeatWeekly,
			InstanceMods: map[string]InstanceModification{
				"2024-01-08": {Date: "2024-01-10"},
			},
		},
	}
	occ := NewOccurrence(base, "2024-01-08")
	if occ.Date != "2024-01-10" || occ.EndDate != "2024-01-11" {
		t.Fatalf("shifted span: date=%s endDate=%s", occ.Date, occ.EndDate)
	}
}

func TestNewOccurrenceOverrideToEmpty(t *testing.T) {
	empty := ""
	base := Task{
		ID:   "s1",
		Date: "2024-01-01",
		Time: "09:00",
		Repeat: &RepeatRule{
			Enabled: true,
			Type:    RepeatDaily,
			InstanceMods: map[string]InstanceModification{
				"2024-01-02": {Time: &empty},
			},
		},
	}
	if occ := NewOccurrence(base, "2024-01-02"); occ.Time != "" {
		t.Fatalf("override to empty lost: %q", occ.Time)
	}
}

func TestNewOccurrenceCompletionState(t *testing.T) {
	base := Task{
		ID:   "s1",
		Date: "2024-01-01",
		Repeat: &RepeatRule{
			Enabled:        true,
			Type:           RepeatDaily,
			CompletedDates: []string{"2024-01-02"},
			CompletedTimes: map[string]string{"2024-01-02": "2024-01-02 18:05"},
		},
	}
	done := NewOccurrence(base, "2024-01-02")
	if !done.Completed || done.CompletedTime != "2024-01-02 18:05" {
		t.Fatalf("completion not merged: %+v", done)
	}
	open := NewOccurrence(base, "2024-01-03")
	if open.Completed {
		t.Fatalf("completion leaked to sibling occurrence")
	}
}
