package model

// Entry is the tagged union the graph resolver and view filter operate on:
// either a stored Task or a derived Occurrence, never both.
type Entry struct {
	Task       *Task
	Occurrence *Occurrence
}

func TaskEntry(t Task) Entry {
	return Entry{Task: &t}
}

func OccurrenceEntry(o Occurrence) Entry {
	return Entry{Occurrence: &o}
}

func (e Entry) IsOccurrence() bool {
	return e.Occurrence != nil
}

func (e Entry) ID() string {
	if e.Occurrence != nil {
		return e.Occurrence.ID
	}
	if e.Task != nil {
		return e.Task.ID
	}
	return ""
}

// SeriesID is the stored task id behind this entry: the occurrence's
// originating series head, or the task itself.
func (e Entry) SeriesID() string {
	if e.Occurrence != nil {
		return e.Occurrence.OriginalID
	}
	if e.Task != nil {
		return e.Task.ID
	}
	return ""
}

func (e Entry) ParentID() string {
	if e.Occurrence != nil {
		return e.Occurrence.ParentID
	}
	if e.Task != nil {
		return e.Task.ParentID
	}
	return ""
}

func (e Entry) Title() string {
	if e.Occurrence != nil {
		return e.Occurrence.Title
	}
	if e.Task != nil {
		return e.Task.Title
	}
	return ""
}

// StartDate is the entry's anchor day; empty for undated container tasks.
func (e Entry) StartDate() string {
	if e.Occurrence != nil {
		return e.Occurrence.Date
	}
	if e.Task != nil {
		return e.Task.Date
	}
	return ""
}

// EndDateOrStart is the last day of the entry's span, which is the start
// day for single-day entries.
func (e Entry) EndDateOrStart() string {
	var start, end string
	if e.Occurrence != nil {
		start, end = e.Occurrence.Date, e.Occurrence.EndDate
	} else if e.Task != nil {
		start, end = e.Task.Date, e.Task.EndDate
	}
	if end == "" {
		return start
	}
	return end
}

func (e Entry) Completed() bool {
	if e.Occurrence != nil {
		return e.Occurrence.Completed
	}
	if e.Task != nil {
		return e.Task.Completed
	}
	return false
}

func (e Entry) CompletedTime() string {
	if e.Occurrence != nil {
		return e.Occurrence.CompletedTime
	}
	if e.Task != nil {
		return e.Task.CompletedTime
	}
	return ""
}

func (e Entry) Sort() int {
	if e.Occurrence != nil {
		return e.Occurrence.Sort
	}
	if e.Task != nil {
		return e.Task.Sort
	}
	return 0
}
