package model

import "strings"

// OccurrenceIDSep joins a series id and an occurrence date into a derived id.
const OccurrenceIDSep = "::"

func OccurrenceID(seriesID, date string) string {
	return seriesID + OccurrenceIDSep + date
}

// SplitOccurrenceID breaks a derived occurrence id back into the series id
// and the original occurrence date.
func SplitOccurrenceID(id string) (seriesID, date string, ok bool) {
	i := strings.LastIndex(id, OccurrenceIDSep)
	if i < 0 {
		return "", "", false
	}
	seriesID, date = id[:i], id[i+len(OccurrenceIDSep):]
	if seriesID == "" || !ValidDate(date) {
		return "", "", false
	}
	return seriesID, date, true
}

// Occurrence is a derived, date-specific materialization of a series head.
// It is never persisted; edits route through the exception maps on the
// owning rule, keyed by OriginalDate.
type Occurrence struct {
	ID            string
	OriginalID    string
	OriginalDate  string
	Date          string
	EndDate       string
	Time          string
	EndTime       string
	Title         string
	Note          string
	Priority      Priority
	CategoryID    string
	ProjectID     string
	StatusID      string
	ParentID      string
	Sort          int
	Completed     bool
	CompletedTime string
}

// NewOccurrence materializes one occurrence of a series head for a rule date,
// merging the base task fields with any instance modification and the
// per-date completion state. It never mutates the task or its rule.
func NewOccurrence(t Task, date string) Occurrence {
	occ := Occurrence{
		ID:           OccurrenceID(t.ID, date),
		OriginalID:   t.ID,
		OriginalDate: date,
		Date:         date,
		Time:         t.Time,
		EndTime:      t.EndTime,
		Title:        t.Title,
		Note:         t.Note,
		Priority:     t.Priority,
		CategoryID:   t.CategoryID,
		ProjectID:    t.ProjectID,
		StatusID:     t.StatusID,
		ParentID:     t.ParentID,
		Sort:         t.Sort,
	}
	span := 0
	if t.IsMultiDay() {
		span = DaysBetween(t.Date, t.EndDate)
		occ.EndDate = AddDays(date, span)
	}
	r := t.Repeat
	if r == nil {
		return occ
	}
	if mod, ok := r.InstanceMods[date]; ok {
		if mod.Date != "" {
			occ.Date = mod.Date
			if span > 0 {
				occ.EndDate = AddDays(mod.Date, span)
			}
		}
		if mod.EndDate != "" {
			occ.EndDate = mod.EndDate
		}
		if mod.Title != nil {
			occ.Title = *mod.Title
		}
		if mod.Time != nil {
			occ.Time = *mod.Time
		}
		if mod.EndTime != nil {
			occ.EndTime = *mod.EndTime
		}
		if mod.Note != nil {
			occ.Note = *mod.Note
		}
		if mod.Priority != nil {
			occ.Priority = *mod.Priority
		}
		if mod.CategoryID != nil {
			occ.CategoryID = *mod.CategoryID
		}
		if mod.ProjectID != nil {
			occ.ProjectID = *mod.ProjectID
		}
		if mod.StatusID != nil {
			occ.StatusID = *mod.StatusID
		}
	}
	if r.IsInstanceCompleted(date) {
		occ.Completed = true
		occ.CompletedTime = r.CompletedTimes[date]
	}
	return occ
}
