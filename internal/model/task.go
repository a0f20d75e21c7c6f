package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPriority = errors.New("model: invalid task priority")
	ErrInvalidDate     = errors.New("model: invalid date")
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow, PriorityNone, "":
		return true
	default:
		return false
	}
}

// Task is a stored reminder entry, keyed by ID in the store document.
// Field names are part of the persisted JSON contract.
type Task struct {
	ID            string          `json:"id"`
	Title         string          `json:"title,omitempty"`
	Note          string          `json:"note,omitempty"`
	Date          string          `json:"date,omitempty"`
	EndDate       string          `json:"endDate,omitempty"`
	Time          string          `json:"time,omitempty"`
	EndTime       string          `json:"endTime,omitempty"`
	Completed     bool            `json:"completed,omitempty"`
	CompletedTime string          `json:"completedTime,omitempty"`
	Notified      bool            `json:"notified,omitempty"`
	DailyComplete map[string]bool `json:"dailyCompletions,omitempty"`
	ParentID      string          `json:"parentId,omitempty"`
	Priority      Priority        `json:"priority,omitempty"`
	Sort          int             `json:"sort,omitempty"`
	Repeat        *RepeatRule     `json:"repeat,omitempty"`
	CategoryID    string          `json:"categoryId,omitempty"`
	ProjectID     string          `json:"projectId,omitempty"`
	StatusID      string          `json:"statusId,omitempty"`
	BlockID       string          `json:"blockId,omitempty"`
	DocID         string          `json:"docId,omitempty"`
	CreatedAt     string          `json:"createdAt,omitempty"`
}

// Validate checks a task at edit time. Read paths tolerate more: a stored
// entry only needs an id to participate in graph resolution.
func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if t.Date == "" && t.ParentID == "" && t.Repeat == nil {
		return errors.New("model: task date is required unless the task is a child or container")
	}
	if t.Date != "" && !ValidDate(t.Date) {
		return fmt.Errorf("%w: %q", ErrInvalidDate, t.Date)
	}
	if t.EndDate != "" {
		if !ValidDate(t.EndDate) {
			return fmt.Errorf("%w: %q", ErrInvalidDate, t.EndDate)
		}
		if t.Date != "" && CompareDates(t.EndDate, t.Date) < 0 {
			return errors.New("model: task endDate precedes date")
		}
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if t.Repeat != nil && t.Repeat.Enabled {
		if t.ParentID != "" {
			return errors.New("model: a repeating series head must be top-level")
		}
		if err := t.Repeat.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsSeriesHead reports whether the task is the template of a recurring series.
func (t Task) IsSeriesHead() bool {
	return t.Repeat != nil && t.Repeat.Enabled
}

// IsMultiDay reports whether the task spans more than one calendar day.
func (t Task) IsMultiDay() bool {
	return t.EndDate != "" && t.Date != "" && t.EndDate != t.Date
}

// Clone returns a deep copy, including the repeat block and its
// per-date exception maps.
func (t Task) Clone() Task {
	out := t
	if t.DailyComplete != nil {
		out.DailyComplete = make(map[string]bool, len(t.DailyComplete))
		for k, v := range t.DailyComplete {
			out.DailyComplete[k] = v
		}
	}
	if t.Repeat != nil {
		out.Repeat = t.Repeat.Clone()
	}
	return out
}
