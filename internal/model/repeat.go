package model

import (
	"errors"
	"fmt"
	"slices"
)

type RepeatType string

const (
	RepeatDaily        RepeatType = "daily"
	RepeatWeekly       RepeatType = "weekly"
	RepeatMonthly      RepeatType = "monthly"
	RepeatYearly       RepeatType = "yearly"
	RepeatCustom       RepeatType = "custom"
	RepeatEbbinghaus   RepeatType = "ebbinghaus"
	RepeatLunarMonthly RepeatType = "lunar-monthly"
	RepeatLunarYearly  RepeatType = "lunar-yearly"
)

func (t RepeatType) IsValid() bool {
	switch t {
	case RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly,
		RepeatCustom, RepeatEbbinghaus, RepeatLunarMonthly, RepeatLunarYearly:
		return true
	default:
		return false
	}
}

// IsLunar reports whether expansion needs a lunar calendar converter.
func (t RepeatType) IsLunar() bool {
	return t == RepeatLunarMonthly || t == RepeatLunarYearly
}

type RepeatEndType string

const (
	RepeatEndNever RepeatEndType = "never"
	RepeatEndDate  RepeatEndType = "date"
	RepeatEndCount RepeatEndType = "count"
)

var (
	ErrInvalidRepeatType = errors.New("model: invalid repeat type")
	ErrInvalidInterval   = errors.New("model: invalid repeat interval")
	ErrInvalidWeekday    = errors.New("model: invalid repeat weekday")
	ErrInvalidMonthDay   = errors.New("model: invalid repeat month day")
	ErrInvalidMonth      = errors.New("model: invalid repeat month")
	ErrInvalidLunarDay   = errors.New("model: invalid lunar day")
	ErrEmptyCustomRule   = errors.New("model: custom repeat needs weekDays, monthDays or months")
)

// DefaultEbbinghausPattern is the spaced-repetition offset list used when a
// rule does not carry its own.
var DefaultEbbinghausPattern = []int{1, 2, 4, 7, 15}

// InstanceModification is a per-occurrence field override, keyed in the rule
// by the occurrence's original ISO date. Pointer fields distinguish "not
// overridden" from "overridden to empty".
type InstanceModification struct {
	Title      *string   `json:"title,omitempty"`
	Date       string    `json:"date,omitempty"`
	EndDate    string    `json:"endDate,omitempty"`
	Time       *string   `json:"time,omitempty"`
	EndTime    *string   `json:"endTime,omitempty"`
	Note       *string   `json:"note,omitempty"`
	Priority   *Priority `json:"priority,omitempty"`
	CategoryID *string   `json:"categoryId,omitempty"`
	ProjectID  *string   `json:"projectId,omitempty"`
	StatusID   *string   `json:"statusId,omitempty"`
	ModifiedAt string    `json:"modifiedAt,omitempty"`
}

// RepeatRule declares how a series head repeats. The rule never stores
// materialized occurrences; the only rule-attached state is per-date
// exception metadata keyed by ISO date string.
type RepeatRule struct {
	Enabled           bool                            `json:"enabled"`
	Type              RepeatType                      `json:"type"`
	Interval          int                             `json:"interval,omitempty"`
	WeekDays          []int                           `json:"weekDays,omitempty"` // 0-6, Sunday=0
	MonthDays         []int                           `json:"monthDays,omitempty"`
	Months            []int                           `json:"months,omitempty"`
	LunarDay          int                             `json:"lunarDay,omitempty"`
	LunarMonth        int                             `json:"lunarMonth,omitempty"`
	EbbinghausPattern []int                           `json:"ebbinghausPattern,omitempty"`
	EndType           RepeatEndType                   `json:"endType,omitempty"`
	EndDate           string                          `json:"endDate,omitempty"`
	EndCount          int                             `json:"endCount,omitempty"`
	ExcludeDates      []string                        `json:"excludeDates,omitempty"`
	InstanceMods      map[string]InstanceModification `json:"instanceModifications,omitempty"`
	CompletedDates    []string                        `json:"completedInstances,omitempty"`
	CompletedTimes    map[string]string               `json:"completedTimes,omitempty"`
	NotifiedKeys      []string                        `json:"notifiedInstances,omitempty"`
}

func (r RepeatRule) Validate() error {
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRepeatType, r.Type)
	}
	if r.Interval < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, r.Interval)
	}
	for _, d := range r.WeekDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: %d", ErrInvalidWeekday, d)
		}
	}
	for _, d := range r.MonthDays {
		if d < 1 || d > 31 {
			return fmt.Errorf("%w: %d", ErrInvalidMonthDay, d)
		}
	}
	for _, m := range r.Months {
		if m < 1 || m > 12 {
			return fmt.Errorf("%w: %d", ErrInvalidMonth, m)
		}
	}
	switch r.Type {
	case RepeatCustom:
		if len(r.WeekDays) == 0 && len(r.MonthDays) == 0 && len(r.Months) == 0 {
			return ErrEmptyCustomRule
		}
	case RepeatLunarMonthly:
		if r.LunarDay < 1 || r.LunarDay > 30 {
			return fmt.Errorf("%w: %d", ErrInvalidLunarDay, r.LunarDay)
		}
	case RepeatLunarYearly:
		if r.LunarDay < 1 || r.LunarDay > 30 {
			return fmt.Errorf("%w: %d", ErrInvalidLunarDay, r.LunarDay)
		}
		if r.LunarMonth < 1 || r.LunarMonth > 12 {
			return fmt.Errorf("%w: %d", ErrInvalidMonth, r.LunarMonth)
		}
	}
	switch r.EndType {
	case "", RepeatEndNever:
	case RepeatEndDate:
		if r.EndDate != "" && !ValidDate(r.EndDate) {
			return fmt.Errorf("%w: %q", ErrInvalidDate, r.EndDate)
		}
	case RepeatEndCount:
		if r.EndCount < 0 {
			return fmt.Errorf("model: invalid repeat end count: %d", r.EndCount)
		}
	default:
		return fmt.Errorf("model: invalid repeat end type: %q", r.EndType)
	}
	return nil
}

// IntervalOrDefault normalizes the step to a positive value.
func (r RepeatRule) IntervalOrDefault() int {
	if r.Interval <= 0 {
		return 1
	}
	return r.Interval
}

func (r RepeatRule) IsExcluded(date string) bool {
	return slices.Contains(r.ExcludeDates, date)
}

func (r RepeatRule) IsInstanceCompleted(date string) bool {
	return slices.Contains(r.CompletedDates, date)
}

// Pattern returns the ebbinghaus offsets in ascending order, falling back to
// the default pattern.
func (r RepeatRule) Pattern() []int {
	src := r.EbbinghausPattern
	if len(src) == 0 {
		src = DefaultEbbinghausPattern
	}
	out := slices.Clone(src)
	slices.Sort(out)
	return out
}

func (r RepeatRule) Clone() *RepeatRule {
	out := r
	out.WeekDays = slices.Clone(r.WeekDays)
	out.MonthDays = slices.Clone(r.MonthDays)
	out.Months = slices.Clone(r.Months)
	out.EbbinghausPattern = slices.Clone(r.EbbinghausPattern)
	out.ExcludeDates = slices.Clone(r.ExcludeDates)
	out.CompletedDates = slices.Clone(r.CompletedDates)
	out.NotifiedKeys = slices.Clone(r.NotifiedKeys)
	if r.InstanceMods != nil {
		out.InstanceMods = make(map[string]InstanceModification, len(r.InstanceMods))
		for k, v := range r.InstanceMods {
			out.InstanceMods[k] = v
		}
	}
	if r.CompletedTimes != nil {
		out.CompletedTimes = make(map[string]string, len(r.CompletedTimes))
		for k, v := range r.CompletedTimes {
			out.CompletedTimes[k] = v
		}
	}
	return &out
}

// ClearExceptions drops all per-date exception state. Used when a split
// creates a fresh series from an existing rule.
func (r *RepeatRule) ClearExceptions() {
	r.ExcludeDates = nil
	r.InstanceMods = nil
	r.CompletedDates = nil
	r.CompletedTimes = nil
	r.NotifiedKeys = nil
}
