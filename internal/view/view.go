// Package view selects the render set for a panel tab. Predicates compare
// stored date strings against a caller-supplied "today" so filtering stays
// deterministic in tests; nothing here reads the wall clock.
package view

import (
	"github.com/sandeepkv93/remind/internal/graph"
	"github.com/sandeepkv93/remind/internal/model"
)

type Tab string

const (
	TabToday          Tab = "today"
	TabTomorrow       Tab = "tomorrow"
	TabNext7Days      Tab = "next-7-days"
	TabOverdue        Tab = "overdue"
	TabCompleted      Tab = "completed"
	TabCompletedToday Tab = "completed-today"
	TabPast7Days      Tab = "past-7-days"
)

func (t Tab) IsValid() bool {
	switch t {
	case TabToday, TabTomorrow, TabNext7Days, TabOverdue,
		TabCompleted, TabCompletedToday, TabPast7Days:
		return true
	default:
		return false
	}
}

// Filter returns the render set for a tab: the entries matching the tab
// predicate, plus every ancestor and descendant of each match, computed
// against the unfiltered entry list. Order is top-level entries in input
// order, each followed depth-first by its children ordered by sort.
func Filter(entries []model.Entry, tab Tab, today string) []model.Entry {
	r := graph.Build(entries)

	keep := make(map[string]bool)
	for _, id := range r.IDs() {
		e, _ := r.ByID(id)
		if !Matches(e, r, tab, today) {
			continue
		}
		keep[id] = true
		for _, d := range r.DescendantsOf(id) {
			keep[d] = true
		}
		for _, a := range r.AncestorsOf(id) {
			keep[a] = true
		}
	}

	var out []model.Entry
	emitted := make(map[string]bool)
	var emit func(id string)
	emit = func(id string) {
		e, ok := r.ByID(id)
		if !ok || !keep[id] || emitted[id] {
			return
		}
		emitted[id] = true
		out = append(out, e)
		for _, child := range r.ChildrenOf(id) {
			emit(child)
		}
	}
	for _, id := range r.IDs() {
		e, _ := r.ByID(id)
		pid := e.ParentID()
		if pid != "" {
			if _, hasParent := r.ByID(pid); hasParent {
				continue
			}
		}
		emit(id)
	}
	return out
}

// Matches applies one tab predicate to one entry.
func Matches(e model.Entry, r *graph.Resolver, tab Tab, today string) bool {
	start := e.StartDate()
	end := e.EndDateOrStart()

	switch tab {
	case TabToday:
		// Spanning or overdue and not yet done for today; overdue items
		// fold into "today" so nothing due slips out of sight.
		if start == "" || effectivelyCompleted(e, r, today) {
			return false
		}
		inRange := model.CompareDates(start, today) <= 0 && model.CompareDates(today, end) <= 0
		return inRange || model.CompareDates(end, today) < 0
	case TabTomorrow:
		if start == "" || e.Completed() {
			return false
		}
		tm := model.AddDays(today, 1)
		return model.CompareDates(start, tm) <= 0 && model.CompareDates(tm, end) <= 0
	case TabNext7Days:
		if start == "" || e.Completed() {
			return false
		}
		lo, hi := model.AddDays(today, 1), model.AddDays(today, 7)
		return model.CompareDates(start, hi) <= 0 && model.CompareDates(end, lo) >= 0
	case TabOverdue:
		if start == "" || effectivelyCompleted(e, r, today) {
			return false
		}
		return model.CompareDates(end, today) < 0
	case TabCompleted:
		return e.Completed()
	case TabCompletedToday:
		return e.Completed() && model.DateOfTimestamp(e.CompletedTime()) == today
	case TabPast7Days:
		if start == "" {
			return false
		}
		lo, hi := model.AddDays(today, -7), model.AddDays(today, -1)
		return model.CompareDates(start, hi) <= 0 && model.CompareDates(end, lo) >= 0
	default:
		return false
	}
}

// effectivelyCompleted treats a multi-day span as done for today when its
// head has dailyCompletions[today] set, without closing the whole span.
// Occurrences defer to their series head's dailyCompletions.
func effectivelyCompleted(e model.Entry, r *graph.Resolver, today string) bool {
	if e.Completed() {
		return true
	}
	start := e.StartDate()
	end := e.EndDateOrStart()
	if start == "" || end == start {
		return false
	}
	if model.CompareDates(start, today) > 0 || model.CompareDates(today, end) > 0 {
		return false
	}
	return dailyDone(e, r, today)
}

func dailyDone(e model.Entry, r *graph.Resolver, today string) bool {
	if e.Occurrence != nil {
		base, ok := r.ByID(e.Occurrence.OriginalID)
		if !ok || base.Task == nil {
			return false
		}
		return base.Task.DailyComplete[today]
	}
	if e.Task != nil {
		return e.Task.DailyComplete[today]
	}
	return false
}
