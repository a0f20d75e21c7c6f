// Package service wires the stores, the expander and the view filter into
// the operations the command surface calls. Every mutation goes through
// storage.Store.Mutate so a read-modify-write round trip is one transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/remind/internal/expand"
	"github.com/sandeepkv93/remind/internal/model"
	"github.com/sandeepkv93/remind/internal/schedule"
	"github.com/sandeepkv93/remind/internal/storage"
	"github.com/sandeepkv93/remind/internal/view"
)

var (
	ErrNotFound        = storage.ErrNotFound
	ErrNotASeries      = errors.New("service: task is not a repeating series head")
	ErrSeriesExhausted = errors.New("service: series has no further occurrences")
	ErrInvalidDate     = errors.New("service: invalid date")
	ErrInvalidTab      = errors.New("service: invalid view tab")
)

// Options carries the injectable knobs. Zero values fall back to sane
// defaults: wall-clock time, local today, a fresh expander without lunar
// support.
type Options struct {
	Expander     *expand.Expander
	Logger       *slog.Logger
	Now          func() time.Time
	MaxInstances int
	WindowMonths int
}

type Service struct {
	store        storage.Store
	exp          *expand.Expander
	logger       *slog.Logger
	now          func() time.Time
	maxInstances int
	windowMonths int
}

func New(store storage.Store, opts Options) *Service {
	s := &Service{
		store:        store,
		exp:          opts.Expander,
		logger:       opts.Logger,
		now:          opts.Now,
		maxInstances: opts.MaxInstances,
		windowMonths: opts.WindowMonths,
	}
	if s.exp == nil {
		s.exp = expand.New(nil)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.maxInstances <= 0 {
		s.maxInstances = expand.DefaultMaxInstances
	}
	if s.windowMonths <= 0 {
		s.windowMonths = 2
	}
	return s
}

func (s *Service) today() string {
	return model.FormatDate(s.now())
}

func (s *Service) timestamp() string {
	return model.FormatDateTime(s.now())
}

// Subscribe registers fn to run after every successful store write.
func (s *Service) Subscribe(fn func()) (cancel func()) {
	return s.store.Subscribe(fn)
}

// CreateTask fills in the generated fields, validates and stores the task.
// A missing ID gets a fresh UUID.
func (s *Service) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt == "" {
		t.CreatedAt = s.timestamp()
	}
	if t.Completed && t.CompletedTime == "" {
		t.CompletedTime = s.timestamp()
	}
	if !t.Completed {
		t.CompletedTime = ""
	}
	if err := t.Validate(); err != nil {
		return model.Task{}, err
	}
	err := s.store.Mutate(ctx, func(doc map[string]model.Task) error {
		if _, ok := doc[t.ID]; ok {
			return fmt.Errorf("service: task %q already exists", t.ID)
		}
		doc[t.ID] = t.Clone()
		return nil
	})
	if err != nil {
		return model.Task{}, err
	}
	s.logger.Info("task created", "id", t.ID, "date", t.Date)
	return t, nil
}

func (s *Service) GetTask(ctx context.Context, id string) (model.Task, error) {
	doc, err := s.store.ReadAll(ctx)
	if err != nil {
		return model.Task{}, err
	}
	t, ok := doc[id]
	if !ok {
		return model.Task{}, ErrNotFound
	}
	return t, nil
}

// UpdateTask replaces a stored task. The completion timestamp follows the
// completed flag: stamped on the transition to done, cleared on the way back.
func (s *Service) UpdateTask(ctx context.Context, t model.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return s.store.Mutate(ctx, func(doc map[string]model.Task) error {
		prev, ok := doc[t.ID]
		if !ok {
			return ErrNotFound
		}
		if t.CreatedAt == "" {
			t.CreatedAt = prev.CreatedAt
		}
		if t.Completed && t.CompletedTime == "" {
			t.CompletedTime = s.timestamp()
		}
		if !t.Completed {
			t.CompletedTime = ""
		}
		doc[t.ID] = t.Clone()
		return nil
	})
}

// DeleteTask removes a task together with its descendants. An occurrence ID
// deletes only that instance, recorded as an exclusion on the series.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	if seriesID, date, ok := model.SplitOccurrenceID(id); ok {
		return s.Exclude(ctx, seriesID, date)
	}
	return s.store.Mutate(ctx, func(doc map[string]model.Task) error {
		if _, ok := doc[id]; !ok {
			return ErrNotFound
		}
		for _, victim := range collectSubtree(doc, id) {
			delete(doc, victim)
		}
		return nil
	})
}

// SetCompleted flips the completion state of a task or a single occurrence.
// Completing cascades down the subtree; un-completing never cascades, so a
// child finished on its own stays finished.
func (s *Service) SetCompleted(ctx context.Context, id string, completed bool) error {
	if seriesID, date, ok := model.SplitOccurrenceID(id); ok {
		return s.CompleteInstance(ctx, seriesID, date, completed)
	}
	return s.store.Mutate(ctx, func(doc map[string]model.Task) error {
		t, ok := doc[id]
		if !ok {
			return ErrNotFound
		}
		if completed {
			if !t.Completed {
				t.Completed = true
				t.CompletedTime = s.timestamp()
				doc[id] = t
			}
			completeDescendants(doc, id, s.timestamp())
		} else if t.Completed {
			t.Completed = false
			t.CompletedTime = ""
			doc[id] = t
		}
		return nil
	})
}

// CompleteWithDescendants marks a task done together with its whole subtree.
func (s *Service) CompleteWithDescendants(ctx context.Context, id string) error {
	return s.SetCompleted(ctx, id, true)
}

// SetDailyCompleted marks one day of a multi-day task done or not done.
func (s *Service) SetDailyCompleted(ctx context.Context, id, date string, done bool) error {
	if !model.ValidDate(date) {
		return ErrInvalidDate
	}
	return s.store.Mutate(ctx, func(doc map[string]model.Task) error {
		t, ok := doc[id]
		if !ok {
			return ErrNotFound
		}
		if done {
			if t.DailyComplete == nil {
				t.DailyComplete = make(map[string]bool)
			}
			t.DailyComplete[date] = true
		} else {
			delete(t.DailyComplete, date)
		}
		doc[id] = t
		return nil
	})
}

// Exclude hides one occurrence of a series for good. The series itself and
// every other occurrence are untouched.
func (s *Service) Exclude(ctx context.Context, seriesID, date string) error {
	if !model.ValidDate(date) {
		return ErrInvalidDate
	}
	return s.mutateSeries(ctx, seriesID, func(t *model.Task) error {
		r := t.Repeat
		if !r.IsExcluded(date) {
			r.ExcludeDates = append(r.ExcludeDates, date)
		}
		return nil
	})
}

// ModifyInstance records a per-occurrence override keyed by the occurrence's
// original date. Re-modifying the same occurrence replaces the prior record;
// when the override moves the visible date, stale records from intermediate
// moves of the same occurrence are dropped so only one record targets the
// new date.
func (s *Service) ModifyInstance(ctx context.Context, seriesID, date string, mod model.InstanceModification) error {
	if !model.ValidDate(date) {
		return ErrInvalidDate
	}
	if mod.Date != "" && !model.ValidDate(mod.Date) {
		return ErrInvalidDate
	}
	return s.mutateSeries(ctx, seriesID, func(t *model.Task) error {
		r := t.Repeat
		if r.InstanceMods == nil {
			r.InstanceMods = make(map[string]model.InstanceModification)
		}
		mod.ModifiedAt = s.timestamp()
		if mod.Date != "" && mod.Date != date {
			for k, m := range r.InstanceMods {
				if k != date && m.Date == mod.Date {
					delete(r.InstanceMods, k)
				}
			}
		}
		r.InstanceMods[date] = mod
		return nil
	})
}

// CompleteInstance marks one occurrence done or not done. Completion is
// per-date state on the rule; it never touches the series head's own
// completed flag. Completing an occurrence cascades to the series head's
// descendants, matching the behavior of completing the head itself.
func (s *Service) CompleteInstance(ctx context.Context, seriesID, date string, completed bool) error {
	if !model.ValidDate(date) {
		return ErrInvalidDate
	}
	return s.store.Mutate(ctx, func(doc map[string]model.Task) error {
		t, ok := doc[seriesID]
		if !ok {
			return ErrNotFound
		}
		if !t.IsSeriesHead() {
			return ErrNotASeries
		}
		r := t.Repeat
		if completed {
			if !r.IsInstanceCompleted(date) {
				r.CompletedDates = append(r.CompletedDates, date)
			}
			if r.CompletedTimes == nil {
				r.CompletedTimes = make(map[string]string)
			}
			r.CompletedTimes[date] = s.timestamp()
			completeDescendants(doc, seriesID, s.timestamp())
		} else {
			r.CompletedDates = slices.DeleteFunc(r.CompletedDates, func(d string) bool {
				return d == date
			})
			delete(r.CompletedTimes, date)
		}
		doc[seriesID] = t
		return nil
	})
}

// MarkNotified records that a trigger fired so restarts do not re-fire it.
// Occurrence IDs are keyed on the rule as "date_time"; plain tasks flip
// their notified flag.
func (s *Service) MarkNotified(ctx context.Context, tr schedule.Trigger) error {
	if seriesID, date, ok := model.SplitOccurrenceID(tr.ID); ok {
		return s.mutateSeries(ctx, seriesID, func(t *model.Task) error {
			key := notifiedKey(date, tr.Time)
			r := t.Repeat
			if !slices.Contains(r.NotifiedKeys, key) {
				r.NotifiedKeys = append(r.NotifiedKeys, key)
			}
			return nil
		})
	}
	return s.store.Mutate(ctx, func(doc map[string]model.Task) error {
		t, ok := doc[tr.ID]
		if !ok {
			return ErrNotFound
		}
		t.Notified = true
		doc[tr.ID] = t
		return nil
	})
}

// HeadPatch is the set of head fields a split may rewrite on the old series
// head. Nil fields keep the stored value.
type HeadPatch struct {
	Title    *string
	Note     *string
	Time     *string
	EndTime  *string
	Priority *model.Priority
}

// SplitSeries cuts a series in two at nextAnchor. The stored head stops
// repeating but keeps its exception history, so past occurrences still
// render with their overrides and completions. A new head with a fresh ID
// and a clean copy of the rule takes over from nextAnchor. Returns the new
// head's ID.
func (s *Service) SplitSeries(ctx context.Context, seriesID, nextAnchor string, patch HeadPatch) (string, error) {
	if !model.ValidDate(nextAnchor) {
		return "", ErrInvalidDate
	}
	newID := uuid.NewString()
	err := s.store.Mutate(ctx, func(doc map[string]model.Task) error {
		t, ok := doc[seriesID]
		if !ok {
			return ErrNotFound
		}
		if !t.IsSeriesHead() {
			return ErrNotASeries
		}

		next := t.Clone()
		next.ID = newID
		next.Date = nextAnchor
		next.EndDate = ""
		if t.IsMultiDay() {
			next.EndDate = model.AddDays(nextAnchor, model.DaysBetween(t.Date, t.EndDate))
		}
		next.Completed = false
		next.CompletedTime = ""
		next.Notified = false
		next.DailyComplete = nil
		next.CreatedAt = s.timestamp()
		next.Repeat.ClearExceptions()

		head := t.Clone()
		applyHeadPatch(&head, patch)
		head.Repeat.Enabled = false
		head.Repeat.EndType = model.RepeatEndDate
		head.Repeat.EndDate = model.AddDays(nextAnchor, -1)

		doc[seriesID] = head
		doc[newID] = next
		return nil
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("series split", "id", seriesID, "next", newID, "anchor", nextAnchor)
	return newID, nil
}

// SkipFirstOccurrence advances a series past its current anchor to the
// rule's next computed occurrence and purges every exception record keyed
// to the old anchor date.
func (s *Service) SkipFirstOccurrence(ctx context.Context, seriesID string) error {
	return s.store.Mutate(ctx, func(doc map[string]model.Task) error {
		t, ok := doc[seriesID]
		if !ok {
			return ErrNotFound
		}
		if !t.IsSeriesHead() || t.Date == "" {
			return ErrNotASeries
		}

		from := model.AddDays(t.Date, 1)
		occs := s.exp.Expand(t, from, model.AddDays(t.Date, 3660), 1)
		if len(occs) == 0 {
			return ErrSeriesExhausted
		}
		next := occs[0].OriginalDate

		old := t.Date
		if t.IsMultiDay() {
			t.EndDate = model.AddDays(next, model.DaysBetween(t.Date, t.EndDate))
		}
		t.Date = next

		r := t.Repeat
		r.ExcludeDates = slices.DeleteFunc(r.ExcludeDates, func(d string) bool {
			return d == old
		})
		delete(r.InstanceMods, old)
		r.CompletedDates = slices.DeleteFunc(r.CompletedDates, func(d string) bool {
			return d == old
		})
		delete(r.CompletedTimes, old)
		prefix := old + "_"
		r.NotifiedKeys = slices.DeleteFunc(r.NotifiedKeys, func(k string) bool {
			return k == old || len(k) > len(prefix) && k[:len(prefix)] == prefix
		})

		doc[seriesID] = t
		return nil
	})
}

// Entries materializes the full render set: plain tasks as-is, repeating
// heads replaced by the occurrences worth showing around today.
func (s *Service) Entries(ctx context.Context) ([]model.Entry, error) {
	doc, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.buildEntries(doc, s.today()), nil
}

// ListTab renders one tab: materialize entries, filter with hierarchy
// closure, return in render order.
func (s *Service) ListTab(ctx context.Context, tab view.Tab) ([]model.Entry, error) {
	if !tab.IsValid() {
		return nil, ErrInvalidTab
	}
	doc, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	today := s.today()
	return view.Filter(s.buildEntries(doc, today), tab, today), nil
}

// ScheduleUpcoming loads every timed, incomplete, not-yet-notified entry
// with a future trigger into the engine. Returns the number scheduled.
func (s *Service) ScheduleUpcoming(ctx context.Context, eng *schedule.Engine) (int, error) {
	doc, err := s.store.ReadAll(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	scheduled := 0
	for _, e := range s.buildEntries(doc, s.today()) {
		tr, ok := triggerFor(e, doc)
		if !ok || !tr.At.After(now) {
			continue
		}
		if err := eng.Schedule(tr); err != nil {
			return scheduled, err
		}
		scheduled++
	}
	return scheduled, nil
}

func triggerFor(e model.Entry, doc map[string]model.Task) (schedule.Trigger, bool) {
	if e.Completed() {
		return schedule.Trigger{}, false
	}
	var date, clock string
	if e.IsOccurrence() {
		o := e.Occurrence
		date, clock = o.Date, o.Time
		base, ok := doc[o.OriginalID]
		if !ok || base.Repeat == nil {
			return schedule.Trigger{}, false
		}
		if slices.Contains(base.Repeat.NotifiedKeys, notifiedKey(o.OriginalDate, clock)) {
			return schedule.Trigger{}, false
		}
	} else {
		t := e.Task
		if t.Notified {
			return schedule.Trigger{}, false
		}
		date, clock = t.Date, t.Time
	}
	if date == "" || clock == "" {
		return schedule.Trigger{}, false
	}
	at, err := time.ParseInLocation(model.DateTimeLayout, date+" "+clock, time.Local)
	if err != nil {
		return schedule.Trigger{}, false
	}
	return schedule.Trigger{
		ID:       e.ID(),
		SeriesID: e.SeriesID(),
		Date:     date,
		Time:     clock,
		At:       at,
	}, true
}

func notifiedKey(date, clock string) string {
	if clock == "" {
		return date
	}
	return date + "_" + clock
}

// buildEntries turns the stored document into the render set. Repeating
// heads expand over a window anchored at the start of last month; of the
// produced occurrences only the ones worth listing survive: everything
// incomplete up to today, the first upcoming one when nothing is due today,
// and completed ones for the history tabs.
func (s *Service) buildEntries(doc map[string]model.Task, today string) []model.Entry {
	ids := make([]string, 0, len(doc))
	for id := range doc {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := doc[ids[i]], doc[ids[j]]
		if a.Sort != b.Sort {
			return a.Sort < b.Sort
		}
		return ids[i] < ids[j]
	})

	entries := make([]model.Entry, 0, len(doc))
	for _, id := range ids {
		t := doc[id]
		if t.ID == "" {
			t.ID = id
		}
		if t.Date != "" && !model.ValidDate(t.Date) {
			s.logger.Warn("skipping entry with malformed date", "id", id, "date", t.Date)
			continue
		}
		if !t.IsSeriesHead() {
			entries = append(entries, model.TaskEntry(t))
			continue
		}
		entries = append(entries, s.seriesEntries(t, today)...)
	}
	return entries
}

func (s *Service) seriesEntries(t model.Task, today string) []model.Entry {
	winStart := monthWindowStart(today)
	winEnd := addMonths(today, s.seriesWindowMonths(t))

	occs := s.exp.Expand(t, winStart, winEnd, s.maxInstances)
	selected := selectOccurrences(occs, today)
	if !hasUpcoming(selected, today) && seriesOpenEnded(t) {
		// One retry with a far horizon so sparse rules (yearly, lunar,
		// long intervals) still surface their next occurrence.
		occs = s.exp.Expand(t, winStart, addMonths(winEnd, 12), s.maxInstances)
		selected = selectOccurrences(occs, today)
	}

	entries := make([]model.Entry, 0, len(selected))
	for _, o := range selected {
		entries = append(entries, model.OccurrenceEntry(o))
	}
	return entries
}

// selectOccurrences keeps the listing-worthy subset: every incomplete
// occurrence dated today or earlier, the first future incomplete one when
// nothing incomplete is due today, and all completed occurrences.
func selectOccurrences(occs []model.Occurrence, today string) []model.Occurrence {
	out := make([]model.Occurrence, 0, len(occs))
	dueToday := false
	for _, o := range occs {
		if o.Completed {
			continue
		}
		if model.CompareDates(o.Date, today) == 0 {
			dueToday = true
			break
		}
	}
	pickedFuture := false
	for _, o := range occs {
		cmp := model.CompareDates(o.Date, today)
		switch {
		case o.Completed:
			out = append(out, o)
		case cmp <= 0:
			out = append(out, o)
		case !dueToday && !pickedFuture:
			out = append(out, o)
			pickedFuture = true
		}
	}
	return out
}

// hasUpcoming reports whether something current or future is already on the
// list, which is what makes the far-horizon retry unnecessary.
func hasUpcoming(occs []model.Occurrence, today string) bool {
	for _, o := range occs {
		if !o.Completed && model.CompareDates(o.Date, today) >= 0 {
			return true
		}
	}
	return false
}

func seriesOpenEnded(t model.Task) bool {
	r := t.Repeat
	switch r.EndType {
	case model.RepeatEndDate:
		return r.EndDate == ""
	case model.RepeatEndCount:
		return r.EndCount <= 0
	}
	return r.Type != model.RepeatEbbinghaus
}

// seriesWindowMonths sizes the expansion horizon to the rule's sparsity.
func (s *Service) seriesWindowMonths(t model.Task) int {
	months := s.windowMonths
	switch {
	case t.Repeat.Type == model.RepeatYearly || t.Repeat.Type.IsLunar():
		months = max(months, 14)
	case t.Repeat.Type == model.RepeatMonthly:
		months = max(months, 3)
	}
	return months
}

func (s *Service) mutateSeries(ctx context.Context, seriesID string, fn func(*model.Task) error) error {
	return s.store.Mutate(ctx, func(doc map[string]model.Task) error {
		t, ok := doc[seriesID]
		if !ok {
			return ErrNotFound
		}
		if !t.IsSeriesHead() {
			return ErrNotASeries
		}
		if err := fn(&t); err != nil {
			return err
		}
		doc[seriesID] = t
		return nil
	})
}

// completeDescendants walks the stored subtree under rootID and marks every
// incomplete descendant done with the given timestamp. Already-complete
// descendants keep their original timestamps. Cycle-tolerant.
func completeDescendants(doc map[string]model.Task, rootID, ts string) int {
	children := childIndex(doc)
	visited := map[string]bool{rootID: true}
	stack := append([]string(nil), children[rootID]...)
	n := 0
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		t := doc[id]
		if !t.Completed {
			t.Completed = true
			t.CompletedTime = ts
			doc[id] = t
			n++
		}
		stack = append(stack, children[id]...)
	}
	return n
}

func collectSubtree(doc map[string]model.Task, rootID string) []string {
	children := childIndex(doc)
	visited := map[string]bool{}
	stack := []string{rootID}
	out := make([]string, 0, 1)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		out = append(out, id)
		stack = append(stack, children[id]...)
	}
	return out
}

func childIndex(doc map[string]model.Task) map[string][]string {
	children := make(map[string][]string)
	for id, t := range doc {
		if t.ParentID != "" {
			children[t.ParentID] = append(children[t.ParentID], id)
		}
	}
	return children
}

func applyHeadPatch(t *model.Task, p HeadPatch) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Note != nil {
		t.Note = *p.Note
	}
	if p.Time != nil {
		t.Time = *p.Time
	}
	if p.EndTime != nil {
		t.EndTime = *p.EndTime
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
}

// monthWindowStart is the first day of the month before today's month.
func monthWindowStart(today string) string {
	d, err := model.ParseDate(today)
	if err != nil {
		return today
	}
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return model.FormatDate(first.AddDate(0, -1, 0))
}

func addMonths(date string, months int) string {
	d, err := model.ParseDate(date)
	if err != nil {
		return date
	}
	return model.FormatDate(d.AddDate(0, months, 0))
}
