// Package expand materializes recurring series heads into date-bound
// occurrences. Expansion is pure: the same task, window and converter always
// produce the same ordered output, and the task's rule is never mutated.
package expand

import (
	"time"

	"github.com/sandeepkv93/remind/internal/model"
)

// DefaultMaxInstances bounds pathological small-interval/long-window
// expansions. Hitting the cap truncates, it never errors.
const DefaultMaxInstances = 1000

// LunarDate is a converted lunar calendar day. Month is always the base
// month number (1-12); Leap marks dates falling inside a leap month.
type LunarDate struct {
	Year  int
	Month int
	Day   int
	Leap  bool
}

// LunarCalendar converts solar calendar days for the lunar repeat types.
type LunarCalendar interface {
	SolarToLunar(date string) (LunarDate, error)
}

type Expander struct {
	lunar LunarCalendar
}

// New returns an expander. lunar may be nil, in which case lunar rules
// expand to nothing.
func New(lunar LunarCalendar) *Expander {
	return &Expander{lunar: lunar}
}

// Expand produces the occurrences of task whose rule dates fall in
// [windowStart, windowEnd], in ascending original-date order. Disabled,
// invalid or unanchored rules yield an empty expansion; they never error.
// maxInstances <= 0 selects DefaultMaxInstances.
func (e *Expander) Expand(task model.Task, windowStart, windowEnd string, maxInstances int) []model.Occurrence {
	rule := task.Repeat
	if rule == nil || !rule.Enabled {
		return nil
	}
	if rule.Validate() != nil {
		return nil
	}
	if !model.ValidDate(windowStart) || !model.ValidDate(windowEnd) ||
		model.CompareDates(windowStart, windowEnd) > 0 {
		return nil
	}
	if maxInstances <= 0 {
		maxInstances = DefaultMaxInstances
	}

	anchorStr := task.Date
	if anchorStr == "" {
		// Lunar rules can live on date-less tasks; the walk then starts at
		// the query window. Everything else requires an anchor.
		if !rule.Type.IsLunar() {
			return nil
		}
		anchorStr = windowStart
	}
	anchor, err := model.ParseDate(anchorStr)
	if err != nil {
		return nil
	}

	x := &expansion{
		task:        task,
		rule:        rule,
		windowStart: windowStart,
		windowEnd:   windowEnd,
		max:         maxInstances,
	}

	switch rule.Type {
	case model.RepeatDaily:
		x.stepDays(anchor, rule.IntervalOrDefault())
	case model.RepeatWeekly:
		if len(rule.WeekDays) > 0 {
			e.walkWeekly(x, anchor)
		} else {
			x.stepDays(anchor, 7*rule.IntervalOrDefault())
		}
	case model.RepeatMonthly:
		x.stepMonths(anchor, rule.IntervalOrDefault())
	case model.RepeatYearly:
		x.stepYears(anchor, rule.IntervalOrDefault())
	case model.RepeatCustom:
		e.walkCustom(x, anchor)
	case model.RepeatEbbinghaus:
		x.ebbinghaus(anchor)
	case model.RepeatLunarMonthly, model.RepeatLunarYearly:
		if e.lunar == nil {
			return nil
		}
		e.walkLunar(x, anchor)
	}
	return x.out
}

type expansion struct {
	task        model.Task
	rule        *model.RepeatRule
	windowStart string
	windowEnd   string
	max         int
	count       int
	ignoreEnd   bool
	out         []model.Occurrence
}

// visit consumes one rule-matching date in ascending order. It returns false
// once expansion must stop (window end, rule end, count exhausted, cap hit).
// Excluded dates are skipped and do not consume an end-count cycle.
func (x *expansion) visit(t time.Time) bool {
	d := model.FormatDate(t)
	if model.CompareDates(d, x.windowEnd) > 0 {
		return false
	}
	if !x.ignoreEnd && x.rule.EndType == model.RepeatEndDate && x.rule.EndDate != "" &&
		model.CompareDates(d, x.rule.EndDate) > 0 {
		return false
	}
	if x.rule.IsExcluded(d) {
		return true
	}
	if !x.ignoreEnd && x.rule.EndType == model.RepeatEndCount && x.rule.EndCount > 0 {
		x.count++
		if x.count > x.rule.EndCount {
			return false
		}
	}
	if model.CompareDates(d, x.windowStart) >= 0 {
		x.out = append(x.out, model.NewOccurrence(x.task, d))
		if len(x.out) >= x.max {
			return false
		}
	}
	return true
}

func (x *expansion) stepDays(anchor time.Time, step int) {
	for t := anchor; ; t = t.AddDate(0, 0, step) {
		if !x.visit(t) {
			return
		}
	}
}

// stepMonths clamps the anchor day into months where it does not exist
// (the 31st in April lands on the 30th, not in May).
func (x *expansion) stepMonths(anchor time.Time, step int) {
	for k := 0; ; k += step {
		if !x.visit(addMonthsClamped(anchor, k)) {
			return
		}
	}
}

func (x *expansion) stepYears(anchor time.Time, step int) {
	for k := 0; ; k += step {
		if !x.visit(addMonthsClamped(anchor, 12*k)) {
			return
		}
	}
}

// ebbinghaus is a finite pattern of offsets from the anchor. It terminates
// when the pattern is exhausted no matter what endType says.
func (x *expansion) ebbinghaus(anchor time.Time) {
	x.ignoreEnd = true
	for _, off := range x.rule.Pattern() {
		if off <= 0 {
			continue
		}
		if !x.visit(anchor.AddDate(0, 0, off)) {
			return
		}
	}
}

// walk scans day by day from the anchor through the window end, emitting
// dates accepted by match. When no end count is in play the scan may start
// at the window instead of the anchor; counted rules must replay every
// cycle from the anchor.
func (x *expansion) walk(anchor time.Time, match func(time.Time) bool) {
	start := anchor
	if x.rule.EndType != model.RepeatEndCount {
		if ws, err := model.ParseDate(x.windowStart); err == nil && ws.After(start) {
			start = ws
		}
	}
	for t := start; model.CompareDates(model.FormatDate(t), x.windowEnd) <= 0; t = t.AddDate(0, 0, 1) {
		if !match(t) {
			continue
		}
		if !x.visit(t) {
			return
		}
	}
}

func (e *Expander) walkWeekly(x *expansion, anchor time.Time) {
	step := x.rule.IntervalOrDefault()
	days := make(map[int]bool, len(x.rule.WeekDays))
	for _, d := range x.rule.WeekDays {
		days[d] = true
	}
	anchorWeek := startOfWeek(anchor)
	x.walk(anchor, func(t time.Time) bool {
		if !days[int(t.Weekday())] {
			return false
		}
		weeks := daysBetween(anchorWeek, startOfWeek(t)) / 7
		return weeks >= 0 && weeks%step == 0
	})
}

// walkCustom consults exactly one sub-field, by priority
// weekDays > monthDays > months.
func (e *Expander) walkCustom(x *expansion, anchor time.Time) {
	rule := x.rule
	switch {
	case len(rule.WeekDays) > 0:
		days := make(map[int]bool, len(rule.WeekDays))
		for _, d := range rule.WeekDays {
			days[d] = true
		}
		x.walk(anchor, func(t time.Time) bool { return days[int(t.Weekday())] })
	case len(rule.MonthDays) > 0:
		days := make(map[int]bool, len(rule.MonthDays))
		for _, d := range rule.MonthDays {
			days[d] = true
		}
		x.walk(anchor, func(t time.Time) bool { return days[t.Day()] })
	default:
		months := make(map[int]bool, len(rule.Months))
		for _, m := range rule.Months {
			months[m] = true
		}
		x.walk(anchor, func(t time.Time) bool { return months[int(t.Month())] })
	}
}

// walkLunar matches candidate solar days by converting each one. A leap
// month matches its base month number, so rules fire in leap months too.
// Converter failures skip the day rather than aborting the expansion.
func (e *Expander) walkLunar(x *expansion, anchor time.Time) {
	rule := x.rule
	yearly := rule.Type == model.RepeatLunarYearly
	x.walk(anchor, func(t time.Time) bool {
		ld, err := e.lunar.SolarToLunar(model.FormatDate(t))
		if err != nil {
			return false
		}
		if ld.Day != rule.LunarDay {
			return false
		}
		if yearly && ld.Month != rule.LunarMonth {
			return false
		}
		return true
	})
}

func startOfWeek(t time.Time) time.Time {
	return t.AddDate(0, 0, -int(t.Weekday()))
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

func addMonthsClamped(anchor time.Time, months int) time.Time {
	total := int(anchor.Month()) - 1 + months
	year := anchor.Year() + total/12
	month := time.Month(total%12 + 1)
	day := anchor.Day()
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}
