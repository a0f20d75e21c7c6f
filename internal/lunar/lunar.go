// Package lunar provides the default lunar calendar converter, backed by
// lunar-go. Leap months arrive from the library as negative month numbers
// and are normalized here.
package lunar

import (
	"fmt"

	"github.com/6tail/lunar-go/calendar"

	"github.com/sandeepkv93/remind/internal/expand"
	"github.com/sandeepkv93/remind/internal/model"
)

// Calendar implements expand.LunarCalendar.
type Calendar struct{}

func New() Calendar {
	return Calendar{}
}

func (Calendar) SolarToLunar(date string) (expand.LunarDate, error) {
	t, err := model.ParseDate(date)
	if err != nil {
		return expand.LunarDate{}, fmt.Errorf("lunar: %w", err)
	}
	l := calendar.NewSolarFromYmd(t.Year(), int(t.Month()), t.Day()).GetLunar()
	out := expand.LunarDate{
		Year:  l.GetYear(),
		Month: l.GetMonth(),
		Day:   l.GetDay(),
	}
	if out.Month < 0 {
		out.Month = -out.Month
		out.Leap = true
	}
	return out, nil
}

// LunarToSolar converts a lunar day to its solar date string. leap selects
// the leap month of that number when the year has one. The underlying
// library panics on nonexistent lunar dates; that surfaces here as an error.
func (Calendar) LunarToSolar(year, month, day int, leap bool) (date string, err error) {
	if month < 1 || month > 12 || day < 1 || day > 30 {
		return "", fmt.Errorf("lunar: invalid lunar date %d-%d-%d", year, month, day)
	}
	m := month
	if leap {
		m = -month
	}
	defer func() {
		if r := recover(); r != nil {
			date = ""
			err = fmt.Errorf("lunar: invalid lunar date %d-%d-%d: %v", year, month, day, r)
		}
	}()
	s := calendar.NewLunarFromYmd(year, m, day).GetSolar()
	return fmt.Sprintf("%04d-%02d-%02d", s.GetYear(), s.GetMonth(), s.GetDay()), nil
}
