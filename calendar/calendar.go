// Package calendar decides whether a call fell inside its department's staffed hours.
//
// Hours are an ordered rule table. A rule names a department (or AnyDepartment), the
// weekdays it covers, an optional effective date range and either an open/close window
// or Closed. The first rule matching department, weekday and date decides; when nothing
// matches the call is outside business hours.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jalad-shrimali/cdr-rollup/cdr"
)

// AnyDepartment matches every department.
const AnyDepartment cdr.Department = "*"

// Clock is a wall-clock time of day in seconds after midnight.
type Clock int

// At builds a Clock from hour and minute.
func At(hour, minute int) Clock { return Clock(hour*3600 + minute*60) }

// ParseClock reads "H:MM" or "HH:MM[:SS]".
func ParseClock(s string) (Clock, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return Clock(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
		}
	}
	return 0, fmt.Errorf("clock %q: want HH:MM", s)
}

func (c Clock) String() string {
	h, m, s := int(c)/3600, int(c)%3600/60, int(c)%60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

func clockOf(t time.Time) Clock {
	return Clock(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// Weekdays is a set of days, bit n set for time.Weekday(n).
type Weekdays uint8

// Days builds a set.
func Days(ds ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range ds {
		w |= 1 << uint(d)
	}
	return w
}

var (
	MonToFri = Days(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
	Weekend  = Days(time.Saturday, time.Sunday)
	AllWeek  = MonToFri | Weekend
)

func (w Weekdays) Has(d time.Weekday) bool { return w&(1<<uint(d)) != 0 }

func (w Weekdays) String() string {
	switch w {
	case AllWeek:
		return "all"
	case MonToFri:
		return "mon-fri"
	case Weekend:
		return "sat-sun"
	}
	var out []string
	for d := time.Sunday; d <= time.Saturday; d++ {
		if w.Has(d) {
			out = append(out, strings.ToLower(d.String()[:3]))
		}
	}
	return strings.Join(out, ",")
}

var dayNames = map[string]time.Weekday{}

func init() {
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		dayNames[name] = d
		dayNames[name[:3]] = d
	}
}

// ParseWeekdays accepts day names ("mon", "Tuesday"), ranges ("mon-fri") and the
// words "weekdays", "weekend" and "all".
func ParseWeekdays(items []string) (Weekdays, error) {
	var w Weekdays
	for _, raw := range items {
		item := strings.ToLower(strings.TrimSpace(raw))
		switch item {
		case "weekdays":
			w |= MonToFri
			continue
		case "weekend":
			w |= Weekend
			continue
		case "all", "daily", "*":
			w |= AllWeek
			continue
		}
		if a, b, ok := strings.Cut(item, "-"); ok {
			from, ok1 := dayNames[strings.TrimSpace(a)]
			to, ok2 := dayNames[strings.TrimSpace(b)]
			if !ok1 || !ok2 {
				return 0, fmt.Errorf("weekday range %q", raw)
			}
			for d := from; ; d = (d + 1) % 7 {
				w |= Days(d)
				if d == to {
					break
				}
			}
			continue
		}
		d, ok := dayNames[item]
		if !ok {
			return 0, fmt.Errorf("weekday %q", raw)
		}
		w |= Days(d)
	}
	return w, nil
}

// Rule is one row of the table. From is inclusive and Until exclusive; a zero value
// leaves that side open.
type Rule struct {
	Department cdr.Department
	Days       Weekdays
	From       time.Time
	Until      time.Time
	Open       Clock
	Close      Clock
	Closed     bool
}

var ErrInvalidRule = errors.New("invalid business hours rule")

func (r Rule) validate() error {
	switch {
	case r.Department == "":
		return fmt.Errorf("%w: empty department", ErrInvalidRule)
	case r.Days == 0:
		return fmt.Errorf("%w: %s has no days", ErrInvalidRule, r.Department)
	case !r.Closed && r.Open > r.Close:
		return fmt.Errorf("%w: %s opens %s after closing %s", ErrInvalidRule, r.Department, r.Open, r.Close)
	case !r.From.IsZero() && !r.Until.IsZero() && dateKey(r.From) >= dateKey(r.Until):
		return fmt.Errorf("%w: %s has an empty date range", ErrInvalidRule, r.Department)
	}
	return nil
}

func (r Rule) matches(dept cdr.Department, at time.Time) bool {
	if r.Department != AnyDepartment && r.Department != dept {
		return false
	}
	if !r.Days.Has(at.Weekday()) {
		return false
	}
	day := dateKey(at)
	if !r.From.IsZero() && day < dateKey(r.From) {
		return false
	}
	if !r.Until.IsZero() && day >= dateKey(r.Until) {
		return false
	}
	return true
}

func dateKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// Table is an ordered, immutable rule list.
type Table struct {
	rules []Rule
}

func NewTable(rules []Rule) (*Table, error) {
	for i, r := range rules {
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return &Table{rules: append([]Rule(nil), rules...)}, nil
}

// Rules returns a copy of the table.
func (t *Table) Rules() []Rule { return append([]Rule(nil), t.rules...) }

// Lookup returns the first rule covering dept on the day of at.
func (t *Table) Lookup(dept cdr.Department, at time.Time) (Rule, bool) {
	for _, r := range t.rules {
		if r.matches(dept, at) {
			return r, true
		}
	}
	return Rule{}, false
}

// IsBusinessHours is false for a nil time, an unmatched day or a closed rule. Both
// window ends are inclusive.
func (t *Table) IsBusinessHours(dept cdr.Department, at *time.Time) bool {
	if at == nil {
		return false
	}
	r, ok := t.Lookup(dept, *at)
	if !ok || r.Closed {
		return false
	}
	c := clockOf(*at)
	return r.Open <= c && c <= r.Close
}
