// Package timeslot models weekly lecture slots: weekdays, HH:MM clock times and
// half-open intervals between them.
package timeslot

import (
	"fmt"
	"time"
)

// Weekday is a capitalised English day name.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// Weekdays lists the days in timetable order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseWeekday accepts exactly one of the seven day names, case-sensitive.
func ParseWeekday(s string) (Weekday, error) {
	for _, d := range Weekdays {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("invalid day %q", s)
}

// Valid reports whether d is one of the seven day names.
func (d Weekday) Valid() bool {
	return d.Index() >= 0
}

// Index is the position of d in Weekdays, or -1.
func (d Weekday) Index() int {
	for i, w := range Weekdays {
		if w == d {
			return i
		}
	}
	return -1
}

// WeekdayOf returns the weekday of t in t's own location.
func WeekdayOf(t time.Time) Weekday {
	switch t.Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// Clock is a time of day in minutes since midnight.
type Clock int

// ParseClock parses a zero-padded 24-hour "HH:MM" value.
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, okH := twoDigits(s[0], s[1])
	m, okM := twoDigits(s[3], s[4])
	if !okH || !okM || h > 23 || m > 59 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	return Clock(h*60 + m), nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Interval is the half-open range [Start, End).
type Interval struct {
	Start Clock
	End   Clock
}

// NewInterval parses both bounds and requires end > start.
func NewInterval(start, end string) (Interval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	if e <= s {
		return Interval{}, fmt.Errorf("end time %s must be after start time %s", end, start)
	}
	return Interval{Start: s, End: e}, nil
}

// Overlaps reports whether the two intervals share any minute. Touching ends do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Overlaps compares two HH:MM ranges. Unparseable input never overlaps; callers
// validate with NewInterval first.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	a, errA := rawInterval(aStart, aEnd)
	b, errB := rawInterval(bStart, bEnd)
	if errA != nil || errB != nil {
		return false
	}
	return a.Overlaps(b)
}

func rawInterval(start, end string) (Interval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: s, End: e}, nil
}

// CalendarDay truncates t to its calendar day as observed in loc. The result is
// midnight UTC of that day so dates compare equal across processes.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
