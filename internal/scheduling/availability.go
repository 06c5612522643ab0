package scheduling

import (
	"fmt"
	"regexp"
	"time"
)

// DefaultSlotMinutes is the fixed width of a bookable slot.
const DefaultSlotMinutes = 30

const minutesPerDay = 1440

var clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)

// ParseClock normalizes a clock string (H:MM, HH:MM, optionally with a
// seconds part) to a minute of day in [0,1440). It reports false for
// anything else.
func ParseClock(s string) (int, bool) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	hh := atoi2(m[1])
	mm := atoi2(m[2])
	if hh > 23 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}

func atoi2(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// FormatClock renders a minute of day as "HH:MM".
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// Label12h renders a minute of day as a 12-hour display label like "9:30 AM".
func Label12h(min int) string {
	h := min / 60
	ampm := "AM"
	if h >= 12 {
		ampm = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, min%60, ampm)
}

// Day-part section keys, in display order.
const (
	SectionMorning   = "MORNING"
	SectionAfternoon = "AFTERNOON"
	SectionEvening   = "EVENING"
)

var sectionOrder = []string{SectionMorning, SectionAfternoon, SectionEvening}

// SectionKey buckets a minute of day into MORNING (before noon), AFTERNOON
// (noon to 5pm) or EVENING.
func SectionKey(min int) string {
	h := min / 60
	switch {
	case h < 12:
		return SectionMorning
	case h < 17:
		return SectionAfternoon
	default:
		return SectionEvening
	}
}

// Window is one weekday's availability in minutes of day. End < Start means
// the shift runs overnight into the following calendar day.
type Window struct {
	Enabled bool
	Start   int
	End     int
}

// Usable reports whether the window can produce any slots. An enabled window
// with Start == End has no working span and counts as disabled.
func (w Window) Usable() bool {
	return w.Enabled && w.Start != w.End
}

// Overnight reports whether the window crosses midnight.
func (w Window) Overnight() bool {
	return w.Usable() && w.End < w.Start
}

// Weekly is a doctor's recurring schedule indexed by ISO weekday (1 = Monday
// .. 7 = Sunday); index 0 is unused.
type Weekly [8]Window

// AvailabilityRow is the stored form of one weekday's window.
type AvailabilityRow struct {
	DayOfWeek int
	Enabled   bool
	Start     string
	End       string
}

// BuildWeekly normalizes stored availability rows into a Weekly schedule.
// With no rows at all the doctor gets the default week: Monday-Friday
// 09:00-17:00, weekend disabled. Rows with malformed clock strings, or with
// identical start and end, are disabled rather than rejected.
func BuildWeekly(rows []AvailabilityRow) Weekly {
	var w Weekly

	if len(rows) == 0 {
		for d := 1; d <= 7; d++ {
			w[d] = Window{Enabled: d <= 5, Start: 9 * 60, End: 17 * 60}
		}
		return w
	}

	for _, r := range rows {
		if r.DayOfWeek < 1 || r.DayOfWeek > 7 {
			continue
		}
		start, okS := ParseClock(r.Start)
		end, okE := ParseClock(r.End)
		enabled := r.Enabled && okS && okE
		if !okS {
			start = 9 * 60
		}
		if !okE {
			end = 17 * 60
		}
		w[r.DayOfWeek] = Window{Enabled: enabled, Start: start, End: end}
	}
	return w
}

// isoWeekday returns the ISO day of week for t (1 = Monday .. 7 = Sunday).
func isoWeekday(t time.Time) int {
	d := int(t.Weekday())
	if d == 0 {
		return 7
	}
	return d
}
