package scheduling

import (
	"context"
	"fmt"
	"time"
)

// Slot is one bookable (or blocked) time on a day.
type Slot struct {
	Value    string `json:"value"` // HH:MM
	Label    string `json:"label"` // h:mm AM/PM
	Disabled bool   `json:"disabled"`
}

// Section groups a day's slots into morning/afternoon/evening.
type Section struct {
	Key   string `json:"key"`
	Slots []Slot `json:"slots"`
}

// Day is one calendar date of a doctor's bookable calendar.
type Day struct {
	Date     string    `json:"date"` // YYYY-MM-DD
	DayNum   int       `json:"dayNum"`
	Enabled  bool      `json:"enabled"`
	Sections []Section `json:"sections"`
}

// SlotResolver turns a doctor's weekly availability and existing bookings
// into a calendar of bookable slots, splitting overnight shifts across the
// midnight boundary: the evening piece stays on its own date and the early
// morning piece carries over to the next date.
type SlotResolver struct {
	doctors      DoctorDirectory
	availability AvailabilityStore
	appointments AppointmentStore
	clock        Clock
	slotMinutes  int
}

// NewSlotResolver wires a resolver with its collaborators.
func NewSlotResolver(doctors DoctorDirectory, availability AvailabilityStore, appointments AppointmentStore, clock Clock, slotMinutes int) *SlotResolver {
	if slotMinutes <= 0 {
		slotMinutes = DefaultSlotMinutes
	}
	return &SlotResolver{
		doctors:      doctors,
		availability: availability,
		appointments: appointments,
		clock:        clock,
		slotMinutes:  slotMinutes,
	}
}

const (
	minDaysAhead = 1
	maxDaysAhead = 14
)

// Resolve builds the day-ordered calendar for the next daysAhead dates,
// today first. daysAhead is clamped to [1,14].
func (r *SlotResolver) Resolve(ctx context.Context, doctorID string, daysAhead int) ([]Day, error) {
	if daysAhead < minDaysAhead {
		daysAhead = minDaysAhead
	}
	if daysAhead > maxDaysAhead {
		daysAhead = maxDaysAhead
	}

	doc, err := r.doctors.DoctorByID(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if doc == nil || !doc.Active || !doc.Verified {
		return nil, newError(CodeDoctorNotFound, "Doctor not found")
	}

	rows, err := r.availability.WeeklyRows(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	weekly := BuildWeekly(rows)

	now := r.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	todayISO := today.Format("2006-01-02")
	nowMin := now.Hour()*60 + now.Minute()

	booked, err := r.bookedByDate(ctx, doctorID, today, daysAhead)
	if err != nil {
		return nil, fmt.Errorf("load booked slots: %w", err)
	}

	days := make([]Day, 0, daysAhead)
	for i := 0; i < daysAhead; i++ {
		date := today.AddDate(0, 0, i)
		iso := date.Format("2006-01-02")

		cur := weekly[isoWeekday(date)]
		prev := weekly[isoWeekday(date.AddDate(0, 0, -1))]

		sections := map[string][]Slot{
			SectionMorning:   {},
			SectionAfternoon: {},
			SectionEvening:   {},
		}
		seen := map[int]bool{}
		total := 0

		add := func(from, to int) {
			if from < 0 {
				from = 0
			}
			if to > minutesPerDay {
				to = minutesPerDay
			}
			for m := from; m+r.slotMinutes <= to; m += r.slotMinutes {
				if seen[m] {
					continue
				}
				seen[m] = true
				hhmm := FormatClock(m)
				disabled := booked[iso][hhmm]
				if iso == todayISO && m <= nowMin {
					disabled = true
				}
				key := SectionKey(m)
				sections[key] = append(sections[key], Slot{Value: hhmm, Label: Label12h(m), Disabled: disabled})
				total++
			}
		}

		// Carry-over piece of yesterday's overnight shift lands on this date.
		if prev.Overnight() {
			add(0, prev.End)
		}

		if cur.Usable() {
			if cur.End > cur.Start {
				add(cur.Start, cur.End)
			} else {
				// Overnight: only the evening piece belongs to this date; the
				// rest shows up on the next date via the carry-over branch.
				add(cur.Start, minutesPerDay)
			}
		}

		secs := make([]Section, 0, len(sectionOrder))
		for _, key := range sectionOrder {
			secs = append(secs, Section{Key: key, Slots: sections[key]})
		}

		days = append(days, Day{
			Date:     iso,
			DayNum:   date.Day(),
			Enabled:  total > 0,
			Sections: secs,
		})
	}

	return days, nil
}

func (r *SlotResolver) bookedByDate(ctx context.Context, doctorID string, start time.Time, daysAhead int) (map[string]map[string]bool, error) {
	from := start.Format("2006-01-02")
	to := start.AddDate(0, 0, daysAhead-1).Format("2006-01-02")

	slots, err := r.appointments.BookedTimes(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	booked := map[string]map[string]bool{}
	for _, s := range slots {
		if booked[s.Date] == nil {
			booked[s.Date] = map[string]bool{}
		}
		booked[s.Date][s.Time] = true
	}
	return booked, nil
}
