package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"
)

// -- Shared fakes --

type fakeClock struct {
	t time.Time
}

func (f fakeClock) Now() time.Time { return f.t }

type fakeDirectory struct {
	doctors map[string]*DoctorInfo
}

func (f *fakeDirectory) DoctorByID(_ context.Context, id string) (*DoctorInfo, error) {
	return f.doctors[id], nil
}

type fakeAvailability struct {
	rows []AvailabilityRow
}

func (f *fakeAvailability) WeeklyRows(_ context.Context, _ string) ([]AvailabilityRow, error) {
	return f.rows, nil
}

// fakeAppointments serializes Reserve calls under one mutex, mirroring the
// row-lock discipline of the real store: conflicting transactions observe
// each other's committed state and exactly one can claim a slot.
type fakeAppointments struct {
	mu           sync.Mutex
	booked       []BookedSlot
	byPatientDay map[string]string // doctor|patient|date -> appointment id
	bySlot       map[string]string // doctor|instant -> appointment id
	codes        map[string]bool
	nextID       int
}

func newFakeAppointments() *fakeAppointments {
	return &fakeAppointments{
		byPatientDay: map[string]string{},
		bySlot:       map[string]string{},
		codes:        map[string]bool{},
	}
}

func (f *fakeAppointments) BookedTimes(_ context.Context, _ string, _, _ string) ([]BookedSlot, error) {
	return f.booked, nil
}

func (f *fakeAppointments) Reserve(_ context.Context, fn func(ReservationTx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := &fakeReservationTx{store: f}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type fakeReservationTx struct {
	store   *fakeAppointments
	pending *Reservation
}

func (t *fakeReservationTx) ActivePatientBooking(doctorID, patientID, date string) (string, error) {
	return t.store.byPatientDay[doctorID+"|"+patientID+"|"+date], nil
}

func (t *fakeReservationTx) SlotOccupied(doctorID string, at time.Time) (bool, error) {
	_, ok := t.store.bySlot[doctorID+"|"+at.Format(time.RFC3339)]
	return ok, nil
}

func (t *fakeReservationTx) Insert(res *Reservation) error {
	if t.store.codes[res.PublicCode] {
		return ErrDuplicateCode
	}
	t.store.nextID++
	res.ID = "appt-" + res.PublicCode
	t.pending = res
	return nil
}

func (t *fakeReservationTx) commit() {
	if t.pending == nil {
		return
	}
	res := t.pending
	date := res.ScheduledAt.Format("2006-01-02")
	t.store.codes[res.PublicCode] = true
	t.store.byPatientDay[res.DoctorID+"|"+res.PatientID+"|"+date] = res.ID
	t.store.bySlot[res.DoctorID+"|"+res.ScheduledAt.Format(time.RFC3339)] = res.ID
	t.store.booked = append(t.store.booked, BookedSlot{Date: date, Time: res.ScheduledAt.Format("15:04")})
}

// monday is an arbitrary fixed Monday used as "today" across the tests.
var monday = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func newResolver(dir *fakeDirectory, av *fakeAvailability, appts *fakeAppointments, now time.Time) *SlotResolver {
	return NewSlotResolver(dir, av, appts, fakeClock{t: now}, DefaultSlotMinutes)
}

func verifiedDoctor(id string) *fakeDirectory {
	return &fakeDirectory{doctors: map[string]*DoctorInfo{
		id: {ID: id, Active: true, Verified: true, HasProfile: true, FeeAmount: 500, Specialization: "cardiology"},
	}}
}

func slotValues(d Day) []string {
	var out []string
	for _, sec := range d.Sections {
		for _, s := range sec.Slots {
			out = append(out, s.Value)
		}
	}
	return out
}

func findSlot(d Day, value string) (Slot, bool) {
	for _, sec := range d.Sections {
		for _, s := range sec.Slots {
			if s.Value == value {
				return s, true
			}
		}
	}
	return Slot{}, false
}

// -- Tests --

func TestResolveUnknownDoctor(t *testing.T) {
	r := newResolver(&fakeDirectory{doctors: map[string]*DoctorInfo{}}, &fakeAvailability{}, newFakeAppointments(), monday)

	_, err := r.Resolve(context.Background(), "nobody", 7)
	se, ok := AsError(err)
	if !ok || se.Code != CodeDoctorNotFound {
		t.Fatalf("err = %v, want DOCTOR_NOT_FOUND", err)
	}
}

func TestResolveUnverifiedDoctorHidden(t *testing.T) {
	dir := &fakeDirectory{doctors: map[string]*DoctorInfo{
		"d1": {ID: "d1", Active: true, Verified: false},
	}}
	r := newResolver(dir, &fakeAvailability{}, newFakeAppointments(), monday)

	_, err := r.Resolve(context.Background(), "d1", 7)
	if se, ok := AsError(err); !ok || se.Code != CodeDoctorNotFound {
		t.Fatalf("err = %v, want DOCTOR_NOT_FOUND for unverified doctor", err)
	}
}

func TestResolveDefaultWeek(t *testing.T) {
	r := newResolver(verifiedDoctor("d1"), &fakeAvailability{}, newFakeAppointments(), monday)

	days, err := r.Resolve(context.Background(), "d1", 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 7 {
		t.Fatalf("len(days) = %d, want 7", len(days))
	}

	// Monday through Friday carry the default 09:00-17:00 window: 16 slots.
	for i := 0; i < 5; i++ {
		if !days[i].Enabled {
			t.Errorf("day %s disabled, want enabled", days[i].Date)
		}
		if got := len(slotValues(days[i])); got != 16 {
			t.Errorf("day %s has %d slots, want 16", days[i].Date, got)
		}
	}
	// Weekend disabled with no slots.
	for i := 5; i < 7; i++ {
		if days[i].Enabled || len(slotValues(days[i])) != 0 {
			t.Errorf("day %s = enabled=%v slots=%d, want disabled empty", days[i].Date, days[i].Enabled, len(slotValues(days[i])))
		}
	}

	first := days[0]
	if first.Date != "2025-03-10" || first.DayNum != 10 {
		t.Errorf("first day = %s/%d, want 2025-03-10/10", first.Date, first.DayNum)
	}
	if s, ok := findSlot(first, "09:00"); !ok || s.Label != "9:00 AM" {
		t.Errorf("slot 09:00 = %+v ok=%v, want label 9:00 AM", s, ok)
	}
}

func TestResolveOvernightSplit(t *testing.T) {
	// Monday 22:00 -> 02:00: four evening slots stay on Monday, four morning
	// slots carry over to Tuesday.
	av := &fakeAvailability{rows: []AvailabilityRow{
		{DayOfWeek: 1, Enabled: true, Start: "22:00", End: "02:00"},
	}}
	r := newResolver(verifiedDoctor("d1"), av, newFakeAppointments(), monday)

	days, err := r.Resolve(context.Background(), "d1", 3)
	if err != nil {
		t.Fatal(err)
	}

	mondaySlots := slotValues(days[0])
	wantMonday := []string{"22:00", "22:30", "23:00", "23:30"}
	if len(mondaySlots) != len(wantMonday) {
		t.Fatalf("monday slots = %v, want %v", mondaySlots, wantMonday)
	}
	for i, v := range wantMonday {
		if mondaySlots[i] != v {
			t.Errorf("monday slot[%d] = %s, want %s", i, mondaySlots[i], v)
		}
	}
	if _, ok := findSlot(days[0], "00:00"); ok {
		t.Error("carry-over slot 00:00 attributed to Monday itself")
	}

	tuesdaySlots := slotValues(days[1])
	wantTuesday := []string{"00:00", "00:30", "01:00", "01:30"}
	if len(tuesdaySlots) != len(wantTuesday) {
		t.Fatalf("tuesday slots = %v, want %v", tuesdaySlots, wantTuesday)
	}
	for i, v := range wantTuesday {
		if tuesdaySlots[i] != v {
			t.Errorf("tuesday slot[%d] = %s, want %s", i, tuesdaySlots[i], v)
		}
	}
	if !days[1].Enabled {
		t.Error("tuesday must be enabled purely by carry-over slots")
	}
	if days[2].Enabled {
		t.Error("wednesday has no window and no carry-over, must be disabled")
	}
}

func TestResolveOvernightNoDoubleCount(t *testing.T) {
	// Every day overnight 20:00 -> 06:00: each date gets the carry-over
	// morning piece and its own evening piece, with no duplicate values.
	rows := make([]AvailabilityRow, 0, 7)
	for d := 1; d <= 7; d++ {
		rows = append(rows, AvailabilityRow{DayOfWeek: d, Enabled: true, Start: "20:00", End: "06:00"})
	}
	r := newResolver(verifiedDoctor("d1"), &fakeAvailability{rows: rows}, newFakeAppointments(), monday)

	days, err := r.Resolve(context.Background(), "d1", 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, day := range days {
		seen := map[string]bool{}
		for _, v := range slotValues(day) {
			if seen[v] {
				t.Fatalf("day %s repeats slot %s", day.Date, v)
			}
			seen[v] = true
		}
		// 00:00..05:30 carry-over (12 slots) + 20:00..23:30 evening (8 slots).
		if len(seen) != 20 {
			t.Errorf("day %s has %d slots, want 20", day.Date, len(seen))
		}
	}
}

func TestResolveZeroLengthWindow(t *testing.T) {
	av := &fakeAvailability{rows: []AvailabilityRow{
		{DayOfWeek: 1, Enabled: true, Start: "10:00", End: "10:00"},
	}}
	r := newResolver(verifiedDoctor("d1"), av, newFakeAppointments(), monday)

	days, err := r.Resolve(context.Background(), "d1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if days[0].Enabled || len(slotValues(days[0])) != 0 {
		t.Errorf("start == end day produced slots: %v", slotValues(days[0]))
	}
}

func TestResolvePastSlotsDisabledToday(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 5, 0, 0, time.UTC) // Monday 10:05
	r := newResolver(verifiedDoctor("d1"), &fakeAvailability{}, newFakeAppointments(), now)

	days, err := r.Resolve(context.Background(), "d1", 2)
	if err != nil {
		t.Fatal(err)
	}

	// 10:00 <= 10:05 so it is gone for today; 10:30 is still open.
	for _, v := range []string{"09:00", "09:30", "10:00"} {
		if s, _ := findSlot(days[0], v); !s.Disabled {
			t.Errorf("today slot %s not disabled at 10:05", v)
		}
	}
	if s, _ := findSlot(days[0], "10:30"); s.Disabled {
		t.Error("today slot 10:30 disabled, want open")
	}
	// Tomorrow is unaffected by the clock.
	if s, _ := findSlot(days[1], "09:00"); s.Disabled {
		t.Error("tomorrow slot 09:00 disabled, want open")
	}
}

func TestResolveBookedSlotDisabled(t *testing.T) {
	appts := newFakeAppointments()
	appts.booked = []BookedSlot{{Date: "2025-03-11", Time: "14:00"}}
	r := newResolver(verifiedDoctor("d1"), &fakeAvailability{}, appts, monday)

	days, err := r.Resolve(context.Background(), "d1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := findSlot(days[1], "14:00"); !ok || !s.Disabled {
		t.Errorf("booked slot = %+v ok=%v, want disabled", s, ok)
	}
	if s, _ := findSlot(days[1], "14:30"); s.Disabled {
		t.Error("adjacent slot 14:30 disabled, want open")
	}
}

func TestResolveClampsDaysAhead(t *testing.T) {
	r := newResolver(verifiedDoctor("d1"), &fakeAvailability{}, newFakeAppointments(), monday)

	days, err := r.Resolve(context.Background(), "d1", 99)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 14 {
		t.Errorf("daysAhead=99 yields %d days, want 14", len(days))
	}

	days, err = r.Resolve(context.Background(), "d1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 1 {
		t.Errorf("daysAhead=0 yields %d days, want 1", len(days))
	}
}

func TestResolveSectionBuckets(t *testing.T) {
	av := &fakeAvailability{rows: []AvailabilityRow{
		{DayOfWeek: 1, Enabled: true, Start: "11:00", End: "18:00"},
	}}
	r := newResolver(verifiedDoctor("d1"), av, newFakeAppointments(), monday)

	days, err := r.Resolve(context.Background(), "d1", 1)
	if err != nil {
		t.Fatal(err)
	}
	bySection := map[string][]string{}
	for _, sec := range days[0].Sections {
		for _, s := range sec.Slots {
			bySection[sec.Key] = append(bySection[sec.Key], s.Value)
		}
	}
	if got := bySection[SectionMorning]; len(got) != 2 || got[0] != "11:00" || got[1] != "11:30" {
		t.Errorf("morning = %v, want [11:00 11:30]", got)
	}
	if got := bySection[SectionAfternoon]; len(got) != 10 || got[0] != "12:00" || got[9] != "16:30" {
		t.Errorf("afternoon = %v, want 12:00..16:30", got)
	}
	if got := bySection[SectionEvening]; len(got) != 2 || got[0] != "17:00" || got[1] != "17:30" {
		t.Errorf("evening = %v, want [17:00 17:30]", got)
	}
}
