package scheduling

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// BookingRequest is one patient's attempt to reserve a slot.
type BookingRequest struct {
	PatientID    string
	DoctorID     string
	SpecialtyKey string
	ConsultType  string
	Date         string // YYYY-MM-DD
	Time         string // HH:MM
	Symptoms     *string
}

// BookingResult is the committed reservation.
type BookingResult struct {
	BookingID  string `json:"bookingId"`
	PublicCode string `json:"public_code"`
	FeeAmount  int    `json:"fee_amount"`
}

// BookingCoordinator validates a booking request against the doctor's live
// availability and commits it atomically against concurrent attempts. The
// lock order inside the reservation transaction is fixed: the patient-day
// check first, then the slot check.
type BookingCoordinator struct {
	doctors      DoctorDirectory
	availability AvailabilityStore
	appointments AppointmentStore
	notifier     Notifier
	clock        Clock
	slotMinutes  int
	codeAttempts int
	log          zerolog.Logger
}

// NewBookingCoordinator wires a coordinator with its collaborators.
func NewBookingCoordinator(doctors DoctorDirectory, availability AvailabilityStore, appointments AppointmentStore, notifier Notifier, clock Clock, slotMinutes int, log zerolog.Logger) *BookingCoordinator {
	if slotMinutes <= 0 {
		slotMinutes = DefaultSlotMinutes
	}
	return &BookingCoordinator{
		doctors:      doctors,
		availability: availability,
		appointments: appointments,
		notifier:     notifier,
		clock:        clock,
		slotMinutes:  slotMinutes,
		codeAttempts: 8,
		log:          log,
	}
}

var (
	dateRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	strictRe = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?$`)
)

// consultAliases maps accepted in-person spellings onto PHYSICAL.
var consultAliases = map[string]string{
	"IN_PERSON": "PHYSICAL",
	"INPERSON":  "PHYSICAL",
	"CLINIC":    "PHYSICAL",
	"VISIT":     "PHYSICAL",
}

var validConsultTypes = map[string]bool{"AUDIO": true, "VIDEO": true, "PHYSICAL": true}

// NormalizeConsultType upper-cases and resolves aliases; ok is false for
// anything that is not a known consultation type.
func NormalizeConsultType(raw string) (string, bool) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if alias, ok := consultAliases[t]; ok {
		t = alias
	}
	return t, validConsultTypes[t]
}

// Book validates and commits one reservation. All precondition failures and
// conflicts come back as *Error; anything else is an infrastructure failure
// the caller should surface generically.
func (b *BookingCoordinator) Book(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	doc, err := b.doctors.DoctorByID(ctx, req.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if doc == nil {
		return nil, newError(CodeDoctorNotFound, "Doctor not found")
	}
	if !doc.Active || !doc.Verified || !doc.HasProfile {
		return nil, newError(CodeDoctorUnavailable, "Doctor not available")
	}

	consultType, ok := NormalizeConsultType(req.ConsultType)
	if !ok {
		return nil, newError(CodeInvalidInput, "Invalid consult_type")
	}
	if req.SpecialtyKey == "" {
		return nil, newError(CodeInvalidInput, "Invalid speciality_key")
	}
	if doc.Specialization != "" && req.SpecialtyKey != doc.Specialization {
		return nil, newError(CodeInvalidInput, "Invalid speciality_key for this doctor")
	}

	now := b.clock.Now()

	if !dateRe.MatchString(req.Date) {
		return nil, newError(CodeInvalidInput, "Invalid date")
	}
	day, err := time.ParseInLocation("2006-01-02", req.Date, now.Location())
	if err != nil {
		return nil, newError(CodeInvalidInput, "Invalid date")
	}
	if !strictRe.MatchString(req.Time) {
		return nil, newError(CodeInvalidInput, "Invalid time")
	}
	tMin, ok := ParseClock(req.Time[:5])
	if !ok {
		return nil, newError(CodeInvalidInput, "Invalid time")
	}

	rows, err := b.availability.WeeklyRows(ctx, req.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	weekly := BuildWeekly(rows)
	if !b.insideAvailability(weekly, day, tMin) {
		return nil, newError(CodeOutsideAvailability, "Selected time is outside doctor's availability")
	}

	if req.Date == now.Format("2006-01-02") {
		nowMin := now.Hour()*60 + now.Minute()
		if tMin <= nowMin {
			return nil, newError(CodeTimePassed, "Selected time has already passed")
		}
	}

	scheduledAt := day.Add(time.Duration(tMin) * time.Minute)

	res := &Reservation{
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		Specialty:   req.SpecialtyKey,
		ConsultType: consultType,
		Symptoms:    normalizeSymptoms(req.Symptoms),
		FeeAmount:   doc.FeeAmount,
		ScheduledAt: scheduledAt,
		DurationMin: b.slotMinutes,
	}

	err = b.appointments.Reserve(ctx, func(tx ReservationTx) error {
		existing, err := tx.ActivePatientBooking(req.DoctorID, req.PatientID, req.Date)
		if err != nil {
			return fmt.Errorf("patient-day lock: %w", err)
		}
		if existing != "" {
			return &Error{Code: CodeAlreadyBookedToday, Message: "Already booked today", BookingID: existing}
		}

		occupied, err := tx.SlotOccupied(req.DoctorID, scheduledAt)
		if err != nil {
			return fmt.Errorf("slot lock: %w", err)
		}
		if occupied {
			return newError(CodeSlotTaken, "Someone else booked this time slot. Please choose another time.")
		}

		for try := 0; try < b.codeAttempts; try++ {
			res.PublicCode = generatePublicCode()
			err := tx.Insert(res)
			if err == nil {
				return nil
			}
			if errors.Is(err, ErrDuplicateCode) {
				continue
			}
			return fmt.Errorf("insert appointment: %w", err)
		}
		return fmt.Errorf("could not generate a unique appointment code after %d attempts", b.codeAttempts)
	})
	if err != nil {
		if se, ok := AsError(err); ok {
			return nil, se
		}
		return nil, err
	}

	b.notifyBooked(ctx, req, res, consultType)

	return &BookingResult{BookingID: res.ID, PublicCode: res.PublicCode, FeeAmount: res.FeeAmount}, nil
}

// insideAvailability applies the same overnight-aware arithmetic the slot
// resolver enumerates with: the requested day's own window first (normal or
// the evening piece of an overnight shift), then the previous weekday's
// overnight carry-over into this date's early morning.
func (b *BookingCoordinator) insideAvailability(weekly Weekly, day time.Time, tMin int) bool {
	cur := weekly[isoWeekday(day)]
	if cur.Usable() {
		if cur.End > cur.Start {
			if tMin >= cur.Start && tMin+b.slotMinutes <= cur.End {
				return true
			}
		} else if tMin >= cur.Start && tMin+b.slotMinutes <= minutesPerDay {
			return true
		}
	}

	prev := weekly[isoWeekday(day.AddDate(0, 0, -1))]
	if prev.Overnight() && tMin < prev.End && tMin+b.slotMinutes <= prev.End {
		return true
	}
	return false
}

// notifyBooked emits the two booking notifications. Failures never unwind
// the committed reservation.
func (b *BookingCoordinator) notifyBooked(ctx context.Context, req BookingRequest, res *Reservation, consultType string) {
	patientBody := fmt.Sprintf("Your appointment is booked on %s at %s (%s).", req.Date, req.Time[:5], consultType)
	doctorBody := fmt.Sprintf("You have a new appointment on %s at %s (%s).", req.Date, req.Time[:5], consultType)

	if _, err := b.notifier.Notify(ctx, req.PatientID, "Appointment booked", patientBody, nil); err != nil {
		b.log.Warn().Err(err).Str("appointment_id", res.ID).Msg("patient booking notification failed")
	}
	if _, err := b.notifier.Notify(ctx, req.DoctorID, "New appointment", doctorBody, nil); err != nil {
		b.log.Warn().Err(err).Str("appointment_id", res.ID).Msg("doctor booking notification failed")
	}
}

func normalizeSymptoms(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// generatePublicCode returns a 6-digit shareable code. Uniqueness is
// enforced by the insert, not here.
func generatePublicCode() string {
	return fmt.Sprintf("%06d", 100000+rand.Intn(900000))
}
