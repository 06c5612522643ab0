package scheduling

import (
	"context"
	"time"
)

// DoctorInfo is the slice of a doctor's account the scheduling core needs.
type DoctorInfo struct {
	ID             string
	Active         bool
	Verified       bool
	HasProfile     bool
	FeeAmount      int
	Specialization string
}

// DoctorDirectory looks up doctor accounts. DoctorByID returns (nil, nil)
// when no doctor account exists under the id.
type DoctorDirectory interface {
	DoctorByID(ctx context.Context, id string) (*DoctorInfo, error)
}

// AvailabilityStore reads a doctor's stored weekly schedule. An empty result
// is not an error; BuildWeekly substitutes the default week.
type AvailabilityStore interface {
	WeeklyRows(ctx context.Context, doctorID string) ([]AvailabilityRow, error)
}

// BookedSlot is an occupied (date, time) pair for one doctor.
type BookedSlot struct {
	Date string // YYYY-MM-DD
	Time string // HH:MM
}

// Reservation is the row the booking coordinator asks the store to insert.
// ID is filled in by Insert.
type Reservation struct {
	ID          string
	PublicCode  string
	PatientID   string
	DoctorID    string
	Specialty   string
	ConsultType string
	Symptoms    *string
	FeeAmount   int
	ScheduledAt time.Time
	DurationMin int
}

// ReservationTx is the locked view of the appointment table inside one
// reservation transaction. Implementations must serialize conflicting
// callers: the lock reads must block until a concurrent reservation for the
// same rows commits or rolls back, and lock acquisition follows the call
// order the coordinator uses (patient-day first, then slot).
type ReservationTx interface {
	// ActivePatientBooking returns the id of a blocking-status appointment the
	// patient already holds with this doctor on the given date, or "" if none,
	// locking whatever it finds.
	ActivePatientBooking(doctorID, patientID, date string) (string, error)
	// SlotOccupied reports whether any patient holds a blocking-status
	// appointment with the doctor at exactly this instant, locking the row.
	SlotOccupied(doctorID string, at time.Time) (bool, error)
	// Insert creates the appointment in BOOKED status. It returns
	// ErrDuplicateCode when the public code collides with an existing one.
	Insert(res *Reservation) error
}

// AppointmentStore reads occupied slots and runs reservation transactions.
type AppointmentStore interface {
	// BookedTimes lists blocking-status slots for the doctor across the
	// inclusive [from, to] date range.
	BookedTimes(ctx context.Context, doctorID, from, to string) ([]BookedSlot, error)
	// Reserve runs fn inside one transaction; any error from fn rolls the
	// transaction back and is returned unchanged.
	Reserve(ctx context.Context, fn func(ReservationTx) error) error
}

// Notifier delivers in-app notifications. Notify returns the id of the
// created notification; Retire removes one from the user's visible list and
// tolerates ids that no longer exist.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body string, data map[string]any) (string, error)
	Retire(ctx context.Context, notificationID string) error
}

// ReminderCandidate is an active appointment joined with its reminder state.
type ReminderCandidate struct {
	AppointmentID  string
	PatientID      string
	DoctorID       string
	ConsultType    string
	ScheduledAt    time.Time
	LastStage      string
	PatientNotifID string
	DoctorNotifID  string
}

// StageTx is the transactional view of one appointment's stage advance:
// retiring the previous stage's notifications, inserting the new pair and
// recording the stage are all writes against the same transaction.
type StageTx interface {
	// Retire removes a notification from the user's visible list; ids that
	// no longer exist are not an error.
	Retire(notificationID string) error
	// Notify inserts a notification and returns its id.
	Notify(userID, title, body string, data map[string]any) (string, error)
	// SaveStage upserts the reminder state for an appointment in one write.
	SaveStage(appointmentID, stage, patientNotifID, doctorNotifID string) error
}

// ReminderStore reads reminder candidates and runs stage-advance
// transactions.
type ReminderStore interface {
	// DueAppointments returns BOOKED/CONFIRMED appointments scheduled inside
	// (from, to), soonest first, capped at limit, each joined with any
	// existing reminder state.
	DueAppointments(ctx context.Context, from, to time.Time, limit int) ([]ReminderCandidate, error)
	// Advance runs fn inside one transaction; any error from fn rolls every
	// write back and is returned unchanged.
	Advance(ctx context.Context, fn func(StageTx) error) error
}
