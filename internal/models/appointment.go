package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusBooked     AppointmentStatus = "BOOKED"
	StatusConfirmed  AppointmentStatus = "CONFIRMED"
	StatusInProgress AppointmentStatus = "IN_PROGRESS"
	StatusCompleted  AppointmentStatus = "COMPLETED"
	StatusNoShow     AppointmentStatus = "NO_SHOW"
	StatusCancelled  AppointmentStatus = "CANCELLED"
	StatusFinished   AppointmentStatus = "FINISHED"
)

// BlockingStatuses are the statuses that keep a slot occupied: anything a
// patient has reserved and not yet released. Resolver and booking both treat
// a slot holding one of these as taken.
var BlockingStatuses = []AppointmentStatus{StatusBooked, StatusConfirmed, StatusInProgress}

// ConsultType is how the consultation takes place.
type ConsultType string

const (
	ConsultAudio    ConsultType = "AUDIO"
	ConsultVideo    ConsultType = "VIDEO"
	ConsultPhysical ConsultType = "PHYSICAL"
)

// Appointment represents a reserved consultation slot. PublicCode is the
// short shareable identifier distinct from the row ID. FeeAmount is a
// snapshot of the doctor's fee taken at booking time.
type Appointment struct {
	BaseModel
	PublicCode  string            `gorm:"size:12;uniqueIndex" json:"publicCode"`
	PatientID   string            `gorm:"size:36;index" json:"patientId"`
	DoctorID    string            `gorm:"size:36;index:idx_doctor_slot" json:"doctorId"`
	Specialty   string            `gorm:"size:100" json:"specialty"`
	ConsultType ConsultType       `gorm:"size:20;default:'AUDIO'" json:"consultType"`
	Symptoms    *string           `gorm:"type:text" json:"symptoms,omitempty"`
	FeeAmount   int               `gorm:"default:0" json:"feeAmount"`
	ScheduledAt time.Time         `gorm:"index:idx_doctor_slot" json:"scheduledAt"`
	DurationMin int               `gorm:"default:30" json:"durationMin"`
	Status      AppointmentStatus `gorm:"size:20;default:'BOOKED';index" json:"status"`

	// Relations
	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User `gorm:"foreignKey:DoctorID" json:"-"`
}

// Blocking reports whether this appointment still occupies its slot.
func (a *Appointment) Blocking() bool {
	for _, s := range BlockingStatuses {
		if a.Status == s {
			return true
		}
	}
	return false
}
