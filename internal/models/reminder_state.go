package models

// AppointmentReminderState tracks, per appointment, the most recent reminder
// stage delivered and the still-live notification rows for that stage.
// LastStage only ever advances toward the appointment start; the engine never
// re-fires a stage it has already recorded here. Rows are abandoned in place
// once the appointment leaves the active statuses.
type AppointmentReminderState struct {
	BaseModel
	AppointmentID  string `gorm:"size:36;uniqueIndex" json:"appointmentId"`
	LastStage      string `gorm:"size:8;default:''" json:"lastStage"`
	PatientNotifID string `gorm:"size:36" json:"patientNotifId"`
	DoctorNotifID  string `gorm:"size:36" json:"doctorNotifId"`

	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"-"`
}
