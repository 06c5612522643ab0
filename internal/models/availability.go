package models

// DoctorAvailability is one row of a doctor's recurring weekly schedule,
// keyed by ISO day of week (1 = Monday .. 7 = Sunday). Times are "HH:MM"
// clock strings. EndTime numerically before StartTime means the shift runs
// overnight into the next calendar day; only StartTime == EndTime is a
// degenerate (unusable) window.
type DoctorAvailability struct {
	BaseModel
	UserID    string `gorm:"size:36;index:idx_doctor_dow,unique" json:"userId"`
	DayOfWeek int    `gorm:"index:idx_doctor_dow,unique" json:"dayOfWeek"`
	Enabled   bool   `gorm:"default:false" json:"enabled"`
	StartTime string `gorm:"size:8;default:'09:00'" json:"startTime"`
	EndTime   string `gorm:"size:8;default:'17:00'" json:"endTime"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
