package models

// DoctorProfile carries the professional details a doctor submits after
// registration. FeeAmount is the doctor's currently configured consultation
// fee; bookings copy it into the appointment row at reservation time, so
// editing it here never changes already-booked fees.
type DoctorProfile struct {
	BaseModel
	UserID         string `gorm:"size:36;uniqueIndex" json:"userId"`
	Specialization string `gorm:"size:100" json:"specialization"`
	Qualification  string `gorm:"size:255" json:"qualification"`
	ExperienceYrs  int    `gorm:"default:0" json:"experienceYears"`
	ClinicAddress  string `gorm:"size:255" json:"clinicAddress"`
	FeeAmount      int    `gorm:"default:0" json:"feeAmount"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
