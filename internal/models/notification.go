package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification is an in-app message shown on a user's notification list.
// Reminder notifications are replaced, not accumulated: the reminder engine
// soft-deletes the previous stage's rows before inserting the next stage's.
type Notification struct {
	BaseModel
	UserID    string         `gorm:"size:36;index" json:"userId"`
	Title     string         `gorm:"size:255" json:"title"`
	Body      string         `gorm:"type:text" json:"body"`
	Data      datatypes.JSON `gorm:"column:data_json" json:"data,omitempty"`
	ReadAt    *time.Time     `json:"readAt,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
