package models

import (
	"time"
)

// RefreshToken is one issued refresh token. Tokens rotate on every refresh:
// the presented row is revoked and a new one inserted, so a replayed token
// is caught by the IsRevoked check. The token value itself never leaves the
// HTTP-only cookie, hence json:"-".
type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"size:36;index" json:"userId"`
	Token     string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsRevoked bool      `gorm:"default:false" json:"isRevoked"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
