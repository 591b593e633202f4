package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an agency account. Every tenant-owned record points at one.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string         `gorm:"size:255" json:"name,omitempty"`
	Password  string         `gorm:"size:255;not null" json:"-"` // bcrypt hash
	// ProfileID is nil for users without any granted profile.
	ProfileID *uint    `gorm:"index" json:"profile_id,omitempty"`
	Profile   *Profile `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
}

// ProfileName returns the assigned profile name, or "" when none is loaded.
func (u *User) ProfileName() string {
	if u.Profile == nil {
		return ""
	}
	return u.Profile.Name
}
