package models

import "time"

// Assignment maps a user to a profile made available to them. Deleting the
// profile cascades.
type Assignment struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CreatedAt time.Time `json:"-"`

	ProfileID uint    `gorm:"uniqueIndex:idx_assignment;not null" json:"-"`
	Profile   Profile `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserID    uint    `gorm:"uniqueIndex:idx_assignment;not null" json:"-"`
	User      User    `gorm:"constraint:OnDelete:CASCADE" json:"user"`
}

// UserProfile records the single active profile a user selected among their
// assignments. Keyed by user so a user has at most one active profile.
type UserProfile struct {
	UserID    uint      `gorm:"primarykey" json:"-"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ProfileID uint      `gorm:"not null" json:"-"`
	Profile   Profile   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UpdatedAt time.Time `json:"-"`
}
