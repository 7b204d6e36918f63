package models

import "time"

type User struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	Username       string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	DisplayName    string    `gorm:"type:varchar(255)" json:"display_name"`
	PasswordHash   string    `gorm:"type:varchar(255);not null" json:"-"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	ProfilePicture string    `gorm:"type:longtext" json:"profile_picture,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relations
	OwnedTasks []Task      `gorm:"foreignKey:OwnerID" json:"-"`
	Shares     []TaskShare `gorm:"foreignKey:UserID" json:"-"`
}
