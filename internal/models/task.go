package models

import "time"

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TO_DO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// IsValid reports whether the status is one of the known values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

type Task struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      TaskStatus `gorm:"type:varchar(20);not null;default:'TO_DO'" json:"status"`
	Deadline    *time.Time `json:"deadline"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	OwnerID     uint64     `gorm:"not null" json:"owner_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	Owner  User        `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Shares []TaskShare `gorm:"foreignKey:TaskID" json:"shares,omitempty"`
}
