package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

type Task struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	Status      string    `gorm:"default:'pending';not null" json:"status"`
	UserID      string    `gorm:"not null;index" json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate hook to set UUID before creating a Task
func (task *Task) BeforeCreate(tx *gorm.DB) (err error) {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	return
}

func (Task) TableName() string {
	return "tasks"
}
