package models

import (
	"time"

	"gorm.io/gorm"
)

// Task is a unit of field work a technician checks in and out of
type Task struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Title       string `gorm:"not null" json:"title"`
	Status      string `gorm:"default:open" json:"status"` // open, done, cancelled
	Priority    int    `gorm:"default:0" json:"priority"`  // 0=none, 1=low, 2=medium, 3=high
	WorkOrderID uint   `gorm:"index" json:"work_order_id"`
	Note        string `json:"note"`

	// Relationships
	WorkOrder WorkOrder        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"work_order"`
	Sessions  []CheckInSession `gorm:"foreignKey:TaskID" json:"-"`
}

// WorkOrder groups tasks under a single client job
type WorkOrder struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Reference  string `gorm:"unique;not null" json:"reference"`
	ClientName string `json:"client_name"`
	Status     string `gorm:"default:open" json:"status"`

	// Relationships
	Tasks []Task `gorm:"foreignKey:WorkOrderID" json:"-"`
}
