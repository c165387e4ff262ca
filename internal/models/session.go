package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// OfflinePersonID is the placeholder person for sessions created while the
// client had no connectivity. The server replaces it with the real person on
// the first successful sync.
const OfflinePersonID = "offline"

// CheckInSession represents one open or closed work interval for a person on
// a task. The server owns the canonical record; the client caches a disposable
// copy to survive connectivity gaps.
type CheckInSession struct {
	ID        uint           `gorm:"primarykey" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	SessionID       string     `gorm:"uniqueIndex;not null" json:"sessionId"`
	ClientSessionID string     `gorm:"index" json:"clientSessionId,omitempty"`
	TaskID          uint       `gorm:"not null;index" json:"taskId"`
	PersonID        string     `gorm:"not null;index" json:"personId"`
	CheckInTime     time.Time  `gorm:"not null" json:"checkInTime"`
	Notes           string     `json:"notes"`
	IsActive        bool       `gorm:"index" json:"isActive"`
	LastHeartbeat   *time.Time `json:"lastHeartbeat,omitempty"`

	// Relationships
	Task Task `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// Elapsed returns the time worked so far, for display only. Session validity
// is always decided by the server, never by elapsed time.
func (s *CheckInSession) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.CheckInTime)
}

// ElapsedHours returns the elapsed duration as billable hours, rounded to the
// canonical two decimal places.
func (s *CheckInSession) ElapsedHours(now time.Time) float64 {
	return RoundHours(s.Elapsed(now).Hours())
}

// RoundHours rounds hours to 2 decimal places, the precision billing records
// are stored with.
func RoundHours(hours float64) float64 {
	return math.Round(hours*100) / 100
}

// TimeEntry is the billing record derived from a closed session.
type TimeEntry struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	SessionID   string  `gorm:"index" json:"sessionId"`
	TaskID      uint    `gorm:"not null;index" json:"taskId"`
	WorkOrderID uint    `json:"workOrderId"`
	PersonID    string  `gorm:"not null" json:"personId"`
	Date        string  `gorm:"not null" json:"date"` // check-in timestamp, RFC 3339
	Hours       float64 `gorm:"not null" json:"hours"`
	Notes       string  `json:"notes"`
	Source      string  `gorm:"default:checkout" json:"source"` // checkout, emergency
}
