package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldops/punchcard/internal/models"
)

// Failure taxonomy the HTTP layer maps onto status codes.
var (
	ErrActiveSessionExists = errors.New("active session already exists")
	ErrSessionNotFound     = errors.New("session not found")
	ErrTaskNotFound        = errors.New("task not found")
)

// SessionService owns the canonical check-in session records. It enforces the
// single invariant everything else leans on: at most one active session per
// (task, person) pair.
type SessionService struct {
	db *gorm.DB
}

func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{db: db}
}

// ActiveSession returns the active session for a (task, person) pair, or nil
// when there is none. No active session is not an error.
func (s *SessionService) ActiveSession(taskID uint, personID string) (*models.CheckInSession, error) {
	var session models.CheckInSession
	err := s.db.Where("task_id = ? AND person_id = ? AND is_active = ?", taskID, personID, true).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CheckIn opens a session for the task. A replay carrying the clientSessionId
// of the caller's existing active session returns that session unchanged, so
// an offline client can safely re-establish a session it already created.
// Any other duplicate fails with ErrActiveSessionExists.
func (s *SessionService) CheckIn(taskID uint, personID, notes, clientSessionID string) (*models.CheckInSession, error) {
	var task models.Task
	if err := s.db.First(&task, taskID).Error; err != nil {
		return nil, fmt.Errorf("%w: #%d", ErrTaskNotFound, taskID)
	}

	existing, err := s.ActiveSession(taskID, personID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if clientSessionID != "" && existing.ClientSessionID == clientSessionID {
			return existing, nil
		}
		return nil, fmt.Errorf("%w for task #%d", ErrActiveSessionExists, taskID)
	}

	session := models.CheckInSession{
		SessionID:       uuid.NewString(),
		ClientSessionID: clientSessionID,
		TaskID:          taskID,
		PersonID:        personID,
		CheckInTime:     time.Now(),
		Notes:           notes,
		IsActive:        true,
	}
	if err := s.db.Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// CheckOut closes the named active session and records a time entry with the
// hours the client computed (already rounded to 2 decimal places).
func (s *SessionService) CheckOut(sessionID, personID, date string, hours float64, notes string) (*models.TimeEntry, error) {
	var session models.CheckInSession
	err := s.db.Where("session_id = ? AND person_id = ? AND is_active = ?", sessionID, personID, true).
		First(&session).Error
	if err != nil {
		return nil, fmt.Errorf("%w: no active session %s", ErrSessionNotFound, sessionID)
	}

	session.IsActive = false
	if notes != "" {
		session.Notes = notes
	}
	if err := s.db.Save(&session).Error; err != nil {
		return nil, err
	}

	entry := models.TimeEntry{
		SessionID:   session.SessionID,
		TaskID:      session.TaskID,
		WorkOrderID: workOrderID(s.db, session.TaskID),
		PersonID:    personID,
		Date:        date,
		Hours:       hours,
		Notes:       session.Notes,
		Source:      "checkout",
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Heartbeat stamps an active session as still alive.
func (s *SessionService) Heartbeat(sessionID string) error {
	var session models.CheckInSession
	err := s.db.Where("session_id = ? AND is_active = ?", sessionID, true).First(&session).Error
	if err != nil {
		return fmt.Errorf("%w: no active session %s", ErrSessionNotFound, sessionID)
	}
	now := time.Now()
	session.LastHeartbeat = &now
	return s.db.Save(&session).Error
}

// EmergencyCheckout force-closes a session by its server or client ID,
// regardless of whether it is still marked active. Hours are derived from the
// recorded check-in time since the client's view may be stale.
func (s *SessionService) EmergencyCheckout(sessionID, notes string) (*models.TimeEntry, error) {
	var session models.CheckInSession
	err := s.db.Where("session_id = ? OR client_session_id = ?", sessionID, sessionID).
		First(&session).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	if session.IsActive {
		session.IsActive = false
		if notes != "" {
			session.Notes = notes
		}
		if err := s.db.Save(&session).Error; err != nil {
			return nil, err
		}
	}

	hours := models.RoundHours(time.Since(session.CheckInTime).Hours())
	entry := models.TimeEntry{
		SessionID:   session.SessionID,
		TaskID:      session.TaskID,
		WorkOrderID: workOrderID(s.db, session.TaskID),
		PersonID:    session.PersonID,
		Date:        session.CheckInTime.Format(time.RFC3339),
		Hours:       hours,
		Notes:       session.Notes,
		Source:      "emergency",
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// EntriesInRange returns the person's recorded time entries within the range,
// oldest first.
func (s *SessionService) EntriesInRange(personID string, start, end time.Time) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	err := s.db.Where("person_id = ? AND created_at >= ? AND created_at <= ?", personID, start, end).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func workOrderID(db *gorm.DB, taskID uint) uint {
	var task models.Task
	if err := db.First(&task, taskID).Error; err != nil {
		return 0
	}
	return task.WorkOrderID
}
