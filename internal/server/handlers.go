package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldops/punchcard/internal/db"
)

const maxNotesSize = 10 << 10 // 10KB

type checkInRequest struct {
	TaskID          uint   `json:"taskId"`
	Action          string `json:"action"`
	Notes           string `json:"notes"`
	ClientSessionID string `json:"clientSessionId"`
}

type checkOutRequest struct {
	TaskID      uint    `json:"taskId"`
	WorkOrderID uint    `json:"workOrderId"`
	Action      string  `json:"action"`
	SessionID   string  `json:"sessionId"`
	Date        string  `json:"date"`
	Hours       float64 `json:"hours"`
	Notes       string  `json:"notes"`
}

type heartbeatRequest struct {
	SessionID string `json:"sessionId"`
}

type emergencyCheckoutRequest struct {
	SessionID string `json:"sessionId"`
	Notes     string `json:"notes"`
}

// personID resolves the caller's identity. Auth internals live elsewhere;
// here the identity header is simply required.
func personID(c *gin.Context) (string, bool) {
	person := c.GetHeader("X-Person-ID")
	if person == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "missing X-Person-ID header",
		})
		return "", false
	}
	return person, true
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleActiveSession(c *gin.Context) {
	person, ok := personID(c)
	if !ok {
		return
	}

	taskID, err := strconv.ParseUint(c.Query("taskId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "taskId query parameter required",
		})
		return
	}
	if c.Query("active") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "only active=true queries are supported",
		})
		return
	}

	session, err := s.sessions.ActiveSession(uint(taskID), person)
	if err != nil {
		s.fail(c, err)
		return
	}
	if session == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": session})
}

// handleEntriesReport lists the caller's recorded time entries. Bounds come
// from from/to query parameters (YYYY-MM-DD, to is inclusive) and default to
// the past 7 days.
func (s *Server) handleEntriesReport(c *gin.Context) {
	person, ok := personID(c)
	if !ok {
		return
	}

	now := time.Now()
	start := now.AddDate(0, 0, -7)
	end := now
	if v := c.Query("from"); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid from date, want YYYY-MM-DD"})
			return
		}
		start = d
	}
	if v := c.Query("to"); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid to date, want YYYY-MM-DD"})
			return
		}
		end = d.AddDate(0, 0, 1)
	}

	entries, err := s.sessions.EntriesInRange(person, start, end)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": entries})
}

func (s *Server) handleCheckIn(c *gin.Context) {
	person, ok := personID(c)
	if !ok {
		return
	}

	var req checkInRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if len(req.Notes) > maxNotesSize {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "notes exceed maximum size of 10KB"})
		return
	}

	session, err := s.sessions.CheckIn(req.TaskID, person, req.Notes, req.ClientSessionID)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.log.Info("check-in", "task_id", req.TaskID, "person_id", person, "session_id", session.SessionID)
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": session})
}

func (s *Server) handleCheckOut(c *gin.Context) {
	person, ok := personID(c)
	if !ok {
		return
	}

	var req checkOutRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	entry, err := s.sessions.CheckOut(req.SessionID, person, req.Date, req.Hours, req.Notes)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.log.Info("check-out", "session_id", req.SessionID, "person_id", person, "hours", req.Hours)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": entry})
}

func (s *Server) handleHeartbeat(c *gin.Context) {
	if _, ok := personID(c); !ok {
		return
	}

	var req heartbeatRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := s.sessions.Heartbeat(req.SessionID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleEmergencyCheckout(c *gin.Context) {
	person, ok := personID(c)
	if !ok {
		return
	}

	var req emergencyCheckoutRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	entry, err := s.sessions.EmergencyCheckout(req.SessionID, req.Notes)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.log.Warn("emergency check-out", "session_id", req.SessionID, "person_id", person, "hours", entry.Hours)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": entry})
}

func (s *Server) handleTasks(c *gin.Context) {
	if _, ok := personID(c); !ok {
		return
	}

	tasks, err := s.tasks.Tasks()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": tasks})
}

func (s *Server) handleTask(c *gin.Context) {
	if _, ok := personID(c); !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid task id"})
		return
	}

	task, err := s.tasks.TaskByID(uint(id))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": task})
}

// fail maps service errors onto the status codes clients key off.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, db.ErrActiveSessionExists):
		status = http.StatusConflict
	case errors.Is(err, db.ErrSessionNotFound), errors.Is(err, db.ErrTaskNotFound):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}
