package cache

import (
	"encoding/json"
	"log/slog"

	"github.com/fieldops/punchcard/internal/models"
)

// sessionsKey is the single well-known key the cache lives under.
const sessionsKey = "sessions"

// SessionCache holds at most one cached check-in session per task. It is a
// disposable optimization: every failure degrades to a no-op or an empty
// result, never an error, because the server record is the source of truth
// once one exists.
type SessionCache struct {
	kv  KV
	log *slog.Logger
}

func NewSessionCache(kv KV, log *slog.Logger) *SessionCache {
	return &SessionCache{kv: kv, log: log}
}

// GetAll returns every cached session. Unavailable or corrupt storage yields
// an empty slice.
func (c *SessionCache) GetAll() []models.CheckInSession {
	byTask := c.load()
	sessions := make([]models.CheckInSession, 0, len(byTask))
	for _, s := range byTask {
		sessions = append(sessions, s)
	}
	return sessions
}

// Get returns the cached session for a task, if any.
func (c *SessionCache) Get(taskID uint) (models.CheckInSession, bool) {
	s, ok := c.load()[taskID]
	return s, ok
}

// Put upserts the session for its task and persists immediately. The map key
// makes "at most one session per task" structural.
func (c *SessionCache) Put(session models.CheckInSession) {
	byTask := c.load()
	byTask[session.TaskID] = session
	c.persist(byTask)
}

// Remove deletes the cached session for a task. No-op if absent.
func (c *SessionCache) Remove(taskID uint) {
	byTask := c.load()
	if _, ok := byTask[taskID]; !ok {
		return
	}
	delete(byTask, taskID)
	c.persist(byTask)
}

func (c *SessionCache) load() map[uint]models.CheckInSession {
	byTask := make(map[uint]models.CheckInSession)
	data, ok := c.kv.Get(sessionsKey)
	if !ok {
		return byTask
	}
	var sessions []models.CheckInSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		c.log.Warn("discarding corrupt session cache", "error", err)
		return byTask
	}
	// Last entry wins if the stored array ever carries duplicates.
	for _, s := range sessions {
		byTask[s.TaskID] = s
	}
	return byTask
}

func (c *SessionCache) persist(byTask map[uint]models.CheckInSession) {
	sessions := make([]models.CheckInSession, 0, len(byTask))
	for _, s := range byTask {
		sessions = append(sessions, s)
	}
	data, err := json.Marshal(sessions)
	if err != nil {
		c.log.Warn("failed to serialize session cache", "error", err)
		return
	}
	if err := c.kv.Set(sessionsKey, data); err != nil {
		c.log.Warn("failed to persist session cache", "error", err)
	}
}
