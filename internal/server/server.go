package server

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/fieldops/punchcard/internal/db"
)

// Server is the time-entry authority: the single source of truth for whether
// a check-in session is active for a (task, person) pair.
type Server struct {
	sessions *db.SessionService
	tasks    *db.TaskService
	router   *gin.Engine
	log      *slog.Logger
}

// NewServer creates a new time-entry server
func NewServer(sessions *db.SessionService, tasks *db.TaskService, log *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		sessions: sessions,
		tasks:    tasks,
		router:   router,
		log:      log,
	}

	router.GET("/healthz", s.handleHealthz)

	router.GET("/time-entries", s.handleActiveSession)
	router.GET("/time-entries/report", s.handleEntriesReport)
	router.POST("/time-entries/checkin", s.handleCheckIn)
	router.POST("/time-entries/checkout", s.handleCheckOut)
	router.POST("/time-entries/heartbeat", s.handleHeartbeat)
	router.POST("/time-entries/emergency-checkout", s.handleEmergencyCheckout)

	router.GET("/tasks", s.handleTasks)
	router.GET("/tasks/:id", s.handleTask)

	return s
}

// Router exposes the underlying handler, used by tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the server
func (s *Server) Run(addr string) error {
	s.log.Info("time-entry server listening", "addr", addr)
	return s.router.Run(addr)
}
