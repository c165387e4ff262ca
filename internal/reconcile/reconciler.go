package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/punchcard/internal/api"
	"github.com/fieldops/punchcard/internal/cache"
	"github.com/fieldops/punchcard/internal/models"
)

// State of the reconciler for one task.
type State int

const (
	StateIdle State = iota
	StateChecking
	StateCheckedIn
	StateRecoveryPending
	StateCheckingOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateCheckedIn:
		return "checked-in"
	case StateRecoveryPending:
		return "recovery-pending"
	case StateCheckingOut:
		return "checking-out"
	}
	return "unknown"
}

// Resolution is the user's choice for an orphaned cached session.
type Resolution int

const (
	ResolutionRecover Resolution = iota
	ResolutionCheckout
	ResolutionDiscard
)

// ErrActionInFlight rejects a duplicate submission while a call is
// outstanding.
var ErrActionInFlight = errors.New("another action is already in flight")

// Authority is the slice of the server contract the reconciler consumes.
// *api.Client satisfies it.
type Authority interface {
	ActiveSession(ctx context.Context, taskID uint) (*models.CheckInSession, error)
	CheckIn(ctx context.Context, taskID uint, notes, clientSessionID string) (*models.CheckInSession, error)
	CheckOut(ctx context.Context, req api.CheckOutRequest) (*models.TimeEntry, error)
	Heartbeat(ctx context.Context, sessionID string) error
	EmergencyCheckout(ctx context.Context, sessionID, notes string) (*models.TimeEntry, error)
}

// Reconciler keeps one task's local session view consistent with the server.
// The server is authoritative; the local cache is only consulted when the
// server reports no active session.
type Reconciler struct {
	taskID    uint
	authority Authority
	cache     *cache.SessionCache
	conn      ConnectivityObserver
	log       *slog.Logger

	now               func() time.Time
	heartbeatInterval time.Duration

	mu       sync.Mutex
	state    State
	session  *models.CheckInSession // current view while checked in
	pending  *models.CheckInSession // recovery candidate
	inFlight bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithHeartbeatInterval overrides the default 5 minute heartbeat cadence.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(r *Reconciler) { r.heartbeatInterval = d }
}

func New(taskID uint, authority Authority, sessions *cache.SessionCache, conn ConnectivityObserver, log *slog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		taskID:            taskID,
		authority:         authority,
		cache:             sessions,
		conn:              conn,
		log:               log,
		now:               time.Now,
		heartbeatInterval: 5 * time.Minute,
		state:             StateIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Session returns the current session view, nil unless checked in.
func (r *Reconciler) Session() *models.CheckInSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Pending returns the recovery candidate, nil unless recovery is pending.
func (r *Reconciler) Pending() *models.CheckInSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

// Offline reports whether the current session exists only in the local cache.
func (r *Reconciler) Offline() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil && r.session.PersonID == models.OfflinePersonID
}

// CheckIn opens a session for the task. The optimistic local record is
// written before the network call so an interrupted process still finds it;
// on success the server record supersedes it. Without connectivity the call
// is skipped entirely and the local record stands until reconciliation.
func (r *Reconciler) CheckIn(ctx context.Context, notes string) (*models.CheckInSession, error) {
	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return nil, ErrActionInFlight
	}
	if r.state != StateIdle {
		r.mu.Unlock()
		return nil, fmt.Errorf("cannot check in while %s", r.state)
	}
	r.inFlight = true
	r.state = StateChecking

	now := r.now()
	clientID := fmt.Sprintf("client_%d_%s", now.UnixMilli(), uuid.NewString()[:8])
	optimistic := models.CheckInSession{
		SessionID:       clientID,
		ClientSessionID: clientID,
		TaskID:          r.taskID,
		PersonID:        models.OfflinePersonID,
		CheckInTime:     now,
		Notes:           notes,
		IsActive:        true,
	}
	r.cache.Put(optimistic)
	online := r.conn.Online()
	r.mu.Unlock()

	if !online {
		r.log.Info("checked in offline", "task_id", r.taskID, "client_session_id", clientID)
		return r.adopt(&optimistic), nil
	}

	session, err := r.authority.CheckIn(ctx, r.taskID, notes, clientID)
	if err != nil {
		if errors.Is(err, api.ErrOffline) {
			// Transient failure: the optimistic record becomes the offline session.
			r.log.Info("check-in fell back to offline session", "task_id", r.taskID, "error", err)
			return r.adopt(&optimistic), nil
		}
		// Server rejected the check-in; the optimistic write is not committed.
		r.cache.Remove(r.taskID)
		r.mu.Lock()
		r.state = StateIdle
		r.inFlight = false
		r.mu.Unlock()
		return nil, err
	}

	r.cache.Put(*session)
	return r.adopt(session), nil
}

// adopt installs a session as the checked-in view and clears the in-flight
// guard.
func (r *Reconciler) adopt(session *models.CheckInSession) *models.CheckInSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = session
	r.pending = nil
	r.state = StateCheckedIn
	r.inFlight = false
	return session
}

// CheckOut closes the current session, submitting hours rounded to the
// canonical two decimal places. On failure the reconciler returns to the
// checked-in state untouched.
func (r *Reconciler) CheckOut(ctx context.Context, notes string) (*models.TimeEntry, error) {
	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return nil, ErrActionInFlight
	}
	if r.state != StateCheckedIn || r.session == nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("cannot check out while %s", r.state)
	}
	r.inFlight = true
	r.state = StateCheckingOut
	session := *r.session
	r.mu.Unlock()

	// The work order is resolved server-side from the task record; the cached
	// session never carries it.
	req := api.CheckOutRequest{
		TaskID:    session.TaskID,
		SessionID: session.SessionID,
		Date:      session.CheckInTime.Format(time.RFC3339),
		Hours:     session.ElapsedHours(r.now()),
		Notes:     notes,
	}
	entry, err := r.authority.CheckOut(ctx, req)
	if err != nil {
		r.mu.Lock()
		r.state = StateCheckedIn
		r.inFlight = false
		r.mu.Unlock()
		return nil, err
	}

	r.cache.Remove(r.taskID)
	r.mu.Lock()
	r.session = nil
	r.state = StateIdle
	r.inFlight = false
	r.mu.Unlock()
	return entry, nil
}

// Reconcile compares the cached session against the server's view. It runs on
// startup and on every offline-to-online transition. Recovery is offered only
// when a cached session exists and the server reports no active one; a
// server-side active session always wins so a session legitimately opened on
// another device is never clobbered.
func (r *Reconciler) Reconcile(ctx context.Context) (State, error) {
	r.mu.Lock()
	if r.inFlight || r.state == StateChecking || r.state == StateCheckingOut {
		state := r.state
		r.mu.Unlock()
		return state, nil
	}
	cached, hasCached := r.cache.Get(r.taskID)
	online := r.conn.Online()
	r.mu.Unlock()

	if !online {
		if hasCached {
			r.adopt(&cached)
		}
		return r.State(), nil
	}

	serverSession, err := r.authority.ActiveSession(ctx, r.taskID)
	if err != nil {
		if errors.Is(err, api.ErrOffline) {
			if hasCached {
				r.adopt(&cached)
			}
			return r.State(), nil
		}
		return r.State(), err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if serverSession != nil {
		r.session = serverSession
		r.pending = nil
		r.state = StateCheckedIn
		return r.state, nil
	}
	if hasCached {
		r.pending = &cached
		r.session = nil
		r.state = StateRecoveryPending
		return r.state, nil
	}
	r.session = nil
	r.pending = nil
	r.state = StateIdle
	return r.state, nil
}

// Resolve applies the user's choice for a pending recovery candidate.
func (r *Reconciler) Resolve(ctx context.Context, resolution Resolution, notes string) error {
	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return ErrActionInFlight
	}
	if r.state != StateRecoveryPending || r.pending == nil {
		r.mu.Unlock()
		return fmt.Errorf("no recovery pending")
	}
	r.inFlight = true
	pending := *r.pending
	r.mu.Unlock()

	switch resolution {
	case ResolutionRecover:
		// Replay the original check-in so the server re-establishes the
		// session under the same client session ID.
		session, err := r.authority.CheckIn(ctx, r.taskID, pending.Notes, pending.ClientSessionID)
		if err != nil {
			r.clearInFlight()
			return err
		}
		r.cache.Put(*session)
		r.adopt(session)
		return nil

	case ResolutionCheckout:
		hours := pending.ElapsedHours(r.now())
		entry, err := r.authority.EmergencyCheckout(ctx, pending.SessionID, notes)
		if err != nil {
			r.clearInFlight()
			return err
		}
		r.log.Info("emergency checkout recorded",
			"session_id", pending.SessionID, "local_hours", hours, "billed_hours", entry.Hours)
		r.finishRecovery()
		return nil

	case ResolutionDiscard:
		r.finishRecovery()
		return nil
	}

	r.clearInFlight()
	return fmt.Errorf("unknown resolution %d", resolution)
}

func (r *Reconciler) finishRecovery() {
	r.cache.Remove(r.taskID)
	r.mu.Lock()
	r.pending = nil
	r.session = nil
	r.state = StateIdle
	r.inFlight = false
	r.mu.Unlock()
}

func (r *Reconciler) clearInFlight() {
	r.mu.Lock()
	r.inFlight = false
	r.mu.Unlock()
}

// RunHeartbeat pings the server every heartbeat interval while checked in.
// Failures are logged and otherwise ignored; the heartbeat never decides
// session validity.
func (r *Reconciler) RunHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.heartbeat(ctx)
		}
	}
}

func (r *Reconciler) heartbeat(ctx context.Context) {
	r.mu.Lock()
	if r.state != StateCheckedIn || r.session == nil || r.session.PersonID == models.OfflinePersonID {
		r.mu.Unlock()
		return
	}
	sessionID := r.session.SessionID
	r.mu.Unlock()

	if !r.conn.Online() {
		return
	}
	if err := r.authority.Heartbeat(ctx, sessionID); err != nil {
		r.log.Debug("heartbeat failed", "session_id", sessionID, "error", err)
	}
}

// WatchConnectivity reruns reconciliation whenever connectivity returns.
func (r *Reconciler) WatchConnectivity(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-r.conn.Changes():
			if !ok {
				return
			}
			if !online {
				continue
			}
			if _, err := r.Reconcile(ctx); err != nil {
				r.log.Warn("reconciliation after reconnect failed", "error", err)
			}
		}
	}
}
