package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fieldops/punchcard/internal/models"
)

// Sentinel errors matching the server's failure taxonomy. Transport-level
// failures wrap ErrOffline so callers can fall back to the local cache.
var (
	ErrConflict = errors.New("an active session already exists")
	ErrNotFound = errors.New("session not found")
	ErrOffline  = errors.New("server unreachable")
)

// Client talks to the time-entry server, the single source of truth for
// active check-in sessions.
type Client struct {
	baseURL  string
	personID string
	http     *http.Client
}

func NewClient(baseURL, personID string) *Client {
	return &Client{
		baseURL:  baseURL,
		personID: personID,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// envelope is the server's JSON response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type checkInRequest struct {
	TaskID          uint   `json:"taskId"`
	Action          string `json:"action"`
	Notes           string `json:"notes,omitempty"`
	ClientSessionID string `json:"clientSessionId,omitempty"`
}

// CheckOutRequest carries everything the server needs to close a session and
// record the derived time entry.
type CheckOutRequest struct {
	TaskID      uint    `json:"taskId"`
	WorkOrderID uint    `json:"workOrderId,omitempty"`
	Action      string  `json:"action"`
	SessionID   string  `json:"sessionId"`
	Date        string  `json:"date"`
	Hours       float64 `json:"hours"`
	Notes       string  `json:"notes,omitempty"`
}

type heartbeatRequest struct {
	SessionID string `json:"sessionId"`
}

type emergencyCheckoutRequest struct {
	SessionID string `json:"sessionId"`
	Notes     string `json:"notes,omitempty"`
}

// ActiveSession returns the server's view of the active session for a task,
// or nil when the server reports none.
func (c *Client) ActiveSession(ctx context.Context, taskID uint) (*models.CheckInSession, error) {
	q := url.Values{}
	q.Set("taskId", strconv.FormatUint(uint64(taskID), 10))
	q.Set("active", "true")

	data, err := c.do(ctx, http.MethodGet, "/time-entries?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var session models.CheckInSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode active session: %w", err)
	}
	return &session, nil
}

// CheckIn opens a session for the task. The server rejects a second active
// session for the same task and person with ErrConflict, except when the
// clientSessionID matches the existing one (idempotent replay).
func (c *Client) CheckIn(ctx context.Context, taskID uint, notes, clientSessionID string) (*models.CheckInSession, error) {
	body := checkInRequest{
		TaskID:          taskID,
		Action:          "checkin",
		Notes:           notes,
		ClientSessionID: clientSessionID,
	}
	data, err := c.do(ctx, http.MethodPost, "/time-entries/checkin", body)
	if err != nil {
		return nil, err
	}
	var session models.CheckInSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// CheckOut closes an active session and records the submitted hours.
func (c *Client) CheckOut(ctx context.Context, req CheckOutRequest) (*models.TimeEntry, error) {
	req.Action = "checkout"
	data, err := c.do(ctx, http.MethodPost, "/time-entries/checkout", req)
	if err != nil {
		return nil, err
	}
	var entry models.TimeEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode time entry: %w", err)
	}
	return &entry, nil
}

// Heartbeat pings an active session. Callers treat failures as non-critical.
func (c *Client) Heartbeat(ctx context.Context, sessionID string) error {
	_, err := c.do(ctx, http.MethodPost, "/time-entries/heartbeat", heartbeatRequest{SessionID: sessionID})
	return err
}

// EmergencyCheckout force-closes a session the client believes is orphaned,
// regardless of whether it is still marked active.
func (c *Client) EmergencyCheckout(ctx context.Context, sessionID, notes string) (*models.TimeEntry, error) {
	body := emergencyCheckoutRequest{SessionID: sessionID, Notes: notes}
	data, err := c.do(ctx, http.MethodPost, "/time-entries/emergency-checkout", body)
	if err != nil {
		return nil, err
	}
	var entry models.TimeEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode time entry: %w", err)
	}
	return &entry, nil
}

// Entries lists the person's recorded time entries. from and to are optional
// YYYY-MM-DD bounds; the server defaults to the past 7 days.
func (c *Client) Entries(ctx context.Context, from, to string) ([]models.TimeEntry, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	path := "/time-entries/report"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var entries []models.TimeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode time entries: %w", err)
	}
	return entries, nil
}

// Healthz reports whether the server answers its health probe.
func (c *Client) Healthz(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	return err
}

// Tasks lists the tasks assigned to the configured person.
func (c *Client) Tasks(ctx context.Context) ([]models.Task, error) {
	data, err := c.do(ctx, http.MethodGet, "/tasks", nil)
	if err != nil {
		return nil, err
	}
	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

// Task fetches a single task by ID.
func (c *Client) Task(ctx context.Context, taskID uint) (*models.Task, error) {
	data, err := c.do(ctx, http.MethodGet, "/tasks/"+strconv.FormatUint(uint64(taskID), 10), nil)
	if err != nil {
		return nil, err
	}
	var task models.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	return &task, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Person-ID", c.personID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOffline, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOffline, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unexpected response from server (status %d)", resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusConflict:
		return nil, serverError(ErrConflict, env.Error)
	case http.StatusNotFound:
		return nil, serverError(ErrNotFound, env.Error)
	}
	if !env.Success {
		if env.Error != "" {
			return nil, errors.New(env.Error)
		}
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return env.Data, nil
}

// serverError keeps the sentinel matchable with errors.Is while carrying the
// server's human-readable message.
func serverError(sentinel error, message string) error {
	if message == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, message)
}
