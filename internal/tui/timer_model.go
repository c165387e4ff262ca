package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fieldops/punchcard/internal/models"
)

// TimerModel shows the running session for a task. The elapsed display ticks
// once per second purely from the check-in time; it never decides whether the
// session is still valid.
type TimerModel struct {
	width  int
	height int

	session *models.CheckInSession
	task    *models.Task
	offline bool

	elapsed time.Duration

	// UI state
	checkingOut bool // user pressed C, check out on exit
	exiting     bool // user left the timer running
}

// timerTickMsg is sent every second to update the elapsed display
type timerTickMsg struct{}

// NewTimerModel creates the timer model for an active session
func NewTimerModel(session *models.CheckInSession, task *models.Task, offline bool) TimerModel {
	return TimerModel{
		session: session,
		task:    task,
		offline: offline,
		elapsed: session.Elapsed(time.Now()),
	}
}

func (m TimerModel) Init() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return timerTickMsg{}
	})
}

func (m TimerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case timerTickMsg:
		m.elapsed = m.session.Elapsed(time.Now())
		if !m.checkingOut && !m.exiting {
			return m, tea.Tick(time.Second, func(t time.Time) tea.Msg {
				return timerTickMsg{}
			})
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "c", "C":
			m.checkingOut = true
			return m, tea.Quit
		case "ctrl+c", "esc", "q":
			m.exiting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m TimerModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var components []string

	header := "⏱  ON THE CLOCK"
	if m.offline {
		header = "⏱  ON THE CLOCK (offline)"
	}
	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccentBright)).
		Bold(true).
		Align(lipgloss.Center).
		Width(m.width)
	components = append(components, headerStyle.Render(header))

	taskStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorPrimaryText)).
		Bold(true).
		Align(lipgloss.Center).
		Width(m.width)
	components = append(components, taskStyle.Render(fmt.Sprintf("#%d  %s", m.task.ID, m.task.Title)))

	clockStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccentMain)).
		Bold(true).
		Align(lipgloss.Center).
		Width(m.width)
	components = append(components, clockStyle.Render(formatClock(m.elapsed)))

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorSecondaryText)).
		Italic(true).
		Align(lipgloss.Center).
		Width(m.width)
	components = append(components, infoStyle.Render(
		fmt.Sprintf("Checked in at %s", m.session.CheckInTime.Format("15:04:05"))))

	if m.offline {
		offlineStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorWarning)).
			Align(lipgloss.Center).
			Width(m.width)
		components = append(components, offlineStyle.Render(
			"No connection — session cached locally, will sync on reconnect"))
	}

	content := strings.Join(components, "\n\n")

	panel := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height - 2).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Italic(true).
		Align(lipgloss.Center).
		Width(m.width)
	help := helpStyle.Render("c check out · esc/q exit (stay checked in) · ctrl+c force quit")

	return lipgloss.JoinVertical(lipgloss.Left, panel, help)
}

// CheckingOut reports whether the user asked to check out on exit.
func (m TimerModel) CheckingOut() bool {
	return m.checkingOut
}

func formatClock(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
