package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fieldops/punchcard/internal/models"
	"github.com/fieldops/punchcard/internal/reconcile"
)

// RecoveryModel presents the three resolutions for a cached session the
// server no longer knows about: recover and continue, check out now, or
// discard.
type RecoveryModel struct {
	width  int
	height int

	pending *models.CheckInSession

	cursor    int
	options   []recoveryOption
	notes     textinput.Model
	takeNotes bool // emergency checkout asks for closing notes first

	chosen     bool
	resolution reconcile.Resolution
}

type recoveryOption struct {
	label      string
	detail     string
	resolution reconcile.Resolution
}

func NewRecoveryModel(pending *models.CheckInSession) RecoveryModel {
	notes := textinput.New()
	notes.Placeholder = "closing notes (optional)"
	notes.CharLimit = 500
	notes.Width = 48

	return RecoveryModel{
		pending: pending,
		options: []recoveryOption{
			{
				label:      "Recover and continue",
				detail:     "re-establish this session on the server and keep working",
				resolution: reconcile.ResolutionRecover,
			},
			{
				label:      "Check out now",
				detail:     "force-close the session and bill the elapsed time",
				resolution: reconcile.ResolutionCheckout,
			},
			{
				label:      "Discard",
				detail:     "drop the cached session, nothing is billed",
				resolution: reconcile.ResolutionDiscard,
			},
		},
		notes: notes,
	}
}

func (m RecoveryModel) Init() tea.Cmd {
	return nil
}

func (m RecoveryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.takeNotes {
			switch msg.String() {
			case "enter":
				m.chosen = true
				return m, tea.Quit
			case "esc":
				m.takeNotes = false
				m.notes.Blur()
				return m, nil
			case "ctrl+c":
				return m, tea.Quit
			}
			var cmd tea.Cmd
			m.notes, cmd = m.notes.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}
		case "enter":
			m.resolution = m.options[m.cursor].resolution
			if m.resolution == reconcile.ResolutionCheckout {
				m.takeNotes = true
				m.notes.Focus()
				return m, textinput.Blink
			}
			m.chosen = true
			return m, tea.Quit
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m RecoveryModel) View() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorWarning)).
		Bold(true)
	b.WriteString(titleStyle.Render("⚠  Unsynced session found"))
	b.WriteString("\n\n")

	elapsed := m.pending.Elapsed(time.Now())
	infoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText))
	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Task #%d · checked in %s · %s elapsed",
		m.pending.TaskID,
		m.pending.CheckInTime.Format("Jan 02 15:04"),
		formatClock(elapsed),
	)))
	b.WriteString("\n")
	if m.pending.Notes != "" {
		b.WriteString(infoStyle.Render("Notes: " + m.pending.Notes))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.takeNotes {
		b.WriteString(infoStyle.Render("Closing notes for the emergency check-out:"))
		b.WriteString("\n\n")
		b.WriteString(m.notes.View())
		b.WriteString("\n\n")
		helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelpText)).Italic(true)
		b.WriteString(helpStyle.Render("enter confirm · esc back"))
		return b.String()
	}

	for i, opt := range m.options {
		cursor := "  "
		labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText))
		if i == m.cursor {
			cursor = "> "
			labelStyle = labelStyle.Foreground(lipgloss.Color(ColorAccentBright)).Bold(true)
		}
		b.WriteString(cursor + labelStyle.Render(opt.label))
		b.WriteString("\n")
		detailStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDisabledText))
		b.WriteString("    " + detailStyle.Render(opt.detail))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelpText)).Italic(true)
	b.WriteString(helpStyle.Render("↑/↓ select · enter confirm · esc leave unresolved"))

	return b.String()
}

// Choice returns the selected resolution and closing notes; ok is false when
// the user left without choosing.
func (m RecoveryModel) Choice() (reconcile.Resolution, string, bool) {
	return m.resolution, m.notes.Value(), m.chosen
}
