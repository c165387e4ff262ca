package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fieldops/punchcard/internal/models"
	"github.com/fieldops/punchcard/internal/reconcile"
)

// RunTimerTUI shows the live timer and checks the session out when the user
// asks for it.
func RunTimerTUI(ctx context.Context, rec *reconcile.Reconciler, task *models.Task, notes string) error {
	session := rec.Session()
	if session == nil {
		return fmt.Errorf("no active session to display")
	}

	model := NewTimerModel(session, task, rec.Offline())
	p := tea.NewProgram(model, tea.WithAltScreen())

	// Heartbeats run for as long as the timer is on screen.
	hbCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go rec.RunHeartbeat(hbCtx)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	timerModel := finalModel.(TimerModel)
	if !timerModel.CheckingOut() {
		fmt.Printf("\nStill checked in to task #%d: %s\n", task.ID, task.Title)
		fmt.Println("Use 'punchcard status' to check the session or 'punchcard checkout' to close it.")
		return nil
	}

	entry, err := rec.CheckOut(ctx, notes)
	if err != nil {
		return fmt.Errorf("failed to check out: %w", err)
	}
	fmt.Printf("⏹  Checked out of task #%d: %s\n", task.ID, task.Title)
	fmt.Printf("Recorded %.2f hours\n", entry.Hours)
	return nil
}

// RunRecoveryTUI asks the user how to resolve an unsynced cached session and
// applies the choice. Leaving without choosing keeps the session pending.
func RunRecoveryTUI(ctx context.Context, rec *reconcile.Reconciler) error {
	pending := rec.Pending()
	if pending == nil {
		return fmt.Errorf("no recovery pending")
	}

	model := NewRecoveryModel(pending)
	finalModel, err := tea.NewProgram(model).Run()
	if err != nil {
		return err
	}

	resolution, notes, ok := finalModel.(RecoveryModel).Choice()
	if !ok {
		fmt.Println("Session left unresolved. Run 'punchcard recover' to decide later.")
		return nil
	}

	if err := rec.Resolve(ctx, resolution, notes); err != nil {
		return err
	}

	switch resolution {
	case reconcile.ResolutionRecover:
		fmt.Printf("⏱  Session recovered, still checked in to task #%d\n", pending.TaskID)
	case reconcile.ResolutionCheckout:
		fmt.Printf("⏹  Session closed with an emergency check-out\n")
	case reconcile.ResolutionDiscard:
		fmt.Printf("🗑  Cached session discarded, nothing billed\n")
	}
	return nil
}
