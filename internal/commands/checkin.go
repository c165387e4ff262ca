package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fieldops/punchcard/internal/models"
	"github.com/fieldops/punchcard/internal/reconcile"
	"github.com/fieldops/punchcard/internal/tui"
)

var checkinCmd = &cobra.Command{
	Use:   "checkin [task-id]",
	Short: "Check in to a task and start tracking time",
	Long: `Check in to a task. Opens the interactive timer by default, use --no-ui for
a plain check-in. Works offline: the session is cached locally and synced to
the server when connectivity returns.

Examples:
  punchcard checkin 42                       # Check in with interactive timer
  punchcard checkin 42 --notes "boiler job"  # Attach notes to the session
  punchcard checkin 42 --no-ui               # Check in and return to the shell`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		taskID, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			fmt.Printf("Error: invalid task ID '%s'\n", args[0])
			return
		}

		deps, err := newClientDeps()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		ctx := cmd.Context()
		rec := deps.reconciler(uint(taskID))

		// An unsynced session for this task must be resolved first.
		state, err := rec.Reconcile(ctx)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		switch state {
		case reconcile.StateRecoveryPending:
			fmt.Printf("Task #%d has an unsynced session. Run 'punchcard recover %d' first.\n", taskID, taskID)
			return
		case reconcile.StateCheckedIn:
			fmt.Printf("Already checked in to task #%d. Use 'punchcard checkout %d' to close it.\n", taskID, taskID)
			return
		}

		notes, _ := cmd.Flags().GetString("notes")
		session, err := rec.CheckIn(ctx, notes)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		if rec.Offline() {
			fmt.Printf("⏱  Checked in offline to task #%d — session cached locally\n", taskID)
		} else {
			fmt.Printf("⏱  Checked in to task #%d\n", taskID)
		}
		fmt.Printf("Checked in at: %s\n", session.CheckInTime.Format("15:04:05"))

		noUI, _ := cmd.Flags().GetBool("no-ui")
		if noUI {
			return
		}

		// While the timer is on screen the observer keeps probing the server
		// and reconciliation reruns on every reconnect.
		go deps.conn.Run(ctx)
		go rec.WatchConnectivity(ctx)

		task := lookupTask(ctx, deps, uint(taskID))
		if err := tui.RunTimerTUI(ctx, rec, task, notes); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	},
}

// lookupTask fetches the task for display, falling back to a bare record when
// the server is unreachable.
func lookupTask(ctx context.Context, deps *clientDeps, taskID uint) *models.Task {
	task, err := deps.client.Task(ctx, taskID)
	if err != nil {
		return &models.Task{ID: taskID, Title: fmt.Sprintf("task #%d", taskID)}
	}
	return task
}

func init() {
	checkinCmd.Flags().String("notes", "", "Notes to attach to the session")
	checkinCmd.Flags().Bool("no-ui", false, "Check in without the interactive timer")
}
