package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fieldops/punchcard/internal/reconcile"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout [task-id]",
	Short: "Check out of a task and record the hours",
	Long: `Close the active session for a task. Hours are computed from the check-in
time and rounded to 2 decimal places for billing.

Examples:
  punchcard checkout 42
  punchcard checkout 42 --notes "replaced the compressor"`,
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

		state, err := rec.Reconcile(ctx)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		switch state {
		case reconcile.StateIdle:
			fmt.Printf("No active session for task #%d\n", taskID)
			return
		case reconcile.StateRecoveryPending:
			fmt.Printf("Task #%d has an unsynced session. Run 'punchcard recover %d' first.\n", taskID, taskID)
			return
		}

		notes, _ := cmd.Flags().GetString("notes")
		entry, err := rec.CheckOut(ctx, notes)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		fmt.Printf("⏹  Checked out of task #%d\n", taskID)
		fmt.Printf("Recorded %.2f hours\n", entry.Hours)
	},
}

func init() {
	checkoutCmd.Flags().String("notes", "", "Closing notes for the time entry")
}
