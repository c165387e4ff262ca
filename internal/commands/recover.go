package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fieldops/punchcard/internal/reconcile"
	"github.com/fieldops/punchcard/internal/tui"
)

var recoverCmd = &cobra.Command{
	Use:   "recover [task-id]",
	Short: "Reconcile an unsynced session with the server",
	Long: `Compare the locally cached session for a task against the server. When the
server no longer knows about the session, choose one of three resolutions:
recover and continue, check out now (emergency), or discard.

Examples:
  punchcard recover 42                         # Interactive resolution
  punchcard recover 42 --resolution discard    # Non-interactive`,
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
			fmt.Printf("Nothing to recover for task #%d\n", taskID)
			return
		case reconcile.StateCheckedIn:
			if rec.Offline() {
				fmt.Printf("Server unreachable — session for task #%d stays cached until reconnect\n", taskID)
			} else {
				fmt.Printf("Task #%d already has an active session on the server, nothing to recover\n", taskID)
			}
			return
		}

		choice, _ := cmd.Flags().GetString("resolution")
		if choice == "" {
			if err := tui.RunRecoveryTUI(ctx, rec); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
			return
		}

		resolution, err := parseResolution(choice)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		notes, _ := cmd.Flags().GetString("notes")
		if err := rec.Resolve(ctx, resolution, notes); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		switch resolution {
		case reconcile.ResolutionRecover:
			fmt.Printf("⏱  Session recovered, still checked in to task #%d\n", taskID)
		case reconcile.ResolutionCheckout:
			fmt.Println("⏹  Session closed with an emergency check-out")
		case reconcile.ResolutionDiscard:
			fmt.Println("🗑  Cached session discarded, nothing billed")
		}
	},
}

func parseResolution(s string) (reconcile.Resolution, error) {
	switch s {
	case "recover":
		return reconcile.ResolutionRecover, nil
	case "checkout":
		return reconcile.ResolutionCheckout, nil
	case "discard":
		return reconcile.ResolutionDiscard, nil
	}
	return 0, fmt.Errorf("unknown resolution '%s' (want recover|checkout|discard)", s)
}

func init() {
	recoverCmd.Flags().String("resolution", "", "Resolve without the interactive prompt: recover|checkout|discard")
	recoverCmd.Flags().String("notes", "", "Closing notes for an emergency check-out")
}
