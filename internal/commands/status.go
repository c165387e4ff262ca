package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldops/punchcard/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cached sessions and their sync state",
	Run: func(cmd *cobra.Command, args []string) {
		deps, err := newClientDeps()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		sessions := deps.sessions.GetAll()
		if len(sessions) == 0 {
			fmt.Println("No active or cached sessions")
			return
		}

		now := time.Now()
		for _, s := range sessions {
			elapsed := s.Elapsed(now)
			sync := "synced"
			if s.PersonID == models.OfflinePersonID {
				sync = "offline, not yet synced"
			}
			fmt.Printf("⏱  Task #%d — checked in at %s, %s elapsed (%s)\n",
				s.TaskID, s.CheckInTime.Format("15:04:05"), formatDuration(elapsed), sync)
			if s.Notes != "" {
				fmt.Printf("   Notes: %s\n", s.Notes)
			}
		}
	},
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d.Hours() >= 1 {
		return fmt.Sprintf("%.1fh", d.Hours())
	} else if d.Minutes() >= 1 {
		return fmt.Sprintf("%.0fm", d.Minutes())
	} else {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
}
