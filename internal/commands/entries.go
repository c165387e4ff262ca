package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Show your recorded time entries",
	Long: `List the time entries recorded for you, newest window defaulting to the past
7 days. Dates are YYYY-MM-DD and the --to bound is inclusive.

Examples:
  punchcard entries
  punchcard entries --from 2025-06-01 --to 2025-06-07
  punchcard entries --json`,
	Run: func(cmd *cobra.Command, args []string) {
		deps, err := newClientDeps()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		entries, err := deps.client.Entries(cmd.Context(), from, to)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(entries)
			return
		}

		if len(entries) == 0 {
			fmt.Println("No time entries recorded")
			return
		}
		var total float64
		for _, e := range entries {
			total += e.Hours
			line := fmt.Sprintf("%s  task #%-4d %6.2fh", entryDate(e.Date), e.TaskID, e.Hours)
			if e.Source == "emergency" {
				line += "  (emergency)"
			}
			if e.Notes != "" {
				line += "  " + e.Notes
			}
			fmt.Println(line)
		}
		fmt.Printf("Total: %.2f hours across %d entries\n", total, len(entries))
	},
}

// entryDate trims the stored RFC3339 timestamp down to its date part.
func entryDate(date string) string {
	if len(date) >= 10 {
		return date[:10]
	}
	return date
}

func init() {
	entriesCmd.Flags().String("from", "", "Start date (YYYY-MM-DD)")
	entriesCmd.Flags().String("to", "", "End date, inclusive (YYYY-MM-DD)")
	entriesCmd.Flags().Bool("json", false, "JSON output")
}
