package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List open tasks from the server",
	Run: func(cmd *cobra.Command, args []string) {
		deps, err := newClientDeps()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		tasks, err := deps.client.Tasks(cmd.Context())
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(tasks)
			return
		}

		if len(tasks) == 0 {
			fmt.Println("No open tasks")
			return
		}
		for _, t := range tasks {
			line := fmt.Sprintf("#%-4d %s", t.ID, t.Title)
			if t.WorkOrder.Reference != "" {
				line += fmt.Sprintf("  [%s · %s]", t.WorkOrder.Reference, t.WorkOrder.ClientName)
			}
			fmt.Println(line)
		}
	},
}

func init() {
	tasksCmd.Flags().Bool("json", false, "JSON output")
}
