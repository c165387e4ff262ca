package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldops/punchcard/internal/config"
	"github.com/fieldops/punchcard/internal/db"
	"github.com/fieldops/punchcard/internal/observability"
	"github.com/fieldops/punchcard/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the time-entry server",
	Long: `Run the authoritative time-entry server the punchcard clients talk to. It
owns the canonical check-in sessions and the derived billing entries.

Examples:
  punchcard serve
  punchcard serve --addr :9000 --db /var/lib/punchcard/punchcard.db`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Server.Addr
		}
		dbPath, _ := cmd.Flags().GetString("db")
		if dbPath == "" {
			dbPath = cfg.Server.DBPath
		}

		gdb, err := db.Open(dbPath)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		defer func() { _ = db.Close(gdb) }()

		log := observability.WithFields("component", "server")
		srv := server.NewServer(db.NewSessionService(gdb), db.NewTaskService(gdb), log)
		if err := srv.Run(addr); err != nil {
			log.Error("server stopped", "error", err)
		}
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (defaults to server.addr from config)")
	serveCmd.Flags().String("db", "", "SQLite database path (defaults to server.db_path from config)")
}
