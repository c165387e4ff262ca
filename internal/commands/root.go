package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldops/punchcard/internal/api"
	"github.com/fieldops/punchcard/internal/cache"
	"github.com/fieldops/punchcard/internal/config"
	"github.com/fieldops/punchcard/internal/observability"
	"github.com/fieldops/punchcard/internal/reconcile"
)

// probeInterval is how often the connectivity observer pings the server.
const probeInterval = 30 * time.Second

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "punchcard",
	Short: "Field-service check-in/check-out time tracking",
	Long: `punchcard tracks work time against field-service tasks. Check in when you
start, check out when you finish, and keep working through connectivity gaps:
offline sessions are cached locally and reconciled when the server is back.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			observability.SetLevel(slog.LevelDebug)
		}
	},
}

// clientDeps bundles everything a client-side command needs.
type clientDeps struct {
	cfg      *config.Config
	client   *api.Client
	sessions *cache.SessionCache
	conn     *reconcile.ProbeObserver
}

// newClientDeps loads config and wires the client stack. Person identity is
// required for anything that talks to the server.
func newClientDeps() (*clientDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Person.ID == "" {
		return nil, fmt.Errorf("no person configured: set person.id in %s or PUNCHCARD_PERSON", config.GlobalConfigPath())
	}

	client := api.NewClient(cfg.Server.URL, cfg.Person.ID)
	sessions := cache.NewSessionCache(cache.NewFileKV(cfg.Cache.Dir), observability.Logger())
	conn := reconcile.NewProbeObserver(client.Healthz, probeInterval)

	return &clientDeps{cfg: cfg, client: client, sessions: sessions, conn: conn}, nil
}

// reconciler builds the per-task reconciler over the shared deps.
func (d *clientDeps) reconciler(taskID uint) *reconcile.Reconciler {
	return reconcile.New(taskID, d.client, d.sessions, d.conn, observability.Logger())
}

// SetVersion sets the version information
func SetVersion(v, c, dt string) {
	version = v
	commit = c
	date = dt
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	rootCmd.AddCommand(checkinCmd)
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
