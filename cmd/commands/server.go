package commands

import (
	"context"
	"fmt"

	"github.com/car-advisor/advisor/pkg/api"
	"github.com/car-advisor/advisor/pkg/database"
	"github.com/car-advisor/advisor/pkg/engine"
	"github.com/car-advisor/advisor/pkg/favorites"
	"github.com/car-advisor/advisor/pkg/metrics"
	"github.com/car-advisor/advisor/pkg/wizard"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	serverPort string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP API server",
	Long: `Start the advisor HTTP API server.

The server exposes REST endpoints for:
  - The three-step diagnosis and its result
  - Recommendations fetched from the car catalog service
  - Per-browser favorites
  - Prometheus metrics

Examples:
  # Start server on the configured port
  advisor server

  # Start server on custom port
  advisor server --port 9090

Environment variables:
  ADVISOR_UPSTREAM_URL      - Recommendation service base URL (default: http://localhost:5000)
  ADVISOR_UPSTREAM_TIMEOUT  - Upstream call timeout (default: 15s)
  ADVISOR_DATABASE_URL      - PostgreSQL connection string; favorites stay in memory when unset
  ADVISOR_AUDIT_DIR         - Directory for diagnosis audit records
  ADVISOR_VARIANT_FILE      - HCL file with request mapping constants
  ADVISOR_CORS_ORIGINS      - Comma-separated CORS origins (default: *)
  ADVISOR_LOG_LEVEL         - Logging level (debug/info/warn/error)`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().StringVar(&serverPort, "port", "", "HTTP server port (overrides configuration)")
}

func runServer(cmd *cobra.Command, args []string) error {
	log.Info("Initializing advisor HTTP API server")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serverPort != "" {
		cfg.Port = serverPort
	}

	recorder, err := metrics.New(nil)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	eng, err := engine.New(cfg, recorder)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	sessions, err := wizard.NewStore(cfg.SessionCapacity)
	if err != nil {
		return err
	}

	deps := api.Deps{
		Engine:    eng,
		Sessions:  sessions,
		Favorites: favorites.NewMemoryStore(),
	}

	if cfg.UseDatabase() {
		db, err := database.Connect(commandContext(cmd), cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return fmt.Errorf("database migration failed: %w", err)
		}

		deps.Favorites = favorites.NewPostgresStore(db.Pool())
		deps.DB = db
	} else {
		log.Warn("No database configured, favorites are kept in memory")
	}

	log.WithFields(log.Fields{
		"port":     cfg.Port,
		"upstream": cfg.UpstreamURL,
		"database": cfg.UseDatabase(),
	}).Info("Server configuration loaded")

	server := api.New(cfg, deps)

	log.Info("Server started successfully - ready to receive requests")

	return server.Start(cfg.Port)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
