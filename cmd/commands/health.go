package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/car-advisor/advisor/pkg/database"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database connectivity and system health",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !cfg.UseDatabase() {
		fmt.Fprintln(cmd.OutOrStdout(), "- Database not configured, favorites use memory")
		return nil
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), 5*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Database connection healthy")
	return nil
}
