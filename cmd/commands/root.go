package commands

import (
	"fmt"

	"github.com/car-advisor/advisor/pkg/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Car purchase diagnosis and recommendation service",
	Long:  `Three-step car buyer diagnosis that maps answers to a profile and fetches matching cars`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Register subcommands
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(serverCmd) // HTTP API server
}

// loadConfig reads configuration and applies the configured log level
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	return cfg, nil
}
