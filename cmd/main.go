package main

import (
	"os"

	"github.com/car-advisor/advisor/cmd/commands"
	log "github.com/sirupsen/logrus"
)

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	// Execute root command
	if err := commands.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
