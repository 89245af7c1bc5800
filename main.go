package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"apdash/cmd"
	"apdash/internal/config"
	"apdash/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Subcommands re-read the configuration and report errors themselves;
	// here it only decides how to log.
	cfg, err := config.Load()
	if err != nil {
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else {
		if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}

	log := logger.WithComponent("main")
	log.Debug().Msg("Starting apdash")

	cmd.Execute()

	log.Debug().Msg("apdash shutdown")
	os.Exit(0)
}
