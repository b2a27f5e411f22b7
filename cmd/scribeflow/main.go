package main

import (
	"os"

	"github.com/joho/godotenv"

	"scribeflow/internal/app"
	"scribeflow/internal/cli"
	"scribeflow/internal/logging"
)

func main() {
	// Optional; settings env overrides come from the environment either way.
	_ = godotenv.Load()

	logger := logging.New()

	application, err := app.New(logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}

	deps := &cli.Dependencies{
		App:    application,
		Logger: logger,
	}

	if err := cli.NewRootCmd(deps).Execute(); err != nil {
		os.Exit(1)
	}
}
