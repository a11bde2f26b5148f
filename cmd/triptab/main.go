package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/triptab/triptab/internal/cli"
	"github.com/triptab/triptab/pkg/logging"
)

func main() {
	// A missing .env is fine; deployments set real environment variables.
	godotenv.Load()
	logging.Setup()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
