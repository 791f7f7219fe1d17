package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/lildude/fitsync/internal/cli"
)

func main() {
	// A .env file is optional; real environment variables win either way.
	_ = godotenv.Load()

	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
