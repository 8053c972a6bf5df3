package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"constitution-rag/internal/helper"
)

func main() {
	// replaced once the config is loaded
	if err := helper.SetupLogger(os.Stderr, "info"); err != nil {
		panic(err)
	}

	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}
