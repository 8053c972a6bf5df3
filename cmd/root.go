package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"constitution-rag/internal/config"
	"constitution-rag/internal/helper"
)

const defaultConfigPath = "./configs/config.yaml"

// options are shared by every subcommand. cfg is filled in by the root
// command's PersistentPreRunE.
type options struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "constitution-rag",
		Short:         "Ask questions about a PDF using retrieval augmented generation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "Path to the YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level, overrides log.level from the config")

	cmd.AddCommand(
		newIngestCmd(opts),
		newServeCmd(opts),
		newAskCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
	)
	return cmd
}

func (o *options) load(cmd *cobra.Command) error {
	// a missing .env is fine, variables may come from the environment
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(o.configPath)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg, err = config.LoadConfig("")
	}
	if err != nil {
		return err
	}

	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := helper.SetupLogger(cmd.ErrOrStderr(), cfg.Log.Level); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Debug().Interface("config", cfg).Msg("Loaded config")
	o.cfg = cfg
	return nil
}
