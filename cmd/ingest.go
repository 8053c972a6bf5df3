package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"constitution-rag/internal/app"
	"constitution-rag/internal/helper"
	"constitution-rag/internal/rag"
)

func newIngestCmd(opts *options) *cobra.Command {
	var (
		filePath string
		dryRun   bool
		reset    bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load, split, embed and store the source document",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := opts.cfg
			if filePath == "" {
				filePath = cfg.Source.Path
			}

			if dryRun {
				chunks, _, err := rag.NewIngestor(nil, nil, cfg).LoadAndSplit(ctx, filePath)
				if err != nil {
					return err
				}
				helper.PrettyPrint(cmd.OutOrStdout(), chunks)
				return nil
			}

			rt, err := app.New(ctx, cfg, app.ModeIngest)
			if err != nil {
				return err
			}
			defer rt.Close()

			if reset {
				log.Info().Str("collection", cfg.Store.Collection).Msg("Clearing collection")
				if err := rt.Store.Reset(ctx); err != nil {
					return fmt.Errorf("failed to reset store: %w", err)
				}
			}

			res, err := rt.Ingestor().Ingest(ctx, filePath)
			if err != nil {
				return err
			}
			log.Info().Str("source", res.Source).Int("documents", res.Documents).Int("chunks", res.Chunks).Msg("Ingestion finished")
			fmt.Fprintln(cmd.OutOrStdout(), "Database built!")
			return nil
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "", "Path to the document file, defaults to source.path")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Dry run, print the chunks and do not save to database")
	cmd.Flags().BoolVar(&reset, "reset", false, "Clear the collection before ingesting")
	return cmd
}
