package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"constitution-rag/internal/app"
)

func newAskCmd(opts *options) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Answer one question from the command line",
		RunE: func(cmd *cobra.Command, args []string) error {
			if query == "" {
				return errors.New("please provide a query using the --query flag")
			}
			ctx := cmd.Context()

			rt, err := app.New(ctx, opts.cfg, app.ModeQuery)
			if err != nil {
				return err
			}
			defer rt.Close()

			querier, err := rt.Querier()
			if err != nil {
				return err
			}
			response, err := querier.Query(ctx, query)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
			fmt.Fprintf(out, "%s\n\n", query)

			log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
			fmt.Fprintf(out, "%s\n\n", response.Source)

			log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
			fmt.Fprintf(out, "Answer: %s\n\n", response.Content)
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Query to be answered")
	return cmd
}
