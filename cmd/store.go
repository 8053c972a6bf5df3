package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"constitution-rag/internal/app"
	"constitution-rag/internal/chromemdb"
	"constitution-rag/internal/config"
)

var errChromemOnly = errors.New("export and import need the chromem backend")

func openChromem(cmd *cobra.Command, cfg *config.Config, readOnly bool) (*chromemdb.VectorDBManager, error) {
	if cfg.Store.Backend != config.BackendChromem {
		return nil, errChromemOnly
	}
	store, err := app.OpenStore(cmd.Context(), cfg, readOnly, nil)
	if err != nil {
		return nil, err
	}
	return store.(*chromemdb.VectorDBManager), nil
}

// exportPath names the export file after the collection, with .gz and .enc
// suffixes when the file is compressed or encrypted.
func exportPath(cfg *config.Config) string {
	path := cfg.Store.Collection + ".gob"
	if cfg.Store.Compress {
		path += ".gz"
	}
	if cfg.RAG.EncryptionKey != "" {
		path += ".enc"
	}
	return path
}

func newExportCmd(opts *options) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the collection to a single file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = exportPath(opts.cfg)
			}
			m, err := openChromem(cmd, opts.cfg, true)
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.Export(cmd.Context(), out); err != nil {
				return err
			}
			log.Info().Str("file", out).Msg("Exported collection")
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Export file path, defaults to <collection>.gob[.gz][.enc]")
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a collection written by export",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in == "" {
				return fmt.Errorf("please provide the file to import using the --in flag")
			}
			m, err := openChromem(cmd, opts.cfg, false)
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.Import(cmd.Context(), in); err != nil {
				return err
			}
			n, err := m.Count(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Str("file", in).Int("entries", n).Msg("Imported collection")
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "File written by export")
	return cmd
}
