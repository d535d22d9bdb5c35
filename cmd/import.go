package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compmap/internal/ingest"
)

var (
	importFile     string
	importSheet    string
	importSkipRows int
	importCharset  string
	importAccount  string
	importUser     string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import comps from a CSV, TSV, XLSX or shapefile export",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		if importAccount != "" {
			cfg.Import.AccountID = importAccount
		}
		if importUser != "" {
			cfg.Import.UserID = importUser
		}

		st, err := openStore(ctx, "import", true)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		src, err := ingest.Open(ctx, importFile, ingest.Options{
			Charset:  importCharset,
			Sheet:    importSheet,
			SkipRows: importSkipRows,
		})
		if err != nil {
			return eris.Wrap(err, "import: open source")
		}
		defer src.Close() //nolint:errcheck

		res, err := ingest.Load(ctx, st, src, ingest.LoadOptions{
			BatchSize:   cfg.Import.BatchSize,
			Concurrency: cfg.Import.Concurrency,
			Defaults: ingest.Defaults{
				AccountID: cfg.Import.AccountID,
				UserID:    cfg.Import.UserID,
				CreatedAt: time.Now().UTC(),
			},
		})
		if err != nil {
			return eris.Wrap(err, "import: load")
		}

		zap.L().Info("import complete",
			zap.String("file", importFile),
			zap.Int("rows", res.Rows),
			zap.Int("loaded", res.Loaded),
			zap.Int("skipped", res.Skipped),
			zap.Int("unplaceable", res.Unplaceable),
		)
		return writeOutput(cmd.OutOrStdout(), outputFormat, res)
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to the export (required)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	importCmd.Flags().IntVar(&importSkipRows, "skip-rows", 0, "XLSX rows above the header")
	importCmd.Flags().StringVar(&importCharset, "charset", "", "CSV encoding, e.g. windows-1252")
	importCmd.Flags().StringVar(&importAccount, "account", "", "account id for rows without one")
	importCmd.Flags().StringVar(&importUser, "user", "", "user id for rows without one")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
