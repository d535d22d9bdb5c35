package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compmap/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "compmap",
	Short: "Map search and clustering for appraisal comps",
	Long:  "Serves viewport clusters, drill-down listings and view statistics over property comps stored in PostgreSQL or SQLite, and imports comps from CSV, XLSX and shapefile exports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
