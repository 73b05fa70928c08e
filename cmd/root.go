package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lifelink-health/donormatch/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "donormatch",
	Short: "Blood donor matching and suitability ranking engine",
	Long:  "Matches seekers to compatible blood donors, ranks candidates by distance and a multi-factor suitability score, and records suggestion outcomes for model recalibration.",
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
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
