package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearcheck/verify-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "verify-cli",
	Short: "Multi-agent content verification pipeline",
	Long:  "Analyzes URLs, text, images, and video through textual, emotional, visual, and source-credibility agents, then synthesizes a streamed verification report.",
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
