package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/clearcheck/verify-cli/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config.yaml in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		const path = "config.yaml"
		if _, err := os.Stat(path); err == nil && !initForce {
			return eris.Errorf("%s already exists (use --force to overwrite)", path)
		}

		starter := config.Config{
			Store: config.StoreConfig{
				Driver:     "sqlite",
				SQLitePath: "verify.db",
				Namespace:  "default",
			},
			Anthropic: config.AnthropicConfig{
				Key:            "sk-ant-...",
				AnalysisModel:  "claude-haiku-4-5-20251001",
				SynthesisModel: "claude-sonnet-4-5-20250929",
				MaxTokens:      4096,
			},
			Pipeline: config.PipelineConfig{
				StageCooldownMillis: 1500,
				TrustScoreThreshold: 40,
				FetchTimeoutSecs:    30,
			},
			Media: config.MediaConfig{
				FrameCount: 5,
			},
			Batch: config.BatchConfig{
				MaxConcurrentRuns: 3,
			},
			Server: config.ServerConfig{
				Port:           8080,
				AllowedOrigins: []string{"*"},
			},
			Log: config.LogConfig{
				Level:  "info",
				Format: "json",
			},
		}

		data, err := yaml.Marshal(starter)
		if err != nil {
			return eris.Wrap(err, "marshal starter config")
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return eris.Wrapf(err, "write %s", path)
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config.yaml")
	rootCmd.AddCommand(initCmd)
}
