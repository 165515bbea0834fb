package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clearcheck/verify-cli/internal/media"
	"github.com/clearcheck/verify-cli/internal/model"
	"github.com/clearcheck/verify-cli/internal/pipeline"
	anthropicpkg "github.com/clearcheck/verify-cli/pkg/anthropic"
)

var batchFile string

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Verify a file of URLs, one per line",
	Long:  "Runs the verification pipeline for every URL in the file. Runs are independent and execute with bounded concurrency; stages within each run stay strictly sequential.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		urls, err := readURLFile(batchFile)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return eris.Errorf("no URLs found in %s", batchFile)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		frames := media.NewFFmpeg(cfg.Media.FFmpegPath, cfg.Media.FFprobePath)

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Batch.MaxConcurrentRuns)

		results := make([]string, len(urls))
		for i, u := range urls {
			g.Go(func() error {
				// Each run gets its own orchestrator so cooldown limiters
				// are not shared across runs.
				orch := pipeline.New(cfg, st, client, frames, nil)
				outcome, runErr := orch.Run(gCtx, model.Submission{URL: u}, nil)
				if runErr != nil {
					results[i] = fmt.Sprintf("FAILED  %s: %s", u, pipeline.Translate(runErr))
					zap.L().Error("batch: run failed", zap.String("url", u), zap.Error(runErr))
					return nil // one failure does not stop the batch
				}
				results[i] = fmt.Sprintf("OK      %s (run %s)", u, outcome.Item.ID)
				return nil
			})
		}
		_ = g.Wait()

		var failed int
		for _, line := range results {
			if strings.HasPrefix(line, "FAILED") {
				failed++
			}
			fmt.Println(line)
		}
		zap.L().Info("batch complete", zap.Int("total", len(urls)), zap.Int("failed", failed))
		return nil
	},
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, eris.Wrap(scanner.Err(), "scan url file")
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "path to a file of URLs (required)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}
