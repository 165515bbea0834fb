package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearcheck/verify-cli/internal/chat"
	"github.com/clearcheck/verify-cli/internal/media"
	"github.com/clearcheck/verify-cli/internal/model"
	"github.com/clearcheck/verify-cli/internal/pipeline"
	anthropicpkg "github.com/clearcheck/verify-cli/pkg/anthropic"
)

var (
	analyzeURL   string
	analyzeText  string
	analyzeImage string
	analyzeVideo string
	analyzeChat  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the verification pipeline for one submission",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sub, err := buildSubmission()
		if err != nil {
			return err
		}
		if sub.Empty() {
			return eris.New("supply at least one of --url, --text, --image, --video")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		frames := media.NewFFmpeg(cfg.Media.FFmpegPath, cfg.Media.FFprobePath)

		observe := func(state model.PipelineState, _ model.AnalysisResults) {
			printStageLine(state)
		}

		orch := pipeline.New(cfg, st, client, frames, observe)

		fmt.Fprintln(os.Stderr)
		outcome, runErr := orch.Run(ctx, sub, func(chunk string) {
			fmt.Print(chunk)
		})
		fmt.Println()

		if outcome != nil && outcome.Warning != "" {
			fmt.Fprintf(os.Stderr, "\n⚠ %s\n", outcome.Warning)
		}
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "\n%s\n", pipeline.Translate(runErr))
			return runErr
		}

		zap.L().Info("analysis complete", zap.String("run_id", outcome.Item.ID))

		if analyzeChat {
			session := chat.New(cfg, client, outcome.Report)
			if session == nil {
				return nil
			}
			return chatREPL(ctx, session)
		}
		return nil
	},
}

func buildSubmission() (model.Submission, error) {
	sub := model.Submission{
		URL:  strings.TrimSpace(analyzeURL),
		Text: analyzeText,
	}
	if analyzeImage != "" {
		blob, err := readMedia(analyzeImage)
		if err != nil {
			return sub, err
		}
		sub.Image = blob
	}
	if analyzeVideo != "" {
		blob, err := readMedia(analyzeVideo)
		if err != nil {
			return sub, err
		}
		sub.Video = blob
	}
	return sub, nil
}

func readMedia(path string) (*model.MediaBlob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read media %s", path)
	}
	return &model.MediaBlob{Data: data, MimeType: mimeOf(path)}, nil
}

func mimeOf(path string) string {
	switch {
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	case strings.HasSuffix(path, ".gif"):
		return "image/gif"
	case strings.HasSuffix(path, ".webp"):
		return "image/webp"
	case strings.HasSuffix(path, ".webm"):
		return "video/webm"
	case strings.HasSuffix(path, ".mov"):
		return "video/quicktime"
	case strings.HasSuffix(path, ".mp4"):
		return "video/mp4"
	}
	return "image/jpeg"
}

// printStageLine renders a one-line progress view of the pipeline.
func printStageLine(state model.PipelineState) {
	marks := make([]string, 0, len(model.Stages))
	for _, stage := range model.Stages {
		ss := state[stage]
		mark := "·"
		switch ss.Status {
		case model.StageRunning:
			mark = "▶"
		case model.StageCompleted:
			mark = "✓"
		case model.StageSkipped:
			mark = "−"
		case model.StageError:
			mark = "✗"
		}
		marks = append(marks, fmt.Sprintf("%s %s", mark, stage))
	}
	fmt.Fprintf(os.Stderr, "\r%s", strings.Join(marks, "  "))
}

// chatREPL drives a grounded follow-up session on stdin.
func chatREPL(ctx context.Context, session *chat.Session) error {
	fmt.Println("\nFollow-up chat. Ask about the report; empty line exits.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			return nil
		}
		if err := session.Send(ctx, line, func(chunk string) {
			fmt.Print(chunk)
		}); err != nil {
			fmt.Fprintf(os.Stderr, "chat failed: %v\n", err)
			return err
		}
		fmt.Println()
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "", "URL to verify")
	analyzeCmd.Flags().StringVar(&analyzeText, "text", "", "raw text to verify")
	analyzeCmd.Flags().StringVar(&analyzeImage, "image", "", "path to an image file")
	analyzeCmd.Flags().StringVar(&analyzeVideo, "video", "", "path to a video file")
	analyzeCmd.Flags().BoolVar(&analyzeChat, "chat", false, "open a follow-up chat after the report")
	rootCmd.AddCommand(analyzeCmd)
}
