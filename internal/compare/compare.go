// Package compare synthesizes one brief out of several past verification
// reports. The brief is streamed and never persisted.
package compare

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clearcheck/verify-cli/internal/config"
	"github.com/clearcheck/verify-cli/internal/model"
	"github.com/clearcheck/verify-cli/pkg/anthropic"
)

const comparisonPromptTemplate = `You are comparing several past content-verification reports.
Synthesize one brief that highlights common narratives, contradictions
between the analyzed sources, and any pattern in trustworthiness.
Write markdown. Reports follow, separated by headers.

%s`

// Flow runs comparative synthesis over selected history items.
type Flow struct {
	cfg   *config.Config
	model anthropic.Client
}

// New creates a comparison flow.
func New(cfg *config.Config, client anthropic.Client) *Flow {
	return &Flow{cfg: cfg, model: client}
}

// Compare streams a synthesized brief over the given items. Fewer than two
// items is a no-op, not an error: no stream is started and "" is returned.
// Chunks are appended to the returned buffer in arrival order and passed to
// onChunk as they land; on a mid-stream failure the text already emitted is
// kept and the error is surfaced with a "comparison failed" prefix.
func (f *Flow) Compare(ctx context.Context, items []model.HistoryItem, onChunk func(string)) (string, error) {
	if len(items) < 2 {
		zap.L().Debug("compare: fewer than two items selected, skipping")
		return "", nil
	}

	var reports strings.Builder
	for i, item := range items {
		fmt.Fprintf(&reports, "## Report %d — %s (%s)\n\n%s\n\n", i+1, item.Input, item.CreatedAt.Format("2006-01-02"), item.Report)
	}

	stream, err := f.model.StreamMessage(ctx, anthropic.MessageRequest{
		Model:     f.cfg.Anthropic.SynthesisModel,
		MaxTokens: f.cfg.Anthropic.MaxTokens,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(comparisonPromptTemplate, reports.String())},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "comparison failed")
	}
	defer stream.Close()

	var brief strings.Builder
	for stream.Next() {
		chunk := stream.Text()
		brief.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	if err := stream.Err(); err != nil {
		return brief.String(), eris.Wrap(err, "comparison failed")
	}
	return brief.String(), nil
}
