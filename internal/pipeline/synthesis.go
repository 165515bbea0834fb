package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/clearcheck/verify-cli/internal/model"
	"github.com/clearcheck/verify-cli/pkg/anthropic"
)

// synthesize streams the final verification report. Chunks are appended to
// the returned buffer in arrival order and also handed to onChunk as they
// land; on a mid-stream failure the text emitted so far is not retracted.
func (o *Orchestrator) synthesize(ctx context.Context, results model.AnalysisResults, onChunk func(string)) (string, error) {
	findings, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", newError(ErrKindStage, model.StageFinalSynthesis, eris.Wrap(err, "marshal findings"))
	}

	stream, err := o.model.StreamMessage(ctx, anthropic.MessageRequest{
		Model:     o.cfg.Anthropic.SynthesisModel,
		MaxTokens: o.cfg.Anthropic.MaxTokens,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(synthesisPromptTemplate, string(findings))},
		},
	})
	if err != nil {
		return "", newError(ErrKindStream, model.StageFinalSynthesis, err)
	}
	defer stream.Close()

	var report strings.Builder
	for stream.Next() {
		chunk := stream.Text()
		report.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	if err := stream.Err(); err != nil {
		return report.String(), newError(ErrKindStream, model.StageFinalSynthesis, err)
	}
	if report.Len() == 0 {
		return "", newError(ErrKindStream, model.StageFinalSynthesis, eris.New("stream produced no report text"))
	}
	return report.String(), nil
}
