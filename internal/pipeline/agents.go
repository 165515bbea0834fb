package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clearcheck/verify-cli/internal/model"
	"github.com/clearcheck/verify-cli/internal/resilience"
	"github.com/clearcheck/verify-cli/pkg/anthropic"
)

// createMessage sends one request, retrying transient API failures before
// they are allowed to fail a stage.
func (o *Orchestrator) createMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	var resp *anthropic.MessageResponse
	err := resilience.Do(ctx, o.retry, func(ctx context.Context) error {
		r, callErr := o.model.CreateMessage(ctx, req)
		if callErr != nil {
			return callErr
		}
		resp = r
		return nil
	})
	return resp, err
}

// analysisMessage sends one agent prompt and extracts its payload.
func (o *Orchestrator) analysisMessage(ctx context.Context, stage model.AgentStage, prompt string, images []anthropic.Image) (Payload, error) {
	resp, err := o.createMessage(ctx, anthropic.MessageRequest{
		Model:     o.cfg.Anthropic.AnalysisModel,
		MaxTokens: o.cfg.Anthropic.MaxTokens,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt, Images: images},
		},
	})
	if err != nil {
		return Payload{}, newError(ErrKindStage, stage, err)
	}
	resp.Usage.LogUsage(o.cfg.Anthropic.AnalysisModel, string(stage))
	return ExtractPayload(resp.FirstText()), nil
}

// analyzeTextual runs the textual analysis agent. A raw-fallback payload is
// degraded into a summary-only result rather than failing the stage.
func (o *Orchestrator) analyzeTextual(ctx context.Context, text string) (*model.TextualResult, error) {
	payload, err := o.analysisMessage(ctx, model.StageTextualAnalysis, fmt.Sprintf(textualPromptTemplate, text), nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Summary   string   `json:"summary"`
		Sentiment string   `json:"sentiment"`
		Entities  []string `json:"entities"`
		Keywords  []string `json:"keywords"`
	}
	ok, decErr := payload.Decode(&out)
	if decErr != nil || !ok {
		zap.L().Warn("textual agent: degraded payload", zap.Error(decErr))
		return &model.TextualResult{
			Summary:   payload.Raw,
			Sentiment: model.SentimentNeutral,
		}, nil
	}

	return &model.TextualResult{
		Summary:   out.Summary,
		Sentiment: parseSentiment(out.Sentiment),
		Entities:  out.Entities,
		Keywords:  out.Keywords,
	}, nil
}

// analyzeEmotion runs the emotion analysis agent.
func (o *Orchestrator) analyzeEmotion(ctx context.Context, text string) (*model.EmotionResult, error) {
	payload, err := o.analysisMessage(ctx, model.StageEmotionAnalysis, fmt.Sprintf(emotionPromptTemplate, text), nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		DominantEmotion   string `json:"dominant_emotion"`
		ManipulationLevel string `json:"manipulation_level"`
	}
	ok, decErr := payload.Decode(&out)
	if decErr != nil || !ok {
		return nil, newError(ErrKindStage, model.StageEmotionAnalysis,
			eris.New("emotion agent returned no usable payload"))
	}

	return &model.EmotionResult{
		DominantEmotion:   strings.ToLower(strings.TrimSpace(out.DominantEmotion)),
		ManipulationLevel: parseManipulation(out.ManipulationLevel),
	}, nil
}

// analyzeVisual runs the visual analysis agent over the supplied images
// (direct image submissions and extracted video frames, in order).
func (o *Orchestrator) analyzeVisual(ctx context.Context, images []anthropic.Image) (*model.VisualResult, error) {
	payload, err := o.analysisMessage(ctx, model.StageVisualAnalysis, visualPromptTemplate, images)
	if err != nil {
		return nil, err
	}

	var out struct {
		Insights []struct {
			Description      string `json:"description"`
			ManipulationFlag string `json:"manipulation_flag"`
		} `json:"visual_insights"`
	}
	ok, decErr := payload.Decode(&out)
	if decErr != nil || !ok {
		return nil, newError(ErrKindStage, model.StageVisualAnalysis,
			eris.New("visual agent returned no usable payload"))
	}

	result := &model.VisualResult{}
	for _, in := range out.Insights {
		result.Insights = append(result.Insights, model.VisualInsight{
			Description:      in.Description,
			ManipulationFlag: parseManipulation(in.ManipulationFlag),
		})
	}
	return result, nil
}

// analyzeSource runs the source intelligence agent against the domain.
func (o *Orchestrator) analyzeSource(ctx context.Context, domain, rawURL string) (*model.SourceResult, error) {
	payload, err := o.analysisMessage(ctx, model.StageSourceIntelligence, fmt.Sprintf(sourcePromptTemplate, domain, rawURL), nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		TrustScore          int    `json:"trust_score"`
		SourceValidity      string `json:"source_validity"`
		ValidityExplanation string `json:"source_validity_explanation"`
		Evidence            []struct {
			Finding string `json:"finding"`
			Note    string `json:"note"`
		} `json:"evidence"`
	}
	ok, decErr := payload.Decode(&out)
	if decErr != nil || !ok {
		return nil, newError(ErrKindStage, model.StageSourceIntelligence,
			eris.New("source agent returned no usable payload"))
	}
	if out.TrustScore < 0 {
		out.TrustScore = 0
	}
	if out.TrustScore > 100 {
		out.TrustScore = 100
	}

	result := &model.SourceResult{
		TrustScore:          out.TrustScore,
		SourceValidity:      out.SourceValidity,
		ValidityExplanation: out.ValidityExplanation,
	}
	for _, ev := range out.Evidence {
		result.Evidence = append(result.Evidence, model.EvidenceItem{
			Finding: parseSentiment(ev.Finding),
			Note:    ev.Note,
		})
	}
	return result, nil
}

func parseSentiment(s string) model.Sentiment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return model.SentimentPositive
	case "negative":
		return model.SentimentNegative
	}
	return model.SentimentNeutral
}

func parseManipulation(s string) model.ManipulationLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return model.ManipulationHigh
	case "medium", "moderate":
		return model.ManipulationMedium
	}
	return model.ManipulationLow
}
