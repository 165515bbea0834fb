package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/clearcheck/verify-cli/internal/config"
	"github.com/clearcheck/verify-cli/internal/media"
	"github.com/clearcheck/verify-cli/internal/model"
	"github.com/clearcheck/verify-cli/internal/resilience"
	"github.com/clearcheck/verify-cli/internal/store"
	"github.com/clearcheck/verify-cli/pkg/anthropic"
)

// StatusFunc observes the pipeline: it is called with cloned snapshots of
// the full state and accumulated results after every stage transition.
type StatusFunc func(state model.PipelineState, results model.AnalysisResults)

// Outcome is the result of one run, successful or not. On failure it still
// carries everything completed before the failing stage.
type Outcome struct {
	Item    *model.HistoryItem
	Report  string
	Warning string // set when the source domain was previously flagged
	State   model.PipelineState
	Results model.AnalysisResults
}

// Orchestrator drives the six-stage verification sequence for one
// submission at a time. Stages run strictly in order; a fixed cooldown is
// inserted between stage invocations as a throttle against model rate
// limits.
type Orchestrator struct {
	cfg        *config.Config
	store      store.Store
	model      anthropic.Client
	frames     media.FrameExtractor
	observe    StatusFunc
	cooldown   *rate.Limiter
	retry      resilience.RetryConfig
	httpClient *http.Client
}

// New creates an Orchestrator with all dependencies. observe may be nil.
func New(cfg *config.Config, st store.Store, client anthropic.Client, frames media.FrameExtractor, observe StatusFunc) *Orchestrator {
	cooldown := time.Duration(cfg.Pipeline.StageCooldownMillis) * time.Millisecond
	if cooldown <= 0 {
		cooldown = time.Millisecond
	}
	retry := resilience.DefaultRetryConfig()
	retry.ShouldRetry = func(err error) bool {
		return resilience.IsTransient(err) || resilience.RetryableStatus(anthropic.StatusCode(err))
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    st,
		model:    client,
		frames:   frames,
		observe:  observe,
		cooldown: rate.NewLimiter(rate.Every(cooldown), 1),
		retry:    retry,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Pipeline.FetchTimeoutSecs) * time.Second,
		},
	}
}

// Run executes the full verification pipeline for a single submission.
// onReportChunk, when non-nil, receives each final-report chunk as it
// streams in. A run that completes final synthesis is appended to history.
func (o *Orchestrator) Run(ctx context.Context, sub model.Submission, onReportChunk func(string)) (*Outcome, error) {
	log := zap.L().With(zap.String("input", sub.Descriptor()))
	log.Info("pipeline: starting verification")

	state := model.NewPipelineState()
	results := model.AnalysisResults{}
	out := &Outcome{State: state}

	publish := func() {
		if o.observe != nil {
			o.observe(state.Clone(), results.Clone())
		}
	}

	fail := func(stage model.AgentStage, err error) (*Outcome, error) {
		state.Set(stage, model.StageError, Translate(err))
		publish()
		out.Results = results
		log.Error("pipeline: stage failed", zap.String("stage", string(stage)), zap.Error(err))
		return out, err
	}

	// Cooldown between stage invocations. Applies on every path; the first
	// wait passes immediately because the limiter starts with a full burst.
	wait := func(stage model.AgentStage) error {
		if err := o.cooldown.Wait(ctx); err != nil {
			return newError(ErrKindStage, stage, err)
		}
		return nil
	}

	// Pre-run memory check: warn when this domain was previously flagged.
	// Lookup failures are non-fatal and treated as "no record".
	if sub.URL != "" {
		if domain, err := domainOf(sub.URL); err == nil {
			rec, lookErr := o.store.GetRecord(ctx, domain)
			switch {
			case lookErr != nil:
				log.Warn("pipeline: memory lookup failed", zap.Error(lookErr))
			case rec != nil:
				out.Warning = fmt.Sprintf("Source %s was previously flagged for low credibility (trust score %d).", rec.Domain, rec.TrustScore)
				log.Info("pipeline: source previously flagged",
					zap.String("domain", rec.Domain),
					zap.Int("trust_score", rec.TrustScore),
				)
			}
		}
	}

	// ===== Stage 1: Ingestion =====
	if err := wait(model.StageIngestion); err != nil {
		return fail(model.StageIngestion, err)
	}
	if sub.Empty() {
		state.Set(model.StageIngestion, model.StageSkipped, "no input")
		publish()
	} else {
		state.Set(model.StageIngestion, model.StageRunning, "")
		publish()
		ing, detail, err := o.ingest(ctx, sub)
		if err != nil {
			return fail(model.StageIngestion, err)
		}
		results.Ingestion = ing
		state.Set(model.StageIngestion, model.StageCompleted, detail)
		publish()
	}

	ingestedText := ""
	sourceDomain := ""
	if results.Ingestion != nil {
		ingestedText = results.Ingestion.Text
		sourceDomain = results.Ingestion.Domain
	}

	// ===== Stage 2: Textual Analysis =====
	if err := wait(model.StageTextualAnalysis); err != nil {
		return fail(model.StageTextualAnalysis, err)
	}
	if ingestedText == "" {
		state.Set(model.StageTextualAnalysis, model.StageSkipped, "no text content")
		publish()
	} else {
		state.Set(model.StageTextualAnalysis, model.StageRunning, "")
		publish()
		tr, err := o.analyzeTextual(ctx, ingestedText)
		if err != nil {
			return fail(model.StageTextualAnalysis, err)
		}
		results.Textual = tr
		state.Set(model.StageTextualAnalysis, model.StageCompleted, "")
		publish()
	}

	// ===== Stage 3: Emotion Analysis =====
	if err := wait(model.StageEmotionAnalysis); err != nil {
		return fail(model.StageEmotionAnalysis, err)
	}
	if ingestedText == "" {
		state.Set(model.StageEmotionAnalysis, model.StageSkipped, "no text content")
		publish()
	} else {
		state.Set(model.StageEmotionAnalysis, model.StageRunning, "")
		publish()
		er, err := o.analyzeEmotion(ctx, ingestedText)
		if err != nil {
			return fail(model.StageEmotionAnalysis, err)
		}
		results.Emotion = er
		state.Set(model.StageEmotionAnalysis, model.StageCompleted, "")
		publish()
	}

	// ===== Stage 4: Visual Analysis =====
	if err := wait(model.StageVisualAnalysis); err != nil {
		return fail(model.StageVisualAnalysis, err)
	}
	if sub.Image == nil && sub.Video == nil {
		state.Set(model.StageVisualAnalysis, model.StageSkipped, "no media supplied")
		publish()
	} else {
		state.Set(model.StageVisualAnalysis, model.StageRunning, "")
		publish()
		images, err := o.collectImages(ctx, sub)
		if err != nil {
			return fail(model.StageVisualAnalysis, err)
		}
		vr, err := o.analyzeVisual(ctx, images)
		if err != nil {
			return fail(model.StageVisualAnalysis, err)
		}
		results.Visual = vr
		state.Set(model.StageVisualAnalysis, model.StageCompleted, fmt.Sprintf("%d image(s) analyzed", len(images)))
		publish()
	}

	// ===== Stage 5: Source Intelligence =====
	if err := wait(model.StageSourceIntelligence); err != nil {
		return fail(model.StageSourceIntelligence, err)
	}
	if sourceDomain == "" {
		state.Set(model.StageSourceIntelligence, model.StageSkipped, "no source domain")
		publish()
	} else {
		state.Set(model.StageSourceIntelligence, model.StageRunning, "")
		publish()
		sr, err := o.analyzeSource(ctx, sourceDomain, sub.URL)
		if err != nil {
			return fail(model.StageSourceIntelligence, err)
		}
		results.Source = sr
		state.Set(model.StageSourceIntelligence, model.StageCompleted, fmt.Sprintf("trust score %d", sr.TrustScore))
		publish()

		// Strictly below the threshold flags the source; equal does not.
		if sr.TrustScore < o.cfg.Pipeline.TrustScoreThreshold {
			rec := model.MisinformationRecord{
				Domain:     sourceDomain,
				URL:        sub.URL,
				TrustScore: sr.TrustScore,
				FlaggedAt:  time.Now().UTC(),
			}
			if upErr := o.store.UpsertRecord(ctx, rec); upErr != nil {
				log.Warn("pipeline: misinformation memory write failed", zap.Error(upErr))
			} else {
				log.Info("pipeline: source flagged in misinformation memory",
					zap.String("domain", sourceDomain),
					zap.Int("trust_score", sr.TrustScore),
				)
			}
		}
	}

	// ===== Stage 6: Final Synthesis =====
	if err := wait(model.StageFinalSynthesis); err != nil {
		return fail(model.StageFinalSynthesis, err)
	}
	if results.Textual == nil && results.Visual == nil {
		// Precondition failure: the stage never reaches Running.
		err := newError(ErrKindPrecondition, model.StageFinalSynthesis, eris.New("no data to synthesize"))
		publish()
		out.Results = results
		log.Error("pipeline: nothing to synthesize", zap.Error(err))
		return out, err
	}
	state.Set(model.StageFinalSynthesis, model.StageRunning, "")
	publish()
	report, err := o.synthesize(ctx, results, onReportChunk)
	if err != nil {
		out.Report = report // partial text already streamed is kept
		return fail(model.StageFinalSynthesis, err)
	}
	state.Set(model.StageFinalSynthesis, model.StageCompleted, "")
	publish()

	item := model.HistoryItem{
		ID:            uuid.New().String(),
		Input:         sub.Descriptor(),
		Report:        report,
		PipelineState: state.Clone(),
		Results:       results.Clone(),
		CreatedAt:     time.Now().UTC(),
	}
	// Persistence is best-effort; the run already happened.
	if err := o.store.AppendHistory(ctx, item); err != nil {
		log.Warn("pipeline: history append failed", zap.Error(err))
	}

	out.Item = &item
	out.Report = report
	out.Results = results
	log.Info("pipeline: verification complete", zap.String("run_id", item.ID))
	return out, nil
}

// collectImages gathers the direct image plus extracted video frames, in
// submission order.
func (o *Orchestrator) collectImages(ctx context.Context, sub model.Submission) ([]anthropic.Image, error) {
	var images []anthropic.Image
	if sub.Image != nil {
		images = append(images, anthropic.Image{Data: sub.Image.Data, MimeType: sub.Image.MimeType})
	}
	if sub.Video != nil {
		frameCount := o.cfg.Media.FrameCount
		if frameCount <= 0 {
			frameCount = media.DefaultFrameCount
		}
		frames, err := o.frames.ExtractFrames(ctx, *sub.Video, frameCount)
		if err != nil {
			return nil, newError(ErrKindStage, model.StageVisualAnalysis, err)
		}
		for _, f := range frames {
			images = append(images, anthropic.Image{Data: f.Data, MimeType: f.MimeType})
		}
	}
	return images, nil
}
