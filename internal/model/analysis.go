package model

// AgentStage identifies one step of the fixed six-step verification sequence.
type AgentStage string

const (
	StageIngestion          AgentStage = "ingestion"
	StageTextualAnalysis    AgentStage = "textual_analysis"
	StageEmotionAnalysis    AgentStage = "emotion_analysis"
	StageVisualAnalysis     AgentStage = "visual_analysis"
	StageSourceIntelligence AgentStage = "source_intelligence"
	StageFinalSynthesis     AgentStage = "final_synthesis"
)

// Stages lists every stage in execution order.
var Stages = []AgentStage{
	StageIngestion,
	StageTextualAnalysis,
	StageEmotionAnalysis,
	StageVisualAnalysis,
	StageSourceIntelligence,
	StageFinalSynthesis,
}

// StageStatus represents the current state of a pipeline stage.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageCompleted StageStatus = "completed"
	StageSkipped   StageStatus = "skipped"
	StageError     StageStatus = "error"
)

// Terminal reports whether the status is final for a stage within one run.
func (s StageStatus) Terminal() bool {
	switch s {
	case StageCompleted, StageSkipped, StageError:
		return true
	}
	return false
}

// StageState pairs a status with an optional human-readable detail.
type StageState struct {
	Status StageStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// PipelineState maps every stage to its current state. It always holds
// exactly one entry per stage.
type PipelineState map[AgentStage]StageState

// NewPipelineState returns a state with every stage pending.
func NewPipelineState() PipelineState {
	ps := make(PipelineState, len(Stages))
	for _, stage := range Stages {
		ps[stage] = StageState{Status: StagePending}
	}
	return ps
}

// Set replaces the entry for a stage atomically. Transitions are whole-entry
// replacements so observers never see a partially updated stage.
func (ps PipelineState) Set(stage AgentStage, status StageStatus, detail string) {
	ps[stage] = StageState{Status: status, Detail: detail}
}

// Clone returns an independent snapshot of the state.
func (ps PipelineState) Clone() PipelineState {
	out := make(PipelineState, len(ps))
	for k, v := range ps {
		out[k] = v
	}
	return out
}

// Sentiment is the coarse polarity of analyzed text.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ManipulationLevel is a coarse estimate of emotional or visual
// manipulation intent.
type ManipulationLevel string

const (
	ManipulationLow    ManipulationLevel = "low"
	ManipulationMedium ManipulationLevel = "medium"
	ManipulationHigh   ManipulationLevel = "high"
)

// IngestionResult holds extracted content. Domain is empty unless the
// submission was a URL.
type IngestionResult struct {
	Text   string `json:"text"`
	Domain string `json:"domain"`
}

// TextualResult is the output of the textual analysis agent.
type TextualResult struct {
	Summary   string    `json:"summary"`
	Sentiment Sentiment `json:"sentiment"`
	Entities  []string  `json:"entities"`
	Keywords  []string  `json:"keywords"`
}

// EmotionResult is the output of the emotion analysis agent.
type EmotionResult struct {
	DominantEmotion   string            `json:"dominant_emotion"`
	ManipulationLevel ManipulationLevel `json:"manipulation_level"`
}

// VisualInsight describes one analyzed image or video frame.
type VisualInsight struct {
	Description      string            `json:"description"`
	ManipulationFlag ManipulationLevel `json:"manipulation_flag"`
}

// VisualResult is the output of the visual analysis agent.
type VisualResult struct {
	Insights []VisualInsight `json:"visual_insights"`
}

// EvidenceItem is one credibility finding about a source.
type EvidenceItem struct {
	Finding Sentiment `json:"finding"`
	Note    string    `json:"note,omitempty"`
}

// SourceResult is the output of the source intelligence agent.
type SourceResult struct {
	TrustScore          int            `json:"trust_score"`
	SourceValidity      string         `json:"source_validity"`
	ValidityExplanation string         `json:"source_validity_explanation"`
	Evidence            []EvidenceItem `json:"evidence"`
}

// AnalysisResults accumulates per-stage outputs during a run. A field is
// populated only if its stage ran to completion.
type AnalysisResults struct {
	Ingestion *IngestionResult `json:"ingestion,omitempty"`
	Textual   *TextualResult   `json:"textual,omitempty"`
	Emotion   *EmotionResult   `json:"emotion,omitempty"`
	Visual    *VisualResult    `json:"visual,omitempty"`
	Source    *SourceResult    `json:"source,omitempty"`
}

// Clone returns an independent snapshot of the accumulated results.
func (r AnalysisResults) Clone() AnalysisResults {
	out := AnalysisResults{}
	if r.Ingestion != nil {
		v := *r.Ingestion
		out.Ingestion = &v
	}
	if r.Textual != nil {
		v := *r.Textual
		v.Entities = append([]string(nil), r.Textual.Entities...)
		v.Keywords = append([]string(nil), r.Textual.Keywords...)
		out.Textual = &v
	}
	if r.Emotion != nil {
		v := *r.Emotion
		out.Emotion = &v
	}
	if r.Visual != nil {
		v := VisualResult{Insights: append([]VisualInsight(nil), r.Visual.Insights...)}
		out.Visual = &v
	}
	if r.Source != nil {
		v := *r.Source
		v.Evidence = append([]EvidenceItem(nil), r.Source.Evidence...)
		out.Source = &v
	}
	return out
}

// MediaBlob is raw media content plus its MIME type.
type MediaBlob struct {
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type"`
}

// Submission is one input to the verification pipeline. Exactly the fields
// that were supplied are non-zero; a URL, raw text, an image, and a video
// may be combined.
type Submission struct {
	URL   string     `json:"url,omitempty"`
	Text  string     `json:"text,omitempty"`
	Image *MediaBlob `json:"image,omitempty"`
	Video *MediaBlob `json:"video,omitempty"`
}

// Empty reports whether none of the four input kinds were supplied.
func (s Submission) Empty() bool {
	return s.URL == "" && s.Text == "" && s.Image == nil && s.Video == nil
}

// Descriptor returns a short label for the submission, used where a URL
// would normally identify a run.
func (s Submission) Descriptor() string {
	switch {
	case s.URL != "":
		return s.URL
	case s.Text != "":
		return "text submission"
	case s.Video != nil:
		return "video submission"
	case s.Image != nil:
		return "image submission"
	}
	return "empty submission"
}
