package model

import "time"

// HistoryItem is one completed verification run. Immutable once created;
// removed only by an explicit clear of the history store.
type HistoryItem struct {
	ID            string          `json:"id"`
	Input         string          `json:"input"` // URL or input descriptor
	Report        string          `json:"report"`
	PipelineState PipelineState   `json:"pipeline_state"`
	Results       AnalysisResults `json:"results"`
	CreatedAt     time.Time       `json:"created_at"`
}
