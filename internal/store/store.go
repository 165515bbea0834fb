package store

import (
	"context"

	"github.com/clearcheck/verify-cli/internal/model"
)

// Store persists misinformation memory and run history. Implementations are
// namespaced at construction time so independent users or sessions never
// share state.
type Store interface {
	// Misinformation memory
	GetRecord(ctx context.Context, domain string) (*model.MisinformationRecord, error)
	UpsertRecord(ctx context.Context, rec model.MisinformationRecord) error
	ListRecords(ctx context.Context) ([]model.MisinformationRecord, error)

	// Run history (newest-first)
	AppendHistory(ctx context.Context, item model.HistoryItem) error
	ListHistory(ctx context.Context) ([]model.HistoryItem, error)
	GetHistory(ctx context.Context, id string) (*model.HistoryItem, error)
	ClearHistory(ctx context.Context) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
