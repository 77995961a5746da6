package storage

import (
	"context"

	"lineagekit/internal/model"
)

// Store persists dominant-lineage batches so a report can be re-emitted
// without re-walking the phylogeny snapshots.
type Store interface {
	Init(ctx context.Context) error
	SaveBatch(ctx context.Context, batch model.Batch, summaries []model.LineageSummary) error
	GetBatch(ctx context.Context, id string) (model.Batch, []model.LineageSummary, bool, error)
	ListBatches(ctx context.Context) ([]model.Batch, error)
}
