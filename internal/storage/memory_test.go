package storage

import (
	"context"
	"math"
	"testing"

	"lineagekit/internal/model"
)

func TestMemoryStoreBatchRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	batch := model.Batch{ID: "b1", Glob: "runs/*", Runs: 1, CreatedAtUTC: "2026-01-01T00:00:00Z"}
	input := []model.LineageSummary{{
		RunDir:               "runs/P0_1",
		LineageID:            7,
		PhenotypicVolatility: model.Metric(math.NaN()),
	}}
	if err := store.SaveBatch(ctx, batch, input); err != nil {
		t.Fatalf("save batch: %v", err)
	}

	got, summaries, ok, err := store.GetBatch(ctx, "b1")
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted batch")
	}
	if got.Glob != "runs/*" || len(summaries) != 1 || summaries[0].LineageID != 7 {
		t.Fatalf("unexpected batch: %+v %+v", got, summaries)
	}
	if summaries[0].SchemaVersion != CurrentSchemaVersion {
		t.Fatalf("expected stamped schema version, got %d", summaries[0].SchemaVersion)
	}
}

func TestMemoryStoreListBatchesNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, b := range []model.Batch{
		{ID: "old", CreatedAtUTC: "2026-01-01T00:00:00Z"},
		{ID: "new", CreatedAtUTC: "2026-02-01T00:00:00Z"},
	} {
		if err := store.SaveBatch(ctx, b, nil); err != nil {
			t.Fatalf("save %s: %v", b.ID, err)
		}
	}

	batches, err := store.ListBatches(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(batches) != 2 || batches[0].ID != "new" || batches[1].ID != "old" {
		t.Fatalf("unexpected order: %+v", batches)
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveBatch(context.Background(), model.Batch{ID: "b"}, nil); err == nil {
		t.Fatal("expected error saving to uninitialized store")
	}
}
