package badger

import (
	"context"
	"testing"

	"github.com/pjv-stack/synapse/core"
	"github.com/pjv-stack/synapse/storage"
)

func TestEmbeddingStoreAndGet(t *testing.T) {
	_, embeddingRepo, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	id := core.IDFromPath("docs/error-handling.md")

	record := &core.EmbeddingRecord{
		ArtifactId: id,
		Vector:     []float32{0.6, 0.8},
		ModelTag:   "embeddinggemma",
		Dimension:  2,
	}
	if err := embeddingRepo.Store(ctx, record); err != nil {
		t.Fatalf("Failed to store embedding: %v", err)
	}
	if record.Norm == 0 {
		t.Fatal("Expected norm to be computed on store")
	}

	got, err := embeddingRepo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Failed to get embedding: %v", err)
	}
	if got.ModelTag != "embeddinggemma" {
		t.Fatalf("Expected model tag preserved, got %q", got.ModelTag)
	}

	if _, err := embeddingRepo.Get(ctx, core.ID(999)); err != storage.ErrNotFound {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestEmbeddingStoreReplaces(t *testing.T) {
	_, embeddingRepo, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	id := core.IDFromPath("docs/testing.md")

	first := &core.EmbeddingRecord{ArtifactId: id, Vector: []float32{1, 0}, ModelTag: "old-model", Dimension: 2}
	if err := embeddingRepo.Store(ctx, first); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}

	second := &core.EmbeddingRecord{ArtifactId: id, Vector: []float32{0, 1}, ModelTag: "new-model", Dimension: 2}
	if err := embeddingRepo.Store(ctx, second); err != nil {
		t.Fatalf("Failed to replace: %v", err)
	}

	got, err := embeddingRepo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	if got.ModelTag != "new-model" || got.Vector[0] != 0 {
		t.Fatalf("Expected full replacement, got %+v", got)
	}

	all, err := embeddingRepo.AllRecords(ctx)
	if err != nil {
		t.Fatalf("Failed to list records: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("Expected one record per artifact, got %d", len(all))
	}
}

func TestFindSimilar(t *testing.T) {
	_, embeddingRepo, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	records := []*core.EmbeddingRecord{
		{ArtifactId: 1, Vector: []float32{1, 0, 0}, Dimension: 3, ModelTag: "m"},
		{ArtifactId: 2, Vector: []float32{0.9, 0.1, 0}, Dimension: 3, ModelTag: "m"},
		{ArtifactId: 3, Vector: []float32{0, 0, 1}, Dimension: 3, ModelTag: "m"},
	}
	for _, record := range records {
		if err := embeddingRepo.Store(ctx, record); err != nil {
			t.Fatalf("Failed to store: %v", err)
		}
	}

	matches, err := embeddingRepo.FindSimilar(ctx, []float32{1, 0, 0}, 0.5, 10)
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches above threshold, got %d", len(matches))
	}
	if matches[0].ArtifactId != 1 {
		t.Fatalf("Expected exact match first, got %d", matches[0].ArtifactId)
	}
	if matches[0].Score < 0.999 {
		t.Fatalf("Expected score ~1.0 for identical vector, got %f", matches[0].Score)
	}

	t.Run("limit respected", func(t *testing.T) {
		matches, err := embeddingRepo.FindSimilar(ctx, []float32{1, 0, 0}, 0.0, 1)
		if err != nil {
			t.Fatalf("FindSimilar failed: %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("Expected 1 match, got %d", len(matches))
		}
	})

	t.Run("zero query vector", func(t *testing.T) {
		matches, err := embeddingRepo.FindSimilar(ctx, []float32{0, 0, 0}, 0.0, 10)
		if err != nil {
			t.Fatalf("FindSimilar failed: %v", err)
		}
		if len(matches) != 0 {
			t.Fatalf("Expected no matches for zero vector, got %d", len(matches))
		}
	})
}

func TestEmbeddingDelete(t *testing.T) {
	_, embeddingRepo, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	id := core.ID(42)

	record := &core.EmbeddingRecord{ArtifactId: id, Vector: []float32{1}, Dimension: 1, ModelTag: "m"}
	if err := embeddingRepo.Store(ctx, record); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}
	if err := embeddingRepo.Delete(ctx, id); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := embeddingRepo.Get(ctx, id); err != storage.ErrNotFound {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}

	// Deleting again is not an error
	if err := embeddingRepo.Delete(ctx, id); err != nil {
		t.Fatalf("Expected idempotent delete, got %v", err)
	}
}

func TestCountByModelTag(t *testing.T) {
	_, embeddingRepo, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	embeddingRepo.Store(ctx, &core.EmbeddingRecord{ArtifactId: 1, Vector: []float32{1}, Dimension: 1, ModelTag: "old"})
	embeddingRepo.Store(ctx, &core.EmbeddingRecord{ArtifactId: 2, Vector: []float32{1}, Dimension: 1, ModelTag: "new"})
	embeddingRepo.Store(ctx, &core.EmbeddingRecord{ArtifactId: 3, Vector: []float32{1}, Dimension: 1, ModelTag: "new"})

	counts, err := embeddingRepo.CountByModelTag(ctx)
	if err != nil {
		t.Fatalf("CountByModelTag failed: %v", err)
	}
	if counts["old"] != 1 || counts["new"] != 2 {
		t.Fatalf("Unexpected counts: %v", counts)
	}
}
