package reembed

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pjv-stack/synapse/ai"
	"github.com/pjv-stack/synapse/core"
	"github.com/pjv-stack/synapse/storage"
)

// BatchProcessor generates embeddings for batches of artifacts and replaces
// their stored records.
type BatchProcessor struct {
	embeddings     storage.EmbeddingRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a batch processor.
// maxRetries: maximum number of attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(embeddings storage.EmbeddingRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		embeddings:     embeddings,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds a batch of artifacts and upserts their embedding records.
// Vectors are normalized before storage so similarity reduces to a dot
// product.
func (bp *BatchProcessor) Process(ctx context.Context, artifacts []*core.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}

	texts := make([]string, len(artifacts))
	for i, artifact := range artifacts {
		texts[i] = artifact.Content
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(vectors) != len(artifacts) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(artifacts), len(vectors))
	}

	tag := bp.embedder.ModelTag()
	for i, artifact := range artifacts {
		vector := NormalizeVector(vectors[i])
		record := &core.EmbeddingRecord{
			ArtifactId: artifact.Id,
			Vector:     vector,
			Norm:       vectorNorm(vector),
			ModelTag:   tag,
			Dimension:  len(vector),
		}
		if err := bp.embeddings.Store(ctx, record); err != nil {
			return fmt.Errorf("failed to store embedding for %s: %w", artifact.Path, err)
		}
	}

	return nil
}

func vectorNorm(v []float32) float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	return float32(math.Sqrt(sum))
}
