// Copyright 2026 The Synapse Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pjv-stack/synapse/ai"
	"github.com/pjv-stack/synapse/core"
	"github.com/pjv-stack/synapse/storage"
)

// Config holds configuration for a reembedding run.
type Config struct {
	// BatchSize is the number of artifacts to embed in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of artifacts)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for failed embedding calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder regenerates embedding records whose model tag differs from the
// configured embedder's, reconciling a mixed-model corpus after a model
// upgrade. With force, every artifact is re-embedded regardless of tag.
type Reembedder struct {
	artifacts  storage.ArtifactRepository
	embeddings storage.EmbeddingRepository
	embedder   ai.Embedder
	config     *Config
	progress   io.Writer
	processor  *BatchProcessor
}

// NewReembedder creates a reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(
	artifacts storage.ArtifactRepository,
	embeddings storage.EmbeddingRepository,
	embedder ai.Embedder,
	config *Config,
	progress io.Writer,
) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		artifacts:  artifacts,
		embeddings: embeddings,
		embedder:   embedder,
		config:     config,
		progress:   progress,
		processor:  NewBatchProcessor(embeddings, embedder, config.MaxRetries, config.RetryDelay),
	}
}

// Run executes the reembedding operation and returns the number of artifacts
// re-embedded.
func (r *Reembedder) Run(ctx context.Context, force bool) (int, error) {
	pending, err := r.selectPending(ctx, force)
	if err != nil {
		return 0, fmt.Errorf("failed to select artifacts: %w", err)
	}

	if len(pending) == 0 {
		fmt.Fprintf(r.progress, "All embeddings already use model %q (0 artifacts)\n", r.embedder.ModelTag())
		return 0, nil
	}

	fmt.Fprintf(r.progress, "Reembedding %d artifacts with model %q (batch size: %d)\n",
		len(pending), r.embedder.ModelTag(), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, len(pending), r.config.ReportInterval)
	tracker.Start()

	for start := 0; start < len(pending); start += r.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return start, err
		}

		end := start + r.config.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		if err := r.processor.Process(ctx, batch); err != nil {
			return start, fmt.Errorf("failed to process batch: %w", err)
		}
		tracker.Increment(len(batch))
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d artifacts in %v (%.1f artifacts/sec)\n",
		len(pending), elapsed.Round(time.Second), float64(len(pending))/elapsed.Seconds())

	return len(pending), nil
}

// selectPending returns the artifacts whose embedding record is missing or
// carries a different model tag, in corpus order.
func (r *Reembedder) selectPending(ctx context.Context, force bool) ([]*core.Artifact, error) {
	artifacts, err := r.artifacts.AllArtifacts(ctx)
	if err != nil {
		return nil, err
	}
	if force {
		return artifacts, nil
	}

	tag := r.embedder.ModelTag()
	var pending []*core.Artifact
	for _, artifact := range artifacts {
		record, err := r.embeddings.Get(ctx, artifact.Id)
		if errors.Is(err, storage.ErrNotFound) {
			pending = append(pending, artifact)
			continue
		}
		if err != nil {
			return nil, err
		}
		if record.ModelTag != tag {
			pending = append(pending, artifact)
		}
	}
	return pending, nil
}
