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


package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/pjv-stack/synapse/ai"
	"github.com/pjv-stack/synapse/core"
	"github.com/pjv-stack/synapse/storage"
)

// Pipeline orchestrates corpus ingestion: it consumes the change tracker's
// diff, drives embedding and graph updates atomically per artifact, and
// removes stale entries for deleted files.
//
// A pipeline is single-writer: only one Run may mutate the stores at a time,
// while concurrent queries keep reading a consistent prior snapshot.
type Pipeline struct {
	artifacts  storage.ArtifactRepository
	embeddings storage.EmbeddingRepository
	registry   storage.RegistryRepository
	embedder   ai.Embedder
	tracker    *Tracker
	pool       *ants.Pool
	root       string
	logger     *slog.Logger
	running    atomic.Bool
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline over the corpus rooted at root.
func NewPipeline(
	artifacts storage.ArtifactRepository,
	embeddings storage.EmbeddingRepository,
	registry storage.RegistryRepository,
	embedder ai.Embedder,
	root string,
	opts ...Option,
) (*Pipeline, error) {
	if artifacts == nil {
		return nil, ErrArtifactRepositoryRequired
	}
	if embeddings == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	if registry == nil {
		return nil, ErrRegistryRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if root == "" {
		return nil, ErrCorpusRootRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		artifacts:  artifacts,
		embeddings: embeddings,
		registry:   registry,
		embedder:   embedder,
		pool:       pool,
		root:       root,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion-pipeline")

	tracker, err := NewTracker(registry, root, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.tracker = tracker

	return p, nil
}

// Summary reports the outcome of one ingestion run.
type Summary struct {
	RunID    string        `json:"run_id"`
	Added    int           `json:"added"`
	Modified int           `json:"modified"`
	Deleted  int           `json:"deleted"`
	Errors   int           `json:"errors"`
	ModelTag string        `json:"model_tag"`
	Duration time.Duration `json:"duration"`
}

// Run executes one ingestion pass. With force set, the entire corpus is
// treated as modified (full rebuild); otherwise only the change tracker's
// diff is processed.
//
// Each added or modified artifact is handled as one atomic unit: read,
// classify, embed, upsert artifact and embedding, recompute outgoing
// relationships, then commit its registry entry. A failure in any sub-step
// skips that artifact (logged, counted) without corrupting its registry
// state, and the run continues.
func (p *Pipeline) Run(ctx context.Context, force bool) (*Summary, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer p.running.Store(false)

	start := time.Now()
	summary := &Summary{
		RunID:    uuid.NewString(),
		ModelTag: p.embedder.ModelTag(),
	}
	logger := p.logger.With("run_id", summary.RunID)

	diff, err := p.tracker.Diff(ctx, force)
	if err != nil {
		return nil, err
	}
	logger.Info("computed corpus diff",
		"added", len(diff.Added), "modified", len(diff.Modified), "deleted", len(diff.Deleted),
		"force", force)

	if diff.Empty() {
		// Unchanged corpus: no artifact, relationship or embedding record
		// is touched. The run marker still advances so staleness reflects
		// when the corpus was last verified, not last mutated.
		if err := p.registry.MarkRun(ctx, time.Now().UTC()); err != nil {
			return nil, err
		}
		summary.Duration = time.Since(start)
		logger.Info("corpus unchanged, nothing to ingest")
		return summary, nil
	}

	addedSet := make(map[string]struct{}, len(diff.Added))
	for _, path := range diff.Added {
		addedSet[path] = struct{}{}
	}

	var errorCount atomic.Int64

	for _, path := range diff.Deleted {
		if err := p.removeArtifact(ctx, path); err != nil {
			logger.Error("failed to remove deleted artifact", "path", path, "err", err)
			errorCount.Add(1)
			continue
		}
		summary.Deleted++
	}

	prepared := p.prepareArtifacts(ctx, diff.Changed(), &errorCount, logger)

	// Relationship derivation needs the post-upsert corpus snapshot, and the
	// registry commit for an artifact must follow its durable graph writes.
	corpus, err := p.artifacts.AllArtifacts(ctx)
	if err != nil {
		return nil, err
	}
	for _, artifact := range prepared {
		if err := p.commitArtifact(ctx, artifact, corpus); err != nil {
			logger.Error("failed to commit artifact", "path", artifact.Path, "err", err)
			errorCount.Add(1)
			continue
		}
		if _, ok := addedSet[artifact.Path]; ok {
			summary.Added++
		} else {
			summary.Modified++
		}
	}

	p.reconcileNeighbors(ctx, prepared, corpus, logger)

	if err := p.registry.MarkRun(ctx, time.Now().UTC()); err != nil {
		return nil, err
	}

	summary.Errors = int(errorCount.Load())
	summary.Duration = time.Since(start)
	logger.Info("ingestion run complete",
		"added", summary.Added, "modified", summary.Modified,
		"deleted", summary.Deleted, "errors", summary.Errors,
		"duration", summary.Duration)

	return summary, nil
}

// prepareArtifacts reads, classifies, embeds and upserts the changed
// artifacts concurrently, returning the ones whose vector and node writes
// succeeded.
func (p *Pipeline) prepareArtifacts(ctx context.Context, paths []string, errorCount *atomic.Int64, logger *slog.Logger) []*core.Artifact {
	var (
		mu       sync.Mutex
		prepared []*core.Artifact
		wg       sync.WaitGroup
	)

	for _, path := range paths {
		path := path
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			artifact, err := p.prepareArtifact(ctx, path)
			if err != nil {
				logger.Error("skipping artifact", "path", path, "err", err)
				errorCount.Add(1)
				return
			}
			mu.Lock()
			prepared = append(prepared, artifact)
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			logger.Error("failed to submit artifact for processing", "path", path, "err", submitErr)
			errorCount.Add(1)
		}
	}
	wg.Wait()

	// Pool scheduling order is nondeterministic; restore walk order.
	mu.Lock()
	defer mu.Unlock()
	sortArtifactsByPath(prepared)
	return prepared
}

func (p *Pipeline) prepareArtifact(ctx context.Context, path string) (*core.Artifact, error) {
	fullPath := filepath.Join(p.root, filepath.FromSlash(path))
	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, err
	}

	vector, err := p.embedder.EmbedText(ctx, string(content))
	if err != nil {
		return nil, err
	}

	artifact := &core.Artifact{
		Id:           core.IDFromPath(path),
		Path:         path,
		Category:     Classify(path),
		Content:      string(content),
		ContentHash:  core.HashContent(content),
		LastModified: info.ModTime().UTC(),
		ModelTag:     p.embedder.ModelTag(),
	}
	if err := p.artifacts.UpsertArtifact(ctx, artifact); err != nil {
		return nil, err
	}

	record := &core.EmbeddingRecord{
		ArtifactId: artifact.Id,
		Vector:     vector,
		ModelTag:   p.embedder.ModelTag(),
		Dimension:  len(vector),
	}
	if err := p.embeddings.Store(ctx, record); err != nil {
		return nil, err
	}

	return artifact, nil
}

// commitArtifact recomputes the artifact's outgoing edges and, only after
// those writes succeed, commits its registry entry.
func (p *Pipeline) commitArtifact(ctx context.Context, artifact *core.Artifact, corpus []*core.Artifact) error {
	edges := DeriveRelationships(artifact, corpus)
	if err := p.artifacts.ReplaceRelationships(ctx, artifact.Id, edges); err != nil {
		return err
	}

	return p.registry.Put(ctx, &core.RegistryEntry{
		Path:         artifact.Path,
		ContentHash:  artifact.ContentHash,
		LastModified: artifact.LastModified,
		IngestedAt:   time.Now().UTC(),
	})
}

// reconcileNeighbors re-derives outgoing edges for artifacts pointing at the
// changed set, so edges stale on the incoming side (a category change, say)
// are dropped. Failures here are logged only: the neighbors' own registry
// state is untouched.
func (p *Pipeline) reconcileNeighbors(ctx context.Context, changed []*core.Artifact, corpus []*core.Artifact, logger *slog.Logger) {
	changedIDs := make(map[core.ID]struct{}, len(changed))
	for _, artifact := range changed {
		changedIDs[artifact.Id] = struct{}{}
	}

	reconciled := make(map[core.ID]struct{})
	for _, artifact := range changed {
		incoming, err := p.artifacts.RelationshipsTo(ctx, artifact.Id)
		if err != nil {
			logger.Warn("failed to list incoming edges for reconciliation", "path", artifact.Path, "err", err)
			continue
		}
		for _, edge := range incoming {
			if _, ok := changedIDs[edge.From]; ok {
				continue
			}
			if _, ok := reconciled[edge.From]; ok {
				continue
			}
			reconciled[edge.From] = struct{}{}

			source := findArtifact(corpus, edge.From)
			if source == nil {
				continue
			}
			if err := p.artifacts.ReplaceRelationships(ctx, source.Id, DeriveRelationships(source, corpus)); err != nil {
				logger.Warn("failed to reconcile neighbor edges", "path", source.Path, "err", err)
			}
		}
	}
}

// removeArtifact deletes an artifact's node, incident edges, embedding and
// registry entry.
func (p *Pipeline) removeArtifact(ctx context.Context, path string) error {
	id := core.IDFromPath(path)

	if err := p.artifacts.DeleteArtifact(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if err := p.embeddings.Delete(ctx, id); err != nil {
		return err
	}
	return p.registry.Delete(ctx, path)
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

func findArtifact(corpus []*core.Artifact, id core.ID) *core.Artifact {
	for _, artifact := range corpus {
		if artifact.Id == id {
			return artifact
		}
	}
	return nil
}

func sortArtifactsByPath(artifacts []*core.Artifact) {
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Path < artifacts[j].Path })
}
