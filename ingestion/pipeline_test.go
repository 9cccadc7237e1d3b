package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjv-stack/synapse/ai/mock"
	"github.com/pjv-stack/synapse/core"
	"github.com/pjv-stack/synapse/storage"
	"github.com/pjv-stack/synapse/storage/badger"
)

type testStores struct {
	artifacts  storage.ArtifactRepository
	embeddings storage.EmbeddingRepository
	registry   storage.RegistryRepository
}

func newTestStores(t *testing.T) *testStores {
	t.Helper()
	artifacts, embeddings, registry, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() {
		artifacts.Close()
		embeddings.Close()
		registry.Close()
		backend.Close()
	})
	return &testStores{artifacts: artifacts, embeddings: embeddings, registry: registry}
}

func writeCorpusFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func newTestPipeline(t *testing.T, stores *testStores, root string) (*Pipeline, *mock.MockEmbedder) {
	t.Helper()
	embedder := mock.NewMockEmbedder()
	pipeline, err := NewPipeline(stores.artifacts, stores.embeddings, stores.registry, embedder, root, WithPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)
	return pipeline, embedder
}

func TestNewPipelineValidation(t *testing.T) {
	stores := newTestStores(t)
	embedder := mock.NewMockEmbedder()

	_, err := NewPipeline(nil, stores.embeddings, stores.registry, embedder, "x")
	assert.ErrorIs(t, err, ErrArtifactRepositoryRequired)

	_, err = NewPipeline(stores.artifacts, nil, stores.registry, embedder, "x")
	assert.ErrorIs(t, err, ErrEmbeddingRepositoryRequired)

	_, err = NewPipeline(stores.artifacts, stores.embeddings, nil, embedder, "x")
	assert.ErrorIs(t, err, ErrRegistryRepositoryRequired)

	_, err = NewPipeline(stores.artifacts, stores.embeddings, stores.registry, nil, "x")
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewPipeline(stores.artifacts, stores.embeddings, stores.registry, embedder, "")
	assert.ErrorIs(t, err, ErrCorpusRootRequired)
}

func TestPipelineRunInitialIngest(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "docs/error-handling.md", "retry with backoff")
	writeCorpusFile(t, root, "docs/testing.md", "table-driven tests")
	stores := newTestStores(t)
	pipeline, _ := newTestPipeline(t, stores, root)

	ctx := context.Background()
	summary, err := pipeline.Run(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Added)
	assert.Zero(t, summary.Modified)
	assert.Zero(t, summary.Deleted)
	assert.Zero(t, summary.Errors)
	assert.NotEmpty(t, summary.RunID)

	artifact, err := stores.artifacts.GetArtifactByPath(ctx, "docs/error-handling.md")
	require.NoError(t, err)
	assert.Equal(t, "retry with backoff", artifact.Content)
	assert.Equal(t, core.HashContent([]byte("retry with backoff")), artifact.ContentHash)

	record, err := stores.embeddings.Get(ctx, artifact.Id)
	require.NoError(t, err)
	assert.Equal(t, artifact.Id, record.ArtifactId)
	assert.NotZero(t, record.Norm)

	entry, err := stores.registry.Get(ctx, "docs/error-handling.md")
	require.NoError(t, err)
	assert.Equal(t, artifact.ContentHash, entry.ContentHash)

	last, err := stores.registry.LastIngestion(ctx)
	require.NoError(t, err)
	assert.False(t, last.IsZero())
}

func TestPipelineRunIdempotent(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "docs/a.md", "alpha content")
	writeCorpusFile(t, root, "docs/b.md", "beta content")
	stores := newTestStores(t)
	pipeline, embedder := newTestPipeline(t, stores, root)

	ctx := context.Background()
	_, err := pipeline.Run(ctx, false)
	require.NoError(t, err)

	before, err := stores.artifacts.GetArtifactByPath(ctx, "docs/a.md")
	require.NoError(t, err)
	embedCalls := embedder.CallCount()

	summary, err := pipeline.Run(ctx, false)
	require.NoError(t, err)

	assert.Zero(t, summary.Added)
	assert.Zero(t, summary.Modified)
	assert.Zero(t, summary.Deleted)
	assert.Equal(t, embedCalls, embedder.CallCount(), "unchanged corpus must not re-embed")

	after, err := stores.artifacts.GetArtifactByPath(ctx, "docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPipelineNoopRunAdvancesRunMarker(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "docs/a.md", "alpha content")
	stores := newTestStores(t)
	pipeline, _ := newTestPipeline(t, stores, root)

	ctx := context.Background()
	_, err := pipeline.Run(ctx, false)
	require.NoError(t, err)

	first, err := stores.registry.LastIngestion(ctx)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	summary, err := pipeline.Run(ctx, false)
	require.NoError(t, err)
	require.Zero(t, summary.Added+summary.Modified+summary.Deleted)

	second, err := stores.registry.LastIngestion(ctx)
	require.NoError(t, err)
	assert.True(t, second.After(first), "a verifying run must refresh the run marker")
}

func TestPipelineRunIncremental(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "docs/a.md", "alpha content")
	writeCorpusFile(t, root, "docs/b.md", "beta content")
	stores := newTestStores(t)
	pipeline, _ := newTestPipeline(t, stores, root)

	ctx := context.Background()
	_, err := pipeline.Run(ctx, false)
	require.NoError(t, err)

	untouched, err := stores.artifacts.GetArtifactByPath(ctx, "docs/b.md")
	require.NoError(t, err)

	writeCorpusFile(t, root, "docs/a.md", "alpha rewritten")
	bumpModTime(t, filepath.Join(root, "docs", "a.md"))

	summary, err := pipeline.Run(ctx, false)
	require.NoError(t, err)

	assert.Zero(t, summary.Added)
	assert.Equal(t, 1, summary.Modified)
	assert.Zero(t, summary.Deleted)

	changed, err := stores.artifacts.GetArtifactByPath(ctx, "docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, "alpha rewritten", changed.Content)
	assert.Equal(t, core.HashContent([]byte("alpha rewritten")), changed.ContentHash)

	same, err := stores.artifacts.GetArtifactByPath(ctx, "docs/b.md")
	require.NoError(t, err)
	assert.Equal(t, untouched, same)
}

func TestPipelineRunDeletion(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "docs/keep.md", "keep, see docs/drop.md")
	writeCorpusFile(t, root, "docs/drop.md", "drop me")
	stores := newTestStores(t)
	pipeline, _ := newTestPipeline(t, stores, root)

	ctx := context.Background()
	_, err := pipeline.Run(ctx, false)
	require.NoError(t, err)

	dropID := core.IDFromPath("docs/drop.md")
	keepID := core.IDFromPath("docs/keep.md")

	edges, err := stores.artifacts.RelationshipsFrom(ctx, keepID)
	require.NoError(t, err)
	require.NotEmpty(t, edges)

	require.NoError(t, os.Remove(filepath.Join(root, "docs", "drop.md")))

	summary, err := pipeline.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Deleted)

	_, err = stores.artifacts.GetArtifact(ctx, dropID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = stores.embeddings.Get(ctx, dropID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = stores.registry.Get(ctx, "docs/drop.md")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// No dangling edges to the removed artifact in either direction.
	edges, err = stores.artifacts.RelationshipsFrom(ctx, keepID)
	require.NoError(t, err)
	for _, edge := range edges {
		assert.NotEqual(t, dropID, edge.To)
	}
}

func TestPipelineRunForce(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "docs/a.md", "alpha content")
	stores := newTestStores(t)
	pipeline, embedder := newTestPipeline(t, stores, root)

	ctx := context.Background()
	_, err := pipeline.Run(ctx, false)
	require.NoError(t, err)
	embedCalls := embedder.CallCount()

	summary, err := pipeline.Run(ctx, true)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Modified, "force treats the whole corpus as modified")
	assert.Greater(t, embedder.CallCount(), embedCalls)
}

func TestPipelineRunContinuesPastArtifactError(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "docs/good.md", "good content")
	writeCorpusFile(t, root, "docs/bad.md", "poison content")
	stores := newTestStores(t)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if strings.Contains(text, "poison") {
			return nil, errors.New("embedding blew up")
		}
		return []float32{0.1, 0.2, 0.3}, nil
	}

	pipeline, err := NewPipeline(stores.artifacts, stores.embeddings, stores.registry, embedder, root)
	require.NoError(t, err)
	defer pipeline.Release()

	ctx := context.Background()
	summary, err := pipeline.Run(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Added)
	assert.Equal(t, 1, summary.Errors)

	_, err = stores.artifacts.GetArtifactByPath(ctx, "docs/good.md")
	assert.NoError(t, err)

	// The failed artifact has no registry entry, so the next run retries it.
	_, err = stores.registry.Get(ctx, "docs/bad.md")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPipelineRunRelationships(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "docs/index.md", "overview, see docs/guides/setup.md")
	writeCorpusFile(t, root, "docs/guides/setup.md", "setup guide")
	stores := newTestStores(t)
	pipeline, _ := newTestPipeline(t, stores, root)

	ctx := context.Background()
	_, err := pipeline.Run(ctx, false)
	require.NoError(t, err)

	indexID := core.IDFromPath("docs/index.md")
	setupID := core.IDFromPath("docs/guides/setup.md")

	edges, err := stores.artifacts.RelationshipsFrom(ctx, indexID)
	require.NoError(t, err)

	kinds := make(map[core.RelationKind]bool)
	for _, edge := range edges {
		if edge.To == setupID {
			kinds[edge.Kind] = true
		}
	}
	assert.True(t, kinds[core.RelationContains], "expected containment edge one level down")
	assert.True(t, kinds[core.RelationReferences], "expected reference edge from content mention")
}

func bumpModTime(t *testing.T, path string) {
	t.Helper()
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))
}
