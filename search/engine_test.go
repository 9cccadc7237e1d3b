package search_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjv-stack/synapse/ai/lexical"
	"github.com/pjv-stack/synapse/ai/mock"
	"github.com/pjv-stack/synapse/core"
	"github.com/pjv-stack/synapse/search"
	"github.com/pjv-stack/synapse/storage"
	"github.com/pjv-stack/synapse/storage/badger"
)

type engineFixture struct {
	artifacts  storage.ArtifactRepository
	embeddings storage.EmbeddingRepository
	embedder   *mock.MockEmbedder
	engine     *search.Engine
}

// newEngineFixture builds an engine over in-memory stores. The mock embedder
// counts calls but delegates to the lexical vectorizer, so similarity scores
// track token overlap deterministically.
func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	artifacts, embeddings, registry, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() {
		artifacts.Close()
		embeddings.Close()
		registry.Close()
		backend.Close()
	})

	vectorizer := lexical.NewEmbedder()
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vectorizer.EmbedText(ctx, text)
	}

	engine, err := search.NewEngine(artifacts, embeddings, embedder)
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return &engineFixture{
		artifacts:  artifacts,
		embeddings: embeddings,
		embedder:   embedder,
		engine:     engine,
	}
}

func (f *engineFixture) seed(t *testing.T, path, content string, category core.Category) *core.Artifact {
	t.Helper()
	ctx := context.Background()

	artifact := &core.Artifact{
		Id:           core.IDFromPath(path),
		Path:         path,
		Category:     category,
		Content:      content,
		ContentHash:  core.HashContent([]byte(content)),
		LastModified: time.Now().UTC(),
		ModelTag:     "lexical-256",
	}
	require.NoError(t, f.artifacts.UpsertArtifact(ctx, artifact))

	vector, err := lexical.NewEmbedder().EmbedText(ctx, content)
	require.NoError(t, err)
	require.NoError(t, f.embeddings.Store(ctx, &core.EmbeddingRecord{
		ArtifactId: artifact.Id,
		Vector:     vector,
		ModelTag:   "lexical-256",
		Dimension:  len(vector),
	}))

	return artifact
}

func primaryPaths(result *search.Result) []string {
	paths := make([]string, 0, len(result.PrimaryMatches))
	for _, match := range result.PrimaryMatches {
		paths = append(paths, match.Path)
	}
	return paths
}

func TestNewEngineValidation(t *testing.T) {
	f := newEngineFixture(t)

	_, err := search.NewEngine(nil, f.embeddings, f.embedder)
	assert.ErrorIs(t, err, search.ErrArtifactRepositoryRequired)

	_, err = search.NewEngine(f.artifacts, nil, f.embedder)
	assert.ErrorIs(t, err, search.ErrEmbeddingRepositoryRequired)

	_, err = search.NewEngine(f.artifacts, f.embeddings, nil)
	assert.ErrorIs(t, err, search.ErrEmbedderRequired)
}

func TestSearchEmptyQuery(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Search(context.Background(), "", 10)
	assert.ErrorIs(t, err, search.ErrEmptyQuery)

	// Stop words only is still an empty query.
	_, err = f.engine.Search(context.Background(), "the a an", 10)
	assert.ErrorIs(t, err, search.ErrEmptyQuery)
}

func TestSearchEndToEnd(t *testing.T) {
	f := newEngineFixture(t)
	f.seed(t, "docs/error-handling.md", "retry with backoff", core.CategoryOther)
	f.seed(t, "docs/testing.md", "table-driven tests", core.CategoryOther)

	result, err := f.engine.Search(context.Background(), "retry strategy", 10)
	require.NoError(t, err)

	paths := primaryPaths(result)
	assert.Contains(t, paths, "docs/error-handling.md")
	assert.NotContains(t, paths, "docs/testing.md")
	assert.False(t, result.FromCache)
	assert.Empty(t, result.Degraded)
	assert.Contains(t, result.KeyConcepts, "retry")
}

func TestSearchVerbatimSubstring(t *testing.T) {
	f := newEngineFixture(t)
	seeded := f.seed(t, "docs/error-handling.md", "always retry with backoff on transient failures", core.CategoryOther)

	result, err := f.engine.Search(context.Background(), "retry with backoff", 10)
	require.NoError(t, err)

	require.NotEmpty(t, result.PrimaryMatches)
	assert.Equal(t, seeded.Path, result.PrimaryMatches[0].Path)
}

func TestSearchFuzzyFallback(t *testing.T) {
	f := newEngineFixture(t)
	f.seed(t, "docs/testing.md", "table-driven tests", core.CategoryOther)
	f.seed(t, "docs/error-handling.md", "retry with backoff", core.CategoryOther)

	// Single-edit misspelling with no exact vector or graph signal.
	result, err := f.engine.Search(context.Background(), "tabledrivven", 10)
	require.NoError(t, err)

	assert.Contains(t, primaryPaths(result), "docs/testing.md")
	assert.Positive(t, result.StrategyBreakdown.FuzzyCount)
}

func TestSearchMisspelledCompound(t *testing.T) {
	f := newEngineFixture(t)
	f.seed(t, "docs/error-handling.md", "retry with backoff", core.CategoryOther)
	f.seed(t, "docs/testing.md", "table-driven tests", core.CategoryOther)

	result, err := f.engine.Search(context.Background(), "tabledriven test", 10)
	require.NoError(t, err)

	assert.Contains(t, primaryPaths(result), "docs/testing.md")
}

func TestSearchCacheHit(t *testing.T) {
	f := newEngineFixture(t)
	f.seed(t, "docs/error-handling.md", "retry with backoff", core.CategoryOther)

	ctx := context.Background()
	first, err := f.engine.Search(ctx, "retry strategy", 10)
	require.NoError(t, err)
	require.False(t, first.FromCache)

	f.engine.Cache().Wait()
	callsAfterFirst := f.embedder.CallCount()

	second, err := f.engine.Search(ctx, "retry strategy", 10)
	require.NoError(t, err)

	assert.True(t, second.FromCache)
	assert.Equal(t, callsAfterFirst, f.embedder.CallCount(), "cache hit must not re-embed")
	assert.Equal(t, first.PrimaryMatches, second.PrimaryMatches)
	assert.Equal(t, first.StrategyBreakdown, second.StrategyBreakdown)
}

func TestSearchCacheKeyIncludesLimit(t *testing.T) {
	f := newEngineFixture(t)
	f.seed(t, "docs/error-handling.md", "retry with backoff", core.CategoryOther)

	ctx := context.Background()
	_, err := f.engine.Search(ctx, "retry strategy", 10)
	require.NoError(t, err)
	f.engine.Cache().Wait()

	other, err := f.engine.Search(ctx, "retry strategy", 5)
	require.NoError(t, err)
	assert.False(t, other.FromCache)
}

func TestSearchRankingMonotonicity(t *testing.T) {
	f := newEngineFixture(t)
	// Both mention retry; only one also carries the vector-similar content.
	f.seed(t, "docs/both.md", "retry with backoff and exponential delay", core.CategoryOther)
	f.seed(t, "docs/graph-only.md", "mentions retry once amid unrelated prose about gardening", core.CategoryOther)

	result, err := f.engine.Search(context.Background(), "retry backoff delay", 10)
	require.NoError(t, err)

	paths := primaryPaths(result)
	require.Contains(t, paths, "docs/both.md")
	bothIdx, graphIdx := -1, -1
	for i, path := range paths {
		switch path {
		case "docs/both.md":
			bothIdx = i
		case "docs/graph-only.md":
			graphIdx = i
		}
	}
	if graphIdx >= 0 {
		assert.Less(t, bothIdx, graphIdx, "dual-signal artifact must rank at least as high")
	}
}

func TestSearchDegradedVectorBranch(t *testing.T) {
	f := newEngineFixture(t)
	f.seed(t, "docs/error-handling.md", "retry with backoff", core.CategoryOther)

	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}

	result, err := f.engine.Search(context.Background(), "retry strategy", 10)
	require.NoError(t, err)

	assert.Contains(t, result.Degraded, "vector")
	assert.Contains(t, primaryPaths(result), "docs/error-handling.md", "graph branch still answers")
	assert.Zero(t, result.StrategyBreakdown.VectorCount)
}

func TestSearchDegradedResultsNotCached(t *testing.T) {
	f := newEngineFixture(t)
	f.seed(t, "docs/error-handling.md", "retry with backoff", core.CategoryOther)

	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}

	ctx := context.Background()
	_, err := f.engine.Search(ctx, "retry strategy", 10)
	require.NoError(t, err)
	f.engine.Cache().Wait()

	again, err := f.engine.Search(ctx, "retry strategy", 10)
	require.NoError(t, err)
	assert.False(t, again.FromCache, "degraded responses must not be memoized")
}

func TestSearchAllStrategiesFailed(t *testing.T) {
	artifacts, embeddings, registry, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}

	engine, err := search.NewEngine(artifacts, embeddings, embedder)
	require.NoError(t, err)
	defer engine.Close()

	// A closed backend takes the graph branch down with the vector branch.
	registry.Close()
	artifacts.Close()
	embeddings.Close()
	backend.Close()

	_, err = engine.Search(context.Background(), "retry strategy", 10)
	assert.ErrorIs(t, err, search.ErrAllStrategiesFailed)
}

func TestSearchRelatedFiles(t *testing.T) {
	f := newEngineFixture(t)
	primary := f.seed(t, "docs/error-handling.md", "retry with backoff", core.CategoryOther)
	neighbor := f.seed(t, "docs/resilience.md", "circuit breakers and bulkheads", core.CategoryOther)

	ctx := context.Background()
	require.NoError(t, f.artifacts.ReplaceRelationships(ctx, primary.Id, []core.Relationship{
		{From: primary.Id, To: neighbor.Id, Kind: core.RelationReferences},
	}))

	result, err := f.engine.Search(ctx, "retry backoff", 10)
	require.NoError(t, err)

	require.Contains(t, primaryPaths(result), "docs/error-handling.md")
	if !contains(primaryPaths(result), "docs/resilience.md") {
		assert.Contains(t, result.RelatedFiles, "docs/resilience.md")
	}
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
