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


package search

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pjv-stack/synapse/ai"
	"github.com/pjv-stack/synapse/core"
	"github.com/pjv-stack/synapse/storage"
)

const (
	// DefaultLimit bounds the result count when the caller passes none.
	DefaultLimit = 10

	// defaultBranchTimeout bounds each search strategy's external calls.
	defaultBranchTimeout = 5 * time.Second

	// defaultMinVectorScore filters out weak cosine matches.
	defaultMinVectorScore = 0.25
)

// Match is one ranked artifact in a query result.
type Match struct {
	Path     string  `json:"path"`
	Category string  `json:"category"`
	Score    float32 `json:"score"`
}

// Breakdown counts how many candidates each search strategy contributed.
type Breakdown struct {
	VectorCount int `json:"vector_count"`
	GraphCount  int `json:"graph_count"`
	FuzzyCount  int `json:"fuzzy_count"`
}

// Result is the full output of one query.
type Result struct {
	Query             string    `json:"query"`
	Intent            string    `json:"intent"`
	PrimaryMatches    []Match   `json:"primary_matches"`
	RelatedFiles      []string  `json:"related_files"`
	KeyConcepts       []string  `json:"key_concepts"`
	StrategyBreakdown Breakdown `json:"strategy_breakdown"`
	Degraded          []string  `json:"degraded,omitempty"`
	FromCache         bool      `json:"from_cache"`
}

// Engine is the hybrid retrieval engine: it classifies query intent, expands
// terms, runs vector and graph search in parallel, falls back to fuzzy
// matching when candidates run thin, and merges everything into one ranked
// result, memoized through the cache layer.
type Engine struct {
	artifacts      storage.ArtifactRepository
	embeddings     storage.EmbeddingRepository
	embedder       ai.Embedder
	cache          *Cache
	branchTimeout  time.Duration
	minVectorScore float32
	logger         *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithCache sets the query result cache. Passing nil disables caching.
func WithCache(cache *Cache) Option {
	return func(e *Engine) error {
		if e.cache != nil {
			e.cache.Close()
		}
		e.cache = cache
		return nil
	}
}

// WithBranchTimeout bounds each search strategy's external calls.
func WithBranchTimeout(timeout time.Duration) Option {
	return func(e *Engine) error {
		if timeout > 0 {
			e.branchTimeout = timeout
		}
		return nil
	}
}

// WithMinVectorScore sets the cosine similarity floor for vector matches.
func WithMinVectorScore(minScore float32) Option {
	return func(e *Engine) error {
		e.minVectorScore = minScore
		return nil
	}
}

// NewEngine creates a hybrid retrieval engine. A default cache is created
// unless WithCache overrides it.
func NewEngine(
	artifacts storage.ArtifactRepository,
	embeddings storage.EmbeddingRepository,
	embedder ai.Embedder,
	opts ...Option,
) (*Engine, error) {
	if artifacts == nil {
		return nil, ErrArtifactRepositoryRequired
	}
	if embeddings == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	cache, err := NewCache(DefaultCacheTTL)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		artifacts:      artifacts,
		embeddings:     embeddings,
		embedder:       embedder,
		cache:          cache,
		branchTimeout:  defaultBranchTimeout,
		minVectorScore: defaultMinVectorScore,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(e); optErr != nil {
			e.Close()
			return nil, optErr
		}
	}
	e.logger = e.logger.With("component", "retrieval-engine")

	return e, nil
}

// Cache exposes the engine's cache layer, for health checks and tests.
// Returns nil when caching is disabled.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// Close releases the engine's cache.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// Search runs one query and returns up to limit ranked matches.
func (e *Engine) Search(ctx context.Context, query string, limit int) (*Result, error) {
	return e.SearchWithMonitor(ctx, query, limit, nil)
}

// SearchWithMonitor runs one query with monitoring callbacks at each stage.
func (e *Engine) SearchWithMonitor(ctx context.Context, query string, limit int, monitor QueryMonitor) (*Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query)

	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	intent := ClassifyIntent(query)
	monitor.AfterClassify(intent)

	key := Key(query, intent, limit)
	if e.cache != nil {
		if cached := e.cache.Get(key); cached != nil {
			monitor.CacheHit(key)
			hit := *cached
			hit.FromCache = true
			monitor.Finish(&hit)
			return &hit, nil
		}
	}

	terms := Expand(tokens, intent)
	monitor.AfterExpand(terms)

	candidates, degraded, err := e.parallelSearch(ctx, query, terms, limit, monitor)
	if err != nil {
		return nil, err
	}

	breakdown := Breakdown{}
	for _, cand := range candidates {
		if cand.fromVector {
			breakdown.VectorCount++
		}
		if cand.fromGraph {
			breakdown.GraphCount++
		}
	}

	if len(candidates) < minCandidatesBeforeFuzzy {
		e.fuzzyFallback(ctx, terms, candidates, &breakdown, monitor)
	}

	result, err := e.assembleResult(ctx, query, intent, terms, limit, candidates)
	if err != nil {
		return nil, err
	}
	result.StrategyBreakdown = breakdown
	result.Degraded = degraded

	if e.cache != nil && len(degraded) == 0 {
		e.cache.Put(key, result)
	}

	monitor.Finish(result)
	return result, nil
}

// parallelSearch runs the vector and graph strategies concurrently. A single
// failed strategy marks the result degraded; only failure of both is an error.
func (e *Engine) parallelSearch(ctx context.Context, query string, terms []string, limit int, monitor QueryMonitor) (map[core.ID]*candidate, []string, error) {
	var (
		wg        sync.WaitGroup
		matches   []core.SimilarityMatch
		hits      []core.GraphHit
		vectorErr error
		graphErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		branchCtx, cancel := context.WithTimeout(ctx, e.branchTimeout)
		defer cancel()

		vector, err := e.embedder.EmbedText(branchCtx, query)
		if err != nil {
			vectorErr = err
			return
		}
		matches, vectorErr = e.embeddings.FindSimilar(branchCtx, vector, e.minVectorScore, limit*2)
	}()
	go func() {
		defer wg.Done()
		branchCtx, cancel := context.WithTimeout(ctx, e.branchTimeout)
		defer cancel()

		hits, graphErr = e.artifacts.Traverse(branchCtx, terms, limit*2)
	}()
	wg.Wait()

	var degraded []string
	if vectorErr != nil {
		e.logger.Warn("vector search degraded", "err", vectorErr)
		monitor.StrategyDegraded("vector", vectorErr)
		degraded = append(degraded, "vector")
	} else {
		monitor.AfterVectorSearch(matches)
	}
	if graphErr != nil {
		e.logger.Warn("graph search degraded", "err", graphErr)
		monitor.StrategyDegraded("graph", graphErr)
		degraded = append(degraded, "graph")
	} else {
		monitor.AfterGraphSearch(hits)
	}
	if vectorErr != nil && graphErr != nil {
		return nil, nil, ErrAllStrategiesFailed
	}

	candidates := make(map[core.ID]*candidate)
	for _, match := range matches {
		cand := ensureCandidate(candidates, match.ArtifactId)
		cand.vectorScore = match.Score
		cand.fromVector = true
	}
	for _, hit := range hits {
		cand := ensureCandidate(candidates, hit.ArtifactId)
		cand.graphScore = hit.Score
		cand.fromGraph = true
	}
	return candidates, degraded, nil
}

// fuzzyFallback merges edit-distance hits into a thin candidate set.
func (e *Engine) fuzzyFallback(ctx context.Context, terms []string, candidates map[core.ID]*candidate, breakdown *Breakdown, monitor QueryMonitor) {
	corpus, err := e.artifacts.AllArtifacts(ctx)
	if err != nil {
		e.logger.Warn("fuzzy fallback unavailable", "err", err)
		monitor.StrategyDegraded("fuzzy", err)
		return
	}

	fuzzyHits := fuzzyMatch(terms, corpus)
	monitor.AfterFuzzyFallback(fuzzyHits)

	for id, score := range fuzzyHits {
		cand := ensureCandidate(candidates, id)
		cand.fuzzyScore = score
		cand.fromFuzzy = true
		breakdown.FuzzyCount++
	}
}

// assembleResult scores, ranks and decorates the merged candidate set.
func (e *Engine) assembleResult(ctx context.Context, query string, intent Intent, terms []string, limit int, candidates map[core.ID]*candidate) (*Result, error) {
	result := &Result{
		Query:          query,
		Intent:         intent.String(),
		PrimaryMatches: []Match{},
		RelatedFiles:   []string{},
		KeyConcepts:    []string{},
	}
	if len(candidates) == 0 {
		return result, nil
	}

	ids := make([]core.ID, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	artifacts, err := e.artifacts.GetArtifacts(ctx, ids...)
	if err != nil {
		return nil, err
	}
	byID := make(map[core.ID]*core.Artifact, len(artifacts))
	for _, artifact := range artifacts {
		byID[artifact.Id] = artifact
	}

	now := time.Now().UTC()
	scores := make(map[core.ID]float32, len(candidates))
	for id, cand := range candidates {
		artifact, ok := byID[id]
		if !ok {
			// Candidate with no graph node; skip rather than fabricate.
			continue
		}
		scores[id] = scoreCandidate(*cand, artifact, intent, terms, now)
	}

	ranked := rankCandidates(scores)
	primarySet := make(map[core.ID]struct{})
	for _, id := range ranked {
		if len(result.PrimaryMatches) >= limit {
			break
		}
		artifact := byID[id]
		result.PrimaryMatches = append(result.PrimaryMatches, Match{
			Path:     artifact.Path,
			Category: artifact.Category.String(),
			Score:    scores[id],
		})
		primarySet[id] = struct{}{}
	}

	result.RelatedFiles = e.relatedFiles(ctx, ranked, primarySet, limit)
	result.KeyConcepts = keyConcepts(terms, result.PrimaryMatches, byID, primarySet)

	return result, nil
}

// relatedFiles collects paths of artifacts adjacent to the primary matches
// that are not primary matches themselves.
func (e *Engine) relatedFiles(ctx context.Context, ranked []core.ID, primarySet map[core.ID]struct{}, limit int) []string {
	var related []string
	seen := make(map[core.ID]struct{})

	for _, id := range ranked {
		if _, ok := primarySet[id]; !ok {
			continue
		}
		neighbors, err := e.artifacts.Neighbors(ctx, id)
		if err != nil {
			e.logger.Warn("failed to list neighbors", "artifact", id, "err", err)
			continue
		}
		for _, neighbor := range neighbors {
			if _, ok := primarySet[neighbor]; ok {
				continue
			}
			if _, ok := seen[neighbor]; ok {
				continue
			}
			seen[neighbor] = struct{}{}

			artifact, err := e.artifacts.GetArtifact(ctx, neighbor)
			if err != nil {
				continue
			}
			related = append(related, artifact.Path)
			if len(related) >= limit {
				sort.Strings(related)
				return related
			}
		}
	}
	sort.Strings(related)
	if related == nil {
		related = []string{}
	}
	return related
}

// keyConcepts returns the expanded terms that actually occur in the primary
// matches, preserving expansion order.
func keyConcepts(terms []string, primaries []Match, byID map[core.ID]*core.Artifact, primarySet map[core.ID]struct{}) []string {
	if len(primaries) == 0 {
		return []string{}
	}

	tokens := make(map[string]struct{})
	for id := range primarySet {
		for token := range artifactTokens(byID[id]) {
			tokens[token] = struct{}{}
		}
	}

	concepts := []string{}
	for _, term := range terms {
		if _, ok := tokens[term]; ok {
			concepts = append(concepts, term)
		}
	}
	return concepts
}

func ensureCandidate(candidates map[core.ID]*candidate, id core.ID) *candidate {
	cand, ok := candidates[id]
	if !ok {
		cand = &candidate{}
		candidates[id] = cand
	}
	return cand
}
