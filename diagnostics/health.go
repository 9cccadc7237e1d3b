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


package diagnostics

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pjv-stack/synapse/storage"
)

// Status is a component health state.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Component names reported by Health.
const (
	ComponentGraphStore       = "graph_store"
	ComponentEmbeddingStore   = "embedding_store"
	ComponentRegistry         = "registry"
	ComponentCache            = "cache"
	ComponentEmbeddingService = "embedding_service"
)

// Pinger is the reachability probe satisfied by the cache layer and any
// other optional collaborator.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DegradedReporter is satisfied by embedders that can fall back to a local
// vectorizer, reporting whether they have done so.
type DegradedReporter interface {
	Degraded() bool
}

// Report is the output of one health check.
type Report struct {
	Components map[string]Status `json:"components"`
	Overall    Status            `json:"overall"`
	Stale      bool              `json:"stale"`
	CheckedAt  time.Time         `json:"checked_at"`
}

// Checker runs health, staleness and consistency diagnostics over the
// engine's stores. A down component yields a degraded report, never a
// failure of the check itself.
type Checker struct {
	artifacts  storage.ArtifactRepository
	embeddings storage.EmbeddingRepository
	registry   storage.RegistryRepository
	cache      Pinger
	embedder   DegradedReporter
	maxAge     time.Duration
	logger     *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithCache registers the cache layer for health probing.
func WithCache(cache Pinger) Option {
	return func(c *Checker) {
		c.cache = cache
	}
}

// WithEmbedder registers a fallback-capable embedder so the report can
// distinguish a reachable embedding service from a degraded one.
func WithEmbedder(embedder DegradedReporter) Option {
	return func(c *Checker) {
		c.embedder = embedder
	}
}

// WithMaxAge sets the staleness threshold used by Health and IsStale.
// Default is 24 hours.
func WithMaxAge(maxAge time.Duration) Option {
	return func(c *Checker) {
		if maxAge > 0 {
			c.maxAge = maxAge
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChecker creates a diagnostics checker over the three stores.
func NewChecker(
	artifacts storage.ArtifactRepository,
	embeddings storage.EmbeddingRepository,
	registry storage.RegistryRepository,
	opts ...Option,
) (*Checker, error) {
	if artifacts == nil || embeddings == nil || registry == nil {
		return nil, errors.New("diagnostics: all three repositories are required")
	}

	c := &Checker{
		artifacts:  artifacts,
		embeddings: embeddings,
		registry:   registry,
		maxAge:     24 * time.Hour,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "diagnostics")

	return c, nil
}

// Health probes every component independently and rolls the results up.
// The rollup is down only when both search-critical stores (graph and
// embedding) are down; any other unhealthy component degrades it.
func (c *Checker) Health(ctx context.Context) *Report {
	report := &Report{
		Components: make(map[string]Status),
		CheckedAt:  time.Now().UTC(),
	}

	report.Components[ComponentGraphStore] = c.probe(ctx, ComponentGraphStore, c.artifacts)
	report.Components[ComponentEmbeddingStore] = c.probe(ctx, ComponentEmbeddingStore, c.embeddings)
	report.Components[ComponentRegistry] = c.probe(ctx, ComponentRegistry, c.registry)
	if c.cache != nil {
		report.Components[ComponentCache] = c.probe(ctx, ComponentCache, c.cache)
	}
	if c.embedder != nil {
		if c.embedder.Degraded() {
			report.Components[ComponentEmbeddingService] = StatusDegraded
		} else {
			report.Components[ComponentEmbeddingService] = StatusHealthy
		}
	}

	stale, err := c.IsStale(ctx, c.maxAge)
	if err != nil {
		c.logger.Warn("staleness check failed", "err", err)
	} else {
		report.Stale = stale
	}

	report.Overall = rollup(report.Components)
	return report
}

// IsStale reports whether the last successful ingestion is older than
// maxAge. A corpus that was never ingested is always stale.
func (c *Checker) IsStale(ctx context.Context, maxAge time.Duration) (bool, error) {
	last, err := c.registry.LastIngestion(ctx)
	if err != nil {
		return false, err
	}
	if last.IsZero() {
		return true, nil
	}
	return time.Since(last) > maxAge, nil
}

func (c *Checker) probe(ctx context.Context, name string, pinger Pinger) Status {
	if err := pinger.Ping(ctx); err != nil {
		c.logger.Warn("component unreachable", "probe", name, "err", err)
		return StatusDown
	}
	return StatusHealthy
}

func rollup(components map[string]Status) Status {
	if components[ComponentGraphStore] == StatusDown && components[ComponentEmbeddingStore] == StatusDown {
		return StatusDown
	}
	for _, status := range components {
		if status != StatusHealthy {
			return StatusDegraded
		}
	}
	return StatusHealthy
}
