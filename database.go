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

package synapse

import (
	"io"
	"log/slog"

	"github.com/pjv-stack/synapse/ai"
	"github.com/pjv-stack/synapse/ai/lexical"
	"github.com/pjv-stack/synapse/ai/openai"
	"github.com/pjv-stack/synapse/diagnostics"
	"github.com/pjv-stack/synapse/ingestion"
	"github.com/pjv-stack/synapse/reembed"
	"github.com/pjv-stack/synapse/search"
	"github.com/pjv-stack/synapse/storage"
	"github.com/pjv-stack/synapse/storage/badger"
)

// Database bundles the three BadgerDB-backed stores and the embedding
// service behind a single handle. It is the composition root: the CLI (and
// embedding callers) open one Database and derive pipelines, engines and
// checkers from it.
type Database struct {
	backend       *badger.Backend
	artifactRepo  storage.ArtifactRepository
	embeddingRepo storage.EmbeddingRepository
	registryRepo  storage.RegistryRepository
	embedder      *ai.FallbackEmbedder
	logger        *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	logger   *slog.Logger
}

// WithAIConfig overrides the embedding service configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithLogger overrides the logger used by the Database and everything
// derived from it.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewDatabase opens the stores at filePath and wires the embedding service.
// The remote embedder is wrapped so that a failing endpoint degrades to the
// local lexical embedder instead of failing ingestion or search.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	artifactRepo, err := badger.NewArtifactRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	embeddingRepo, err := badger.NewEmbeddingRepository(backend)
	if err != nil {
		artifactRepo.Close()
		backend.Close()
		return nil, err
	}

	registryRepo, err := badger.NewRegistryRepository(backend)
	if err != nil {
		embeddingRepo.Close()
		artifactRepo.Close()
		backend.Close()
		return nil, err
	}

	primary, err := openai.NewEmbedder(options.aiConfig)
	if err != nil {
		registryRepo.Close()
		embeddingRepo.Close()
		artifactRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:       backend,
		artifactRepo:  artifactRepo,
		embeddingRepo: embeddingRepo,
		registryRepo:  registryRepo,
		embedder:      ai.NewFallbackEmbedder(primary, lexical.NewEmbedder(), options.logger),
		logger:        options.logger,
	}, nil
}

func (db *Database) Close() error {
	if err := db.registryRepo.Close(); err != nil {
		db.logger.Error("error closing registry repository", "err", err)
		return err
	}
	if err := db.embeddingRepo.Close(); err != nil {
		db.logger.Error("error closing embedding repository", "err", err)
		return err
	}
	if err := db.artifactRepo.Close(); err != nil {
		db.logger.Error("error closing artifact repository", "err", err)
		return err
	}
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) ArtifactRepository() storage.ArtifactRepository {
	return db.artifactRepo
}

func (db *Database) EmbeddingRepository() storage.EmbeddingRepository {
	return db.embeddingRepo
}

func (db *Database) RegistryRepository() storage.RegistryRepository {
	return db.registryRepo
}

// Embedder returns the database's embedding service. The returned embedder
// reports Degraded once the remote endpoint has failed and the lexical
// fallback has taken over.
func (db *Database) Embedder() *ai.FallbackEmbedder {
	return db.embedder
}

// NewIngestionPipeline creates a pipeline ingesting the corpus rooted at
// root into this database.
func (db *Database) NewIngestionPipeline(root string, opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{ingestion.WithLogger(db.logger)}, opts...)
	return ingestion.NewPipeline(db.artifactRepo, db.embeddingRepo, db.registryRepo, db.embedder, root, opts...)
}

// NewSearchEngine creates a hybrid retrieval engine over this database.
func (db *Database) NewSearchEngine(opts ...search.Option) (*search.Engine, error) {
	opts = append([]search.Option{search.WithLogger(db.logger)}, opts...)
	return search.NewEngine(db.artifactRepo, db.embeddingRepo, db.embedder, opts...)
}

// NewDiagnostics creates a health checker over this database. The embedding
// service is always included as a component; callers add the cache with
// diagnostics.WithCache when an engine is live.
func (db *Database) NewDiagnostics(opts ...diagnostics.Option) (*diagnostics.Checker, error) {
	opts = append([]diagnostics.Option{
		diagnostics.WithEmbedder(db.embedder),
		diagnostics.WithLogger(db.logger),
	}, opts...)
	return diagnostics.NewChecker(db.artifactRepo, db.embeddingRepo, db.registryRepo, opts...)
}

// NewReembedder creates a reembedder that regenerates embedding records
// produced by an older model. progress receives human-readable progress
// output; nil discards it.
func (db *Database) NewReembedder(config *reembed.Config, progress io.Writer) *reembed.Reembedder {
	return reembed.NewReembedder(db.artifactRepo, db.embeddingRepo, db.embedder, config, progress)
}
