package storage

import (
	"context"
	"time"

	"github.com/pjv-stack/synapse/core"
)

// Repository provides operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Ping verifies the backing store is reachable and serving reads.
	Ping(ctx context.Context) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// ArtifactRepository is the graph store adapter: it persists artifacts as
// nodes and derived relationships as edges, and answers traversal queries.
type ArtifactRepository interface {
	Repository

	// UpsertArtifact inserts or fully replaces the artifact keyed by its ID.
	// Sets InsertedAt on first write and UpdatedAt on every write.
	UpsertArtifact(ctx context.Context, artifact *core.Artifact) error

	// GetArtifact retrieves a single artifact by ID.
	// Returns ErrNotFound if the artifact doesn't exist.
	GetArtifact(ctx context.Context, id core.ID) (*core.Artifact, error)

	// GetArtifactByPath retrieves a single artifact by its corpus path.
	// Returns ErrNotFound if no artifact exists for the path.
	GetArtifactByPath(ctx context.Context, path string) (*core.Artifact, error)

	// GetArtifacts retrieves multiple artifacts by their IDs.
	// Returns only the artifacts that exist (no error for missing ones).
	GetArtifacts(ctx context.Context, ids ...core.ID) ([]*core.Artifact, error)

	// AllArtifacts retrieves every artifact node.
	AllArtifacts(ctx context.Context) ([]*core.Artifact, error)

	// DeleteArtifact removes the artifact and cascades deletion of all
	// incident relationships, incoming and outgoing.
	// Returns ErrNotFound if the artifact doesn't exist.
	DeleteArtifact(ctx context.Context, id core.ID) error

	// ReplaceRelationships atomically replaces all outgoing edges of the
	// given artifact with the provided derived set.
	ReplaceRelationships(ctx context.Context, from core.ID, edges []core.Relationship) error

	// RelationshipsFrom returns all outgoing edges of an artifact.
	RelationshipsFrom(ctx context.Context, id core.ID) ([]core.Relationship, error)

	// RelationshipsTo returns all incoming edges of an artifact.
	RelationshipsTo(ctx context.Context, id core.ID) ([]core.Relationship, error)

	// Neighbors returns the IDs of artifacts connected to id by any edge,
	// in either direction, deduplicated.
	Neighbors(ctx context.Context, id core.ID) ([]core.ID, error)

	// Traverse matches the query terms against artifact path, category and
	// content tokens. Artifacts directly connected to a strong textual match
	// are included as boosted candidates at edge distance 1 even without a
	// direct term match of their own. Results are ordered by score descending,
	// ties broken by artifact ID.
	Traverse(ctx context.Context, terms []string, limit int) ([]core.GraphHit, error)
}

// EmbeddingRepository persists semantic vectors and answers nearest-neighbor
// similarity queries.
type EmbeddingRepository interface {
	Repository

	// Store inserts or fully replaces the embedding record for an artifact.
	// A prior record for the same artifact is replaced, never merged.
	Store(ctx context.Context, record *core.EmbeddingRecord) error

	// Get retrieves the embedding record for an artifact.
	// Returns ErrNotFound if no record exists.
	Get(ctx context.Context, id core.ID) (*core.EmbeddingRecord, error)

	// Delete removes the embedding record for an artifact.
	// Deleting a missing record is not an error.
	Delete(ctx context.Context, id core.ID) error

	// FindSimilar returns artifacts whose stored vectors have cosine
	// similarity >= minScore with the query vector, up to limit results,
	// ordered by score descending.
	FindSimilar(ctx context.Context, vector []float32, minScore float32, limit int) ([]core.SimilarityMatch, error)

	// AllRecords retrieves every stored embedding record.
	AllRecords(ctx context.Context) ([]*core.EmbeddingRecord, error)

	// CountByModelTag reports how many records each embedding model produced.
	// A map with more than one key indicates a mixed-model corpus.
	CountByModelTag(ctx context.Context) (map[string]int, error)
}

// RegistryRepository persists the change registry: per-path content
// fingerprints used to compute incremental ingestion diffs.
type RegistryRepository interface {
	Repository

	// Get retrieves the registry entry for a path.
	// Returns ErrNotFound if the path was never ingested.
	Get(ctx context.Context, path string) (*core.RegistryEntry, error)

	// Put inserts or replaces the registry entry for entry.Path.
	Put(ctx context.Context, entry *core.RegistryEntry) error

	// Delete removes the registry entry for a path.
	// Deleting a missing entry is not an error.
	Delete(ctx context.Context, path string) error

	// All retrieves every registry entry.
	All(ctx context.Context) ([]*core.RegistryEntry, error)

	// MarkRun records the completion time of a successful ingestion run.
	MarkRun(ctx context.Context, at time.Time) error

	// LastIngestion returns the most recent successful run time, falling back
	// to the newest entry's IngestedAt. Returns the zero time if the corpus
	// has never been ingested.
	LastIngestion(ctx context.Context) (time.Time, error)
}
