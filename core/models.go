package core

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Artifact IDs are derived deterministically from the artifact's corpus path.
type ID uint64

// IDFromPath generates a deterministic ID from an artifact path using BLAKE2b hashing.
// This ensures that the same path always maps to the same artifact node.
func IDFromPath(path string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(path))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// HashContent computes a BLAKE2b-256 fingerprint of artifact content,
// hex encoded. Two contents hash equal iff they are byte identical.
func HashContent(content []byte) string {
	h, _ := blake2b.New(32, nil)
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// Category classifies an artifact by its role in the corpus.
type Category int

const (
	// CategoryOther is the default for artifacts that match no known role.
	CategoryOther Category = iota
	// CategoryInstruction marks agent or process instruction documents.
	CategoryInstruction
	// CategoryStandard marks coding standards and conventions.
	CategoryStandard
	// CategoryTemplate marks reusable templates and scaffolds.
	CategoryTemplate
)

// String returns the lowercase name used in persisted records and query output.
func (c Category) String() string {
	switch c {
	case CategoryInstruction:
		return "instruction"
	case CategoryStandard:
		return "standard"
	case CategoryTemplate:
		return "template"
	default:
		return "other"
	}
}

// Artifact represents one ingested unit of knowledge, keyed by its source path.
// Exactly one Artifact exists per path; ContentHash changes iff the underlying
// content changes.
type Artifact struct {
	Id           ID
	Path         string
	Category     Category
	Content      string
	ContentHash  string
	LastModified time.Time // Source file modification time
	ModelTag     string    // Embedding model that produced this artifact's vector
	InsertedAt   time.Time // When the artifact was first ingested
	UpdatedAt    time.Time // When the artifact was last re-ingested
}

// RelationKind identifies the type of a derived relationship edge.
type RelationKind int

const (
	// RelationContains links an artifact to artifacts one directory level
	// beneath its own directory, derived from the path hierarchy.
	RelationContains RelationKind = iota + 1
	// RelationReferences links an artifact to artifacts it names in its content.
	RelationReferences
	// RelationSameCategory links artifacts sharing a category, sampled to a
	// bounded neighborhood per artifact.
	RelationSameCategory
)

// String returns the canonical uppercase edge label.
func (k RelationKind) String() string {
	switch k {
	case RelationContains:
		return "CONTAINS"
	case RelationReferences:
		return "REFERENCES"
	case RelationSameCategory:
		return "SAME_CATEGORY"
	default:
		return "UNKNOWN"
	}
}

// Relationship is a directed edge between two artifacts. Relationships are
// derived, never hand-authored; they are recomputed whenever either endpoint's
// content changes and removed when either endpoint is deleted.
type Relationship struct {
	From ID
	To   ID
	Kind RelationKind
}

// EmbeddingRecord holds the semantic vector for one artifact.
// At most one record exists per artifact; ModelTag records which embedding
// function produced the vector so mixed-model corpora can be detected after
// a model upgrade.
type EmbeddingRecord struct {
	ArtifactId ID
	Vector     []float32
	Norm       float32 // Precomputed magnitude of the stored vector
	ModelTag   string
	Dimension  int
}

// RegistryEntry is the persisted change-tracking state for one corpus path.
// Entries are committed per artifact only after that artifact's graph and
// vector writes succeed.
type RegistryEntry struct {
	Path         string
	ContentHash  string
	LastModified time.Time
	IngestedAt   time.Time
}

// SimilarityMatch is a vector search hit.
type SimilarityMatch struct {
	ArtifactId ID
	Score      float32
}

// GraphHit is a graph traversal hit. Distance is the edge distance from the
// nearest direct textual match: 0 for direct matches, 1 for boosted neighbors.
type GraphHit struct {
	ArtifactId ID
	Score      float32
	Distance   int
}
