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


package core

import "fmt"

// ValidateArtifact validates an Artifact according to domain rules.
//
// Validation rules:
//   - Path must not be empty
//   - ContentHash must not be empty
//   - Id must equal IDFromPath(Path)
//
// NOT validated (populated during ingestion):
//   - ModelTag (empty until the artifact has been embedded)
//   - LastModified (zero is accepted for synthetic artifacts in tests)
func ValidateArtifact(artifact *Artifact) error {
	if artifact == nil {
		return fmt.Errorf("%w: artifact is nil", ErrInvalidArtifact)
	}

	if artifact.Path == "" {
		return fmt.Errorf("%w: %w", ErrInvalidArtifact, ErrEmptyPath)
	}

	if artifact.ContentHash == "" {
		return fmt.Errorf("%w: %w", ErrInvalidArtifact, ErrEmptyContentHash)
	}

	if artifact.Id != IDFromPath(artifact.Path) {
		return fmt.Errorf("%w: id %d does not derive from path %q",
			ErrInvalidArtifact, artifact.Id, artifact.Path)
	}

	return nil
}

// ValidateRelationship validates a Relationship according to domain rules.
//
// Validation rules:
//   - Kind must be a known RelationKind
//   - From and To must differ
func ValidateRelationship(rel *Relationship) error {
	if rel == nil {
		return fmt.Errorf("%w: relationship is nil", ErrInvalidRelationship)
	}

	if err := ValidateRelationKind(rel.Kind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRelationship, err)
	}

	if rel.From == rel.To {
		return fmt.Errorf("%w: %w", ErrInvalidRelationship, ErrSelfRelation)
	}

	return nil
}

// ValidateEmbeddingRecord validates an EmbeddingRecord according to domain rules.
//
// Validation rules:
//   - Vector must not be empty
//   - Dimension must equal len(Vector)
func ValidateEmbeddingRecord(record *EmbeddingRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidEmbedding)
	}

	if len(record.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidEmbedding, ErrEmptyVector)
	}

	if record.Dimension != len(record.Vector) {
		return fmt.Errorf("%w: %w: dimension %d, length %d",
			ErrInvalidEmbedding, ErrDimensionMismatch, record.Dimension, len(record.Vector))
	}

	return nil
}

// ValidateRelationKind validates that a RelationKind has a known value.
func ValidateRelationKind(kind RelationKind) error {
	switch kind {
	case RelationContains, RelationReferences, RelationSameCategory:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidRelationKind, kind)
	}
}
