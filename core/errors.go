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

import "errors"

// Domain validation errors
var (
	// ErrInvalidArtifact indicates an Artifact failed validation.
	ErrInvalidArtifact = errors.New("invalid artifact")

	// ErrInvalidRelationship indicates a Relationship failed validation.
	ErrInvalidRelationship = errors.New("invalid relationship")

	// ErrInvalidEmbedding indicates an EmbeddingRecord failed validation.
	ErrInvalidEmbedding = errors.New("invalid embedding record")

	// ErrEmptyPath indicates the Path field is empty.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrEmptyContentHash indicates the ContentHash field is empty.
	ErrEmptyContentHash = errors.New("content hash cannot be empty")

	// ErrInvalidRelationKind indicates an invalid RelationKind value.
	ErrInvalidRelationKind = errors.New("invalid relation kind")

	// ErrSelfRelation indicates a relationship with identical endpoints.
	ErrSelfRelation = errors.New("relationship endpoints must differ")

	// ErrEmptyVector indicates an embedding record without a vector.
	ErrEmptyVector = errors.New("embedding vector cannot be empty")

	// ErrDimensionMismatch indicates a vector whose length disagrees with
	// its recorded dimension.
	ErrDimensionMismatch = errors.New("vector length does not match dimension")
)
