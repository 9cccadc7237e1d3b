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


// Package storage provides the storage abstraction layer for synapse.
//
// This package defines repository interfaces that decouple storage
// implementation from the ingestion and retrieval logic. The three stores
// behind the engine (graph, embeddings, change registry) are independently
// owned behind narrow interfaces so they can be cross-validated and swapped.
//
// # Constructor Return Type Pattern
//
// This package follows a "return interface" pattern for all public
// constructors to enforce abstraction and enable multiple storage backend
// implementations:
//
//	repo, err := badger.NewArtifactRepository(backend)  // returns storage.ArtifactRepository
//
// Internal package constructors may return concrete types since they're only
// used within the implementation package.
//
// # Architecture
//
//   - ArtifactRepository: graph store adapter (artifact nodes, derived
//     relationship edges, traversal queries)
//   - EmbeddingRepository: semantic vector persistence and similarity search
//   - RegistryRepository: per-path change-tracking registry
//
// All three are keyed consistently by artifact ID / path so the stores can be
// cross-validated by the diagnostics package.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support concurrent
// access from multiple goroutines. Queries read a consistent snapshot while
// an ingestion run is writing.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation and timeout
// support. Pass context.Background() for operations without specific timeout
// requirements.
package storage
