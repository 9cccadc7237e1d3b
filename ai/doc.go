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


// Package ai provides abstractions for the embedding services used in Synapse.
//
// This package defines the Embedder interface that the ingestion pipeline and
// query engine depend on, following the dependency inversion principle so the
// core domain never couples to a concrete provider.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/lexical: Deterministic local vectorizer used as the degraded-mode fallback
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewEmbedder) return INTERFACE types to enforce
// abstraction and support dependency injection. Test utility constructors
// (mock.NewMockEmbedder) return CONCRETE types to enable test assertions and
// behavior injection via the mock's public fields.
//
// # Degraded Mode
//
// FallbackEmbedder wraps a primary embedder with the lexical fallback. On the
// first primary failure it switches permanently to the fallback, so ingestion
// and search keep working against an unreachable embedding service. Every
// stored vector carries the ModelTag of the embedder that produced it, which
// lets a reembed run reconcile mixed corpora.
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	primary, err := openai.NewEmbedder(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	embedder := ai.NewFallbackEmbedder(primary, lexical.NewEmbedder(), slog.Default())
//
//	vector, err := embedder.EmbedText(ctx, "hybrid retrieval")
package ai
