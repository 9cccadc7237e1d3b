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


// Package search implements hybrid retrieval over the ingested corpus.
//
// Each query moves through a fixed pipeline: cache check, intent
// classification, synonym expansion, parallel vector and graph search,
// fuzzy fallback when candidates run thin, then merge, score and cache
// populate. Intent only biases expansion and scoring; it never excludes a
// strategy.
//
// The final score is a weighted sum of per-signal components (vector
// similarity, graph proximity, fuzzy match, category affinity, recency),
// each normalized to [0,1] before weighting. Ties are broken by artifact ID
// so rankings are deterministic.
//
// A failed strategy degrades the response (flagged in Result.Degraded)
// rather than failing the query; only total unavailability of all
// strategies is an error. Cache writes are best-effort and never required
// for correctness.
//
// # Usage
//
//	engine, err := search.NewEngine(artifacts, embeddings, embedder)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	result, err := engine.Search(ctx, "retry strategy", 10)
package search
