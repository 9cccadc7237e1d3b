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


// Package ingestion turns a corpus of files on disk into artifact nodes,
// embedding records and derived relationships.
//
// The Tracker computes incremental diffs (added, modified, deleted paths) by
// comparing a fresh corpus walk against the persisted change registry. The
// Pipeline consumes the diff and processes each changed artifact as one
// atomic unit: read, classify, embed, upsert the node and vector, recompute
// outgoing edges, then commit the registry entry. A partial failure thus
// leaves the registry consistent with what was actually ingested.
//
// Embedding work runs concurrently on a bounded worker pool; graph and
// registry writes are serialized to keep transaction conflicts out of the
// hot path. A pipeline is single-writer: concurrent Run calls beyond the
// first fail with ErrRunInProgress.
//
// # Usage
//
//	pipeline, err := ingestion.NewPipeline(artifacts, embeddings, registry, embedder, corpusRoot)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pipeline.Release()
//
//	summary, err := pipeline.Run(ctx, false) // incremental
//	summary, err = pipeline.Run(ctx, true)   // full rebuild
package ingestion
