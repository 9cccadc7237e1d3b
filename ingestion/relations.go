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


package ingestion

import (
	"path"
	"sort"
	"strings"

	"github.com/pjv-stack/synapse/core"
)

// sameCategoryCap bounds the number of SAME_CATEGORY edges derived per
// artifact, keeping large categories from producing a combinatorial number
// of edges.
const sameCategoryCap = 8

// DeriveRelationships computes the full outgoing edge set for one artifact
// against a snapshot of the corpus. Edges are derived, never hand-authored:
//
//   - CONTAINS links the artifact to artifacts whose directory is a direct
//     child of the artifact's own directory.
//   - REFERENCES links the artifact to every artifact whose path or file name
//     appears as a literal substring of its content.
//   - SAME_CATEGORY links artifacts sharing a category, sampled to a bounded
//     neighborhood chosen deterministically by artifact ID.
//
// The result is sorted by (kind, target ID) so repeated derivation over an
// unchanged corpus yields an identical edge set.
func DeriveRelationships(artifact *core.Artifact, corpus []*core.Artifact) []core.Relationship {
	var edges []core.Relationship
	edges = append(edges, containsEdges(artifact, corpus)...)
	edges = append(edges, referenceEdges(artifact, corpus)...)
	edges = append(edges, sameCategoryEdges(artifact, corpus)...)

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Kind != edges[j].Kind {
			return edges[i].Kind < edges[j].Kind
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

func containsEdges(artifact *core.Artifact, corpus []*core.Artifact) []core.Relationship {
	dir := path.Dir(artifact.Path)

	var edges []core.Relationship
	for _, other := range corpus {
		if other.Id == artifact.Id {
			continue
		}
		otherDir := path.Dir(other.Path)
		if path.Dir(otherDir) == dir && otherDir != dir {
			edges = append(edges, core.Relationship{
				From: artifact.Id,
				To:   other.Id,
				Kind: core.RelationContains,
			})
		}
	}
	return edges
}

func referenceEdges(artifact *core.Artifact, corpus []*core.Artifact) []core.Relationship {
	var edges []core.Relationship
	for _, other := range corpus {
		if other.Id == artifact.Id {
			continue
		}
		if mentions(artifact.Content, other.Path) {
			edges = append(edges, core.Relationship{
				From: artifact.Id,
				To:   other.Id,
				Kind: core.RelationReferences,
			})
		}
	}
	return edges
}

// mentions reports whether content names the target path literally, by full
// relative path, file name, or file name without extension.
func mentions(content, targetPath string) bool {
	if strings.Contains(content, targetPath) {
		return true
	}
	base := path.Base(targetPath)
	if strings.Contains(content, base) {
		return true
	}
	stem := strings.TrimSuffix(base, path.Ext(base))
	// Short stems match everywhere; require some distinctiveness.
	return len(stem) >= 4 && strings.Contains(content, stem)
}

func sameCategoryEdges(artifact *core.Artifact, corpus []*core.Artifact) []core.Relationship {
	var peers []core.ID
	for _, other := range corpus {
		if other.Id == artifact.Id || other.Category != artifact.Category {
			continue
		}
		peers = append(peers, other.Id)
	}
	// Deterministic neighborhood: lowest IDs first.
	sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })
	if len(peers) > sameCategoryCap {
		peers = peers[:sameCategoryCap]
	}

	edges := make([]core.Relationship, 0, len(peers))
	for _, peer := range peers {
		edges = append(edges, core.Relationship{
			From: artifact.Id,
			To:   peer,
			Kind: core.RelationSameCategory,
		})
	}
	return edges
}
