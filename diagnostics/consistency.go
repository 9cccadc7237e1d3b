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


package diagnostics

import (
	"context"

	"github.com/pjv-stack/synapse/ai"
	"github.com/pjv-stack/synapse/core"
)

// ConsistencyReport summarizes cross-store drift between the graph and
// embedding stores.
type ConsistencyReport struct {
	// OrphanedEmbeddings are embedding records with no matching artifact.
	OrphanedEmbeddings []core.ID `json:"orphaned_embeddings"`
	// MissingEmbeddings are artifacts with no embedding record.
	MissingEmbeddings []core.ID `json:"missing_embeddings"`
	// HealedOrphans counts orphaned records removed during self-healing.
	HealedOrphans int `json:"healed_orphans"`
	// HealedMissing counts embeddings regenerated during self-healing.
	HealedMissing int `json:"healed_missing"`
}

// Consistent reports whether the stores agree.
func (r *ConsistencyReport) Consistent() bool {
	return len(r.OrphanedEmbeddings) == 0 && len(r.MissingEmbeddings) == 0
}

// CheckConsistency cross-validates the graph and embedding stores: every
// artifact should have exactly one embedding record and every record a
// matching artifact.
func (c *Checker) CheckConsistency(ctx context.Context) (*ConsistencyReport, error) {
	artifacts, err := c.artifacts.AllArtifacts(ctx)
	if err != nil {
		return nil, err
	}
	records, err := c.embeddings.AllRecords(ctx)
	if err != nil {
		return nil, err
	}

	artifactIDs := make(map[core.ID]struct{}, len(artifacts))
	for _, artifact := range artifacts {
		artifactIDs[artifact.Id] = struct{}{}
	}
	recordIDs := make(map[core.ID]struct{}, len(records))
	for _, record := range records {
		recordIDs[record.ArtifactId] = struct{}{}
	}

	report := &ConsistencyReport{
		OrphanedEmbeddings: []core.ID{},
		MissingEmbeddings:  []core.ID{},
	}
	for _, record := range records {
		if _, ok := artifactIDs[record.ArtifactId]; !ok {
			report.OrphanedEmbeddings = append(report.OrphanedEmbeddings, record.ArtifactId)
		}
	}
	for _, artifact := range artifacts {
		if _, ok := recordIDs[artifact.Id]; !ok {
			report.MissingEmbeddings = append(report.MissingEmbeddings, artifact.Id)
		}
	}

	return report, nil
}

// SelfHeal repairs the drift found by CheckConsistency: orphaned embedding
// records are deleted, and missing embeddings are regenerated from artifact
// content using the given embedder. Failures are logged and reflected in the
// healed counts; the report still lists everything that was found.
func (c *Checker) SelfHeal(ctx context.Context, report *ConsistencyReport, embedder ai.Embedder) error {
	for _, id := range report.OrphanedEmbeddings {
		if err := c.embeddings.Delete(ctx, id); err != nil {
			c.logger.Warn("failed to remove orphaned embedding", "artifact", id, "err", err)
			continue
		}
		report.HealedOrphans++
	}

	if embedder == nil {
		return nil
	}
	for _, id := range report.MissingEmbeddings {
		artifact, err := c.artifacts.GetArtifact(ctx, id)
		if err != nil {
			c.logger.Warn("failed to load artifact for re-embedding", "artifact", id, "err", err)
			continue
		}
		vector, err := embedder.EmbedText(ctx, artifact.Content)
		if err != nil {
			c.logger.Warn("failed to regenerate embedding", "artifact", id, "err", err)
			continue
		}
		record := &core.EmbeddingRecord{
			ArtifactId: id,
			Vector:     vector,
			ModelTag:   embedder.ModelTag(),
			Dimension:  len(vector),
		}
		if err := c.embeddings.Store(ctx, record); err != nil {
			c.logger.Warn("failed to store regenerated embedding", "artifact", id, "err", err)
			continue
		}
		report.HealedMissing++
	}
	return nil
}
