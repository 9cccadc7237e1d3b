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


package search

import (
	"sort"
	"time"

	"github.com/pjv-stack/synapse/core"
)

// Signal weights for the hybrid score. Each signal is normalized to [0,1]
// before weighting, so no single signal can dominate by having a different
// natural scale.
const (
	weightVector   = 0.45
	weightGraph    = 0.30
	weightFuzzy    = 0.15
	weightCategory = 0.05
	weightRecency  = 0.05
)

// recencyHalfLife is the artifact age at which the recency signal decays
// to one half.
const recencyHalfLife = 30 * 24 * time.Hour

// candidate accumulates per-strategy signals for one artifact before
// merging and scoring.
type candidate struct {
	vectorScore float32
	graphScore  float32
	fuzzyScore  float32
	fromVector  bool
	fromGraph   bool
	fromFuzzy   bool
}

// intentCategories maps each intent to the artifact category it favors.
// Generic queries favor nothing.
var intentCategories = map[Intent]core.Category{
	IntentDebugging:      core.CategoryInstruction,
	IntentImplementation: core.CategoryTemplate,
	IntentTesting:        core.CategoryStandard,
	IntentOptimization:   core.CategoryStandard,
}

// scoreCandidate computes the weighted hybrid score for an artifact.
func scoreCandidate(cand candidate, artifact *core.Artifact, intent Intent, terms []string, now time.Time) float32 {
	score := weightVector*clamp01(cand.vectorScore) +
		weightGraph*clamp01(cand.graphScore) +
		weightFuzzy*clamp01(cand.fuzzyScore)

	if categoryMatches(artifact.Category, intent, terms) {
		score += weightCategory
	}
	score += weightRecency * recencyScore(artifact.LastModified, now)

	return score
}

// categoryMatches reports whether the artifact's category is favored by the
// query, either because a query term names the category or because the
// classified intent favors it.
func categoryMatches(category core.Category, intent Intent, terms []string) bool {
	name := category.String()
	for _, term := range terms {
		if term == name {
			return true
		}
	}
	favored, ok := intentCategories[intent]
	return ok && favored == category
}

// recencyScore maps artifact age to [0,1]: a just-modified artifact scores 1,
// one half-life old scores 0.5, decaying toward 0 with age.
func recencyScore(lastModified time.Time, now time.Time) float32 {
	if lastModified.IsZero() || !lastModified.Before(now) {
		return 1
	}
	age := now.Sub(lastModified)
	return float32(recencyHalfLife) / float32(recencyHalfLife+age)
}

// rankCandidates orders artifact IDs by score descending, ties broken by
// artifact ID ascending for determinism.
func rankCandidates(scores map[core.ID]float32) []core.ID {
	ids := make([]core.ID, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
