package search

import (
	"strings"

	"github.com/xrash/smetrics"

	"github.com/pjv-stack/synapse/core"
)

// minCandidatesBeforeFuzzy is the combined candidate count below which the
// fuzzy fallback runs.
const minCandidatesBeforeFuzzy = 3

// maxEditDistance returns the edit-distance bound for a query term: 2 for
// terms of five or more runes, 1 for shorter ones.
func maxEditDistance(term string) int {
	if len([]rune(term)) >= 5 {
		return 2
	}
	return 1
}

// fuzzyMatch scans artifact path and content tokens for near-misses of the
// query terms and returns a score in [0,1] per matched artifact. A score of
// 1 means an exact token match; each unit of edit distance costs a third.
func fuzzyMatch(terms []string, corpus []*core.Artifact) map[core.ID]float32 {
	hits := make(map[core.ID]float32)
	for _, artifact := range corpus {
		score := fuzzyArtifactScore(terms, artifact)
		if score > 0 {
			hits[artifact.Id] = score
		}
	}
	return hits
}

func fuzzyArtifactScore(terms []string, artifact *core.Artifact) float32 {
	tokens := artifactTokens(artifact)

	var best float32
	for _, term := range terms {
		bound := maxEditDistance(term)
		for token := range tokens {
			// Length difference is a lower bound on edit distance.
			if abs(len(token)-len(term)) > bound {
				continue
			}
			distance := smetrics.WagnerFischer(term, token, 1, 1, 1)
			if distance > bound {
				continue
			}
			score := 1 - float32(distance)/3
			if score > best {
				best = score
			}
		}
	}
	return best
}

// artifactTokens collects lowercased path and content tokens, including
// separator-collapsed forms of compound tokens.
func artifactTokens(artifact *core.Artifact) map[string]struct{} {
	tokens := make(map[string]struct{})
	add := func(text string) {
		for _, word := range tokenize(text) {
			tokens[word] = struct{}{}
			joined := strings.NewReplacer("-", "", "_", "", "/", " ").Replace(word)
			if joined != word {
				for _, part := range strings.Fields(joined) {
					tokens[part] = struct{}{}
				}
			}
		}
	}
	add(strings.NewReplacer("/", " ", "-", " ", "_", " ", ".", " ").Replace(artifact.Path))
	add(artifact.Path)
	add(artifact.Content)
	return tokens
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
