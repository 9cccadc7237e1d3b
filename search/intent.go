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

import "sort"

// Intent is a heuristic tag for a query's purpose. It biases term expansion
// and scoring, never the choice of search strategy.
type Intent int

const (
	IntentGeneric Intent = iota
	IntentDebugging
	IntentImplementation
	IntentTesting
	IntentOptimization
)

// String returns the intent's wire name.
func (i Intent) String() string {
	switch i {
	case IntentDebugging:
		return "debugging"
	case IntentImplementation:
		return "implementation"
	case IntentTesting:
		return "testing"
	case IntentOptimization:
		return "optimization"
	default:
		return "generic"
	}
}

// intentMarkers maps keywords to intents. The intent with the most keyword
// hits wins; ties and zero hits fall back to generic.
var intentMarkers = map[Intent][]string{
	IntentDebugging:      {"debug", "debugging", "error", "bug", "crash", "panic", "fix", "broken", "fail", "failing", "stacktrace", "traceback"},
	IntentImplementation: {"implement", "implementation", "build", "create", "add", "write", "design", "structure", "pattern"},
	IntentTesting:        {"test", "tests", "testing", "coverage", "mock", "assert", "fixture", "spec"},
	IntentOptimization:   {"optimize", "optimization", "performance", "slow", "fast", "latency", "memory", "profile", "benchmark"},
}

// synonyms is a static domain table used for additive query expansion.
// Original terms are always retained; expansion only adds.
var synonyms = map[string][]string{
	"error":     {"exception", "failure", "fault"},
	"exception": {"error"},
	"failure":   {"error"},
	"function":  {"method", "procedure"},
	"method":    {"function"},
	"test":      {"testing", "spec"},
	"testing":   {"test"},
	"bug":       {"defect", "error"},
	"config":    {"configuration", "settings"},
	"doc":       {"documentation"},
	"docs":      {"documentation"},
	"retry":     {"backoff", "resilience"},
	"delete":    {"remove"},
	"remove":    {"delete"},
	"fast":      {"performance"},
	"slow":      {"performance", "latency"},
}

// intentTerms adds a few bias terms per intent so expansion can surface
// intent-relevant artifacts even when the query never names them.
var intentTerms = map[Intent][]string{
	IntentDebugging:      {"troubleshooting"},
	IntentImplementation: {"guide"},
	IntentTesting:        {"coverage"},
	IntentOptimization:   {"performance"},
}

// ClassifyIntent tags a query with the intent whose keywords it hits most.
func ClassifyIntent(query string) Intent {
	tokens := tokenize(query)
	tokenSet := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		tokenSet[token] = true
	}

	best := IntentGeneric
	bestHits := 0
	// Fixed evaluation order keeps ties deterministic.
	for _, intent := range []Intent{IntentDebugging, IntentImplementation, IntentTesting, IntentOptimization} {
		hits := 0
		for _, marker := range intentMarkers[intent] {
			if tokenSet[marker] {
				hits++
			}
		}
		if hits > bestHits {
			best = intent
			bestHits = hits
		}
	}
	return best
}

// Expand augments query tokens with domain synonyms and intent bias terms.
// The original tokens always come first, followed by additions in sorted
// order, deduplicated.
func Expand(tokens []string, intent Intent) []string {
	seen := make(map[string]bool, len(tokens))
	expanded := make([]string, 0, len(tokens)*2)
	for _, token := range tokens {
		if !seen[token] {
			seen[token] = true
			expanded = append(expanded, token)
		}
	}

	var additions []string
	for _, token := range tokens {
		for _, synonym := range synonyms[token] {
			if !seen[synonym] {
				seen[synonym] = true
				additions = append(additions, synonym)
			}
		}
	}
	for _, term := range intentTerms[intent] {
		if !seen[term] {
			seen[term] = true
			additions = append(additions, term)
		}
	}
	sort.Strings(additions)

	return append(expanded, additions...)
}
