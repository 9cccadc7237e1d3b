package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		query string
		want  Intent
	}{
		{"why does the parser crash with a panic", IntentDebugging},
		{"fix the broken error path", IntentDebugging},
		{"how to implement a worker pool", IntentImplementation},
		{"design pattern for config loading", IntentImplementation},
		{"write tests with mock fixtures", IntentTesting},
		{"improve performance of slow queries", IntentOptimization},
		{"reduce memory in the benchmark", IntentOptimization},
		{"knowledge base overview", IntentGeneric},
		{"", IntentGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyIntent(tt.query))
		})
	}
}

func TestIntentString(t *testing.T) {
	assert.Equal(t, "debugging", IntentDebugging.String())
	assert.Equal(t, "implementation", IntentImplementation.String())
	assert.Equal(t, "testing", IntentTesting.String())
	assert.Equal(t, "optimization", IntentOptimization.String())
	assert.Equal(t, "generic", IntentGeneric.String())
	assert.Equal(t, "generic", Intent(99).String())
}

func TestExpandRetainsOriginalTerms(t *testing.T) {
	tokens := []string{"error", "retry"}
	expanded := Expand(tokens, IntentGeneric)

	assert.Equal(t, "error", expanded[0])
	assert.Equal(t, "retry", expanded[1])
	assert.Contains(t, expanded, "exception")
	assert.Contains(t, expanded, "backoff")
}

func TestExpandAddsIntentTerms(t *testing.T) {
	expanded := Expand([]string{"query"}, IntentOptimization)
	assert.Contains(t, expanded, "performance")
}

func TestExpandDeduplicates(t *testing.T) {
	expanded := Expand([]string{"error", "exception"}, IntentGeneric)

	seen := make(map[string]int)
	for _, term := range expanded {
		seen[term]++
	}
	for term, count := range seen {
		assert.Equal(t, 1, count, "term %q duplicated", term)
	}
}

func TestExpandDeterministic(t *testing.T) {
	first := Expand([]string{"error", "test"}, IntentDebugging)
	second := Expand([]string{"error", "test"}, IntentDebugging)
	assert.Equal(t, first, second)
}

func TestTokenizeFiltersStopWords(t *testing.T) {
	tokens := tokenize("How to fix the error in a test?")
	assert.Equal(t, []string{"fix", "error", "test"}, tokens)
}
