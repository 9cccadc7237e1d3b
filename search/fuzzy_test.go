package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjv-stack/synapse/core"
)

func fuzzyArtifact(path, content string) *core.Artifact {
	return &core.Artifact{
		Id:      core.IDFromPath(path),
		Path:    path,
		Content: content,
	}
}

func TestMaxEditDistance(t *testing.T) {
	assert.Equal(t, 1, maxEditDistance("test"))
	assert.Equal(t, 2, maxEditDistance("tests"))
	assert.Equal(t, 2, maxEditDistance("tabledriven"))
}

func TestFuzzyMatchMisspelling(t *testing.T) {
	testing_ := fuzzyArtifact("docs/testing.md", "table-driven tests")
	errors_ := fuzzyArtifact("docs/error-handling.md", "retry with backoff")
	corpus := []*core.Artifact{testing_, errors_}

	// Single-edit misspelling of the joined compound token.
	hits := fuzzyMatch([]string{"tabledrivven"}, corpus)
	require.Contains(t, hits, testing_.Id)
	assert.NotContains(t, hits, errors_.Id)
	assert.Greater(t, hits[testing_.Id], float32(0))
}

func TestFuzzyMatchExactTokenScoresHighest(t *testing.T) {
	artifact := fuzzyArtifact("docs/a.md", "backoff policies")
	corpus := []*core.Artifact{artifact}

	exact := fuzzyMatch([]string{"backoff"}, corpus)
	near := fuzzyMatch([]string{"backofff"}, corpus)

	require.Contains(t, exact, artifact.Id)
	require.Contains(t, near, artifact.Id)
	assert.Greater(t, exact[artifact.Id], near[artifact.Id])
}

func TestFuzzyMatchRespectsDistanceBound(t *testing.T) {
	artifact := fuzzyArtifact("docs/a.md", "backoff policies")
	corpus := []*core.Artifact{artifact}

	// Three edits away from any token.
	hits := fuzzyMatch([]string{"zzzkoff"}, corpus)
	assert.NotContains(t, hits, artifact.Id)
}

func TestFuzzyMatchShortTokenTighterBound(t *testing.T) {
	artifact := fuzzyArtifact("docs/a.md", "cli usage")
	corpus := []*core.Artifact{artifact}

	oneEdit := fuzzyMatch([]string{"clu"}, corpus)
	assert.Contains(t, oneEdit, artifact.Id)

	twoEdits := fuzzyMatch([]string{"cuu"}, corpus)
	assert.NotContains(t, twoEdits, artifact.Id)
}

func TestFuzzyMatchPathTokens(t *testing.T) {
	artifact := fuzzyArtifact("guides/deployment.md", "rolling restarts")
	corpus := []*core.Artifact{artifact}

	hits := fuzzyMatch([]string{"deploymont"}, corpus)
	assert.Contains(t, hits, artifact.Id)
}
