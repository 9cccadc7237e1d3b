package ingestion

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjv-stack/synapse/core"
)

func makeArtifact(path string, category core.Category, content string) *core.Artifact {
	return &core.Artifact{
		Id:       core.IDFromPath(path),
		Path:     path,
		Category: category,
		Content:  content,
	}
}

func edgesOfKind(edges []core.Relationship, kind core.RelationKind) []core.Relationship {
	var filtered []core.Relationship
	for _, edge := range edges {
		if edge.Kind == kind {
			filtered = append(filtered, edge)
		}
	}
	return filtered
}

func TestDeriveRelationships_Contains(t *testing.T) {
	parent := makeArtifact("docs/index.md", core.CategoryOther, "index")
	child := makeArtifact("docs/guides/setup.md", core.CategoryInstruction, "setup")
	sibling := makeArtifact("docs/overview.md", core.CategoryOther, "overview")
	grandchild := makeArtifact("docs/guides/advanced/tuning.md", core.CategoryInstruction, "tuning")
	corpus := []*core.Artifact{parent, child, sibling, grandchild}

	edges := edgesOfKind(DeriveRelationships(parent, corpus), core.RelationContains)
	require.Len(t, edges, 1)
	assert.Equal(t, child.Id, edges[0].To)

	// The child contains the grandchild, one level down only.
	edges = edgesOfKind(DeriveRelationships(child, corpus), core.RelationContains)
	require.Len(t, edges, 1)
	assert.Equal(t, grandchild.Id, edges[0].To)

	// Siblings in the same directory are not containment-related.
	edges = edgesOfKind(DeriveRelationships(sibling, corpus), core.RelationContains)
	assert.Len(t, edges, 1) // only docs/guides/setup.md, same as parent
}

func TestDeriveRelationships_References(t *testing.T) {
	target := makeArtifact("docs/error-handling.md", core.CategoryOther, "retry with backoff")
	byPath := makeArtifact("docs/a.md", core.CategoryOther, "see docs/error-handling.md for details")
	byName := makeArtifact("docs/b.md", core.CategoryOther, "covered in error-handling.md")
	byStem := makeArtifact("docs/c.md", core.CategoryOther, "the error-handling chapter")
	unrelated := makeArtifact("docs/d.md", core.CategoryOther, "nothing relevant here")
	corpus := []*core.Artifact{target, byPath, byName, byStem, unrelated}

	for _, source := range []*core.Artifact{byPath, byName, byStem} {
		edges := edgesOfKind(DeriveRelationships(source, corpus), core.RelationReferences)
		require.Len(t, edges, 1, "source %s", source.Path)
		assert.Equal(t, target.Id, edges[0].To)
	}

	edges := edgesOfKind(DeriveRelationships(unrelated, corpus), core.RelationReferences)
	assert.Empty(t, edges)
}

func TestDeriveRelationships_SameCategoryCap(t *testing.T) {
	var corpus []*core.Artifact
	for i := 0; i < sameCategoryCap+5; i++ {
		corpus = append(corpus, makeArtifact(fmt.Sprintf("standards/s%02d.md", i), core.CategoryStandard, "x"))
	}
	other := makeArtifact("docs/misc.md", core.CategoryOther, "x")
	corpus = append(corpus, other)

	edges := edgesOfKind(DeriveRelationships(corpus[0], corpus), core.RelationSameCategory)
	assert.Len(t, edges, sameCategoryCap)
	for _, edge := range edges {
		assert.NotEqual(t, other.Id, edge.To)
		assert.NotEqual(t, corpus[0].Id, edge.To)
	}
}

func TestDeriveRelationships_Deterministic(t *testing.T) {
	corpus := []*core.Artifact{
		makeArtifact("docs/a.md", core.CategoryOther, "see docs/b.md"),
		makeArtifact("docs/b.md", core.CategoryOther, "b"),
		makeArtifact("docs/sub/c.md", core.CategoryOther, "c"),
	}

	first := DeriveRelationships(corpus[0], corpus)
	second := DeriveRelationships(corpus[0], corpus)
	assert.Equal(t, first, second)
}
