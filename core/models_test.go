package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDFromPath(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		id1 := IDFromPath("docs/error-handling.md")
		id2 := IDFromPath("docs/error-handling.md")
		assert.Equal(t, id1, id2)
	})

	t.Run("distinct paths produce distinct ids", func(t *testing.T) {
		id1 := IDFromPath("docs/error-handling.md")
		id2 := IDFromPath("docs/testing.md")
		assert.NotEqual(t, id1, id2)
	})

	t.Run("non-zero for non-empty path", func(t *testing.T) {
		assert.NotZero(t, IDFromPath("a"))
	})
}

func TestHashContent(t *testing.T) {
	t.Run("same content same hash", func(t *testing.T) {
		assert.Equal(t, HashContent([]byte("retry with backoff")), HashContent([]byte("retry with backoff")))
	})

	t.Run("different content different hash", func(t *testing.T) {
		assert.NotEqual(t, HashContent([]byte("a")), HashContent([]byte("b")))
	})

	t.Run("hex encoded 256 bits", func(t *testing.T) {
		assert.Len(t, HashContent([]byte("x")), 64)
	})
}

func TestCategoryString(t *testing.T) {
	tests := []struct {
		category Category
		want     string
	}{
		{CategoryInstruction, "instruction"},
		{CategoryStandard, "standard"},
		{CategoryTemplate, "template"},
		{CategoryOther, "other"},
		{Category(99), "other"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.category.String())
	}
}

func TestRelationKindString(t *testing.T) {
	assert.Equal(t, "CONTAINS", RelationContains.String())
	assert.Equal(t, "REFERENCES", RelationReferences.String())
	assert.Equal(t, "SAME_CATEGORY", RelationSameCategory.String())
	assert.Equal(t, "UNKNOWN", RelationKind(0).String())
}
