package lexical

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedTextDeterministic(t *testing.T) {
	e := NewEmbedder()

	first, err := e.EmbedText(context.Background(), "hybrid retrieval engine")
	require.NoError(t, err)
	second, err := e.EmbedText(context.Background(), "hybrid retrieval engine")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 256)
}

func TestEmbedTextUnitNorm(t *testing.T) {
	e := NewEmbedder()

	vector, err := e.EmbedText(context.Background(), "normalize me please")
	require.NoError(t, err)

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-4)
}

func TestEmbedTextEmptyInput(t *testing.T) {
	e := NewEmbedder()

	vector, err := e.EmbedText(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, vector, 256)
	for _, v := range vector {
		assert.Zero(t, v)
	}
}

func TestEmbedTextsBatch(t *testing.T) {
	e := NewEmbedder()

	vectors, err := e.EmbedTexts(context.Background(), []string{"alpha", "beta", "alpha"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, vectors[0], vectors[2])
	assert.NotEqual(t, vectors[0], vectors[1])
}

func TestSimilarTextsOverlap(t *testing.T) {
	e := NewEmbedder()

	ctx := context.Background()
	a, err := e.EmbedText(ctx, "debugging badger transactions")
	require.NoError(t, err)
	b, err := e.EmbedText(ctx, "debugging badger iterators")
	require.NoError(t, err)
	c, err := e.EmbedText(ctx, "completely unrelated poetry")
	require.NoError(t, err)

	assert.Greater(t, dot(a, b), dot(a, c))
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
