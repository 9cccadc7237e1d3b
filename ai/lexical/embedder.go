package lexical

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const dimension = 256

// Embedder is a deterministic, dependency-free vectorizer. It hashes tokens
// into a fixed-width feature vector and L2-normalizes the result, so the same
// text always produces the same unit vector. It serves as the degraded-mode
// stand-in when the embedding service is unreachable.
type Embedder struct{}

// NewEmbedder creates a lexical embedder.
func NewEmbedder() *Embedder {
	return &Embedder{}
}

// ModelTag identifies vectors produced by this embedder.
func (e *Embedder) ModelTag() string {
	return "lexical-256"
}

// EmbedText generates a deterministic feature-hash vector for text.
func (e *Embedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	return vectorize(text), nil
}

// EmbedTexts generates deterministic feature-hash vectors for each text.
func (e *Embedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = vectorize(text)
	}
	return vectors, nil
}

func vectorize(text string) []float32 {
	vector := make([]float32, dimension)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, token := range tokens {
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()
		// Low bits pick the bucket, a high bit picks the sign.
		bucket := sum % dimension
		if sum&0x80000000 != 0 {
			vector[bucket] -= 1
		} else {
			vector[bucket] += 1
		}
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1.0 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}

	return vector
}
