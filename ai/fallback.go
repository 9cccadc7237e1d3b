package ai

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// FallbackEmbedder wraps a primary embedder with a deterministic local
// fallback. If the primary fails, the wrapper switches to the fallback for
// the remainder of the process so the system degrades rather than fails.
// The switch is sticky: vectors embedded before and after it carry their
// producer's model tag, so a later reembed run can reconcile the corpus.
type FallbackEmbedder struct {
	primary  Embedder
	fallback Embedder
	degraded atomic.Bool
	logger   *slog.Logger
}

var _ Embedder = (*FallbackEmbedder)(nil)

// NewFallbackEmbedder creates an embedder that degrades from primary to
// fallback on the first primary failure.
func NewFallbackEmbedder(primary, fallback Embedder, logger *slog.Logger) *FallbackEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackEmbedder{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With("component", "fallback-embedder"),
	}
}

// Degraded reports whether the wrapper has switched to the fallback.
func (f *FallbackEmbedder) Degraded() bool {
	return f.degraded.Load()
}

// ModelTag returns the tag of whichever embedder is currently active.
func (f *FallbackEmbedder) ModelTag() string {
	if f.degraded.Load() {
		return f.fallback.ModelTag()
	}
	return f.primary.ModelTag()
}

// EmbedText generates an embedding, degrading to the fallback on failure.
func (f *FallbackEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if !f.degraded.Load() {
		vector, err := f.primary.EmbedText(ctx, text)
		if err == nil {
			return vector, nil
		}
		f.markDegraded(err)
	}
	return f.fallback.EmbedText(ctx, text)
}

// EmbedTexts generates embeddings, degrading to the fallback on failure.
func (f *FallbackEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if !f.degraded.Load() {
		vectors, err := f.primary.EmbedTexts(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		f.markDegraded(err)
	}
	return f.fallback.EmbedTexts(ctx, texts)
}

func (f *FallbackEmbedder) markDegraded(err error) {
	if f.degraded.CompareAndSwap(false, true) {
		f.logger.Warn("embedding service unavailable, degrading to lexical vectorization",
			"primary", f.primary.ModelTag(), "fallback", f.fallback.ModelTag(), "err", err)
	}
}
