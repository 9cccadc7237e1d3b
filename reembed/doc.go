// Package reembed regenerates artifact embeddings after an embedding model
// change.
//
// Every stored embedding record carries the tag of the model that produced
// it; a corpus embedded by more than one model returns inconsistent
// similarity scores. The Reembedder finds records whose tag differs from
// the configured embedder's and replaces them in batches, with progress
// reporting, retry with exponential backoff, and vector normalization so
// similarity reduces to a dot product.
package reembed
