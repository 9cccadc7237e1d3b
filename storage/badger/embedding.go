package badger

import (
	"context"
	"math"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/pjv-stack/synapse/core"
	"github.com/pjv-stack/synapse/storage"
)

// EmbeddingRepository implements storage.EmbeddingRepository for BadgerDB.
type EmbeddingRepository struct {
	backend *Backend
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// NewEmbeddingRepository creates a new EmbeddingRepository.
func NewEmbeddingRepository(backend *Backend) (storage.EmbeddingRepository, error) {
	return &EmbeddingRepository{backend: backend}, nil
}

// Close releases resources. EmbeddingRepository has no resources to release.
func (r *EmbeddingRepository) Close() error {
	return nil
}

// Ping delegates to the backend.
func (r *EmbeddingRepository) Ping(ctx context.Context) error {
	return r.backend.Ping(ctx)
}

// Store inserts or fully replaces the embedding record for an artifact.
func (r *EmbeddingRepository) Store(ctx context.Context, record *core.EmbeddingRecord) error {
	if err := core.ValidateEmbeddingRecord(record); err != nil {
		return err
	}
	if record.Norm == 0 {
		record.Norm = vectorNorm(record.Vector)
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeEmbeddingKey(record.ArtifactId)
		if err := tx.Set(key, storage.MarshalEmbeddingRecord(record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Get retrieves the embedding record for an artifact.
func (r *EmbeddingRepository) Get(ctx context.Context, id core.ID) (*core.EmbeddingRecord, error) {
	var result *core.EmbeddingRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEmbeddingKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			result, err = storage.UnmarshalEmbeddingRecord(val)
			return err
		})
	}, false)
	return result, err
}

// Delete removes the embedding record for an artifact.
// Deleting a missing record is not an error.
func (r *EmbeddingRepository) Delete(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeEmbeddingKey(id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// FindSimilar returns artifacts by cosine similarity with the query vector.
func (r *EmbeddingRepository) FindSimilar(ctx context.Context, vector []float32, minScore float32, limit int) ([]core.SimilarityMatch, error) {
	queryNorm := vectorNorm(vector)
	if queryNorm == 0 {
		return nil, nil
	}

	var results []core.SimilarityMatch
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		records, err := readAllEmbeddings(tx)
		if err != nil {
			return err
		}

		for _, record := range records {
			if record.Norm == 0 || len(record.Vector) == 0 {
				continue
			}

			// score = dot(q, v) / (|q| * |v|); stored vectors carry a
			// precomputed norm so only the dot product is per-query work.
			score := dotProduct(vector, record.Vector) / (queryNorm * record.Norm)
			if score >= minScore {
				results = append(results, core.SimilarityMatch{
					ArtifactId: record.ArtifactId,
					Score:      score,
				})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b core.SimilarityMatch) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		if a.ArtifactId < b.ArtifactId {
			return -1
		}
		if a.ArtifactId > b.ArtifactId {
			return 1
		}
		return 0
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// AllRecords retrieves every stored embedding record.
func (r *EmbeddingRepository) AllRecords(ctx context.Context) ([]*core.EmbeddingRecord, error) {
	var results []*core.EmbeddingRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = readAllEmbeddings(tx)
		return err
	}, false)
	return results, err
}

// CountByModelTag reports how many records each embedding model produced.
func (r *EmbeddingRepository) CountByModelTag(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		records, err := readAllEmbeddings(tx)
		if err != nil {
			return err
		}
		for _, record := range records {
			counts[record.ModelTag]++
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// readAllEmbeddings scans every embedding record in the transaction.
func readAllEmbeddings(tx *badger.Txn) ([]*core.EmbeddingRecord, error) {
	var results []*core.EmbeddingRecord

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(embeddingPrefix + ":")
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var record *core.EmbeddingRecord
		err := iter.Item().Value(func(val []byte) error {
			var err error
			record, err = storage.UnmarshalEmbeddingRecord(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		if record != nil {
			results = append(results, record)
		}
	}
	return results, nil
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// vectorNorm calculates the magnitude of a vector.
func vectorNorm(v []float32) float32 {
	var sum float32
	for _, f := range v {
		sum += f * f
	}
	return float32(math.Sqrt(float64(sum)))
}
