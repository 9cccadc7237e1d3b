package badger

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/dgraph-io/badger/v4"
	"github.com/pjv-stack/synapse/core"
	"github.com/pjv-stack/synapse/storage"
)

// Minimum direct-match score an artifact needs before its graph neighbors are
// pulled in as boosted candidates.
const neighborBoostThreshold = 0.5

// ArtifactRepository implements storage.ArtifactRepository for BadgerDB.
type ArtifactRepository struct {
	backend *Backend
}

var _ storage.ArtifactRepository = (*ArtifactRepository)(nil)

// NewArtifactRepository creates a new ArtifactRepository.
func NewArtifactRepository(backend *Backend) (storage.ArtifactRepository, error) {
	return &ArtifactRepository{backend: backend}, nil
}

// Close releases resources. ArtifactRepository has no resources to release.
func (r *ArtifactRepository) Close() error {
	return nil
}

// Ping delegates to the backend.
func (r *ArtifactRepository) Ping(ctx context.Context) error {
	return r.backend.Ping(ctx)
}

// UpsertArtifact inserts or fully replaces an artifact node.
func (r *ArtifactRepository) UpsertArtifact(ctx context.Context, artifact *core.Artifact) error {
	if err := core.ValidateArtifact(artifact); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeArtifactKey(artifact.Id)

		now := time.Now().UTC()
		old, err := readArtifact(tx, key)
		if err != nil {
			return err
		}
		if old != nil {
			artifact.InsertedAt = old.InsertedAt
		} else if artifact.InsertedAt.IsZero() {
			artifact.InsertedAt = now
		}
		artifact.UpdatedAt = now

		if err := tx.Set(key, storage.MarshalArtifact(artifact)); err != nil {
			return err
		}
		if err := tx.Set(makeArtifactPathKey(artifact.Path), storage.MarshalID(artifact.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetArtifact retrieves a single artifact by ID.
func (r *ArtifactRepository) GetArtifact(ctx context.Context, id core.ID) (*core.Artifact, error) {
	var result *core.Artifact
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readArtifact(tx, makeArtifactKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetArtifactByPath retrieves a single artifact by its corpus path.
func (r *ArtifactRepository) GetArtifactByPath(ctx context.Context, path string) (*core.Artifact, error) {
	var result *core.Artifact
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeArtifactPathKey(path))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var id core.ID
		err = item.Value(func(val []byte) error {
			id, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return err
		}

		result, err = readArtifact(tx, makeArtifactKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetArtifacts retrieves multiple artifacts by their IDs.
func (r *ArtifactRepository) GetArtifacts(ctx context.Context, ids ...core.ID) ([]*core.Artifact, error) {
	var result []*core.Artifact
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			artifact, err := readArtifact(tx, makeArtifactKey(id))
			if err != nil {
				return err
			}
			if artifact != nil {
				result = append(result, artifact)
			}
		}
		return nil
	}, false)
	return result, err
}

// AllArtifacts retrieves every artifact node.
func (r *ArtifactRepository) AllArtifacts(ctx context.Context) ([]*core.Artifact, error) {
	var results []*core.Artifact
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = readAllArtifacts(tx)
		return err
	}, false)
	return results, err
}

// DeleteArtifact removes an artifact and all incident relationships.
func (r *ArtifactRepository) DeleteArtifact(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeArtifactKey(id)
		artifact, err := readArtifact(tx, key)
		if err != nil {
			return err
		}
		if artifact == nil {
			return storage.ErrNotFound
		}

		// Cascade: outgoing edges and their reverse-index mirrors
		outgoing, err := readRelations(tx, relationOutPrefix, id)
		if err != nil {
			return err
		}
		for _, rel := range outgoing {
			if err := tx.Delete(makeRelationKey(relationOutPrefix, rel.From, rel.To, rel.Kind)); err != nil {
				return err
			}
			if err := tx.Delete(makeRelationKey(relationInPrefix, rel.To, rel.From, rel.Kind)); err != nil {
				return err
			}
		}

		// Cascade: incoming edges and their forward mirrors
		incoming, err := readRelations(tx, relationInPrefix, id)
		if err != nil {
			return err
		}
		for _, rel := range incoming {
			if err := tx.Delete(makeRelationKey(relationInPrefix, rel.To, rel.From, rel.Kind)); err != nil {
				return err
			}
			if err := tx.Delete(makeRelationKey(relationOutPrefix, rel.From, rel.To, rel.Kind)); err != nil {
				return err
			}
		}

		if err := tx.Delete(makeArtifactPathKey(artifact.Path)); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ReplaceRelationships atomically replaces all outgoing edges of an artifact.
func (r *ArtifactRepository) ReplaceRelationships(ctx context.Context, from core.ID, edges []core.Relationship) error {
	for i := range edges {
		if err := core.ValidateRelationship(&edges[i]); err != nil {
			return err
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		existing, err := readRelations(tx, relationOutPrefix, from)
		if err != nil {
			return err
		}
		for _, rel := range existing {
			if err := tx.Delete(makeRelationKey(relationOutPrefix, rel.From, rel.To, rel.Kind)); err != nil {
				return err
			}
			if err := tx.Delete(makeRelationKey(relationInPrefix, rel.To, rel.From, rel.Kind)); err != nil {
				return err
			}
		}

		for _, rel := range edges {
			if rel.From != from {
				return storage.ErrInvalidQuery
			}
			value := storage.MarshalRelationship(&rel)
			if err := tx.Set(makeRelationKey(relationOutPrefix, rel.From, rel.To, rel.Kind), value); err != nil {
				return err
			}
			if err := tx.Set(makeRelationKey(relationInPrefix, rel.To, rel.From, rel.Kind), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// RelationshipsFrom returns all outgoing edges of an artifact.
func (r *ArtifactRepository) RelationshipsFrom(ctx context.Context, id core.ID) ([]core.Relationship, error) {
	var result []core.Relationship
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readRelations(tx, relationOutPrefix, id)
		return err
	}, false)
	return result, err
}

// RelationshipsTo returns all incoming edges of an artifact.
func (r *ArtifactRepository) RelationshipsTo(ctx context.Context, id core.ID) ([]core.Relationship, error) {
	var result []core.Relationship
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readRelations(tx, relationInPrefix, id)
		return err
	}, false)
	return result, err
}

// Neighbors returns artifacts connected to id by any edge, in either direction.
func (r *ArtifactRepository) Neighbors(ctx context.Context, id core.ID) ([]core.ID, error) {
	seen := make(map[core.ID]bool)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		outgoing, err := readRelations(tx, relationOutPrefix, id)
		if err != nil {
			return err
		}
		for _, rel := range outgoing {
			seen[rel.To] = true
		}

		incoming, err := readRelations(tx, relationInPrefix, id)
		if err != nil {
			return err
		}
		for _, rel := range incoming {
			seen[rel.From] = true
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	ids := make([]core.ID, 0, len(seen))
	for neighbor := range seen {
		ids = append(ids, neighbor)
	}
	slices.Sort(ids)
	return ids, nil
}

// Traverse matches query terms against artifact path, category and content
// tokens, then boosts the direct neighbors of strong textual matches.
func (r *ArtifactRepository) Traverse(ctx context.Context, terms []string, limit int) ([]core.GraphHit, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	lowered := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			lowered = append(lowered, term)
		}
	}
	if len(lowered) == 0 {
		return nil, nil
	}

	scores := make(map[core.ID]float32)
	distances := make(map[core.ID]int)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		artifacts, err := readAllArtifacts(tx)
		if err != nil {
			return err
		}

		for _, artifact := range artifacts {
			score := matchScore(artifact, lowered)
			if score <= 0 {
				continue
			}
			scores[artifact.Id] = score
			distances[artifact.Id] = 0
		}

		// Artifacts directly connected to a strong textual match become
		// boosted candidates at edge distance 1.
		boosted := make(map[core.ID]float32)
		for id, score := range scores {
			if score < neighborBoostThreshold {
				continue
			}
			neighbors, err := readNeighborIDs(tx, id)
			if err != nil {
				return err
			}
			for _, neighbor := range neighbors {
				if _, direct := scores[neighbor]; direct {
					continue
				}
				if score*0.5 > boosted[neighbor] {
					boosted[neighbor] = score * 0.5
				}
			}
		}
		for id, score := range boosted {
			scores[id] = score
			distances[id] = 1
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	hits := make([]core.GraphHit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, core.GraphHit{ArtifactId: id, Score: score, Distance: distances[id]})
	}

	slices.SortFunc(hits, func(a, b core.GraphHit) int {
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

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// matchScore computes the fraction of query terms matched by the artifact,
// weighting path hits above content hits.
func matchScore(artifact *core.Artifact, terms []string) float32 {
	pathTokens := tokenSet(artifact.Path)
	contentTokens := tokenSet(artifact.Content)
	category := artifact.Category.String()
	loweredPath := strings.ToLower(artifact.Path)
	loweredContent := strings.ToLower(artifact.Content)

	var total float32
	for _, term := range terms {
		var weight float32
		switch {
		case pathTokens[term] || strings.Contains(loweredPath, term):
			weight = 1.0
		case term == category:
			weight = 0.8
		case contentTokens[term] || strings.Contains(loweredContent, term):
			weight = 0.6
		}
		total += weight
	}
	return total / float32(len(terms))
}

// tokenSet splits text into lowercase tokens. Words joined by intra-word
// separators ("table-driven", "snake_case") are emitted both split and joined
// so compound query terms still match.
func tokenSet(text string) map[string]bool {
	tokens := make(map[string]bool)
	var token, joined strings.Builder

	flush := func() {
		if token.Len() > 1 {
			tokens[token.String()] = true
		}
		token.Reset()
	}
	flushJoined := func() {
		if joined.Len() > 1 {
			tokens[joined.String()] = true
		}
		joined.Reset()
	}

	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			r = unicode.ToLower(r)
			token.WriteRune(r)
			joined.WriteRune(r)
		case r == '-' || r == '_':
			flush()
		default:
			flush()
			flushJoined()
		}
	}
	flush()
	flushJoined()
	return tokens
}

// Helper functions

// readArtifact reads an artifact from the transaction.
// Returns nil, nil if the key doesn't exist.
func readArtifact(tx *badger.Txn, key []byte) (*core.Artifact, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var artifact *core.Artifact
	err = item.Value(func(val []byte) error {
		var err error
		artifact, err = storage.UnmarshalArtifact(val)
		return err
	})
	return artifact, err
}

// readAllArtifacts scans every artifact node in the transaction.
func readAllArtifacts(tx *badger.Txn) ([]*core.Artifact, error) {
	var results []*core.Artifact

	opts := badger.DefaultIteratorOptions
	prefix := []byte(artifactPrefix + ":")
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		if !bytes.HasPrefix(item.Key(), prefix) {
			continue
		}

		var artifact *core.Artifact
		err := item.Value(func(val []byte) error {
			var err error
			artifact, err = storage.UnmarshalArtifact(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		if artifact != nil {
			results = append(results, artifact)
		}
	}
	return results, nil
}

// readRelations reads all edges under the given prefix whose leading endpoint
// is id. Values hold the full relationship regardless of index direction.
func readRelations(tx *badger.Txn, prefix string, id core.ID) ([]core.Relationship, error) {
	var results []core.Relationship

	opts := badger.DefaultIteratorOptions
	keyPrefix := makePartialRelationKey(prefix, id)
	opts.Prefix = keyPrefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var rel *core.Relationship
		err := iter.Item().Value(func(val []byte) error {
			var err error
			rel, err = storage.UnmarshalRelationship(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		if rel != nil {
			results = append(results, *rel)
		}
	}
	return results, nil
}

// readNeighborIDs returns the deduplicated neighbor set of id within a transaction.
func readNeighborIDs(tx *badger.Txn, id core.ID) ([]core.ID, error) {
	seen := make(map[core.ID]bool)

	outgoing, err := readRelations(tx, relationOutPrefix, id)
	if err != nil {
		return nil, err
	}
	for _, rel := range outgoing {
		seen[rel.To] = true
	}

	incoming, err := readRelations(tx, relationInPrefix, id)
	if err != nil {
		return nil, err
	}
	for _, rel := range incoming {
		seen[rel.From] = true
	}

	ids := make([]core.ID, 0, len(seen))
	for neighbor := range seen {
		ids = append(ids, neighbor)
	}
	slices.Sort(ids)
	return ids, nil
}
