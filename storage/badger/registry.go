// Copyright 2026 The Synapse Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pjv-stack/synapse/core"
	"github.com/pjv-stack/synapse/storage"
)

// RegistryRepository implements storage.RegistryRepository for BadgerDB.
type RegistryRepository struct {
	backend *Backend
}

var _ storage.RegistryRepository = (*RegistryRepository)(nil)

// NewRegistryRepository creates a new RegistryRepository.
func NewRegistryRepository(backend *Backend) (storage.RegistryRepository, error) {
	return &RegistryRepository{backend: backend}, nil
}

// Close releases resources. RegistryRepository has no resources to release.
func (r *RegistryRepository) Close() error {
	return nil
}

// Ping delegates to the backend.
func (r *RegistryRepository) Ping(ctx context.Context) error {
	return r.backend.Ping(ctx)
}

// Get retrieves the registry entry for a path.
func (r *RegistryRepository) Get(ctx context.Context, path string) (*core.RegistryEntry, error) {
	var result *core.RegistryEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeRegistryKey(path))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			result, err = storage.UnmarshalRegistryEntry(val)
			return err
		})
	}, false)
	return result, err
}

// Put inserts or replaces the registry entry for entry.Path.
func (r *RegistryRepository) Put(ctx context.Context, entry *core.RegistryEntry) error {
	if entry.Path == "" {
		return storage.ErrInvalidQuery
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeRegistryKey(entry.Path), storage.MarshalRegistryEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Delete removes the registry entry for a path.
// Deleting a missing entry is not an error.
func (r *RegistryRepository) Delete(ctx context.Context, path string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeRegistryKey(path)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// All retrieves every registry entry.
func (r *RegistryRepository) All(ctx context.Context) ([]*core.RegistryEntry, error) {
	var results []*core.RegistryEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(registryPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entry *core.RegistryEntry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalRegistryEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			if entry != nil {
				results = append(results, entry)
			}
		}
		return nil
	}, false)
	return results, err
}

// MarkRun records the completion time of a successful ingestion run.
func (r *RegistryRepository) MarkRun(ctx context.Context, at time.Time) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(registryRunKey), storage.MarshalTime(at)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LastIngestion returns the most recent successful run time, falling back to
// the newest entry's IngestedAt.
func (r *RegistryRepository) LastIngestion(ctx context.Context) (time.Time, error) {
	var last time.Time
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(registryRunKey))
		if err == nil {
			return item.Value(func(val []byte) error {
				var err error
				last, err = storage.UnmarshalTime(val)
				return err
			})
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		return nil
	}, false)
	if err != nil {
		return time.Time{}, err
	}
	if !last.IsZero() {
		return last, nil
	}

	entries, err := r.All(ctx)
	if err != nil {
		return time.Time{}, err
	}
	for _, entry := range entries {
		if entry.IngestedAt.After(last) {
			last = entry.IngestedAt
		}
	}
	return last, nil
}
