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


package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/pjv-stack/synapse/core"
)

// Records are serialized with the MUS format: fields in declaration order,
// varint-encoded integers, length-prefixed strings and vectors, timestamps
// as Unix microseconds. The zero time is stored as a marker value so it
// round-trips exactly.

const zeroTimeMarker = int64(math.MinInt64)

func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return zeroTimeMarker
	}
	return t.UnixMicro()
}

func microToTime(us int64) time.Time {
	if us == zeroTimeMarker {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}

func sizeVector(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

func marshalVector(v []float32, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) ([]float32, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, fmt.Errorf("%w: negative vector length %d", ErrSerializationFailed, length)
	}
	if length == 0 {
		return nil, n, nil
	}
	v := make([]float32, length)
	for i := range v {
		var n1 int
		v[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	bs := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), bs)
	return bs
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: id: %w", ErrSerializationFailed, err)
	}
	return core.ID(v), nil
}

// MarshalTime serializes a timestamp to bytes.
func MarshalTime(t time.Time) []byte {
	us := timeToMicro(t)
	bs := make([]byte, varint.Int64.Size(us))
	varint.Int64.Marshal(us, bs)
	return bs
}

// UnmarshalTime deserializes a timestamp from bytes.
func UnmarshalTime(data []byte) (time.Time, error) {
	us, _, err := varint.Int64.Unmarshal(data)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time: %w", ErrSerializationFailed, err)
	}
	return microToTime(us), nil
}

// MarshalArtifact serializes an Artifact to bytes.
func MarshalArtifact(artifact *core.Artifact) []byte {
	size := varint.Uint64.Size(uint64(artifact.Id)) +
		ord.String.Size(artifact.Path) +
		varint.Int.Size(int(artifact.Category)) +
		ord.String.Size(artifact.Content) +
		ord.String.Size(artifact.ContentHash) +
		varint.Int64.Size(timeToMicro(artifact.LastModified)) +
		ord.String.Size(artifact.ModelTag) +
		varint.Int64.Size(timeToMicro(artifact.InsertedAt)) +
		varint.Int64.Size(timeToMicro(artifact.UpdatedAt))

	bs := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(artifact.Id), bs)
	n += ord.String.Marshal(artifact.Path, bs[n:])
	n += varint.Int.Marshal(int(artifact.Category), bs[n:])
	n += ord.String.Marshal(artifact.Content, bs[n:])
	n += ord.String.Marshal(artifact.ContentHash, bs[n:])
	n += varint.Int64.Marshal(timeToMicro(artifact.LastModified), bs[n:])
	n += ord.String.Marshal(artifact.ModelTag, bs[n:])
	n += varint.Int64.Marshal(timeToMicro(artifact.InsertedAt), bs[n:])
	varint.Int64.Marshal(timeToMicro(artifact.UpdatedAt), bs[n:])
	return bs
}

// UnmarshalArtifact deserializes an Artifact from bytes.
func UnmarshalArtifact(data []byte) (*core.Artifact, error) {
	artifact := &core.Artifact{}
	id, n, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: artifact id: %w", ErrSerializationFailed, err)
	}
	artifact.Id = core.ID(id)

	var n1 int
	artifact.Path, n1, err = ord.String.Unmarshal(data[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: artifact path: %w", ErrSerializationFailed, err)
	}

	category, n1, err := varint.Int.Unmarshal(data[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: artifact category: %w", ErrSerializationFailed, err)
	}
	artifact.Category = core.Category(category)

	artifact.Content, n1, err = ord.String.Unmarshal(data[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: artifact content: %w", ErrSerializationFailed, err)
	}

	artifact.ContentHash, n1, err = ord.String.Unmarshal(data[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: artifact content hash: %w", ErrSerializationFailed, err)
	}

	lastModified, n1, err := varint.Int64.Unmarshal(data[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: artifact last modified: %w", ErrSerializationFailed, err)
	}
	artifact.LastModified = microToTime(lastModified)

	artifact.ModelTag, n1, err = ord.String.Unmarshal(data[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: artifact model tag: %w", ErrSerializationFailed, err)
	}

	insertedAt, n1, err := varint.Int64.Unmarshal(data[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: artifact inserted at: %w", ErrSerializationFailed, err)
	}
	artifact.InsertedAt = microToTime(insertedAt)

	updatedAt, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: artifact updated at: %w", ErrSerializationFailed, err)
	}
	artifact.UpdatedAt = microToTime(updatedAt)

	return artifact, nil
}

// MarshalRelationship serializes a Relationship to bytes.
func MarshalRelationship(rel *core.Relationship) []byte {
	size := varint.Uint64.Size(uint64(rel.From)) +
		varint.Uint64.Size(uint64(rel.To)) +
		varint.Int.Size(int(rel.Kind))

	bs := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(rel.From), bs)
	n += varint.Uint64.Marshal(uint64(rel.To), bs[n:])
	varint.Int.Marshal(int(rel.Kind), bs[n:])
	return bs
}

// UnmarshalRelationship deserializes a Relationship from bytes.
func UnmarshalRelationship(data []byte) (*core.Relationship, error) {
	from, n, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: relationship from: %w", ErrSerializationFailed, err)
	}

	to, n1, err := varint.Uint64.Unmarshal(data[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: relationship to: %w", ErrSerializationFailed, err)
	}

	kind, _, err := varint.Int.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: relationship kind: %w", ErrSerializationFailed, err)
	}

	return &core.Relationship{
		From: core.ID(from),
		To:   core.ID(to),
		Kind: core.RelationKind(kind),
	}, nil
}

// MarshalEmbeddingRecord serializes an EmbeddingRecord to bytes.
func MarshalEmbeddingRecord(record *core.EmbeddingRecord) []byte {
	size := varint.Uint64.Size(uint64(record.ArtifactId)) +
		sizeVector(record.Vector) +
		raw.Float32.Size(record.Norm) +
		ord.String.Size(record.ModelTag) +
		varint.Int.Size(record.Dimension)

	bs := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(record.ArtifactId), bs)
	n += marshalVector(record.Vector, bs[n:])
	n += raw.Float32.Marshal(record.Norm, bs[n:])
	n += ord.String.Marshal(record.ModelTag, bs[n:])
	varint.Int.Marshal(record.Dimension, bs[n:])
	return bs
}

// UnmarshalEmbeddingRecord deserializes an EmbeddingRecord from bytes.
func UnmarshalEmbeddingRecord(data []byte) (*core.EmbeddingRecord, error) {
	record := &core.EmbeddingRecord{}
	id, n, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding artifact id: %w", ErrSerializationFailed, err)
	}
	record.ArtifactId = core.ID(id)

	var n1 int
	record.Vector, n1, err = unmarshalVector(data[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: embedding vector: %w", ErrSerializationFailed, err)
	}

	record.Norm, n1, err = raw.Float32.Unmarshal(data[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: embedding norm: %w", ErrSerializationFailed, err)
	}

	record.ModelTag, n1, err = ord.String.Unmarshal(data[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: embedding model tag: %w", ErrSerializationFailed, err)
	}

	record.Dimension, _, err = varint.Int.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: embedding dimension: %w", ErrSerializationFailed, err)
	}

	return record, nil
}

// MarshalRegistryEntry serializes a RegistryEntry to bytes.
func MarshalRegistryEntry(entry *core.RegistryEntry) []byte {
	size := ord.String.Size(entry.Path) +
		ord.String.Size(entry.ContentHash) +
		varint.Int64.Size(timeToMicro(entry.LastModified)) +
		varint.Int64.Size(timeToMicro(entry.IngestedAt))

	bs := make([]byte, size)
	n := ord.String.Marshal(entry.Path, bs)
	n += ord.String.Marshal(entry.ContentHash, bs[n:])
	n += varint.Int64.Marshal(timeToMicro(entry.LastModified), bs[n:])
	varint.Int64.Marshal(timeToMicro(entry.IngestedAt), bs[n:])
	return bs
}

// UnmarshalRegistryEntry deserializes a RegistryEntry from bytes.
func UnmarshalRegistryEntry(data []byte) (*core.RegistryEntry, error) {
	entry := &core.RegistryEntry{}
	var n, n1 int
	var err error

	entry.Path, n, err = ord.String.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: registry path: %w", ErrSerializationFailed, err)
	}

	entry.ContentHash, n1, err = ord.String.Unmarshal(data[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: registry content hash: %w", ErrSerializationFailed, err)
	}

	lastModified, n1, err := varint.Int64.Unmarshal(data[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: registry last modified: %w", ErrSerializationFailed, err)
	}
	entry.LastModified = microToTime(lastModified)

	ingestedAt, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: registry ingested at: %w", ErrSerializationFailed, err)
	}
	entry.IngestedAt = microToTime(ingestedAt)

	return entry, nil
}
