package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/pjv-stack/synapse/core"
)

// Key prefixes for different data types
const (
	artifactPrefix     = "artrec"
	artifactPathPrefix = "artpath"
	relationOutPrefix  = "relout"
	relationInPrefix   = "relin"
	embeddingPrefix    = "embrec"
	registryPrefix     = "regent"
	registryRunKey     = "reglastrun"
)

// makeArtifactKey generates a key for an artifact node by ID.
func makeArtifactKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", artifactPrefix, id))
}

// makeArtifactPathKey generates a key for the path index.
func makeArtifactPathKey(path string) []byte {
	return []byte(artifactPathPrefix + ":" + path)
}

// makeRelationKey generates a composite key for a relationship edge.
// Format: prefix:first:second:kind with fixed-width BigEndian IDs so
// lexicographic iteration groups edges by the leading endpoint.
func makeRelationKey(prefix string, first, second core.ID, kind core.RelationKind) []byte {
	prefixBytes := []byte(prefix + ":")
	buf := make([]byte, len(prefixBytes)+17) // 8 + 8 bytes for IDs + 1 byte kind
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(first))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(second))
	offset += 8
	buf[offset] = byte(kind)
	return buf
}

// makePartialRelationKey generates a prefix covering all edges whose leading
// endpoint is the given ID.
func makePartialRelationKey(prefix string, first core.ID) []byte {
	prefixBytes := []byte(prefix + ":")
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(first))
	return buf
}

// makeEmbeddingKey generates a key for an embedding record by artifact ID.
func makeEmbeddingKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", embeddingPrefix, id))
}

// makeRegistryKey generates a key for a change-registry entry by path.
func makeRegistryKey(path string) []byte {
	return []byte(registryPrefix + ":" + path)
}
