package ingestion

import "errors"

var (
	// ErrArtifactRepositoryRequired is returned when an artifact repository is not provided.
	ErrArtifactRepositoryRequired = errors.New("artifact repository required")

	// ErrEmbeddingRepositoryRequired is returned when an embedding repository is not provided.
	ErrEmbeddingRepositoryRequired = errors.New("embedding repository required")

	// ErrRegistryRepositoryRequired is returned when a registry repository is not provided.
	ErrRegistryRepositoryRequired = errors.New("registry repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrCorpusRootRequired is returned when the corpus root directory is empty.
	ErrCorpusRootRequired = errors.New("corpus root required")

	// ErrRunInProgress is returned when a second ingestion run is started
	// while one is already mutating the stores.
	ErrRunInProgress = errors.New("ingestion run already in progress")
)
