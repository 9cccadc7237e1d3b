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

import "github.com/pjv-stack/synapse/storage"

// NewMemoryStores creates in-memory artifact, embedding and registry
// repositories for testing. Caller must close all repos and the backend when
// done.
func NewMemoryStores() (storage.ArtifactRepository, storage.EmbeddingRepository, storage.RegistryRepository, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	artifactRepo, err := NewArtifactRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, nil, err
	}

	embeddingRepo, err := NewEmbeddingRepository(backend)
	if err != nil {
		artifactRepo.Close()
		backend.Close()
		return nil, nil, nil, nil, err
	}

	registryRepo, err := NewRegistryRepository(backend)
	if err != nil {
		embeddingRepo.Close()
		artifactRepo.Close()
		backend.Close()
		return nil, nil, nil, nil, err
	}

	return artifactRepo, embeddingRepo, registryRepo, backend, nil
}
