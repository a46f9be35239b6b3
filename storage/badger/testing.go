// Copyright 2025 Poiesic Systems
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

// Repositories bundles the Badger-backed repositories that share one Backend.
type Repositories struct {
	Sources     *SourceRepository
	Chunks      *ChunkRepository
	Checkpoints *CheckpointRepository
	Backend     *Backend
}

// NewRepositories creates all repositories on top of an open backend.
// The backend stays owned by the caller unless Close is used.
func NewRepositories(backend *Backend) (*Repositories, error) {
	sources, err := NewSourceRepository(backend)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Sources:     sources,
		Chunks:      NewChunkRepository(backend),
		Checkpoints: NewCheckpointRepository(backend),
		Backend:     backend,
	}, nil
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must call Close when done.
func NewMemoryRepositories(backendOpts ...BackendOption) (*Repositories, error) {
	backend, err := OpenBackend("", true, backendOpts...)
	if err != nil {
		return nil, err
	}

	repos, err := NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return repos, nil
}

// Close releases the repositories and then the backend.
func (r *Repositories) Close() error {
	var firstErr error
	for _, closer := range []func() error{r.Sources.Close, r.Chunks.Close} {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := r.Backend.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
