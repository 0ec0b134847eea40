package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/bitfsorg/chunkfile-go/chunkfile"
)

// Backend persists registry state. Every call describes one change that the
// registry has already validated against the in-memory file.
type Backend interface {
	// CreateFile records a new, empty draft file.
	CreateFile(id FileID, h chunkfile.Header) error

	// PutChunk stores data at index, replacing any previous content.
	PutChunk(id FileID, index int, data []byte) error

	// MarkFinalized records the Draft → Finalized transition.
	MarkFinalized(id FileID) error

	// DeleteFile removes the file and all of its chunks.
	DeleteFile(id FileID) error

	// LoadAll returns every persisted file.
	LoadAll() (map[FileID]chunkfile.Record, error)

	// Close releases backend resources.
	Close() error
}

// MemBackend is an in-memory Backend. It keeps records across registries
// that share it, which makes it useful for tests of reload behaviour.
type MemBackend struct {
	mu    sync.RWMutex
	files map[FileID]*chunkfile.Record
}

// Compile-time interface check.
var _ Backend = (*MemBackend)(nil)

// NewMemBackend creates an empty in-memory backend.
func NewMemBackend() *MemBackend {
	return &MemBackend{files: make(map[FileID]*chunkfile.Record)}
}

// CreateFile records a new, empty draft file.
func (b *MemBackend) CreateFile(id FileID, h chunkfile.Header) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.files[id]; ok {
		return fmt.Errorf("%w: %s", ErrFileExists, id)
	}
	b.files[id] = &chunkfile.Record{Header: h}
	return nil
}

// PutChunk stores a copy of data at index.
func (b *MemBackend) PutChunk(id FileID, index int, data []byte) error {
	if err := chunkfile.CheckIndex(index); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.files[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	if index >= len(rec.Chunks) {
		rec.Chunks = slices.Grow(rec.Chunks, index+1-len(rec.Chunks))
		rec.Chunks = rec.Chunks[:index+1]
	}
	rec.Chunks[index] = append([]byte{}, data...)
	return nil
}

// MarkFinalized records the Draft → Finalized transition.
func (b *MemBackend) MarkFinalized(id FileID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.files[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	rec.Finalized = true
	return nil
}

// DeleteFile removes the file.
func (b *MemBackend) DeleteFile(id FileID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.files[id]; !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	delete(b.files, id)
	return nil
}

// LoadAll returns copies of every stored record.
func (b *MemBackend) LoadAll() (map[FileID]chunkfile.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[FileID]chunkfile.Record, len(b.files))
	for id, rec := range b.files {
		chunks := make([][]byte, len(rec.Chunks))
		for i, c := range rec.Chunks {
			if c != nil {
				chunks[i] = append([]byte{}, c...)
			}
		}
		out[id] = chunkfile.Record{Header: rec.Header, Chunks: chunks, Finalized: rec.Finalized}
	}
	return out, nil
}

// Close is a no-op.
func (b *MemBackend) Close() error { return nil }
