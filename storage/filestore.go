package storage

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bsv-blockchain/go-sdk/chainhash"
)

// FileStore implements Store using the local filesystem.
// Files are stored at: {baseDir}/{hex(digest[:1])}/{hex(digest)}
// The first byte (2 hex chars) is used as a subdirectory for sharding.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// NewFileStore creates a new file-based content store.
// The directory is created if it does not exist.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, ErrInvalidBaseDir
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// DigestToPath converts a digest to its filesystem path under baseDir.
func DigestToPath(baseDir string, digest chainhash.Hash) string {
	hexHash := hex.EncodeToString(digest[:])
	return filepath.Join(baseDir, hexHash[:2], hexHash)
}

// Put writes content under digest. The write goes through a temporary file
// and a rename so readers never see partial content.
func (fs *FileStore) Put(digest chainhash.Hash, content []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := DigestToPath(fs.baseDir, digest)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}

// Get retrieves content by digest.
func (fs *FileStore) Get(digest chainhash.Hash) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(DigestToPath(fs.baseDir, digest))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return data, nil
}

// Has checks if content exists for digest.
func (fs *FileStore) Has(digest chainhash.Hash) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, err := os.Stat(DigestToPath(fs.baseDir, digest))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return true, nil
}

// Delete removes content by digest.
func (fs *FileStore) Delete(digest chainhash.Hash) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(DigestToPath(fs.baseDir, digest)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}

// Size returns the size in bytes of stored content.
func (fs *FileStore) Size(digest chainhash.Hash) (int64, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	info, err := os.Stat(DigestToPath(fs.baseDir, digest))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return info.Size(), nil
}

// List returns all stored digests by scanning the shard directories.
// Entries that are not valid digests are skipped.
func (fs *FileStore) List() ([]chainhash.Hash, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	result := make([]chainhash.Hash, 0)
	for _, entry := range entries {
		if !entry.IsDir() || len(entry.Name()) != 2 {
			continue
		}

		files, err := os.ReadDir(filepath.Join(fs.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			raw, err := hex.DecodeString(f.Name())
			if err != nil {
				continue // skip non-hex filenames, including *.tmp leftovers
			}
			digest, err := chainhash.NewHash(raw)
			if err != nil {
				continue // wrong length
			}
			result = append(result, *digest)
		}
	}
	return result, nil
}
