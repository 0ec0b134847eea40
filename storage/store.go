package storage

import "github.com/bsv-blockchain/go-sdk/chainhash"

// Store holds the assembled content of finalized files, addressed by the
// double SHA-256 digest of that content.
type Store interface {
	// Put stores content under digest. Empty content is allowed.
	Put(digest chainhash.Hash, content []byte) error

	// Get retrieves content by digest.
	Get(digest chainhash.Hash) ([]byte, error)

	// Has checks if content exists for digest.
	Has(digest chainhash.Hash) (bool, error)

	// Delete removes content by digest.
	Delete(digest chainhash.Hash) error

	// Size returns the size in bytes of stored content.
	Size(digest chainhash.Hash) (int64, error)

	// List returns all stored digests.
	List() ([]chainhash.Hash, error)
}
