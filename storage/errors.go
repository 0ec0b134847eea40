package storage

import "errors"

var (
	// ErrNotFound indicates no content exists for the given digest.
	ErrNotFound = errors.New("storage: content not found")

	// ErrIOFailure indicates a file read/write error.
	ErrIOFailure = errors.New("storage: I/O failure")

	// ErrInvalidBaseDir indicates the base directory path is invalid.
	ErrInvalidBaseDir = errors.New("storage: invalid base directory")

	// ErrUnsupportedEncoding indicates a content encoding this package cannot handle.
	ErrUnsupportedEncoding = errors.New("storage: unsupported encoding")

	// ErrRecombinationHashMismatch indicates chunk recombination hash verification failed.
	ErrRecombinationHashMismatch = errors.New("storage: recombination hash mismatch")

	// ErrDecodedTooLarge indicates decoded data exceeds the safety limit.
	ErrDecodedTooLarge = errors.New("storage: decoded data exceeds maximum size")

	// ErrInvalidChunkSize indicates the chunk size is not a positive integer.
	ErrInvalidChunkSize = errors.New("storage: chunk size must be positive")
)
