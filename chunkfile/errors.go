package chunkfile

import "errors"

var (
	// ErrInvalidIndex indicates a negative chunk index.
	ErrInvalidIndex = errors.New("chunkfile: chunk index must not be negative")

	// ErrOutOfRange indicates a chunk index at or beyond the chunk count, or
	// above MaxChunkIndex on insert.
	ErrOutOfRange = errors.New("chunkfile: chunk index out of range")

	// ErrFinalized indicates a write to a file that has already been finalized.
	ErrFinalized = errors.New("chunkfile: file is finalized")
)
