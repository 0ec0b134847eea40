package registry

import "errors"

var (
	// ErrFileNotFound indicates no file is registered under the given ID.
	ErrFileNotFound = errors.New("registry: file not found")

	// ErrFileExists indicates a backend already holds a file with the given ID.
	ErrFileExists = errors.New("registry: file already exists")

	// ErrNotFinalized indicates an operation that needs the complete chunk set
	// was called on a draft file.
	ErrNotFinalized = errors.New("registry: file is not finalized")

	// ErrInvalidFileID indicates a file ID string is not 64 hex characters.
	ErrInvalidFileID = errors.New("registry: invalid file ID")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("registry: required parameter is nil")
)
