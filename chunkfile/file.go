// Package chunkfile assembles a single logical file from byte chunks that
// may arrive in any order.
//
// A File starts empty in the Draft state. Each InsertChunk call places data
// at an integer index; inserting past the current end grows the file and
// fills the skipped slots with empty gap chunks. Once Finalize is called the
// chunk set is frozen. Queries always see a consistent view: the chunk count
// is one plus the highest index ever inserted, and the size is the sum of
// all chunk lengths.
package chunkfile

import (
	"fmt"
	"slices"
	"sync"

	"github.com/bsv-blockchain/go-sdk/chainhash"
)

// MaxChunkIndex is the highest index InsertChunk accepts. It bounds the
// gap-filled chunk slice a single write can allocate.
const MaxChunkIndex = 1<<20 - 1

// CheckIndex reports whether index is usable for a chunk write.
func CheckIndex(index int) error {
	if index < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	if index > MaxChunkIndex {
		return fmt.Errorf("%w: %d exceeds maximum %d", ErrOutOfRange, index, MaxChunkIndex)
	}
	return nil
}

// State is the lifecycle state of a File.
type State uint8

const (
	// StateDraft accepts chunk writes.
	StateDraft State = iota
	// StateFinalized is terminal; the chunk set no longer changes.
	StateFinalized
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Header holds the immutable descriptive fields fixed at creation.
type Header struct {
	Name     string
	MimeType string
	Encoding string
	Metadata string
}

// View is the read-only query surface of a File.
type View interface {
	Header() Header
	Name() string
	MimeType() string
	Encoding() string
	Metadata() string
	State() State
	IsFinalized() bool
	ChunkCount() int
	SizeInBytes() int64
	DownloadChunk(index int) ([]byte, error)
	AreChunksNonEmpty(indices []int) []bool
	Content() []byte
	Digest() chainhash.Hash
}

// File is an ordered, gap-filled chunk sequence for one logical file.
// It is safe for concurrent use; writes are serialized and never interleave
// with reads.
type File struct {
	mu     sync.RWMutex
	header Header
	chunks [][]byte
	state  State
}

// Compile-time interface check.
var _ View = (*File)(nil)

// New creates an empty Draft file with the given header.
func New(h Header) *File {
	return &File{header: h}
}

// CheckInsert reports whether InsertChunk(index, ...) would be accepted
// right now, without changing the file.
func (f *File) CheckInsert(index int) error {
	if err := CheckIndex(index); err != nil {
		return err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.state == StateFinalized {
		return ErrFinalized
	}
	return nil
}

// InsertChunk sets the content at index to a copy of data. Inserting at or
// beyond ChunkCount grows the file to index+1, leaving any skipped slots as
// empty gap chunks. Inserting below ChunkCount overwrites that slot only.
// Indices above MaxChunkIndex are rejected with ErrOutOfRange.
func (f *File) InsertChunk(index int, data []byte) error {
	if err := CheckIndex(index); err != nil {
		return err
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateFinalized {
		return ErrFinalized
	}

	if index < len(f.chunks) {
		f.chunks[index] = buf
		return nil
	}
	f.chunks = slices.Grow(f.chunks, index+1-len(f.chunks))
	for len(f.chunks) < index {
		f.chunks = append(f.chunks, []byte{})
	}
	f.chunks = append(f.chunks, buf)
	return nil
}

// Finalize marks the chunk set complete. Calling it on a finalized file is
// a no-op.
func (f *File) Finalize() {
	f.mu.Lock()
	f.state = StateFinalized
	f.mu.Unlock()
}

// Header returns the creation-time header.
func (f *File) Header() Header { return f.header }

// Name returns the file name.
func (f *File) Name() string { return f.header.Name }

// MimeType returns the MIME type.
func (f *File) MimeType() string { return f.header.MimeType }

// Encoding returns the content encoding (e.g. "gzip").
func (f *File) Encoding() string { return f.header.Encoding }

// Metadata returns the opaque metadata string.
func (f *File) Metadata() string { return f.header.Metadata }

// State returns the current lifecycle state.
func (f *File) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// IsFinalized reports whether Finalize has been called.
func (f *File) IsFinalized() bool {
	return f.State() == StateFinalized
}

// ChunkCount returns one plus the highest index ever inserted, or 0.
func (f *File) ChunkCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.chunks)
}

// SizeInBytes returns the total length of all chunks, gaps included.
func (f *File) SizeInBytes() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.sizeLocked()
}

func (f *File) sizeLocked() int64 {
	var n int64
	for _, c := range f.chunks {
		n += int64(len(c))
	}
	return n
}

// DownloadChunk returns a copy of the chunk at index. Gap chunks come back
// as an empty, non-nil slice.
func (f *File) DownloadChunk(index int) ([]byte, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if index >= len(f.chunks) {
		return nil, fmt.Errorf("%w: %d >= %d", ErrOutOfRange, index, len(f.chunks))
	}
	out := make([]byte, len(f.chunks[index]))
	copy(out, f.chunks[index])
	return out, nil
}

// AreChunksNonEmpty reports, for each requested index, whether it is in
// range and holds at least one byte. Out-of-range and negative indices map
// to false. The result has the same length and order as indices.
func (f *File) AreChunksNonEmpty(indices []int) []bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]bool, len(indices))
	for i, idx := range indices {
		out[i] = idx >= 0 && idx < len(f.chunks) && len(f.chunks[idx]) > 0
	}
	return out
}

// Content returns all chunks concatenated in index order.
func (f *File) Content() []byte {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]byte, 0, f.sizeLocked())
	for _, c := range f.chunks {
		out = append(out, c...)
	}
	return out
}

// Digest returns the double SHA-256 of Content.
func (f *File) Digest() chainhash.Hash {
	return chainhash.DoubleHashH(f.Content())
}

// readOnly hides every method of the wrapped value except those of View.
type readOnly struct {
	View
}

// ReadOnly returns a View of f that cannot be asserted back to *File.
func ReadOnly(f *File) View {
	return readOnly{View: f}
}
