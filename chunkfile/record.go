package chunkfile

// Record is a detached value copy of a File, used by persistence layers.
type Record struct {
	Header    Header
	Chunks    [][]byte
	Finalized bool
}

// Snapshot returns a deep copy of the file's current contents.
func (f *File) Snapshot() Record {
	f.mu.RLock()
	defer f.mu.RUnlock()

	chunks := make([][]byte, len(f.chunks))
	for i, c := range f.chunks {
		chunks[i] = append([]byte{}, c...)
	}
	return Record{
		Header:    f.header,
		Chunks:    chunks,
		Finalized: f.state == StateFinalized,
	}
}

// FromRecord rebuilds a File from a Record. Nil entries in rec.Chunks are
// treated as gap chunks.
func FromRecord(rec Record) *File {
	f := New(rec.Header)
	f.chunks = make([][]byte, len(rec.Chunks))
	for i, c := range rec.Chunks {
		f.chunks[i] = append([]byte{}, c...)
	}
	if rec.Finalized {
		f.state = StateFinalized
	}
	return f
}
