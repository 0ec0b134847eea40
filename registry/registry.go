// Package registry hosts many chunkfile.File instances behind stable IDs,
// serializes writes per file, and persists every change through a Backend.
package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/chunkfile-go/chunkfile"
	"github.com/bitfsorg/chunkfile-go/config"
	"github.com/bitfsorg/chunkfile-go/logging"
	"github.com/bitfsorg/chunkfile-go/storage"
)

// Options configures a Registry.
type Options struct {
	// Logger receives lifecycle events. Nil discards them.
	Logger logrus.FieldLogger

	// ChunkSize is used by Import when it is called with a non-positive
	// chunk size. Zero means storage.DefaultChunkSize.
	ChunkSize int

	// ExportStore receives content when Export is called with a nil store.
	ExportStore storage.Store
}

// entry pairs a file with the lock that keeps its backend and in-memory
// state in step.
type entry struct {
	mu      sync.Mutex
	file    *chunkfile.File
	deleted bool
}

// Registry is a set of independently locked files.
type Registry struct {
	backend   Backend
	log       logrus.FieldLogger
	chunkSize int
	exports   storage.Store
	closers   []io.Closer

	mu    sync.RWMutex
	files map[FileID]*entry
}

// New creates a registry over backend and loads every file it holds.
func New(backend Backend, opts Options) (*Registry, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: backend", ErrNilParam)
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	records, err := backend.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("registry: load: %w", err)
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = storage.DefaultChunkSize
	}

	r := &Registry{
		backend:   backend,
		log:       log,
		chunkSize: chunkSize,
		exports:   opts.ExportStore,
		files:     make(map[FileID]*entry, len(records)),
	}
	for id, rec := range records {
		r.files[id] = &entry{file: chunkfile.FromRecord(rec)}
	}
	log.WithField("files", len(records)).Debug("registry loaded")
	return r, nil
}

// Open validates cfg, builds its logger, and opens a bolt-backed registry
// at cfg.DBPath(). Import defaults to cfg.ChunkSize and Export defaults to
// a FileStore at cfg.ExportDir().
func Open(cfg config.Config) (*Registry, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	log, logFile, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}
	r, err := open(cfg, log)
	if err != nil {
		_ = logFile.Close()
		return nil, err
	}
	r.closers = append(r.closers, logFile)
	return r, nil
}

func open(cfg config.Config, log logrus.FieldLogger) (*Registry, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("registry: create data directory: %w", err)
	}
	exports, err := storage.NewFileStore(cfg.ExportDir())
	if err != nil {
		return nil, fmt.Errorf("registry: open export store: %w", err)
	}

	backend, err := OpenBoltBackend(cfg.DBPath(), log)
	if err != nil {
		return nil, err
	}
	r, err := New(backend, Options{Logger: log, ChunkSize: cfg.ChunkSize, ExportStore: exports})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the backend and any resources Open acquired.
func (r *Registry) Close() error {
	errs := []error{r.backend.Close()}
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// lookup returns the live entry for id with its lock held.
func (r *Registry) lookup(id FileID) (*entry, error) {
	r.mu.RLock()
	e, ok := r.files[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}

	e.mu.Lock()
	if e.deleted {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	return e, nil
}

// Create registers a new empty draft file and returns its ID.
func (r *Registry) Create(h chunkfile.Header) (FileID, error) {
	id := NewFileID(h)
	if err := r.backend.CreateFile(id, h); err != nil {
		return FileID{}, fmt.Errorf("registry: create: %w", err)
	}

	r.mu.Lock()
	r.files[id] = &entry{file: chunkfile.New(h)}
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"file_id":   id.String(),
		"name":      h.Name,
		"mime_type": h.MimeType,
		"encoding":  h.Encoding,
	}).Info("file created")
	return id, nil
}

// InsertChunk writes data at index of file id. The chunk is persisted before
// it becomes visible to readers.
func (r *Registry) InsertChunk(id FileID, index int, data []byte) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	if err := e.file.CheckInsert(index); err != nil {
		return err
	}
	if err := r.backend.PutChunk(id, index, data); err != nil {
		return fmt.Errorf("registry: persist chunk %d: %w", index, err)
	}
	if err := e.file.InsertChunk(index, data); err != nil {
		return err
	}

	r.log.WithFields(logrus.Fields{
		"file_id": id.String(),
		"index":   index,
		"bytes":   len(data),
	}).Debug("chunk stored")
	return nil
}

// Finalize marks file id complete. Finalizing twice is a no-op.
func (r *Registry) Finalize(id FileID) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	if e.file.IsFinalized() {
		return nil
	}
	if err := r.backend.MarkFinalized(id); err != nil {
		return fmt.Errorf("registry: persist finalize: %w", err)
	}
	e.file.Finalize()

	r.log.WithFields(logrus.Fields{
		"file_id": id.String(),
		"chunks":  e.file.ChunkCount(),
		"bytes":   e.file.SizeInBytes(),
	}).Info("file finalized")
	return nil
}

// Get returns a read-only view of file id. Writes must go through the
// registry so they are persisted.
func (r *Registry) Get(id FileID) (chunkfile.View, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	return chunkfile.ReadOnly(e.file), nil
}

// Delete removes file id from the registry and the backend.
func (r *Registry) Delete(id FileID) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	if err := r.backend.DeleteFile(id); err != nil {
		return fmt.Errorf("registry: delete: %w", err)
	}
	e.deleted = true

	r.mu.Lock()
	delete(r.files, id)
	r.mu.Unlock()

	r.log.WithField("file_id", id.String()).Info("file deleted")
	return nil
}

// List returns all file IDs in ascending byte order.
func (r *Registry) List() []FileID {
	r.mu.RLock()
	ids := make([]FileID, 0, len(r.files))
	for id := range r.files {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

// Len returns the number of registered files.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}

// Import stores data as a new finalized file: it is encoded with
// h.Encoding, split into chunkSize pieces, inserted, and finalized. A
// non-positive chunkSize uses the registry's configured chunk size. A
// partially imported file is removed on failure.
func (r *Registry) Import(h chunkfile.Header, data []byte, chunkSize int) (FileID, error) {
	if chunkSize <= 0 {
		chunkSize = r.chunkSize
	}
	encoded, err := storage.Encode(data, h.Encoding)
	if err != nil {
		return FileID{}, err
	}
	chunks, err := storage.SplitIntoChunks(encoded, chunkSize)
	if err != nil {
		return FileID{}, err
	}

	id, err := r.Create(h)
	if err != nil {
		return FileID{}, err
	}
	for i, c := range chunks {
		if err := r.InsertChunk(id, i, c); err != nil {
			r.discard(id)
			return FileID{}, err
		}
	}
	if err := r.Finalize(id); err != nil {
		r.discard(id)
		return FileID{}, err
	}

	r.log.WithFields(logrus.Fields{
		"file_id": id.String(),
		"chunks":  len(chunks),
		"raw":     len(data),
		"encoded": len(encoded),
	}).Info("file imported")
	return id, nil
}

func (r *Registry) discard(id FileID) {
	if err := r.Delete(id); err != nil {
		r.log.WithError(err).WithField("file_id", id.String()).Warn("failed to remove partial import")
	}
}

// ReadContent returns the assembled content of a finalized file with its
// content encoding removed.
func (r *Registry) ReadContent(id FileID) ([]byte, error) {
	v, err := r.finalizedView(id)
	if err != nil {
		return nil, err
	}
	return storage.Decode(v.Content(), v.Encoding())
}

// Export writes the assembled, still-encoded content of a finalized file to
// store under its digest and returns that digest. A nil store means the
// registry's export store.
func (r *Registry) Export(id FileID, store storage.Store) (chainhash.Hash, error) {
	if store == nil {
		store = r.exports
	}
	if store == nil {
		return chainhash.Hash{}, fmt.Errorf("%w: store", ErrNilParam)
	}
	v, err := r.finalizedView(id)
	if err != nil {
		return chainhash.Hash{}, err
	}

	content := v.Content()
	digest := chainhash.DoubleHashH(content)
	if err := store.Put(digest, content); err != nil {
		return chainhash.Hash{}, fmt.Errorf("registry: export: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"file_id": id.String(),
		"digest":  digest.String(),
	}).Info("file exported")
	return digest, nil
}

func (r *Registry) finalizedView(id FileID) (chunkfile.View, error) {
	v, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if !v.IsFinalized() {
		return nil, fmt.Errorf("%w: %s", ErrNotFinalized, id)
	}
	return v, nil
}
