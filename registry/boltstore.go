package registry

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"github.com/bitfsorg/chunkfile-go/chunkfile"
	"github.com/bitfsorg/chunkfile-go/logging"
)

// Layout:
//
//	files/
//	  <file id>/
//	    header     gob(chunkfile.Header)
//	    finalized  0x01, absent while draft
//	    chunks/
//	      <uint64 big-endian index>  raw chunk bytes
var (
	bucketFiles  = []byte("files")
	bucketChunks = []byte("chunks")
	keyHeader    = []byte("header")
	keyFinalized = []byte("finalized")
)

// BoltBackend persists files in a bbolt database.
type BoltBackend struct {
	db  *bbolt.DB
	log logrus.FieldLogger
}

// Compile-time interface check.
var _ Backend = (*BoltBackend)(nil)

// OpenBoltBackend opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist. A nil logger
// discards load warnings.
func OpenBoltBackend(dbPath string, log logrus.FieldLogger) (*BoltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("registry: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("registry: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketFiles); err != nil {
			return fmt.Errorf("boltstore: create bucket %q: %w", bucketFiles, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registry: create buckets: %w", err)
	}

	if log == nil {
		log = logging.Discard()
	}
	return &BoltBackend{db: db, log: log}, nil
}

// Close closes the underlying database.
func (s *BoltBackend) Close() error { return s.db.Close() }

// indexKey encodes a chunk index as an 8-byte big-endian key for sorted storage.
func indexKey(index int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(index))
	return k
}

// encodeGob serializes a value using gob encoding.
func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob deserializes gob-encoded data into a value.
func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// fileBucket returns the bucket of an existing file.
func fileBucket(tx *bbolt.Tx, id FileID) (*bbolt.Bucket, error) {
	b := tx.Bucket(bucketFiles).Bucket(id[:])
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	return b, nil
}

// CreateFile records a new, empty draft file.
func (s *BoltBackend) CreateFile(id FileID, h chunkfile.Header) error {
	data, err := encodeGob(h)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		files := tx.Bucket(bucketFiles)
		if files.Bucket(id[:]) != nil {
			return fmt.Errorf("%w: %s", ErrFileExists, id)
		}
		fb, err := files.CreateBucket(id[:])
		if err != nil {
			return fmt.Errorf("boltstore: create file bucket: %w", err)
		}
		if _, err := fb.CreateBucket(bucketChunks); err != nil {
			return fmt.Errorf("boltstore: create chunk bucket: %w", err)
		}
		if err := fb.Put(keyHeader, data); err != nil {
			return fmt.Errorf("boltstore: put header: %w", err)
		}
		return nil
	})
}

// PutChunk stores data at index, replacing any previous content.
func (s *BoltBackend) PutChunk(id FileID, index int, data []byte) error {
	if err := chunkfile.CheckIndex(index); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		fb, err := fileBucket(tx, id)
		if err != nil {
			return err
		}
		if err := fb.Bucket(bucketChunks).Put(indexKey(index), data); err != nil {
			return fmt.Errorf("boltstore: put chunk %d: %w", index, err)
		}
		return nil
	})
}

// MarkFinalized records the Draft → Finalized transition.
func (s *BoltBackend) MarkFinalized(id FileID) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		fb, err := fileBucket(tx, id)
		if err != nil {
			return err
		}
		if err := fb.Put(keyFinalized, []byte{1}); err != nil {
			return fmt.Errorf("boltstore: put finalized: %w", err)
		}
		return nil
	})
}

// DeleteFile removes the file bucket and everything in it.
func (s *BoltBackend) DeleteFile(id FileID) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := fileBucket(tx, id); err != nil {
			return err
		}
		if err := tx.Bucket(bucketFiles).DeleteBucket(id[:]); err != nil {
			return fmt.Errorf("boltstore: delete file: %w", err)
		}
		return nil
	})
}

// LoadAll reads every file. Entries with a malformed ID or header are
// skipped with a warning rather than failing the whole load.
func (s *BoltBackend) LoadAll() (map[FileID]chunkfile.Record, error) {
	out := make(map[FileID]chunkfile.Record)
	err := s.db.View(func(tx *bbolt.Tx) error {
		files := tx.Bucket(bucketFiles)
		return files.ForEach(func(k, v []byte) error {
			if v != nil || len(k) != len(FileID{}) {
				s.log.WithField("key", fmt.Sprintf("%x", k)).Warn("skipping unexpected entry in files bucket")
				return nil
			}
			var id FileID
			copy(id[:], k)

			rec, err := loadRecord(files.Bucket(k))
			if err != nil {
				s.log.WithError(err).WithField("file_id", id.String()).Warn("skipping unreadable file")
				return nil
			}
			out[id] = rec
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: load files: %w", err)
	}
	return out, nil
}

// loadRecord rebuilds one record. Missing chunk keys below the highest
// stored index become gap chunks. A highest index above
// chunkfile.MaxChunkIndex is reported as corrupt.
func loadRecord(fb *bbolt.Bucket) (chunkfile.Record, error) {
	var rec chunkfile.Record

	data := fb.Get(keyHeader)
	if data == nil {
		return rec, fmt.Errorf("boltstore: missing header")
	}
	if err := decodeGob(data, &rec.Header); err != nil {
		return rec, fmt.Errorf("boltstore: decode header: %w", err)
	}
	rec.Finalized = fb.Get(keyFinalized) != nil

	cb := fb.Bucket(bucketChunks)
	if cb == nil {
		return rec, nil
	}
	c := cb.Cursor()
	last, _ := c.Last()
	if last == nil {
		return rec, nil
	}
	if len(last) != 8 {
		return rec, fmt.Errorf("boltstore: malformed chunk key %x", last)
	}
	maxIndex := binary.BigEndian.Uint64(last)
	if maxIndex > chunkfile.MaxChunkIndex {
		return rec, fmt.Errorf("boltstore: chunk index %d exceeds maximum %d", maxIndex, chunkfile.MaxChunkIndex)
	}
	rec.Chunks = make([][]byte, maxIndex+1)
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if len(k) != 8 {
			return rec, fmt.Errorf("boltstore: malformed chunk key %x", k)
		}
		rec.Chunks[binary.BigEndian.Uint64(k)] = append([]byte{}, v...)
	}
	return rec, nil
}
