package storage

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Helper functions ---

// makeDigest creates a deterministic digest from a seed.
func makeDigest(seed byte) chainhash.Hash {
	return chainhash.DoubleHashH([]byte{seed})
}

// newTestStore creates a FileStore in a temporary directory.
func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}

// --- NewFileStore tests ---

func TestNewFileStore_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "store")
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	assert.NotNil(t, store)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewFileStore_EmptyDir(t *testing.T) {
	_, err := NewFileStore("")
	assert.ErrorIs(t, err, ErrInvalidBaseDir)
}

func TestNewFileStore_PathIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regular")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	_, err := NewFileStore(path)
	assert.ErrorIs(t, err, ErrIOFailure)
}

// --- DigestToPath tests ---

func TestDigestToPath(t *testing.T) {
	digest := makeDigest(0x42)
	hexHash := hex.EncodeToString(digest[:])

	path := DigestToPath("/base", digest)
	assert.Equal(t, filepath.Join("/base", hexHash[:2], hexHash), path)
}

func TestDigestToPath_AllZeros(t *testing.T) {
	var digest chainhash.Hash
	path := DigestToPath("/base", digest)
	assert.Equal(t, filepath.Join("/base", "00", hex.EncodeToString(digest[:])), path)
}

// --- Put / Get tests ---

func TestPutGet(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"text", []byte("assembled file content")},
		{"empty", []byte{}},
		{"binary", func() []byte {
			b := make([]byte, 256)
			for i := range b {
				b[i] = byte(i)
			}
			return b
		}()},
		{"1MB", bytes.Repeat([]byte{0xFF}, 1<<20)},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			digest := makeDigest(byte(i))
			require.NoError(t, store.Put(digest, tt.data))

			got, err := store.Get(digest)
			require.NoError(t, err)
			assert.Equal(t, len(tt.data), len(got))
			assert.True(t, bytes.Equal(tt.data, got))
		})
	}
}

func TestPut_Overwrite(t *testing.T) {
	store := newTestStore(t)
	digest := makeDigest(0x01)

	require.NoError(t, store.Put(digest, []byte("original")))
	require.NoError(t, store.Put(digest, []byte("overwritten")))

	data, err := store.Get(digest)
	require.NoError(t, err)
	assert.Equal(t, []byte("overwritten"), data)

	size, err := store.Size(digest)
	require.NoError(t, err)
	assert.Equal(t, int64(len("overwritten")), size)
}

func TestPut_NoTempLeftover(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	digest := makeDigest(0x07)
	require.NoError(t, store.Put(digest, []byte("data")))

	_, err = os.Stat(DigestToPath(dir, digest) + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestGet_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(makeDigest(0xFF))
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- Has / Delete / Size tests ---

func TestHas(t *testing.T) {
	store := newTestStore(t)
	digest := makeDigest(0x01)

	exists, err := store.Has(digest)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Put(digest, []byte("data")))
	exists, err = store.Has(digest)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	digest := makeDigest(0x01)
	require.NoError(t, store.Put(digest, []byte("data")))

	require.NoError(t, store.Delete(digest))
	_, err := store.Get(digest)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(digest), ErrNotFound)
}

func TestSize(t *testing.T) {
	store := newTestStore(t)
	digest := makeDigest(0x01)
	require.NoError(t, store.Put(digest, bytes.Repeat([]byte{1}, 1234)))

	size, err := store.Size(digest)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), size)

	_, err = store.Size(makeDigest(0x02))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSize_ZeroBytes(t *testing.T) {
	store := newTestStore(t)
	digest := makeDigest(0x03)
	require.NoError(t, store.Put(digest, nil))

	size, err := store.Size(digest)
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
}

// --- List tests ---

func TestList_Empty(t *testing.T) {
	store := newTestStore(t)
	digests, err := store.List()
	require.NoError(t, err)
	assert.NotNil(t, digests)
	assert.Empty(t, digests)
}

func TestList_MultipleItems(t *testing.T) {
	store := newTestStore(t)
	want := make(map[chainhash.Hash]bool)
	for i := 0; i < 20; i++ {
		d := makeDigest(byte(i))
		want[d] = true
		require.NoError(t, store.Put(d, []byte("data")))
	}

	digests, err := store.List()
	require.NoError(t, err)
	assert.Len(t, digests, 20)
	for _, d := range digests {
		assert.True(t, want[d], "unexpected digest %x", d[:])
	}
}

func TestList_CorruptEntries(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	valid := makeDigest(0xAA)
	require.NoError(t, store.Put(valid, []byte("valid data")))
	hexHash := hex.EncodeToString(valid[:])
	shardDir := filepath.Join(dir, hexHash[:2])

	tests := []struct {
		name  string
		setup func(t *testing.T)
	}{
		{"non-hex file in shard", func(t *testing.T) {
			require.NoError(t, os.WriteFile(filepath.Join(shardDir, ".DS_Store"), []byte("junk"), 0600))
		}},
		{"temp file in shard", func(t *testing.T) {
			require.NoError(t, os.WriteFile(filepath.Join(shardDir, hexHash+".tmp"), []byte("partial"), 0600))
		}},
		{"wrong-length hex file", func(t *testing.T) {
			short := hex.EncodeToString(make([]byte, 16))
			require.NoError(t, os.WriteFile(filepath.Join(shardDir, short), []byte("short"), 0600))
		}},
		{"subdirectory in shard", func(t *testing.T) {
			require.NoError(t, os.MkdirAll(filepath.Join(shardDir, "nested"), 0700))
		}},
		{"long directory in base", func(t *testing.T) {
			require.NoError(t, os.MkdirAll(filepath.Join(dir, "longdirname"), 0700))
		}},
		{"regular file in base", func(t *testing.T) {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("readme"), 0600))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup(t)
			digests, err := store.List()
			require.NoError(t, err)
			require.Len(t, digests, 1)
			assert.Equal(t, valid, digests[0])
		})
	}
}

// --- Concurrency ---

func TestConcurrentPutGet(t *testing.T) {
	store := newTestStore(t)
	const goroutines = 10

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(idx int) {
			defer wg.Done()
			digest := makeDigest(byte(idx))
			data := bytes.Repeat([]byte{byte(idx)}, 100)

			assert.NoError(t, store.Put(digest, data))
			got, err := store.Get(digest)
			assert.NoError(t, err)
			assert.Equal(t, data, got)
		}(i)
	}
	wg.Wait()

	digests, err := store.List()
	require.NoError(t, err)
	assert.Len(t, digests, goroutines)
}

func TestConcurrentDelete(t *testing.T) {
	store := newTestStore(t)
	const goroutines = 10
	for i := 0; i < goroutines; i++ {
		require.NoError(t, store.Put(makeDigest(byte(i)), []byte("data to delete")))
	}

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(idx int) {
			defer wg.Done()
			assert.NoError(t, store.Delete(makeDigest(byte(idx))))
		}(i)
	}
	wg.Wait()

	digests, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, digests)
}
