package storage

import (
	"bytes"

	"github.com/bsv-blockchain/go-sdk/chainhash"
)

// DefaultChunkSize is the default upload chunk size (24KB), small enough for
// a single contract call payload.
const DefaultChunkSize = 24 << 10

// SplitIntoChunks splits data into fixed-size chunks.
// The last chunk may be smaller than chunkSize. Empty data yields no chunks.
func SplitIntoChunks(data []byte, chunkSize int) ([][]byte, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if len(data) == 0 {
		return nil, nil
	}
	chunks := make([][]byte, 0, (len(data)+chunkSize-1)/chunkSize)
	for i := 0; i < len(data); i += chunkSize {
		end := min(i+chunkSize, len(data))
		chunk := make([]byte, end-i)
		copy(chunk, data[i:end])
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// ComputeRecombinationHash computes SHA256(SHA256(chunk0 || chunk1 || ...)),
// the same digest a chunkfile.File reports for its assembled content.
func ComputeRecombinationHash(chunks [][]byte) chainhash.Hash {
	return chainhash.DoubleHashH(bytes.Join(chunks, nil))
}

// RecombineChunks concatenates chunks and verifies the recombination hash.
func RecombineChunks(chunks [][]byte, expected chainhash.Hash) ([]byte, error) {
	data := bytes.Join(chunks, nil)
	if chainhash.DoubleHashH(data) != expected {
		return nil, ErrRecombinationHashMismatch
	}
	return data, nil
}
