package registry

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/google/uuid"

	"github.com/bitfsorg/chunkfile-go/chunkfile"
)

// FileID identifies one file in a registry.
type FileID chainhash.Hash

// String returns the lowercase hex form of the ID.
func (id FileID) String() string {
	return hex.EncodeToString(id[:])
}

// ParseFileID parses the output of FileID.String.
func ParseFileID(s string) (FileID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != chainhash.HashSize {
		return FileID{}, fmt.Errorf("%w: %q", ErrInvalidFileID, s)
	}
	var id FileID
	copy(id[:], raw)
	return id, nil
}

// NewFileID derives a fresh ID from the header and a random nonce, so two
// files created with identical headers still get distinct IDs.
func NewFileID(h chunkfile.Header) FileID {
	var buf bytes.Buffer
	for _, field := range []string{h.Name, h.MimeType, h.Encoding, h.Metadata} {
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(field)))
		buf.WriteString(field)
	}
	nonce := uuid.New()
	buf.Write(nonce[:])
	return FileID(chainhash.DoubleHashH(buf.Bytes()))
}
