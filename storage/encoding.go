package storage

import (
	"bytes"
	"compress/gzip"
	"compress/lzw"
	"fmt"
	"io"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// Content encodings understood by Encode and Decode. Names follow the HTTP
// Content-Encoding registry where one exists.
const (
	EncodingIdentity = "identity"
	EncodingGZIP     = "gzip"
	EncodingLZW      = "compress"
	EncodingLZ4      = "lz4"
)

// MaxDecodedSize bounds the output of Decode (1 GB).
const MaxDecodedSize = 1 << 30

// normalizeEncoding maps aliases onto the canonical encoding names.
func normalizeEncoding(encoding string) string {
	switch e := strings.ToLower(strings.TrimSpace(encoding)); e {
	case "":
		return EncodingIdentity
	case "lzw":
		return EncodingLZW
	default:
		return e
	}
}

// SupportedEncoding reports whether Encode and Decode handle encoding.
func SupportedEncoding(encoding string) bool {
	switch normalizeEncoding(encoding) {
	case EncodingIdentity, EncodingGZIP, EncodingLZW, EncodingLZ4:
		return true
	}
	return false
}

// Encode applies the named content encoding to data.
// An empty encoding name means identity. Empty data encodes to empty data
// under every supported encoding.
func Encode(data []byte, encoding string) ([]byte, error) {
	enc := normalizeEncoding(encoding)
	if len(data) == 0 && SupportedEncoding(enc) {
		return []byte{}, nil
	}
	switch enc {
	case EncodingIdentity:
		return data, nil
	case EncodingGZIP:
		return encodeWith(data, func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) })
	case EncodingLZW:
		return encodeWith(data, func(w io.Writer) io.WriteCloser { return lzw.NewWriter(w, lzw.LSB, 8) })
	case EncodingLZ4:
		return encodeWith(data, func(w io.Writer) io.WriteCloser { return lz4.NewWriter(w) })
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, encoding)
	}
}

// Decode reverses Encode for the named content encoding.
func Decode(data []byte, encoding string) ([]byte, error) {
	enc := normalizeEncoding(encoding)
	if len(data) == 0 && SupportedEncoding(enc) {
		return []byte{}, nil
	}
	switch enc {
	case EncodingIdentity:
		return data, nil
	case EncodingGZIP:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("storage: gzip header: %w", err)
		}
		defer r.Close()
		return readLimited(r)
	case EncodingLZW:
		r := lzw.NewReader(bytes.NewReader(data), lzw.LSB, 8)
		defer r.Close()
		return readLimited(r)
	case EncodingLZ4:
		return readLimited(lz4.NewReader(bytes.NewReader(data)))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, encoding)
	}
}

func encodeWith(data []byte, newWriter func(io.Writer) io.WriteCloser) ([]byte, error) {
	var buf bytes.Buffer
	w := newWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readLimited(r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, MaxDecodedSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > MaxDecodedSize {
		return nil, ErrDecodedTooLarge
	}
	return out, nil
}
