package archive

import (
	"bytes"
	"fmt"
	"io"

	"github.com/DataDog/zstd"
	"github.com/pierrec/lz4/v4"
)

// Reader decompresses the body of an archive.
type Reader struct {
	header    *Header
	body      io.ReadCloser
	headerBuf [HeaderSize]byte // Reusable buffer for header decoding
}

// NewReader reads and validates the header, then returns a reader for the
// decompressed content.
func NewReader(r io.Reader) (*Reader, error) {
	reader := &Reader{
		header: &Header{},
	}

	if _, err := io.ReadFull(r, reader.headerBuf[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if err := reader.header.UnmarshalBinary(reader.headerBuf[:]); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	body := io.LimitReader(r, int64(reader.header.CompressedLength))
	switch reader.header.Codec {
	case CodecZstd:
		reader.body = zstd.NewReader(body)
	case CodecLZ4:
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		out := make([]byte, reader.header.Length)
		n, err := lz4.UncompressBlock(raw, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		reader.body = io.NopCloser(bytes.NewReader(out[:n]))
	default:
		reader.body = io.NopCloser(body)
	}
	return reader, nil
}

// Header returns the archive header.
func (r *Reader) Header() *Header {
	return r.header
}

// Read reads decompressed data into p.
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.body.Read(p)
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.body.Close()
}

// Length returns the uncompressed data length.
func (r *Reader) Length() int {
	return int(r.header.Length)
}

// CompressedLength returns the compressed data length.
func (r *Reader) CompressedLength() int {
	return int(r.header.CompressedLength)
}

// ReadAll reads the entire decompressed content from an archive.
func ReadAll(r io.Reader) ([]byte, *Header, error) {
	reader, err := NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	defer reader.Close()

	data := make([]byte, reader.Length())
	n, err := io.ReadFull(reader, data)
	if err != nil {
		return nil, nil, fmt.Errorf("read content: %w", err)
	}
	if n != reader.Length() {
		return nil, nil, fmt.Errorf("incomplete read: expected %d, got %d", reader.Length(), n)
	}

	return data, reader.header, nil
}

// Unwrap returns data unchanged unless it is an archive, in which case the
// decompressed payload is returned.
func Unwrap(data []byte) ([]byte, error) {
	if !IsArchive(data) {
		return data, nil
	}
	out, _, err := ReadAll(bytes.NewReader(data))
	return out, err
}
