package archive

import (
	"bytes"
	"fmt"
	"io"

	"github.com/DataDog/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	// DefaultCompressionLevel is the default zstd level for encoding.
	DefaultCompressionLevel = zstd.BestSpeed
)

// Writer wraps an io.WriteSeeker to provide compression of archive data.
// Zstd bodies are streamed; LZ4 and stored bodies are buffered until Close,
// since LZ4 block mode needs the whole input at once.
type Writer struct {
	dst     io.WriteSeeker
	zWriter *zstd.Writer
	pending bytes.Buffer
	header  *Header
	level   int
	written uint64
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCompressionLevel sets the zstd compression level. LZ4 ignores it.
func WithCompressionLevel(level int) WriterOption {
	return func(w *Writer) {
		w.level = level
	}
}

// NewWriter creates a new archive writer that writes to dst.
// The uncompressedSize is the expected size of the uncompressed data.
func NewWriter(dst io.WriteSeeker, codec Codec, kind Kind, uncompressedSize uint64, opts ...WriterOption) (*Writer, error) {
	if codec > CodecLZ4 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, codec)
	}
	w := &Writer{
		dst:    dst,
		level:  DefaultCompressionLevel,
		header: NewHeader(codec, kind, uncompressedSize, 0),
	}

	for _, opt := range opts {
		opt(w)
	}

	// Placeholder; the compressed size is patched in on Close.
	headerBytes, err := w.header.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal header: %w", err)
	}
	if _, err := dst.Write(headerBytes); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	if codec == CodecZstd {
		w.zWriter = zstd.NewWriterLevel(dst, w.level)
	}
	return w, nil
}

// Write writes uncompressed data.
func (w *Writer) Write(p []byte) (n int, err error) {
	if w.zWriter != nil {
		n, err = w.zWriter.Write(p)
	} else {
		n, err = w.pending.Write(p)
	}
	w.written += uint64(n)
	return n, err
}

// Close flushes the body and rewrites the header with the final sizes.
func (w *Writer) Close() error {
	if w.written != w.header.Length {
		return fmt.Errorf("wrote %d bytes, header declares %d", w.written, w.header.Length)
	}

	switch w.header.Codec {
	case CodecZstd:
		if err := w.zWriter.Close(); err != nil {
			return fmt.Errorf("close compressor: %w", err)
		}
	case CodecLZ4:
		body, err := compressLZ4(w.pending.Bytes())
		if err != nil {
			return err
		}
		if _, err := w.dst.Write(body); err != nil {
			return fmt.Errorf("write body: %w", err)
		}
	default:
		if _, err := w.dst.Write(w.pending.Bytes()); err != nil {
			return fmt.Errorf("write body: %w", err)
		}
	}

	pos, err := w.dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("get position: %w", err)
	}
	w.header.CompressedLength = uint64(pos) - uint64(w.header.Size())

	if _, err := w.dst.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek to start: %w", err)
	}
	headerBytes, err := w.header.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	if _, err := w.dst.Write(headerBytes); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.dst.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}
	return nil
}

// compressLZ4 compresses data as a single LZ4 block.
func compressLZ4(data []byte) ([]byte, error) {
	body := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, body, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("lz4 compress: %d bytes did not fit the block bound", len(data))
	}
	return body[:n], nil
}

// Encode compresses data and writes it as an archive to dst.
func Encode(dst io.WriteSeeker, codec Codec, kind Kind, data []byte, opts ...WriterOption) error {
	w, err := NewWriter(dst, codec, kind, uint64(len(data)), opts...)
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}

	return w.Close()
}
