// Package archive wraps converted payloads in a small compressed container.
package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Magic bytes identifying an archive header.
var Magic = [4]byte{0x42, 0x4c, 0x50, 0x5a} // "BLPZ"

// HeaderSize is the fixed binary size of an archive header.
const HeaderSize = 24 // 4 + 1 + 1 + 2 + 8 + 8 bytes

// Version is the only header version written and accepted.
const Version = 1

// MaxLength bounds the uncompressed size a reader will allocate for.
const MaxLength = 1 << 32

var (
	ErrInvalidHeader = errors.New("archive: invalid header")
	ErrUnknownCodec  = errors.New("archive: unknown codec")
)

// Codec selects the body compression.
type Codec uint8

const (
	CodecStore Codec = iota
	CodecZstd
	CodecLZ4
)

func (c Codec) String() string {
	switch c {
	case CodecStore:
		return "store"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	}
	return fmt.Sprintf("Codec(%d)", uint8(c))
}

// Ext returns the file extension conventionally appended for the codec.
func (c Codec) Ext() string {
	switch c {
	case CodecZstd:
		return ".zst"
	case CodecLZ4:
		return ".lz4"
	}
	return ""
}

// ParseCodec accepts "zstd" and "lz4". "none" and "store" select CodecStore.
func ParseCodec(s string) (Codec, error) {
	switch s {
	case "none", "store", "":
		return CodecStore, nil
	case "zstd", "zst":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCodec, s)
}

// Kind records what the wrapped payload is.
type Kind uint8

const (
	KindRaw Kind = iota
	KindBLP
	KindDDS
	KindRaster
)

func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindBLP:
		return "blp"
	case KindDDS:
		return "dds"
	case KindRaster:
		return "raster"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Header represents the header of a compressed archive file.
type Header struct {
	Magic            [4]byte
	Codec            Codec
	Kind             Kind
	Version          uint16
	Length           uint64 // Uncompressed size
	CompressedLength uint64 // Compressed size
}

// Size returns the binary size of the header.
func (h *Header) Size() int {
	return HeaderSize
}

// Validate checks the header for validity.
func (h *Header) Validate() error {
	if h.Magic != Magic {
		return fmt.Errorf("%w: expected magic %x, got %x", ErrInvalidHeader, Magic, h.Magic)
	}
	if h.Version != Version {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidHeader, h.Version)
	}
	if h.Codec > CodecLZ4 {
		return fmt.Errorf("%w: %d", ErrUnknownCodec, h.Codec)
	}
	if h.Length == 0 {
		return fmt.Errorf("%w: uncompressed size is zero", ErrInvalidHeader)
	}
	if h.Length > MaxLength {
		return fmt.Errorf("%w: uncompressed size %d exceeds %d", ErrInvalidHeader, h.Length, uint64(MaxLength))
	}
	if h.CompressedLength == 0 {
		return fmt.Errorf("%w: compressed size is zero", ErrInvalidHeader)
	}
	return nil
}

// MarshalBinary encodes the header to binary format.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	h.EncodeTo(buf)
	return buf, nil
}

// EncodeTo writes the header to the given buffer.
// The buffer must be at least HeaderSize bytes.
func (h *Header) EncodeTo(buf []byte) {
	copy(buf[0:4], h.Magic[:])
	buf[4] = uint8(h.Codec)
	buf[5] = uint8(h.Kind)
	binary.LittleEndian.PutUint16(buf[6:8], h.Version)
	binary.LittleEndian.PutUint64(buf[8:16], h.Length)
	binary.LittleEndian.PutUint64(buf[16:24], h.CompressedLength)
}

// UnmarshalBinary decodes and validates the header.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidHeader, HeaderSize, len(data))
	}
	h.DecodeFrom(data)
	return h.Validate()
}

// DecodeFrom reads the header from the given buffer.
// Does not validate - use UnmarshalBinary for validation.
func (h *Header) DecodeFrom(data []byte) {
	copy(h.Magic[:], data[0:4])
	h.Codec = Codec(data[4])
	h.Kind = Kind(data[5])
	h.Version = binary.LittleEndian.Uint16(data[6:8])
	h.Length = binary.LittleEndian.Uint64(data[8:16])
	h.CompressedLength = binary.LittleEndian.Uint64(data[16:24])
}

// NewHeader creates a new archive header.
func NewHeader(codec Codec, kind Kind, uncompressedSize, compressedSize uint64) *Header {
	return &Header{
		Magic:            Magic,
		Codec:            codec,
		Kind:             kind,
		Version:          Version,
		Length:           uncompressedSize,
		CompressedLength: compressedSize,
	}
}

// IsArchive reports whether data starts with an archive magic.
func IsArchive(data []byte) bool {
	return len(data) >= HeaderSize && [4]byte(data[0:4]) == Magic
}
