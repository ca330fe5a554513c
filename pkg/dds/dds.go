// Package dds writes and reads DirectDraw Surface containers with the DX10
// extended header.
//
// A container is laid out as:
//
//	"DDS " magic (4 bytes)
//	legacy header (124 bytes), pixel format fourCC "DX10"
//	DX10 header (20 bytes)
//	level payloads, largest first, no padding
package dds

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/EchoTools/blpconv/pkg/bcn"
	"github.com/EchoTools/blpconv/pkg/texture"
)

// DDS header constants
const (
	Magic      = 0x20534444 // "DDS "
	HeaderSize = 124
	DX10Size   = 20
	DataOffset = 4 + HeaderSize + DX10Size

	FlagHeight      = 0x2
	FlagWidth       = 0x4
	FlagMipMapCount = 0x20000

	CapsTexture = 0x1000
	CapsMipMap  = 0x400000

	PixelFormatSize = 32
	PixelFourCC     = 0x4

	FourCCDX10 = 0x30315844 // "DX10"

	ResourceTexture2D = 3
)

var (
	ErrInvalidMagic    = errors.New("dds: invalid magic")
	ErrNotDX10         = errors.New("dds: missing DX10 header")
	ErrUnknownFormat   = errors.New("dds: unsupported DXGI format")
	ErrLevelOutOfRange = errors.New("dds: level out of range")
)

type fileHeader struct {
	Magic             uint32
	Size              uint32
	Flags             uint32
	Height            uint32
	Width             uint32
	PitchOrLinearSize uint32
	Depth             uint32
	MipMapCount       uint32
	Reserved1         [11]uint32
	PixelFormat       pixelFormat
	Caps              uint32
	Caps2             uint32
	Caps3             uint32
	Caps4             uint32
	Reserved2         uint32
}

type pixelFormat struct {
	Size        uint32
	Flags       uint32
	FourCC      uint32
	RGBBitCount uint32
	RBitMask    uint32
	GBitMask    uint32
	BBitMask    uint32
	ABitMask    uint32
}

type dx10Header struct {
	DXGIFormat        uint32
	ResourceDimension uint32
	MiscFlag          uint32
	ArraySize         uint32
	MiscFlags2        uint32
}

// Header describes one container.
type Header struct {
	Width    int
	Height   int
	MipCount int
	Format   texture.Target
}

func (h Header) headers() (fileHeader, dx10Header) {
	fh := fileHeader{
		Magic:             Magic,
		Size:              HeaderSize,
		Flags:             FlagWidth | FlagHeight,
		Height:            uint32(h.Height),
		Width:             uint32(h.Width),
		PitchOrLinearSize: uint32(h.Width) * 4,
		MipMapCount:       uint32(h.MipCount),
		PixelFormat: pixelFormat{
			Size:   PixelFormatSize,
			Flags:  PixelFourCC,
			FourCC: FourCCDX10,
		},
		Caps: CapsTexture,
	}
	if h.MipCount > 1 {
		fh.Flags |= FlagMipMapCount
		fh.Caps |= CapsMipMap
	}

	dx := dx10Header{
		DXGIFormat:        h.Format.DXGIFormat(),
		ResourceDimension: ResourceTexture2D,
		ArraySize:         1,
	}
	return fh, dx
}

// Write emits the headers followed by payload.
func Write(w io.Writer, h Header, payload []byte) error {
	if !h.Format.Valid() {
		return fmt.Errorf("%w: %v", ErrUnknownFormat, h.Format)
	}
	fh, dx := h.headers()

	if err := binary.Write(w, binary.LittleEndian, &fh); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, &dx); err != nil {
		return fmt.Errorf("write dx10 header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// Encode returns the complete container bytes.
func Encode(h Header, payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(DataOffset + len(payload))
	if err := Write(&buf, h, payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Info is the metadata read back from a container.
type Info struct {
	Width      int
	Height     int
	MipCount   int
	DXGIFormat uint32
	Flags      uint32
	Caps       uint32
	DataOffset int
	DataSize   int
}

// Target returns the block format, if supported.
func (i *Info) Target() (texture.Target, bool) {
	return texture.TargetFromDXGI(i.DXGIFormat)
}

func (i *Info) String() string {
	return fmt.Sprintf("DDS: %dx%d, %d mips, format=%s, data=%d bytes",
		i.Width, i.Height, i.MipCount, FormatName(i.DXGIFormat), i.DataSize)
}

// ReadInfo parses the legacy and DX10 headers.
func ReadInfo(r io.Reader) (*Info, error) {
	var fh fileHeader
	if err := binary.Read(r, binary.LittleEndian, &fh); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if fh.Magic != Magic {
		return nil, fmt.Errorf("%w: 0x%08x", ErrInvalidMagic, fh.Magic)
	}
	if fh.PixelFormat.Flags&PixelFourCC == 0 || fh.PixelFormat.FourCC != FourCCDX10 {
		return nil, ErrNotDX10
	}

	var dx dx10Header
	if err := binary.Read(r, binary.LittleEndian, &dx); err != nil {
		return nil, fmt.Errorf("read DX10 header: %w", err)
	}

	info := &Info{
		Width:      int(fh.Width),
		Height:     int(fh.Height),
		MipCount:   int(fh.MipMapCount),
		DXGIFormat: dx.DXGIFormat,
		Flags:      fh.Flags,
		Caps:       fh.Caps,
		DataOffset: DataOffset,
	}
	if info.MipCount == 0 {
		info.MipCount = 1
	}
	if t, ok := info.Target(); ok {
		info.DataSize = ChainSize(info.Width, info.Height, info.MipCount, t)
	}
	return info, nil
}

// ChainSize returns the payload size of mipCount levels.
func ChainSize(width, height, mipCount int, t texture.Target) int {
	n := 0
	for i := 0; i < mipCount; i++ {
		n += bcn.StorageSize(max(1, width>>i), max(1, height>>i), t)
	}
	return n
}

// DecodeLevel decompresses one level of a complete container.
func DecodeLevel(data []byte, level int) (*texture.PixelBuffer, error) {
	info, err := ReadInfo(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	t, ok := info.Target()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, FormatName(info.DXGIFormat))
	}
	if level < 0 || level >= info.MipCount {
		return nil, fmt.Errorf("%w: %d of %d", ErrLevelOutOfRange, level, info.MipCount)
	}

	off := info.DataOffset + ChainSize(info.Width, info.Height, level, t)
	w, h := max(1, info.Width>>level), max(1, info.Height>>level)
	end := off + bcn.StorageSize(w, h, t)
	if end > len(data) {
		return nil, fmt.Errorf("level %d: %w", level, bcn.ErrTruncated)
	}

	img, err := bcn.DecodeImage(data[off:end], w, h, t)
	if err != nil {
		return nil, fmt.Errorf("level %d: %w", level, err)
	}
	return texture.PixelBufferFromNRGBA(img), nil
}

// FormatName returns a human-readable name for a DXGI_FORMAT value.
func FormatName(format uint32) string {
	switch format {
	case texture.DXGIFormatBC1Unorm:
		return "BC1_UNORM"
	case texture.DXGIFormatBC3Unorm:
		return "BC3_UNORM"
	case texture.DXGIFormatBC7Unorm:
		return "BC7_UNORM"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", format)
	}
}
