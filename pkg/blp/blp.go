// Package blp decodes BLP1 and BLP2 texture files into texture.Texture.
//
// Supported encodings:
//
//	BLP1 compression 0  shared JPEG header + per-level JPEG body (BGRA)
//	BLP1 compression 1  256-entry BGRA palette with a separate alpha plane
//	BLP2 encoding 1     as BLP1 paletted
//	BLP2 encoding 2     DXT1/DXT3/DXT5, decompressed to direct color
//	BLP2 encoding 3     raw BGRA
package blp

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/EchoTools/blpconv/pkg/texture"
)

var (
	ErrBadBLP         = errors.New("blp: bad file")
	ErrUnsupportedBLP = errors.New("blp: unsupported format")
)

const (
	maxLevels = 16

	blp1HeaderSize = 156
	blp2HeaderSize = 148
	paletteBytes   = texture.PaletteSize * 4

	// MaxDimension bounds the level 0 size accepted from a header.
	MaxDimension = 1 << 16
)

// Encoding is the pixel storage of a BLP file.
type Encoding uint8

const (
	EncodingJPEG Encoding = iota
	EncodingPalette
	EncodingDXT
	EncodingBGRA
)

func (e Encoding) String() string {
	switch e {
	case EncodingJPEG:
		return "jpeg"
	case EncodingPalette:
		return "palette"
	case EncodingDXT:
		return "dxt"
	case EncodingBGRA:
		return "bgra"
	default:
		return fmt.Sprintf("Encoding(%d)", uint8(e))
	}
}

// Header is the parsed fixed part of a BLP file.
type Header struct {
	Version  int // 1 or 2
	Encoding Encoding
	// AlphaBits is 0, 1, 4 or 8.
	AlphaBits int
	// AlphaType is the BLP2 DXT variant selector: 0 DXT1, 1 DXT3, 7 DXT5.
	AlphaType  uint8
	HasMipmaps bool
	Width      int
	Height     int
	Offsets    [maxLevels]uint32
	Sizes      [maxLevels]uint32

	dataStart int
}

// Levels returns the number of stored levels: consecutive non-empty entries,
// stopping after 1x1. Files without the mipmap flag have one level.
func (h *Header) Levels() int {
	n := 0
	for i := 0; i < maxLevels; i++ {
		if h.Offsets[i] == 0 || h.Sizes[i] == 0 {
			break
		}
		n++
		if !h.HasMipmaps {
			break
		}
		w, ht := h.LevelSize(i)
		if w == 1 && ht == 1 {
			break
		}
	}
	return n
}

// LevelSize returns the dimensions of level i.
func (h *Header) LevelSize(i int) (int, int) {
	return max(1, h.Width>>i), max(1, h.Height>>i)
}

func (h *Header) String() string {
	return fmt.Sprintf("BLP%d: %dx%d, %s, %d-bit alpha, %d levels", h.Version, h.Width, h.Height, h.Encoding, h.AlphaBits, h.Levels())
}

// ReadHeader parses the BLP1 or BLP2 header at the start of data.
func ReadHeader(data []byte) (*Header, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: file too small (%d bytes)", ErrBadBLP, len(data))
	}
	var h *Header
	var err error
	switch string(data[:4]) {
	case "BLP1":
		h, err = readBLP1(data)
	case "BLP2":
		h, err = readBLP2(data)
	default:
		return nil, fmt.Errorf("%w: bad magic %q", ErrBadBLP, data[:4])
	}
	if err != nil {
		return nil, err
	}

	if h.Width < 1 || h.Height < 1 || h.Width > MaxDimension || h.Height > MaxDimension {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrBadBLP, h.Width, h.Height)
	}
	switch h.AlphaBits {
	case 0, 1, 4, 8:
	default:
		return nil, fmt.Errorf("%w: %d-bit alpha", ErrUnsupportedBLP, h.AlphaBits)
	}
	if h.Levels() == 0 {
		return nil, fmt.Errorf("%w: no mip levels", ErrBadBLP)
	}
	return h, nil
}

func readBLP1(b []byte) (*Header, error) {
	if len(b) < blp1HeaderSize {
		return nil, fmt.Errorf("%w: file too small (%d bytes)", ErrBadBLP, len(b))
	}
	h := &Header{Version: 1, dataStart: blp1HeaderSize}

	switch c := binary.LittleEndian.Uint32(b[4:]); c {
	case 0:
		h.Encoding = EncodingJPEG
	case 1:
		h.Encoding = EncodingPalette
	default:
		return nil, fmt.Errorf("%w: BLP1 compression %d", ErrUnsupportedBLP, c)
	}
	h.AlphaBits = int(binary.LittleEndian.Uint32(b[8:]))
	h.Width = int(binary.LittleEndian.Uint32(b[12:]))
	h.Height = int(binary.LittleEndian.Uint32(b[16:]))
	// b[20:24] is the picture type, superseded by the alpha bit count.
	h.HasMipmaps = binary.LittleEndian.Uint32(b[24:]) != 0
	readTables(h, b[28:])
	return h, nil
}

func readBLP2(b []byte) (*Header, error) {
	if len(b) < blp2HeaderSize {
		return nil, fmt.Errorf("%w: file too small (%d bytes)", ErrBadBLP, len(b))
	}
	h := &Header{Version: 2, dataStart: blp2HeaderSize}

	if v := binary.LittleEndian.Uint32(b[4:]); v != 1 {
		return nil, fmt.Errorf("%w: BLP2 type %d", ErrUnsupportedBLP, v)
	}
	switch e := b[8]; e {
	case 1:
		h.Encoding = EncodingPalette
	case 2:
		h.Encoding = EncodingDXT
	case 3:
		h.Encoding = EncodingBGRA
	default:
		return nil, fmt.Errorf("%w: BLP2 encoding %d", ErrUnsupportedBLP, e)
	}
	h.AlphaBits = int(b[9])
	h.AlphaType = b[10]
	h.HasMipmaps = b[11] != 0
	h.Width = int(binary.LittleEndian.Uint32(b[12:]))
	h.Height = int(binary.LittleEndian.Uint32(b[16:]))
	readTables(h, b[20:])
	return h, nil
}

func readTables(h *Header, b []byte) {
	for i := 0; i < maxLevels; i++ {
		h.Offsets[i] = binary.LittleEndian.Uint32(b[i*4:])
		h.Sizes[i] = binary.LittleEndian.Uint32(b[64+i*4:])
	}
}

// level returns the stored bytes of level i.
func (h *Header) level(data []byte, i int) ([]byte, error) {
	off, size := uint64(h.Offsets[i]), uint64(h.Sizes[i])
	if off < uint64(h.dataStart) || off+size > uint64(len(data)) {
		return nil, fmt.Errorf("%w: level %d range %d+%d outside %d bytes", ErrBadBLP, i, off, size, len(data))
	}
	return data[off : off+size], nil
}

// Decode parses a BLP file into a validated texture.
func Decode(data []byte) (*texture.Texture, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}

	var tex *texture.Texture
	switch h.Encoding {
	case EncodingPalette:
		tex, err = decodePaletted(h, data)
	case EncodingJPEG:
		tex, err = decodeJPEG(h, data)
	case EncodingDXT:
		tex, err = decodeDXT(h, data)
	case EncodingBGRA:
		tex, err = decodeBGRA(h, data)
	}
	if err != nil {
		return nil, err
	}
	if err := tex.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadBLP, err)
	}
	return tex, nil
}

func decodeBGRA(h *Header, data []byte) (*texture.Texture, error) {
	tex := &texture.Texture{Model: texture.Direct}
	for i := 0; i < h.Levels(); i++ {
		raw, err := h.level(data, i)
		if err != nil {
			return nil, err
		}
		w, ht := h.LevelSize(i)
		if len(raw) < w*ht*4 {
			return nil, fmt.Errorf("%w: level %d has %d bytes, want %d", ErrBadBLP, i, len(raw), w*ht*4)
		}

		l := texture.MipLevel{Width: w, Height: ht, Colors: make([]uint32, w*ht)}
		for p := range l.Colors {
			s := raw[p*4 : p*4+4]
			a := s[3]
			if h.AlphaBits == 0 {
				a = 0xff
			}
			l.Colors[p] = texture.PackRGBA(s[2], s[1], s[0], a)
		}
		tex.Levels = append(tex.Levels, l)
	}
	return tex, nil
}
