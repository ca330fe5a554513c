// Package texture holds the decoded form of a legacy bitmap texture and
// converts its mip levels into canonical pixel buffers.
//
// A Texture is produced once by a decoder (see package blp) and is treated as
// read-only by the rest of the pipeline.
package texture

import (
	"errors"
	"fmt"
)

// ColorModel tells how the pixels of every level are stored.
type ColorModel uint8

const (
	// Direct levels store one packed 0xRRGGBBAA value per pixel.
	Direct ColorModel = iota
	// Paletted levels store one palette index per pixel.
	Paletted
)

func (m ColorModel) String() string {
	switch m {
	case Direct:
		return "direct"
	case Paletted:
		return "paletted"
	default:
		return fmt.Sprintf("ColorModel(%d)", uint8(m))
	}
}

// PaletteSize is the fixed number of palette entries.
const PaletteSize = 256

// Palette is a color lookup table shared by all levels of a paletted texture.
// Entries are packed 0xRRGGBBAA.
type Palette [PaletteSize]uint32

// MipLevel is one resolution step of a texture.
type MipLevel struct {
	Width  int
	Height int

	// Colors holds Width*Height packed 0xRRGGBBAA values (Direct only).
	Colors []uint32

	// Indices holds Width*Height palette indices (Paletted only).
	Indices []uint8
	// Alpha optionally overrides the palette alpha of each pixel (Paletted only).
	Alpha []uint8
}

// Pixels returns Width*Height.
func (l *MipLevel) Pixels() int {
	return l.Width * l.Height
}

// Texture is a decoded legacy texture. Levels[0] is the highest resolution.
type Texture struct {
	Levels  []MipLevel
	Model   ColorModel
	Palette *Palette
}

// ErrInvalidTexture is returned by Validate.
var ErrInvalidTexture = errors.New("texture: invalid texture")

// Width returns the nominal width (level 0).
func (t *Texture) Width() int {
	if len(t.Levels) == 0 {
		return 0
	}
	return t.Levels[0].Width
}

// Height returns the nominal height (level 0).
func (t *Texture) Height() int {
	if len(t.Levels) == 0 {
		return 0
	}
	return t.Levels[0].Height
}

// Validate checks the invariants decoders must uphold.
func (t *Texture) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil texture", ErrInvalidTexture)
	}
	if len(t.Levels) == 0 {
		return fmt.Errorf("%w: no mip levels", ErrInvalidTexture)
	}
	switch t.Model {
	case Direct:
		if t.Palette != nil {
			return fmt.Errorf("%w: direct texture carries a palette", ErrInvalidTexture)
		}
	case Paletted:
		if t.Palette == nil {
			return fmt.Errorf("%w: paletted texture without palette", ErrInvalidTexture)
		}
	default:
		return fmt.Errorf("%w: unknown color model %d", ErrInvalidTexture, t.Model)
	}

	for i := range t.Levels {
		l := &t.Levels[i]
		if l.Width < 1 || l.Height < 1 {
			return fmt.Errorf("%w: level %d has size %dx%d", ErrInvalidTexture, i, l.Width, l.Height)
		}
		if i > 0 {
			// Each stored level halves the previous one, clamped at 1.
			prev := &t.Levels[i-1]
			if w, h := max(1, prev.Width/2), max(1, prev.Height/2); l.Width != w || l.Height != h {
				return fmt.Errorf("%w: level %d is %dx%d, want %dx%d after level %d (%dx%d)",
					ErrInvalidTexture, i, l.Width, l.Height, w, h, i-1, prev.Width, prev.Height)
			}
			if prev.Width == 1 && prev.Height == 1 {
				return fmt.Errorf("%w: level %d follows a 1x1 level", ErrInvalidTexture, i)
			}
		}

		n := l.Pixels()
		switch t.Model {
		case Direct:
			if len(l.Colors) != n {
				return fmt.Errorf("%w: level %d has %d colors, want %d", ErrInvalidTexture, i, len(l.Colors), n)
			}
		case Paletted:
			if len(l.Indices) != n {
				return fmt.Errorf("%w: level %d has %d indices, want %d", ErrInvalidTexture, i, len(l.Indices), n)
			}
			if l.Alpha != nil && len(l.Alpha) != n {
				return fmt.Errorf("%w: level %d has %d alpha values, want %d", ErrInvalidTexture, i, len(l.Alpha), n)
			}
		}
	}
	return nil
}

// PackRGBA packs four channels as 0xRRGGBBAA.
func PackRGBA(r, g, b, a uint8) uint32 {
	return uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(a)
}

// UnpackRGBA splits a 0xRRGGBBAA value.
func UnpackRGBA(c uint32) (r, g, b, a uint8) {
	return uint8(c >> 24), uint8(c >> 16), uint8(c >> 8), uint8(c)
}
