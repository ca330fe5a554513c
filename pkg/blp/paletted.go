package blp

import (
	"fmt"

	"github.com/EchoTools/blpconv/pkg/texture"
)

func readPalette(h *Header, data []byte) (*texture.Palette, error) {
	if len(data) < h.dataStart+paletteBytes {
		return nil, fmt.Errorf("%w: palette truncated", ErrBadBLP)
	}
	pal := &texture.Palette{}
	b := data[h.dataStart:]
	for i := range pal {
		// Stored BGRA; palette alpha is unused.
		pal[i] = texture.PackRGBA(b[i*4+2], b[i*4+1], b[i*4], 0xff)
	}
	return pal, nil
}

// unpackAlpha expands n alpha values of the given depth to 8 bits.
func unpackAlpha(src []byte, n, bits int) ([]uint8, error) {
	if len(src) < (n*bits+7)/8 {
		return nil, fmt.Errorf("%w: alpha plane has %d bytes, want %d", ErrBadBLP, len(src), (n*bits+7)/8)
	}
	out := make([]uint8, n)
	for i := range out {
		switch bits {
		case 1:
			if src[i/8]>>(i%8)&1 != 0 {
				out[i] = 0xff
			}
		case 4:
			v := src[i/2] >> (4 * (i % 2)) & 0x0f
			out[i] = v | v<<4
		case 8:
			out[i] = src[i]
		}
	}
	return out, nil
}

func decodePaletted(h *Header, data []byte) (*texture.Texture, error) {
	pal, err := readPalette(h, data)
	if err != nil {
		return nil, err
	}

	tex := &texture.Texture{Model: texture.Paletted, Palette: pal}
	for i := 0; i < h.Levels(); i++ {
		raw, err := h.level(data, i)
		if err != nil {
			return nil, err
		}
		w, ht := h.LevelSize(i)
		n := w * ht
		if len(raw) < n {
			return nil, fmt.Errorf("%w: level %d has %d bytes, want %d", ErrBadBLP, i, len(raw), n)
		}

		l := texture.MipLevel{Width: w, Height: ht, Indices: make([]uint8, n)}
		copy(l.Indices, raw[:n])
		if h.AlphaBits > 0 {
			if l.Alpha, err = unpackAlpha(raw[n:], n, h.AlphaBits); err != nil {
				return nil, fmt.Errorf("level %d: %w", i, err)
			}
		}
		tex.Levels = append(tex.Levels, l)
	}
	return tex, nil
}
