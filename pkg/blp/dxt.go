package blp

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/InfinityTools/go-squish"

	"github.com/EchoTools/blpconv/pkg/texture"
)

func dxtFlags(h *Header) int {
	switch {
	case h.AlphaBits <= 1:
		return squish.FLAGS_DXT1
	case h.AlphaType == 7:
		return squish.FLAGS_DXT5
	default:
		return squish.FLAGS_DXT3
	}
}

func dxtLevelSize(w, h, flags int) int {
	n := ((w + 3) / 4) * ((h + 3) / 4)
	if flags == squish.FLAGS_DXT1 {
		return n * 8
	}
	return n * 16
}

func decodeDXT(h *Header, data []byte) (*texture.Texture, error) {
	flags := dxtFlags(h)

	tex := &texture.Texture{Model: texture.Direct}
	for i := 0; i < h.Levels(); i++ {
		raw, err := h.level(data, i)
		if err != nil {
			return nil, err
		}
		w, ht := h.LevelSize(i)
		if want := dxtLevelSize(w, ht, flags); len(raw) < want {
			return nil, fmt.Errorf("%w: level %d has %d bytes, want %d", ErrBadBLP, i, len(raw), want)
		}

		img := squish.DecompressImage(w, ht, raw, flags)
		if img == nil {
			return nil, fmt.Errorf("%w: level %d: DXT decompression failed", ErrBadBLP, i)
		}
		nrgba, ok := img.(*image.NRGBA)
		if !ok {
			nrgba = image.NewNRGBA(image.Rect(0, 0, w, ht))
			draw.Draw(nrgba, nrgba.Bounds(), img, img.Bounds().Min, draw.Src)
		}

		l := texture.MipLevel{Width: w, Height: ht, Colors: make([]uint32, w*ht)}
		for y := 0; y < ht; y++ {
			for x := 0; x < w; x++ {
				c := nrgba.NRGBAAt(nrgba.Rect.Min.X+x, nrgba.Rect.Min.Y+y)
				if h.AlphaBits == 0 {
					c.A = 0xff
				}
				l.Colors[y*w+x] = texture.PackRGBA(c.R, c.G, c.B, c.A)
			}
		}
		tex.Levels = append(tex.Levels, l)
	}
	return tex, nil
}
