package mipmap

import (
	"fmt"
	"image"

	"github.com/disintegration/gift"

	"github.com/EchoTools/blpconv/pkg/texture"
)

// Filter selects the downsampling kernel used for synthesized levels.
type Filter uint8

const (
	// FilterBox averages the 2x2 source block under each destination pixel,
	// clamped at the right and bottom edges.
	FilterBox Filter = iota
	// FilterTriangle applies a tent kernel scaled to the reduction factor.
	FilterTriangle
)

func (f Filter) String() string {
	switch f {
	case FilterBox:
		return "box"
	case FilterTriangle:
		return "triangle"
	default:
		return fmt.Sprintf("Filter(%d)", uint8(f))
	}
}

// checkSize reports whether a width x height level may be allocated.
func checkSize(width, height int) error {
	if width < 1 || height < 1 {
		return fmt.Errorf("%w: invalid size %dx%d", ErrAllocation, width, height)
	}
	if width > MaxPixels/height {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrAllocation, width, height, MaxPixels)
	}
	return nil
}

func allocate(width, height int) (*texture.PixelBuffer, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	return texture.NewPixelBuffer(width, height), nil
}

// Downsample produces a width x height level from src.
func Downsample(src *texture.PixelBuffer, width, height int, f Filter) (*texture.PixelBuffer, error) {
	switch f {
	case FilterBox:
		return downsampleBox(src, width, height)
	case FilterTriangle:
		return downsampleTriangle(src, width, height)
	default:
		return nil, fmt.Errorf("mipmap: unknown filter %v", f)
	}
}

func downsampleBox(src *texture.PixelBuffer, width, height int) (*texture.PixelBuffer, error) {
	dst, err := allocate(width, height)
	if err != nil {
		return nil, err
	}

	for dy := 0; dy < height; dy++ {
		sy0 := min(dy*2, src.Height-1)
		sy1 := min(sy0+2, src.Height)
		for dx := 0; dx < width; dx++ {
			sx0 := min(dx*2, src.Width-1)
			sx1 := min(sx0+2, src.Width)

			var sum [4]uint32
			var n uint32
			for sy := sy0; sy < sy1; sy++ {
				for sx := sx0; sx < sx1; sx++ {
					v := src.Pix[sy*src.Width+sx]
					sum[0] += v & 0xff
					sum[1] += v >> 8 & 0xff
					sum[2] += v >> 16 & 0xff
					sum[3] += v >> 24
					n++
				}
			}

			var out uint32
			for c := 0; c < 4; c++ {
				out |= ((sum[c] + n/2) / n) << (8 * c)
			}
			dst.Pix[dy*width+dx] = out
		}
	}
	return dst, nil
}

func downsampleTriangle(src *texture.PixelBuffer, width, height int) (*texture.PixelBuffer, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}

	g := gift.New(gift.Resize(width, height, gift.LinearResampling))
	img := image.NewNRGBA(g.Bounds(image.Rect(0, 0, src.Width, src.Height)))
	g.Draw(img, src.NRGBA())
	return texture.PixelBufferFromNRGBA(img), nil
}

// Generate synthesizes the levels after plan.Keep, each from the one before
// it, starting from last (the final kept level). fn receives the plan index
// and the new level; an error from fn stops generation.
func Generate(plan Plan, last *texture.PixelBuffer, f Filter, fn func(index int, level *texture.PixelBuffer) error) error {
	prev := last
	for i := plan.Keep; i < len(plan.Levels); i++ {
		s := plan.Levels[i]
		next, err := Downsample(prev, s.Width, s.Height, f)
		if err != nil {
			return fmt.Errorf("level %d (%v): %w", i, s, err)
		}
		if err := fn(i, next); err != nil {
			return err
		}
		prev = next
	}
	return nil
}
