// Package bcn encodes and decodes 4x4 BC1, BC3 and BC7 blocks.
//
// The encoders are fast range-fit encoders: endpoints are picked along the
// principal axis of each block and every texel is snapped to the closest
// palette entry. BC7 output always uses mode 6.
package bcn

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/EchoTools/blpconv/pkg/texture"
)

var (
	ErrUnsupportedFormat = errors.New("bcn: unsupported format")
	ErrTruncated         = errors.New("bcn: data truncated")
	ErrUnsupportedMode   = errors.New("bcn: unsupported block mode")
)

// Block is 16 RGBA texels in row-major order.
type Block [16][4]uint8

type lookupTables struct {
	expand5 [32]uint8
	expand6 [64]uint8
	weight4 [16]int32
}

var (
	tablesOnce sync.Once
	tables     *lookupTables
)

// Prepare builds the shared lookup tables. It is safe to call any number of
// times from any goroutine.
func Prepare() {
	tablesOnce.Do(func() {
		t := &lookupTables{
			weight4: [16]int32{0, 4, 9, 13, 17, 21, 26, 30, 34, 38, 43, 47, 51, 55, 60, 64},
		}
		for i := range t.expand5 {
			t.expand5[i] = uint8(i<<3 | i>>2)
		}
		for i := range t.expand6 {
			t.expand6[i] = uint8(i<<2 | i>>4)
		}
		tables = t
	})
}

func lut() *lookupTables {
	Prepare()
	return tables
}

// StorageSize returns the compressed size of a width x height image.
func StorageSize(width, height int, target texture.Target) int {
	return ((width + 3) / 4) * ((height + 3) / 4) * target.BlockSize()
}

// BlockAt copies the 4x4 block at block coordinates (bx, by) out of an RGBA
// byte image, replicating the last row and column past the edges.
func BlockAt(pix []byte, width, height, bx, by int, out *Block) {
	for py := 0; py < 4; py++ {
		y := min(by*4+py, height-1)
		for px := 0; px < 4; px++ {
			x := min(bx*4+px, width-1)
			o := (y*width + x) * 4
			copy(out[py*4+px][:], pix[o:o+4])
		}
	}
}

// EncodeBlock writes one block of the given target into dst.
func EncodeBlock(dst []byte, b *Block, target texture.Target, alphaThreshold uint8) error {
	switch target {
	case texture.BC1:
		EncodeBC1(dst, b, alphaThreshold)
	case texture.BC3:
		EncodeBC3(dst, b)
	case texture.BC7:
		EncodeBC7(dst, b)
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, target)
	}
	return nil
}

// EncodeImage compresses an RGBA byte image block by block.
func EncodeImage(pix []byte, width, height int, target texture.Target, alphaThreshold uint8) ([]byte, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, target)
	}
	if len(pix) < width*height*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrTruncated, len(pix), width, height)
	}

	bs := target.BlockSize()
	out := make([]byte, StorageSize(width, height, target))
	var blk Block
	off := 0
	for by := 0; by < (height+3)/4; by++ {
		for bx := 0; bx < (width+3)/4; bx++ {
			BlockAt(pix, width, height, bx, by, &blk)
			if err := EncodeBlock(out[off:off+bs], &blk, target, alphaThreshold); err != nil {
				return nil, err
			}
			off += bs
		}
	}
	return out, nil
}

// DecodeImage decompresses width x height texels of the given target.
func DecodeImage(data []byte, width, height int, target texture.Target) (*image.NRGBA, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, target)
	}
	if len(data) < StorageSize(width, height, target) {
		return nil, ErrTruncated
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	bs := target.BlockSize()
	var blk Block
	off := 0
	for by := 0; by < (height+3)/4; by++ {
		for bx := 0; bx < (width+3)/4; bx++ {
			var err error
			switch target {
			case texture.BC1:
				DecodeBC1(data[off:off+bs], &blk)
			case texture.BC3:
				DecodeBC3(data[off:off+bs], &blk)
			case texture.BC7:
				err = DecodeBC7(data[off:off+bs], &blk)
			}
			if err != nil {
				return nil, fmt.Errorf("block %d,%d: %w", bx, by, err)
			}
			off += bs

			for py := 0; py < 4; py++ {
				for px := 0; px < 4; px++ {
					x, y := bx*4+px, by*4+py
					if x >= width || y >= height {
						continue
					}
					o := img.PixOffset(x, y)
					copy(img.Pix[o:o+4], blk[py*4+px][:])
				}
			}
		}
	}
	return img, nil
}
