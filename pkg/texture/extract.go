package texture

import (
	"encoding/binary"
	"fmt"
	"image"
	"math/bits"
)

// PixelBuffer is the packed canonical form of one level. Each value is the
// byte-reversed 0xRRGGBBAA color, so the little-endian bytes of Pix are laid
// out R,G,B,A,R,G,B,A...
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint32
}

// NewPixelBuffer allocates a zeroed buffer.
func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint32, width*height),
	}
}

// Size returns the buffer dimensions.
func (b *PixelBuffer) Size() (int, int) {
	return b.Width, b.Height
}

// At returns the channels of pixel (x, y).
func (b *PixelBuffer) At(x, y int) (r, g, bl, a uint8) {
	v := b.Pix[y*b.Width+x]
	return uint8(v), uint8(v >> 8), uint8(v >> 16), uint8(v >> 24)
}

// Set stores the channels of pixel (x, y).
func (b *PixelBuffer) Set(x, y int, r, g, bl, a uint8) {
	b.Pix[y*b.Width+x] = canonical(r, g, bl, a)
}

// Bytes returns the RGBA byte view, 4*Width*Height bytes, stride Width*4.
func (b *PixelBuffer) Bytes() []byte {
	out := make([]byte, len(b.Pix)*4)
	for i, v := range b.Pix {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

// NRGBA wraps a copy of the buffer as a non-premultiplied image.
func (b *PixelBuffer) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Bytes(),
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Float converts the buffer to its plane representation.
func (b *PixelBuffer) Float() *FloatBuffer {
	fb := NewFloatBuffer(b.Width, b.Height)
	n := len(b.Pix)
	for i, v := range b.Pix {
		fb.Data[i] = float32(uint8(v)) / 255
		fb.Data[n+i] = float32(uint8(v>>8)) / 255
		fb.Data[2*n+i] = float32(uint8(v>>16)) / 255
		fb.Data[3*n+i] = float32(uint8(v>>24)) / 255
	}
	return fb
}

// PixelBufferFromNRGBA copies an NRGBA image into a packed buffer.
func PixelBufferFromNRGBA(img *image.NRGBA) *PixelBuffer {
	r := img.Bounds()
	b := NewPixelBuffer(r.Dx(), r.Dy())
	for y := 0; y < b.Height; y++ {
		row := img.Pix[img.PixOffset(r.Min.X, r.Min.Y+y):]
		for x := 0; x < b.Width; x++ {
			b.Pix[y*b.Width+x] = binary.LittleEndian.Uint32(row[x*4:])
		}
	}
	return b
}

// FloatBuffer holds four contiguous planes (R, G, B, A) of Width*Height
// values each, normalized to [0,1].
type FloatBuffer struct {
	Width  int
	Height int
	Data   []float32
}

// NewFloatBuffer allocates a zeroed buffer.
func NewFloatBuffer(width, height int) *FloatBuffer {
	return &FloatBuffer{
		Width:  width,
		Height: height,
		Data:   make([]float32, 4*width*height),
	}
}

// Size returns the buffer dimensions.
func (b *FloatBuffer) Size() (int, int) {
	return b.Width, b.Height
}

// Plane returns channel c (0=R, 1=G, 2=B, 3=A).
func (b *FloatBuffer) Plane(c int) []float32 {
	n := b.Width * b.Height
	return b.Data[c*n : (c+1)*n]
}

func canonical(r, g, b, a uint8) uint32 {
	return bits.ReverseBytes32(PackRGBA(r, g, b, a))
}

// Resolve returns the stored 0xRRGGBBAA color of pixel i in level l.
func (t *Texture) Resolve(l *MipLevel, i int) uint32 {
	if t.Model != Paletted {
		return l.Colors[i]
	}
	c := t.Palette[l.Indices[i]]
	if l.Alpha != nil {
		c = c&^0xff | uint32(l.Alpha[i])
	}
	return c
}

func (t *Texture) level(index int) (*MipLevel, error) {
	if index < 0 || index >= len(t.Levels) {
		return nil, fmt.Errorf("mip index %d is out of range (%d levels)", index, len(t.Levels))
	}
	return &t.Levels[index], nil
}

// Extract builds the packed canonical buffer for level index.
func Extract(t *Texture, index int) (*PixelBuffer, error) {
	l, err := t.level(index)
	if err != nil {
		return nil, err
	}

	b := NewPixelBuffer(l.Width, l.Height)
	for i := range b.Pix {
		b.Pix[i] = bits.ReverseBytes32(t.Resolve(l, i))
	}
	return b, nil
}

// ExtractFloat builds the plane buffer for level index. No byte swap is
// applied: channels are read straight from the stored value.
func ExtractFloat(t *Texture, index int) (*FloatBuffer, error) {
	l, err := t.level(index)
	if err != nil {
		return nil, err
	}

	b := NewFloatBuffer(l.Width, l.Height)
	n := l.Pixels()
	for i := 0; i < n; i++ {
		r, g, bl, a := UnpackRGBA(t.Resolve(l, i))
		b.Data[i] = float32(r) / 255
		b.Data[n+i] = float32(g) / 255
		b.Data[2*n+i] = float32(bl) / 255
		b.Data[3*n+i] = float32(a) / 255
	}
	return b, nil
}
