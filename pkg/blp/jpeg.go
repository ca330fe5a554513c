package blp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/EchoTools/blpconv/pkg/texture"
)

// adobeMarker is an APP14 segment declaring transform 0, so image/jpeg keeps
// the stored components instead of applying a YCbCr conversion.
var adobeMarker = []byte{
	0xff, 0xee, 0x00, 0x0e,
	'A', 'd', 'o', 'b', 'e',
	0x00, 0x64, // version
	0x00, 0x00, 0x00, 0x00, // flags
	0x00, // transform
}

const maxJPEGHeader = 1 << 16

// jpegStream joins the shared header and one level body, inserting the APP14
// segment right after SOI.
func jpegStream(header, body []byte) ([]byte, error) {
	if len(header) < 2 || header[0] != 0xff || header[1] != 0xd8 {
		return nil, fmt.Errorf("%w: JPEG header does not start with SOI", ErrBadBLP)
	}
	out := make([]byte, 0, len(header)+len(adobeMarker)+len(body))
	out = append(out, header[:2]...)
	out = append(out, adobeMarker...)
	out = append(out, header[2:]...)
	return append(out, body...), nil
}

func decodeJPEG(h *Header, data []byte) (*texture.Texture, error) {
	if len(data) < h.dataStart+4 {
		return nil, fmt.Errorf("%w: missing JPEG header size", ErrBadBLP)
	}
	hsize := int(binary.LittleEndian.Uint32(data[h.dataStart:]))
	if hsize > maxJPEGHeader || h.dataStart+4+hsize > len(data) {
		return nil, fmt.Errorf("%w: JPEG header of %d bytes", ErrBadBLP, hsize)
	}
	header := data[h.dataStart+4 : h.dataStart+4+hsize]

	tex := &texture.Texture{Model: texture.Direct}
	for i := 0; i < h.Levels(); i++ {
		body, err := h.level(data, i)
		if err != nil {
			return nil, err
		}
		stream, err := jpegStream(header, body)
		if err != nil {
			return nil, err
		}
		img, err := jpeg.Decode(bytes.NewReader(stream))
		if err != nil {
			return nil, fmt.Errorf("%w: level %d: %v", ErrBadBLP, i, err)
		}

		w, ht := h.LevelSize(i)
		if b := img.Bounds(); b.Dx() < w || b.Dy() < ht {
			return nil, fmt.Errorf("%w: level %d JPEG is %dx%d, want %dx%d", ErrBadBLP, i, b.Dx(), b.Dy(), w, ht)
		}
		l := texture.MipLevel{Width: w, Height: ht, Colors: make([]uint32, w*ht)}
		if err := jpegColors(img, w, ht, h.AlphaBits > 0, l.Colors); err != nil {
			return nil, fmt.Errorf("level %d: %w", i, err)
		}
		tex.Levels = append(tex.Levels, l)
	}
	return tex, nil
}

// jpegColors converts decoded BGRA components to packed colors. Four
// component streams come back as CMYK, which image/jpeg stores inverted.
func jpegColors(img image.Image, w, h int, hasAlpha bool, dst []uint32) error {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var r, g, b, a uint8
			switch m := img.(type) {
			case *image.CMYK:
				p := m.Pix[m.PixOffset(m.Rect.Min.X+x, m.Rect.Min.Y+y):]
				b, g, r, a = 255-p[0], 255-p[1], 255-p[2], 255-p[3]
			case *image.RGBA:
				p := m.Pix[m.PixOffset(m.Rect.Min.X+x, m.Rect.Min.Y+y):]
				b, g, r, a = p[0], p[1], p[2], 0xff
			case *image.Gray:
				v := m.Pix[m.PixOffset(m.Rect.Min.X+x, m.Rect.Min.Y+y)]
				r, g, b, a = v, v, v, 0xff
			default:
				return fmt.Errorf("%w: JPEG color model %T", ErrUnsupportedBLP, img)
			}
			if !hasAlpha {
				a = 0xff
			}
			dst[y*w+x] = texture.PackRGBA(r, g, b, a)
		}
	}
	return nil
}
