package raster

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/EchoTools/blpconv/pkg/texture"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

const (
	pngBitDepth       = 8
	pngColorTypeRGBA  = 6
	pngFilterNone     = 0
	pngIHDRLength     = 13
	pngChunkOverhead  = 12
	pngCompressionLvl = zlib.DefaultCompression
)

// encodePNG writes buf as 8-bit RGBA (color type 6) regardless of whether
// any texel is translucent.
func encodePNG(w io.Writer, buf *texture.PixelBuffer) error {
	var idat bytes.Buffer
	zw, err := zlib.NewWriterLevel(&idat, pngCompressionLvl)
	if err != nil {
		return err
	}
	pix := buf.Bytes()
	stride := buf.Width * 4
	row := make([]byte, 1+stride)
	for y := 0; y < buf.Height; y++ {
		row[0] = pngFilterNone
		copy(row[1:], pix[y*stride:(y+1)*stride])
		if _, err := zw.Write(row); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}

	ihdr := make([]byte, pngIHDRLength)
	binary.BigEndian.PutUint32(ihdr[0:], uint32(buf.Width))
	binary.BigEndian.PutUint32(ihdr[4:], uint32(buf.Height))
	ihdr[8] = pngBitDepth
	ihdr[9] = pngColorTypeRGBA
	// compression, filter and interlace methods stay 0

	if _, err := w.Write(pngSignature); err != nil {
		return err
	}
	for _, c := range []struct {
		name string
		data []byte
	}{
		{"IHDR", ihdr},
		{"IDAT", idat.Bytes()},
		{"IEND", nil},
	} {
		if err := writeChunk(w, c.name, c.data); err != nil {
			return err
		}
	}
	return nil
}

func writeChunk(w io.Writer, name string, data []byte) error {
	chunk := make([]byte, 0, len(data)+pngChunkOverhead)
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(len(data)))
	chunk = append(chunk, name...)
	chunk = append(chunk, data...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(chunk[4:]))
	_, err := w.Write(chunk)
	return err
}
