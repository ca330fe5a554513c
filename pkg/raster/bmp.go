package raster

import (
	"encoding/binary"
	"io"

	"github.com/EchoTools/blpconv/pkg/texture"
)

const (
	bmpFileHeaderSize = 14
	bmpV4HeaderSize   = 108
	bmpBitFields      = 3
	bmpPixelsPerMeter = 2835 // 72 DPI
	bmpColorSpaceSRGB = 0x73524742
)

type bmpFileHeader struct {
	Magic     [2]byte
	FileSize  uint32
	Reserved  uint32
	PixOffset uint32
}

type bmpV4Header struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	ImageSize     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ColorsUsed    uint32
	ColorsImp     uint32
	RedMask       uint32
	GreenMask     uint32
	BlueMask      uint32
	AlphaMask     uint32
	CSType        uint32
	Endpoints     [36]byte
	Gamma         [12]byte
}

// encodeBMP writes buf as a bottom-up 32-bit BGRA bitmap with an explicit
// alpha mask.
func encodeBMP(w io.Writer, buf *texture.PixelBuffer) error {
	imageSize := uint32(buf.Width * buf.Height * 4)
	offset := uint32(bmpFileHeaderSize + bmpV4HeaderSize)

	fh := bmpFileHeader{
		Magic:     [2]byte{'B', 'M'},
		FileSize:  offset + imageSize,
		PixOffset: offset,
	}
	ih := bmpV4Header{
		Size:          bmpV4HeaderSize,
		Width:         int32(buf.Width),
		Height:        int32(buf.Height),
		Planes:        1,
		BitCount:      32,
		Compression:   bmpBitFields,
		ImageSize:     imageSize,
		XPelsPerMeter: bmpPixelsPerMeter,
		YPelsPerMeter: bmpPixelsPerMeter,
		RedMask:       0x00ff0000,
		GreenMask:     0x0000ff00,
		BlueMask:      0x000000ff,
		AlphaMask:     0xff000000,
		CSType:        bmpColorSpaceSRGB,
	}
	if err := binary.Write(w, binary.LittleEndian, &fh); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, &ih); err != nil {
		return err
	}

	row := make([]byte, buf.Width*4)
	for y := buf.Height - 1; y >= 0; y-- {
		for x := 0; x < buf.Width; x++ {
			r, g, b, a := buf.At(x, y)
			row[x*4], row[x*4+1], row[x*4+2], row[x*4+3] = b, g, r, a
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
