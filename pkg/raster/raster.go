// Package raster writes a single decompressed level as a 4-channel, 8-bit
// image file.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/EchoTools/blpconv/pkg/texture"
)

// Format selects the output file format.
type Format uint8

const (
	FormatPNG Format = iota
	FormatBMP
	FormatTIFF
)

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatBMP:
		return "bmp"
	case FormatTIFF:
		return "tiff"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	if f == FormatTIFF {
		return ".tif"
	}
	return "." + f.String()
}

// ParseFormat accepts png, bmp, tif and tiff.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "png":
		return FormatPNG, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	default:
		return 0, fmt.Errorf("unknown raster format %q", s)
	}
}

// Encode writes buf in format f. Every format carries four 8-bit channels,
// opaque input included.
func Encode(w io.Writer, buf *texture.PixelBuffer, f Format) error {
	var err error
	switch f {
	case FormatPNG:
		err = encodePNG(w, buf)
	case FormatBMP:
		err = encodeBMP(w, buf)
	case FormatTIFF:
		err = tiff.Encode(w, buf.NRGBA(), &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unknown raster format %v", f)
	}
	if err != nil {
		return fmt.Errorf("encode %v: %w", f, err)
	}
	return nil
}

// ReadConfig returns the dimensions and color model of an image written in
// format f without decoding its pixels.
func ReadConfig(r io.Reader, f Format) (image.Config, error) {
	var (
		cfg image.Config
		err error
	)
	switch f {
	case FormatPNG:
		cfg, err = png.DecodeConfig(r)
	case FormatBMP:
		cfg, err = bmp.DecodeConfig(r)
	case FormatTIFF:
		cfg, err = tiff.DecodeConfig(r)
	default:
		return image.Config{}, fmt.Errorf("unknown raster format %v", f)
	}
	if err != nil {
		return image.Config{}, fmt.Errorf("read %v header: %w", f, err)
	}
	return cfg, nil
}

// Bytes encodes buf into memory.
func Bytes(buf *texture.PixelBuffer, f Format) ([]byte, error) {
	var out bytes.Buffer
	if err := Encode(&out, buf, f); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
