package dds

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/EchoTools/blpconv/pkg/bcn"
	"github.com/EchoTools/blpconv/pkg/texture"
)

func u32(data []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(data[off:])
}

func TestEncodeLayout(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, ChainSize(32, 32, 6, texture.BC3))
	data, err := Encode(Header{Width: 32, Height: 32, MipCount: 6, Format: texture.BC3}, payload)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	if len(data) != DataOffset+len(payload) {
		t.Fatalf("Expected %d bytes, got %d", DataOffset+len(payload), len(data))
	}
	if string(data[0:4]) != "DDS " {
		t.Errorf("Expected magic \"DDS \", got %q", data[0:4])
	}

	checks := []struct {
		name string
		off  int
		want uint32
	}{
		{"size", 4, 124},
		{"flags", 8, FlagWidth | FlagHeight | FlagMipMapCount},
		{"height", 12, 32},
		{"width", 16, 32},
		{"pitch", 20, 128},
		{"depth", 24, 0},
		{"mipCount", 28, 6},
		{"pfSize", 76, 32},
		{"pfFlags", 80, PixelFourCC},
		{"fourCC", 84, FourCCDX10},
		{"caps", 108, CapsTexture | CapsMipMap},
		{"caps2", 112, 0},
		{"dxgiFormat", 128, 77},
		{"resourceDimension", 132, 3},
		{"miscFlag", 136, 0},
		{"arraySize", 140, 1},
		{"miscFlags2", 144, 0},
	}
	for _, c := range checks {
		if got := u32(data, c.off); got != c.want {
			t.Errorf("%s: expected 0x%x, got 0x%x", c.name, c.want, got)
		}
	}

	// reserved1
	for off := 32; off < 76; off += 4 {
		if u32(data, off) != 0 {
			t.Errorf("reserved field at %d is not zero", off)
		}
	}
	if string(data[84:88]) != "DX10" {
		t.Errorf("Expected fourCC DX10, got %q", data[84:88])
	}
	if !bytes.Equal(data[DataOffset:], payload) {
		t.Error("payload not copied verbatim after headers")
	}
}

func TestSingleLevelFlags(t *testing.T) {
	data, err := Encode(Header{Width: 1, Height: 1, MipCount: 1, Format: texture.BC1}, make([]byte, 8))
	if err != nil {
		t.Fatal(err)
	}
	if flags := u32(data, 8); flags != FlagWidth|FlagHeight {
		t.Errorf("Expected flags 0x6, got 0x%x", flags)
	}
	if caps := u32(data, 108); caps != CapsTexture {
		t.Errorf("Expected caps 0x1000, got 0x%x", caps)
	}
	if mips := u32(data, 28); mips != 1 {
		t.Errorf("Expected mip count 1, got %d", mips)
	}
}

func TestDXGIFormatPerTarget(t *testing.T) {
	tests := []struct {
		target texture.Target
		want   uint32
		name   string
	}{
		{texture.BC1, 71, "BC1_UNORM"},
		{texture.BC3, 77, "BC3_UNORM"},
		{texture.BC7, 98, "BC7_UNORM"},
	}
	for _, tt := range tests {
		data, err := Encode(Header{Width: 4, Height: 4, MipCount: 1, Format: tt.target}, make([]byte, tt.target.BlockSize()))
		if err != nil {
			t.Fatal(err)
		}
		info, err := ReadInfo(bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}
		if info.DXGIFormat != tt.want {
			t.Errorf("%v: expected format %d, got %d", tt.target, tt.want, info.DXGIFormat)
		}
		if FormatName(info.DXGIFormat) != tt.name {
			t.Errorf("%v: expected name %s, got %s", tt.target, tt.name, FormatName(info.DXGIFormat))
		}
	}

	if _, err := Encode(Header{Width: 4, Height: 4, MipCount: 1}, nil); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
}

func TestReadInfo(t *testing.T) {
	h := Header{Width: 64, Height: 16, MipCount: 7, Format: texture.BC7}
	data, _ := Encode(h, make([]byte, ChainSize(64, 16, 7, texture.BC7)))

	info, err := ReadInfo(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to read info: %v", err)
	}
	if info.Width != 64 || info.Height != 16 || info.MipCount != 7 {
		t.Errorf("Expected 64x16 with 7 mips, got %dx%d with %d", info.Width, info.Height, info.MipCount)
	}
	if info.DataOffset != 148 {
		t.Errorf("Expected data offset 148, got %d", info.DataOffset)
	}
	if info.DataSize != len(data)-DataOffset {
		t.Errorf("Expected data size %d, got %d", len(data)-DataOffset, info.DataSize)
	}

	again, _ := Encode(h, make([]byte, info.DataSize))
	if !bytes.Equal(again[:DataOffset], data[:DataOffset]) {
		t.Error("header bytes differ between identical encodes")
	}

	t.Run("BadMagic", func(t *testing.T) {
		bad := append([]byte("XDS "), data[4:]...)
		if _, err := ReadInfo(bytes.NewReader(bad)); !errors.Is(err, ErrInvalidMagic) {
			t.Errorf("Expected ErrInvalidMagic, got %v", err)
		}
	})

	t.Run("LegacyFourCC", func(t *testing.T) {
		legacy := bytes.Clone(data)
		copy(legacy[84:88], "DXT5")
		if _, err := ReadInfo(bytes.NewReader(legacy)); !errors.Is(err, ErrNotDX10) {
			t.Errorf("Expected ErrNotDX10, got %v", err)
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		if _, err := ReadInfo(bytes.NewReader(data[:100])); err == nil {
			t.Error("Expected error for truncated header")
		}
	})
}

func TestDecodeLevel(t *testing.T) {
	const w, h = 8, 4
	var payload []byte
	for i := 0; i < 4; i++ {
		lw, lh := max(1, w>>i), max(1, h>>i)
		pix := make([]byte, lw*lh*4)
		for p := 0; p < lw*lh; p++ {
			copy(pix[p*4:], []byte{uint8(40 * i), 100, 200, 255})
		}
		level, err := bcn.EncodeImage(pix, lw, lh, texture.BC7, 0)
		if err != nil {
			t.Fatal(err)
		}
		payload = append(payload, level...)
	}
	data, _ := Encode(Header{Width: w, Height: h, MipCount: 4, Format: texture.BC7}, payload)

	for i := 0; i < 4; i++ {
		buf, err := DecodeLevel(data, i)
		if err != nil {
			t.Fatalf("level %d: %v", i, err)
		}
		if buf.Width != max(1, w>>i) || buf.Height != max(1, h>>i) {
			t.Errorf("level %d: got %dx%d", i, buf.Width, buf.Height)
		}
		r, g, b, a := buf.At(0, 0)
		if d := int(r) - 40*i; d > 1 || d < -1 || g != 100 || b != 200 || a < 254 {
			t.Errorf("level %d: got %d,%d,%d,%d", i, r, g, b, a)
		}
	}

	if _, err := DecodeLevel(data, 4); !errors.Is(err, ErrLevelOutOfRange) {
		t.Errorf("Expected ErrLevelOutOfRange, got %v", err)
	}
	if _, err := DecodeLevel(data[:len(data)-1], 3); err == nil {
		t.Error("Expected error for truncated payload")
	}
}
