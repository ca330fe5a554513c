package bcn

import (
	"testing"

	"github.com/EchoTools/blpconv/pkg/texture"
)

func solidBlock(r, g, b, a uint8) *Block {
	var blk Block
	for i := range blk {
		blk[i] = [4]uint8{r, g, b, a}
	}
	return &blk
}

func near(a, b uint8, tol int) bool {
	d := int(a) - int(b)
	return d <= tol && d >= -tol
}

func TestSolidRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		target texture.Target
		tol    int
	}{
		{"BC1", texture.BC1, 8},
		{"BC3", texture.BC3, 8},
		{"BC7", texture.BC7, 1},
	}
	colors := [][4]uint8{
		{200, 100, 50, 255},
		{0, 0, 0, 255},
		{255, 255, 255, 255},
		{13, 77, 191, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, c := range colors {
				blk := solidBlock(c[0], c[1], c[2], c[3])
				dst := make([]byte, tt.target.BlockSize())
				if err := EncodeBlock(dst, blk, tt.target, 128); err != nil {
					t.Fatal(err)
				}

				var out Block
				switch tt.target {
				case texture.BC1:
					DecodeBC1(dst, &out)
				case texture.BC3:
					DecodeBC3(dst, &out)
				case texture.BC7:
					if err := DecodeBC7(dst, &out); err != nil {
						t.Fatal(err)
					}
				}
				for i := range out {
					for ch := 0; ch < 4; ch++ {
						if !near(out[i][ch], c[ch], tt.tol) {
							t.Fatalf("color %v texel %d: got %v", c, i, out[i])
						}
					}
				}
			}
		})
	}
}

func TestBC1AlphaThreshold(t *testing.T) {
	var blk Block
	for i := range blk {
		if i < 8 {
			blk[i] = [4]uint8{255, 0, 0, 100}
		} else {
			blk[i] = [4]uint8{0, 0, 255, 255}
		}
	}

	tests := []struct {
		name      string
		threshold uint8
		wantAlpha uint8 // decoded alpha of the first eight texels
	}{
		{"Half", 128, 0},
		{"OnlyZeroCut", 1, 255},
		{"AtValue", 100, 255},
		{"Disabled", 0, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, 8)
			EncodeBC1(dst, &blk, tt.threshold)
			var out Block
			DecodeBC1(dst, &out)
			for i := range out {
				want := uint8(255)
				if i < 8 {
					want = tt.wantAlpha
				}
				if out[i][3] != want {
					t.Fatalf("texel %d alpha %d, want %d", i, out[i][3], want)
				}
			}
			if tt.wantAlpha == 0 && !near(out[15][2], 255, 8) {
				t.Errorf("opaque texel lost its color: %v", out[15])
			}
		})
	}
}

func TestBC1FullyTransparent(t *testing.T) {
	dst := make([]byte, 8)
	EncodeBC1(dst, solidBlock(10, 20, 30, 0), 128)
	var out Block
	DecodeBC1(dst, &out)
	for i := range out {
		if out[i][3] != 0 {
			t.Fatalf("texel %d alpha %d", i, out[i][3])
		}
	}
}

func TestBC3AlphaGradient(t *testing.T) {
	var blk Block
	for i := range blk {
		blk[i] = [4]uint8{90, 90, 90, uint8(i * 17)}
	}
	dst := make([]byte, 16)
	EncodeBC3(dst, &blk)
	var out Block
	DecodeBC3(dst, &out)
	for i := range out {
		if !near(out[i][3], blk[i][3], 19) {
			t.Errorf("texel %d alpha %d, want ~%d", i, out[i][3], blk[i][3])
		}
	}
	if out[0][3] != 0 || out[15][3] != 255 {
		t.Errorf("extremes not exact: %d, %d", out[0][3], out[15][3])
	}
}

func TestBC7Mode6(t *testing.T) {
	var blk Block
	for i := range blk {
		blk[i] = [4]uint8{uint8(i * 16), uint8(255 - i*16), 128, uint8(128 + i*8)}
	}
	dst := make([]byte, 16)
	EncodeBC7(dst, &blk)

	if dst[0]&0x7f != 0x40 {
		t.Fatalf("mode bits %08b, want mode 6", dst[0])
	}

	var out Block
	if err := DecodeBC7(dst, &out); err != nil {
		t.Fatal(err)
	}
	for i := range out {
		for ch := 0; ch < 4; ch++ {
			if !near(out[i][ch], blk[i][ch], 12) {
				t.Fatalf("texel %d: got %v, want %v", i, out[i], blk[i])
			}
		}
	}

	t.Run("OpaqueAlphaExact", func(t *testing.T) {
		tests := []struct {
			name  string
			texel func(i int) [4]uint8
		}{
			{"Solid", func(int) [4]uint8 { return [4]uint8{40, 80, 160, 255} }},
			{"Gradient", func(i int) [4]uint8 { return [4]uint8{uint8(i * 16), uint8(255 - i*16), 128, 255} }},
			{"Checker", func(i int) [4]uint8 {
				if i%2 == 0 {
					return [4]uint8{255, 255, 255, 255}
				}
				return [4]uint8{0, 0, 0, 255}
			}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var src Block
				for i := range src {
					src[i] = tt.texel(i)
				}
				enc := make([]byte, 16)
				EncodeBC7(enc, &src)
				var dec Block
				if err := DecodeBC7(enc, &dec); err != nil {
					t.Fatal(err)
				}
				for i := range dec {
					if dec[i][3] != 255 {
						t.Fatalf("texel %d: Expected alpha 255, got %d", i, dec[i][3])
					}
				}
			})
		}
	})

	t.Run("OtherModeRejected", func(t *testing.T) {
		bad := make([]byte, 16)
		bad[0] = 0x01
		if err := DecodeBC7(bad, &out); err == nil {
			t.Error("expected error for mode 0")
		}
	})
}

func TestStorageSize(t *testing.T) {
	tests := []struct {
		w, h   int
		target texture.Target
		want   int
	}{
		{1, 1, texture.BC1, 8},
		{1, 1, texture.BC7, 16},
		{4, 4, texture.BC3, 16},
		{5, 3, texture.BC1, 16},
		{32, 32, texture.BC3, 1024},
		{256, 128, texture.BC7, 32768},
	}
	for _, tt := range tests {
		if got := StorageSize(tt.w, tt.h, tt.target); got != tt.want {
			t.Errorf("StorageSize(%d, %d, %v) = %d, want %d", tt.w, tt.h, tt.target, got, tt.want)
		}
	}
}

func TestImageRoundTrip(t *testing.T) {
	const w, h = 5, 3
	pix := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		copy(pix[i*4:], []byte{40, 80, 160, 255})
	}

	for _, target := range []texture.Target{texture.BC1, texture.BC3, texture.BC7} {
		data, err := EncodeImage(pix, w, h, target, 128)
		if err != nil {
			t.Fatalf("%v: %v", target, err)
		}
		if len(data) != StorageSize(w, h, target) {
			t.Fatalf("%v: %d bytes", target, len(data))
		}
		img, err := DecodeImage(data, w, h, target)
		if err != nil {
			t.Fatalf("%v: %v", target, err)
		}
		if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
			t.Fatalf("%v: bounds %v", target, img.Bounds())
		}
		c := img.NRGBAAt(4, 2)
		if !near(c.R, 40, 8) || !near(c.G, 80, 8) || !near(c.B, 160, 8) || c.A != 255 {
			t.Errorf("%v: got %v", target, c)
		}
	}

	if _, err := EncodeImage(pix, w, h, texture.Target(9), 128); err == nil {
		t.Error("expected error for unknown target")
	}
	if _, err := DecodeImage([]byte{1, 2}, w, h, texture.BC1); err == nil {
		t.Error("expected truncation error")
	}
}
