package mipmap

import (
	"errors"
	"testing"

	"github.com/EchoTools/blpconv/pkg/texture"
)

func singleLevel(w, h int) *texture.Texture {
	return &texture.Texture{
		Model:  texture.Direct,
		Levels: []texture.MipLevel{{Width: w, Height: h, Colors: make([]uint32, w*h)}},
	}
}

func fullChain(w, h int) *texture.Texture {
	tex := &texture.Texture{Model: texture.Direct}
	for s := (Size{w, h}); ; s = s.Next() {
		tex.Levels = append(tex.Levels, texture.MipLevel{Width: s.Width, Height: s.Height, Colors: make([]uint32, s.Width*s.Height)})
		if s.Width == 1 && s.Height == 1 {
			break
		}
	}
	return tex
}

func TestMaxMips(t *testing.T) {
	tests := []struct {
		w, h int
		want int
	}{
		{1, 1, 1},
		{2, 1, 2},
		{32, 32, 6},
		{33, 32, 6},
		{64, 16, 7},
		{1, 512, 10},
		{512, 512, 10},
		{1024, 1024, 11},
	}
	for _, tt := range tests {
		if got := MaxMips(tt.w, tt.h); got != tt.want {
			t.Errorf("MaxMips(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestExtraMips(t *testing.T) {
	tests := []struct {
		name       string
		maxMips    int
		keep       int
		source     int
		regenerate bool
		want       int
	}{
		{"SingleLevelNoRegen", 6, 1, 1, false, 0},
		{"SingleLevelRegen", 6, 1, 1, true, 5},
		{"PartialChain", 6, 3, 3, false, 3},
		{"FullChain", 6, 6, 6, false, 0},
		{"RegenFromChain", 6, 1, 6, true, 5},
		{"OneByOne", 1, 1, 1, true, 0},
		{"TooManySourceLevels", 3, 5, 5, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtraMips(tt.maxMips, tt.keep, tt.source, tt.regenerate); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewPlan(t *testing.T) {
	t.Run("SingleLevelKept", func(t *testing.T) {
		p, err := NewPlan(singleLevel(32, 32), false)
		if err != nil {
			t.Fatal(err)
		}
		if p.Count() != 1 || p.Extra() != 0 {
			t.Errorf("got %d levels (%d extra), want 1 (0)", p.Count(), p.Extra())
		}
	})

	t.Run("Regenerate32", func(t *testing.T) {
		p, err := NewPlan(singleLevel(32, 32), true)
		if err != nil {
			t.Fatal(err)
		}
		want := []Size{{32, 32}, {16, 16}, {8, 8}, {4, 4}, {2, 2}, {1, 1}}
		if len(p.Levels) != len(want) {
			t.Fatalf("got %v, want %v", p.Levels, want)
		}
		for i := range want {
			if p.Levels[i] != want[i] {
				t.Errorf("level %d: got %v, want %v", i, p.Levels[i], want[i])
			}
		}
		if p.Keep != 1 || p.Extra() != 5 {
			t.Errorf("keep=%d extra=%d", p.Keep, p.Extra())
		}
	})

	t.Run("NonSquare", func(t *testing.T) {
		p, _ := NewPlan(singleLevel(64, 8), true)
		if p.Count() != 7 {
			t.Fatalf("got %d levels, want 7", p.Count())
		}
		last := p.Levels[p.Count()-1]
		if last != (Size{1, 1}) {
			t.Errorf("last level %v, want 1x1", last)
		}
		if p.Levels[4] != (Size{4, 1}) {
			t.Errorf("level 4 %v, want 4x1", p.Levels[4])
		}
	})

	t.Run("PartialChainCompleted", func(t *testing.T) {
		tex := fullChain(32, 32)
		tex.Levels = tex.Levels[:3]
		p, _ := NewPlan(tex, false)
		if p.Keep != 3 || p.Count() != 6 {
			t.Errorf("keep=%d count=%d, want 3/6", p.Keep, p.Count())
		}
	})

	t.Run("FullChainKept", func(t *testing.T) {
		p, _ := NewPlan(fullChain(16, 16), false)
		if p.Keep != 5 || p.Extra() != 0 {
			t.Errorf("keep=%d extra=%d", p.Keep, p.Extra())
		}
	})

	t.Run("OneByOne", func(t *testing.T) {
		p, _ := NewPlan(singleLevel(1, 1), true)
		if p.Count() != 1 {
			t.Errorf("got %d levels, want 1", p.Count())
		}
	})

	t.Run("NeverExceedsMax", func(t *testing.T) {
		for _, s := range []Size{{1, 1}, {3, 5}, {32, 32}, {100, 7}, {256, 1}} {
			for _, regen := range []bool{false, true} {
				p, _ := NewPlan(fullChain(s.Width, s.Height), regen)
				if p.Count() > MaxMips(s.Width, s.Height) {
					t.Errorf("%v regen=%v: %d levels > max %d", s, regen, p.Count(), MaxMips(s.Width, s.Height))
				}
				for i := 1; i < p.Count(); i++ {
					if p.Levels[i] != p.Levels[i-1].Next() {
						t.Errorf("%v: level %d %v is not half of %v", s, i, p.Levels[i], p.Levels[i-1])
					}
				}
			}
		}
	})
}

func solid(w, h int, r, g, b, a uint8) *texture.PixelBuffer {
	buf := texture.NewPixelBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf.Set(x, y, r, g, b, a)
		}
	}
	return buf
}

func TestDownsampleBox(t *testing.T) {
	src := texture.NewPixelBuffer(2, 2)
	src.Set(0, 0, 0, 0, 0, 0)
	src.Set(1, 0, 100, 10, 255, 255)
	src.Set(0, 1, 200, 20, 255, 255)
	src.Set(1, 1, 100, 30, 255, 255)

	dst, err := Downsample(src, 1, 1, FilterBox)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, a := dst.At(0, 0)
	if r != 100 || g != 15 || b != 191 || a != 191 {
		t.Errorf("got %d,%d,%d,%d want 100,15,191,191", r, g, b, a)
	}

	t.Run("EdgeClamped", func(t *testing.T) {
		src := texture.NewPixelBuffer(3, 1)
		src.Set(0, 0, 10, 0, 0, 255)
		src.Set(1, 0, 20, 0, 0, 255)
		src.Set(2, 0, 90, 0, 0, 255)
		dst, err := Downsample(src, 1, 1, FilterBox)
		if err != nil {
			t.Fatal(err)
		}
		if r, _, _, _ := dst.At(0, 0); r != 15 {
			t.Errorf("got r=%d, want 15", r)
		}
	})

	t.Run("SingleColumn", func(t *testing.T) {
		src := solid(1, 4, 40, 50, 60, 70)
		dst, err := Downsample(src, 1, 2, FilterBox)
		if err != nil {
			t.Fatal(err)
		}
		for y := 0; y < 2; y++ {
			if r, g, b, a := dst.At(0, y); r != 40 || g != 50 || b != 60 || a != 70 {
				t.Errorf("row %d: %d,%d,%d,%d", y, r, g, b, a)
			}
		}
	})
}

func TestDownsampleTriangleSolid(t *testing.T) {
	src := solid(8, 8, 30, 60, 90, 255)
	dst, err := Downsample(src, 4, 4, FilterTriangle)
	if err != nil {
		t.Fatal(err)
	}
	if dst.Width != 4 || dst.Height != 4 {
		t.Fatalf("size %dx%d", dst.Width, dst.Height)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			r, g, b, a := dst.At(x, y)
			if absDiff(r, 30) > 1 || absDiff(g, 60) > 1 || absDiff(b, 90) > 1 || a != 255 {
				t.Fatalf("(%d,%d) = %d,%d,%d,%d", x, y, r, g, b, a)
			}
		}
	}
}

func TestDownsampleAllocation(t *testing.T) {
	src := solid(2, 2, 0, 0, 0, 0)
	for _, f := range []Filter{FilterBox, FilterTriangle} {
		if _, err := Downsample(src, MaxPixels, 2, f); !errors.Is(err, ErrAllocation) {
			t.Errorf("%v: expected ErrAllocation, got %v", f, err)
		}
	}

	tests := []struct {
		name          string
		width, height int
		ok            bool
	}{
		{"OneByOne", 1, 1, true},
		{"AtLimit", MaxPixels / 2, 2, true},
		{"OverLimit", MaxPixels/2 + 1, 2, false},
		{"Zero", 0, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allocs := testing.AllocsPerRun(10, func() {
				_ = checkSize(tt.width, tt.height)
			})
			err := checkSize(tt.width, tt.height)
			if (err == nil) != tt.ok {
				t.Errorf("Expected ok=%v, got %v", tt.ok, err)
			}
			if tt.ok && allocs != 0 {
				t.Errorf("Expected no allocations, got %v", allocs)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	tex := singleLevel(32, 16)
	plan, _ := NewPlan(tex, true)

	base := solid(32, 16, 1, 2, 3, 4)
	var got []Size
	err := Generate(plan, base, FilterBox, func(i int, l *texture.PixelBuffer) error {
		if i != plan.Keep+len(got) {
			t.Errorf("out of order index %d", i)
		}
		got = append(got, Size{l.Width, l.Height})
		if r, g, b, a := l.At(0, 0); r != 1 || g != 2 || b != 3 || a != 4 {
			t.Errorf("level %d color %d,%d,%d,%d", i, r, g, b, a)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != plan.Extra() {
		t.Fatalf("generated %d levels, want %d", len(got), plan.Extra())
	}
	if got[len(got)-1] != (Size{1, 1}) {
		t.Errorf("last level %v", got[len(got)-1])
	}

	stop := errors.New("stop")
	calls := 0
	err = Generate(plan, base, FilterBox, func(int, *texture.PixelBuffer) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("expected early stop after 1 call, got %d calls, err %v", calls, err)
	}
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
