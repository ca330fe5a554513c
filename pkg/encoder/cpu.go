package encoder

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/InfinityTools/go-squish"

	"github.com/EchoTools/blpconv/pkg/bcn"
	"github.com/EchoTools/blpconv/pkg/mipmap"
	"github.com/EchoTools/blpconv/pkg/texture"
)

type cpuBackend struct {
	session
	alphaThreshold uint8
	log            *slog.Logger
}

func newCPU(o options) *cpuBackend {
	return &cpuBackend{alphaThreshold: o.alphaThreshold, log: o.logger}
}

func (b *cpuBackend) Name() string          { return string(KindCPU) }
func (b *cpuBackend) Input() InputKind      { return InputPacked }
func (b *cpuBackend) Filter() mipmap.Filter { return mipmap.FilterBox }

func (b *cpuBackend) Initialize(target texture.Target, estimatedSize int) error {
	if err := EnsureInitialized(KindCPU); err != nil {
		return b.fail(err)
	}
	return b.initialize(target, estimatedSize)
}

func (b *cpuBackend) DeclareHeader(width, height, mipCount int, target texture.Target) error {
	return b.declare(width, height, mipCount, target)
}

func (b *cpuBackend) EncodeLevel(index int, px Pixels) error {
	if err := b.begin(index, px); err != nil {
		return err
	}
	buf, ok := px.(*texture.PixelBuffer)
	if !ok {
		return b.fail(fmt.Errorf("%w: cpu backend needs packed pixels, got %T", ErrProtocol, px))
	}

	var data []byte
	var err error
	switch b.target {
	case texture.BC1, texture.BC3:
		data, err = b.compressSquish(buf)
	case texture.BC7:
		data, err = bcn.EncodeImage(buf.Bytes(), buf.Width, buf.Height, texture.BC7, 0)
	}
	if err != nil {
		return b.fail(fmt.Errorf("%w: level %d: %v", ErrEncode, index, err))
	}

	b.log.Debug("encoded level", "backend", b.Name(), "level", index, "width", buf.Width, "height", buf.Height, "bytes", len(data))
	b.commit(data)
	return nil
}

func (b *cpuBackend) Finalize() ([]byte, error) {
	return b.finalize()
}

// compressSquish compresses one level with libsquish cluster fit. The level is padded
// to whole blocks by repeating its last row and column; for BC1 the alpha is
// cut to 0 or 255 at the configured threshold first.
func (b *cpuBackend) compressSquish(buf *texture.PixelBuffer) ([]byte, error) {
	pw, ph := (buf.Width+3)&^3, (buf.Height+3)&^3
	img := image.NewNRGBA(image.Rect(0, 0, pw, ph))
	src := buf.Bytes()
	for y := 0; y < ph; y++ {
		sy := min(y, buf.Height-1)
		for x := 0; x < pw; x++ {
			sx := min(x, buf.Width-1)
			s := (sy*buf.Width + sx) * 4
			copy(img.Pix[img.PixOffset(x, y):], src[s:s+4])
		}
	}

	flags := squish.FLAGS_CLUSTER_FIT
	if b.target == texture.BC1 {
		flags |= squish.FLAGS_DXT1
		for i := 3; i < len(img.Pix); i += 4 {
			if img.Pix[i] < b.alphaThreshold {
				img.Pix[i] = 0
			} else {
				img.Pix[i] = 255
			}
		}
	} else {
		flags |= squish.FLAGS_DXT5
	}

	data := squish.CompressImage(img, flags, squish.METRIC_PERCEPTUAL)
	if want := StorageSize(buf.Width, buf.Height, b.target); len(data) != want {
		return nil, fmt.Errorf("squish produced %d bytes, want %d", len(data), want)
	}
	return data, nil
}
