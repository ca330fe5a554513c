// Package convert turns decoded legacy textures into a raster image of one
// level or a DDS container holding a complete block-compressed mip chain.
//
// Every entry point returns either the output bytes or an *Error tagged with
// a Kind; panics raised while converting are recovered and reported as
// KindUnknown.
package convert

import (
	"fmt"
	"log/slog"

	"github.com/EchoTools/blpconv/pkg/blp"
	"github.com/EchoTools/blpconv/pkg/dds"
	"github.com/EchoTools/blpconv/pkg/encoder"
	"github.com/EchoTools/blpconv/pkg/mipmap"
	"github.com/EchoTools/blpconv/pkg/raster"
	"github.com/EchoTools/blpconv/pkg/texture"
)

// Converter holds conversion settings. It is immutable after New and safe for
// concurrent use.
type Converter struct {
	backend        encoder.Kind
	rasterFormat   raster.Format
	alphaThreshold uint8
	workers        int
	logger         *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithBackend selects the compression backend. The default is KindCPU.
func WithBackend(k encoder.Kind) Option {
	return func(c *Converter) {
		c.backend = k
	}
}

// WithRasterFormat selects the raster output format. The default is PNG.
func WithRasterFormat(f raster.Format) Option {
	return func(c *Converter) {
		c.rasterFormat = f
	}
}

// WithAlphaThreshold sets the BC1 transparency cutoff.
func WithAlphaThreshold(v uint8) Option {
	return func(c *Converter) {
		c.alphaThreshold = v
	}
}

// WithWorkers caps the goroutines used by the parallel backend.
func WithWorkers(n int) Option {
	return func(c *Converter) {
		c.workers = n
	}
}

// WithLogger overrides the package logger for this converter.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) {
		c.logger = l
	}
}

// New returns a converter with the given options applied.
func New(opts ...Option) *Converter {
	c := &Converter{
		backend:        encoder.KindCPU,
		rasterFormat:   raster.FormatPNG,
		alphaThreshold: encoder.DefaultAlphaThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Converter) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return Logger()
}

// guard turns a panic in the conversion into a KindUnknown error.
func (c *Converter) guard(op string, err *error) {
	if r := recover(); r != nil {
		c.log().Warn("recovered panic", "op", op, "panic", r)
		*err = &Error{Kind: KindUnknown, Op: op, Err: fmt.Errorf("panic: %v", r)}
	}
}

// ToRaster encodes level mipIndex of tex as a raster image.
func (c *Converter) ToRaster(tex *texture.Texture, mipIndex int) (out []byte, err error) {
	const op = "raster"
	defer c.guard(op, &err)

	if err := tex.Validate(); err != nil {
		return nil, &Error{Kind: KindDecode, Op: op, Err: err}
	}
	if mipIndex < 0 || mipIndex >= len(tex.Levels) {
		return nil, newError(KindUsage, op, "mip index %d out of range: texture has %d levels", mipIndex, len(tex.Levels))
	}

	buf, err := texture.Extract(tex, mipIndex)
	if err != nil {
		return nil, classify(op, err)
	}
	data, err := raster.Bytes(buf, c.rasterFormat)
	if err != nil {
		return nil, &Error{Kind: KindBackend, Op: op, Err: err}
	}

	c.log().Debug("raster written", "mip", mipIndex, "width", buf.Width, "height", buf.Height, "format", c.rasterFormat, "bytes", len(data))
	return data, nil
}

// ToCompressed encodes tex as a DDS container in the target format. With
// regenerate only level 0 is kept and every smaller level is synthesized;
// otherwise the stored levels are kept and, when there is more than one, the
// chain is completed down to 1x1.
func (c *Converter) ToCompressed(tex *texture.Texture, target texture.Target, regenerate bool) (out []byte, err error) {
	const op = "compress"
	defer c.guard(op, &err)

	if !target.Valid() {
		return nil, classify(op, fmt.Errorf("%w: %v", encoder.ErrUnsupportedFormat, target))
	}
	if err := tex.Validate(); err != nil {
		return nil, &Error{Kind: KindDecode, Op: op, Err: err}
	}

	plan, err := mipmap.NewPlan(tex, regenerate)
	if err != nil {
		return nil, classify(op, err)
	}

	log := c.log().With("backend", c.backend, "target", target)
	be, err := encoder.New(c.backend,
		encoder.WithAlphaThreshold(c.alphaThreshold),
		encoder.WithWorkers(c.workers),
		encoder.WithLogger(log),
	)
	if err != nil {
		return nil, &Error{Kind: KindBackend, Op: op, Err: err}
	}

	base := plan.Base()
	log.Debug("mip plan", "width", base.Width, "height", base.Height, "keep", plan.Keep, "extra", plan.Extra())

	if err := be.Initialize(target, encoder.EstimateSize(plan, target)); err != nil {
		return nil, classify(op, err)
	}
	if err := be.DeclareHeader(base.Width, base.Height, plan.Count(), target); err != nil {
		return nil, classify(op, err)
	}

	last, err := encodeKept(be, tex, plan)
	if err != nil {
		return nil, classify(op, err)
	}
	err = mipmap.Generate(plan, last, be.Filter(), func(i int, level *texture.PixelBuffer) error {
		return be.EncodeLevel(i, levelPixels(be, level))
	})
	if err != nil {
		return nil, classify(op, err)
	}

	payload, err := be.Finalize()
	if err != nil {
		return nil, classify(op, err)
	}

	data, err := dds.Encode(dds.Header{Width: base.Width, Height: base.Height, MipCount: plan.Count(), Format: target}, payload)
	if err != nil {
		return nil, &Error{Kind: KindBackend, Op: op, Err: err}
	}
	log.Debug("container written", "mips", plan.Count(), "bytes", len(data))
	return data, nil
}

// encodeKept feeds the retained source levels to be and returns the packed
// buffer of the last one when levels still have to be synthesized from it.
func encodeKept(be encoder.Backend, tex *texture.Texture, plan mipmap.Plan) (*texture.PixelBuffer, error) {
	var last *texture.PixelBuffer
	for i := 0; i < plan.Keep; i++ {
		needPacked := be.Input() == encoder.InputPacked || i == plan.Keep-1 && plan.Extra() > 0

		var packed *texture.PixelBuffer
		if needPacked {
			var err error
			if packed, err = texture.Extract(tex, i); err != nil {
				return nil, err
			}
		}

		var px encoder.Pixels = packed
		if be.Input() == encoder.InputFloat {
			fb, err := texture.ExtractFloat(tex, i)
			if err != nil {
				return nil, err
			}
			px = fb
		}

		if err := be.EncodeLevel(i, px); err != nil {
			return nil, err
		}
		last = packed
	}
	return last, nil
}

func levelPixels(be encoder.Backend, level *texture.PixelBuffer) encoder.Pixels {
	if be.Input() == encoder.InputFloat {
		return level.Float()
	}
	return level
}

func (c *Converter) decode(op string, data []byte) (tex *texture.Texture, err error) {
	defer c.guard(op, &err)

	tex, err = blp.Decode(data)
	if err != nil {
		return nil, &Error{Kind: KindDecode, Op: op, Err: err}
	}
	c.log().Debug("decoded texture", "model", tex.Model, "width", tex.Width(), "height", tex.Height(), "levels", len(tex.Levels))
	return tex, nil
}

// RasterFromBLP decodes a BLP file and encodes one level as a raster image.
func (c *Converter) RasterFromBLP(data []byte, mipIndex int) ([]byte, error) {
	tex, err := c.decode("raster", data)
	if err != nil {
		return nil, err
	}
	return c.ToRaster(tex, mipIndex)
}

// CompressedFromBLP decodes a BLP file and encodes it as a DDS container.
func (c *Converter) CompressedFromBLP(data []byte, target texture.Target, regenerate bool) ([]byte, error) {
	tex, err := c.decode("compress", data)
	if err != nil {
		return nil, err
	}
	return c.ToCompressed(tex, target, regenerate)
}

var defaultConverter = New()

// ConvertToRasterImage encodes level mipIndex of tex as a PNG image using the
// default converter.
func ConvertToRasterImage(tex *texture.Texture, mipIndex int) ([]byte, error) {
	return defaultConverter.ToRaster(tex, mipIndex)
}

// ConvertToCompressedContainer encodes tex as a DDS container using the
// default converter.
func ConvertToCompressedContainer(tex *texture.Texture, target texture.Target, regenerate bool) ([]byte, error) {
	return defaultConverter.ToCompressed(tex, target, regenerate)
}
