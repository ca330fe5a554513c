// Package encoder adapts block-compression engines to a four-step protocol:
// Initialize, DeclareHeader, EncodeLevel for each level in ascending order,
// then Finalize. Two interchangeable backends are provided.
package encoder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/EchoTools/blpconv/pkg/bcn"
	"github.com/EchoTools/blpconv/pkg/mipmap"
	"github.com/EchoTools/blpconv/pkg/texture"
)

var (
	ErrUnsupportedFormat = errors.New("encoder: unsupported format")
	ErrProtocol          = errors.New("encoder: protocol violation")
	ErrEncode            = errors.New("encoder: encode failed")
	ErrEngine            = errors.New("encoder: engine initialization failed")
)

// Kind names a backend.
type Kind string

const (
	// KindCPU feeds packed buffers to libsquish (BC1/BC3) and the in-house
	// BC7 encoder, one block at a time. Generated levels use the box filter.
	KindCPU Kind = "cpu"
	// KindParallel feeds float planes to the in-house block encoders spread
	// over GOMAXPROCS workers. Generated levels use the triangle filter.
	KindParallel Kind = "parallel"
)

// ParseKind accepts "cpu" and "parallel".
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindCPU, KindParallel:
		return k, nil
	default:
		return "", fmt.Errorf("unknown backend %q", s)
	}
}

// InputKind is the pixel representation a backend consumes.
type InputKind uint8

const (
	InputPacked InputKind = iota // *texture.PixelBuffer
	InputFloat                   // *texture.FloatBuffer
)

// Pixels is a level in either representation.
type Pixels interface {
	Size() (width, height int)
}

// Backend is one encoding session. A Backend is not reusable: create a new
// one per conversion.
type Backend interface {
	Name() string
	Input() InputKind
	Filter() mipmap.Filter

	Initialize(target texture.Target, estimatedSize int) error
	DeclareHeader(width, height, mipCount int, target texture.Target) error
	EncodeLevel(index int, px Pixels) error
	Finalize() ([]byte, error)
}

// DefaultAlphaThreshold keeps BC1 punch-through for fully transparent texels only.
const DefaultAlphaThreshold = 1

type options struct {
	alphaThreshold uint8
	workers        int
	logger         *slog.Logger
}

// Option configures a backend.
type Option func(*options)

// WithAlphaThreshold sets the BC1 cutoff: texels with alpha below it are
// encoded transparent.
func WithAlphaThreshold(v uint8) Option {
	return func(o *options) {
		o.alphaThreshold = v
	}
}

// WithWorkers overrides the worker count of the parallel backend.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates a backend session of the given kind.
func New(kind Kind, opts ...Option) (Backend, error) {
	o := options{
		alphaThreshold: DefaultAlphaThreshold,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	switch kind {
	case KindCPU:
		return newCPU(o), nil
	case KindParallel:
		return newParallel(o), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", kind)
	}
}

// StorageSize returns the compressed byte size of one level.
func StorageSize(width, height int, target texture.Target) int {
	return bcn.StorageSize(width, height, target)
}

// EstimateSize returns the compressed payload size of every level in plan.
func EstimateSize(plan mipmap.Plan, target texture.Target) int {
	n := 0
	for _, s := range plan.Levels {
		n += StorageSize(s.Width, s.Height, target)
	}
	return n
}
