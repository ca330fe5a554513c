package convert

import (
	"errors"
	"fmt"

	"github.com/EchoTools/blpconv/pkg/blp"
	"github.com/EchoTools/blpconv/pkg/encoder"
	"github.com/EchoTools/blpconv/pkg/mipmap"
	"github.com/EchoTools/blpconv/pkg/texture"
)

// Kind classifies a conversion failure.
type Kind uint8

const (
	// KindUnknown covers panics and errors no other kind claims.
	KindUnknown Kind = iota
	// KindDecode means the source texture was malformed.
	KindDecode
	// KindUsage means the caller asked for something the texture cannot
	// provide, such as a mip level it does not have.
	KindUsage
	// KindAllocation means a level buffer could not be allocated.
	KindAllocation
	// KindBackend means the compression engine or an output writer failed.
	KindBackend
)

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindUsage:
		return "usage"
	case KindAllocation:
		return "allocation"
	case KindBackend:
		return "backend"
	default:
		return "unknown"
	}
}

// Error is returned by every public conversion entry point.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("convert %s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindUnknown for errors that did not come
// from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// classify tags err with the kind implied by the sentinel it wraps.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	kind := KindUnknown
	switch {
	case errors.Is(err, texture.ErrInvalidTexture),
		errors.Is(err, blp.ErrBadBLP),
		errors.Is(err, blp.ErrUnsupportedBLP):
		kind = KindDecode
	case errors.Is(err, mipmap.ErrAllocation):
		kind = KindAllocation
	case errors.Is(err, encoder.ErrUnsupportedFormat),
		errors.Is(err, encoder.ErrProtocol),
		errors.Is(err, encoder.ErrEncode),
		errors.Is(err, encoder.ErrEngine):
		kind = KindBackend
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func newError(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}
