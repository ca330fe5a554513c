// Package mipmap plans and synthesizes the missing tail of a mip chain.
//
// A plan keeps some leading source levels and fills in the rest, halving each
// dimension (clamped at 1) until a 1x1 level is reached.
package mipmap

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/EchoTools/blpconv/pkg/texture"
)

// MaxPixels caps the size of a single synthesized level.
const MaxPixels = 1 << 28

// ErrAllocation is returned when a level buffer cannot be allocated.
var ErrAllocation = errors.New("mipmap: level allocation failed")

// Size is the dimension of one planned level.
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Next returns the following level size.
func (s Size) Next() Size {
	return Size{Width: max(1, s.Width/2), Height: max(1, s.Height/2)}
}

// MaxMips returns floor(log2(max(width, height))) + 1, the number of levels
// from the base resolution down to 1x1.
func MaxMips(width, height int) int {
	m := max(width, height)
	if m < 1 {
		return 0
	}
	return bits.Len(uint(m))
}

// ExtraMips returns how many levels must be synthesized after keep retained
// levels. A single-level source that is not regenerated stays single-level.
func ExtraMips(maxMips, keep, sourceLevels int, regenerate bool) int {
	if !regenerate && sourceLevels <= 1 {
		return 0
	}
	return max(0, maxMips-keep)
}

// Plan lists every output level. The first Keep entries come from the source
// texture, the rest are synthesized.
type Plan struct {
	Levels []Size
	Keep   int
}

// Count returns the total number of levels.
func (p Plan) Count() int {
	return len(p.Levels)
}

// Extra returns the number of synthesized levels.
func (p Plan) Extra() int {
	return len(p.Levels) - p.Keep
}

// Base returns the level 0 size.
func (p Plan) Base() Size {
	return p.Levels[0]
}

// NewPlan computes the plan for tex. With regenerate only level 0 is kept.
func NewPlan(tex *texture.Texture, regenerate bool) (Plan, error) {
	if len(tex.Levels) == 0 {
		return Plan{}, errors.New("mipmap: texture has no levels")
	}

	base := tex.Levels[0]
	maxMips := MaxMips(base.Width, base.Height)

	keep := len(tex.Levels)
	if regenerate {
		keep = 1
	}
	keep = min(keep, maxMips)

	extra := ExtraMips(maxMips, keep, len(tex.Levels), regenerate)

	p := Plan{Keep: keep, Levels: make([]Size, 0, keep+extra)}
	for i := 0; i < keep; i++ {
		l := tex.Levels[i]
		p.Levels = append(p.Levels, Size{Width: l.Width, Height: l.Height})
	}

	last := p.Levels[keep-1]
	for i := 0; i < extra; i++ {
		if last.Width == 1 && last.Height == 1 {
			break
		}
		last = last.Next()
		p.Levels = append(p.Levels, last)
	}
	return p, nil
}
