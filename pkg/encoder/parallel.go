package encoder

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/EchoTools/blpconv/pkg/bcn"
	"github.com/EchoTools/blpconv/pkg/mipmap"
	"github.com/EchoTools/blpconv/pkg/texture"
)

type parallelBackend struct {
	session
	alphaThreshold uint8
	workers        int
	log            *slog.Logger
}

func newParallel(o options) *parallelBackend {
	return &parallelBackend{alphaThreshold: o.alphaThreshold, workers: o.workers, log: o.logger}
}

func (b *parallelBackend) Name() string          { return string(KindParallel) }
func (b *parallelBackend) Input() InputKind      { return InputFloat }
func (b *parallelBackend) Filter() mipmap.Filter { return mipmap.FilterTriangle }

func (b *parallelBackend) Initialize(target texture.Target, estimatedSize int) error {
	if err := EnsureInitialized(KindParallel); err != nil {
		return b.fail(err)
	}
	if b.workers < 1 {
		b.workers = parallelWorkers
	}
	return b.initialize(target, estimatedSize)
}

func (b *parallelBackend) DeclareHeader(width, height, mipCount int, target texture.Target) error {
	return b.declare(width, height, mipCount, target)
}

func (b *parallelBackend) EncodeLevel(index int, px Pixels) error {
	if err := b.begin(index, px); err != nil {
		return err
	}
	buf, ok := px.(*texture.FloatBuffer)
	if !ok {
		return b.fail(fmt.Errorf("%w: parallel backend needs float planes, got %T", ErrProtocol, px))
	}

	data, err := b.encode(buf)
	if err != nil {
		return b.fail(fmt.Errorf("%w: level %d: %v", ErrEncode, index, err))
	}

	b.log.Debug("encoded level", "backend", b.Name(), "level", index, "width", buf.Width, "height", buf.Height, "workers", b.workers, "bytes", len(data))
	b.commit(data)
	return nil
}

func (b *parallelBackend) Finalize() ([]byte, error) {
	return b.finalize()
}

// floatBlock gathers the 4x4 block at (bx, by) from the planes, clamping
// coordinates past the edges.
func floatBlock(fb *texture.FloatBuffer, bx, by int, out *bcn.Block) {
	n := fb.Width * fb.Height
	for py := 0; py < 4; py++ {
		y := min(by*4+py, fb.Height-1)
		for px := 0; px < 4; px++ {
			x := min(bx*4+px, fb.Width-1)
			i := y*fb.Width + x
			for c := 0; c < 4; c++ {
				v := fb.Data[c*n+i]
				out[py*4+px][c] = uint8(min(max(v, 0), 1)*255 + 0.5)
			}
		}
	}
}

func (b *parallelBackend) encode(fb *texture.FloatBuffer) ([]byte, error) {
	blocksX, blocksY := (fb.Width+3)/4, (fb.Height+3)/4
	totalBlocks := blocksX * blocksY
	bs := b.target.BlockSize()
	out := make([]byte, totalBlocks*bs)

	procs := min(max(b.workers, 1), totalBlocks)

	if procs == 1 {
		var blk bcn.Block
		for idx := 0; idx < totalBlocks; idx++ {
			floatBlock(fb, idx%blocksX, idx/blocksX, &blk)
			if err := bcn.EncodeBlock(out[idx*bs:(idx+1)*bs], &blk, b.target, b.alphaThreshold); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	var next uint32
	var stop uint32
	var firstErr error
	var errOnce sync.Once

	var wg sync.WaitGroup
	wg.Add(procs)
	for w := 0; w < procs; w++ {
		go func() {
			defer wg.Done()
			var blk bcn.Block
			for {
				if atomic.LoadUint32(&stop) != 0 {
					return
				}
				idx := int(atomic.AddUint32(&next, 1) - 1)
				if idx >= totalBlocks {
					return
				}

				floatBlock(fb, idx%blocksX, idx/blocksX, &blk)
				if err := bcn.EncodeBlock(out[idx*bs:(idx+1)*bs], &blk, b.target, b.alphaThreshold); err != nil {
					errOnce.Do(func() {
						firstErr = err
						atomic.StoreUint32(&stop, 1)
					})
					return
				}
			}
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
