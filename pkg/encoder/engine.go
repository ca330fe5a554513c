package encoder

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/InfinityTools/go-squish"

	"github.com/EchoTools/blpconv/pkg/bcn"
)

// engine is process-wide state prepared once before the first level is
// encoded.
type engine struct {
	once sync.Once
	err  error
	init func() error
}

func (e *engine) ensure() error {
	e.once.Do(func() {
		e.err = e.init()
		if e.err != nil {
			e.err = fmt.Errorf("%w: %v", ErrEngine, e.err)
		}
	})
	return e.err
}

var (
	cpuEngine = &engine{init: func() error {
		bcn.Prepare()
		if n := squish.GetStorageRequirements(4, 4, squish.FLAGS_DXT1); n != 8 {
			return fmt.Errorf("squish reports %d bytes for one BC1 block", n)
		}
		return nil
	}}

	parallelWorkers int
	parallelEngine  = &engine{init: func() error {
		bcn.Prepare()
		parallelWorkers = max(1, runtime.GOMAXPROCS(0))
		return nil
	}}
)

// EnsureInitialized prepares the engine behind kind. Calling it again is a
// no-op; backends call it from Initialize.
func EnsureInitialized(kind Kind) error {
	switch kind {
	case KindCPU:
		return cpuEngine.ensure()
	case KindParallel:
		return parallelEngine.ensure()
	default:
		return fmt.Errorf("unknown backend %q", kind)
	}
}
