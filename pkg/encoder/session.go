package encoder

import (
	"fmt"

	"github.com/EchoTools/blpconv/pkg/texture"
)

type state uint8

const (
	stateNew state = iota
	stateInitialized
	stateDeclared
	stateFinalized
	stateFailed
)

// session tracks the protocol state shared by both backends and collects the
// encoded levels.
type session struct {
	state  state
	target texture.Target

	width, height int
	mipCount      int
	next          int

	payload []byte
}

func (s *session) fail(err error) error {
	s.state = stateFailed
	s.payload = nil
	return err
}

func (s *session) initialize(target texture.Target, estimatedSize int) error {
	if s.state != stateNew {
		return s.fail(fmt.Errorf("%w: initialize called twice", ErrProtocol))
	}
	if !target.Valid() {
		return s.fail(fmt.Errorf("%w: %v", ErrUnsupportedFormat, target))
	}
	s.target = target
	s.payload = make([]byte, 0, max(estimatedSize, 0))
	s.state = stateInitialized
	return nil
}

func (s *session) declare(width, height, mipCount int, target texture.Target) error {
	if s.state != stateInitialized {
		return s.fail(fmt.Errorf("%w: header declared out of order", ErrProtocol))
	}
	if target != s.target {
		return s.fail(fmt.Errorf("%w: header target %v does not match %v", ErrProtocol, target, s.target))
	}
	if width < 1 || height < 1 || mipCount < 1 {
		return s.fail(fmt.Errorf("%w: invalid header %dx%d with %d levels", ErrProtocol, width, height, mipCount))
	}
	s.width, s.height, s.mipCount = width, height, mipCount
	s.state = stateDeclared
	return nil
}

// levelSize returns the dimensions expected for level index.
func (s *session) levelSize(index int) (int, int) {
	return max(1, s.width>>index), max(1, s.height>>index)
}

// begin validates the next EncodeLevel call.
func (s *session) begin(index int, px Pixels) error {
	if s.state != stateDeclared {
		return s.fail(fmt.Errorf("%w: level %d encoded before header", ErrProtocol, index))
	}
	if index != s.next {
		return s.fail(fmt.Errorf("%w: got level %d, expected %d", ErrProtocol, index, s.next))
	}
	if index >= s.mipCount {
		return s.fail(fmt.Errorf("%w: level %d past declared count %d", ErrProtocol, index, s.mipCount))
	}
	if px == nil {
		return s.fail(fmt.Errorf("%w: level %d has no pixels", ErrProtocol, index))
	}
	w, h := px.Size()
	ew, eh := s.levelSize(index)
	if w != ew || h != eh {
		return s.fail(fmt.Errorf("%w: level %d is %dx%d, expected %dx%d", ErrProtocol, index, w, h, ew, eh))
	}
	return nil
}

func (s *session) commit(data []byte) {
	s.payload = append(s.payload, data...)
	s.next++
}

func (s *session) finalize() ([]byte, error) {
	if s.state != stateDeclared {
		return nil, s.fail(fmt.Errorf("%w: finalize in wrong state", ErrProtocol))
	}
	if s.next != s.mipCount {
		return nil, s.fail(fmt.Errorf("%w: %d of %d levels encoded", ErrProtocol, s.next, s.mipCount))
	}
	out := s.payload
	s.payload = nil
	s.state = stateFinalized
	return out, nil
}
