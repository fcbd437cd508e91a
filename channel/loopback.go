package channel

import (
	"sync"

	"github.com/wippyai/ara-ipc/errors"
)

// loopbackPort is one end of an in-process Port pair. It exists for tests
// and for running the "remote" side in-process during development.
type loopbackPort struct {
	in       <-chan []byte
	out      chan<- []byte
	done     chan struct{}
	peerDone chan struct{}
	once     *sync.Once
	maxFrame int
}

// NewLoopbackPair returns two connected Ports. Frames written to one end
// are read from the other. maxFrame <= 0 selects DefaultMaxFrame.
func NewLoopbackPair(maxFrame int) (Port, Port) {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrame
	}
	ab := make(chan []byte, 16)
	ba := make(chan []byte, 16)
	aDone := make(chan struct{})
	bDone := make(chan struct{})
	a := &loopbackPort{in: ba, out: ab, done: aDone, peerDone: bDone, once: &sync.Once{}, maxFrame: maxFrame}
	b := &loopbackPort{in: ab, out: ba, done: bDone, peerDone: aDone, once: &sync.Once{}, maxFrame: maxFrame}
	return a, b
}

func (p *loopbackPort) ReadFrame() ([]byte, error) {
	select {
	case frame := <-p.in:
		return frame, nil
	case <-p.done:
		return nil, errors.Closed("loopback port")
	case <-p.peerDone:
		// Drain frames already in flight before reporting disconnect.
		select {
		case frame := <-p.in:
			return frame, nil
		default:
			return nil, errors.PeerDisconnected(errors.Closed("loopback peer"))
		}
	}
}

func (p *loopbackPort) WriteFrame(frame []byte) error {
	if len(frame) > p.maxFrame {
		return errors.FrameTooLarge(len(frame), p.maxFrame)
	}
	buf := make([]byte, len(frame))
	copy(buf, frame)
	select {
	case p.out <- buf:
		return nil
	case <-p.done:
		return errors.Closed("loopback port")
	case <-p.peerDone:
		return errors.PeerDisconnected(errors.Closed("loopback peer"))
	}
}

func (p *loopbackPort) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
