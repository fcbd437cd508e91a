package channel

import (
	"encoding/binary"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/wippyai/ara-ipc/errors"
)

// DefaultMaxFrame bounds a single transport frame. Callers move larger
// payloads by chunking at the proxy layer, never by growing the frame.
const DefaultMaxFrame = 512 * 1024

// Port moves opaque frames between two processes. A Port must allow one
// concurrent reader and one concurrent writer.
type Port interface {
	// ReadFrame blocks until the next frame arrives.
	ReadFrame() ([]byte, error)

	// WriteFrame transmits one frame. Frames over the port's size bound
	// are rejected with a frame_too_large error.
	WriteFrame(frame []byte) error

	Close() error
}

// NewRendezvousID returns a fresh process-unique connection identifier.
// The two channels of a connection derive their port names from it via
// MainID and OtherThreadsID.
func NewRendezvousID() string {
	return uuid.NewString()
}

// MainID names the channel driven by the model thread.
func MainID(rendezvous string) string {
	return rendezvous + ".main"
}

// OtherThreadsID names the channel used by concurrent render threads.
func OtherThreadsID(rendezvous string) string {
	return rendezvous + ".other"
}

func socketPath(id string) string {
	return filepath.Join(os.TempDir(), "ara-ipc-"+id+".sock")
}

// socketPort frames a stream connection with a 4-byte little-endian
// length prefix.
type socketPort struct {
	conn     net.Conn
	maxFrame int
}

func newSocketPort(conn net.Conn, maxFrame int) *socketPort {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrame
	}
	return &socketPort{conn: conn, maxFrame: maxFrame}
}

func (p *socketPort) ReadFrame() ([]byte, error) {
	var head [4]byte
	if _, err := io.ReadFull(p.conn, head[:]); err != nil {
		return nil, err
	}
	n := int(binary.LittleEndian.Uint32(head[:]))
	if n > p.maxFrame {
		return nil, errors.FrameTooLarge(n, p.maxFrame)
	}
	frame := make([]byte, n)
	if _, err := io.ReadFull(p.conn, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func (p *socketPort) WriteFrame(frame []byte) error {
	if len(frame) > p.maxFrame {
		return errors.FrameTooLarge(len(frame), p.maxFrame)
	}
	buf := make([]byte, 4+len(frame))
	binary.LittleEndian.PutUint32(buf, uint32(len(frame)))
	copy(buf[4:], frame)
	if _, err := p.conn.Write(buf); err != nil {
		return errors.PeerDisconnected(err)
	}
	return nil
}

func (p *socketPort) Close() error {
	return p.conn.Close()
}

// Listener publishes one half of a channel pair under a rendezvous ID.
type Listener struct {
	l        net.Listener
	path     string
	maxFrame int
}

// Publish creates the listening endpoint for the named channel. The
// remote process connects to the same ID via Connect.
func Publish(id string, maxFrame int) (*Listener, error) {
	path := socketPath(id)
	_ = os.Remove(path) // stale socket from a crashed predecessor
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseTransport, errors.KindInvalidData, err, "publish channel "+id)
	}
	return &Listener{l: l, path: path, maxFrame: maxFrame}, nil
}

// Accept waits for the remote process to connect and returns the Port.
func (l *Listener) Accept() (Port, error) {
	conn, err := l.l.Accept()
	if err != nil {
		return nil, errors.PeerDisconnected(err)
	}
	return newSocketPort(conn, l.maxFrame), nil
}

// Close tears down the listening endpoint.
func (l *Listener) Close() error {
	err := l.l.Close()
	_ = os.Remove(l.path)
	return err
}

// Connect dials the named channel, retrying until the publishing side is
// up or the timeout expires. The spawned process always races its parent
// to the rendezvous point, so a few failed dials are expected.
func Connect(id string, maxFrame int, timeout time.Duration) (Port, error) {
	path := socketPath(id)
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.Dial("unix", path)
		if err == nil {
			return newSocketPort(conn, maxFrame), nil
		}
		if time.Now().After(deadline) {
			return nil, errors.Timeout("connect to channel "+id, timeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
