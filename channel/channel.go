package channel

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/ara-ipc/errors"
	"github.com/wippyai/ara-ipc/message"
	"github.com/wippyai/ara-ipc/method"
)

// Mode selects who services inbound requests when no send is pending.
type Mode int

const (
	// ModeForeground: the owning goroutine drives dispatch via Pump (or
	// implicitly while blocked in SendAndAwaitReply).
	ModeForeground Mode = iota

	// ModeBackground: a dedicated goroutine perpetually services inbound
	// requests, so the owner never has to pump.
	ModeBackground
)

// DispatchFunc services one decoded inbound request and produces the
// reply body. Handlers may issue nested calls on the same channel.
type DispatchFunc func(id method.ID, body *message.Message) (*message.Message, error)

// DefaultTimeout bounds every blocking send. Expiry is a protocol failure,
// not a recoverable condition.
const DefaultTimeout = 5 * time.Minute

// Options configures a Chan.
type Options struct {
	// Codec encodes and decodes message payloads. Defaults to message.Binary.
	Codec message.Codec

	// Mode selects the threading model. Defaults to ModeForeground.
	Mode Mode

	// Timeout bounds each blocking send. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// frame type tags on the wire
const (
	frameRequest = 1
	frameReply   = 2
)

// reply status
const (
	statusOK  = 0
	statusErr = 1
)

// keys of the error-reply body
const (
	errKeyPhase  message.Key = 0
	errKeyKind   message.Key = 8
	errKeyDetail message.Key = 16
)

type inbound struct {
	payload []byte
	seq     uint32
	id      method.ID
}

type replyFrame struct {
	payload []byte
	err     error
}

// Chan is one bidirectional channel of a connection. It sends requests,
// awaits their replies, and dispatches the peer's requests, all over one
// Port.
type Chan struct {
	port     Port
	codec    message.Codec
	dispatch DispatchFunc
	mode     Mode
	timeout  time.Duration
	log      *zap.Logger

	sendMu sync.Mutex // held across a single frame write only

	pendingMu sync.Mutex
	pending   map[uint32]chan replyFrame
	seq       atomic.Uint32

	reqCh chan inbound

	callbackLevel atomic.Int32
	awaiting      atomic.Int32

	closed    chan struct{}
	closeOnce sync.Once
	failMu    sync.Mutex
	failErr   error // error that tore the channel down
}

// New wraps port in a Chan and starts its receive machinery. dispatch is
// invoked for every inbound request; it must be non-nil.
func New(port Port, dispatch DispatchFunc, opts Options) *Chan {
	if opts.Codec == nil {
		opts.Codec = message.Binary
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	c := &Chan{
		port:     port,
		codec:    opts.Codec,
		dispatch: dispatch,
		mode:     opts.Mode,
		timeout:  opts.Timeout,
		log:      Logger(),
		pending:  make(map[uint32]chan replyFrame),
		reqCh:    make(chan inbound, 256),
		closed:   make(chan struct{}),
	}
	go c.readLoop()
	if c.mode == ModeBackground {
		go c.serviceLoop()
	}
	return c
}

// Codec returns the message codec this channel was configured with.
func (c *Chan) Codec() message.Codec {
	return c.codec
}

// CallbackLevel returns the current inbound-dispatch nesting depth.
func (c *Chan) CallbackLevel() int32 {
	return c.callbackLevel.Load()
}

// AwaitsReply reports whether at least one send is awaiting its reply.
func (c *Chan) AwaitsReply() bool {
	return c.awaiting.Load() > 0
}

// SendAndAwaitReply encodes body, transmits it under id, and blocks until
// the peer's reply arrives. Inbound requests that arrive while waiting are
// serviced from this goroutine, so the peer can call back into this
// process before replying.
func (c *Chan) SendAndAwaitReply(id method.ID, body *message.Message) (*message.Message, error) {
	select {
	case <-c.closed:
		return nil, c.closeError()
	default:
	}

	payload, err := c.codec.Encode(body)
	if err != nil {
		return nil, err
	}

	seq := c.seq.Add(1)
	rc := make(chan replyFrame, 1)
	c.pendingMu.Lock()
	c.pending[seq] = rc
	c.pendingMu.Unlock()

	frame := make([]byte, 9+len(payload))
	frame[0] = frameRequest
	binary.LittleEndian.PutUint32(frame[1:5], seq)
	binary.LittleEndian.PutUint32(frame[5:9], uint32(id))
	copy(frame[9:], payload)

	c.awaiting.Add(1)
	defer c.awaiting.Add(-1)

	c.sendMu.Lock()
	err = c.port.WriteFrame(frame)
	c.sendMu.Unlock()
	if err != nil {
		c.forgetPending(seq)
		return nil, err
	}

	c.log.Debug("sent request",
		zap.Stringer("method", id),
		zap.Uint32("seq", seq),
		zap.Int("bytes", len(payload)))

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	for {
		select {
		case r := <-rc:
			if r.err != nil {
				return nil, r.err
			}
			return c.codec.Decode(r.payload)

		case req := <-c.reqCh:
			// Reentrant service of the peer's nested request.
			c.service(req)

		case <-timer.C:
			c.forgetPending(seq)
			return nil, errors.New(errors.PhaseTransport, errors.KindTimeout).
				Method(id.String()).
				Detail("no reply within %v", c.timeout).
				Build()

		case <-c.closed:
			c.forgetPending(seq)
			return nil, c.closeError()
		}
	}
}

// Pump services inbound requests until the channel closes or stop is
// closed. In ModeForeground the owning goroutine must either sit in Pump
// or be blocked in SendAndAwaitReply for the peer to make progress.
func (c *Chan) Pump(stop <-chan struct{}) error {
	for {
		select {
		case req := <-c.reqCh:
			c.service(req)
		case <-c.closed:
			return c.closeError()
		case <-stop:
			return nil
		}
	}
}

func (c *Chan) readLoop() {
	for {
		frame, err := c.port.ReadFrame()
		if err != nil {
			c.fail(err)
			return
		}
		if len(frame) < 5 {
			c.fail(errors.ProtocolViolation(errors.PhaseTransport, "short frame of %d bytes", len(frame)))
			return
		}
		seq := binary.LittleEndian.Uint32(frame[1:5])
		switch frame[0] {
		case frameRequest:
			if len(frame) < 9 {
				c.fail(errors.ProtocolViolation(errors.PhaseTransport, "request frame of %d bytes", len(frame)))
				return
			}
			id := method.ID(int32(binary.LittleEndian.Uint32(frame[5:9])))
			select {
			case c.reqCh <- inbound{seq: seq, id: id, payload: frame[9:]}:
			case <-c.closed:
				return
			}

		case frameReply:
			if len(frame) < 6 {
				c.fail(errors.ProtocolViolation(errors.PhaseTransport, "reply frame of %d bytes", len(frame)))
				return
			}
			c.routeReply(seq, frame[5], frame[6:])

		default:
			c.fail(errors.ProtocolViolation(errors.PhaseTransport, "unknown frame type %d", frame[0]))
			return
		}
	}
}

func (c *Chan) routeReply(seq uint32, status byte, payload []byte) {
	c.pendingMu.Lock()
	rc, ok := c.pending[seq]
	delete(c.pending, seq)
	c.pendingMu.Unlock()
	if !ok {
		// A reply nobody is waiting for means the pairing broke.
		c.log.Warn("reply with no pending request", zap.Uint32("seq", seq))
		return
	}
	if status == statusOK {
		rc <- replyFrame{payload: payload}
		return
	}
	rc <- replyFrame{err: c.decodeErrorReply(payload)}
}

func (c *Chan) decodeErrorReply(payload []byte) error {
	body, err := c.codec.Decode(payload)
	if err != nil {
		return errors.ProtocolViolation(errors.PhaseTransport, "undecodable error reply")
	}
	phase, _ := body.String(errKeyPhase)
	kind, _ := body.String(errKeyKind)
	detail, _ := body.String(errKeyDetail)
	return &errors.Error{
		Phase:  errors.Phase(phase),
		Kind:   errors.Kind(kind),
		Detail: detail,
	}
}

func (c *Chan) serviceLoop() {
	for {
		select {
		case req := <-c.reqCh:
			c.service(req)
		case <-c.closed:
			return
		}
	}
}

// service dispatches one inbound request and transmits its reply.
func (c *Chan) service(req inbound) {
	level := c.callbackLevel.Add(1)
	defer c.callbackLevel.Add(-1)

	c.log.Debug("servicing request",
		zap.Stringer("method", req.id),
		zap.Uint32("seq", req.seq),
		zap.Int32("level", level))

	body, err := c.codec.Decode(req.payload)
	var reply *message.Message
	if err == nil {
		reply, err = c.dispatch(req.id, body)
	}

	var frame []byte
	if err != nil {
		frame, err = c.encodeErrorReply(req.seq, err)
	} else {
		frame, err = c.encodeOKReply(req.seq, reply)
	}
	if err != nil {
		c.log.Error("cannot encode reply", zap.Stringer("method", req.id), zap.Error(err))
		return
	}

	c.sendMu.Lock()
	err = c.port.WriteFrame(frame)
	c.sendMu.Unlock()
	if err != nil {
		c.log.Error("cannot send reply", zap.Stringer("method", req.id), zap.Error(err))
	}
}

func (c *Chan) encodeOKReply(seq uint32, reply *message.Message) ([]byte, error) {
	if reply == nil {
		reply = message.New()
	}
	payload, err := c.codec.Encode(reply)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 6+len(payload))
	frame[0] = frameReply
	binary.LittleEndian.PutUint32(frame[1:5], seq)
	frame[5] = statusOK
	copy(frame[6:], payload)
	return frame, nil
}

func (c *Chan) encodeErrorReply(seq uint32, derr error) ([]byte, error) {
	body := message.New()
	if e, ok := derr.(*errors.Error); ok {
		_ = body.AppendString(errKeyPhase, string(e.Phase))
		_ = body.AppendString(errKeyKind, string(e.Kind))
		_ = body.AppendString(errKeyDetail, e.Detail)
	} else {
		_ = body.AppendString(errKeyPhase, string(errors.PhaseDispatch))
		_ = body.AppendString(errKeyKind, string(errors.KindInvalidData))
		_ = body.AppendString(errKeyDetail, derr.Error())
	}
	payload, err := c.codec.Encode(body)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 6+len(payload))
	frame[0] = frameReply
	binary.LittleEndian.PutUint32(frame[1:5], seq)
	frame[5] = statusErr
	copy(frame[6:], payload)
	return frame, nil
}

func (c *Chan) forgetPending(seq uint32) {
	c.pendingMu.Lock()
	delete(c.pending, seq)
	c.pendingMu.Unlock()
}

// fail tears the channel down after a transport error and unblocks every
// pending sender.
func (c *Chan) fail(err error) {
	c.failMu.Lock()
	if c.failErr == nil {
		c.failErr = asFailure(err)
	}
	c.failMu.Unlock()
	c.closeOnce.Do(func() { close(c.closed) })

	c.pendingMu.Lock()
	for seq, rc := range c.pending {
		rc <- replyFrame{err: c.closeError()}
		delete(c.pending, seq)
	}
	c.pendingMu.Unlock()
}

func asFailure(err error) error {
	if _, ok := err.(*errors.Error); ok {
		return err
	}
	return errors.PeerDisconnected(err)
}

func (c *Chan) closeError() error {
	c.failMu.Lock()
	defer c.failMu.Unlock()
	if c.failErr != nil {
		return c.failErr
	}
	return errors.Closed("channel")
}

// Close tears the channel down. Pending senders are unblocked with a
// channel_closed error.
func (c *Chan) Close() error {
	c.failMu.Lock()
	if c.failErr == nil {
		c.failErr = errors.Closed("channel")
	}
	c.failMu.Unlock()
	err := c.port.Close()
	c.fail(errors.Closed("channel"))
	return err
}
