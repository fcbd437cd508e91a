package remote

import (
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/wippyai/ara-ipc/ara"
	"github.com/wippyai/ara-ipc/channel"
	"github.com/wippyai/ara-ipc/errors"
	"github.com/wippyai/ara-ipc/message"
	"github.com/wippyai/ara-ipc/method"
)

// Handler services decoded inbound requests for one interface tag.
type Handler interface {
	Dispatch(id method.ID, body *message.Message) (*message.Message, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(id method.ID, body *message.Message) (*message.Message, error)

// Dispatch implements Handler.
func (f HandlerFunc) Dispatch(id method.ID, body *message.Message) (*message.Message, error) {
	return f(id, body)
}

// handshake message keys
const (
	hsKeyVersion message.Key = 0
	hsKeyCodec   message.Key = 8
)

// Config assembles a Connection from its two transport ports.
type Config struct {
	// MainPort carries model-thread traffic, OtherPort render-thread
	// traffic. Both are required.
	MainPort  channel.Port
	OtherPort channel.Port

	// Codec is the wire codec both sides agreed on out of band (it is
	// part of the spawn arguments). Defaults to message.Binary.
	Codec message.Codec

	// MainMode selects who pumps the main channel. The host side runs
	// it in the background; the remote process drives it from its
	// dispatch loop in the foreground.
	MainMode channel.Mode

	// Timeout bounds every blocking send.
	Timeout time.Duration
}

// Connection is one process's end of a host/plug-in pair.
type Connection struct {
	main  *channel.Chan
	other *channel.Chan
	codec message.Codec
	log   *zap.Logger

	mu         sync.RWMutex
	handlers   [method.NumTags]Handler
	factory    Handler
	negotiated *semver.Version

	done     chan struct{}
	doneOnce sync.Once
}

// NewConnection wires the two channels and starts their receive
// machinery. Handlers can be registered before or after, but must be in
// place before the peer starts calling.
func NewConnection(cfg Config) *Connection {
	if cfg.Codec == nil {
		cfg.Codec = message.Binary
	}
	c := &Connection{
		codec: cfg.Codec,
		log:   Logger(),
		done:  make(chan struct{}),
	}
	c.main = channel.New(cfg.MainPort, c.dispatch, channel.Options{
		Codec:   cfg.Codec,
		Mode:    cfg.MainMode,
		Timeout: cfg.Timeout,
	})
	// Render-thread traffic is always serviced in the background; no run
	// loop of either process owns it.
	c.other = channel.New(cfg.OtherPort, c.dispatch, channel.Options{
		Codec:   cfg.Codec,
		Mode:    channel.ModeBackground,
		Timeout: cfg.Timeout,
	})
	return c
}

// RegisterHandler routes inbound requests tagged for one interface.
func (c *Connection) RegisterHandler(tag method.Tag, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[tag] = h
}

// RegisterFactory services the global createDocumentController message.
// Only the plug-in side registers one.
func (c *Connection) RegisterFactory(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factory = h
}

// Call sends a blocking request on the main channel.
func (c *Connection) Call(id method.ID, body *message.Message) (*message.Message, error) {
	return c.main.SendAndAwaitReply(id, body)
}

// CallRender sends a blocking request on the other-threads channel.
// Safe to use concurrently with main-channel traffic.
func (c *Connection) CallRender(id method.ID, body *message.Message) (*message.Message, error) {
	return c.other.SendAndAwaitReply(id, body)
}

// Handshake announces our API version and codec to the peer and
// negotiates the common version. The spawning side initiates.
func (c *Connection) Handshake() error {
	body := message.New()
	if err := body.AppendString(hsKeyVersion, ara.APIVersion); err != nil {
		return err
	}
	if err := body.AppendString(hsKeyCodec, c.codec.Name()); err != nil {
		return err
	}
	reply, err := c.Call(method.IDHandshake, body)
	if err != nil {
		return errors.Wrap(errors.PhaseHandshake, errors.KindVersionMismatch, err, "handshake refused")
	}
	remoteVersion, err := reply.String(hsKeyVersion)
	if err != nil {
		return errors.Wrap(errors.PhaseHandshake, errors.KindInvalidData, err, "handshake reply")
	}
	return c.negotiate(remoteVersion)
}

func (c *Connection) negotiate(remoteVersion string) error {
	local := semver.MustParse(ara.APIVersion)
	remote, err := semver.NewVersion(remoteVersion)
	if err != nil {
		return errors.Wrap(errors.PhaseHandshake, errors.KindInvalidData, err, "peer API version")
	}
	if remote.Major() != local.Major() {
		return errors.VersionMismatch(ara.APIVersion, remoteVersion)
	}
	negotiated := local
	if remote.LessThan(local) {
		negotiated = remote
	}
	c.mu.Lock()
	c.negotiated = negotiated
	c.mu.Unlock()
	c.log.Info("handshake complete",
		zap.String("local", ara.APIVersion),
		zap.String("remote", remoteVersion),
		zap.String("negotiated", negotiated.String()))
	return nil
}

// NegotiatedVersion returns the common API version, or nil before the
// handshake completed.
func (c *Connection) NegotiatedVersion() *semver.Version {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.negotiated
}

// SupportsColor reports whether the negotiated generation carries the
// optional display-color member of audio source properties.
func (c *Connection) SupportsColor() bool {
	v := c.NegotiatedVersion()
	return v != nil && !v.LessThan(semver.MustParse("2.3.0"))
}

func (c *Connection) handleHandshake(body *message.Message) (*message.Message, error) {
	peerCodec, err := body.String(hsKeyCodec)
	if err != nil {
		return nil, err
	}
	if peerCodec != c.codec.Name() {
		return nil, errors.ProtocolViolation(errors.PhaseHandshake,
			"peer codec %q, this side uses %q", peerCodec, c.codec.Name())
	}
	remoteVersion, err := body.String(hsKeyVersion)
	if err != nil {
		return nil, err
	}
	if err := c.negotiate(remoteVersion); err != nil {
		return nil, err
	}
	reply := message.New()
	if err := reply.AppendString(hsKeyVersion, ara.APIVersion); err != nil {
		return nil, err
	}
	return reply, nil
}

// dispatch routes every inbound request of both channels.
func (c *Connection) dispatch(id method.ID, body *message.Message) (*message.Message, error) {
	if id.Global() {
		switch id {
		case method.IDHandshake:
			return c.handleHandshake(body)
		case method.IDTerminate:
			c.doneOnce.Do(func() { close(c.done) })
			return message.New(), nil
		case method.IDCreateDocumentController:
			c.mu.RLock()
			factory := c.factory
			c.mu.RUnlock()
			if factory == nil {
				return nil, errors.ProtocolViolation(errors.PhaseDispatch,
					"createDocumentController sent to a side without a factory")
			}
			return factory.Dispatch(id, body)
		}
		return nil, errors.ProtocolViolation(errors.PhaseDispatch, "unknown global message %d", int32(id))
	}
	if !id.Valid() {
		return nil, errors.ProtocolViolation(errors.PhaseDispatch, "malformed method ID %d", int32(id))
	}

	c.mu.RLock()
	h := c.handlers[id.Tag()]
	c.mu.RUnlock()
	if h == nil {
		return nil, errors.New(errors.PhaseDispatch, errors.KindProtocolViolation).
			Method(id.String()).
			Detail("no handler registered for %s", id.Tag()).
			Build()
	}
	return h.Dispatch(id, body)
}

// Terminate asks the peer to leave its dispatch loop. The empty reply
// confirms the peer saw the request before the channels go down.
func (c *Connection) Terminate() error {
	_, err := c.Call(method.IDTerminate, message.New())
	return err
}

// Done is closed once the peer's terminate request arrived.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// RunLoop drives the main channel's dispatch until terminate arrives or
// the channel fails. The remote process's main goroutine lives here.
func (c *Connection) RunLoop() error {
	err := c.main.Pump(c.done)
	if errors.IsKind(err, errors.KindChannelClosed) {
		return nil
	}
	return err
}

// Close tears both channels down.
func (c *Connection) Close() error {
	c.doneOnce.Do(func() { close(c.done) })
	errMain := c.main.Close()
	errOther := c.other.Close()
	if errMain != nil {
		return errMain
	}
	return errOther
}

// MainChannel exposes the underlying main channel, for callers that need
// its reentrancy introspection.
func (c *Connection) MainChannel() *channel.Chan {
	return c.main
}
