package remote

import (
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/ara-ipc/channel"
	"github.com/wippyai/ara-ipc/errors"
	"github.com/wippyai/ara-ipc/message"
)

// Marker arguments passed to the child process. A binary seeing
// FlagRemote in its arguments enters the plug-in dispatch loop instead
// of its normal behavior.
const (
	FlagRemote  = "-remote"
	FlagChannel = "-channel"
	FlagWire    = "-wire"
)

// DefaultSpawnTimeout bounds the wait for the child to connect back.
const DefaultSpawnTimeout = 30 * time.Second

// SpawnConfig tunes how the remote process is launched.
type SpawnConfig struct {
	// Codec used on both channels. Defaults to message.Binary.
	Codec message.Codec

	// Timeout for the child to dial back and for blocking calls.
	// Defaults to DefaultSpawnTimeout for the former and the channel
	// default for the latter.
	SpawnTimeout time.Duration
	CallTimeout  time.Duration
}

// Child is a spawned remote process together with the host-side
// connection to it.
type Child struct {
	Conn *Connection

	cmd        *exec.Cmd
	rendezvous string
	log        *zap.Logger
}

// Spawn launches binary as a plug-in process, waits for it to connect
// on both channels and performs the handshake. On any failure the child
// is killed before returning.
func Spawn(binary string, cfg SpawnConfig) (*Child, error) {
	if cfg.Codec == nil {
		cfg.Codec = message.Binary
	}
	if cfg.SpawnTimeout <= 0 {
		cfg.SpawnTimeout = DefaultSpawnTimeout
	}
	log := Logger()

	rendezvous := channel.NewRendezvousID()
	mainLn, err := channel.Publish(channel.MainID(rendezvous), channel.DefaultMaxFrame)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSpawn, errors.KindChannelClosed, err, "publish main channel")
	}
	otherLn, err := channel.Publish(channel.OtherThreadsID(rendezvous), channel.DefaultMaxFrame)
	if err != nil {
		mainLn.Close()
		return nil, errors.Wrap(errors.PhaseSpawn, errors.KindChannelClosed, err, "publish other channel")
	}
	defer mainLn.Close()
	defer otherLn.Close()

	cmd := exec.Command(binary,
		FlagRemote,
		FlagChannel, rendezvous,
		FlagWire, cfg.Codec.Name())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(errors.PhaseSpawn, errors.KindInvalidData, err, "start remote process")
	}
	log.Info("spawned remote process",
		zap.String("binary", binary),
		zap.Int("pid", cmd.Process.Pid),
		zap.String("rendezvous", rendezvous))

	mainPort, otherPort, err := acceptBoth(mainLn, otherLn, cfg.SpawnTimeout)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, err
	}

	conn := NewConnection(Config{
		MainPort:  mainPort,
		OtherPort: otherPort,
		Codec:     cfg.Codec,
		MainMode:  channel.ModeBackground,
		Timeout:   cfg.CallTimeout,
	})
	if err := conn.Handshake(); err != nil {
		conn.Close()
		cmd.Process.Kill()
		cmd.Wait()
		return nil, err
	}
	return &Child{
		Conn:       conn,
		cmd:        cmd,
		rendezvous: rendezvous,
		log:        log,
	}, nil
}

// acceptBoth waits for the child on the two published listeners, in the
// order the child dials them.
func acceptBoth(mainLn, otherLn *channel.Listener, timeout time.Duration) (channel.Port, channel.Port, error) {
	type accepted struct {
		port channel.Port
		err  error
	}
	mainCh := make(chan accepted, 1)
	otherCh := make(chan accepted, 1)
	go func() {
		p, err := mainLn.Accept()
		mainCh <- accepted{p, err}
	}()
	go func() {
		p, err := otherLn.Accept()
		otherCh <- accepted{p, err}
	}()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var mainPort, otherPort channel.Port
	for mainPort == nil || otherPort == nil {
		select {
		case a := <-mainCh:
			if a.err != nil {
				closePorts(mainPort, otherPort)
				return nil, nil, errors.Wrap(errors.PhaseSpawn, errors.KindChannelClosed, a.err, "accept main channel")
			}
			mainPort = a.port
		case a := <-otherCh:
			if a.err != nil {
				closePorts(mainPort, otherPort)
				return nil, nil, errors.Wrap(errors.PhaseSpawn, errors.KindChannelClosed, a.err, "accept other channel")
			}
			otherPort = a.port
		case <-deadline.C:
			closePorts(mainPort, otherPort)
			return nil, nil, errors.Timeout("accept remote process", timeout)
		}
	}
	return mainPort, otherPort, nil
}

func closePorts(ports ...channel.Port) {
	for _, p := range ports {
		if p != nil {
			p.Close()
		}
	}
}

// Shutdown sends terminate, then waits for the child to exit. A child
// that ignores the request is killed once the grace period elapses.
func (c *Child) Shutdown(grace time.Duration) error {
	termErr := c.Conn.Terminate()
	c.Conn.Close()

	exited := make(chan error, 1)
	go func() { exited <- c.cmd.Wait() }()

	select {
	case err := <-exited:
		if termErr != nil {
			return termErr
		}
		return err
	case <-time.After(grace):
		c.log.Warn("remote process ignored terminate, killing",
			zap.Int("pid", c.cmd.Process.Pid))
		c.cmd.Process.Kill()
		<-exited
		return errors.Timeout("remote process shutdown", grace)
	}
}

// Pid returns the child's process ID.
func (c *Child) Pid() int {
	return c.cmd.Process.Pid
}

// ConnectChild is the plug-in side of Spawn: it dials both channels of
// the rendezvous published by the host and returns a connection whose
// main channel is pumped by the caller's RunLoop.
func ConnectChild(rendezvous, codecName string, timeout time.Duration) (*Connection, error) {
	codec, err := message.CodecByName(codecName)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultSpawnTimeout
	}
	mainPort, err := channel.Connect(channel.MainID(rendezvous), channel.DefaultMaxFrame, timeout)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSpawn, errors.KindChannelClosed, err, "dial main channel")
	}
	otherPort, err := channel.Connect(channel.OtherThreadsID(rendezvous), channel.DefaultMaxFrame, timeout)
	if err != nil {
		mainPort.Close()
		return nil, errors.Wrap(errors.PhaseSpawn, errors.KindChannelClosed, err, "dial other channel")
	}
	return NewConnection(Config{
		MainPort:  mainPort,
		OtherPort: otherPort,
		Codec:     codec,
		MainMode:  channel.ModeForeground,
		Timeout:   timeout,
	}), nil
}

// ParseRemoteArgs scans argv for the marker arguments. ok reports
// whether the process was launched as a remote plug-in.
func ParseRemoteArgs(args []string) (rendezvous, codecName string, ok bool) {
	codecName = message.Binary.Name()
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case FlagRemote:
			ok = true
		case FlagChannel:
			if i+1 < len(args) {
				i++
				rendezvous = args[i]
			}
		case FlagWire:
			if i+1 < len(args) {
				i++
				codecName = args[i]
			}
		}
	}
	if rendezvous == "" {
		ok = false
	}
	return rendezvous, codecName, ok
}
