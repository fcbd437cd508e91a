package channel

import (
	"bytes"
	"testing"
	"time"

	"github.com/wippyai/ara-ipc/errors"
)

func TestLoopbackFrames(t *testing.T) {
	a, b := NewLoopbackPair(0)
	defer a.Close()
	defer b.Close()

	want := []byte{1, 2, 3, 4, 5}
	if err := a.WriteFrame(want); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := b.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("frame = %v, want %v", got, want)
	}
}

func TestLoopbackFrameTooLarge(t *testing.T) {
	a, b := NewLoopbackPair(16)
	defer a.Close()
	defer b.Close()

	err := a.WriteFrame(make([]byte, 17))
	if !errors.IsKind(err, errors.KindFrameTooLarge) {
		t.Errorf("err = %v, want frame_too_large", err)
	}
}

func TestSocketRendezvous(t *testing.T) {
	id := NewRendezvousID() + ".test"

	l, err := Publish(id, 0)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	defer l.Close()

	type accepted struct {
		port Port
		err  error
	}
	acceptCh := make(chan accepted, 1)
	go func() {
		p, err := l.Accept()
		acceptCh <- accepted{p, err}
	}()

	client, err := Connect(id, 0, 2*time.Second)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	srv := <-acceptCh
	if srv.err != nil {
		t.Fatalf("Accept: %v", srv.err)
	}
	defer srv.port.Close()

	want := []byte("rendezvous payload")
	if err := client.WriteFrame(want); err != nil {
		t.Fatalf("client write: %v", err)
	}
	got, err := srv.port.ReadFrame()
	if err != nil {
		t.Fatalf("server read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("server got %q, want %q", got, want)
	}

	// And the other direction.
	if err := srv.port.WriteFrame([]byte("ack")); err != nil {
		t.Fatalf("server write: %v", err)
	}
	got, err = client.ReadFrame()
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	if string(got) != "ack" {
		t.Errorf("client got %q, want ack", got)
	}
}

func TestConnectTimeout(t *testing.T) {
	_, err := Connect("no-such-rendezvous", 0, 50*time.Millisecond)
	if !errors.IsKind(err, errors.KindTimeout) {
		t.Errorf("err = %v, want timeout", err)
	}
}

func TestChannelIDSuffixes(t *testing.T) {
	id := NewRendezvousID()
	if MainID(id) == OtherThreadsID(id) {
		t.Error("main and other-threads channel IDs collide")
	}
	if MainID(id)[:len(id)] != id {
		t.Error("main ID does not derive from the rendezvous ID")
	}
}
