package proxy_test

import (
	"testing"
	"time"

	"github.com/wippyai/ara-ipc/ara"
	"github.com/wippyai/ara-ipc/channel"
	"github.com/wippyai/ara-ipc/errors"
	"github.com/wippyai/ara-ipc/hostmodel"
	"github.com/wippyai/ara-ipc/proxy"
	"github.com/wippyai/ara-ipc/remote"
	"github.com/wippyai/ara-ipc/sineplug"
)

// session is a full in-process host/plug-in pair: the host's model and
// plug-in proxy on one side, the demonstration plug-in on the other.
type session struct {
	model  *hostmodel.Model
	plug   *proxy.PlugIn
	host   *remote.Connection
	plugin *remote.Connection
}

func newSession(t *testing.T) *session {
	t.Helper()
	mainA, mainB := channel.NewLoopbackPair(0)
	otherA, otherB := channel.NewLoopbackPair(0)

	host := remote.NewConnection(remote.Config{
		MainPort:  mainA,
		OtherPort: otherA,
		MainMode:  channel.ModeBackground,
		Timeout:   10 * time.Second,
	})
	plugin := remote.NewConnection(remote.Config{
		MainPort:  mainB,
		OtherPort: otherB,
		MainMode:  channel.ModeBackground,
		Timeout:   10 * time.Second,
	})
	t.Cleanup(func() {
		host.Close()
		plugin.Close()
	})

	factory := sineplug.NewFactory(proxy.NewHost(plugin).Interfaces())
	proxy.RegisterPlugIn(plugin, factory)

	model := hostmodel.New("Test document")
	plug := proxy.NewPlugIn(host, model.Interfaces())

	if err := host.Handshake(); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	return &session{model: model, plug: plug, host: host, plugin: plugin}
}

// createSource runs an edit cycle announcing one pulsed-sine source of
// sampleCount samples to the plug-in.
func createSource(t *testing.T, s *session, dc *proxy.DocumentController, sampleCount int64) (ara.AudioSourceHostRef, ara.AudioSourceRef) {
	t.Helper()
	src := ara.NewSineAudioSource("Sine", "sine-1", 44100, sampleCount)
	hostRef := s.model.AddAudioSource(src)

	if err := dc.BeginEditing(); err != nil {
		t.Fatalf("BeginEditing: %v", err)
	}
	sourceRef, err := dc.CreateAudioSource(hostRef, src.Properties)
	if err != nil {
		t.Fatalf("CreateAudioSource: %v", err)
	}
	if err := dc.EndEditing(); err != nil {
		t.Fatalf("EndEditing: %v", err)
	}
	return hostRef, sourceRef
}

// Walks the whole lifecycle: create a controller and source, render
// audio through the plug-in and verify it against the generator. The
// plug-in's renderer reads the samples back out of the host while the
// host's render call is pending, so passing output proves the nested
// call path works.
func TestPlaybackRoundTrip(t *testing.T) {
	s := newSession(t)

	dc, pr, err := s.plug.CreateDocumentController(s.model.DocumentProperties())
	if err != nil {
		t.Fatalf("CreateDocumentController: %v", err)
	}

	const sampleCount = 220500 // five seconds at 44.1 kHz
	hostRef, sourceRef := createSource(t, s, dc, sampleCount)

	if got := s.model.AnalysisProgress(hostRef); got != 1 {
		t.Errorf("analysis progress = %f, want 1", got)
	}
	if got := s.model.ContentChanges(hostRef); got == 0 {
		t.Error("no content change notification arrived")
	}

	const position, count = 12345, 10000
	samples, err := pr.RenderSamples(sourceRef, position, count)
	if err != nil {
		t.Fatalf("RenderSamples: %v", err)
	}
	if len(samples) != count {
		t.Fatalf("rendered %d samples, want %d", len(samples), count)
	}
	want := make([]float32, count)
	ara.RenderPulsedSine(want, position, 44100)
	for i := range want {
		if samples[i] != want[i] {
			t.Fatalf("sample %d = %g, want %g", i, samples[i], want[i])
		}
	}

	if err := dc.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
}

// Rendering more than one chunk's worth forces the transparent split
// and must still agree with the generator sample for sample.
func TestRenderSpansChunks(t *testing.T) {
	s := newSession(t)

	dc, pr, err := s.plug.CreateDocumentController(s.model.DocumentProperties())
	if err != nil {
		t.Fatalf("CreateDocumentController: %v", err)
	}
	const sampleCount = 3*proxy.MaxSamplesPerCall + 17
	_, sourceRef := createSource(t, s, dc, sampleCount)

	samples, err := pr.RenderSamples(sourceRef, 0, sampleCount)
	if err != nil {
		t.Fatalf("RenderSamples: %v", err)
	}
	want := make([]float32, sampleCount)
	ara.RenderPulsedSine(want, 0, 44100)
	for i := range want {
		if samples[i] != want[i] {
			t.Fatalf("sample %d = %g, want %g", i, samples[i], want[i])
		}
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	s := newSession(t)

	dc, _, err := s.plug.CreateDocumentController(s.model.DocumentProperties())
	if err != nil {
		t.Fatalf("CreateDocumentController: %v", err)
	}
	createSource(t, s, dc, 44100)

	writerRef, archive := s.model.NewArchiveWriter()
	ok, err := dc.StoreObjectsToArchive(writerRef)
	if err != nil || !ok {
		t.Fatalf("StoreObjectsToArchive = %v, %v", ok, err)
	}
	if err := s.model.CloseArchiveWriter(writerRef); err != nil {
		t.Fatalf("CloseArchiveWriter: %v", err)
	}
	if len(archive.Bytes()) == 0 {
		t.Fatal("store wrote no bytes")
	}

	readerRef := s.model.NewArchiveReader(archive.Bytes())
	ok, err = dc.RestoreObjectsFromArchive(readerRef)
	if err != nil || !ok {
		t.Fatalf("RestoreObjectsFromArchive = %v, %v", ok, err)
	}
	if err := s.model.CloseArchiveReader(readerRef); err != nil {
		t.Fatalf("CloseArchiveReader: %v", err)
	}

	// A closed writer ref must not work a second time.
	if _, err := dc.StoreObjectsToArchive(writerRef); !errors.IsKind(err, errors.KindRefInvalid) {
		t.Fatalf("store to closed writer = %v, want stale ref", err)
	}
}

func TestUpdateAndDestroySource(t *testing.T) {
	s := newSession(t)

	dc, _, err := s.plug.CreateDocumentController(s.model.DocumentProperties())
	if err != nil {
		t.Fatalf("CreateDocumentController: %v", err)
	}
	_, sourceRef := createSource(t, s, dc, 44100)

	if err := dc.BeginEditing(); err != nil {
		t.Fatalf("BeginEditing: %v", err)
	}
	props := ara.AudioSourceProperties{
		Name:         "Renamed",
		PersistentID: "sine-1",
		SampleCount:  44100,
		SampleRate:   44100,
		ChannelCount: 1,
		Color:        &ara.Color{R: 1, G: 0.5, B: 0.25},
	}
	if err := dc.UpdateAudioSourceProperties(sourceRef, props); err != nil {
		t.Fatalf("UpdateAudioSourceProperties: %v", err)
	}
	if err := dc.DestroyAudioSource(sourceRef); err != nil {
		t.Fatalf("DestroyAudioSource: %v", err)
	}
	if err := dc.EndEditing(); err != nil {
		t.Fatalf("EndEditing: %v", err)
	}

	// The destroyed source's ref is stale now.
	if err := dc.BeginEditing(); err != nil {
		t.Fatalf("BeginEditing: %v", err)
	}
	err = dc.DestroyAudioSource(sourceRef)
	if !errors.IsKind(err, errors.KindRefInvalid) {
		t.Fatalf("destroy of destroyed source = %v, want stale ref", err)
	}
	if err := dc.EndEditing(); err != nil {
		t.Fatalf("EndEditing: %v", err)
	}
}

func TestEditCycleEnforced(t *testing.T) {
	s := newSession(t)

	dc, _, err := s.plug.CreateDocumentController(s.model.DocumentProperties())
	if err != nil {
		t.Fatalf("CreateDocumentController: %v", err)
	}
	src := ara.NewSineAudioSource("Sine", "sine-1", 44100, 44100)
	hostRef := s.model.AddAudioSource(src)

	_, err = dc.CreateAudioSource(hostRef, src.Properties)
	if !errors.IsKind(err, errors.KindProtocolViolation) {
		t.Fatalf("create outside edit cycle = %v, want protocol violation", err)
	}
}

func TestDestroyedControllerRefIsStale(t *testing.T) {
	s := newSession(t)

	dc, _, err := s.plug.CreateDocumentController(s.model.DocumentProperties())
	if err != nil {
		t.Fatalf("CreateDocumentController: %v", err)
	}
	if err := dc.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	err = dc.BeginEditing()
	if !errors.IsKind(err, errors.KindRefInvalid) {
		t.Fatalf("call on destroyed controller = %v, want stale ref", err)
	}
}

func TestRenderOutOfRange(t *testing.T) {
	s := newSession(t)

	dc, pr, err := s.plug.CreateDocumentController(s.model.DocumentProperties())
	if err != nil {
		t.Fatalf("CreateDocumentController: %v", err)
	}
	_, sourceRef := createSource(t, s, dc, 1000)

	if _, err := pr.RenderSamples(sourceRef, 500, 1000); err == nil {
		t.Fatal("render past the end of the source succeeded")
	}
}
