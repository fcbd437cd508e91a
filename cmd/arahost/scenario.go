package main

import (
	"fmt"
	"time"

	"github.com/wippyai/ara-ipc/ara"
	"github.com/wippyai/ara-ipc/hostmodel"
	"github.com/wippyai/ara-ipc/message"
	"github.com/wippyai/ara-ipc/proxy"
	"github.com/wippyai/ara-ipc/remote"
)

// runScenario spawns the plug-in process and walks it through a full
// document lifecycle, verifying the audio it renders.
func runScenario(binary, wire string, seconds float64) error {
	codec, err := message.CodecByName(wire)
	if err != nil {
		return err
	}

	fmt.Printf("Spawning plug-in: %s (%s codec)\n", binary, codec.Name())
	child, err := remote.Spawn(binary, remote.SpawnConfig{Codec: codec})
	if err != nil {
		return err
	}
	fmt.Printf("Connected, pid %d, API version %s\n", child.Pid(), child.Conn.NegotiatedVersion())

	model := hostmodel.New("Scenario document")
	plug := proxy.NewPlugIn(child.Conn, model.Interfaces())

	dc, pr, err := plug.CreateDocumentController(model.DocumentProperties())
	if err != nil {
		return err
	}
	fmt.Printf("Document controller ref: %d\n", int64(dc.Ref()))

	const sampleRate = 44100.0
	sampleCount := int64(seconds * sampleRate)
	src := ara.NewSineAudioSource("Pulsed sine", "sine-1", sampleRate, sampleCount)
	if child.Conn.SupportsColor() {
		src.Properties.Color = &ara.Color{R: 0.9, G: 0.6, B: 0.1}
	}
	hostRef := model.AddAudioSource(src)

	if err := dc.BeginEditing(); err != nil {
		return err
	}
	sourceRef, err := dc.CreateAudioSource(hostRef, src.Properties)
	if err != nil {
		return err
	}
	if err := dc.EndEditing(); err != nil {
		return err
	}
	fmt.Printf("Audio source created: %d samples at %.0f Hz, analysis progress %.0f%%\n",
		sampleCount, sampleRate, 100*model.AnalysisProgress(hostRef))

	const renderCount = 10000
	position := sampleCount / 4
	start := time.Now()
	samples, err := pr.RenderSamples(sourceRef, position, renderCount)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	want := make([]float32, renderCount)
	ara.RenderPulsedSine(want, position, sampleRate)
	mismatches := 0
	for i := range want {
		if samples[i] != want[i] {
			mismatches++
		}
	}
	fmt.Printf("Rendered %d samples at position %d in %s, %d mismatches\n",
		renderCount, position, elapsed, mismatches)
	if mismatches > 0 {
		return fmt.Errorf("rendered audio does not match the generator")
	}

	writerRef, archive := model.NewArchiveWriter()
	ok, err := dc.StoreObjectsToArchive(writerRef)
	if err != nil {
		return err
	}
	model.CloseArchiveWriter(writerRef)
	fmt.Printf("Archive stored: ok=%v, %d bytes\n", ok, len(archive.Bytes()))

	readerRef := model.NewArchiveReader(archive.Bytes())
	ok, err = dc.RestoreObjectsFromArchive(readerRef)
	if err != nil {
		return err
	}
	model.CloseArchiveReader(readerRef)
	fmt.Printf("Archive restored: ok=%v\n", ok)

	if err := dc.BeginEditing(); err != nil {
		return err
	}
	if err := dc.DestroyAudioSource(sourceRef); err != nil {
		return err
	}
	if err := dc.EndEditing(); err != nil {
		return err
	}
	if err := dc.Destroy(); err != nil {
		return err
	}

	if err := child.Shutdown(5 * time.Second); err != nil {
		return err
	}
	fmt.Println("Plug-in shut down cleanly")
	return nil
}
