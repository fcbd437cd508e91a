package ara

import (
	"math"

	"github.com/wippyai/ara-ipc/errors"
)

// Document is the example host's in-memory model root.
type Document struct {
	Properties DocumentProperties
	Sources    []*AudioSource
}

// AudioSource is one audio source of the example host's model. Its
// samples come from the deterministic pulsed-sine generator, so both
// processes (and the tests) can validate transported audio bit-exactly.
type AudioSource struct {
	Properties AudioSourceProperties
	Notes      []Note
}

// NewSineAudioSource builds an audio source holding seconds worth of the
// test signal at the given rate.
func NewSineAudioSource(name, persistentID string, sampleRate float64, sampleCount int64) *AudioSource {
	return &AudioSource{
		Properties: AudioSourceProperties{
			Name:         name,
			PersistentID: persistentID,
			SampleCount:  sampleCount,
			SampleRate:   sampleRate,
			ChannelCount: 1,
		},
		Notes: []Note{
			{Frequency: sineFrequency, Position: 0, Duration: float64(sampleCount) / sampleRate},
		},
	}
}

// Read fills a fresh buffer with count samples starting at position.
func (s *AudioSource) Read(position, count int64) ([]float32, error) {
	// Checked without summing position+count, which could wrap.
	if position < 0 || count < 0 || position > s.Properties.SampleCount ||
		count > s.Properties.SampleCount-position {
		return nil, errors.InvalidData(errors.PhaseDispatch,
			"read of %d samples at %d outside source of %d samples", count, position, s.Properties.SampleCount)
	}
	buf := make([]float32, count)
	RenderPulsedSine(buf, position, s.Properties.SampleRate)
	return buf, nil
}

const (
	sineFrequency  = 440.0 // Hz
	pulseFrequency = 2.0   // Hz amplitude envelope
)

// RenderPulsedSine writes the shared test signal into buf: a 440 Hz sine
// carrier under a 2 Hz sine envelope. Purely a function of absolute
// sample position, so chunked and unchunked reads agree exactly.
func RenderPulsedSine(buf []float32, position int64, sampleRate float64) {
	for i := range buf {
		t := float64(position+int64(i)) / sampleRate
		carrier := math.Sin(2 * math.Pi * sineFrequency * t)
		envelope := math.Sin(2 * math.Pi * pulseFrequency * t)
		buf[i] = float32(carrier * envelope)
	}
}
