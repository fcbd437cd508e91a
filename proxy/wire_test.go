package proxy

import (
	"testing"

	"github.com/wippyai/ara-ipc/ara"
	"github.com/wippyai/ara-ipc/method"
)

func TestMethodIDsDistinct(t *testing.T) {
	seen := make(map[method.ID]bool)
	for _, id := range allMethodIDs() {
		if !id.Valid() {
			t.Errorf("method ID %d is malformed", int32(id))
		}
		if seen[id] {
			t.Errorf("method ID %v assigned twice", id)
		}
		seen[id] = true
	}
}

func TestAudioSourcePropertiesRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		props ara.AudioSourceProperties
	}{
		{
			name: "with color",
			props: ara.AudioSourceProperties{
				Name:         "Guitar",
				PersistentID: "guitar-7",
				SampleCount:  220500,
				SampleRate:   44100,
				ChannelCount: 2,
				Color:        &ara.Color{R: 0.2, G: 0.4, B: 0.8},
			},
		},
		{
			name: "without color",
			props: ara.AudioSourceProperties{
				Name:         "Voice",
				PersistentID: "voice-1",
				SampleCount:  96000,
				SampleRate:   48000,
				ChannelCount: 1,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := encodeAudioSourceProperties(tt.props)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := decodeAudioSourceProperties(m)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Name != tt.props.Name || got.PersistentID != tt.props.PersistentID ||
				got.SampleCount != tt.props.SampleCount || got.SampleRate != tt.props.SampleRate ||
				got.ChannelCount != tt.props.ChannelCount {
				t.Fatalf("decoded %+v, want %+v", got, tt.props)
			}
			if (got.Color == nil) != (tt.props.Color == nil) {
				t.Fatalf("color presence = %v, want %v", got.Color != nil, tt.props.Color != nil)
			}
			if got.Color != nil && *got.Color != *tt.props.Color {
				t.Fatalf("color = %+v, want %+v", *got.Color, *tt.props.Color)
			}
		})
	}
}

func TestNotesRoundTrip(t *testing.T) {
	notes := []ara.Note{
		{Frequency: 440, Position: 0, Duration: 1.5},
		{Frequency: 220, Position: 1.5, Duration: 0.25},
		{Frequency: 880.5, Position: 2, Duration: 3},
	}
	m, err := encodeNotes(notes)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeNotes(m)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(notes) {
		t.Fatalf("decoded %d notes, want %d", len(got), len(notes))
	}
	for i := range notes {
		if got[i] != notes[i] {
			t.Fatalf("note %d = %+v, want %+v", i, got[i], notes[i])
		}
	}

	empty, err := encodeNotes(nil)
	if err != nil {
		t.Fatalf("encode empty: %v", err)
	}
	got, err = decodeNotes(empty)
	if err != nil {
		t.Fatalf("decode empty: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("decoded %d notes from an empty array", len(got))
	}
}

func TestSampleBlobRoundTrip(t *testing.T) {
	samples := []float32{0, 1, -1, 0.5, -0.25, 3.1415}
	blob := samplesToBytes(samples)
	if len(blob) != 4*len(samples) {
		t.Fatalf("blob of %d bytes, want %d", len(blob), 4*len(samples))
	}
	got, err := bytesToSamples(blob)
	if err != nil {
		t.Fatalf("bytesToSamples: %v", err)
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample %d = %g, want %g", i, got[i], samples[i])
		}
	}

	if _, err := bytesToSamples(blob[:len(blob)-1]); err == nil {
		t.Fatal("misaligned blob decoded")
	}
}
