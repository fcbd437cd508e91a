package proxy

import (
	"testing"

	"github.com/wippyai/ara-ipc/ara"
	"github.com/wippyai/ara-ipc/errors"
)

func TestReadAudioChunkedSplits(t *testing.T) {
	tests := []struct {
		name  string
		count int64
	}{
		{"under limit", MaxSamplesPerCall - 1},
		{"at limit", MaxSamplesPerCall},
		{"over limit", MaxSamplesPerCall + 1},
		{"many chunks", 5*MaxSamplesPerCall + 123},
		{"empty", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const position = 777
			var calls int
			got, err := ReadAudioChunked(position, tt.count, func(position, count int64) ([]float32, error) {
				calls++
				if count > MaxSamplesPerCall {
					t.Errorf("call of %d samples exceeds the per-call limit", count)
				}
				buf := make([]float32, count)
				ara.RenderPulsedSine(buf, position, 44100)
				return buf, nil
			})
			if err != nil {
				t.Fatalf("ReadAudioChunked: %v", err)
			}
			if int64(len(got)) != tt.count {
				t.Fatalf("got %d samples, want %d", len(got), tt.count)
			}
			want := make([]float32, tt.count)
			ara.RenderPulsedSine(want, position, 44100)
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("sample %d = %g, want %g", i, got[i], want[i])
				}
			}
			if tt.count > 0 && tt.count <= MaxSamplesPerCall && calls != 1 {
				t.Errorf("%d calls for a read within the limit", calls)
			}
		})
	}
}

func TestReadChunkedRejectsNegativeCounts(t *testing.T) {
	var calls int
	_, err := ReadAudioChunked(0, -5, func(position, count int64) ([]float32, error) {
		calls++
		return make([]float32, count), nil
	})
	if !errors.IsKind(err, errors.KindInvalidData) {
		t.Errorf("ReadAudioChunked(-5) err = %v, want invalid_data", err)
	}
	_, err = ReadBytesChunked(0, -1, func(position, count int64) ([]byte, error) {
		calls++
		return make([]byte, count), nil
	})
	if !errors.IsKind(err, errors.KindInvalidData) {
		t.Errorf("ReadBytesChunked(-1) err = %v, want invalid_data", err)
	}
	if calls != 0 {
		t.Errorf("%d reads issued for negative counts", calls)
	}
}

func TestReadAudioChunkedZeroFillsFailedHalf(t *testing.T) {
	const count = 2 * MaxSamplesPerCall
	failAt := int64(MaxSamplesPerCall) // second half fails
	got, err := ReadAudioChunked(0, count, func(position, n int64) ([]float32, error) {
		if position >= failAt {
			return nil, errors.InvalidData(errors.PhaseDispatch, "unreadable range")
		}
		buf := make([]float32, n)
		for i := range buf {
			buf[i] = 1
		}
		return buf, nil
	})
	if err == nil {
		t.Fatal("expected the failing half to surface an error")
	}
	if int64(len(got)) != count {
		t.Fatalf("got %d samples, want %d", len(got), count)
	}
	for i := int64(0); i < failAt; i++ {
		if got[i] != 1 {
			t.Fatalf("readable sample %d = %g, want 1", i, got[i])
		}
	}
	for i := failAt; i < count; i++ {
		if got[i] != 0 {
			t.Fatalf("failed sample %d = %g, want 0", i, got[i])
		}
	}
}

func TestWriteBytesChunked(t *testing.T) {
	data := make([]byte, 2*MaxBytesPerCall+99)
	for i := range data {
		data[i] = byte(i)
	}
	var written []byte
	next := int64(0)
	err := WriteBytesChunked(0, data, func(position int64, part []byte) error {
		if position != next {
			t.Errorf("write at %d, want %d", position, next)
		}
		if len(part) > MaxBytesPerCall {
			t.Errorf("write of %d bytes exceeds the per-call limit", len(part))
		}
		written = append(written, part...)
		next += int64(len(part))
		return nil
	})
	if err != nil {
		t.Fatalf("WriteBytesChunked: %v", err)
	}
	if len(written) != len(data) {
		t.Fatalf("wrote %d bytes, want %d", len(written), len(data))
	}
	for i := range data {
		if written[i] != data[i] {
			t.Fatalf("byte %d = %d, want %d", i, written[i], data[i])
		}
	}
}
