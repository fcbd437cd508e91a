package proxy

import (
	"go.uber.org/zap"

	"github.com/wippyai/ara-ipc/errors"
)

// Per-call transfer limits. One read request never carries more than
// this much payload; larger reads are split before hitting the wire so
// no frame outgrows the channel's frame limit.
const (
	MaxSamplesPerCall = 8192
	MaxBytesPerCall   = 128 * 1024
)

// readFunc performs one remote read of count units at position.
type readFunc[T any] func(position, count int64) ([]T, error)

// readChunked assembles a large read from per-call sized pieces by
// recursive halving. A failing piece is zero filled and the first error
// is reported after the remaining pieces were still attempted, so a
// partially unreadable range yields deterministic output.
func readChunked[T any](dst []T, position int64, limit int64, read readFunc[T]) error {
	count := int64(len(dst))
	if count == 0 {
		return nil
	}
	if count <= limit {
		part, err := read(position, count)
		if err != nil {
			for i := range dst {
				var zero T
				dst[i] = zero
			}
			return err
		}
		copy(dst, part)
		return nil
	}
	half := count / 2
	errLo := readChunked(dst[:half], position, limit, read)
	errHi := readChunked(dst[half:], position+half, limit, read)
	if errLo != nil {
		return errLo
	}
	return errHi
}

// ReadAudioChunked reads count samples at position through read,
// splitting into calls of at most MaxSamplesPerCall samples.
func ReadAudioChunked(position, count int64, read readFunc[float32]) ([]float32, error) {
	// count can come straight off the wire, so it is checked before the
	// allocation it sizes.
	if count < 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, "negative sample count %d", count)
	}
	dst := make([]float32, count)
	err := readChunked(dst, position, MaxSamplesPerCall, read)
	if err != nil {
		Logger().Warn("chunked audio read failed, range zero filled",
			zap.Int64("position", position),
			zap.Int64("count", count),
			zap.Error(err))
	}
	return dst, err
}

// ReadBytesChunked reads count bytes at position through read, splitting
// into calls of at most MaxBytesPerCall bytes.
func ReadBytesChunked(position, count int64, read readFunc[byte]) ([]byte, error) {
	if count < 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, "negative byte count %d", count)
	}
	dst := make([]byte, count)
	err := readChunked(dst, position, MaxBytesPerCall, read)
	return dst, err
}

// writeFunc performs one remote write of data at position.
type writeFunc func(position int64, data []byte) error

// WriteBytesChunked writes data at position through write, splitting
// into calls of at most MaxBytesPerCall bytes. The first failure aborts
// the remainder.
func WriteBytesChunked(position int64, data []byte, write writeFunc) error {
	for len(data) > 0 {
		n := int64(len(data))
		if n > MaxBytesPerCall {
			n = MaxBytesPerCall
		}
		if err := write(position, data[:n]); err != nil {
			return err
		}
		position += n
		data = data[n:]
	}
	return nil
}
