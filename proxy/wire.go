package proxy

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/ara-ipc/ara"
	"github.com/wippyai/ara-ipc/errors"
	"github.com/wippyai/ara-ipc/message"
	"github.com/wippyai/ara-ipc/ref"
)

// Refs travel as size entries so the two sides never disagree about
// sign extension of the generation bits.
func appendRef(m *message.Message, key message.Key, r int64) error {
	return m.AppendSize(key, ref.Ref(r).Wire())
}

func readRef(m *message.Message, key message.Key) (ref.Ref, error) {
	v, err := m.Size(key)
	if err != nil {
		return ref.None, err
	}
	return ref.FromWire(v), nil
}

func refFromWire(v uint64) ref.Ref {
	return ref.FromWire(v)
}

// Bools travel as int32 zero or one.
func replyBool(reply *message.Message) (bool, error) {
	v, err := reply.Int32(keyTarget)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func boolReply(ok bool) (*message.Message, error) {
	m := message.New()
	var v int32
	if ok {
		v = 1
	}
	if err := m.AppendInt32(keyTarget, v); err != nil {
		return nil, err
	}
	return m, nil
}

// Argument keys of request and reply bodies. Key 0 is always the target
// object ref (or the sole result); further arguments follow in key
// strides of 8.
const (
	keyTarget message.Key = 0
	keyArg0   message.Key = 8
	keyArg1   message.Key = 16
	keyArg2   message.Key = 24
)

// Member keys of an encoded ara.AudioSourceProperties.
const (
	propKeyName         message.Key = 0
	propKeyPersistentID message.Key = 8
	propKeySampleCount  message.Key = 16
	propKeySampleRate   message.Key = 24
	propKeyChannelCount message.Key = 32
	propKeyColor        message.Key = 40
)

// Member keys of an encoded ara.Color.
const (
	colorKeyR message.Key = 0
	colorKeyG message.Key = 8
	colorKeyB message.Key = 16
)

// Member keys of an encoded ara.Note.
const (
	noteKeyFrequency message.Key = 0
	noteKeyPosition  message.Key = 8
	noteKeyDuration  message.Key = 16
)

// Key 0 of an encoded array holds the element count; element i lives at
// key (i+1)*8.
const arrayKeyCount message.Key = 0

func arrayElementKey(i int) message.Key {
	return message.Key(i+1) * 8
}

func encodeAudioSourceProperties(props ara.AudioSourceProperties) (*message.Message, error) {
	m := message.New()
	if err := m.AppendString(propKeyName, props.Name); err != nil {
		return nil, err
	}
	if err := m.AppendString(propKeyPersistentID, props.PersistentID); err != nil {
		return nil, err
	}
	if err := m.AppendInt64(propKeySampleCount, props.SampleCount); err != nil {
		return nil, err
	}
	if err := m.AppendDouble(propKeySampleRate, props.SampleRate); err != nil {
		return nil, err
	}
	if err := m.AppendInt32(propKeyChannelCount, props.ChannelCount); err != nil {
		return nil, err
	}
	// The color is an optional later-generation member; absence is the
	// wire representation of both nil and an old peer.
	if props.Color != nil {
		c := message.New()
		if err := c.AppendFloat(colorKeyR, props.Color.R); err != nil {
			return nil, err
		}
		if err := c.AppendFloat(colorKeyG, props.Color.G); err != nil {
			return nil, err
		}
		if err := c.AppendFloat(colorKeyB, props.Color.B); err != nil {
			return nil, err
		}
		if err := m.AppendMessage(propKeyColor, c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func decodeAudioSourceProperties(m *message.Message) (ara.AudioSourceProperties, error) {
	var props ara.AudioSourceProperties
	var err error
	if props.Name, err = m.String(propKeyName); err != nil {
		return props, err
	}
	if props.PersistentID, err = m.String(propKeyPersistentID); err != nil {
		return props, err
	}
	if props.SampleCount, err = m.Int64(propKeySampleCount); err != nil {
		return props, err
	}
	if props.SampleRate, err = m.Double(propKeySampleRate); err != nil {
		return props, err
	}
	if props.ChannelCount, err = m.Int32(propKeyChannelCount); err != nil {
		return props, err
	}
	if m.Exists(propKeyColor) {
		c, err := m.Sub(propKeyColor)
		if err != nil {
			return props, err
		}
		var color ara.Color
		if color.R, err = c.Float(colorKeyR); err != nil {
			return props, err
		}
		if color.G, err = c.Float(colorKeyG); err != nil {
			return props, err
		}
		if color.B, err = c.Float(colorKeyB); err != nil {
			return props, err
		}
		props.Color = &color
	}
	return props, nil
}

func encodeNotes(notes []ara.Note) (*message.Message, error) {
	m := message.New()
	if err := m.AppendSize(arrayKeyCount, uint64(len(notes))); err != nil {
		return nil, err
	}
	for i, n := range notes {
		e := message.New()
		if err := e.AppendFloat(noteKeyFrequency, n.Frequency); err != nil {
			return nil, err
		}
		if err := e.AppendDouble(noteKeyPosition, n.Position); err != nil {
			return nil, err
		}
		if err := e.AppendDouble(noteKeyDuration, n.Duration); err != nil {
			return nil, err
		}
		if err := m.AppendMessage(arrayElementKey(i), e); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func decodeNotes(m *message.Message) ([]ara.Note, error) {
	count, err := m.Size(arrayKeyCount)
	if err != nil {
		return nil, err
	}
	if count > uint64(m.Len()) {
		return nil, errors.InvalidData(errors.PhaseDecode, "note array claims %d elements, message has %d entries", count, m.Len())
	}
	notes := make([]ara.Note, count)
	for i := range notes {
		e, err := m.Sub(arrayElementKey(i))
		if err != nil {
			return nil, err
		}
		if notes[i].Frequency, err = e.Float(noteKeyFrequency); err != nil {
			return nil, err
		}
		if notes[i].Position, err = e.Double(noteKeyPosition); err != nil {
			return nil, err
		}
		if notes[i].Duration, err = e.Double(noteKeyDuration); err != nil {
			return nil, err
		}
	}
	return notes, nil
}

// samplesToBytes flattens 32-bit float samples to little-endian bytes,
// the raw blob layout sample data travels in.
func samplesToBytes(samples []float32) []byte {
	buf := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(s))
	}
	return buf
}

func bytesToSamples(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, "sample blob of %d bytes is not float32 aligned", len(buf))
	}
	samples := make([]float32, len(buf)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return samples, nil
}
