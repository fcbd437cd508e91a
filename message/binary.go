package message

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/ara-ipc/errors"
)

// Binary wire layout, per entry:
//
//	u8  kind
//	u32 key
//	payload (fixed width for the numeric kinds, u32 length prefix for
//	string/bytes/nested)
//
// All integers are little-endian. Both processes run on the same
// machine, so byte order could be left implicit; writing an explicit one
// keeps the wire form deterministic.
type binaryCodec struct{}

func (binaryCodec) Name() string { return "binary" }

const maxBinaryKey = math.MaxUint32

func (c binaryCodec) Encode(msg *Message) ([]byte, error) {
	buf := make([]byte, 0, c.encodedSize(msg))
	return c.appendMessage(buf, msg)
}

func (c binaryCodec) encodedSize(msg *Message) int {
	n := 0
	for i := range msg.entries {
		e := &msg.entries[i]
		n += 5 // kind + key
		switch e.kind {
		case kindInt32, kindFloat:
			n += 4
		case kindInt64, kindSize, kindDouble:
			n += 8
		case kindString:
			n += 4 + len(e.str)
		case kindBytes:
			n += 4 + len(e.blob)
		case kindMessage:
			n += 4 + c.encodedSize(e.sub)
		}
	}
	return n
}

func (c binaryCodec) appendMessage(buf []byte, msg *Message) ([]byte, error) {
	for i := range msg.entries {
		e := &msg.entries[i]
		if e.key > maxBinaryKey {
			return nil, errors.New(errors.PhaseEncode, errors.KindInvalidData).
				Key(e.key).
				Detail("key exceeds binary wire width").
				Build()
		}
		buf = append(buf, byte(e.kind))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(e.key))

		switch e.kind {
		case kindInt32, kindFloat:
			buf = binary.LittleEndian.AppendUint32(buf, uint32(e.num))
		case kindInt64, kindSize, kindDouble:
			buf = binary.LittleEndian.AppendUint64(buf, e.num)
		case kindString:
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(e.str)))
			buf = append(buf, e.str...)
		case kindBytes:
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(e.blob)))
			buf = append(buf, e.blob...)
		case kindMessage:
			sub, err := c.appendMessage(nil, e.sub)
			if err != nil {
				return nil, err
			}
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(sub)))
			buf = append(buf, sub...)
		default:
			return nil, errors.New(errors.PhaseEncode, errors.KindInvalidData).
				Key(e.key).
				Detail("entry has invalid kind %d", e.kind).
				Build()
		}
	}
	return buf, nil
}

func (c binaryCodec) Decode(payload []byte) (*Message, error) {
	return c.decodeMessage(payload)
}

func (c binaryCodec) decodeMessage(payload []byte) (*Message, error) {
	msg := &Message{} // immutable until promoted
	lastKey := Key(-1)
	for len(payload) > 0 {
		if len(payload) < 5 {
			return nil, errors.InvalidData(errors.PhaseDecode, "truncated entry header")
		}
		k := kind(payload[0])
		key := Key(binary.LittleEndian.Uint32(payload[1:5]))
		payload = payload[5:]

		if key <= lastKey {
			return nil, errors.ProtocolViolation(errors.PhaseDecode,
				"key %d out of order after %d", key, lastKey)
		}
		lastKey = key

		e := entry{key: key, kind: k}
		switch k {
		case kindInt32, kindFloat:
			if len(payload) < 4 {
				return nil, errors.InvalidData(errors.PhaseDecode, "truncated scalar at key %d", key)
			}
			e.num = uint64(binary.LittleEndian.Uint32(payload))
			payload = payload[4:]
		case kindInt64, kindSize, kindDouble:
			if len(payload) < 8 {
				return nil, errors.InvalidData(errors.PhaseDecode, "truncated scalar at key %d", key)
			}
			e.num = binary.LittleEndian.Uint64(payload)
			payload = payload[8:]
		case kindString, kindBytes, kindMessage:
			if len(payload) < 4 {
				return nil, errors.InvalidData(errors.PhaseDecode, "truncated length at key %d", key)
			}
			n := int(binary.LittleEndian.Uint32(payload))
			payload = payload[4:]
			if n > len(payload) {
				return nil, errors.InvalidData(errors.PhaseDecode,
					"value of %d bytes at key %d exceeds remaining %d", n, key, len(payload))
			}
			body := payload[:n]
			payload = payload[n:]
			switch k {
			case kindString:
				e.str = string(body)
			case kindBytes:
				e.blob = body
			case kindMessage:
				sub, err := c.decodeMessage(body)
				if err != nil {
					return nil, err
				}
				e.sub = sub
			}
		default:
			return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
				Key(key).
				Detail("unknown wire kind %d", byte(k)).
				Build()
		}
		msg.entries = append(msg.entries, e)
	}
	return msg, nil
}
