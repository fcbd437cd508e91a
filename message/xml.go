package message

import (
	"encoding/base64"
	"encoding/xml"
	"math"
	"strconv"

	"github.com/wippyai/ara-ipc/errors"
)

// XML wire form: one <msg> element per message, one <e> child per entry.
// Scalars are attribute-encoded text, blobs are base64, sub-messages are
// nested <msg> elements. Verbose but diffable, for debugging a channel
// with a text dump.
type xmlCodec struct{}

func (xmlCodec) Name() string { return "xml" }

type xmlMessage struct {
	XMLName xml.Name   `xml:"msg"`
	Entries []xmlEntry `xml:"e"`
}

type xmlEntry struct {
	XMLName xml.Name    `xml:"e"`
	Key     int64       `xml:"k,attr"`
	Type    string      `xml:"t,attr"`
	Value   string      `xml:"v,attr,omitempty"`
	Sub     *xmlMessage `xml:"msg,omitempty"`
}

func (c xmlCodec) Encode(msg *Message) ([]byte, error) {
	wire, err := c.toWire(msg)
	if err != nil {
		return nil, err
	}
	payload, err := xml.Marshal(wire)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "marshal xml message")
	}
	return payload, nil
}

func (c xmlCodec) toWire(msg *Message) (*xmlMessage, error) {
	wire := &xmlMessage{Entries: make([]xmlEntry, 0, len(msg.entries))}
	for i := range msg.entries {
		e := &msg.entries[i]
		we := xmlEntry{Key: e.key, Type: e.kind.String()}
		switch e.kind {
		case kindInt32:
			we.Value = strconv.FormatInt(int64(int32(uint32(e.num))), 10)
		case kindInt64:
			we.Value = strconv.FormatInt(int64(e.num), 10)
		case kindSize:
			we.Value = strconv.FormatUint(e.num, 10)
		case kindFloat:
			we.Value = strconv.FormatFloat(float64(math.Float32frombits(uint32(e.num))), 'g', -1, 32)
		case kindDouble:
			we.Value = strconv.FormatFloat(math.Float64frombits(e.num), 'g', -1, 64)
		case kindString:
			we.Value = e.str
		case kindBytes:
			we.Value = base64.StdEncoding.EncodeToString(e.blob)
		case kindMessage:
			sub, err := c.toWire(e.sub)
			if err != nil {
				return nil, err
			}
			we.Sub = sub
		default:
			return nil, errors.New(errors.PhaseEncode, errors.KindInvalidData).
				Key(e.key).
				Detail("entry has invalid kind %d", e.kind).
				Build()
		}
		wire.Entries = append(wire.Entries, we)
	}
	return wire, nil
}

func (c xmlCodec) Decode(payload []byte) (*Message, error) {
	var wire xmlMessage
	if err := xml.Unmarshal(payload, &wire); err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "unmarshal xml message")
	}
	return c.fromWire(&wire)
}

func (c xmlCodec) fromWire(wire *xmlMessage) (*Message, error) {
	msg := &Message{} // immutable
	lastKey := Key(-1)
	for i := range wire.Entries {
		we := &wire.Entries[i]
		if we.Key <= lastKey {
			return nil, errors.ProtocolViolation(errors.PhaseDecode,
				"key %d out of order after %d", we.Key, lastKey)
		}
		lastKey = we.Key

		e := entry{key: we.Key}
		var err error
		switch we.Type {
		case "int32":
			e.kind = kindInt32
			var v int64
			if v, err = strconv.ParseInt(we.Value, 10, 32); err == nil {
				e.num = uint64(uint32(int32(v)))
			}
		case "int64":
			e.kind = kindInt64
			var v int64
			if v, err = strconv.ParseInt(we.Value, 10, 64); err == nil {
				e.num = uint64(v)
			}
		case "size":
			e.kind = kindSize
			e.num, err = strconv.ParseUint(we.Value, 10, 64)
		case "float":
			e.kind = kindFloat
			var v float64
			if v, err = strconv.ParseFloat(we.Value, 32); err == nil {
				e.num = uint64(math.Float32bits(float32(v)))
			}
		case "double":
			e.kind = kindDouble
			var v float64
			if v, err = strconv.ParseFloat(we.Value, 64); err == nil {
				e.num = math.Float64bits(v)
			}
		case "string":
			e.kind = kindString
			e.str = we.Value
		case "bytes":
			e.kind = kindBytes
			e.blob, err = base64.StdEncoding.DecodeString(we.Value)
		case "message":
			e.kind = kindMessage
			if we.Sub == nil {
				return nil, errors.InvalidData(errors.PhaseDecode,
					"message entry at key %d has no nested element", we.Key)
			}
			e.sub, err = c.fromWire(we.Sub)
		default:
			return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
				Key(we.Key).
				Detail("unknown wire type %q", we.Type).
				Build()
		}
		if err != nil {
			return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
				Key(we.Key).
				WireType(we.Type).
				Cause(err).
				Detail("parse entry value").
				Build()
		}
		msg.entries = append(msg.entries, e)
	}
	return msg, nil
}
