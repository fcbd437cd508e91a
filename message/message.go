package message

import (
	"math"
	"sort"

	"github.com/wippyai/ara-ipc/errors"
)

// Key identifies one entry of a Message. Keys are small non-negative
// integers, typically a struct member byte offset or an array index.
type Key = int64

type kind uint8

const (
	kindInt32 kind = iota + 1
	kindInt64
	kindSize // pointer-sized unsigned; also carries refs
	kindFloat
	kindDouble
	kindString
	kindBytes
	kindMessage
)

func (k kind) String() string {
	switch k {
	case kindInt32:
		return "int32"
	case kindInt64:
		return "int64"
	case kindSize:
		return "size"
	case kindFloat:
		return "float"
	case kindDouble:
		return "double"
	case kindString:
		return "string"
	case kindBytes:
		return "bytes"
	case kindMessage:
		return "message"
	}
	return "invalid"
}

type entry struct {
	sub  *Message
	str  string
	blob []byte
	num  uint64 // scalar bits for the numeric kinds
	key  Key
	kind kind
}

// Message is an ordered mapping from keys to typed values.
// The zero value is not usable; construct with New or a Codec's Decode.
type Message struct {
	entries  []entry
	writable bool
}

// New returns an empty writable message.
func New() *Message {
	return &Message{writable: true}
}

// Writable reports whether the message accepts appends without promotion.
func (m *Message) Writable() bool {
	return m.writable
}

// Len returns the number of entries, not counting nested entries.
func (m *Message) Len() int {
	return len(m.entries)
}

// Keys returns the entry keys in ascending order.
func (m *Message) Keys() []Key {
	keys := make([]Key, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.key
	}
	return keys
}

// Exists reports whether key has an entry of any type.
func (m *Message) Exists(key Key) bool {
	_, ok := m.find(key)
	return ok
}

func (m *Message) find(key Key) (*entry, bool) {
	i := sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].key >= key
	})
	if i < len(m.entries) && m.entries[i].key == key {
		return &m.entries[i], true
	}
	return nil, false
}

// promote makes an immutable message writable by copying its entry table.
// Decoded payload bytes stay shared; they are never mutated in place.
func (m *Message) promote() {
	if m.writable {
		return
	}
	entries := make([]entry, len(m.entries))
	copy(entries, m.entries)
	m.entries = entries
	m.writable = true
}

func (m *Message) append(key Key, e entry) error {
	if key < 0 {
		return errors.New(errors.PhaseEncode, errors.KindInvalidData).
			Key(key).
			Detail("negative keys are reserved for global messages").
			Build()
	}
	m.promote()
	e.key = key
	i := sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].key >= key
	})
	if i < len(m.entries) && m.entries[i].key == key {
		return errors.ProtocolViolation(errors.PhaseEncode, "duplicate key %d (%s over %s)",
			key, e.kind, m.entries[i].kind)
	}
	m.entries = append(m.entries, entry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = e
	return nil
}

// AppendInt32 adds an int32 entry under key.
func (m *Message) AppendInt32(key Key, v int32) error {
	return m.append(key, entry{kind: kindInt32, num: uint64(uint32(v))})
}

// AppendInt64 adds an int64 entry under key.
func (m *Message) AppendInt64(key Key, v int64) error {
	return m.append(key, entry{kind: kindInt64, num: uint64(v)})
}

// AppendSize adds a pointer-sized unsigned entry under key.
// Refs, sizes and offsets are all carried this way.
func (m *Message) AppendSize(key Key, v uint64) error {
	return m.append(key, entry{kind: kindSize, num: v})
}

// AppendFloat adds a float32 entry under key.
func (m *Message) AppendFloat(key Key, v float32) error {
	return m.append(key, entry{kind: kindFloat, num: uint64(math.Float32bits(v))})
}

// AppendDouble adds a float64 entry under key.
func (m *Message) AppendDouble(key Key, v float64) error {
	return m.append(key, entry{kind: kindDouble, num: math.Float64bits(v)})
}

// AppendString adds a UTF-8 string entry under key.
func (m *Message) AppendString(key Key, v string) error {
	return m.append(key, entry{kind: kindString, str: v})
}

// AppendBytes adds a raw byte blob under key. The slice is referenced,
// not copied; the caller must not mutate it afterwards.
func (m *Message) AppendBytes(key Key, v []byte) error {
	return m.append(key, entry{kind: kindBytes, blob: v})
}

// AppendMessage adds a nested sub-message under key. The sub-message is
// owned by m from then on.
func (m *Message) AppendMessage(key Key, sub *Message) error {
	if sub == nil {
		return errors.New(errors.PhaseEncode, errors.KindInvalidData).
			Key(key).
			Detail("nil sub-message").
			Build()
	}
	return m.append(key, entry{kind: kindMessage, sub: sub})
}

func (m *Message) read(key Key, want kind) (*entry, error) {
	e, ok := m.find(key)
	if !ok {
		return nil, errors.KeyNotFound(errors.PhaseDecode, key)
	}
	if e.kind != want {
		return nil, errors.TypeMismatch(errors.PhaseDecode, key, want.String(), e.kind.String())
	}
	return e, nil
}

// Int32 reads the int32 entry under key.
func (m *Message) Int32(key Key) (int32, error) {
	e, err := m.read(key, kindInt32)
	if err != nil {
		return 0, err
	}
	return int32(uint32(e.num)), nil
}

// Int64 reads the int64 entry under key.
func (m *Message) Int64(key Key) (int64, error) {
	e, err := m.read(key, kindInt64)
	if err != nil {
		return 0, err
	}
	return int64(e.num), nil
}

// Size reads the pointer-sized unsigned entry under key.
func (m *Message) Size(key Key) (uint64, error) {
	e, err := m.read(key, kindSize)
	if err != nil {
		return 0, err
	}
	return e.num, nil
}

// Float reads the float32 entry under key.
func (m *Message) Float(key Key) (float32, error) {
	e, err := m.read(key, kindFloat)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(e.num)), nil
}

// Double reads the float64 entry under key.
func (m *Message) Double(key Key) (float64, error) {
	e, err := m.read(key, kindDouble)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(e.num), nil
}

// String reads the string entry under key.
func (m *Message) String(key Key) (string, error) {
	e, err := m.read(key, kindString)
	if err != nil {
		return "", err
	}
	return e.str, nil
}

// Bytes reads the byte blob under key. The returned slice aliases the
// message contents and must be treated as read-only.
func (m *Message) Bytes(key Key) ([]byte, error) {
	e, err := m.read(key, kindBytes)
	if err != nil {
		return nil, err
	}
	return e.blob, nil
}

// Sub reads the nested sub-message under key.
func (m *Message) Sub(key Key) (*Message, error) {
	e, err := m.read(key, kindMessage)
	if err != nil {
		return nil, err
	}
	return e.sub, nil
}
