package message

import (
	"bytes"
	"math"
	"testing"

	"github.com/wippyai/ara-ipc/errors"
)

func codecs() []Codec {
	return []Codec{Binary, XML}
}

func buildFixture(t *testing.T) *Message {
	t.Helper()
	m := New()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(m.AppendInt32(0, 0))
	must(m.AppendInt32(8, math.MinInt32))
	must(m.AppendInt32(16, math.MaxInt32))
	must(m.AppendInt64(24, math.MinInt64))
	must(m.AppendInt64(32, math.MaxInt64))
	must(m.AppendSize(40, 0))
	must(m.AppendSize(48, math.MaxUint64))
	must(m.AppendFloat(56, -1.5))
	must(m.AppendFloat(64, math.MaxFloat32))
	must(m.AppendDouble(72, math.SmallestNonzeroFloat64))
	must(m.AppendString(80, ""))
	must(m.AppendString(88, "Test document π µ"))
	must(m.AppendBytes(96, []byte{0x00, 0xff, 0x7f, 0x80}))

	inner := New()
	must(inner.AppendInt32(0, 3))
	must(inner.AppendString(8, "nested"))
	must(m.AppendMessage(104, inner))
	return m
}

func TestRoundTrip(t *testing.T) {
	for _, c := range codecs() {
		t.Run(c.Name(), func(t *testing.T) {
			src := buildFixture(t)
			payload, err := c.Encode(src)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := c.Decode(payload)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got.Writable() {
				t.Error("decoded message should be immutable")
			}
			assertEqualMessages(t, src, got)
		})
	}
}

func assertEqualMessages(t *testing.T, want, got *Message) {
	t.Helper()
	wantKeys, gotKeys := want.Keys(), got.Keys()
	if len(wantKeys) != len(gotKeys) {
		t.Fatalf("entry count mismatch: want %d, got %d", len(wantKeys), len(gotKeys))
	}
	for i := range want.entries {
		w, g := &want.entries[i], &got.entries[i]
		if w.key != g.key || w.kind != g.kind {
			t.Fatalf("entry %d: want (key %d, %s), got (key %d, %s)",
				i, w.key, w.kind, g.key, g.kind)
		}
		switch w.kind {
		case kindString:
			if w.str != g.str {
				t.Errorf("key %d: string %q != %q", w.key, g.str, w.str)
			}
		case kindBytes:
			if !bytes.Equal(w.blob, g.blob) {
				t.Errorf("key %d: bytes %x != %x", w.key, g.blob, w.blob)
			}
		case kindMessage:
			assertEqualMessages(t, w.sub, g.sub)
		default:
			if w.num != g.num {
				t.Errorf("key %d (%s): bits %#x != %#x", w.key, w.kind, g.num, w.num)
			}
		}
	}
}

func TestDecodeEmpty(t *testing.T) {
	for _, c := range codecs() {
		t.Run(c.Name(), func(t *testing.T) {
			payload, err := c.Encode(New())
			if err != nil {
				t.Fatal(err)
			}
			got, err := c.Decode(payload)
			if err != nil {
				t.Fatalf("Decode empty: %v", err)
			}
			if got.Len() != 0 {
				t.Errorf("empty message decoded with %d entries", got.Len())
			}
		})
	}
}

func TestBinaryDecodeTruncated(t *testing.T) {
	src := buildFixture(t)
	payload, err := Binary.Encode(src)
	if err != nil {
		t.Fatal(err)
	}
	for _, cut := range []int{1, 3, len(payload) / 2, len(payload) - 1} {
		if _, err := Binary.Decode(payload[:cut]); !errors.IsKind(err, errors.KindInvalidData) {
			t.Errorf("truncation at %d: err = %v, want invalid_data", cut, err)
		}
	}
}

func TestBinaryDecodeUnknownKind(t *testing.T) {
	payload := []byte{0xee, 0, 0, 0, 0}
	if _, err := Binary.Decode(payload); !errors.IsKind(err, errors.KindInvalidData) {
		t.Errorf("unknown kind err = %v, want invalid_data", err)
	}
}

func TestCodecByName(t *testing.T) {
	for _, c := range codecs() {
		got, err := CodecByName(c.Name())
		if err != nil || got.Name() != c.Name() {
			t.Errorf("CodecByName(%q) = %v, %v", c.Name(), got, err)
		}
	}
	if _, err := CodecByName("protobuf"); !errors.IsKind(err, errors.KindUnsupported) {
		t.Errorf("unknown codec err = %v, want unsupported", err)
	}
}

func BenchmarkBinaryEncode(b *testing.B) {
	m := New()
	samples := make([]byte, 8192*4)
	_ = m.AppendSize(0, uint64(len(samples)))
	_ = m.AppendBytes(8, samples)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Binary.Encode(m); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBinaryDecode(b *testing.B) {
	m := New()
	_ = m.AppendSize(0, 8192)
	_ = m.AppendBytes(8, make([]byte, 8192*4))
	payload, err := Binary.Encode(m)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Binary.Decode(payload); err != nil {
			b.Fatal(err)
		}
	}
}
