package message

import (
	stderrors "errors"
	"math"
	"testing"

	"github.com/wippyai/ara-ipc/errors"
)

func TestAppendAndRead(t *testing.T) {
	m := New()
	if err := m.AppendInt32(0, -42); err != nil {
		t.Fatalf("AppendInt32: %v", err)
	}
	if err := m.AppendInt64(8, math.MinInt64); err != nil {
		t.Fatalf("AppendInt64: %v", err)
	}
	if err := m.AppendSize(16, math.MaxUint64); err != nil {
		t.Fatalf("AppendSize: %v", err)
	}
	if err := m.AppendString(24, "Test document"); err != nil {
		t.Fatalf("AppendString: %v", err)
	}

	if v, err := m.Int32(0); err != nil || v != -42 {
		t.Errorf("Int32(0) = %d, %v", v, err)
	}
	if v, err := m.Int64(8); err != nil || v != math.MinInt64 {
		t.Errorf("Int64(8) = %d, %v", v, err)
	}
	if v, err := m.Size(16); err != nil || v != math.MaxUint64 {
		t.Errorf("Size(16) = %d, %v", v, err)
	}
	if v, err := m.String(24); err != nil || v != "Test document" {
		t.Errorf("String(24) = %q, %v", v, err)
	}
}

func TestKeysStayOrdered(t *testing.T) {
	m := New()
	for _, key := range []Key{16, 0, 24, 8} {
		if err := m.AppendInt32(key, int32(key)); err != nil {
			t.Fatalf("append key %d: %v", key, err)
		}
	}
	keys := m.Keys()
	want := []Key{0, 8, 16, 24}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %d, want %d", i, keys[i], want[i])
		}
	}
}

func TestDuplicateKeyRejected(t *testing.T) {
	m := New()
	if err := m.AppendInt32(8, 1); err != nil {
		t.Fatalf("first append: %v", err)
	}
	err := m.AppendInt64(8, 2)
	if !errors.IsKind(err, errors.KindProtocolViolation) {
		t.Errorf("duplicate key error = %v, want protocol violation", err)
	}
}

func TestNegativeKeyRejected(t *testing.T) {
	m := New()
	if err := m.AppendInt32(-1, 0); err == nil {
		t.Error("negative key accepted")
	}
}

func TestKeyNotFound(t *testing.T) {
	m := New()
	_, err := m.Int32(99)
	if !errors.IsKind(err, errors.KindKeyNotFound) {
		t.Errorf("missing key error = %v, want key_not_found", err)
	}

	var structured *errors.Error
	if !stderrors.As(err, &structured) {
		t.Fatal("error is not a structured *errors.Error")
	}
	if len(structured.Keys) != 1 || structured.Keys[0] != 99 {
		t.Errorf("error keys = %v, want [99]", structured.Keys)
	}
}

func TestTypeMismatch(t *testing.T) {
	m := New()
	if err := m.AppendString(8, "hello"); err != nil {
		t.Fatal(err)
	}
	_, err := m.Int32(8)
	if !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("mismatched read error = %v, want type_mismatch", err)
	}
}

func TestCopyOnWritePromotion(t *testing.T) {
	src := New()
	if err := src.AppendInt32(0, 7); err != nil {
		t.Fatal(err)
	}
	payload, err := Binary.Encode(src)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Binary.Decode(payload)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Writable() {
		t.Fatal("decoded message is writable before promotion")
	}

	if err := decoded.AppendInt32(8, 8); err != nil {
		t.Fatalf("append to immutable message: %v", err)
	}
	if !decoded.Writable() {
		t.Error("append did not promote message to writable")
	}
	if v, err := decoded.Int32(0); err != nil || v != 7 {
		t.Errorf("original entry lost after promotion: %d, %v", v, err)
	}
	if v, err := decoded.Int32(8); err != nil || v != 8 {
		t.Errorf("appended entry missing: %d, %v", v, err)
	}
}

func TestNestedMessages(t *testing.T) {
	inner := New()
	if err := inner.AppendDouble(0, 44100.0); err != nil {
		t.Fatal(err)
	}
	outer := New()
	if err := outer.AppendMessage(8, inner); err != nil {
		t.Fatal(err)
	}

	sub, err := outer.Sub(8)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if v, err := sub.Double(0); err != nil || v != 44100.0 {
		t.Errorf("nested double = %v, %v", v, err)
	}

	if err := outer.AppendMessage(16, nil); err == nil {
		t.Error("nil sub-message accepted")
	}
}
