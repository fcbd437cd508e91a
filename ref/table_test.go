package ref

import (
	"testing"

	"github.com/wippyai/ara-ipc/errors"
)

type fakeSource struct {
	name string
}

func TestInsertLookupRemove(t *testing.T) {
	tbl := NewTable("audioSource")

	src := &fakeSource{name: "one"}
	r := tbl.Insert(src)
	if r == None {
		t.Fatal("Insert returned None")
	}

	got, err := tbl.Lookup(r)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != src {
		t.Fatalf("Lookup returned %v, want %v", got, src)
	}

	removed, err := tbl.Remove(r)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed != src {
		t.Fatal("Remove returned wrong value")
	}
	if tbl.Len() != 0 {
		t.Errorf("Len after remove = %d", tbl.Len())
	}
}

func TestCreateDestroyLeavesTableEmpty(t *testing.T) {
	tbl := NewTable("doc")
	const n = 100

	refs := make([]Ref, 0, n)
	for i := 0; i < n; i++ {
		refs = append(refs, tbl.Insert(&fakeSource{}))
	}
	if tbl.Len() != n {
		t.Fatalf("Len = %d, want %d", tbl.Len(), n)
	}
	for _, r := range refs {
		if _, err := tbl.Remove(r); err != nil {
			t.Fatalf("Remove(%v): %v", r, err)
		}
	}
	if tbl.Len() != 0 {
		t.Errorf("Len after removing all = %d", tbl.Len())
	}
}

func TestStaleRefRejected(t *testing.T) {
	tbl := NewTable("reader")
	r := tbl.Insert(&fakeSource{name: "dead"})
	if _, err := tbl.Remove(r); err != nil {
		t.Fatal(err)
	}

	// Recycle the slot; the stale ref must still fail.
	r2 := tbl.Insert(&fakeSource{name: "alive"})

	if _, err := tbl.Lookup(r); !errors.IsKind(err, errors.KindRefInvalid) {
		t.Errorf("stale Lookup err = %v, want ref_invalid", err)
	}
	if _, err := tbl.Remove(r); !errors.IsKind(err, errors.KindRefInvalid) {
		t.Errorf("stale Remove err = %v, want ref_invalid", err)
	}
	if got, err := tbl.Lookup(r2); err != nil || got.(*fakeSource).name != "alive" {
		t.Errorf("recycled slot lookup = %v, %v", got, err)
	}
}

func TestUnknownRefRejected(t *testing.T) {
	tbl := NewTable("x")
	if _, err := tbl.Lookup(None); !errors.IsKind(err, errors.KindRefInvalid) {
		t.Errorf("Lookup(None) err = %v", err)
	}
	if _, err := tbl.Lookup(Ref(12345)); !errors.IsKind(err, errors.KindRefInvalid) {
		t.Errorf("Lookup(unknown) err = %v", err)
	}
}

func TestWireRoundTrip(t *testing.T) {
	tbl := NewTable("y")
	r := tbl.Insert(&fakeSource{})
	if FromWire(r.Wire()) != r {
		t.Errorf("wire round trip lost ref: %v != %v", FromWire(r.Wire()), r)
	}
}

func TestEachAndClear(t *testing.T) {
	tbl := NewTable("z")
	for i := 0; i < 5; i++ {
		tbl.Insert(&fakeSource{})
	}
	count := 0
	tbl.Each(func(r Ref, v any) bool {
		count++
		return true
	})
	if count != 5 {
		t.Errorf("Each visited %d entries, want 5", count)
	}

	tbl.Clear()
	if tbl.Len() != 0 {
		t.Errorf("Len after Clear = %d", tbl.Len())
	}
}
