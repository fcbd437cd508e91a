package ref

import (
	"sync"

	"github.com/wippyai/ara-ipc/errors"
)

// Ref is an opaque cross-process reference. On the wire it travels as a
// pointer-sized unsigned integer. Ref 0 is reserved and always invalid.
//
// Layout: low 32 bits hold slot+1, high bits hold the slot's generation
// at insert time.
type Ref int64

// None is the invalid zero Ref.
const None Ref = 0

func packRef(slot, gen uint32) Ref {
	return Ref(uint64(gen)<<32 | uint64(slot+1))
}

func (r Ref) slot() (uint32, bool) {
	low := uint32(uint64(r) & 0xffffffff)
	if low == 0 {
		return 0, false
	}
	return low - 1, true
}

func (r Ref) gen() uint32 {
	return uint32(uint64(r) >> 32)
}

// Wire returns the on-wire form of r.
func (r Ref) Wire() uint64 {
	return uint64(r)
}

// FromWire reconstructs a Ref from its on-wire form.
func FromWire(v uint64) Ref {
	return Ref(v)
}

type entry struct {
	value any
	gen   uint32
	live  bool
}

// Table maps Refs of one object kind to live local objects.
// Safe for concurrent use.
type Table struct {
	entries []entry
	free    []uint32
	kind    string
	mu      sync.RWMutex
}

// NewTable creates an empty table. kind names the object kind in errors,
// e.g. "audioSource".
func NewTable(kind string) *Table {
	return &Table{
		kind:    kind,
		entries: make([]entry, 0, 16),
	}
}

// Insert stores value and returns its Ref. Called exactly when the
// corresponding "create" message is dispatched.
func (t *Table) Insert(value any) Ref {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n := len(t.free); n > 0 {
		slot := t.free[n-1]
		t.free = t.free[:n-1]
		e := &t.entries[slot]
		e.value = value
		e.live = true
		return packRef(slot, e.gen)
	}

	t.entries = append(t.entries, entry{value: value, live: true})
	return packRef(uint32(len(t.entries)-1), 0)
}

func (t *Table) lookup(r Ref) (*entry, error) {
	slot, ok := r.slot()
	if !ok || int(slot) >= len(t.entries) {
		return nil, errors.RefInvalid(t.kind, int64(r))
	}
	e := &t.entries[slot]
	if !e.live || e.gen != r.gen() {
		return nil, errors.RefInvalid(t.kind, int64(r))
	}
	return e, nil
}

// Lookup resolves r to the stored object. A stale or unknown Ref yields a
// ref_invalid error; that always indicates a protocol violation by the
// peer or a use-after-destroy bug locally.
func (t *Table) Lookup(r Ref) (any, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, err := t.lookup(r)
	if err != nil {
		return nil, err
	}
	return e.value, nil
}

// Remove drops the entry for r and returns the stored object. Called
// exactly when the corresponding "destroy" message is dispatched. The
// slot's generation is bumped so r can never resolve again.
func (t *Table) Remove(r Ref) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, err := t.lookup(r)
	if err != nil {
		return nil, err
	}
	value := e.value
	e.value = nil
	e.live = false
	e.gen++
	slot, _ := r.slot()
	t.free = append(t.free, slot)
	return value, nil
}

// Len returns the number of live entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries) - len(t.free)
}

// Each calls fn for every live entry until fn returns false.
func (t *Table) Each(fn func(r Ref, value any) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for slot := range t.entries {
		e := &t.entries[slot]
		if !e.live {
			continue
		}
		if !fn(packRef(uint32(slot), e.gen), e.value) {
			return
		}
	}
}

// Clear drops all live entries.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for slot := range t.entries {
		e := &t.entries[slot]
		if e.live {
			e.value = nil
			e.live = false
			e.gen++
			t.free = append(t.free, uint32(slot))
		}
	}
}
