package method

import "testing"

func TestPackUnpack(t *testing.T) {
	for tag := Tag(0); tag < numTags; tag++ {
		for offset := uint32(0); offset <= 32*Stride; offset += Stride {
			id := Pack(tag, offset)
			if got := id.Tag(); got != tag {
				t.Fatalf("Pack(%v, %d).Tag() = %v", tag, offset, got)
			}
			if got := id.Offset(); got != offset {
				t.Fatalf("Pack(%v, %d).Offset() = %d", tag, offset, got)
			}
			if !id.Valid() {
				t.Fatalf("Pack(%v, %d) not valid", tag, offset)
			}
			if id.Global() {
				t.Fatalf("Pack(%v, %d) reported global", tag, offset)
			}
		}
	}
}

func TestUniqueness(t *testing.T) {
	seen := make(map[ID]string)
	for tag := Tag(0); tag < numTags; tag++ {
		for offset := uint32(0); offset <= 64*Stride; offset += Stride {
			id := Pack(tag, offset)
			if prev, dup := seen[id]; dup {
				t.Fatalf("ID collision: (%v, %d) and %s both encode to %d", tag, offset, prev, id)
			}
			seen[id] = id.String()
		}
	}
}

func TestSentinels(t *testing.T) {
	for _, id := range []ID{IDHandshake, IDCreateDocumentController, IDTerminate} {
		if !id.Global() {
			t.Errorf("%v not global", id)
		}
		if !id.Valid() {
			t.Errorf("%v not valid", id)
		}
	}
	if ID(-99).Valid() {
		t.Error("out-of-range sentinel reported valid")
	}
	if Pack(numTags, 0).Valid() {
		t.Error("out-of-range tag reported valid")
	}
}

func TestString(t *testing.T) {
	if s := IDHandshake.String(); s != "handshake" {
		t.Errorf("sentinel String() = %q", s)
	}
	id := Pack(TagAudioAccessController, 2*Stride)
	if s := id.String(); s != "AudioAccessController+16" {
		t.Errorf("packed String() = %q", s)
	}
}
