package method

import "fmt"

// Tag identifies one interface of the closed set. Tags must fit in the
// low tagBits of an ID, so the set is capped at 8 interfaces.
type Tag int32

const (
	// Plug-in-callable interfaces (requests travel host to plug-in).
	TagDocumentController Tag = iota
	TagPlaybackRenderer

	// Host-callable interfaces (requests travel plug-in to host).
	TagAudioAccessController
	TagArchivingController
	TagContentAccessController
	TagModelUpdateController

	numTags
)

// NumTags is the size of the closed interface set.
const NumTags = int(numTags)

func (t Tag) String() string {
	switch t {
	case TagDocumentController:
		return "DocumentController"
	case TagPlaybackRenderer:
		return "PlaybackRenderer"
	case TagAudioAccessController:
		return "AudioAccessController"
	case TagArchivingController:
		return "ArchivingController"
	case TagContentAccessController:
		return "ContentAccessController"
	case TagModelUpdateController:
		return "ModelUpdateController"
	}
	return fmt.Sprintf("Tag(%d)", int32(t))
}

// Valid reports whether t names an interface of the closed set.
func (t Tag) Valid() bool {
	return t >= 0 && t < numTags
}

// Stride is the spacing between member offsets inside a dispatch struct,
// i.e. the width of one function pointer. Both processes must agree on it;
// the wire protocol fixes it at 8 regardless of the build's pointer width.
const Stride = 8

// tagBits is the number of low zero bits every Stride-aligned offset
// guarantees, which is where the tag lives.
const tagBits = 3

// ID uniquely identifies one member of one interface, or one of the
// global sentinels when negative.
type ID int32

// Global sentinel IDs. Negative so they can never collide with a packed
// (tag, offset) pair.
const (
	IDHandshake                ID = -1
	IDCreateDocumentController ID = -2
	IDTerminate                ID = -3
)

// Pack encodes an interface tag and a member byte offset into an ID.
// offset must be a multiple of Stride and tag must be valid; Packed IDs
// from outside those ranges will not round-trip.
func Pack(tag Tag, offset uint32) ID {
	return ID(offset)<<tagBits | ID(tag)
}

// Tag extracts the interface tag of a packed ID.
func (id ID) Tag() Tag {
	return Tag(id & (1<<tagBits - 1))
}

// Offset extracts the member byte offset of a packed ID.
func (id ID) Offset() uint32 {
	return uint32(id >> tagBits)
}

// Global reports whether id is one of the negative sentinels.
func (id ID) Global() bool {
	return id < 0
}

// Valid reports whether id is a well-formed packed ID or sentinel.
func (id ID) Valid() bool {
	if id.Global() {
		return id >= IDTerminate
	}
	return id.Tag().Valid() && id.Offset()%Stride == 0
}

func (id ID) String() string {
	switch id {
	case IDHandshake:
		return "handshake"
	case IDCreateDocumentController:
		return "createDocumentController"
	case IDTerminate:
		return "terminate"
	}
	if id < 0 {
		return fmt.Sprintf("invalid(%d)", int32(id))
	}
	return fmt.Sprintf("%s+%d", id.Tag(), id.Offset())
}
