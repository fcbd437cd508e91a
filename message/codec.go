package message

import (
	"github.com/wippyai/ara-ipc/errors"
)

// Codec converts between a Message and its opaque transport payload.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Name identifies the codec during the connection handshake.
	Name() string

	// Encode serializes msg into a fresh byte slice.
	Encode(msg *Message) ([]byte, error)

	// Decode parses payload into an immutable message.
	Decode(payload []byte) (*Message, error)
}

// Binary is the default compact little-endian codec.
var Binary Codec = binaryCodec{}

// XML is the human-readable codec with base64-encoded blobs.
var XML Codec = xmlCodec{}

// CodecByName resolves a codec advertised during the handshake.
func CodecByName(name string) (Codec, error) {
	switch name {
	case Binary.Name():
		return Binary, nil
	case XML.Name():
		return XML, nil
	}
	return nil, errors.Unsupported(errors.PhaseHandshake, "codec "+name)
}
