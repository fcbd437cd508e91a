// Package message implements the typed, ordered-key container that carries
// every remote call and reply between the host and plug-in processes.
//
// A Message maps small non-negative integer keys to typed values: int32,
// int64, pointer-sized unsigned integers (which also carry opaque refs),
// float32, float64, UTF-8 strings, raw byte blobs, and nested sub-messages.
// Keys are derived from struct member offsets or array indices by the
// callers, so entries stay ordered by key.
//
// Messages are writable while being constructed and immutable once decoded
// from the wire. Appending to an immutable message promotes it to writable
// via a copy-on-write of its entry table.
//
// # Wire forms
//
// Two interchangeable codecs are provided behind the Codec interface:
//
//	Binary - little-endian tagged dictionary, compact, the default
//	XML    - element per entry with base64 blobs, for debugging by eye
//
// Both sides of a connection agree on the codec during the handshake.
//
// # Error handling
//
// Reads of absent keys return a KeyNotFound error; reads of a key holding a
// different type return TypeMismatch. Callers that treat a key as optional
// test for KeyNotFound and fall back to their zero value.
package message
