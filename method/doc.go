// Package method defines the packed integer IDs that name remote methods
// on the wire.
//
// Every callable member of the closed interface set is identified by the
// byte offset its function pointer would occupy inside the interface's
// dispatch struct, combined with a small tag naming the interface itself.
// Offsets are multiples of the pointer width, so their low bits are always
// zero and the tag fits there without collisions:
//
//	ID = offset<<tagBits | tag
//
// Dispatch is a plain switch on the ID; call sites compare against the
// same Pack expression, which the compiler constant-folds.
//
// A handful of negative sentinel IDs cover the global messages that are
// not tied to any interface member: the handshake, creating the top-level
// document controller, and terminating the remote process.
package method
