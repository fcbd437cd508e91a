// Package remote builds typed remote calls on top of the channel layer
// and owns a connection's lifecycle: handshake, dispatch routing, and
// spawning the peer process.
//
// A Connection bundles the two channels of a process pair: the main
// channel driven by the model thread, and the other-threads channel used
// by concurrent render calls. Inbound requests are routed by the method
// ID's interface tag to registered handlers; the negative sentinel IDs
// (handshake, createDocumentController, terminate) are serviced by the
// connection itself or its factory handler.
//
// The handshake exchanges API versions and verifies both sides agreed on
// the wire codec. Versions follow semver: a major mismatch refuses the
// connection, otherwise both sides settle on the lower of the two
// versions and later-generation optional struct members stay off the
// wire.
//
// Spawn implements the process launch contract: the owning process
// publishes both channel endpoints under a fresh rendezvous UUID and
// starts the remote binary with marker arguments naming the rendezvous
// and codec; the remote process recognizes the marker, dials back, and
// enters its dispatch loop until told to terminate.
package remote
