// Package channel implements the bidirectional transport that carries
// encoded messages between the host and plug-in processes.
//
// A Port moves opaque frames; implementations are a unix-socket message
// port (rendezvous by a UUID-derived name) and an in-process loopback pair
// for tests. A Chan layers the request/reply protocol on top of a Port:
// every remote call blocks the calling goroutine until the peer's reply
// arrives, matching the synchronous semantics of the plug-in API being
// forwarded.
//
// # Reentrancy
//
// While a call is awaiting its reply, the peer may need to call back into
// this process before it can produce that reply (the plug-in pulling
// audio samples from the host in the middle of a host-initiated render,
// for example). The await loop therefore pumps the inbound request queue:
// nested incoming requests are fully serviced, and their replies sent,
// while the outer send is still pending. CallbackLevel exposes the current
// nesting depth.
//
// # Threading models
//
// ModeForeground leaves inbound dispatch to whoever drives the channel:
// the owning goroutine's Pump loop or a sender blocked in
// SendAndAwaitReply. ModeBackground adds a dedicated goroutine that
// services inbound requests so the owner never has to pump.
//
// Frame writes are serialized by a lock held only across the write itself,
// never across a full round trip, so reentrant receive processing during
// the wait cannot self-deadlock. Replies are paired to requests by
// sequence number, which keeps concurrent sends from non-owning goroutines
// well-defined.
//
// Frames are bounded in size. Payloads that may exceed the bound (bulk
// audio samples, archive streams) must be pre-chunked by the caller; see
// the proxy package.
package channel
