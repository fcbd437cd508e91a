// Package ara defines the closed interface set whose calls the IPC layer
// forwards, together with the small in-memory model the example host
// publishes through it.
//
// The interfaces split into two sides. The host-callable set is
// implemented by the host process and invoked from the plug-in process:
// audio sample access, archive byte streams, musical content, and model
// update notifications. The plug-in-callable set is implemented by the
// plug-in process and invoked from the host: the document controller
// lifecycle and playback rendering.
//
// Objects never cross the process boundary. Each side names the other
// side's objects by opaque refs; the typed ref aliases in this package
// only keep host-owned and plug-in-owned refs from being mixed up at
// compile time.
package ara
