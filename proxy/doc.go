// Package proxy gives both processes typed views of the peer's objects.
//
// The host side holds a PlugIn, whose DocumentController and
// PlaybackRenderer values turn Go method calls into remote requests. The
// plug-in side holds a Host with the mirrored host-callable interfaces,
// plus the dispatch tables that unpack inbound requests and invoke the
// local implementations.
//
// Large audio and archive transfers are split transparently; see
// ReadAudioChunked and the MaxSamplesPerCall / MaxBytesPerCall limits.
package proxy
