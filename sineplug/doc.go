// Package sineplug is the built-in demonstration plug-in. Its renderer
// passes host audio through unchanged, which makes transported sample
// data verifiable against the host's deterministic test signal, and its
// document controller exercises every host-callable interface during
// editing and persistency.
package sineplug
