// Package hostmodel is the host process's in-memory model and its
// implementation of the host-callable interfaces. Audio sources serve
// the deterministic test signal, archives are in-memory byte buffers,
// and model update notifications are recorded for inspection.
package hostmodel
